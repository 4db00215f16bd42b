// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names shared by stores and index reconciliation.
const (
	Companies      = "companies"
	CompanyForms   = "company_forms"
	OwnerForms     = "owner_forms"
	ApplicantForms = "applicant_forms"
	Users          = "users"
	Transactions   = "transactions"
	AuditEvents    = "audit_events"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{Users, ensureUsers},
		{Companies, ensureCompanies},
		{CompanyForms, ensureCompanyForms},
		{OwnerForms, ensureParticipants(OwnerForms)},
		{ApplicantForms, ensureParticipants(ApplicantForms)},
		{Transactions, ensureTransactions},
		{AuditEvents, ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
	Sparse *bool  `bson:"sparse,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(p *bool) bool { return p != nil && *p }

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes and recreates ones whose key
// pattern matches but whose name or options differ.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		var name string
		var unique, sparse bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = boolOf(m.Options.Unique)
			sparse = boolOf(m.Options.Sparse)
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if boolOf(ex.Unique) == unique && boolOf(ex.Sparse) == sparse && (name == "" || ex.Name == name) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			continue
		}
		zap.L().Info("index created",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(Users), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_role_fullnameci_id"),
		},
		// OTP cleanup scans expired codes.
		{
			Keys:    bson.D{{Key: "otp.expires_at", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_otp_expires"),
		},
	})
}

func ensureCompanies(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(Companies), []mongo.IndexModel{
		// Per-user lists sorted by name.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_companies_user_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_companies_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "form_id", Value: 1}},
			Options: options.Index().SetName("idx_companies_form"),
		},
		{
			Keys:    bson.D{{Key: "expiration_time", Value: 1}, {Key: "is_submitted", Value: 1}},
			Options: options.Index().SetName("idx_companies_expiration_submitted"),
		},
	})
}

func ensureCompanyForms(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(CompanyForms), []mongo.IndexModel{
		// One company per tax id. Sparse so forms without tax info can coexist.
		{
			Keys: bson.D{
				{Key: "tax_info.tax_id_type", Value: 1},
				{Key: "tax_info.tax_id_number", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_company_forms_tax_id"),
		},
	})
}

func ensureParticipants(coll string) func(context.Context, *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		return ensureIndexSet(ctx, db.Collection(coll), participantIndexes(coll))
	}
}

func participantIndexes(coll string) []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}},
			Options: options.Index().SetName("idx_" + coll + "_company"),
		},
		{
			Keys:    bson.D{{Key: "fincen_id.fincen_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_" + coll + "_fincen_id"),
		},
		{
			Keys: bson.D{
				{Key: "identification_details.doc_type", Value: 1},
				{Key: "identification_details.doc_number", Value: 1},
			},
			Options: options.Index().SetSparse(true).SetName("idx_" + coll + "_document"),
		},
	}
}

func ensureTransactions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(Transactions), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_intent_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_transactions_intent"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_transactions_user_created"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(AuditEvents), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_company_ts"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_ts"),
		},
	})
}
