package companystore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("companies")}
}

// Create inserts a new company. Counters start at zero and are filled in by
// the first recount.
func (s *Store) Create(ctx context.Context, c models.Company) (models.Company, error) {
	c.ID = primitive.NewObjectID()
	c.Name = strings.TrimSpace(c.Name)
	c.NameCI = text.Fold(c.Name)
	if c.OwnerIDs == nil {
		c.OwnerIDs = []primitive.ObjectID{}
	}
	if c.ApplicantIDs == nil {
		c.ApplicantIDs = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Company{}, err
	}
	return c, nil
}

// GetByID loads a company. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Company, error) {
	var c models.Company
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByFormID loads the company that owns a company form.
func (s *Store) GetByFormID(ctx context.Context, formID primitive.ObjectID) (*models.Company, error) {
	var c models.Company
	if err := s.c.FindOne(ctx, bson.M{"form_id": formID}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListFilter narrows List. A nil UserID lists every company.
type ListFilter struct {
	UserID *primitive.ObjectID
	Search string // case-insensitive name prefix
	Limit  int64
	Offset int64
}

// List returns companies sorted by folded name.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Company, error) {
	filter := bson.M{}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	if q := text.Fold(f.Search); q != "" {
		filter["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(q)}
	}

	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Company{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Save replaces the stored company with c. Returns mongo.ErrNoDocuments if
// the company no longer exists.
func (s *Store) Save(ctx context.Context, c *models.Company) error {
	c.Name = strings.TrimSpace(c.Name)
	c.NameCI = text.Fold(c.Name)
	c.UpdatedAt = time.Now().UTC()

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a company document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkPaid sets is_paid and records the transaction on every listed company.
func (s *Store) MarkPaid(ctx context.Context, ids []primitive.ObjectID, txID primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{
			"$set":      bson.M{"is_paid": true, "updated_at": time.Now().UTC()},
			"$addToSet": bson.M{"transaction_ids": txID},
		})
	return err
}
