package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	formstore "github.com/dalemusser/boirhub/internal/app/store/companyforms"
	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/completeness"
	"github.com/dalemusser/boirhub/internal/app/system/csvimport"
	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/app/system/normalize"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Row outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeChanged  = "changed"
	OutcomeRejected = "rejected"
)

// RowResult is what happened to one CSV row. Err is set when the row failed
// for a reason other than its data (a store error, for example).
type RowResult struct {
	Line          int      `json:"line"`
	Outcome       string   `json:"outcome"`
	CompanyID     string   `json:"company_id,omitempty"`
	CompanyName   string   `json:"company_name,omitempty"`
	Errors        []string `json:"errors,omitempty"`
	Reasons       []string `json:"reasons,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Err           error    `json:"-"`
}

// ImportReport aggregates row results in row order.
type ImportReport struct {
	Created        int         `json:"created"`
	Changed        int         `json:"changed"`
	Rejected       int         `json:"rejected"`
	Errors         []string    `json:"errors"`
	Reasons        []string    `json:"reasons"`
	MissingFields  []string    `json:"missingFields"`
	ResultMessages []string    `json:"resultMessages"`
	Rows           []RowResult `json:"rows"`
}

// ImportRows reconciles rows with stored companies. Rows run concurrently
// and independently: a failed row never affects another, and the report is
// always returned.
func (s *Service) ImportRows(ctx context.Context, actor Actor, rows []csvimport.Row) ImportReport {
	results := make([]RowResult, len(rows))

	g := new(errgroup.Group)
	g.SetLimit(s.importLimit)
	for i := range rows {
		g.Go(func() error {
			results[i] = s.importRow(ctx, actor, rows[i])
			return nil
		})
	}
	_ = g.Wait()

	rep := ImportReport{
		Errors:         []string{},
		Reasons:        []string{},
		MissingFields:  []string{},
		ResultMessages: []string{},
		Rows:           results,
	}
	for _, r := range results {
		s.metrics.ImportRow(r.Outcome)
		prefix := fmt.Sprintf("Row %d: ", r.Line)
		for _, e := range r.Errors {
			rep.Errors = append(rep.Errors, prefix+e)
		}
		for _, reason := range r.Reasons {
			rep.Reasons = append(rep.Reasons, prefix+reason)
		}
		if len(r.MissingFields) > 0 {
			rep.MissingFields = append(rep.MissingFields, prefix+strings.Join(r.MissingFields, ", "))
		}

		switch r.Outcome {
		case OutcomeCreated:
			rep.Created++
			rep.ResultMessages = append(rep.ResultMessages, prefix+"created company "+r.CompanyName)
		case OutcomeChanged:
			rep.Changed++
			rep.ResultMessages = append(rep.ResultMessages, prefix+"updated company "+r.CompanyName)
		default:
			rep.Rejected++
			msg := prefix + "rejected"
			if r.Err != nil {
				msg += ": " + r.Err.Error()
			}
			rep.ResultMessages = append(rep.ResultMessages, msg)
		}
	}

	s.log.Info("csv import finished",
		zap.String("actor", actor.UserID.Hex()),
		zap.Int("rows", len(rows)),
		zap.Int("created", rep.Created),
		zap.Int("changed", rep.Changed),
		zap.Int("rejected", rep.Rejected))
	return rep
}

func (s *Service) importRow(ctx context.Context, actor Actor, row csvimport.Row) (out RowResult) {
	res := s.sanitizer.Sanitize(row)
	s.validate.ValidateRow(res)

	out = RowResult{Line: row.Line}
	defer func() {
		out.Errors = append(out.Errors, res.Errors...)
		out.Reasons = append(out.Reasons, res.Reasons...)
		if out.Err != nil {
			out.Outcome = OutcomeRejected
			s.log.Warn("csv row failed", zap.Int("line", row.Line), zap.Error(out.Err))
		}
	}()
	if res.CompanyDeleted {
		out.Outcome = OutcomeRejected
		return out
	}

	idType, number := res.Company.Form.TaxID()
	number = normalize.Identifier(number)

	form, err := s.forms.FindByTaxID(ctx, idType, number)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		err = s.createFromRow(ctx, actor, res, &out)
		if !errors.Is(err, formstore.ErrDuplicateTaxID) {
			break
		}
		// Another row created the company first.
		form, err = s.forms.FindByTaxID(ctx, idType, number)
		if err == nil {
			err = s.mergeFromRow(ctx, actor, res, form, &out)
		}
	case err == nil:
		err = s.mergeFromRow(ctx, actor, res, form, &out)
	}
	if err != nil {
		out.Err = err
	}
	return out
}

// createFromRow creates the company, its form and participants from a row.
func (s *Service) createFromRow(ctx context.Context, actor Actor, res *csvimport.Result, out *RowResult) error {
	header := func(path string) string { return csvimport.HeaderFor(csvimport.SectionCompany, path) }
	if res.Company.ExpirationTime == nil {
		res.Reject(header(csvimport.PathExpiration) + ": required for a new company")
	}
	legal := res.Company.Form.LegalName()
	if legal == "" {
		res.Reject(header("names.legal_name") + ": required for a new company")
	}
	if res.CompanyDeleted {
		out.Outcome = OutcomeRejected
		return nil
	}

	userID, err := s.rowUser(ctx, actor, res)
	if err != nil {
		return err
	}

	form := formmerge.NewCompanyForm(res.Company.Form)
	s.countForm(&form)
	created, err := s.forms.Create(ctx, form)
	if err != nil {
		return err
	}

	c, err := s.companies.Create(ctx, models.Company{
		Name:              legal,
		ExpirationTime:    res.Company.ExpirationTime,
		IsExistingCompany: res.Company.ExistingCompany(),
		IsForeignPooled:   res.Company.ForeignPooled(),
		FormID:            created.ID,
		UserID:            userID,
	})
	if err != nil {
		if derr := s.forms.Delete(ctx, created.ID); derr != nil {
			s.log.Warn("orphaned company form", zap.String("form_id", created.ID.Hex()), zap.Error(derr))
		}
		return err
	}

	for _, kind := range []models.ParticipantKind{models.KindOwner, models.KindApplicant} {
		sec := sectionOf(kind)
		var ids []primitive.ObjectID
		for i, patch := range res.Participants(sec) {
			p, err := formmerge.NewParticipant(kind, patch)
			if err != nil {
				res.Reasonf("%s %d skipped: %v", sec, i+1, err)
				continue
			}
			p.CompanyID = c.ID
			s.countParticipant(kind, &p)
			saved, err := s.participants(kind).Create(ctx, p)
			if err != nil {
				return err
			}
			ids = append(ids, saved.ID)
		}
		c.SetParticipantIDs(kind, append(c.ParticipantIDs(kind), ids...))
	}

	if err := s.users.AttachCompany(ctx, userID, c.ID); err != nil {
		return err
	}
	if err := s.recount(ctx, &c); err != nil {
		return err
	}

	out.Outcome = OutcomeCreated
	out.CompanyID = c.ID.Hex()
	out.CompanyName = c.Name
	out.MissingFields = s.missingFields(ctx, &c)
	s.record(ctx, s.event(actor, &c, audit.EventCompanyImported, map[string]string{"outcome": OutcomeCreated}))
	return nil
}

// rowUser resolves the account a new company belongs to. Admins may import
// for any email, creating the user when needed; everyone else imports for
// themselves.
func (s *Service) rowUser(ctx context.Context, actor Actor, res *csvimport.Result) (primitive.ObjectID, error) {
	email := res.User.Email
	if email == "" {
		return actor.UserID, nil
	}
	if !actor.IsAdmin() {
		if u, err := s.users.GetByID(ctx, actor.UserID); err == nil && u.Email != email {
			res.Reasonf("%s ignored: companies are imported into your own account",
				csvimport.HeaderFor(csvimport.SectionUser, "email"))
		}
		return actor.UserID, nil
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, err
	}
	created, err := s.users.Create(ctx, models.User{
		Email:     email,
		FirstName: res.User.FirstName,
		LastName:  res.User.LastName,
		Role:      models.RoleUser,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Created concurrently by another row.
		u, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return u.ID, nil
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	s.record(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUserCreated,
		ActorID:   &actor.UserID,
		UserID:    &created.ID,
		Success:   true,
		Details:   map[string]string{"source": "csv"},
	})
	return created.ID, nil
}

// mergeFromRow merges a row into an existing company.
func (s *Service) mergeFromRow(ctx context.Context, actor Actor, res *csvimport.Result, form *models.CompanyForm, out *RowResult) error {
	taxHeader := csvimport.HeaderFor(csvimport.SectionCompany, "tax_info.tax_id_number")

	c, err := s.companies.GetByFormID(ctx, form.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		res.Reject(taxHeader + ": the company for this tax id no longer exists")
		out.Outcome = OutcomeRejected
		return nil
	}
	if err != nil {
		return err
	}
	if !actor.owns(c) {
		res.Reject(taxHeader + ": this tax id belongs to a company in another account")
		out.Outcome = OutcomeRejected
		return nil
	}
	if c.IsSubmitted {
		res.Reject(fmt.Sprintf("company %q has already been submitted", c.Name))
		out.Outcome = OutcomeRejected
		return nil
	}

	next := *form
	formmerge.ApplyCompanyForm(&next, res.Company.Form)
	if vs := s.validate.CompanyForm(&next); len(vs) > 0 {
		for _, v := range vs {
			res.Reject(csvimport.HeaderFor(csvimport.SectionCompany, v.Path) + ": " + v.Message() + " (with stored data)")
		}
		out.Outcome = OutcomeRejected
		return nil
	}

	d := res.Company
	if d.ExpirationTime != nil {
		c.ExpirationTime = d.ExpirationTime
	}
	if d.IsExistingCompany != nil {
		c.IsExistingCompany = *d.IsExistingCompany
	}
	if d.IsForeignPooled != nil {
		c.IsForeignPooled = *d.IsForeignPooled
	}
	if c.IsExistingCompany && c.IsForeignPooled {
		res.Reject("a company cannot be both existing and a foreign pooled investment vehicle")
		out.Outcome = OutcomeRejected
		return nil
	}

	s.countForm(&next)
	if err := s.forms.Save(ctx, &next); err != nil {
		return err
	}
	// The company is saved by the recount below.
	if name := next.LegalName(); name != "" {
		c.Name = name
	}

	ownerIDs, err := s.reconcileParticipants(ctx, c, models.KindOwner, res)
	if err != nil {
		return err
	}
	if c.IsForeignPooled {
		s.collapseOwners(ctx, c, ownerIDs, res)
	}
	if c.ApplicantsRequired() {
		if _, err := s.reconcileParticipants(ctx, c, models.KindApplicant, res); err != nil {
			return err
		}
	} else if len(res.Participants(csvimport.SectionApplicant)) > 0 {
		res.Reasonf("Applicant columns ignored: applicants are not reported for existing or foreign pooled companies")
	}

	if err := s.recount(ctx, c); err != nil {
		return err
	}

	out.Outcome = OutcomeChanged
	out.CompanyID = c.ID.Hex()
	out.CompanyName = c.Name
	out.MissingFields = s.missingFields(ctx, c)
	s.record(ctx, s.event(actor, c, audit.EventCompanyImported, map[string]string{"outcome": OutcomeChanged}))
	return nil
}

// reconcileParticipants merges each incoming participant into the stored
// participant with the same identity, or creates it. It returns the ids the
// row touched, in row order.
func (s *Service) reconcileParticipants(ctx context.Context, c *models.Company, kind models.ParticipantKind, res *csvimport.Result) ([]primitive.ObjectID, error) {
	sec := sectionOf(kind)
	patches := res.Participants(sec)
	if len(patches) == 0 {
		return nil, nil
	}

	store := s.participants(kind)
	existing, err := store.GetMany(ctx, c.ParticipantIDs(kind))
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]int, len(existing))
	for i := range existing {
		if key := identityKey(kind, &existing[i]); key != "" {
			byKey[key] = i
		}
	}

	var touched []primitive.ObjectID
	for i, patch := range patches {
		incoming, err := formmerge.NewParticipant(kind, patch)
		if err != nil {
			res.Reasonf("%s %d skipped: %v", sec, i+1, err)
			continue
		}

		key := identityKey(kind, &incoming)
		idx, found := byKey[key]
		if !found {
			incoming.CompanyID = c.ID
			s.countParticipant(kind, &incoming)
			saved, err := store.Create(ctx, incoming)
			if err != nil {
				return nil, err
			}
			c.SetParticipantIDs(kind, append(c.ParticipantIDs(kind), saved.ID))
			touched = append(touched, saved.ID)
			if key != "" {
				existing = append(existing, saved)
				byKey[key] = len(existing) - 1
			}
			continue
		}

		next := existing[idx]
		if err := formmerge.ApplyParticipant(&next, kind, patch); err != nil {
			res.Reasonf("%s %d skipped: %v", sec, i+1, err)
			continue
		}
		if vs := s.validate.Participant(&next); len(vs) > 0 {
			res.Reasonf("%s %d not updated: %s", sec, i+1, vs.Error())
			touched = append(touched, next.ID)
			continue
		}
		s.countParticipant(kind, &next)
		if err := store.Save(ctx, &next); err != nil {
			return nil, err
		}
		existing[idx] = next
		touched = append(touched, next.ID)
	}
	return touched, nil
}

// collapseOwners keeps a single owner on a foreign pooled company: the one
// the row named, or the first stored owner when the row named none. The
// detached owners are deleted.
func (s *Service) collapseOwners(ctx context.Context, c *models.Company, touched []primitive.ObjectID, res *csvimport.Result) {
	if len(c.OwnerIDs) <= 1 {
		return
	}
	keep := c.OwnerIDs[0]
	if len(touched) > 0 {
		keep = touched[0]
	}
	var dropped int
	for _, id := range c.OwnerIDs {
		if id == keep {
			continue
		}
		if p, err := s.owners.GetByID(ctx, id); err == nil {
			s.deleteBlob(ctx, p.DocImage())
		}
		if err := s.owners.Delete(ctx, id); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			s.log.Warn("failed to delete detached owner", zap.String("owner_id", id.Hex()), zap.Error(err))
		}
		dropped++
	}
	c.OwnerIDs = []primitive.ObjectID{keep}
	res.Reasonf("Foreign pooled investment vehicle reports a single owner; %d stored owner(s) removed", dropped)
}

// missingFields lists unanswered required fields by CSV header.
func (s *Service) missingFields(ctx context.Context, c *models.Company) []string {
	form, owners, applicants, err := s.children(ctx, c)
	if err != nil {
		s.log.Warn("missing fields not computed", zap.String("company_id", c.ID.Hex()), zap.Error(err))
		return nil
	}

	var out []string
	if form != nil {
		missing, _ := completeness.MissingEntity(form, s.req.Company)
		for _, p := range missing {
			out = append(out, csvimport.HeaderFor(csvimport.SectionCompany, p))
		}
	}
	add := func(kind models.ParticipantKind, list []models.Participant) {
		sec := sectionOf(kind)
		for i := range list {
			if list[i].InFinCENMode() {
				continue
			}
			missing, _ := completeness.MissingEntity(&list[i], s.req.For(kind, list[i].IsExempt()))
			for _, p := range missing {
				out = append(out, csvimport.Label(csvimport.HeaderFor(sec, p), sec, i))
			}
		}
	}
	add(models.KindOwner, owners)
	if c.ApplicantsRequired() {
		add(models.KindApplicant, applicants)
	}
	return out
}

func sectionOf(kind models.ParticipantKind) csvimport.Section {
	if kind == models.KindApplicant {
		return csvimport.SectionApplicant
	}
	return csvimport.SectionOwner
}
