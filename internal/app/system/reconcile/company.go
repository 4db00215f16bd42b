package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	companystore "github.com/dalemusser/boirhub/internal/app/store/companies"
	formstore "github.com/dalemusser/boirhub/internal/app/store/companyforms"
	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CompanyInput creates a company. UserID lets an admin create a company on
// behalf of another user; it is ignored for everyone else.
type CompanyInput struct {
	Name              string                     `json:"name"`
	ExpirationTime    *time.Time                 `json:"expiration_time"`
	IsExistingCompany bool                       `json:"is_existing_company"`
	IsForeignPooled   bool                       `json:"is_foreign_pooled"`
	Form              formmerge.CompanyFormPatch `json:"form"`
	UserID            *primitive.ObjectID        `json:"user_id,omitempty"`
}

// CompanyUpdate changes company flags. Nil fields are left alone.
type CompanyUpdate struct {
	ExpirationTime    *time.Time `json:"expiration_time"`
	IsExistingCompany *bool      `json:"is_existing_company"`
	IsForeignPooled   *bool      `json:"is_foreign_pooled"`
}

// Detail is a company together with its form and participants.
type Detail struct {
	Company    models.Company       `json:"company"`
	Form       *models.CompanyForm  `json:"form"`
	Owners     []models.Participant `json:"owners"`
	Applicants []models.Participant `json:"applicants"`
}

// CreateCompany creates a company, its form and the owning user link.
func (s *Service) CreateCompany(ctx context.Context, actor Actor, in CompanyInput) (*models.Company, error) {
	owner := actor.UserID
	if actor.IsAdmin() && in.UserID != nil && !in.UserID.IsZero() {
		if _, err := s.users.GetByID(ctx, *in.UserID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, notFound("user")
			}
			return nil, err
		}
		owner = *in.UserID
	}

	form := formmerge.NewCompanyForm(in.Form)
	if vs := s.validate.CompanyForm(&form); len(vs) > 0 {
		return nil, badRequest(vs, "invalid company form: %s", vs.Error())
	}
	name := form.LegalName()
	if name == "" {
		name = strings.TrimSpace(in.Name)
	}
	if name == "" {
		return nil, badRequest(nil, "company name is required")
	}
	if in.IsForeignPooled && in.IsExistingCompany {
		return nil, badRequest(nil, "a company cannot be both existing and a foreign pooled investment vehicle")
	}

	s.countForm(&form)
	created, err := s.forms.Create(ctx, form)
	if errors.Is(err, formstore.ErrDuplicateTaxID) {
		return nil, conflict(err, "a company with this tax id already exists")
	}
	if err != nil {
		return nil, err
	}

	c, err := s.companies.Create(ctx, models.Company{
		Name:              name,
		ExpirationTime:    in.ExpirationTime,
		IsExistingCompany: in.IsExistingCompany,
		IsForeignPooled:   in.IsForeignPooled,
		FormID:            created.ID,
		UserID:            owner,
	})
	if err != nil {
		if derr := s.forms.Delete(ctx, created.ID); derr != nil {
			s.log.Warn("orphaned company form", zap.String("form_id", created.ID.Hex()), zap.Error(derr))
		}
		return nil, err
	}
	if err := s.users.AttachCompany(ctx, owner, c.ID); err != nil {
		return nil, err
	}
	if err := s.recount(ctx, &c); err != nil {
		return nil, err
	}

	s.record(ctx, s.event(actor, &c, audit.EventCompanyCreated, map[string]string{"name": c.Name}))
	return &c, nil
}

// GetCompany returns a company the actor may see.
func (s *Service) GetCompany(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Company, error) {
	return s.loadCompany(ctx, actor, id)
}

// GetDetail returns a company with its form and participants.
func (s *Service) GetDetail(ctx context.Context, actor Actor, id primitive.ObjectID) (*Detail, error) {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	form, owners, applicants, err := s.children(ctx, c)
	if err != nil {
		return nil, err
	}
	return &Detail{Company: *c, Form: form, Owners: owners, Applicants: applicants}, nil
}

// ListCompanies lists every company for an admin and the actor's own
// companies for anyone else.
func (s *Service) ListCompanies(ctx context.Context, actor Actor, search string, limit, offset int64) ([]models.Company, error) {
	f := companystore.ListFilter{Search: search, Limit: limit, Offset: offset}
	if !actor.IsAdmin() {
		uid := actor.UserID
		f.UserID = &uid
	}
	return s.companies.List(ctx, f)
}

// UpdateCompany applies flag and deadline changes and recounts.
func (s *Service) UpdateCompany(ctx context.Context, actor Actor, id primitive.ObjectID, upd CompanyUpdate) (*models.Company, error) {
	c, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if upd.ExpirationTime != nil {
		t := upd.ExpirationTime.UTC()
		c.ExpirationTime = &t
	}
	if upd.IsExistingCompany != nil {
		c.IsExistingCompany = *upd.IsExistingCompany
	}
	if upd.IsForeignPooled != nil {
		c.IsForeignPooled = *upd.IsForeignPooled
	}
	if c.IsExistingCompany && c.IsForeignPooled {
		return nil, badRequest(nil, "a company cannot be both existing and a foreign pooled investment vehicle")
	}
	if c.IsForeignPooled && len(c.OwnerIDs) > 1 {
		return nil, badRequest(nil, "a foreign pooled investment vehicle reports one owner; remove the others first")
	}
	if err := s.recount(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, s.event(actor, c, audit.EventCompanyUpdated, nil))
	return c, nil
}

// PatchCompanyForm merges p into the company's form. A changed legal name
// is copied to the company.
func (s *Service) PatchCompanyForm(ctx context.Context, actor Actor, id primitive.ObjectID, p formmerge.CompanyFormPatch) (*models.CompanyForm, error) {
	c, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	form, err := s.forms.GetByID(ctx, c.FormID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("company form")
	}
	if err != nil {
		return nil, err
	}

	next := *form
	formmerge.ApplyCompanyForm(&next, p)
	if vs := s.validate.CompanyForm(&next); len(vs) > 0 {
		return nil, badRequest(vs, "invalid company form: %s", vs.Error())
	}
	s.countForm(&next)
	if err := s.forms.Save(ctx, &next); err != nil {
		if errors.Is(err, formstore.ErrDuplicateTaxID) {
			return nil, conflict(err, "a company with this tax id already exists")
		}
		return nil, err
	}

	if name := next.LegalName(); name != "" && name != c.Name {
		c.Name = name
	}
	if err := s.recount(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, s.event(actor, c, audit.EventCompanyUpdated, map[string]string{"part": "form"}))
	return &next, nil
}

// DeleteCompany removes a company and everything it owns: participant forms
// (and their images), the company form, and the user link. A user left with
// no companies is deleted unless they are an admin.
func (s *Service) DeleteCompany(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return err
	}

	for _, kind := range []models.ParticipantKind{models.KindOwner, models.KindApplicant} {
		store := s.participants(kind)
		for _, pid := range c.ParticipantIDs(kind) {
			if p, err := store.GetByID(ctx, pid); err == nil {
				s.deleteBlob(ctx, p.DocImage())
			}
			if err := store.Delete(ctx, pid); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
		}
	}
	if !c.FormID.IsZero() {
		if err := s.forms.Delete(ctx, c.FormID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
	}

	if err := s.detachUser(ctx, c); err != nil {
		return err
	}
	if err := s.companies.Delete(ctx, c.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	s.record(ctx, s.event(actor, c, audit.EventCompanyDeleted, map[string]string{"name": c.Name}))
	return nil
}

func (s *Service) detachUser(ctx context.Context, c *models.Company) error {
	if c.UserID.IsZero() {
		return nil
	}
	remaining, err := s.users.DetachCompany(ctx, c.UserID, c.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	u, err := s.users.GetByID(ctx, c.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}
	if u.IsAdmin() {
		return nil
	}
	if err := s.users.Delete(ctx, u.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	return nil
}

// deleteBlob removes a stored image. Failures are logged.
func (s *Service) deleteBlob(ctx context.Context, key string) {
	if key == "" || s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete document image", zap.String("key", key), zap.Error(err))
	}
}
