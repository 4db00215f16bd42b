// Package reconcile owns every write to companies, company forms and
// participant forms. It keeps the derived counters consistent, enforces
// ownership, and reconciles bulk CSV rows with stored data.
package reconcile

import (
	"context"
	"errors"
	"io"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	companystore "github.com/dalemusser/boirhub/internal/app/store/companies"
	"github.com/dalemusser/boirhub/internal/app/system/completeness"
	"github.com/dalemusser/boirhub/internal/app/system/csvimport"
	"github.com/dalemusser/boirhub/internal/app/system/fieldval"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CompanyStore persists companies. Lookups return mongo.ErrNoDocuments when
// nothing matches.
type CompanyStore interface {
	Create(ctx context.Context, c models.Company) (models.Company, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Company, error)
	GetByFormID(ctx context.Context, formID primitive.ObjectID) (*models.Company, error)
	List(ctx context.Context, f companystore.ListFilter) ([]models.Company, error)
	Save(ctx context.Context, c *models.Company) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// FormStore persists company forms.
type FormStore interface {
	Create(ctx context.Context, f models.CompanyForm) (models.CompanyForm, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.CompanyForm, error)
	FindByTaxID(ctx context.Context, idType, number string) (*models.CompanyForm, error)
	Save(ctx context.Context, f *models.CompanyForm) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ParticipantStore persists one kind of participant form.
type ParticipantStore interface {
	Create(ctx context.Context, p models.Participant) (models.Participant, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Participant, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Participant, error)
	Save(ctx context.Context, p *models.Participant) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserStore persists the accounts that own companies.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	AttachCompany(ctx context.Context, userID, companyID primitive.ObjectID) error
	// DetachCompany returns the number of companies the user still owns.
	DetachCompany(ctx context.Context, userID, companyID primitive.ObjectID) (int, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// BlobStore holds uploaded document images.
type BlobStore interface {
	Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Mailer sends templated mail.
type Mailer interface {
	Send(ctx context.Context, template, to string, data map[string]string) error
}

// AuditLogger records audit events. Implementations never fail the caller.
type AuditLogger interface {
	Log(ctx context.Context, event audit.Event)
}

// Recorder receives counters for metrics.
type Recorder interface {
	ImportRow(outcome string)
	Submitted()
}

// Actor is the signed-in user performing an operation.
type Actor struct {
	UserID primitive.ObjectID
	Role   string
}

// IsAdmin reports whether the actor may act on any company.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

func (a Actor) owns(c *models.Company) bool {
	return a.IsAdmin() || c.UserID == a.UserID
}

// DefaultImportLimit bounds how many CSV rows are reconciled at once.
const DefaultImportLimit = 8

// Deps wires a Service. Blobs, Mail, Audit, Metrics and Log are optional.
type Deps struct {
	Companies  CompanyStore
	Forms      FormStore
	Owners     ParticipantStore
	Applicants ParticipantStore
	Users      UserStore

	Blobs   BlobStore
	Mail    Mailer
	Audit   AuditLogger
	Metrics Recorder
	Log     *zap.Logger

	Requirements completeness.Requirements
	ImportLimit  int
}

// Service implements company, form and participant operations.
type Service struct {
	companies  CompanyStore
	forms      FormStore
	owners     ParticipantStore
	applicants ParticipantStore
	users      UserStore

	blobs   BlobStore
	mail    Mailer
	audit   AuditLogger
	metrics Recorder
	log     *zap.Logger

	req         completeness.Requirements
	validate    *fieldval.Validator
	sanitizer   *csvimport.Sanitizer
	importLimit int
}

// New builds a Service. A zero Requirements uses completeness.DefaultRequirements.
func New(d Deps) *Service {
	s := &Service{
		companies:   d.Companies,
		forms:       d.Forms,
		owners:      d.Owners,
		applicants:  d.Applicants,
		users:       d.Users,
		blobs:       d.Blobs,
		mail:        d.Mail,
		audit:       d.Audit,
		metrics:     d.Metrics,
		log:         d.Log,
		req:         d.Requirements,
		importLimit: d.ImportLimit,
	}
	if len(s.req.Company) == 0 {
		s.req = completeness.DefaultRequirements()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.importLimit <= 0 {
		s.importLimit = DefaultImportLimit
	}
	s.validate = fieldval.New(s.req)
	s.sanitizer = csvimport.NewSanitizer()
	return s
}

// Requirements returns the required path lists the service counts against.
func (s *Service) Requirements() completeness.Requirements { return s.req }

type nopRecorder struct{}

func (nopRecorder) ImportRow(string) {}
func (nopRecorder) Submitted()       {}

func (s *Service) participants(kind models.ParticipantKind) ParticipantStore {
	if kind == models.KindApplicant {
		return s.applicants
	}
	return s.owners
}

// loadCompany fetches a company and checks that actor may use it.
func (s *Service) loadCompany(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Company, error) {
	c, err := s.companies.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("company")
	}
	if err != nil {
		return nil, err
	}
	if !actor.owns(c) {
		return nil, forbidden("company")
	}
	return c, nil
}

// loadEditable is loadCompany that also refuses submitted companies.
func (s *Service) loadEditable(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Company, error) {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.IsSubmitted {
		return nil, conflict(nil, "company %q has already been submitted", c.Name)
	}
	return c, nil
}

// loadParticipant fetches a participant and its company and checks access.
func (s *Service) loadParticipant(ctx context.Context, actor Actor, kind models.ParticipantKind, id primitive.ObjectID) (*models.Participant, *models.Company, error) {
	if !kind.Valid() {
		return nil, nil, badRequest(nil, "unknown participant kind %q", kind)
	}
	p, err := s.participants(kind).GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, notFound(string(kind))
	}
	if err != nil {
		return nil, nil, err
	}
	c, err := s.companies.GetByID(ctx, p.CompanyID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, notFound("company")
	}
	if err != nil {
		return nil, nil, err
	}
	if !actor.owns(c) {
		return nil, nil, forbidden(string(kind))
	}
	return p, c, nil
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.audit != nil {
		s.audit.Log(ctx, e)
	}
}

func (s *Service) event(actor Actor, c *models.Company, eventType string, details map[string]string) audit.Event {
	e := audit.Event{
		Category:  audit.CategoryCompany,
		EventType: eventType,
		ActorID:   &actor.UserID,
		Success:   true,
		Details:   details,
	}
	if c != nil {
		id := c.ID
		e.CompanyID = &id
		uid := c.UserID
		e.UserID = &uid
	}
	return e
}
