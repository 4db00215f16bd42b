package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	companystore "github.com/dalemusser/boirhub/internal/app/store/companies"
	formstore "github.com/dalemusser/boirhub/internal/app/store/companyforms"
	participantstore "github.com/dalemusser/boirhub/internal/app/store/participants"
	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/blobstore"
	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/app/system/indexes"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/domain/codes"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// WithChiURLParams adds chi URL parameters, given as key/value pairs, to the
// request context. Use this in handler tests that read chi.URLParam.
func WithChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db    *mongo.Database
	t     *testing.T
	blobs *blobstore.Blobs
	svc   *reconcile.Service
}

// NewFixtures creates a new Fixtures instance for the given test database.
// Indexes are created so duplicate detection behaves as in production.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	blobs := blobstore.Wrap(storage.NewMemory(storage.MemoryConfig{}))
	return &Fixtures{db: db, t: t, blobs: blobs}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// Blobs returns the in-memory blob store backing Service.
func (f *Fixtures) Blobs() *blobstore.Blobs {
	return f.blobs
}

// Service returns a reconcile.Service over the test database. Mail, audit
// and metrics are left unset.
func (f *Fixtures) Service() *reconcile.Service {
	if f.svc == nil {
		f.svc = reconcile.New(reconcile.Deps{
			Companies:  companystore.New(f.db),
			Forms:      formstore.New(f.db),
			Owners:     participantstore.New(f.db, models.KindOwner),
			Applicants: participantstore.New(f.db, models.KindApplicant),
			Users:      userstore.New(f.db),
			Blobs:      f.blobs,
			Log:        zap.NewNop(),
		})
	}
	return f.svc
}

// CreateUser creates a user. fullName is split at the first space.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()
	first, last, _ := strings.Cut(fullName, " ")
	u, err := userstore.New(f.db).Create(ctx, models.User{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      role,
	})
	if err != nil {
		f.t.Fatalf("CreateUser(%q) failed: %v", email, err)
	}
	return u
}

// CreateAdmin creates an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin)
}

// CreateCompany creates a company with an empty form, owned by owner.
func (f *Fixtures) CreateCompany(ctx context.Context, owner models.User, name string) *models.Company {
	f.t.Helper()
	c, err := f.Service().CreateCompany(ctx, ActorFor(owner), reconcile.CompanyInput{Name: name})
	if err != nil {
		f.t.Fatalf("CreateCompany(%q) failed: %v", name, err)
	}
	return c
}

// ActorFor returns the reconcile actor for a stored user.
func ActorFor(u models.User) reconcile.Actor {
	return reconcile.Actor{UserID: u.ID, Role: u.Role}
}

// CompleteForm returns a verified company form patch with every required
// field answered.
func CompleteForm(taxNumber string) formmerge.CompanyFormPatch {
	yes := true
	s := func(v string) *string { return &v }
	return formmerge.CompanyFormPatch{
		Names: &formmerge.NamesPatch{LegalName: s("Acme LLC"), IsVerified: &yes},
		TaxInfo: &formmerge.TaxInfoPatch{
			TaxIDType:   s(codes.TaxEIN),
			TaxIDNumber: s(taxNumber),
			IsVerified:  &yes,
		},
		FormationJurisdiction: &formmerge.FormationJurisdictionPatch{
			CountryOrJurisdiction: s(codes.UnitedStates),
			State:                 s("Delaware"),
			IsVerified:            &yes,
		},
		Address: &formmerge.CompanyAddressPatch{
			Address:         s("1 Main St"),
			City:            s("Dover"),
			UsOrUsTerritory: s(codes.UnitedStates),
			State:           s("Delaware"),
			ZipCode:         s("19901"),
			IsVerified:      &yes,
		},
	}
}

// FinCENParticipant returns a participant identified only by a verified
// FinCEN ID.
func FinCENParticipant(id string) formmerge.ParticipantPatch {
	yes := true
	return formmerge.ParticipantPatch{
		FinCENID: &formmerge.FinCENIDPatch{FinCENID: &id, IsVerified: &yes},
	}
}

// CreateSubmittedCompany creates a complete company with one owner and one
// applicant, and submits it.
func (f *Fixtures) CreateSubmittedCompany(ctx context.Context, owner models.User, taxNumber string) *models.Company {
	f.t.Helper()
	svc, actor := f.Service(), ActorFor(owner)
	exp := time.Now().UTC().AddDate(0, 1, 0)
	c, err := svc.CreateCompany(ctx, actor, reconcile.CompanyInput{ExpirationTime: &exp, Form: CompleteForm(taxNumber)})
	if err != nil {
		f.t.Fatalf("CreateCompany failed: %v", err)
	}
	if _, err := svc.AddParticipant(ctx, actor, c.ID, models.KindOwner, FinCENParticipant("111122223333")); err != nil {
		f.t.Fatalf("add owner failed: %v", err)
	}
	if _, err := svc.AddParticipant(ctx, actor, c.ID, models.KindApplicant, FinCENParticipant("444455556666")); err != nil {
		f.t.Fatalf("add applicant failed: %v", err)
	}
	c, err = svc.SubmitCompanyByID(ctx, actor, c.ID)
	if err != nil {
		f.t.Fatalf("SubmitCompanyByID failed: %v", err)
	}
	return c
}
