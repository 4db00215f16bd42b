package filing_test

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/boirhub/internal/app/features/filing"
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/app/system/fincen"
	"github.com/dalemusser/boirhub/internal/app/system/metrics"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/boirhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeFinCEN struct {
	mu       sync.Mutex
	status   string
	xmlCalls int
	lastXML  []byte
	fail     error
}

func (f *fakeFinCEN) RequestProcessID(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	return "pid-1", nil
}

func (f *fakeFinCEN) UploadAttachment(_ context.Context, _ string, _ int, _, _ string, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (f *fakeFinCEN) UploadXML(_ context.Context, pid, _ string, xml []byte) (*fincen.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xmlCalls++
	f.lastXML = xml
	return &fincen.Status{ProcessID: pid, SubmissionStatus: "submission_initiated"}, nil
}

func (f *fakeFinCEN) Status(_ context.Context, pid string) (*fincen.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fincen.Status{ProcessID: pid, SubmissionStatus: f.status}, nil
}

func (f *fakeFinCEN) set(status string) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

type env struct {
	router   http.Handler
	fixtures *testutil.Fixtures
	metrics  *metrics.Metrics
}

func newEnv(t *testing.T, api filing.FinCEN) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	m := metrics.New()
	h := filing.NewHandler(fixtures.Service(), api, fixtures.Blobs(), m, nil, zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/companies/{id}/filing", filing.Routes(h, sm))
	return &env{router: r, fixtures: fixtures, metrics: m}
}

func (e *env) do(method, target string, user testutil.TestUser) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(method, target, nil, user))
	return rec
}

// paidCompany creates a submitted company and marks it paid.
func (e *env) paidCompany(t *testing.T, ctx context.Context, owner models.User) *models.Company {
	t.Helper()
	c := e.fixtures.CreateSubmittedCompany(ctx, owner, "123456789")
	c, err := e.fixtures.Service().AttachTransaction(ctx, testutil.ActorFor(owner), c.ID, primitive.NewObjectID(), true)
	if err != nil {
		t.Fatalf("AttachTransaction failed: %v", err)
	}
	return c
}

func TestFiling_Lifecycle(t *testing.T) {
	api := &fakeFinCEN{status: "submission_processing"}
	e := newEnv(t, api)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := e.fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)
	user := testutil.UserFrom(owner)
	c := e.paidCompany(t, ctx, owner)
	path := "/companies/" + c.ID.Hex() + "/filing"

	rec := e.do("GET", path, user)
	rec.AssertStatus(t, http.StatusNotFound)

	rec = e.do("POST", path, user)
	rec.AssertStatus(t, http.StatusAccepted)
	rec.AssertContains(t, `"processId":"pid-1"`)
	if api.xmlCalls != 1 {
		t.Fatalf("expected one XML upload, got %d", api.xmlCalls)
	}
	if len(api.lastXML) == 0 {
		t.Fatal("expected XML document to be uploaded")
	}

	got, err := e.fixtures.Service().GetCompany(ctx, testutil.ActorFor(owner), c.ID)
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if got.ProcessID != "pid-1" || got.FilingStatus != "submission_initiated" {
		t.Fatalf("unexpected filing state %q/%q", got.ProcessID, got.FilingStatus)
	}

	rec = e.do("POST", path, user)
	rec.AssertStatus(t, http.StatusConflict)

	rec = e.do("GET", path, user)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "submission_processing")
	got, _ = e.fixtures.Service().GetCompany(ctx, testutil.ActorFor(owner), c.ID)
	if got.FilingStatus != "submission_processing" {
		t.Errorf("FilingStatus = %q, want submission_processing", got.FilingStatus)
	}

	// A rejected filing can be sent again.
	api.set(fincen.StatusRejected)
	rec = e.do("GET", path, user)
	rec.AssertStatus(t, http.StatusOK)
	rec = e.do("POST", path, user)
	rec.AssertStatus(t, http.StatusAccepted)
	if api.xmlCalls != 2 {
		t.Errorf("expected a second XML upload, got %d", api.xmlCalls)
	}

	if n := promtest.ToFloat64(e.metrics.FilingCalls.WithLabelValues("upload", "ok")); n != 2 {
		t.Errorf("upload ok count = %v, want 2", n)
	}
}

func TestFiling_RequiresPaidSubmittedOwned(t *testing.T) {
	api := &fakeFinCEN{}
	e := newEnv(t, api)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := e.fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)
	stranger := e.fixtures.CreateUser(ctx, "Sam Poe", "sam@example.com", models.RoleUser)

	draft := e.fixtures.CreateCompany(ctx, owner, "Draft LLC")
	rec := e.do("POST", "/companies/"+draft.ID.Hex()+"/filing", testutil.UserFrom(owner))
	rec.AssertStatus(t, http.StatusConflict)

	unpaid := e.fixtures.CreateSubmittedCompany(ctx, owner, "987654321")
	rec = e.do("POST", "/companies/"+unpaid.ID.Hex()+"/filing", testutil.UserFrom(owner))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "paid")

	rec = e.do("POST", "/companies/"+unpaid.ID.Hex()+"/filing", testutil.UserFrom(stranger))
	rec.AssertStatus(t, http.StatusForbidden)

	if api.xmlCalls != 0 {
		t.Errorf("expected no uploads, got %d", api.xmlCalls)
	}
}

func TestFiling_APIErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not configured", fincen.ErrNotConfigured, http.StatusServiceUnavailable},
		{"api error", &fincen.APIError{Op: "processId", Status: 500, Body: "down"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, &fakeFinCEN{fail: tt.err})
			ctx, cancel := testutil.TestContext()
			defer cancel()
			owner := e.fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)
			c := e.paidCompany(t, ctx, owner)

			rec := e.do("POST", "/companies/"+c.ID.Hex()+"/filing", testutil.UserFrom(owner))
			rec.AssertStatus(t, tt.want)

			if n := promtest.ToFloat64(e.metrics.FilingCalls.WithLabelValues("process_id", "error")); n != 1 {
				t.Errorf("process_id error count = %v, want 1", n)
			}
		})
	}
}
