package companies_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/boirhub/internal/app/features/companies"
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/boirhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	h := companies.NewHandler(fixtures.Service(), zap.NewNop())
	return companies.Routes(h, sm), fixtures
}

func serve(router http.Handler, r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func TestCompanies_RequiresSignIn(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := serve(router, testutil.NewJSONRequest("GET", "/", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestCreateAndList(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)
	user := testutil.UserFrom(owner)

	for _, name := range []string{"Beta Corp", "Acme LLC", "Acme Holdings"} {
		rec := serve(router, testutil.NewAuthenticatedRequest("POST", "/", map[string]any{"name": name}, user))
		rec.AssertStatus(t, http.StatusCreated)
	}

	rec := serve(router, testutil.NewAuthenticatedRequest("GET", "/?search=acme&limit=1", nil, user))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Companies []models.Company `json:"companies"`
		Page      struct {
			HasNext bool `json:"hasNext"`
		} `json:"page"`
	}
	rec.Decode(t, &body)
	if len(body.Companies) != 1 {
		t.Fatalf("expected 1 company on the page, got %d", len(body.Companies))
	}
	if !body.Page.HasNext {
		t.Error("expected another page")
	}

	// Another user's list is empty.
	other := fixtures.CreateUser(ctx, "Sam Poe", "sam@example.com", models.RoleUser)
	rec = serve(router, testutil.NewAuthenticatedRequest("GET", "/", nil, testutil.UserFrom(other)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"companies":[]`)
}

func TestDetail_ForbiddenAndNotFound(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)
	other := fixtures.CreateUser(ctx, "Sam Poe", "sam@example.com", models.RoleUser)
	admin := fixtures.CreateAdmin(ctx, "Ada Min", "admin@example.com")
	c := fixtures.CreateCompany(ctx, owner, "Acme LLC")

	tests := []struct {
		name string
		user models.User
		path string
		want int
	}{
		{"owner", owner, "/" + c.ID.Hex(), http.StatusOK},
		{"admin", admin, "/" + c.ID.Hex(), http.StatusOK},
		{"stranger", other, "/" + c.ID.Hex(), http.StatusForbidden},
		{"bad id", owner, "/not-an-id", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, testutil.NewAuthenticatedRequest("GET", tc.path, nil, testutil.UserFrom(tc.user)))
			rec.AssertStatus(t, tc.want)
		})
	}
}

func TestPatchForm_CompletenessAndSubmit(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)
	user := testutil.UserFrom(owner)
	c := fixtures.CreateCompany(ctx, owner, "Acme LLC")
	base := "/" + c.ID.Hex()

	// Incomplete companies cannot be submitted.
	rec := serve(router, testutil.NewAuthenticatedRequest("POST", base+"/submit", nil, user))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "incomplete")

	// Drafts have no BOIR document yet.
	rec = serve(router, testutil.NewAuthenticatedRequest("GET", base+"/xml", nil, user))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "not been submitted")

	rec = serve(router, testutil.NewAuthenticatedRequest("PATCH", base+"/form", testutil.CompleteForm("123456789"), user))
	rec.AssertStatus(t, http.StatusOK)

	for kind, id := range map[string]string{"owners": "111122223333", "applicants": "444455556666"} {
		rec = serve(router, testutil.NewAuthenticatedRequest("POST", base+"/"+kind, testutil.FinCENParticipant(id), user))
		rec.AssertStatus(t, http.StatusCreated)
	}

	rec = serve(router, testutil.NewAuthenticatedRequest("GET", base+"/completeness", nil, user))
	rec.AssertStatus(t, http.StatusOK)
	var rep reconcile.Report
	rec.Decode(t, &rep)
	if !rep.Submittable {
		t.Fatalf("expected submittable report, got %+v", rep)
	}

	rec = serve(router, testutil.NewAuthenticatedRequest("POST", base+"/submit", nil, user))
	rec.AssertStatus(t, http.StatusOK)

	// Submitted companies are read-only.
	rec = serve(router, testutil.NewAuthenticatedRequest("PATCH", base, map[string]any{"is_existing_company": true}, user))
	rec.AssertStatus(t, http.StatusConflict)

	rec = serve(router, testutil.NewAuthenticatedRequest("GET", base+"/xml", nil, user))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "<fc2:FinCENID>111122223333</fc2:FinCENID>")
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestCreate_InvalidBody(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)

	rec := serve(router, testutil.NewAuthenticatedRequest("POST", "/", `{"name":`, testutil.UserFrom(owner)))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "invalid JSON body")
}

func TestDelete(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fixtures.CreateAdmin(ctx, "Ada Min", "admin@example.com")
	c := fixtures.CreateCompany(ctx, owner, "Acme LLC")
	user := testutil.UserFrom(owner)

	rec := serve(router, testutil.NewAuthenticatedRequest("DELETE", "/"+c.ID.Hex(), nil, user))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = serve(router, testutil.NewAuthenticatedRequest("GET", "/"+c.ID.Hex(), nil, user))
	rec.AssertStatus(t, http.StatusNotFound)
}
