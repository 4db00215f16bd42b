package uploadcsv_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/boirhub/internal/app/features/uploadcsv"
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
	return uploadcsv.Routes(uploadcsv.NewHandler(fixtures.Service(), zap.NewNop()), sm), fixtures
}

func upload(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const sample = "BOIR Submission Deadline,Company Legal Name,Company Tax Id Type,Company Tax Id Number,Company Country of Formation,Company State of Formation\n" +
	"2025-01-01,Acme,EIN,12-3456789,US,DE\n" +
	",Beta,EIN,987654321,US,DE\n"

func TestHandleUpload_Report(t *testing.T) {
	router, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fixtures.CreateUser(ctx, "Pat Lee", "pat@example.com", models.RoleUser)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.WithUser(upload(t, "companies.csv", sample), testutil.UserFrom(owner)))
	rec.AssertStatus(t, http.StatusOK)

	var rep reconcile.ImportReport
	rec.Decode(t, &rep)
	if rep.Created != 1 || rep.Rejected != 1 {
		t.Fatalf("expected 1 created and 1 rejected, got %+v", rep)
	}
	if len(rep.Errors) != 1 || rep.Errors[0] != "Row 3: BOIR Submission Deadline: required for a new company" {
		t.Errorf("unexpected errors %q", rep.Errors)
	}
	rec.AssertContains(t, `"missingFields"`)

	list, err := fixtures.Service().ListCompanies(ctx, testutil.ActorFor(owner), "", 10, 0)
	if err != nil {
		t.Fatalf("ListCompanies failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Acme" {
		t.Errorf("expected Acme to be imported, got %+v", list)
	}
}

func TestHandleUpload_BadFiles(t *testing.T) {
	router, _ := newTestRouter(t)
	user := testutil.RegularUser()

	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"not multipart", testutil.NewJSONRequest("POST", "/", `{}`), "multipart"},
		{"wrong extension", upload(t, "companies.pdf", "x"), "unsupported file type"},
		{"empty csv", upload(t, "companies.csv", ""), "no header row"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, testutil.WithUser(tc.req, user))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tc.want)
		})
	}
}
