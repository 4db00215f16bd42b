package login_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/boirhub/internal/app/features/login"
	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/app/system/mailer"
	"github.com/dalemusser/boirhub/internal/app/system/ratelimit"
	"github.com/dalemusser/boirhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type sentMail struct {
	template, to string
	data         map[string]string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(_ context.Context, template, to string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{template: template, to: to, data: data})
	return nil
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1].data["code"]
}

type env struct {
	router http.Handler
	mail   *fakeMailer
	users  *userstore.Store
	sm     *auth.SessionManager
}

func newEnv(t *testing.T, limiter *ratelimit.CodeLimiter) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	tokens, err := auth.NewTokens("test-jwt-secret-must-be-32-chars-long", "boirhub-test", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	sm.SetTokens(tokens)

	mail := &fakeMailer{}
	users := userstore.New(db)
	h := login.NewHandler(users, mail, sm, limiter, nil, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/auth", login.Routes(h))
	return &env{router: r, mail: mail, users: users, sm: sm}
}

func (e *env) post(path string, body any) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, testutil.NewJSONRequest("POST", path, body))
	return rec
}

// wrong returns a six digit code different from code.
func wrong(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSignIn_NewUser(t *testing.T) {
	e := newEnv(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := e.post("/auth/code", map[string]string{"email": "New.User@Example.com"})
	rec.AssertStatus(t, http.StatusAccepted)

	u, err := e.users.GetByEmail(ctx, "new.user@example.com")
	if err != nil {
		t.Fatalf("expected user to be created: %v", err)
	}
	if u.OTP == nil {
		t.Fatal("expected a pending code")
	}
	if got := e.mail.sent[0]; got.template != mailer.TemplateSignInCode || got.to != "new.user@example.com" {
		t.Fatalf("unexpected mail %+v", got)
	}
	if e.mail.sent[0].data["expires_in"] != "10 minutes" {
		t.Errorf("expires_in = %q", e.mail.sent[0].data["expires_in"])
	}
	code := e.mail.lastCode(t)

	rec = e.post("/auth/verify", map[string]string{"email": "new.user@example.com", "code": wrong(code)})
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = e.post("/auth/verify", map[string]string{"email": "NEW.USER@example.com", "code": code})
	rec.AssertStatus(t, http.StatusOK)
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected a session cookie")
	}
	var resp struct {
		User  auth.SessionUser `json:"user"`
		Token string           `json:"token"`
	}
	rec.Decode(t, &resp)
	if resp.User.ID != u.ID.Hex() || resp.Token == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	claims, err := e.sm.Tokens().Parse(resp.Token)
	if err != nil {
		t.Fatalf("Parse token failed: %v", err)
	}
	if claims.User().Email != "new.user@example.com" {
		t.Errorf("token email = %q", claims.User().Email)
	}

	// The code is single use.
	rec = e.post("/auth/verify", map[string]string{"email": "new.user@example.com", "code": code})
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestSignIn_TooManyAttempts(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.post("/auth/code", map[string]string{"email": "pat@example.com"})
	rec.AssertStatus(t, http.StatusAccepted)
	code := e.mail.lastCode(t)

	for i := 0; i < auth.MaxCodeAttempts; i++ {
		rec = e.post("/auth/verify", map[string]string{"email": "pat@example.com", "code": wrong(code)})
		rec.AssertStatus(t, http.StatusUnauthorized)
	}
	rec = e.post("/auth/verify", map[string]string{"email": "pat@example.com", "code": code})
	rec.AssertStatus(t, http.StatusTooManyRequests)

	// The exhausted code is gone.
	rec = e.post("/auth/verify", map[string]string{"email": "pat@example.com", "code": code})
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestSignIn_Rejections(t *testing.T) {
	limiter := ratelimit.NewCodeLimiterWithConfig(100, time.Minute, 1, time.Minute)
	defer limiter.Stop()
	e := newEnv(t, limiter)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"bad email", "/auth/code", map[string]string{"email": "not-an-email"}, http.StatusBadRequest},
		{"malformed json", "/auth/code", "{", http.StatusBadRequest},
		{"short code", "/auth/verify", map[string]string{"email": "pat@example.com", "code": "123"}, http.StatusBadRequest},
		{"unknown email", "/auth/verify", map[string]string{"email": "nobody@example.com", "code": "123456"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.post(tt.path, tt.body)
			rec.AssertStatus(t, tt.want)
		})
	}

	rec := e.post("/auth/code", map[string]string{"email": "pat@example.com"})
	rec.AssertStatus(t, http.StatusAccepted)
	rec = e.post("/auth/code", map[string]string{"email": "pat@example.com"})
	rec.AssertStatus(t, http.StatusTooManyRequests)
	rec.AssertContains(t, "this address")
}
