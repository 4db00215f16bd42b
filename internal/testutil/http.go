package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// AdminUser returns a TestUser with admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Admin",
		Email: "admin@test.com",
		Role:  models.RoleAdmin,
	}
}

// RegularUser returns a TestUser with the default user role.
func RegularUser() TestUser {
	return TestUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test User",
		Email: "user@test.com",
		Role:  models.RoleUser,
	}
}

// UserFrom converts a stored user into a TestUser.
func UserFrom(u models.User) TestUser {
	return TestUser{ID: u.ID.Hex(), Name: u.FullName(), Email: u.Email, Role: u.Role}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is body encoded as JSON. A
// string body is sent as is.
func NewJSONRequest(method, target string, body any) *http.Request {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			panic(err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates a JSON request with a user in context.
func NewAuthenticatedRequest(method, target string, body any, user TestUser) *http.Request {
	return WithUser(NewJSONRequest(method, target, body), user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

type fataler interface {
	Helper()
	Errorf(string, ...any)
	Fatalf(string, ...any)
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t fataler, expected int) {
	t.Helper()
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t fataler, expected string) {
	t.Helper()
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// Decode unmarshals the JSON body into v.
func (r *ResponseRecorder) Decode(t fataler, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}
