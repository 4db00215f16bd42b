package shared_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/boirhub/internal/app/features/shared"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestObjectIDParam(t *testing.T) {
	id := primitive.NewObjectID()
	r := testutil.WithChiURLParams(httptest.NewRequest("GET", "/", nil), "id", id.Hex())
	got, err := shared.ObjectIDParam(r, "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id.Hex(), got.Hex(), err)
	}

	r = testutil.WithChiURLParams(httptest.NewRequest("GET", "/", nil), "id", "zzz")
	if _, err := shared.ObjectIDParam(r, "id"); !errors.Is(err, reconcile.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActor(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, ok := shared.Actor(rec, httptest.NewRequest("GET", "/", nil)); ok {
		t.Fatal("expected no actor")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	u := testutil.AdminUser()
	a, ok := shared.Actor(httptest.NewRecorder(), testutil.WithUser(httptest.NewRequest("GET", "/", nil), u))
	if !ok || !a.IsAdmin() || a.UserID.Hex() != u.ID {
		t.Errorf("unexpected actor %+v", a)
	}
}
