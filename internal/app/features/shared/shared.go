// Package shared holds request helpers used by the API features.
package shared

import (
	"net/http"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/system/authz"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectIDParam parses the chi URL parameter name. A malformed id is reported
// as not found, since no such record can exist.
func ObjectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, &reconcile.Error{Kind: reconcile.ErrNotFound, Msg: name + " not found", Err: err}
	}
	return id, nil
}

// Actor returns the signed-in actor, or writes 401 and returns false.
func Actor(w http.ResponseWriter, r *http.Request) (reconcile.Actor, bool) {
	a, ok := authz.Actor(r)
	if !ok {
		uierrors.Message(w, http.StatusUnauthorized, "unauthorized")
	}
	return a, ok
}
