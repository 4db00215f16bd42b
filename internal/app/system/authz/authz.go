// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// Actor returns the signed-in user as the actor for service calls.
func Actor(r *http.Request) (reconcile.Actor, bool) {
	role, _, userID, ok := UserCtx(r)
	if !ok {
		return reconcile.Actor{}, false
	}
	return reconcile.Actor{UserID: userID, Role: role}, true
}
