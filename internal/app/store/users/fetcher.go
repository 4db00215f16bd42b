package userstore

import (
	"context"

	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser retrieves a user by ID and returns nil if the user is not found
// or if any error occurs.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":        1,
		"email":      1,
		"first_name": 1,
		"last_name":  1,
		"role":       1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		return nil
	}

	return &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName(),
		Email: u.Email,
		Role:  u.Role,
	}
}
