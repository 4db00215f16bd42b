package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/boirhub/internal/app/system/normalize"
	"github.com/dalemusser/boirhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "user"|"admin"`)
	errEmailNeeded    = errors.New("email is required")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.FullNameCI = text.Fold(u.FullName())
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.CompanyIDs == nil {
		u.CompanyIDs = []primitive.ObjectID{}
	}

	if u.Email == "" {
		return models.User{}, errEmailNeeded
	}
	switch u.Role {
	case models.RoleUser, models.RoleAdmin:
		// ok
	default:
		return models.User{}, errBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// UpdateName sets the user's first and last name.
func (s *Store) UpdateName(ctx context.Context, id primitive.ObjectID, first, last string) error {
	first, last = normalize.Name(first), normalize.Name(last)
	u := models.User{FirstName: first, LastName: last}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"first_name":   first,
		"last_name":    last,
		"full_name_ci": text.Fold(u.FullName()),
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	role = normalize.Role(role)
	if role != models.RoleUser && role != models.RoleAdmin {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AttachCompany records that the user owns a company.
func (s *Store) AttachCompany(ctx context.Context, userID, companyID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$addToSet": bson.M{"company_ids": companyID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DetachCompany removes a company from the user and returns how many
// companies the user still owns.
func (s *Store) DetachCompany(ctx context.Context, userID, companyID primitive.ObjectID) (int, error) {
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"company_ids": companyID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"company_ids": 1}),
	).Decode(&u)
	if err != nil {
		return 0, err
	}
	return len(u.CompanyIDs), nil
}

// Delete removes a user.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetOTP stores a pending sign-in code hash, replacing any previous one.
func (s *Store) SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expiresAt time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"otp":        models.OTP{Hash: hash, ExpiresAt: expiresAt.UTC()},
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// IncrementOTPAttempts counts a failed code entry and returns the new count.
func (s *Store) IncrementOTPAttempts(ctx context.Context, id primitive.ObjectID) (int, error) {
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "otp": bson.M{"$exists": true}},
		bson.M{"$inc": bson.M{"otp.attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return 0, err
	}
	if u.OTP == nil {
		return 0, nil
	}
	return u.OTP.Attempts, nil
}

// ClearOTP removes the pending code.
func (s *Store) ClearOTP(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"otp": ""}})
	return err
}

// ClearExpiredOTPs removes every code that expired before now and returns
// how many users were touched.
func (s *Store) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"otp.expires_at": bson.M{"$lt": now}},
		bson.M{"$unset": bson.M{"otp": ""}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
