package txstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/boirhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateIntent is returned when a payment intent is already recorded.
var ErrDuplicateIntent = errors.New("payment intent already recorded")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("transactions")}
}

// Create records a payment intent.
func (s *Store) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	t.ID = primitive.NewObjectID()
	t.Currency = strings.ToLower(strings.TrimSpace(t.Currency))
	if t.Status == "" {
		t.Status = models.TxPending
	}
	if t.CompanyIDs == nil {
		t.CompanyIDs = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Transaction{}, ErrDuplicateIntent
		}
		return models.Transaction{}, err
	}
	return t, nil
}

// GetByID loads a transaction. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByIntent loads the transaction for a provider intent id.
func (s *Store) GetByIntent(ctx context.Context, intentID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.c.FindOne(ctx, bson.M{"payment_intent_id": intentID}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUser returns a user's transactions, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Transaction{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus updates the stored intent status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     status,
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
