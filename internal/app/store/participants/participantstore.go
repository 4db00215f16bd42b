package participantstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection returns the collection holding participants of kind.
func Collection(kind models.ParticipantKind) string {
	if kind == models.KindApplicant {
		return "applicant_forms"
	}
	return "owner_forms"
}

// Store persists one kind of participant form. Owners and applicants share
// the document shape but live in separate collections.
type Store struct {
	c    *mongo.Collection
	kind models.ParticipantKind
}

func New(db *mongo.Database, kind models.ParticipantKind) *Store {
	return &Store{c: db.Collection(Collection(kind)), kind: kind}
}

// Kind returns the participant kind this store holds.
func (s *Store) Kind() models.ParticipantKind { return s.kind }

// Create inserts a new participant form.
func (s *Store) Create(ctx context.Context, p models.Participant) (models.Participant, error) {
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Participant{}, err
	}
	return p, nil
}

// GetByID loads a participant. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Participant, error) {
	var p models.Participant
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMany loads the participants with the given ids, in the order of ids.
// Ids with no document are skipped.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Participant, error) {
	if len(ids) == 0 {
		return []models.Participant{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	byID := make(map[primitive.ObjectID]models.Participant, len(ids))
	for cur.Next(ctx) {
		var p models.Participant
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.kind, err)
		}
		byID[p.ID] = p
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Participant, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Save replaces the stored participant with p.
func (s *Store) Save(ctx context.Context, p *models.Participant) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a participant.
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
