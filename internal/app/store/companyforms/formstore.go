package formstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/boirhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateTaxID is returned when another company form already uses the
// same tax id type and number.
var ErrDuplicateTaxID = errors.New("a company with this tax id already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("company_forms")}
}

// Create inserts a new company form.
func (s *Store) Create(ctx context.Context, f models.CompanyForm) (models.CompanyForm, error) {
	f.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return models.CompanyForm{}, ErrDuplicateTaxID
		}
		return models.CompanyForm{}, err
	}
	return f, nil
}

// GetByID loads a form. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CompanyForm, error) {
	var f models.CompanyForm
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindByTaxID looks a form up by tax id type and number. Returns
// mongo.ErrNoDocuments if none matches.
func (s *Store) FindByTaxID(ctx context.Context, idType, number string) (*models.CompanyForm, error) {
	var f models.CompanyForm
	err := s.c.FindOne(ctx, bson.M{
		"tax_info.tax_id_type":   idType,
		"tax_info.tax_id_number": number,
	}).Decode(&f)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Save replaces the stored form with f.
func (s *Store) Save(ctx context.Context, f *models.CompanyForm) error {
	f.UpdatedAt = time.Now().UTC()
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": f.ID}, f)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateTaxID
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a form.
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
