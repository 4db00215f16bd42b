package metricsstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals exported as gauges.
type Counts struct {
	Companies int64
	Submitted int64
	Paid      int64
	Pending   int64 // neither submitted nor paid
	Users     int64
}

// FetchCounts returns the high-level filing counts.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	companies := db.Collection("companies")

	if n, err := companies.CountDocuments(ctx, bson.M{}); err == nil {
		out.Companies = n
	}
	if n, err := companies.CountDocuments(ctx, bson.M{"is_submitted": true}); err == nil {
		out.Submitted = n
	}
	if n, err := companies.CountDocuments(ctx, bson.M{"is_paid": true}); err == nil {
		out.Paid = n
	}
	if n, err := companies.CountDocuments(ctx, bson.M{"is_submitted": false, "is_paid": false}); err == nil {
		out.Pending = n
	}
	if n, err := db.Collection("users").CountDocuments(ctx, bson.M{}); err == nil {
		out.Users = n
	}
	return out
}
