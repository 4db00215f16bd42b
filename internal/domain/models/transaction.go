// internal/domain/models/transaction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction status values mirror the payment provider's intent states.
const (
	TxPending   = "pending"
	TxSucceeded = "succeeded"
	TxFailed    = "failed"
	TxCanceled  = "canceled"
)

// Transaction links a payment intent to the companies it pays for.
type Transaction struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	PaymentIntentID string               `bson:"payment_intent_id" json:"payment_intent_id"`
	ClientSecret    string               `bson:"client_secret,omitempty" json:"client_secret,omitempty"`
	Amount          int64                `bson:"amount" json:"amount"` // cents
	Currency        string               `bson:"currency" json:"currency"`
	Status          string               `bson:"status" json:"status"`
	CompanyIDs      []primitive.ObjectID `bson:"company_ids" json:"company_ids"`
	UserID          primitive.ObjectID   `bson:"user_id" json:"user_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
