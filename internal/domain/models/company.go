// internal/domain/models/company.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Filing status values tracked on a Company once it is handed to FinCEN.
const (
	FilingNone       = ""
	FilingRequested  = "requested"
	FilingUploaded   = "uploaded"
	FilingProcessing = "processing"
	FilingAccepted   = "accepted"
	FilingRejected   = "rejected"
)

// Company is the filing unit. Its reportable data lives in the referenced
// CompanyForm and participant forms; the company carries the lifecycle flags
// and the running completeness counters.
//
// AnswersCount and ReqFieldsCount are derived values. They are recomputed
// from the form and participants after every mutation and must never be
// written from request input.
type Company struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped

	ExpirationTime *time.Time `bson:"expiration_time,omitempty" json:"expiration_time,omitempty"` // BOIR deadline

	IsSubmitted       bool       `bson:"is_submitted" json:"is_submitted"`
	SubmittedAt       *time.Time `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	IsPaid            bool       `bson:"is_paid" json:"is_paid"`
	IsExistingCompany bool       `bson:"is_existing_company" json:"is_existing_company"`
	IsForeignPooled   bool       `bson:"is_foreign_pooled" json:"is_foreign_pooled"`

	FormID       primitive.ObjectID   `bson:"form_id" json:"form_id"`
	OwnerIDs     []primitive.ObjectID `bson:"owner_ids" json:"owner_ids"`
	ApplicantIDs []primitive.ObjectID `bson:"applicant_ids" json:"applicant_ids"`

	AnswersCount   int `bson:"answers_count" json:"answers_count"`
	ReqFieldsCount int `bson:"req_fields_count" json:"req_fields_count"`

	TransactionIDs []primitive.ObjectID `bson:"transaction_ids,omitempty" json:"transaction_ids,omitempty"`
	ProcessID      string               `bson:"process_id,omitempty" json:"process_id,omitempty"`
	FilingStatus   string               `bson:"filing_status,omitempty" json:"filing_status,omitempty"`

	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ApplicantsRequired reports whether company applicants count toward the
// filing. Existing companies and foreign pooled vehicles report none.
func (c *Company) ApplicantsRequired() bool {
	return !c.IsExistingCompany && !c.IsForeignPooled
}

// HasOwner reports whether id is in the company's owner list.
func (c *Company) HasOwner(id primitive.ObjectID) bool { return containsID(c.OwnerIDs, id) }

// HasApplicant reports whether id is in the company's applicant list.
func (c *Company) HasApplicant(id primitive.ObjectID) bool { return containsID(c.ApplicantIDs, id) }

// ParticipantIDs returns the id list for the given kind.
func (c *Company) ParticipantIDs(kind ParticipantKind) []primitive.ObjectID {
	if kind == KindApplicant {
		return c.ApplicantIDs
	}
	return c.OwnerIDs
}

// SetParticipantIDs replaces the id list for the given kind.
func (c *Company) SetParticipantIDs(kind ParticipantKind, ids []primitive.ObjectID) {
	if kind == KindApplicant {
		c.ApplicantIDs = ids
		return
	}
	c.OwnerIDs = ids
}

// HasTransaction reports whether id is one of the company's payments.
func (c *Company) HasTransaction(id primitive.ObjectID) bool { return containsID(c.TransactionIDs, id) }

// RemoveID returns ids without id. The input slice is not modified.
func RemoveID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
