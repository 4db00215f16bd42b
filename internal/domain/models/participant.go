// internal/domain/models/participant.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParticipantKind distinguishes beneficial owners from company applicants.
// Both are stored with the same shape in separate collections.
type ParticipantKind string

const (
	KindOwner     ParticipantKind = "owner"
	KindApplicant ParticipantKind = "applicant"
)

// Valid reports whether k is a known kind.
func (k ParticipantKind) Valid() bool { return k == KindOwner || k == KindApplicant }

// Participant is a beneficial owner or company applicant form.
//
// A participant is either in FinCEN ID mode (only FinCENID set) or in
// full-detail mode (FinCENID nil). BeneficialOwner and ExemptEntity are only
// used for owners.
type Participant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID primitive.ObjectID `bson:"company_id,omitempty" json:"company_id"`

	PersonalInfo          *PersonalInfo          `bson:"personal_info,omitempty" json:"personal_info,omitempty"`
	Address               *ParticipantAddress    `bson:"address,omitempty" json:"address,omitempty"`
	IdentificationDetails *IdentificationDetails `bson:"identification_details,omitempty" json:"identification_details,omitempty"`
	BeneficialOwner       *BeneficialOwner       `bson:"beneficial_owner,omitempty" json:"beneficial_owner,omitempty"`
	ExemptEntity          *ExemptEntity          `bson:"exempt_entity,omitempty" json:"exempt_entity,omitempty"`
	FinCENID              *FinCENID              `bson:"fincen_id,omitempty" json:"fincen_id,omitempty"`

	AnswerCount int `bson:"answer_count" json:"answer_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PersonalInfo holds the individual's name and birth date. For an exempt
// entity LastName carries the entity's legal name.
type PersonalInfo struct {
	LastName    string     `bson:"last_name,omitempty" json:"last_name,omitempty"`
	FirstName   string     `bson:"first_name,omitempty" json:"first_name,omitempty"`
	MiddleName  string     `bson:"middle_name,omitempty" json:"middle_name,omitempty"`
	Suffix      string     `bson:"suffix,omitempty" json:"suffix,omitempty"`
	DateOfBirth *time.Time `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	IsVerified  bool       `bson:"is_verified" json:"is_verified"`
}

// ParticipantAddress is a residential address (owners) or a business or
// residential address (applicants, see Type).
type ParticipantAddress struct {
	Type                  string `bson:"type,omitempty" json:"type,omitempty" validate:"omitempty,addresstype"`
	Address               string `bson:"address,omitempty" json:"address,omitempty"`
	City                  string `bson:"city,omitempty" json:"city,omitempty"`
	CountryOrJurisdiction string `bson:"country_or_jurisdiction,omitempty" json:"country_or_jurisdiction,omitempty" validate:"omitempty,country"`
	State                 string `bson:"state,omitempty" json:"state,omitempty" validate:"omitempty,usstate"`
	PostalCode            string `bson:"postal_code,omitempty" json:"postal_code,omitempty"`
	IsVerified            bool   `bson:"is_verified" json:"is_verified"`
}

// IdentificationDetails describes the identifying document. DocImg is the
// blob store key of the uploaded image.
type IdentificationDetails struct {
	DocType                string `bson:"doc_type,omitempty" json:"doc_type,omitempty" validate:"omitempty,doctype"`
	DocNumber              string `bson:"doc_number,omitempty" json:"doc_number,omitempty"`
	CountryOrJurisdiction  string `bson:"country_or_jurisdiction,omitempty" json:"country_or_jurisdiction,omitempty" validate:"omitempty,country"`
	State                  string `bson:"state,omitempty" json:"state,omitempty" validate:"omitempty,usstate"`
	LocalOrTribal          string `bson:"local_or_tribal,omitempty" json:"local_or_tribal,omitempty" validate:"omitempty,tribal"`
	OtherLocalOrTribalDesc string `bson:"other_local_or_tribal_desc,omitempty" json:"other_local_or_tribal_desc,omitempty"`
	DocImg                 string `bson:"doc_img,omitempty" json:"doc_img,omitempty"`
	IsVerified             bool   `bson:"is_verified" json:"is_verified"`
}

type BeneficialOwner struct {
	IsParentOrGuardianInformation bool `bson:"is_parent_or_guardian_information,omitempty" json:"is_parent_or_guardian_information,omitempty"`
	IsVerified                    bool `bson:"is_verified" json:"is_verified"`
}

type ExemptEntity struct {
	IsExemptEntity bool `bson:"is_exempt_entity,omitempty" json:"is_exempt_entity,omitempty"`
	IsVerified     bool `bson:"is_verified" json:"is_verified"`
}

type FinCENID struct {
	FinCENID   string `bson:"fincen_id,omitempty" json:"fincen_id,omitempty" validate:"omitempty,fincenid"`
	IsVerified bool   `bson:"is_verified" json:"is_verified"`
}

// InFinCENMode reports whether the participant is identified by FinCEN ID.
func (p *Participant) InFinCENMode() bool {
	return p.FinCENID != nil && p.FinCENID.FinCENID != ""
}

// FinCENIDValue returns the FinCEN ID or "".
func (p *Participant) FinCENIDValue() string {
	if p.FinCENID == nil {
		return ""
	}
	return p.FinCENID.FinCENID
}

// IsExempt reports whether the owner is flagged as an exempt entity.
func (p *Participant) IsExempt() bool {
	return p.ExemptEntity != nil && p.ExemptEntity.IsExemptEntity
}

// LastName returns the last name (entity name for exempt owners) or "".
func (p *Participant) LastName() string {
	if p.PersonalInfo == nil {
		return ""
	}
	return p.PersonalInfo.LastName
}

// Document returns the identifying document type and number, if any.
func (p *Participant) Document() (docType, docNumber string) {
	if p.IdentificationDetails == nil {
		return "", ""
	}
	return p.IdentificationDetails.DocType, p.IdentificationDetails.DocNumber
}

// DocImage returns the blob key of the document image or "".
func (p *Participant) DocImage() string {
	if p.IdentificationDetails == nil {
		return ""
	}
	return p.IdentificationDetails.DocImg
}

// IsEmpty reports whether no group is populated.
func (p *Participant) IsEmpty() bool {
	return p.PersonalInfo == nil && p.Address == nil && p.IdentificationDetails == nil &&
		p.BeneficialOwner == nil && p.ExemptEntity == nil && p.FinCENID == nil
}

// Unverified lists the populated groups whose verification flag is false.
func (p *Participant) Unverified() []string {
	var out []string
	if p.PersonalInfo != nil && !p.PersonalInfo.IsVerified {
		out = append(out, "personal_info")
	}
	if p.Address != nil && !p.Address.IsVerified {
		out = append(out, "address")
	}
	if p.IdentificationDetails != nil && !p.IdentificationDetails.IsVerified {
		out = append(out, "identification_details")
	}
	if p.BeneficialOwner != nil && !p.BeneficialOwner.IsVerified {
		out = append(out, "beneficial_owner")
	}
	if p.ExemptEntity != nil && !p.ExemptEntity.IsVerified {
		out = append(out, "exempt_entity")
	}
	if p.FinCENID != nil && !p.FinCENID.IsVerified {
		out = append(out, "fincen_id")
	}
	return out
}
