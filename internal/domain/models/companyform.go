// internal/domain/models/companyform.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompanyForm holds the reporting company's BOIR data. Each group carries its
// own verification flag; a nil group has not been answered.
type CompanyForm struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Names                 *CompanyNames          `bson:"names,omitempty" json:"names,omitempty"`
	TaxInfo               *TaxInfo               `bson:"tax_info,omitempty" json:"tax_info,omitempty"`
	FormationJurisdiction *FormationJurisdiction `bson:"formation_jurisdiction,omitempty" json:"formation_jurisdiction,omitempty"`
	Address               *CompanyAddress        `bson:"address,omitempty" json:"address,omitempty"`

	AnswerCount int `bson:"answer_count" json:"answer_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type CompanyNames struct {
	LegalName  string   `bson:"legal_name,omitempty" json:"legal_name,omitempty"`
	AltName    []string `bson:"alt_name,omitempty" json:"alt_name,omitempty"`
	IsVerified bool     `bson:"is_verified" json:"is_verified"`
}

// TaxInfo identifies the company for tax purposes. CountryOrJurisdiction is
// only meaningful for a foreign tax id.
type TaxInfo struct {
	TaxIDType             string `bson:"tax_id_type,omitempty" json:"tax_id_type,omitempty" validate:"omitempty,taxidtype"`
	TaxIDNumber           string `bson:"tax_id_number,omitempty" json:"tax_id_number,omitempty"`
	CountryOrJurisdiction string `bson:"country_or_jurisdiction,omitempty" json:"country_or_jurisdiction,omitempty" validate:"omitempty,country"`
	IsVerified            bool   `bson:"is_verified" json:"is_verified"`
}

// FormationJurisdiction is where the company was formed (or first
// registered, for a foreign company). State and TribalJurisdiction are
// mutually exclusive.
type FormationJurisdiction struct {
	CountryOrJurisdiction string `bson:"country_or_jurisdiction,omitempty" json:"country_or_jurisdiction,omitempty" validate:"omitempty,country"`
	State                 string `bson:"state,omitempty" json:"state,omitempty" validate:"omitempty,usstate"`
	TribalJurisdiction    string `bson:"tribal_jurisdiction,omitempty" json:"tribal_jurisdiction,omitempty" validate:"omitempty,tribal"`
	NameOfOtherTribal     string `bson:"name_of_other_tribal,omitempty" json:"name_of_other_tribal,omitempty"`
	IsVerified            bool   `bson:"is_verified" json:"is_verified"`
}

// CompanyAddress is the company's current US address.
type CompanyAddress struct {
	Address         string `bson:"address,omitempty" json:"address,omitempty"`
	City            string `bson:"city,omitempty" json:"city,omitempty"`
	UsOrUsTerritory string `bson:"us_or_us_territory,omitempty" json:"us_or_us_territory,omitempty" validate:"omitempty,domestic"`
	State           string `bson:"state,omitempty" json:"state,omitempty" validate:"omitempty,usstate"`
	ZipCode         string `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	IsVerified      bool   `bson:"is_verified" json:"is_verified"`
}

// LegalName returns the legal name or "" when the names group is absent.
func (f *CompanyForm) LegalName() string {
	if f.Names == nil {
		return ""
	}
	return f.Names.LegalName
}

// Unverified lists the populated groups whose verification flag is false.
func (f *CompanyForm) Unverified() []string {
	var out []string
	if f.Names != nil && !f.Names.IsVerified {
		out = append(out, "names")
	}
	if f.TaxInfo != nil && !f.TaxInfo.IsVerified {
		out = append(out, "tax_info")
	}
	if f.FormationJurisdiction != nil && !f.FormationJurisdiction.IsVerified {
		out = append(out, "formation_jurisdiction")
	}
	if f.Address != nil && !f.Address.IsVerified {
		out = append(out, "address")
	}
	return out
}
