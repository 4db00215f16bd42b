// Package formmerge applies partial updates to company and participant forms.
//
// A patch names the groups it touches. Within a group a nil pointer leaves the
// stored field alone and a non-nil pointer replaces it; an empty string clears
// the field. Groups left with no data are removed so an emptied group reads as
// unanswered. Changing any data field of a group resets the group's
// verification flag unless the same patch sets it.
package formmerge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrOwnerOnlyGroup is returned when an applicant patch carries an
	// owner-only group.
	ErrOwnerOnlyGroup = errors.New("beneficial_owner and exempt_entity apply to owners only")
	// ErrBadDate is returned when a date value cannot be parsed.
	ErrBadDate = errors.New("unrecognized date format")
)

// DateLayouts lists the accepted date formats, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// ParseDate parses s with the first matching layout in DateLayouts. The
// result is in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// CompanyFormPatch is a partial update of a CompanyForm.
type CompanyFormPatch struct {
	Names                 *NamesPatch                 `json:"names,omitempty"`
	TaxInfo               *TaxInfoPatch               `json:"tax_info,omitempty"`
	FormationJurisdiction *FormationJurisdictionPatch `json:"formation_jurisdiction,omitempty"`
	Address               *CompanyAddressPatch        `json:"address,omitempty"`
}

type NamesPatch struct {
	LegalName  *string   `json:"legal_name,omitempty"`
	AltName    *[]string `json:"alt_name,omitempty"`
	IsVerified *bool     `json:"is_verified,omitempty"`
}

type TaxInfoPatch struct {
	TaxIDType             *string `json:"tax_id_type,omitempty"`
	TaxIDNumber           *string `json:"tax_id_number,omitempty"`
	CountryOrJurisdiction *string `json:"country_or_jurisdiction,omitempty"`
	IsVerified            *bool   `json:"is_verified,omitempty"`
}

type FormationJurisdictionPatch struct {
	CountryOrJurisdiction *string `json:"country_or_jurisdiction,omitempty"`
	State                 *string `json:"state,omitempty"`
	TribalJurisdiction    *string `json:"tribal_jurisdiction,omitempty"`
	NameOfOtherTribal     *string `json:"name_of_other_tribal,omitempty"`
	IsVerified            *bool   `json:"is_verified,omitempty"`
}

type CompanyAddressPatch struct {
	Address         *string `json:"address,omitempty"`
	City            *string `json:"city,omitempty"`
	UsOrUsTerritory *string `json:"us_or_us_territory,omitempty"`
	State           *string `json:"state,omitempty"`
	ZipCode         *string `json:"zip_code,omitempty"`
	IsVerified      *bool   `json:"is_verified,omitempty"`
}

// ParticipantPatch is a partial update of an owner or applicant form.
type ParticipantPatch struct {
	PersonalInfo          *PersonalInfoPatch          `json:"personal_info,omitempty"`
	Address               *ParticipantAddressPatch    `json:"address,omitempty"`
	IdentificationDetails *IdentificationDetailsPatch `json:"identification_details,omitempty"`
	BeneficialOwner       *BeneficialOwnerPatch       `json:"beneficial_owner,omitempty"`
	ExemptEntity          *ExemptEntityPatch          `json:"exempt_entity,omitempty"`
	FinCENID              *FinCENIDPatch              `json:"fincen_id,omitempty"`
}

type PersonalInfoPatch struct {
	LastName    *string `json:"last_name,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	MiddleName  *string `json:"middle_name,omitempty"`
	Suffix      *string `json:"suffix,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"` // see DateLayouts
	IsVerified  *bool   `json:"is_verified,omitempty"`
}

type ParticipantAddressPatch struct {
	Type                  *string `json:"type,omitempty"`
	Address               *string `json:"address,omitempty"`
	City                  *string `json:"city,omitempty"`
	CountryOrJurisdiction *string `json:"country_or_jurisdiction,omitempty"`
	State                 *string `json:"state,omitempty"`
	PostalCode            *string `json:"postal_code,omitempty"`
	IsVerified            *bool   `json:"is_verified,omitempty"`
}

// IdentificationDetailsPatch has no image field; images are managed through
// the image endpoints.
type IdentificationDetailsPatch struct {
	DocType                *string `json:"doc_type,omitempty"`
	DocNumber              *string `json:"doc_number,omitempty"`
	CountryOrJurisdiction  *string `json:"country_or_jurisdiction,omitempty"`
	State                  *string `json:"state,omitempty"`
	LocalOrTribal          *string `json:"local_or_tribal,omitempty"`
	OtherLocalOrTribalDesc *string `json:"other_local_or_tribal_desc,omitempty"`
	IsVerified             *bool   `json:"is_verified,omitempty"`
}

type BeneficialOwnerPatch struct {
	IsParentOrGuardianInformation *bool `json:"is_parent_or_guardian_information,omitempty"`
	IsVerified                    *bool `json:"is_verified,omitempty"`
}

type ExemptEntityPatch struct {
	IsExemptEntity *bool `json:"is_exempt_entity,omitempty"`
	IsVerified     *bool `json:"is_verified,omitempty"`
}

type FinCENIDPatch struct {
	FinCENID   *string `json:"fincen_id,omitempty"`
	IsVerified *bool   `json:"is_verified,omitempty"`
}

// IsEmpty reports whether the patch touches no group.
func (p *ParticipantPatch) IsEmpty() bool {
	return p.FinCENID == nil && !p.hasDetail()
}

func (p *ParticipantPatch) hasDetail() bool {
	return p.PersonalInfo != nil || p.Address != nil || p.IdentificationDetails != nil ||
		p.BeneficialOwner != nil || p.ExemptEntity != nil
}

// FinCENIDValue returns the trimmed FinCEN ID the patch sets, or "".
func (p *ParticipantPatch) FinCENIDValue() string {
	if p.FinCENID == nil || p.FinCENID.FinCENID == nil {
		return ""
	}
	return strings.TrimSpace(*p.FinCENID.FinCENID)
}

// IsEmpty reports whether the patch touches no group.
func (p *CompanyFormPatch) IsEmpty() bool {
	return p.Names == nil && p.TaxInfo == nil && p.FormationJurisdiction == nil && p.Address == nil
}

// LegalName returns the legal name the patch sets, or "".
func (p *CompanyFormPatch) LegalName() string {
	if p.Names == nil || p.Names.LegalName == nil {
		return ""
	}
	return strings.TrimSpace(*p.Names.LegalName)
}

// TaxID returns the tax id type and number the patch sets.
func (p *CompanyFormPatch) TaxID() (idType, number string) {
	if p.TaxInfo == nil {
		return "", ""
	}
	if p.TaxInfo.TaxIDType != nil {
		idType = strings.TrimSpace(*p.TaxInfo.TaxIDType)
	}
	if p.TaxInfo.TaxIDNumber != nil {
		number = strings.TrimSpace(*p.TaxInfo.TaxIDNumber)
	}
	return idType, number
}

// Clear removes the field at path ("group.field") from the patch so the
// merge leaves that field untouched. A group left empty is removed.
func (p *ParticipantPatch) Clear(path string) error { return clearPath(p, path) }

// Clear removes the field at path ("group.field") from the patch.
func (p *CompanyFormPatch) Clear(path string) error { return clearPath(p, path) }

// clearPath round-trips the patch through a generic JSON document. Patches
// are small and this keeps the field list in one place (the struct tags).
func clearPath(p any, path string) error {
	group, field, ok := strings.Cut(path, ".")
	if !ok {
		return fmt.Errorf("path %q is not group.field", path)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	g, ok := doc[group]
	if !ok {
		return nil
	}
	delete(g, field)
	if len(g) == 0 {
		delete(doc, group)
	}
	b, err = json.Marshal(doc)
	if err != nil {
		return err
	}
	return resetAndDecode(p, b)
}

func resetAndDecode(p any, b []byte) error {
	switch x := p.(type) {
	case *ParticipantPatch:
		*x = ParticipantPatch{}
	case *CompanyFormPatch:
		*x = CompanyFormPatch{}
	}
	return json.Unmarshal(b, p)
}
