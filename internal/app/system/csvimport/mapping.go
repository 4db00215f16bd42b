// internal/app/system/csvimport/mapping.go
package csvimport

import (
	"github.com/dalemusser/boirhub/internal/domain/codes"
)

// Section names the entity a CSV column feeds.
type Section string

const (
	SectionUser      Section = "user"
	SectionCompany   Section = "company"
	SectionOwner     Section = "owner"
	SectionApplicant Section = "applicant"
)

// Kind controls how a cell is coerced.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindDate
	KindList // comma separated
	KindEnum // canonicalized against Field.Table
)

// Field maps one CSV header to a dotted document path.
type Field struct {
	Header string
	Path   string
	Kind   Kind
	Table  *codes.Table
}

// Company-level paths outside the company form.
const (
	PathExpiration      = "expiration_time"
	PathExistingCompany = "is_existing_company"
	PathForeignPooled   = "is_foreign_pooled"
	PathFinCENID        = "fincen_id.fincen_id"
)

// UserFields map the owning user's columns.
var UserFields = []Field{
	{Header: "User Email", Path: "email"},
	{Header: "User First Name", Path: "first_name"},
	{Header: "User Last Name", Path: "last_name"},
}

// CompanyFields map the company and company form columns.
var CompanyFields = []Field{
	{Header: "BOIR Submission Deadline", Path: PathExpiration, Kind: KindDate},
	{Header: "Existing Company", Path: PathExistingCompany, Kind: KindBool},
	{Header: "Foreign Pooled Investment Vehicle", Path: PathForeignPooled, Kind: KindBool},
	{Header: "Company Legal Name", Path: "names.legal_name"},
	{Header: "Company Alternate Names", Path: "names.alt_name", Kind: KindList},
	{Header: "Company Tax Id Type", Path: "tax_info.tax_id_type", Kind: KindEnum, Table: codes.TaxIDTypes},
	{Header: "Company Tax Id Number", Path: "tax_info.tax_id_number"},
	{Header: "Company Tax Jurisdiction", Path: "tax_info.country_or_jurisdiction", Kind: KindEnum, Table: codes.Countries},
	{Header: "Company Country of Formation", Path: "formation_jurisdiction.country_or_jurisdiction", Kind: KindEnum, Table: codes.Countries},
	{Header: "Company State of Formation", Path: "formation_jurisdiction.state", Kind: KindEnum, Table: codes.States},
	{Header: "Company Tribal Jurisdiction of Formation", Path: "formation_jurisdiction.tribal_jurisdiction", Kind: KindEnum, Table: codes.TribalJurisdictions},
	{Header: "Company Other Tribe Name", Path: "formation_jurisdiction.name_of_other_tribal"},
	{Header: "Company Address", Path: "address.address"},
	{Header: "Company City", Path: "address.city"},
	{Header: "Company Country", Path: "address.us_or_us_territory", Kind: KindEnum, Table: codes.Countries},
	{Header: "Company State", Path: "address.state", Kind: KindEnum, Table: codes.States},
	{Header: "Company Zip Code", Path: "address.zip_code"},
}

// OwnerFields map the repeated beneficial owner columns.
var OwnerFields = participantFields("Owner", true)

// ApplicantFields map the repeated company applicant columns.
var ApplicantFields = participantFields("Applicant", false)

func participantFields(prefix string, owner bool) []Field {
	fs := []Field{
		{Header: prefix + " FinCEN ID", Path: PathFinCENID},
	}
	if owner {
		fs = append(fs,
			Field{Header: prefix + " Exempt Entity", Path: "exempt_entity.is_exempt_entity", Kind: KindBool},
			Field{Header: prefix + " Parent or Guardian", Path: "beneficial_owner.is_parent_or_guardian_information", Kind: KindBool},
		)
	}
	fs = append(fs,
		Field{Header: prefix + " Last Name", Path: "personal_info.last_name"},
		Field{Header: prefix + " First Name", Path: "personal_info.first_name"},
		Field{Header: prefix + " Middle Name", Path: "personal_info.middle_name"},
		Field{Header: prefix + " Suffix", Path: "personal_info.suffix"},
		Field{Header: prefix + " Date of Birth", Path: "personal_info.date_of_birth", Kind: KindDate},
	)
	if !owner {
		fs = append(fs, Field{Header: prefix + " Address Type", Path: "address.type", Kind: KindEnum, Table: codes.AddressTypes})
	}
	fs = append(fs,
		Field{Header: prefix + " Address", Path: "address.address"},
		Field{Header: prefix + " City", Path: "address.city"},
		Field{Header: prefix + " Country", Path: "address.country_or_jurisdiction", Kind: KindEnum, Table: codes.Countries},
		Field{Header: prefix + " State", Path: "address.state", Kind: KindEnum, Table: codes.States},
		Field{Header: prefix + " Postal Code", Path: "address.postal_code"},
		Field{Header: prefix + " Document Type", Path: "identification_details.doc_type", Kind: KindEnum, Table: codes.DocTypes},
		Field{Header: prefix + " Document Number", Path: "identification_details.doc_number"},
		Field{Header: prefix + " Document Country", Path: "identification_details.country_or_jurisdiction", Kind: KindEnum, Table: codes.Countries},
		Field{Header: prefix + " Document State", Path: "identification_details.state", Kind: KindEnum, Table: codes.States},
		Field{Header: prefix + " Document Tribal Jurisdiction", Path: "identification_details.local_or_tribal", Kind: KindEnum, Table: codes.TribalJurisdictions},
		Field{Header: prefix + " Document Other Tribe", Path: "identification_details.other_local_or_tribal_desc"},
	)
	return fs
}

// Fields returns the mapping for a section.
func Fields(s Section) []Field {
	switch s {
	case SectionUser:
		return UserFields
	case SectionCompany:
		return CompanyFields
	case SectionOwner:
		return OwnerFields
	case SectionApplicant:
		return ApplicantFields
	}
	return nil
}

var headerByPath = func() map[Section]map[string]string {
	out := make(map[Section]map[string]string, 4)
	for _, s := range []Section{SectionUser, SectionCompany, SectionOwner, SectionApplicant} {
		m := make(map[string]string)
		for _, f := range Fields(s) {
			m[f.Path] = f.Header
		}
		out[s] = m
	}
	return out
}()

// HeaderFor returns the CSV header that feeds path in section, or path
// itself when no column maps to it.
func HeaderFor(s Section, path string) string {
	if h, ok := headerByPath[s][path]; ok {
		return h
	}
	return path
}

// Headers returns every known header in template order: user, company,
// owner, applicant.
func Headers() []string {
	var out []string
	for _, s := range []Section{SectionUser, SectionCompany, SectionOwner, SectionApplicant} {
		for _, f := range Fields(s) {
			out = append(out, f.Header)
		}
	}
	return out
}
