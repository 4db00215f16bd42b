// Package fieldval validates company, participant and user data against
// the BOIR code tables and cross-field jurisdiction rules.
//
// Field rules are validator tags on the domain models (country, usstate,
// tribal, doctype, taxidtype, addresstype, domestic, fincenid). Cross-field
// rules are struct-level validations registered per group type. Every
// violation is reported with its dotted document path.
package fieldval

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dalemusser/boirhub/internal/app/system/completeness"
	"github.com/dalemusser/boirhub/internal/domain/codes"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
)

// Cross-field rule tags.
const (
	RuleStateTribalExclusive = "state_tribal_exclusive"
	RuleOtherTribeOnly       = "other_tribe_only"
	RuleTerritoryState       = "territory_state"
	RuleForeignOnly          = "foreign_only"
	RuleTaxIDFormat          = "taxid_format"
)

var crossField = map[string]bool{
	RuleStateTribalExclusive: true,
	RuleOtherTribeOnly:       true,
	RuleTerritoryState:       true,
	RuleForeignOnly:          true,
	RuleTaxIDFormat:          true,
}

// IsCrossField reports whether rule is a struct-level rule.
func IsCrossField(rule string) bool { return crossField[rule] }

var messages = map[string]string{
	"country":                "is not a recognized country or jurisdiction",
	"usstate":                "is not a recognized US state or territory",
	"tribal":                 "is not a recognized tribal jurisdiction",
	"doctype":                "is not an accepted identifying document type",
	"taxidtype":              "is not an accepted tax id type",
	"addresstype":            "must be business or residential",
	"domestic":               "must be the United States or a US territory",
	"fincenid":               "must be a 12 digit FinCEN ID",
	"email":                  "is not a valid email address",
	RuleStateTribalExclusive: "cannot be combined with a state",
	RuleOtherTribeOnly:       "is only allowed when the tribal jurisdiction is Other",
	RuleTerritoryState:       "must match the country for a US territory",
	RuleForeignOnly:          "is only allowed with a Foreign tax id type",
	RuleTaxIDFormat:          "must be 9 digits for an EIN or SSN/ITIN",
}

// Violation is one failed rule.
type Violation struct {
	Path  string `json:"path"` // e.g. "identification_details.doc_type"
	Rule  string `json:"rule"`
	Value string `json:"value,omitempty"`
}

// Message renders the violation without its location.
func (v Violation) Message() string {
	msg, ok := messages[v.Rule]
	if !ok {
		msg = "is invalid"
	}
	if v.Value == "" {
		return msg
	}
	return fmt.Sprintf("%q %s", v.Value, msg)
}

// Violations is returned as an error by the entity checks.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Path + ": " + v.Message()
	}
	return strings.Join(parts, "; ")
}

// Validator is safe for concurrent use once built.
type Validator struct {
	v        *validator.Validate
	required map[string]bool // required company paths
}

var fincenIDPattern = regexp.MustCompile(`^[0-9]{12}$`)
var nineDigits = regexp.MustCompile(`^[0-9]{9}$`)

// New builds a Validator. req supplies the required company paths; a
// violation on one of them rejects a CSV row.
func New(req completeness.Requirements) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("bson"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	register := func(tag string, ok func(string) bool) {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return ok(fl.Field().String())
		})
	}
	register("country", codes.Countries.Has)
	register("usstate", codes.States.Has)
	register("tribal", codes.TribalJurisdictions.Has)
	register("doctype", codes.DocTypes.Has)
	register("taxidtype", codes.TaxIDTypes.Has)
	register("addresstype", codes.AddressTypes.Has)
	register("domestic", codes.IsDomestic)
	register("fincenid", fincenIDPattern.MatchString)

	v.RegisterStructValidation(taxInfoRules, models.TaxInfo{})
	v.RegisterStructValidation(formationRules, models.FormationJurisdiction{})
	v.RegisterStructValidation(companyAddressRules, models.CompanyAddress{})
	v.RegisterStructValidation(participantAddressRules, models.ParticipantAddress{})
	v.RegisterStructValidation(identificationRules, models.IdentificationDetails{})

	required := make(map[string]bool, len(req.Company))
	for _, p := range req.Company {
		required[p] = true
	}
	return &Validator{v: v, required: required}
}

// IsRequiredCompanyPath reports whether path is a required company field.
func (val *Validator) IsRequiredCompanyPath(path string) bool { return val.required[path] }

// CompanyForm checks a company form.
func (val *Validator) CompanyForm(f *models.CompanyForm) Violations {
	return val.check(f)
}

// Participant checks an owner or applicant form.
func (val *Validator) Participant(p *models.Participant) Violations {
	return val.check(p)
}

type userInput struct {
	Email string `bson:"email" validate:"omitempty,email"`
}

// Email checks an email address. An empty address passes.
func (val *Validator) Email(email string) Violations {
	return val.check(&userInput{Email: email})
}

func (val *Validator) check(s any) Violations {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return Violations{{Path: "", Rule: "invalid", Value: err.Error()}}
	}
	out := make(Violations, 0, len(ves))
	for _, fe := range ves {
		out = append(out, Violation{
			Path:  trimRoot(fe.Namespace()),
			Rule:  fe.Tag(),
			Value: fmt.Sprint(fe.Value()),
		})
	}
	return out
}

// trimRoot drops the leading struct name: "CompanyForm.names.legal_name"
// becomes "names.legal_name".
func trimRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func taxInfoRules(sl validator.StructLevel) {
	t := sl.Current().Interface().(models.TaxInfo)
	if t.CountryOrJurisdiction != "" && t.TaxIDType != "" && t.TaxIDType != codes.TaxForeign {
		sl.ReportError(t.CountryOrJurisdiction, "country_or_jurisdiction", "CountryOrJurisdiction", RuleForeignOnly, "")
	}
	if (t.TaxIDType == codes.TaxEIN || t.TaxIDType == codes.TaxSSNITIN) && t.TaxIDNumber != "" && !nineDigits.MatchString(t.TaxIDNumber) {
		sl.ReportError(t.TaxIDNumber, "tax_id_number", "TaxIDNumber", RuleTaxIDFormat, "")
	}
}

func formationRules(sl validator.StructLevel) {
	j := sl.Current().Interface().(models.FormationJurisdiction)
	jurisdictionRules(sl, j.CountryOrJurisdiction, j.State, j.TribalJurisdiction, j.NameOfOtherTribal,
		"tribal_jurisdiction", "TribalJurisdiction", "name_of_other_tribal", "NameOfOtherTribal")
}

func identificationRules(sl validator.StructLevel) {
	d := sl.Current().Interface().(models.IdentificationDetails)
	jurisdictionRules(sl, d.CountryOrJurisdiction, d.State, d.LocalOrTribal, d.OtherLocalOrTribalDesc,
		"local_or_tribal", "LocalOrTribal", "other_local_or_tribal_desc", "OtherLocalOrTribalDesc")
}

func companyAddressRules(sl validator.StructLevel) {
	a := sl.Current().Interface().(models.CompanyAddress)
	territoryRule(sl, a.UsOrUsTerritory, a.State)
}

func participantAddressRules(sl validator.StructLevel) {
	a := sl.Current().Interface().(models.ParticipantAddress)
	territoryRule(sl, a.CountryOrJurisdiction, a.State)
}

// jurisdictionRules: state and tribal are exclusive, the other-tribe text
// requires tribal "Other", and a territory's state must be the territory.
func jurisdictionRules(sl validator.StructLevel, country, state, tribal, other, tribalName, tribalField, otherName, otherField string) {
	if state != "" && tribal != "" {
		sl.ReportError(tribal, tribalName, tribalField, RuleStateTribalExclusive, "")
	}
	if other != "" && tribal != codes.TribalOther {
		sl.ReportError(other, otherName, otherField, RuleOtherTribeOnly, "")
	}
	territoryRule(sl, country, state)
}

func territoryRule(sl validator.StructLevel, country, state string) {
	if codes.HasStates(country) && state != "" && state != country {
		sl.ReportError(state, "state", "State", RuleTerritoryState, "")
	}
}
