package fieldval

import (
	"fmt"
	"strings"

	"github.com/dalemusser/boirhub/internal/app/system/csvimport"
	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/domain/codes"
	"github.com/dalemusser/boirhub/internal/domain/models"
)

// ValidateRow is the single validation pass over a sanitized row. It
// appends messages to res.Errors, labelled with the CSV header of the
// offending column, and mutates the drafts:
//
//   - user: an invalid email is reported and dropped.
//   - company: a violation on a required company field or any cross-field
//     rule rejects the row; other violations are reported and the field is
//     dropped. Missing tax fields, a Foreign tax type without jurisdiction,
//     a domestic formation without state or tribe, and tribe "Other"
//     without a name also reject the row.
//   - owners and applicants: an identification cross-field violation
//     rejects the row; any other violation is reported and the field is
//     dropped from that participant.
func (val *Validator) ValidateRow(res *csvimport.Result) {
	if vs := val.Email(res.User.Email); len(vs) > 0 {
		res.Errorf("%s: %s", csvimport.HeaderFor(csvimport.SectionUser, "email"), vs[0].Message())
		res.User.Email = ""
	}

	val.companyRow(res)
	val.participantRows(res, csvimport.SectionOwner, models.KindOwner)
	val.participantRows(res, csvimport.SectionApplicant, models.KindApplicant)
}

func (val *Validator) companyRow(res *csvimport.Result) {
	header := func(path string) string { return csvimport.HeaderFor(csvimport.SectionCompany, path) }
	patch := &res.Company.Form

	typ, num := patch.TaxID()
	if typ == "" {
		res.Reject(header("tax_info.tax_id_type") + ": required")
	}
	if num == "" {
		res.Reject(header("tax_info.tax_id_number") + ": required")
	}

	form := formmerge.NewCompanyForm(*patch)
	for _, v := range val.CompanyForm(&form) {
		msg := header(v.Path) + ": " + v.Message()
		if val.required[v.Path] || IsCrossField(v.Rule) {
			res.Reject(msg)
			continue
		}
		res.Errors = append(res.Errors, msg)
		if err := patch.Clear(v.Path); err != nil {
			res.Reject(fmt.Sprintf("%s: %v", header(v.Path), err))
		}
	}

	form = formmerge.NewCompanyForm(*patch)
	if t := form.TaxInfo; t != nil && t.TaxIDType == codes.TaxForeign && t.CountryOrJurisdiction == "" {
		res.Reject(header("tax_info.country_or_jurisdiction") + ": required for a Foreign tax id")
	}
	if j := form.FormationJurisdiction; j != nil {
		if codes.IsDomestic(j.CountryOrJurisdiction) && j.State == "" && j.TribalJurisdiction == "" {
			res.Reject(fmt.Sprintf("%s or %s: one is required for a US formation",
				header("formation_jurisdiction.state"), header("formation_jurisdiction.tribal_jurisdiction")))
		}
		if j.TribalJurisdiction == codes.TribalOther && strings.TrimSpace(j.NameOfOtherTribal) == "" {
			res.Reject(header("formation_jurisdiction.name_of_other_tribal") + ": required when the tribal jurisdiction is Other")
		}
	}
}

func (val *Validator) participantRows(res *csvimport.Result, sec csvimport.Section, kind models.ParticipantKind) {
	patches := res.Participants(sec)
	for i := range patches {
		p, err := formmerge.NewParticipant(kind, patches[i])
		if err != nil {
			res.Errorf("%s %d: %v", sec, i+1, err)
			continue
		}
		for _, v := range val.Participant(&p) {
			msg := csvimport.Label(csvimport.HeaderFor(sec, v.Path), sec, i) + ": " + v.Message()
			if IsCrossField(v.Rule) && strings.HasPrefix(v.Path, "identification_details.") {
				res.Reject(msg)
				continue
			}
			res.Errors = append(res.Errors, msg)
			if err := patches[i].Clear(v.Path); err != nil {
				res.Reject(msg)
			}
		}
	}
}
