package formmerge

import (
	"reflect"
	"strings"
	"time"

	"github.com/dalemusser/boirhub/internal/app/system/normalize"
	"github.com/dalemusser/boirhub/internal/domain/models"
)

// ApplyCompanyForm merges p into f group by group.
func ApplyCompanyForm(f *models.CompanyForm, p CompanyFormPatch) {
	if n := p.Names; n != nil {
		g := orNew(f.Names)
		changed := setText(&g.LegalName, n.LegalName, normalize.Name)
		if n.AltName != nil {
			alt := cleanList(*n.AltName)
			if !reflect.DeepEqual(alt, g.AltName) {
				g.AltName = alt
				changed = true
			}
		}
		verify(&g.IsVerified, n.IsVerified, changed)
		f.Names = prune(g)
	}
	if t := p.TaxInfo; t != nil {
		g := orNew(f.TaxInfo)
		changed := setText(&g.TaxIDType, t.TaxIDType, strings.TrimSpace)
		changed = setText(&g.TaxIDNumber, t.TaxIDNumber, normalize.Identifier) || changed
		changed = setText(&g.CountryOrJurisdiction, t.CountryOrJurisdiction, strings.TrimSpace) || changed
		verify(&g.IsVerified, t.IsVerified, changed)
		f.TaxInfo = prune(g)
	}
	if j := p.FormationJurisdiction; j != nil {
		g := orNew(f.FormationJurisdiction)
		changed := setText(&g.CountryOrJurisdiction, j.CountryOrJurisdiction, strings.TrimSpace)
		changed = setText(&g.State, j.State, strings.TrimSpace) || changed
		changed = setText(&g.TribalJurisdiction, j.TribalJurisdiction, strings.TrimSpace) || changed
		changed = setText(&g.NameOfOtherTribal, j.NameOfOtherTribal, strings.TrimSpace) || changed
		verify(&g.IsVerified, j.IsVerified, changed)
		f.FormationJurisdiction = prune(g)
	}
	if a := p.Address; a != nil {
		g := orNew(f.Address)
		changed := setText(&g.Address, a.Address, strings.TrimSpace)
		changed = setText(&g.City, a.City, strings.TrimSpace) || changed
		changed = setText(&g.UsOrUsTerritory, a.UsOrUsTerritory, strings.TrimSpace) || changed
		changed = setText(&g.State, a.State, strings.TrimSpace) || changed
		changed = setText(&g.ZipCode, a.ZipCode, strings.TrimSpace) || changed
		verify(&g.IsVerified, a.IsVerified, changed)
		f.Address = prune(g)
	}
}

// ApplyParticipant merges p into dst.
//
// Setting a FinCEN ID switches the participant into FinCEN ID mode and drops
// every other group. Clearing the FinCEN ID (empty string), or sending any
// detail group while in FinCEN ID mode, switches back to full-detail mode and
// drops the FinCEN ID group. When a patch carries both a FinCEN ID and detail
// groups the FinCEN ID wins.
func ApplyParticipant(dst *models.Participant, kind models.ParticipantKind, p ParticipantPatch) error {
	if kind == models.KindApplicant && (p.BeneficialOwner != nil || p.ExemptEntity != nil) {
		return ErrOwnerOnlyGroup
	}

	if id := p.FinCENIDValue(); id != "" {
		verified := dst.InFinCENMode() && dst.FinCENID.FinCENID == id && dst.FinCENID.IsVerified
		if p.FinCENID.IsVerified != nil {
			verified = *p.FinCENID.IsVerified
		}
		*dst = models.Participant{
			ID:          dst.ID,
			CompanyID:   dst.CompanyID,
			FinCENID:    &models.FinCENID{FinCENID: id, IsVerified: verified},
			AnswerCount: dst.AnswerCount,
			CreatedAt:   dst.CreatedAt,
			UpdatedAt:   dst.UpdatedAt,
		}
		return nil
	}

	switch {
	case p.FinCENID != nil && p.FinCENID.FinCENID != nil:
		// Explicit empty FinCEN ID.
		dst.FinCENID = nil
	case dst.FinCENID != nil && p.hasDetail():
		dst.FinCENID = nil
	case dst.FinCENID != nil:
		if p.FinCENID != nil && p.FinCENID.IsVerified != nil {
			dst.FinCENID.IsVerified = *p.FinCENID.IsVerified
		}
		return nil
	}

	if pi := p.PersonalInfo; pi != nil {
		g := orNew(dst.PersonalInfo)
		changed := setText(&g.LastName, pi.LastName, normalize.Name)
		changed = setText(&g.FirstName, pi.FirstName, normalize.Name) || changed
		changed = setText(&g.MiddleName, pi.MiddleName, normalize.Name) || changed
		changed = setText(&g.Suffix, pi.Suffix, strings.TrimSpace) || changed
		if pi.DateOfBirth != nil {
			var dob *time.Time
			if s := strings.TrimSpace(*pi.DateOfBirth); s != "" {
				t, err := ParseDate(s)
				if err != nil {
					return err
				}
				dob = &t
			}
			if !sameDate(g.DateOfBirth, dob) {
				g.DateOfBirth = dob
				changed = true
			}
		}
		verify(&g.IsVerified, pi.IsVerified, changed)
		dst.PersonalInfo = prune(g)
	}
	if a := p.Address; a != nil {
		g := orNew(dst.Address)
		changed := false
		if kind == models.KindApplicant {
			changed = setText(&g.Type, a.Type, strings.TrimSpace)
		}
		changed = setText(&g.Address, a.Address, strings.TrimSpace) || changed
		changed = setText(&g.City, a.City, strings.TrimSpace) || changed
		changed = setText(&g.CountryOrJurisdiction, a.CountryOrJurisdiction, strings.TrimSpace) || changed
		changed = setText(&g.State, a.State, strings.TrimSpace) || changed
		changed = setText(&g.PostalCode, a.PostalCode, strings.TrimSpace) || changed
		verify(&g.IsVerified, a.IsVerified, changed)
		dst.Address = prune(g)
	}
	if id := p.IdentificationDetails; id != nil {
		g := orNew(dst.IdentificationDetails)
		changed := setText(&g.DocType, id.DocType, strings.TrimSpace)
		changed = setText(&g.DocNumber, id.DocNumber, normalize.Identifier) || changed
		changed = setText(&g.CountryOrJurisdiction, id.CountryOrJurisdiction, strings.TrimSpace) || changed
		changed = setText(&g.State, id.State, strings.TrimSpace) || changed
		changed = setText(&g.LocalOrTribal, id.LocalOrTribal, strings.TrimSpace) || changed
		changed = setText(&g.OtherLocalOrTribalDesc, id.OtherLocalOrTribalDesc, strings.TrimSpace) || changed
		verify(&g.IsVerified, id.IsVerified, changed)
		dst.IdentificationDetails = prune(g)
	}
	if bo := p.BeneficialOwner; bo != nil {
		g := orNew(dst.BeneficialOwner)
		changed := setFlag(&g.IsParentOrGuardianInformation, bo.IsParentOrGuardianInformation)
		verify(&g.IsVerified, bo.IsVerified, changed)
		dst.BeneficialOwner = prune(g)
	}
	if ex := p.ExemptEntity; ex != nil {
		g := orNew(dst.ExemptEntity)
		changed := setFlag(&g.IsExemptEntity, ex.IsExemptEntity)
		verify(&g.IsVerified, ex.IsVerified, changed)
		dst.ExemptEntity = prune(g)
	}
	return nil
}

// NewParticipant builds a participant from a patch.
func NewParticipant(kind models.ParticipantKind, p ParticipantPatch) (models.Participant, error) {
	var out models.Participant
	err := ApplyParticipant(&out, kind, p)
	return out, err
}

// NewCompanyForm builds a company form from a patch.
func NewCompanyForm(p CompanyFormPatch) models.CompanyForm {
	var out models.CompanyForm
	ApplyCompanyForm(&out, p)
	return out
}

func orNew[T any](g *T) *T {
	if g == nil {
		return new(T)
	}
	cp := *g
	return &cp
}

// prune drops a group that holds nothing.
func prune[T any](g *T) *T {
	if reflect.ValueOf(*g).IsZero() {
		return nil
	}
	return g
}

func setText(dst *string, v *string, clean func(string) string) bool {
	if v == nil {
		return false
	}
	next := clean(*v)
	if next == *dst {
		return false
	}
	*dst = next
	return true
}

func setFlag(dst *bool, v *bool) bool {
	if v == nil || *v == *dst {
		return false
	}
	*dst = *v
	return true
}

func verify(dst *bool, v *bool, changed bool) {
	switch {
	case v != nil:
		*dst = *v
	case changed:
		*dst = false
	}
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
