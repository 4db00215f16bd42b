// Package boirxml renders a company filing as a FinCEN BOIR XML submission.
//
// Every container element carries a SeqNum attribute drawn from one counter
// for the whole document. The counter is incremented as each container is
// created and containers are created in document order, so the numbers
// increase by exactly one in document order.
package boirxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/dalemusser/boirhub/internal/domain/codes"
	"github.com/dalemusser/boirhub/internal/domain/models"
)

const (
	prefix    = "fc2:"
	namespace = "www.fincen.gov/base"

	PartyCompany   = "62"
	PartyApplicant = "63"
	PartyOwner     = "64"
)

// ErrUnknownCode is returned when an enum value has no FinCEN code.
var ErrUnknownCode = errors.New("no FinCEN code for value")

// Submitter identifies the person filing.
type Submitter struct {
	Email     string
	FirstName string
	LastName  string
}

// Filing is everything needed to render one submission.
type Filing struct {
	Company    models.Company
	Form       models.CompanyForm
	Owners     []models.Participant
	Applicants []models.Participant
	Submitter  Submitter
	FiledAt    time.Time
}

// Marshal renders f as an indented XML document with declaration.
func Marshal(f Filing) ([]byte, error) {
	root, err := Build(f)
	if err != nil {
		return nil, err
	}
	return Encode(root)
}

// Encode renders a built tree as an indented XML document with declaration.
func Encode(root *Element) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Build assembles the element tree for f.
func Build(f Filing) (*Element, error) {
	b := &builder{}
	root := b.container("EFilingSubmissionXML")
	root.Attrs = append([]xml.Attr{
		{Name: xml.Name{Local: "xmlns:fc2"}, Value: namespace},
	}, root.Attrs...)

	root.leaf("SubmitterElectronicAddressText", f.Submitter.Email)
	root.leaf("SubmitterEntityIndivdualLastName", f.Submitter.LastName)
	root.leaf("SubmitterIndivdualFirstName", f.Submitter.FirstName)

	activity := root.append(b.container("Activity"))
	activity.leaf("ApproveSubmissionIndicator", "Y")
	activity.leaf("FilingDateText", date(f.FiledAt))
	assoc := activity.append(b.container("ActivityAssociation"))
	assoc.leaf("InitialReportIndicator", "Y")

	b.company(activity, &f.Company, &f.Form)
	if f.Company.ApplicantsRequired() {
		for i := range f.Applicants {
			b.participant(activity, models.KindApplicant, &f.Applicants[i])
		}
	}
	for i := range f.Owners {
		b.participant(activity, models.KindOwner, &f.Owners[i])
	}

	if b.err != nil {
		return nil, b.err
	}
	return root, nil
}

type builder struct {
	seq int
	err error
}

func (b *builder) container(name string) *Element {
	b.seq++
	return &Element{
		XMLName: xml.Name{Local: prefix + name},
		Attrs:   []xml.Attr{{Name: xml.Name{Local: "SeqNum"}, Value: strconv.Itoa(b.seq)}},
	}
}

// code translates a stored value. An empty value yields "" so the element
// is omitted; an unknown value records the first error.
func (b *builder) code(t *codes.Table, value string) string {
	if value == "" {
		return ""
	}
	c, ok := t.Code(value)
	if !ok {
		if b.err == nil {
			b.err = fmt.Errorf("%w: %s %q", ErrUnknownCode, t.Name(), value)
		}
		return ""
	}
	return c
}

func (b *builder) company(activity *Element, c *models.Company, f *models.CompanyForm) {
	party := activity.append(b.container("Party"))
	party.leaf("ActivityPartyTypeCode", PartyCompany)
	party.flag("ExistingReportingCompanyIndicator", c.IsExistingCompany)

	if j := f.FormationJurisdiction; j != nil {
		country := b.code(codes.Countries, j.CountryOrJurisdiction)
		state := b.code(codes.States, j.State)
		tribal := b.code(codes.TribalJurisdictions, j.TribalJurisdiction)
		other := ""
		if j.TribalJurisdiction == codes.TribalOther {
			other = j.NameOfOtherTribal
		}
		party.leaf("FormationCountryCodeText", country)
		if codes.IsDomestic(j.CountryOrJurisdiction) {
			party.leaf("FormationStateCodeText", state)
			party.leaf("FormationTribalCodeText", tribal)
			party.leaf("OtherFormationTribeDescription", other)
		} else {
			party.leaf("FirstRegistrationStateCodeText", state)
			party.leaf("FirstRegistrationTribalCodeText", tribal)
			party.leaf("OtherFirstRegistrationTribeText", other)
		}
	}

	if n := f.Names; n != nil {
		legal := party.append(b.container("PartyName"))
		legal.leaf("PartyNameTypeCode", "L")
		legal.leaf("RawPartyFullName", n.LegalName)
		for _, alt := range n.AltName {
			if alt == "" {
				continue
			}
			dba := party.append(b.container("PartyName"))
			dba.leaf("PartyNameTypeCode", "DBA")
			dba.leaf("RawPartyFullName", alt)
		}
	}

	if a := f.Address; a != nil {
		addr := party.append(b.container("Address"))
		addr.leaf("RawCityText", a.City)
		addr.leaf("RawCountryCodeText", b.code(codes.Countries, a.UsOrUsTerritory))
		addr.leaf("RawStateCodeText", b.code(codes.States, a.State))
		addr.leaf("RawStreetAddress1Text", a.Address)
		addr.leaf("RawZIPCode", a.ZipCode)
	}

	if t := f.TaxInfo; t != nil {
		id := party.append(b.container("PartyIdentification"))
		if t.TaxIDType == codes.TaxForeign {
			id.leaf("OtherIssuerCountryText", b.code(codes.Countries, t.CountryOrJurisdiction))
		}
		id.leaf("PartyIdentificationNumberText", t.TaxIDNumber)
		id.leaf("PartyIdentificationTypeCode", b.code(codes.TaxIDTypes, t.TaxIDType))
	}
}

func (b *builder) participant(activity *Element, kind models.ParticipantKind, p *models.Participant) {
	party := activity.append(b.container("Party"))
	if kind == models.KindApplicant {
		party.leaf("ActivityPartyTypeCode", PartyApplicant)
	} else {
		party.leaf("ActivityPartyTypeCode", PartyOwner)
	}

	if p.InFinCENMode() {
		party.leaf("FinCENID", p.FinCENIDValue())
		return
	}

	if kind == models.KindOwner && p.IsExempt() {
		party.leaf("ExemptIndicator", "Y")
		name := party.append(b.container("PartyName"))
		name.leaf("PartyNameTypeCode", "L")
		name.leaf("RawEntityIndividualLastName", p.LastName())
		return
	}
	if kind == models.KindOwner && p.BeneficialOwner != nil {
		party.flag("ParentOrLegalGuardianForMinorChildIndicator", p.BeneficialOwner.IsParentOrGuardianInformation)
	}

	if pi := p.PersonalInfo; pi != nil {
		if pi.DateOfBirth != nil {
			party.leaf("IndividualBirthDateText", date(*pi.DateOfBirth))
		}
		name := party.append(b.container("PartyName"))
		name.leaf("PartyNameTypeCode", "L")
		name.leaf("RawEntityIndividualLastName", pi.LastName)
		name.leaf("RawIndividualFirstName", pi.FirstName)
		name.leaf("RawIndividualMiddleName", pi.MiddleName)
		name.leaf("RawIndividualNameSuffixText", pi.Suffix)
	}

	if a := p.Address; a != nil {
		addr := party.append(b.container("Address"))
		if kind == models.KindApplicant {
			addr.flag("BusinessAddressIndicator", a.Type == codes.AddressBusiness)
			addr.flag("ResidentialAddressIndicator", a.Type == codes.AddressResidential)
		}
		addr.leaf("RawCityText", a.City)
		addr.leaf("RawCountryCodeText", b.code(codes.Countries, a.CountryOrJurisdiction))
		addr.leaf("RawStateCodeText", b.code(codes.States, a.State))
		addr.leaf("RawStreetAddress1Text", a.Address)
		addr.leaf("RawZIPCode", a.PostalCode)
	}

	if d := p.IdentificationDetails; d != nil {
		id := party.append(b.container("PartyIdentification"))
		if d.DocImg != "" {
			id.leaf("OriginalAttachmentFileName", path.Base(d.DocImg))
		}
		id.leaf("OtherIssuerCountryText", b.code(codes.Countries, d.CountryOrJurisdiction))
		if codes.IsDomestic(d.CountryOrJurisdiction) || d.CountryOrJurisdiction == "" {
			id.leaf("OtherIssuerStateText", b.code(codes.States, d.State))
			id.leaf("IssuerLocalTribalCodeText", b.code(codes.TribalJurisdictions, d.LocalOrTribal))
			if d.LocalOrTribal == codes.TribalOther {
				id.leaf("OtherIssuerLocalTribalText", d.OtherLocalOrTribalDesc)
			}
		}
		id.leaf("PartyIdentificationNumberText", d.DocNumber)
		id.leaf("PartyIdentificationTypeCode", b.code(codes.DocTypes, d.DocType))
	}
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("20060102")
}
