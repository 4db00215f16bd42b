// internal/app/system/csvimport/sanitize.go
package csvimport

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/app/system/normalize"
	"github.com/microcosm-cc/bluemonday"
)

// UserDraft is the owning user named on a row.
type UserDraft struct {
	Email     string
	FirstName string
	LastName  string
}

// CompanyDraft holds a row's company-level values and company form patch.
// Nil pointers mean the column was absent or blank.
type CompanyDraft struct {
	ExpirationTime    *time.Time
	IsExistingCompany *bool
	IsForeignPooled   *bool
	Form              formmerge.CompanyFormPatch
}

// ExistingCompany reports the row's existing-company flag.
func (d *CompanyDraft) ExistingCompany() bool {
	return d.IsExistingCompany != nil && *d.IsExistingCompany
}

// ForeignPooled reports the row's foreign-pooled flag.
func (d *CompanyDraft) ForeignPooled() bool {
	return d.IsForeignPooled != nil && *d.IsForeignPooled
}

// Result is the sanitized form of one row.
//
// Errors are problems with the data; Reasons are notes about data that was
// dropped or ignored. CompanyDeleted marks the row as rejected: nothing from
// it may be written.
type Result struct {
	Line           int
	User           UserDraft
	Company        CompanyDraft
	Owners         []formmerge.ParticipantPatch
	Applicants     []formmerge.ParticipantPatch
	Errors         []string
	Reasons        []string
	CompanyDeleted bool
}

// Reject marks the row rejected with msg.
func (r *Result) Reject(msg string) {
	r.CompanyDeleted = true
	r.Errors = append(r.Errors, msg)
}

// Errorf records a data problem without rejecting the row.
func (r *Result) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Reasonf records a note about dropped data.
func (r *Result) Reasonf(format string, args ...any) {
	r.Reasons = append(r.Reasons, fmt.Sprintf(format, args...))
}

// Participants returns the patches for a section.
func (r *Result) Participants(s Section) []formmerge.ParticipantPatch {
	if s == SectionApplicant {
		return r.Applicants
	}
	return r.Owners
}

// Label names a cell in messages: "Owner Last Name (owner 2)". idx < 0
// means a single-valued column.
func Label(header string, s Section, idx int) string {
	if idx < 0 {
		return header
	}
	return fmt.Sprintf("%s (%s %d)", header, s, idx+1)
}

// Sanitizer turns raw rows into drafts. It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a Sanitizer that strips all markup from text cells.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize converts one row.
func (s *Sanitizer) Sanitize(row Row) *Result {
	res := &Result{Line: row.Line}

	user := s.section(row, UserFields, SectionUser, 0, res)
	res.User = UserDraft{
		Email:     normalize.Email(asString(user[""]["email"])),
		FirstName: asString(user[""]["first_name"]),
		LastName:  asString(user[""]["last_name"]),
	}

	company := s.section(row, CompanyFields, SectionCompany, 0, res)
	top := company[""]
	if t, ok := top[PathExpiration].(time.Time); ok {
		res.Company.ExpirationTime = &t
	}
	if b, ok := top[PathExistingCompany].(bool); ok {
		res.Company.IsExistingCompany = &b
	}
	if b, ok := top[PathForeignPooled].(bool); ok {
		res.Company.IsForeignPooled = &b
	}
	delete(company, "")
	if err := decodeInto(company, &res.Company.Form); err != nil {
		res.Reject(fmt.Sprintf("company columns could not be read: %v", err))
	}

	res.Owners = s.participants(row, SectionOwner, res)
	if res.Company.ForeignPooled() && len(res.Owners) > 1 {
		res.Reasonf("Foreign pooled investment vehicle reports a single owner; %d additional owner(s) dropped", len(res.Owners)-1)
		res.Owners = res.Owners[:1]
	}

	if res.Company.ExistingCompany() || res.Company.ForeignPooled() {
		if slots(row, ApplicantFields) > 0 {
			res.Reasonf("Applicant columns ignored: applicants are not reported for existing or foreign pooled companies")
		}
	} else {
		res.Applicants = s.participants(row, SectionApplicant, res)
	}
	return res
}

func (s *Sanitizer) participants(row Row, sec Section, res *Result) []formmerge.ParticipantPatch {
	fields := Fields(sec)
	finHeader := fields[0].Header
	n := slots(row, fields)

	var out []formmerge.ParticipantPatch
	for i := 0; i < n; i++ {
		if !slotUsed(row, fields, i) {
			continue
		}
		var p formmerge.ParticipantPatch
		if id := s.clean(row.Get(finHeader, i)); id != "" {
			p.FinCENID = &formmerge.FinCENIDPatch{FinCENID: &id}
			if slotUsed(row, fields[1:], i) {
				res.Reasonf("%s: FinCEN ID supplied, remaining %s columns ignored", Label(finHeader, sec, i), sec)
			}
			out = append(out, p)
			continue
		}
		doc := s.section(row, fields, sec, i, res)
		if err := decodeInto(doc, &p); err != nil {
			res.Errorf("%s %d: columns could not be read: %v", sec, i+1, err)
			continue
		}
		if !p.IsEmpty() {
			out = append(out, p)
		}
	}
	return out
}

// section coerces the columns of one slot into a group -> field -> value
// document. Top-level paths land in the "" group.
func (s *Sanitizer) section(row Row, fields []Field, sec Section, idx int, res *Result) map[string]map[string]any {
	doc := make(map[string]map[string]any)
	label := -1
	if sec == SectionOwner || sec == SectionApplicant {
		label = idx
	}
	for _, f := range fields {
		raw := row.Get(f.Header, idx)
		if raw == "" {
			continue
		}
		v, ok := s.coerce(f, raw, sec, label, res)
		if !ok {
			continue
		}
		group, field, nested := strings.Cut(f.Path, ".")
		if !nested {
			group, field = "", f.Path
		}
		if doc[group] == nil {
			doc[group] = make(map[string]any)
		}
		doc[group][field] = v
	}
	return doc
}

func (s *Sanitizer) coerce(f Field, raw string, sec Section, idx int, res *Result) (any, bool) {
	switch f.Kind {
	case KindBool:
		b, ok := parseBool(raw)
		if !ok {
			res.Reasonf("%s: %q is not true or false; ignored", Label(f.Header, sec, idx), raw)
		}
		return b, ok
	case KindDate:
		t, err := formmerge.ParseDate(raw)
		if err != nil {
			if f.Path == PathExpiration {
				res.Reject(fmt.Sprintf("%s: %q is not a valid date", f.Header, raw))
			} else {
				res.Reasonf("%s: %q is not a valid date; left blank", Label(f.Header, sec, idx), raw)
			}
			return nil, false
		}
		if f.Path == PathExpiration {
			return t, true
		}
		return t.Format("2006-01-02"), true
	case KindList:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if v := s.clean(part); v != "" {
				out = append(out, v)
			}
		}
		return out, len(out) > 0
	case KindEnum:
		v := s.clean(raw)
		if c, ok := f.Table.Canonical(v); ok {
			return c, true
		}
		return v, v != ""
	}
	v := s.clean(raw)
	return v, v != ""
}

func (s *Sanitizer) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

// slots returns the highest slot index with a non-blank cell in any of the
// fields, plus one.
func slots(row Row, fields []Field) int {
	n := 0
	for _, f := range fields {
		vs := row.Values[f.Header]
		for i := len(vs) - 1; i >= n; i-- {
			if strings.TrimSpace(vs[i]) != "" {
				n = i + 1
				break
			}
		}
	}
	return n
}

func slotUsed(row Row, fields []Field, i int) bool {
	for _, f := range fields {
		if row.Get(f.Header, i) != "" {
			return true
		}
	}
	return false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// decodeInto maps a coerced document onto a patch struct through JSON so
// that every present key becomes a non-nil pointer.
func decodeInto(doc map[string]map[string]any, dst any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
