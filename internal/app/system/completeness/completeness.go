// Package completeness counts how many required fields of a document are
// answered. Required fields are dotted two-level paths ("group.field").
//
// A path counts when both the group and the field are truthy: not nil, not
// an empty string, not false, not zero. Documents and arrays are truthy
// regardless of content.
package completeness

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Requirements holds the required-path lists used for counting. The zero
// value requires nothing; use DefaultRequirements for the BOIR lists.
type Requirements struct {
	Company     []string
	Owner       []string
	Applicant   []string
	ExemptOwner []string
}

// DefaultRequirements returns the BOIR required-field lists. Each call
// returns fresh slices so callers cannot alter another caller's lists.
func DefaultRequirements() Requirements {
	owner := []string{
		"personal_info.last_name",
		"personal_info.first_name",
		"personal_info.date_of_birth",
		"address.address",
		"address.city",
		"address.country_or_jurisdiction",
		"address.postal_code",
		"identification_details.doc_type",
		"identification_details.doc_number",
		"identification_details.country_or_jurisdiction",
		"identification_details.doc_img",
	}
	applicant := append(append([]string{}, owner...), "address.type")
	return Requirements{
		Company: []string{
			"names.legal_name",
			"tax_info.tax_id_type",
			"tax_info.tax_id_number",
			"formation_jurisdiction.country_or_jurisdiction",
			"address.address",
			"address.city",
			"address.us_or_us_territory",
			"address.state",
			"address.zip_code",
		},
		Owner:       owner,
		Applicant:   applicant,
		ExemptOwner: []string{"personal_info.last_name"},
	}
}

// For returns the required paths for a participant of the given kind.
func (r Requirements) For(kind models.ParticipantKind, exempt bool) []string {
	switch {
	case kind == models.KindApplicant:
		return r.Applicant
	case exempt:
		return r.ExemptOwner
	default:
		return r.Owner
	}
}

// Participant returns the answer count for p. In FinCEN ID mode the whole
// required list is considered answered.
func (r Requirements) Participant(kind models.ParticipantKind, p *models.Participant) int {
	paths := r.For(kind, p.IsExempt())
	if p.InFinCENMode() {
		return len(paths)
	}
	n, err := CountEntity(p, paths)
	if err != nil {
		return 0
	}
	return n
}

// Form returns the answer count for a company form.
func (r Requirements) Form(f *models.CompanyForm) int {
	n, err := CountEntity(f, r.Company)
	if err != nil {
		return 0
	}
	return n
}

// Totals holds a company's aggregated counters.
type Totals struct {
	Answers  int
	Required int
}

// Totals sums a company's counters from its form and participants. The
// required count is one company list, plus one owner list per owner (the
// exempt list for exempt owners), plus one applicant list per applicant when
// applicants are required. Answer counts are taken from the stored
// AnswerCount of each document.
func (r Requirements) Totals(c *models.Company, form *models.CompanyForm, owners, applicants []models.Participant) Totals {
	t := Totals{Required: len(r.Company)}
	if form != nil {
		t.Answers += form.AnswerCount
	}
	for i := range owners {
		t.Required += len(r.For(models.KindOwner, owners[i].IsExempt()))
		t.Answers += owners[i].AnswerCount
	}
	if c.ApplicantsRequired() {
		for i := range applicants {
			t.Required += len(r.Applicant)
			t.Answers += applicants[i].AnswerCount
		}
	}
	return t
}

// Count returns the number of paths populated in doc.
func Count(doc bson.M, paths []string) int {
	n := 0
	for _, p := range paths {
		if answered(doc, p) {
			n++
		}
	}
	return n
}

// Missing returns the paths not populated in doc, in input order.
func Missing(doc bson.M, paths []string) []string {
	var out []string
	for _, p := range paths {
		if !answered(doc, p) {
			out = append(out, p)
		}
	}
	return out
}

// CountEntity marshals v through bson and counts populated paths.
func CountEntity(v any, paths []string) (int, error) {
	doc, err := toDoc(v)
	if err != nil {
		return 0, err
	}
	return Count(doc, paths), nil
}

// MissingEntity marshals v through bson and returns unpopulated paths.
func MissingEntity(v any, paths []string) ([]string, error) {
	doc, err := toDoc(v)
	if err != nil {
		return nil, err
	}
	return Missing(doc, paths), nil
}

// Percent returns answered/required as a whole percentage, rounded. A
// document with nothing required is complete.
func Percent(answered, required int) int {
	if required <= 0 {
		return 100
	}
	if answered > required {
		answered = required
	}
	return int(math.Round(float64(answered) * 100 / float64(required)))
}

func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("completeness: marshal: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("completeness: unmarshal: %w", err)
	}
	return doc, nil
}

func answered(doc bson.M, path string) bool {
	group, field, ok := strings.Cut(path, ".")
	if !ok {
		v, found := lookup(doc, path)
		return found && truthy(v)
	}
	g, found := lookup(doc, group)
	if !found || !truthy(g) {
		return false
	}
	v, found := lookup(g, field)
	return found && truthy(v)
}

func lookup(container any, key string) (any, bool) {
	switch m := container.(type) {
	case bson.M:
		v, ok := m[key]
		return v, ok
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case bson.D:
		for _, e := range m {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case primitive.Null, primitive.Undefined:
		return false
	case time.Time:
		return !x.IsZero()
	}
	return true
}
