// Package codes holds the enumerations used by BOIR filings together with the
// short codes the FinCEN schema expects for them.
//
// Every Table is bidirectional (stored value <-> external code) and is built
// once at package init. A duplicate value or code is a programming error and
// panics at startup.
package codes

import (
	"fmt"
	"sort"
	"strings"
)

// Pair is one row of a code table.
type Pair struct {
	Value string
	Code  string
}

// Table maps the values stored on documents to external codes and back.
type Table struct {
	name     string
	byValue  map[string]string
	byCode   map[string]string
	byFolded map[string]string // lower-cased value or code -> value
	values   []string
}

func newTable(name string, pairs []Pair) *Table {
	t := &Table{
		name:     name,
		byValue:  make(map[string]string, len(pairs)),
		byCode:   make(map[string]string, len(pairs)),
		byFolded: make(map[string]string, len(pairs)*2),
		values:   make([]string, 0, len(pairs)),
	}
	for _, p := range pairs {
		if _, dup := t.byValue[p.Value]; dup {
			panic(fmt.Sprintf("codes: duplicate value %q in %s", p.Value, name))
		}
		if _, dup := t.byCode[p.Code]; dup {
			panic(fmt.Sprintf("codes: duplicate code %q in %s", p.Code, name))
		}
		t.byValue[p.Value] = p.Code
		t.byCode[p.Code] = p.Value
		t.values = append(t.values, p.Value)
	}
	// Codes are registered first so that a value spelled like another
	// entry's code still resolves to its own value.
	for _, p := range pairs {
		t.byFolded[strings.ToLower(p.Code)] = p.Value
	}
	for _, p := range pairs {
		t.byFolded[strings.ToLower(p.Value)] = p.Value
	}
	sort.Strings(t.values)
	return t
}

// Name returns the table name used in error messages.
func (t *Table) Name() string { return t.name }

// Code returns the external code for a stored value.
func (t *Table) Code(value string) (string, bool) {
	c, ok := t.byValue[value]
	return c, ok
}

// Value returns the stored value for an external code.
func (t *Table) Value(code string) (string, bool) {
	v, ok := t.byCode[code]
	return v, ok
}

// Has reports whether value is a member of the table.
func (t *Table) Has(value string) bool {
	_, ok := t.byValue[value]
	return ok
}

// Canonical resolves free-form input (a value or a code, any case) to the
// stored value.
func (t *Table) Canonical(input string) (string, bool) {
	v, ok := t.byFolded[strings.ToLower(strings.TrimSpace(input))]
	return v, ok
}

// Values returns the sorted list of stored values.
func (t *Table) Values() []string {
	out := make([]string, len(t.values))
	copy(out, t.values)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.values) }
