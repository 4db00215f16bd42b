// Package normalize canonicalizes user-supplied identifiers before they are
// stored or compared.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses runs of whitespace. Case is
// preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role trims and lowercases a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Identifier uppercases an id number and drops separators (spaces, dashes,
// dots and slashes) so "12-3456789" and "123456789" compare equal.
func Identifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), r == '-', r == '.', r == '/':
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
