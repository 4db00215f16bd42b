package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
		{"Mixed.Case@Domain.ORG", "mixed.case@domain.org"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Email(tt.input)
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John Doe", "John Doe"},
		{"  John Doe  ", "John Doe"},
		{"John   Q.  Doe", "John Q. Doe"},
		{"", ""},
		{"   ", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"}, // Name preserves case
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRole(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"admin", "admin"},
		{"  ADMIN ", "admin"},
		{"User", "user"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Role(tt.input); got != tt.want {
				t.Errorf("Role(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12-3456789", "123456789"},
		{" 123 45 6789 ", "123456789"},
		{"x1234.567/8", "X12345678"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Identifier(tt.input); got != tt.want {
				t.Errorf("Identifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
