package chat

import (
	"testing"

	"github.com/harperreed/leadpipe/models"
)

func TestMatchLeadByEmail(t *testing.T) {
	existing := []models.Lead{
		{ID: 1, FirstName: "Alice", Email: "alice@example.com"},
		{ID: 2, FirstName: "Bob", Email: "Bob@Example.com"},
	}

	matcher := NewLeadMatcher(existing)

	match, found := matcher.FindMatch("ALICE@example.com ")
	if !found {
		t.Fatal("expected to find match for alice@example.com")
	}
	if match.ID != 1 {
		t.Errorf("expected lead 1, got %d", match.ID)
	}

	if _, found := matcher.FindMatch("bob@example.com"); !found {
		t.Error("expected stored emails to be normalized")
	}

	if _, found := matcher.FindMatch("charlie@example.com"); found {
		t.Error("expected no match for charlie@example.com")
	}

	if _, found := matcher.FindMatch(""); found {
		t.Error("empty email must never match")
	}

	matcher.AddLead(models.Lead{ID: 3, Email: "charlie@example.com"})
	if match, found := matcher.FindMatch("charlie@example.com"); !found || match.ID != 3 {
		t.Error("expected newly added lead to match")
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Alice@Example.com", "alice@example.com"},
		{"  alice.smith@example.com ", "alice.smith@example.com"},
		{"ALICE@EXAMPLE.COM", "alice@example.com"},
	}

	for _, tt := range tests {
		result := normalizeEmail(tt.input)
		if result != tt.expected {
			t.Errorf("normalizeEmail(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestCompanyFromEmail(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"alice@acme.com", "Acme"},
		{"bob@techcorp.co.uk", "Techcorp"},
		{"invalid", ""},
		{"x@", ""},
	}

	for _, tt := range tests {
		result := companyFromEmail(tt.email)
		if result != tt.expected {
			t.Errorf("companyFromEmail(%q) = %q, want %q", tt.email, result, tt.expected)
		}
	}
}
