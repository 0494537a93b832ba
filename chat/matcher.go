// ABOUTME: Lead deduplication for chat-synthesized leads
// ABOUTME: Finds existing leads by normalized email before creating new ones
package chat

import (
	"strings"

	"github.com/harperreed/leadpipe/models"
)

type LeadMatcher struct {
	byEmail map[string]models.Lead
}

// NewLeadMatcher creates a matcher from existing leads.
func NewLeadMatcher(leads []models.Lead) *LeadMatcher {
	m := &LeadMatcher{byEmail: make(map[string]models.Lead)}
	for _, l := range leads {
		m.AddLead(l)
	}
	return m
}

// FindMatch looks for an existing lead by email.
func (m *LeadMatcher) FindMatch(email string) (models.Lead, bool) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return models.Lead{}, false
	}
	lead, found := m.byEmail[normalized]
	return lead, found
}

// AddLead registers a lead so later lookups in the same session find it.
func (m *LeadMatcher) AddLead(lead models.Lead) {
	if email := normalizeEmail(lead.Email); email != "" {
		if _, exists := m.byEmail[email]; !exists {
			m.byEmail[email] = lead
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func extractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// companyFromEmail guesses a company name from the email domain.
func companyFromEmail(email string) string {
	domain := extractDomain(normalizeEmail(email))
	if domain == "" {
		return ""
	}
	name, _, _ := strings.Cut(domain, ".")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
