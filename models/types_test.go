// ABOUTME: Tests for CRM data models
// ABOUTME: Validates stage rules, patches, cloning and weak reference coercion
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageProbability(t *testing.T) {
	tests := []struct {
		stage    string
		expected int
	}{
		{StageProspecting, 20},
		{StageProposal, 50},
		{StageNegotiation, 75},
		{StageClosedWon, 100},
		{StageClosedLost, 0},
	}

	for _, tt := range tests {
		p, ok := StageProbability(tt.stage)
		require.True(t, ok, tt.stage)
		assert.Equal(t, tt.expected, p, tt.stage)
	}

	_, ok := StageProbability("won-ish")
	assert.False(t, ok)
}

func TestNextStages(t *testing.T) {
	assert.Equal(t, []string{StageProposal}, NextStages(StageProspecting))
	assert.Equal(t, []string{StageNegotiation}, NextStages(StageProposal))
	assert.Equal(t, []string{StageClosedWon, StageClosedLost}, NextStages(StageNegotiation))
	assert.Empty(t, NextStages(StageClosedWon))
	assert.Empty(t, NextStages(StageClosedLost))

	next := NextStages(StageProspecting)
	next[0] = "mutated"
	assert.Equal(t, []string{StageProposal}, NextStages(StageProspecting))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StageProspecting, StageProposal))
	assert.True(t, CanTransition(StageNegotiation, StageClosedLost))
	assert.False(t, CanTransition(StageProspecting, StageNegotiation))
	assert.False(t, CanTransition(StageProposal, StageProspecting))
	assert.False(t, CanTransition(StageClosedWon, StageProspecting))
}

func TestStageName(t *testing.T) {
	assert.Equal(t, "Closed Won", StageName(StageClosedWon))
	assert.Equal(t, "custom", StageName("custom"))
}

func TestNormalizeRef(t *testing.T) {
	assert.Nil(t, NormalizeRef(nil))
	assert.Nil(t, NormalizeRef(Ref(0)))
	assert.Nil(t, NormalizeRef(Ref(-3)))

	in := Ref(7)
	out := NormalizeRef(in)
	require.NotNil(t, out)
	assert.Equal(t, 7, *out)
	*in = 9
	assert.Equal(t, 7, *out)
}

func TestLeadCloneIsDeep(t *testing.T) {
	now := time.Now()
	summary := "asked about pricing"
	lead := Lead{ID: 1, FirstName: "Ada", LastContact: &now, ChatSummary: &summary}

	c := lead.Clone()
	*c.ChatSummary = "changed"
	*c.LastContact = now.Add(time.Hour)

	assert.Equal(t, "asked about pricing", *lead.ChatSummary)
	assert.True(t, lead.LastContact.Equal(now))
}

func TestLeadPatchApply(t *testing.T) {
	lead := Lead{ID: 3, FirstName: "Ada", LastName: "Lovelace", Status: LeadStatusNew}

	LeadPatch{Status: String(LeadStatusQualified)}.Apply(&lead)

	assert.Equal(t, LeadStatusQualified, lead.Status)
	assert.Equal(t, "Ada", lead.FirstName)
	assert.Equal(t, "Lovelace", lead.LastName)
	assert.Equal(t, "Ada Lovelace", lead.FullName())
}

func TestDealPatchCoercesRefs(t *testing.T) {
	deal := Deal{ID: 1, LeadID: Ref(4)}

	DealPatch{LeadID: Ref(0)}.Apply(&deal)
	assert.Nil(t, deal.LeadID)

	DealPatch{LeadID: Ref(5)}.Apply(&deal)
	require.NotNil(t, deal.LeadID)
	assert.Equal(t, 5, *deal.LeadID)
}

func TestActivityCallNotes(t *testing.T) {
	assert.Equal(t, "notes", Activity{Notes: "notes", Description: "desc"}.CallNotes())
	assert.Equal(t, "desc", Activity{Notes: "  ", Description: "desc"}.CallNotes())
	assert.Equal(t, "", Activity{}.CallNotes())
}

func TestNotificationCloneCopiesData(t *testing.T) {
	n := Notification{Data: map[string]string{"leadName": "Ada"}}
	c := n.Clone()
	c.Data["leadName"] = "Grace"
	assert.Equal(t, "Ada", n.Data["leadName"])
}
