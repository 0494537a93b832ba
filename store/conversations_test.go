// ABOUTME: Tests for conversation and transcript operations
// ABOUTME: Covers lifecycle, lead linking and summaries
package store

import (
	"context"
	"testing"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationLifecycle(t *testing.T) {
	clock := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	s := New(Options{Now: func() time.Time { return clock }})
	ctx := context.Background()

	conv, err := s.StartConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, conv.ID)
	assert.Equal(t, models.ConversationActive, conv.Status)
	assert.Nil(t, conv.EndTime)

	_, err = s.SaveMessage(ctx, models.Message{ConversationID: "conv-1", UserID: "user-9", Message: "hi"})
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, models.Message{ConversationID: "conv-1", UserID: models.BotUserID, Message: "hello!"})
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, models.Message{ConversationID: "other", UserID: "user-2", Message: "elsewhere"})
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hi", got.Messages[0].Message)
	assert.Equal(t, clock, got.Messages[0].Timestamp)

	clock = clock.Add(90 * time.Second)
	ended, err := s.EndConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationCompleted, ended.Status)
	require.NotNil(t, ended.EndTime)

	clock = clock.Add(time.Hour)
	sum, err := s.ConversationSummary(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalMessages)
	assert.Equal(t, 1, sum.UserMessages)
	assert.Equal(t, 1, sum.BotMessages)
	assert.Equal(t, 90*time.Second, sum.Duration)
	assert.False(t, sum.LeadCreated)
}

func TestActiveConversationDurationRunsToNow(t *testing.T) {
	clock := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	s := New(Options{Now: func() time.Time { return clock }})
	ctx := context.Background()

	_, err := s.StartConversation(ctx, "live")
	require.NoError(t, err)
	clock = clock.Add(5 * time.Minute)

	sum, err := s.ConversationSummary(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, sum.Duration)
}

func TestLinkConversationToLead(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	_, err := s.StartConversation(ctx, "a")
	require.NoError(t, err)
	_, err = s.StartConversation(ctx, "b")
	require.NoError(t, err)

	linked, err := s.LinkConversationToLead(ctx, "b", 4)
	require.NoError(t, err)
	assert.True(t, linked.LeadCreated)
	require.NotNil(t, linked.LeadID)
	assert.Equal(t, 4, *linked.LeadID)

	byLead, err := s.ConversationsByLead(ctx, 4)
	require.NoError(t, err)
	require.Len(t, byLead, 1)
	assert.Equal(t, "b", byLead[0].ConversationID)

	all, err := s.ListConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestConversationNotFound(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	_, err := s.EndConversation(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Conversation not found", err.Error())

	_, err = s.GetConversation(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LinkConversationToLead(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ConversationSummary(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, err := s.StartConversation(ctx, "snap")
	require.NoError(t, err)

	snap := s.Snapshot()
	leads, err := s.ListLeads(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Leads, len(leads))
	assert.Len(t, snap.Conversations, 1)
	assert.False(t, snap.TakenAt.IsZero())
}

func TestNewFromSnapshotKeepsTranscripts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, err := s.StartConversation(ctx, "restore")
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, models.Message{ConversationID: "restore", UserID: "u1", Message: "hi"})
	require.NoError(t, err)

	snap := s.Snapshot()
	restored := New(Options{Latency: NoLatency, Fixtures: &snap})

	conv, err := restored.GetConversation(ctx, "restore")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)

	next, err := restored.StartConversation(ctx, "after")
	require.NoError(t, err)
	assert.Equal(t, 2, next.ID)
}

func TestConversationCRUDByID(t *testing.T) {
	clock := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	s := New(Options{Now: func() time.Time { return clock }})
	ctx := context.Background()

	first, err := s.StartConversation(ctx, "conv-a")
	require.NoError(t, err)
	second, err := s.StartConversation(ctx, "conv-b")
	require.NoError(t, err)

	got, err := s.GetConversationByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "conv-b", got.ConversationID)

	end := clock.Add(time.Minute)
	updated, err := s.UpdateConversation(ctx, first.ID, models.ConversationPatch{
		Status:  models.String(models.ConversationCompleted),
		EndTime: &end,
		LeadID:  models.Ref(4),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConversationCompleted, updated.Status)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, "conv-a", updated.ConversationID)
	assert.Equal(t, clock, updated.StartTime)
	require.NotNil(t, updated.LeadID)
	assert.Equal(t, 4, *updated.LeadID)

	unlinked, err := s.UpdateConversation(ctx, first.ID, models.ConversationPatch{LeadID: models.Ref(0)})
	require.NoError(t, err)
	assert.Nil(t, unlinked.LeadID)
	assert.Equal(t, models.ConversationCompleted, unlinked.Status, "nil fields stay unchanged")

	removed, err := s.DeleteConversation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "conv-a", removed.ConversationID)

	_, err = s.GetConversation(ctx, "conv-a")
	assert.ErrorIs(t, err, ErrNotFound)

	third, err := s.StartConversation(ctx, "conv-c")
	require.NoError(t, err)
	assert.Equal(t, 3, third.ID, "ids are not reused")
}

func TestConversationByIDNotFound(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	_, err := s.GetConversationByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Conversation not found")

	_, err = s.UpdateConversation(ctx, 42, models.ConversationPatch{Status: models.String(models.ConversationCompleted)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.DeleteConversation(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversationByIDReturnsCopies(t *testing.T) {
	s := New(Options{})
	ctx := context.Background()

	conv, err := s.StartConversation(ctx, "conv-x")
	require.NoError(t, err)
	_, err = s.LinkConversationToLead(ctx, "conv-x", 7)
	require.NoError(t, err)

	got, err := s.GetConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LeadID)
	*got.LeadID = 99

	again, err := s.GetConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, *again.LeadID)
}
