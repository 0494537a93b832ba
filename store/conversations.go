// ABOUTME: Chat conversation and transcript operations
// ABOUTME: Tracks widget conversations, their messages and links to leads
package store

import (
	"context"

	"github.com/harperreed/leadpipe/models"
)

// StartConversation records a new active conversation for an external id.
func (s *Store) StartConversation(ctx context.Context, externalID string) (models.Conversation, error) {
	s.convMu.Lock()
	maxID := 0
	for _, c := range s.convs {
		maxID = max(maxID, c.ID)
	}
	conv := models.Conversation{
		ID:             nextID(&s.convsHigh, maxID),
		ConversationID: externalID,
		StartTime:      s.now(),
		Status:         models.ConversationActive,
	}
	s.convs = append(s.convs, conv)
	s.convMu.Unlock()

	if err := s.wait(ctx, OpChat); err != nil {
		return models.Conversation{}, err
	}
	return conv.Clone(), nil
}

// EndConversation stamps the end time and marks the conversation completed.
func (s *Store) EndConversation(ctx context.Context, externalID string) (models.Conversation, error) {
	s.convMu.Lock()
	i := s.conversationIndex(externalID)
	if i < 0 {
		s.convMu.Unlock()
		return models.Conversation{}, notFound("Conversation", externalID)
	}
	end := s.now()
	s.convs[i].EndTime = &end
	s.convs[i].Status = models.ConversationCompleted
	out := s.convs[i].Clone()
	s.convMu.Unlock()

	if err := s.wait(ctx, OpChat); err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

// SaveMessage appends a message to the transcript. The timestamp defaults to now.
// Messages for unknown conversations are kept as well.
func (s *Store) SaveMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	s.convMu.Lock()
	maxID := 0
	for _, m := range s.messages {
		maxID = max(maxID, m.ID)
	}
	msg.ID = nextID(&s.messageHigh, maxID)
	s.messages = append(s.messages, msg)
	s.convMu.Unlock()

	if err := s.wait(ctx, OpChat); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetConversation returns a conversation with its messages in arrival order.
func (s *Store) GetConversation(ctx context.Context, externalID string) (models.ConversationWithMessages, error) {
	s.convMu.RLock()
	out, ok := s.conversationWithMessages(externalID)
	s.convMu.RUnlock()

	if !ok {
		return models.ConversationWithMessages{}, notFound("Conversation", externalID)
	}
	if err := s.wait(ctx, OpChat); err != nil {
		return models.ConversationWithMessages{}, err
	}
	return out, nil
}

func (s *Store) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	s.convMu.RLock()
	out := make([]models.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, c.Clone())
	}
	s.convMu.RUnlock()

	if err := s.wait(ctx, OpChat); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversationByID looks a conversation up by its internal id.
func (s *Store) GetConversationByID(ctx context.Context, id int) (models.Conversation, error) {
	s.convMu.RLock()
	i := s.conversationIndexByID(id)
	var out models.Conversation
	if i >= 0 {
		out = s.convs[i].Clone()
	}
	s.convMu.RUnlock()

	if i < 0 {
		return models.Conversation{}, notFound("Conversation", id)
	}
	if err := s.wait(ctx, OpGet); err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

// UpdateConversation applies patch to the conversation with internal id.
// Id, external id and start time are preserved.
func (s *Store) UpdateConversation(ctx context.Context, id int, patch models.ConversationPatch) (models.Conversation, error) {
	s.convMu.Lock()
	i := s.conversationIndexByID(id)
	if i < 0 {
		s.convMu.Unlock()
		return models.Conversation{}, notFound("Conversation", id)
	}
	updated := s.convs[i].Clone()
	patch.Apply(&updated)
	updated.ID = s.convs[i].ID
	updated.ConversationID = s.convs[i].ConversationID
	updated.StartTime = s.convs[i].StartTime
	s.convs[i] = updated
	out := updated.Clone()
	s.convMu.Unlock()

	if err := s.wait(ctx, OpUpdate); err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

// DeleteConversation removes a conversation and returns it. Its messages stay
// in the transcript log, like messages for conversations never started.
func (s *Store) DeleteConversation(ctx context.Context, id int) (models.Conversation, error) {
	s.convMu.Lock()
	i := s.conversationIndexByID(id)
	if i < 0 {
		s.convMu.Unlock()
		return models.Conversation{}, notFound("Conversation", id)
	}
	removed := s.convs[i]
	s.convs = append(s.convs[:i], s.convs[i+1:]...)
	s.convMu.Unlock()

	if err := s.wait(ctx, OpDelete); err != nil {
		return models.Conversation{}, err
	}
	return removed, nil
}

// ConversationsByLead returns the conversations linked to a lead.
func (s *Store) ConversationsByLead(ctx context.Context, leadID int) ([]models.Conversation, error) {
	s.convMu.RLock()
	var out []models.Conversation
	for _, c := range s.convs {
		if models.RefEquals(c.LeadID, leadID) {
			out = append(out, c.Clone())
		}
	}
	s.convMu.RUnlock()

	if err := s.wait(ctx, OpChat); err != nil {
		return nil, err
	}
	return out, nil
}

// LinkConversationToLead attaches a lead and flags the conversation as lead-producing.
func (s *Store) LinkConversationToLead(ctx context.Context, externalID string, leadID int) (models.Conversation, error) {
	s.convMu.Lock()
	i := s.conversationIndex(externalID)
	if i < 0 {
		s.convMu.Unlock()
		return models.Conversation{}, notFound("Conversation", externalID)
	}
	s.convs[i].LeadID = models.NormalizeRef(&leadID)
	s.convs[i].LeadCreated = true
	out := s.convs[i].Clone()
	s.convMu.Unlock()

	if err := s.wait(ctx, OpChat); err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

// ConversationSummary counts user and bot messages and measures the
// conversation duration, up to now while it is still active.
func (s *Store) ConversationSummary(ctx context.Context, externalID string) (models.ConversationSummary, error) {
	s.convMu.RLock()
	conv, ok := s.conversationWithMessages(externalID)
	s.convMu.RUnlock()

	if !ok {
		return models.ConversationSummary{}, notFound("Conversation", externalID)
	}

	sum := models.ConversationSummary{
		ConversationID: externalID,
		TotalMessages:  len(conv.Messages),
		LeadCreated:    conv.LeadCreated,
		LeadID:         conv.LeadID,
	}
	for _, m := range conv.Messages {
		if m.FromBot() {
			sum.BotMessages++
		} else {
			sum.UserMessages++
		}
	}
	end := s.now()
	if conv.EndTime != nil {
		end = *conv.EndTime
	}
	sum.Duration = end.Sub(conv.StartTime)

	if err := s.wait(ctx, OpChat); err != nil {
		return models.ConversationSummary{}, err
	}
	return sum, nil
}

// caller holds convMu
func (s *Store) conversationWithMessages(externalID string) (models.ConversationWithMessages, bool) {
	i := s.conversationIndex(externalID)
	if i < 0 {
		return models.ConversationWithMessages{}, false
	}
	out := models.ConversationWithMessages{Conversation: s.convs[i].Clone(), Messages: []models.Message{}}
	for _, m := range s.messages {
		if m.ConversationID == externalID {
			out.Messages = append(out.Messages, m)
		}
	}
	return out, true
}

// caller holds convMu
func (s *Store) conversationIndex(externalID string) int {
	for i := range s.convs {
		if s.convs[i].ConversationID == externalID {
			return i
		}
	}
	return -1
}

// caller holds convMu
func (s *Store) conversationIndexByID(id int) int {
	for i := range s.convs {
		if s.convs[i].ID == id {
			return i
		}
	}
	return -1
}
