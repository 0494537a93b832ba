// ABOUTME: Chat widget event contract
// ABOUTME: Event types emitted by the widget and their accepted aliases
package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrChatDisabled is returned when the widget configuration is incomplete.
var ErrChatDisabled = errors.New("chat assistant disabled")

// Event types.
const (
	EventMessage             = "message"
	EventConversationStarted = "conversation.started"
	EventConversationEnded   = "conversation.ended"
	EventWidgetOpened        = "widget.opened"
	EventWidgetClosed        = "widget.closed"
)

var eventAliases = map[string]string{
	"webchat.opened": EventWidgetOpened,
	"webchat.closed": EventWidgetClosed,
}

// Event is one notification from the chat widget.
type Event struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversationId,omitempty"`
	UserID         string    `json:"userId,omitempty"`
	Message        string    `json:"message,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
}

// Normalized returns the event with alias type names mapped to canonical ones.
func (e Event) Normalized() Event {
	if canonical, ok := eventAliases[e.Type]; ok {
		e.Type = canonical
	}
	return e
}

// NewConversationID returns a fresh opaque conversation id.
func NewConversationID() string {
	return uuid.NewString()
}
