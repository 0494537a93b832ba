// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Lead, Deal, Activity, Conversation, Message and Notification structs
package models

import (
	"strings"
	"time"
)

// Lead statuses.
const (
	LeadStatusNew       = "new"
	LeadStatusQualified = "qualified"
	LeadStatusContacted = "contacted"
	LeadStatusLost      = "lost"
)

// Lead sources.
const (
	SourceWebsite  = "website"
	SourceEmail    = "email"
	SourcePhone    = "phone"
	SourceReferral = "referral"
	SourceSocial   = "social"
	SourceChatBot  = "chat-bot"
	SourceManual   = "manual"
)

// Activity types.
const (
	ActivityCall           = "call"
	ActivityEmail          = "email"
	ActivityMeeting        = "meeting"
	ActivityTask           = "task"
	ActivityNote           = "note"
	ActivityBotInteraction = "bot-interaction"
)

// Conversation statuses.
const (
	ConversationActive    = "active"
	ConversationCompleted = "completed"
)

// BotUserID is the sender id the chat widget uses for bot messages.
const BotUserID = "bot"

var (
	LeadStatuses  = []string{LeadStatusNew, LeadStatusQualified, LeadStatusContacted, LeadStatusLost}
	LeadSources   = []string{SourceWebsite, SourceEmail, SourcePhone, SourceReferral, SourceSocial, SourceChatBot, SourceManual}
	ActivityTypes = []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask, ActivityNote, ActivityBotInteraction}
)

type Lead struct {
	ID             int        `json:"Id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	Company        string     `json:"company"`
	ProductName    string     `json:"productName,omitempty"`
	RRI            string     `json:"rri,omitempty"`
	Status         string     `json:"status"`
	Source         string     `json:"source"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastContact    *time.Time `json:"lastContact"`
	ConversationID string     `json:"conversationId,omitempty"`
	BotGenerated   bool       `json:"botGenerated"`
	ChatSummary    *string    `json:"chatSummary"`
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Clone returns a copy that shares no pointers with l.
func (l Lead) Clone() Lead {
	l.LastContact = cloneTime(l.LastContact)
	l.ChatSummary = cloneString(l.ChatSummary)
	return l
}

type Deal struct {
	ID            int       `json:"Id"`
	LeadID        *int      `json:"leadId"`
	Title         string    `json:"title"`
	Value         float64   `json:"value"`
	Stage         string    `json:"stage"`
	Probability   int       `json:"probability"`
	ExpectedClose time.Time `json:"expectedClose"`
	CreatedAt     time.Time `json:"createdAt"`
	AssigneeID    *int      `json:"assigneeId,omitempty"`
	AssigneeName  string    `json:"assigneeName,omitempty"`
}

func (d Deal) Clone() Deal {
	d.LeadID = cloneInt(d.LeadID)
	d.AssigneeID = cloneInt(d.AssigneeID)
	return d
}

// IsClosed reports whether the deal sits in a terminal stage.
func (d Deal) IsClosed() bool {
	return IsTerminalStage(d.Stage)
}

type Activity struct {
	ID             int       `json:"Id"`
	LeadID         *int      `json:"leadId"`
	DealID         *int      `json:"dealId"`
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	Notes          string    `json:"notes,omitempty"`
	Description    string    `json:"description,omitempty"`
	DueDate        time.Time `json:"dueDate"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"createdAt"`
	ConversationID string    `json:"conversationId,omitempty"`
	BotGenerated   bool      `json:"botGenerated"`
}

func (a Activity) Clone() Activity {
	a.LeadID = cloneInt(a.LeadID)
	a.DealID = cloneInt(a.DealID)
	return a
}

// CallNotes returns the notes of the activity, falling back to its description.
func (a Activity) CallNotes() string {
	if strings.TrimSpace(a.Notes) != "" {
		return a.Notes
	}
	return a.Description
}

// CompletionResult is returned when an activity is marked complete.
// TriggerFollowUp is set for calls that carry notes; DealID then defaults to 1.
type CompletionResult struct {
	Activity        Activity `json:"activity"`
	TriggerFollowUp bool     `json:"triggerFollowUp"`
	Notes           string   `json:"notes,omitempty"`
	DealID          int      `json:"dealId,omitempty"`
}

type Conversation struct {
	ID             int        `json:"Id"`
	ConversationID string     `json:"conversationId"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	Status         string     `json:"status"`
	LeadCreated    bool       `json:"leadCreated"`
	LeadID         *int       `json:"leadId"`
}

func (c Conversation) Clone() Conversation {
	c.EndTime = cloneTime(c.EndTime)
	c.LeadID = cloneInt(c.LeadID)
	return c
}

type Message struct {
	ID             int       `json:"Id"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

// FromBot reports whether the message was sent by the bot.
func (m Message) FromBot() bool {
	return m.UserID == BotUserID
}

// ConversationWithMessages is a conversation together with its transcript.
type ConversationWithMessages struct {
	Conversation
	Messages []Message `json:"messages"`
}

type ConversationSummary struct {
	ConversationID string        `json:"conversationId"`
	TotalMessages  int           `json:"totalMessages"`
	UserMessages   int           `json:"userMessages"`
	BotMessages    int           `json:"botMessages"`
	Duration       time.Duration `json:"duration"`
	LeadCreated    bool          `json:"leadCreated"`
	LeadID         *int          `json:"leadId"`
}

// Notification types.
const (
	NotificationSuccess = "success"
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

type Notification struct {
	ID        int               `json:"Id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      string            `json:"type"`
	Icon      string            `json:"icon,omitempty"`
	Source    string            `json:"source,omitempty"`
	Category  string            `json:"category,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Read      bool              `json:"read"`
	Dismissed bool              `json:"dismissed"`
}

func (n Notification) Clone() Notification {
	if n.Data != nil {
		data := make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			data[k] = v
		}
		n.Data = data
	}
	return n
}

// NotificationStats summarizes the notification list.
type NotificationStats struct {
	Total  int            `json:"total"`
	Unread int            `json:"unread"`
	Read   int            `json:"read"`
	ByType map[string]int `json:"byType"`
}

// Ref returns a pointer to id, for building weak references.
func Ref(id int) *int {
	return &id
}

// NormalizeRef coerces a weak reference: nil or non-positive ids become nil.
func NormalizeRef(id *int) *int {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

// RefEquals reports whether ref points at id.
func RefEquals(ref *int, id int) bool {
	return ref != nil && *ref == id
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Contains reports whether value is one of options.
func Contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
