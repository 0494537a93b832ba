// ABOUTME: Tool output shapes shared by the MCP handlers
// ABOUTME: Converts store entities into flat JSON-friendly structs with RFC3339 times
package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harperreed/leadpipe/models"
)

type LeadOutput struct {
	ID             int     `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone,omitempty"`
	Company        string  `json:"company"`
	ProductName    string  `json:"product_name,omitempty"`
	Status         string  `json:"status"`
	Source         string  `json:"source"`
	CreatedAt      string  `json:"created_at"`
	LastContact    *string `json:"last_contact,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
	BotGenerated   bool    `json:"bot_generated"`
	ChatSummary    *string `json:"chat_summary,omitempty"`
}

type DealOutput struct {
	ID            int      `json:"id"`
	LeadID        *int     `json:"lead_id,omitempty"`
	Title         string   `json:"title"`
	Value         float64  `json:"value"`
	Stage         string   `json:"stage"`
	StageName     string   `json:"stage_name"`
	Probability   int      `json:"probability"`
	ExpectedClose string   `json:"expected_close,omitempty"`
	CreatedAt     string   `json:"created_at"`
	AssigneeID    *int     `json:"assignee_id,omitempty"`
	AssigneeName  string   `json:"assignee_name,omitempty"`
	NextStages    []string `json:"next_stages"`
}

type ActivityOutput struct {
	ID             int    `json:"id"`
	LeadID         *int   `json:"lead_id,omitempty"`
	DealID         *int   `json:"deal_id,omitempty"`
	Type           string `json:"type"`
	Subject        string `json:"subject"`
	Notes          string `json:"notes,omitempty"`
	Description    string `json:"description,omitempty"`
	DueDate        string `json:"due_date"`
	Completed      bool   `json:"completed"`
	CreatedAt      string `json:"created_at"`
	ConversationID string `json:"conversation_id,omitempty"`
	BotGenerated   bool   `json:"bot_generated"`
}

type NotificationOutput struct {
	ID        int               `json:"id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      string            `json:"type"`
	Source    string            `json:"source,omitempty"`
	Category  string            `json:"category,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp string            `json:"timestamp"`
	Read      bool              `json:"read"`
	Dismissed bool              `json:"dismissed"`
}

func leadToOutput(l models.Lead) LeadOutput {
	return LeadOutput{
		ID:             l.ID,
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		Email:          l.Email,
		Phone:          l.Phone,
		Company:        l.Company,
		ProductName:    l.ProductName,
		Status:         l.Status,
		Source:         l.Source,
		CreatedAt:      formatTime(l.CreatedAt),
		LastContact:    formatTimePtr(l.LastContact),
		ConversationID: l.ConversationID,
		BotGenerated:   l.BotGenerated,
		ChatSummary:    l.ChatSummary,
	}
}

func dealToOutput(d models.Deal) DealOutput {
	out := DealOutput{
		ID:           d.ID,
		LeadID:       d.LeadID,
		Title:        d.Title,
		Value:        d.Value,
		Stage:        d.Stage,
		StageName:    models.StageName(d.Stage),
		Probability:  d.Probability,
		CreatedAt:    formatTime(d.CreatedAt),
		AssigneeID:   d.AssigneeID,
		AssigneeName: d.AssigneeName,
		NextStages:   models.NextStages(d.Stage),
	}
	if !d.ExpectedClose.IsZero() {
		out.ExpectedClose = d.ExpectedClose.Format("2006-01-02")
	}
	return out
}

func activityToOutput(a models.Activity) ActivityOutput {
	return ActivityOutput{
		ID:             a.ID,
		LeadID:         a.LeadID,
		DealID:         a.DealID,
		Type:           a.Type,
		Subject:        a.Subject,
		Notes:          a.Notes,
		Description:    a.Description,
		DueDate:        formatTime(a.DueDate),
		Completed:      a.Completed,
		CreatedAt:      formatTime(a.CreatedAt),
		ConversationID: a.ConversationID,
		BotGenerated:   a.BotGenerated,
	}
}

func notificationToOutput(n models.Notification) NotificationOutput {
	return NotificationOutput{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Source:    n.Source,
		Category:  n.Category,
		Data:      n.Data,
		Timestamp: formatTime(n.Timestamp),
		Read:      n.Read,
		Dismissed: n.Dismissed,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// parseDate accepts RFC3339 or a bare YYYY-MM-DD date.
func parseDate(field, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format (use ISO 8601/RFC3339 or YYYY-MM-DD): %w", field, err)
	}
	return t, nil
}

// optionalRef turns a tool's zero id into an absent reference.
func optionalRef(id int) *int {
	return models.NormalizeRef(&id)
}

func parseID(field, value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", field, value)
	}
	return id, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}
