// ABOUTME: Partial update types for leads, deals, activities and conversations
// ABOUTME: A nil field leaves the stored value unchanged
package models

import "time"

type LeadPatch struct {
	FirstName      *string    `json:"firstName,omitempty"`
	LastName       *string    `json:"lastName,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Company        *string    `json:"company,omitempty"`
	ProductName    *string    `json:"productName,omitempty"`
	RRI            *string    `json:"rri,omitempty"`
	Status         *string    `json:"status,omitempty"`
	Source         *string    `json:"source,omitempty"`
	LastContact    *time.Time `json:"lastContact,omitempty"`
	ConversationID *string    `json:"conversationId,omitempty"`
	BotGenerated   *bool      `json:"botGenerated,omitempty"`
	ChatSummary    *string    `json:"chatSummary,omitempty"`
}

// Apply copies every non-nil field of p onto l.
func (p LeadPatch) Apply(l *Lead) {
	setString(&l.FirstName, p.FirstName)
	setString(&l.LastName, p.LastName)
	setString(&l.Email, p.Email)
	setString(&l.Phone, p.Phone)
	setString(&l.Company, p.Company)
	setString(&l.ProductName, p.ProductName)
	setString(&l.RRI, p.RRI)
	setString(&l.Status, p.Status)
	setString(&l.Source, p.Source)
	setString(&l.ConversationID, p.ConversationID)
	if p.LastContact != nil {
		l.LastContact = cloneTime(p.LastContact)
	}
	if p.BotGenerated != nil {
		l.BotGenerated = *p.BotGenerated
	}
	if p.ChatSummary != nil {
		l.ChatSummary = cloneString(p.ChatSummary)
	}
}

type DealPatch struct {
	LeadID        *int       `json:"leadId,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Value         *float64   `json:"value,omitempty"`
	Stage         *string    `json:"stage,omitempty"`
	Probability   *int       `json:"probability,omitempty"`
	ExpectedClose *time.Time `json:"expectedClose,omitempty"`
	AssigneeID    *int       `json:"assigneeId,omitempty"`
	AssigneeName  *string    `json:"assigneeName,omitempty"`
}

// Apply copies every non-nil field of p onto d. Weak references are normalized.
func (p DealPatch) Apply(d *Deal) {
	if p.LeadID != nil {
		d.LeadID = NormalizeRef(p.LeadID)
	}
	setString(&d.Title, p.Title)
	if p.Value != nil {
		d.Value = *p.Value
	}
	setString(&d.Stage, p.Stage)
	if p.Probability != nil {
		d.Probability = *p.Probability
	}
	if p.ExpectedClose != nil {
		d.ExpectedClose = *p.ExpectedClose
	}
	if p.AssigneeID != nil {
		d.AssigneeID = NormalizeRef(p.AssigneeID)
	}
	setString(&d.AssigneeName, p.AssigneeName)
}

type ActivityPatch struct {
	LeadID      *int       `json:"leadId,omitempty"`
	DealID      *int       `json:"dealId,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Subject     *string    `json:"subject,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Apply copies every non-nil field of p onto a. Completion is not patchable;
// it only moves forward through MarkComplete.
func (p ActivityPatch) Apply(a *Activity) {
	if p.LeadID != nil {
		a.LeadID = NormalizeRef(p.LeadID)
	}
	if p.DealID != nil {
		a.DealID = NormalizeRef(p.DealID)
	}
	setString(&a.Type, p.Type)
	setString(&a.Subject, p.Subject)
	setString(&a.Notes, p.Notes)
	setString(&a.Description, p.Description)
	if p.DueDate != nil {
		a.DueDate = *p.DueDate
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

type ConversationPatch struct {
	Status      *string    `json:"status,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	LeadCreated *bool      `json:"leadCreated,omitempty"`
	LeadID      *int       `json:"leadId,omitempty"`
}

// Apply copies every non-nil field of p onto c. A lead id of 0 or less unlinks the lead.
func (p ConversationPatch) Apply(c *Conversation) {
	setString(&c.Status, p.Status)
	if p.EndTime != nil {
		c.EndTime = cloneTime(p.EndTime)
	}
	if p.LeadCreated != nil {
		c.LeadCreated = *p.LeadCreated
	}
	if p.LeadID != nil {
		c.LeadID = NormalizeRef(p.LeadID)
	}
}
