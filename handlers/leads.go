// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements add_lead, find_leads, update_lead and delete_lead tools
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type LeadHandlers struct {
	page *pages.Leads
}

func NewLeadHandlers(s pages.LeadStore, toast pages.Toaster) *LeadHandlers {
	return &LeadHandlers{page: pages.NewLeads(s, toast)}
}

type AddLeadInput struct {
	FirstName   string `json:"first_name" jsonschema:"First name (required)"`
	LastName    string `json:"last_name" jsonschema:"Last name (required)"`
	Email       string `json:"email" jsonschema:"Email address (required)"`
	Phone       string `json:"phone,omitempty" jsonschema:"Phone number"`
	Company     string `json:"company,omitempty" jsonschema:"Company name"`
	ProductName string `json:"product_name,omitempty" jsonschema:"Product the lead is interested in"`
	Status      string `json:"status,omitempty" jsonschema:"Status: new, qualified, contacted, lost (default new)"`
	Source      string `json:"source,omitempty" jsonschema:"Source: website, email, phone, referral, social, chat-bot, manual (default website)"`
}

func (h *LeadHandlers) AddLead(ctx context.Context, request *mcp.CallToolRequest, input AddLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.FirstName == "" || input.LastName == "" {
		return nil, LeadOutput{}, fmt.Errorf("first_name and last_name are required")
	}
	if input.Email == "" {
		return nil, LeadOutput{}, fmt.Errorf("email is required")
	}
	if input.Status != "" && !models.Contains(models.LeadStatuses, input.Status) {
		return nil, LeadOutput{}, fmt.Errorf("invalid status: %s (valid: new, qualified, contacted, lost)", input.Status)
	}
	if input.Source != "" && !models.Contains(models.LeadSources, input.Source) {
		return nil, LeadOutput{}, fmt.Errorf("invalid source: %s", input.Source)
	}

	lead, err := h.page.Create(ctx, models.Lead{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		Phone:       input.Phone,
		Company:     input.Company,
		ProductName: input.ProductName,
		Status:      input.Status,
		Source:      input.Source,
	})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return nil, leadToOutput(lead), nil
}

type FindLeadsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Search across name, email and company"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status"`
	Source string `json:"source,omitempty" jsonschema:"Filter by source"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type FindLeadsOutput struct {
	Leads   []LeadOutput `json:"leads"`
	Count   int          `json:"count"`
	Total   int          `json:"total"`
	Summary string       `json:"summary"`
}

func (h *LeadHandlers) FindLeads(ctx context.Context, request *mcp.CallToolRequest, input FindLeadsInput) (*mcp.CallToolResult, FindLeadsOutput, error) {
	view := h.page.Load(ctx, pages.LeadFilter{Search: input.Query, Status: input.Status, Source: input.Source})
	if view.Error != "" {
		return nil, FindLeadsOutput{}, fmt.Errorf("failed to find leads: %s", view.Error)
	}

	limit := limitOrDefault(input.Limit)
	out := FindLeadsOutput{Leads: []LeadOutput{}, Total: view.Total, Summary: view.Summary()}
	for i, l := range view.Leads {
		if i >= limit {
			break
		}
		out.Leads = append(out.Leads, leadToOutput(l))
	}
	out.Count = len(out.Leads)
	return nil, out, nil
}

type UpdateLeadInput struct {
	ID          int     `json:"id" jsonschema:"Lead ID (required)"`
	FirstName   *string `json:"first_name,omitempty" jsonschema:"Updated first name"`
	LastName    *string `json:"last_name,omitempty" jsonschema:"Updated last name"`
	Email       *string `json:"email,omitempty" jsonschema:"Updated email"`
	Phone       *string `json:"phone,omitempty" jsonschema:"Updated phone"`
	Company     *string `json:"company,omitempty" jsonschema:"Updated company"`
	ProductName *string `json:"product_name,omitempty" jsonschema:"Updated product"`
	Status      *string `json:"status,omitempty" jsonschema:"Updated status"`
	Source      *string `json:"source,omitempty" jsonschema:"Updated source"`
}

func (h *LeadHandlers) UpdateLead(ctx context.Context, request *mcp.CallToolRequest, input UpdateLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.ID <= 0 {
		return nil, LeadOutput{}, fmt.Errorf("id is required")
	}
	if input.Status != nil && !models.Contains(models.LeadStatuses, *input.Status) {
		return nil, LeadOutput{}, fmt.Errorf("invalid status: %s (valid: new, qualified, contacted, lost)", *input.Status)
	}
	if input.Source != nil && !models.Contains(models.LeadSources, *input.Source) {
		return nil, LeadOutput{}, fmt.Errorf("invalid source: %s", *input.Source)
	}

	lead, err := h.page.Update(ctx, input.ID, models.LeadPatch{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		Phone:       input.Phone,
		Company:     input.Company,
		ProductName: input.ProductName,
		Status:      input.Status,
		Source:      input.Source,
	})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to update lead: %w", err)
	}
	return nil, leadToOutput(lead), nil
}

type DeleteInput struct {
	ID int `json:"id" jsonschema:"ID of the record to delete (required)"`
}

type DeleteOutput struct {
	ID      int    `json:"id"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

func (h *LeadHandlers) DeleteLead(ctx context.Context, request *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID <= 0 {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	if err := h.page.Delete(ctx, input.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true, Message: "Lead deleted successfully!"}, nil
}
