// ABOUTME: MCP prompt handlers for CRM analysis templates
// ABOUTME: Builds lead-summary, deal-analysis, follow-up-suggestions and conversation-review prompts
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	store *store.Store
	now   func() time.Time
}

func NewPromptHandlers(s *store.Store, now func() time.Time) *PromptHandlers {
	if now == nil {
		now = time.Now
	}
	return &PromptHandlers{store: s, now: now}
}

// Prompts lists the prompt templates the server advertises.
func Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "lead-summary",
			Description: "Summarize a lead with their deals and activity history",
			Arguments:   []*mcp.PromptArgument{{Name: "lead_id", Description: "Lead ID", Required: true}},
		},
		{
			Name:        "deal-analysis",
			Description: "Analyze the deal pipeline by stage",
		},
		{
			Name:        "follow-up-suggestions",
			Description: "Suggest leads that need a follow-up",
			Arguments:   []*mcp.PromptArgument{{Name: "days", Description: "Days since last contact (default 7)"}},
		},
		{
			Name:        "conversation-review",
			Description: "Review a chat assistant conversation",
			Arguments:   []*mcp.PromptArgument{{Name: "conversation_id", Description: "Widget conversation ID", Required: true}},
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	switch request.Params.Name {
	case "lead-summary":
		return h.leadSummary(ctx, args)
	case "deal-analysis":
		return h.dealAnalysis(ctx)
	case "follow-up-suggestions":
		return h.followUpSuggestions(ctx, args)
	case "conversation-review":
		return h.conversationReview(ctx, args)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) leadSummary(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	raw, ok := args["lead_id"]
	if !ok {
		return nil, fmt.Errorf("lead_id is required")
	}
	leadID, err := parseID("lead_id", raw)
	if err != nil {
		return nil, err
	}
	lead, err := h.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}
	deals, err := h.store.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	acts, err := h.store.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please provide a summary of this lead:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", lead.FullName())
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	if lead.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", lead.Phone)
	}
	if lead.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", lead.Company)
	}
	if lead.ProductName != "" {
		fmt.Fprintf(&b, "Interested in: %s\n", lead.ProductName)
	}
	fmt.Fprintf(&b, "Status: %s\nSource: %s\n", lead.Status, lead.Source)
	if lead.LastContact != nil {
		fmt.Fprintf(&b, "Last contact: %s\n", lead.LastContact.Format("2006-01-02"))
	}
	if lead.ChatSummary != nil {
		fmt.Fprintf(&b, "\nChat summary: %s\n", *lead.ChatSummary)
	}

	b.WriteString("\nDeals:\n")
	for _, d := range deals {
		if models.RefEquals(d.LeadID, lead.ID) {
			fmt.Fprintf(&b, "  - %s: $%.0f (%s, %d%%)\n", d.Title, d.Value, models.StageName(d.Stage), d.Probability)
		}
	}
	b.WriteString("\nActivities:\n")
	for _, a := range acts {
		if models.RefEquals(a.LeadID, lead.ID) {
			state := "pending"
			if a.Completed {
				state = "done"
			}
			fmt.Fprintf(&b, "  - [%s] %s: %s\n", state, a.Type, a.Subject)
		}
	}

	b.WriteString("\nPlease analyze this lead and provide:")
	b.WriteString("\n1. A brief summary of their needs and fit")
	b.WriteString("\n2. Recommendations for next steps")
	b.WriteString("\n3. Any risks in the open deals")

	return textPrompt(fmt.Sprintf("Summary for lead: %s", lead.FullName()), b.String()), nil
}

func (h *PromptHandlers) dealAnalysis(ctx context.Context) (*mcp.GetPromptResult, error) {
	deals, err := h.store.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	view := pages.BuildDealsView(deals, pages.DealFilter{})

	var b strings.Builder
	b.WriteString("Please analyze the current deal pipeline:\n\n")
	fmt.Fprintf(&b, "Total Deals: %d\n", view.Total)
	fmt.Fprintf(&b, "Total Value: $%.0f\n", view.TotalValue)
	fmt.Fprintf(&b, "Open Pipeline Value: $%.0f\n", view.PipelineValue)
	fmt.Fprintf(&b, "Win Rate: %d%%\n\n", view.WinRate)
	b.WriteString("Pipeline by Stage:\n")
	for _, col := range view.Columns {
		fmt.Fprintf(&b, "  - %s: %d deals, $%.0f\n", col.Name, col.Count, col.Value)
	}

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. Overall pipeline health assessment")
	b.WriteString("\n2. Stages where deals are getting stuck")
	b.WriteString("\n3. Recommendations to improve conversion")

	return textPrompt("Deal pipeline analysis", b.String()), nil
}

func (h *PromptHandlers) followUpSuggestions(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	days := 7
	if raw, ok := args["days"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid days: %s", raw)
		}
		days = n
	}
	leads, err := h.store.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	cutoff := h.now().AddDate(0, 0, -days)
	var b strings.Builder
	fmt.Fprintf(&b, "These open leads have not been contacted in %d days:\n\n", days)
	count := 0
	for _, l := range leads {
		if l.Status == models.LeadStatusLost {
			continue
		}
		if l.LastContact != nil && l.LastContact.After(cutoff) {
			continue
		}
		last := "never"
		if l.LastContact != nil {
			last = l.LastContact.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "  - %s (%s), status %s, last contact %s\n", l.FullName(), l.Company, l.Status, last)
		count++
	}
	if count == 0 {
		b.WriteString("  (none)\n")
	}

	b.WriteString("\nFor each lead, suggest a follow-up action and a short message.")
	return textPrompt(fmt.Sprintf("Follow-up suggestions for %d leads", count), b.String()), nil
}

func (h *PromptHandlers) conversationReview(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["conversation_id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("conversation_id is required")
	}
	conv, err := h.store.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review this chat assistant conversation (%s):\n\n", conv.Status)
	for _, m := range conv.Messages {
		who := "visitor"
		if m.FromBot() {
			who = "bot"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Message)
	}
	b.WriteString("\nPlease identify whether the visitor is a sales lead, what they need, and how the bot could have answered better.")
	return textPrompt(fmt.Sprintf("Review of conversation %s", id), b.String()), nil
}

func textPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}
