// ABOUTME: Universal query, dashboard and report tool handlers
// ABOUTME: Implements query_crm, get_dashboard, get_reports and get_conversation
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type QueryHandlers struct {
	store     *store.Store
	dashboard *pages.Dashboard
	reports   *pages.Reports
}

func NewQueryHandlers(s *store.Store, now func() time.Time) *QueryHandlers {
	return &QueryHandlers{
		store:     s,
		dashboard: pages.NewDashboard(s, now),
		reports:   pages.NewReports(s, now),
	}
}

type QueryCRMInput struct {
	EntityType string            `json:"entity_type" jsonschema:"Type of entity to query (lead, deal, activity, conversation)"`
	Query      string            `json:"query,omitempty" jsonschema:"Search text"`
	Filters    map[string]string `json:"filters,omitempty" jsonschema:"Additional filters: status, source, stage, type, lead_id"`
	Limit      int               `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type QueryCRMOutput struct {
	EntityType string        `json:"entity_type"`
	Results    []interface{} `json:"results"`
	Count      int           `json:"count"`
}

func (h *QueryHandlers) QueryCRM(ctx context.Context, req *mcp.CallToolRequest, input QueryCRMInput) (*mcp.CallToolResult, QueryCRMOutput, error) {
	input.Limit = limitOrDefault(input.Limit)

	var results []interface{}
	var err error
	switch input.EntityType {
	case "lead":
		results, err = h.queryLeads(ctx, input)
	case "deal":
		results, err = h.queryDeals(ctx, input)
	case "activity":
		results, err = h.queryActivities(ctx, input)
	case "conversation":
		results, err = h.queryConversations(ctx, input)
	default:
		return nil, QueryCRMOutput{}, fmt.Errorf("invalid entity_type: %s (valid: lead, deal, activity, conversation)", input.EntityType)
	}
	if err != nil {
		return nil, QueryCRMOutput{}, err
	}
	if results == nil {
		results = []interface{}{}
	}

	return nil, QueryCRMOutput{
		EntityType: input.EntityType,
		Results:    results,
		Count:      len(results),
	}, nil
}

func (h *QueryHandlers) queryLeads(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	leads, err := h.store.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find leads: %w", err)
	}
	filtered := pages.FilterLeads(leads, pages.LeadFilter{
		Search: input.Query,
		Status: input.Filters["status"],
		Source: input.Filters["source"],
	})
	var results []interface{}
	for _, l := range filtered {
		if len(results) == input.Limit {
			break
		}
		results = append(results, leadToOutput(l))
	}
	return results, nil
}

func (h *QueryHandlers) queryDeals(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	deals, err := h.store.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find deals: %w", err)
	}
	f := pages.DealFilter{Search: input.Query, Stage: input.Filters["stage"]}
	if v, ok := input.Filters["assignee_id"]; ok {
		id, err := parseID("assignee_id", v)
		if err != nil {
			return nil, err
		}
		f.AssigneeID = id
	}
	var leadID int
	if v, ok := input.Filters["lead_id"]; ok {
		if leadID, err = parseID("lead_id", v); err != nil {
			return nil, err
		}
	}

	var results []interface{}
	for _, d := range pages.FilterDeals(deals, f) {
		if leadID != 0 && !models.RefEquals(d.LeadID, leadID) {
			continue
		}
		if len(results) == input.Limit {
			break
		}
		results = append(results, dealToOutput(d))
	}
	return results, nil
}

func (h *QueryHandlers) queryActivities(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	acts, err := h.store.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find activities: %w", err)
	}
	var leadID int
	if v, ok := input.Filters["lead_id"]; ok {
		if leadID, err = parseID("lead_id", v); err != nil {
			return nil, err
		}
	}

	var results []interface{}
	for _, a := range pages.FilterActivities(acts, pages.ActivityFilter{
		Search: input.Query,
		Type:   input.Filters["type"],
		Status: input.Filters["status"],
	}) {
		if leadID != 0 && !models.RefEquals(a.LeadID, leadID) {
			continue
		}
		if len(results) == input.Limit {
			break
		}
		results = append(results, activityToOutput(a))
	}
	return results, nil
}

type ConversationOutput struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time,omitempty"`
	LeadCreated    bool   `json:"lead_created"`
	LeadID         *int   `json:"lead_id,omitempty"`
}

func conversationToOutput(c models.Conversation) ConversationOutput {
	out := ConversationOutput{
		ConversationID: c.ConversationID,
		Status:         c.Status,
		StartTime:      formatTime(c.StartTime),
		LeadCreated:    c.LeadCreated,
		LeadID:         c.LeadID,
	}
	if c.EndTime != nil {
		out.EndTime = formatTime(*c.EndTime)
	}
	return out
}

func (h *QueryHandlers) queryConversations(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	var convs []models.Conversation
	var err error
	if v, ok := input.Filters["lead_id"]; ok {
		leadID, perr := parseID("lead_id", v)
		if perr != nil {
			return nil, perr
		}
		convs, err = h.store.ConversationsByLead(ctx, leadID)
	} else {
		convs, err = h.store.ListConversations(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}

	status := input.Filters["status"]
	var results []interface{}
	for _, c := range convs {
		if input.Query != "" && !strings.Contains(c.ConversationID, input.Query) {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		if len(results) == input.Limit {
			break
		}
		results = append(results, conversationToOutput(c))
	}
	return results, nil
}

type GetConversationInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"Widget conversation ID (required)"`
}

type MessageOutput struct {
	UserID    string `json:"user_id"`
	FromBot   bool   `json:"from_bot"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type GetConversationOutput struct {
	Conversation ConversationOutput `json:"conversation"`
	Messages     []MessageOutput    `json:"messages"`
	UserMessages int                `json:"user_messages"`
	BotMessages  int                `json:"bot_messages"`
	Duration     string             `json:"duration"`
}

func (h *QueryHandlers) GetConversation(ctx context.Context, req *mcp.CallToolRequest, input GetConversationInput) (*mcp.CallToolResult, GetConversationOutput, error) {
	if input.ConversationID == "" {
		return nil, GetConversationOutput{}, fmt.Errorf("conversation_id is required")
	}
	conv, err := h.store.GetConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, GetConversationOutput{}, fmt.Errorf("failed to get conversation: %w", err)
	}
	sum, err := h.store.ConversationSummary(ctx, input.ConversationID)
	if err != nil {
		return nil, GetConversationOutput{}, fmt.Errorf("failed to summarize conversation: %w", err)
	}

	out := GetConversationOutput{
		Conversation: conversationToOutput(conv.Conversation),
		Messages:     []MessageOutput{},
		UserMessages: sum.UserMessages,
		BotMessages:  sum.BotMessages,
		Duration:     sum.Duration.Round(time.Second).String(),
	}
	for _, m := range conv.Messages {
		out.Messages = append(out.Messages, MessageOutput{
			UserID:    m.UserID,
			FromBot:   m.FromBot(),
			Message:   m.Message,
			Timestamp: formatTime(m.Timestamp),
		})
	}
	return nil, out, nil
}

type EmptyInput struct{}

type DashboardOutput struct {
	TotalLeads     int                   `json:"total_leads"`
	QualifiedLeads int                   `json:"qualified_leads"`
	DueToday       int                   `json:"due_today"`
	Overdue        int                   `json:"overdue"`
	TotalDealValue float64               `json:"total_deal_value"`
	WonValue       float64               `json:"won_value"`
	PipelineValue  float64               `json:"pipeline_value"`
	Recent         []ActivityOutput      `json:"recent_activities"`
	Upcoming       []ActivityOutput      `json:"upcoming_activities"`
	Stages         []PipelineStageOutput `json:"stages"`
}

func (h *QueryHandlers) GetDashboard(ctx context.Context, req *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, DashboardOutput, error) {
	view := h.dashboard.Load(ctx)
	if view.Error != "" {
		return nil, DashboardOutput{}, fmt.Errorf("%s", view.Error)
	}
	out := DashboardOutput{
		TotalLeads:     view.TotalLeads,
		QualifiedLeads: view.QualifiedLeads,
		DueToday:       view.DueToday,
		Overdue:        view.Overdue,
		TotalDealValue: view.TotalDealValue,
		WonValue:       view.WonValue,
		PipelineValue:  view.PipelineValue,
		Recent:         []ActivityOutput{},
		Upcoming:       []ActivityOutput{},
	}
	for _, a := range view.Recent {
		out.Recent = append(out.Recent, activityToOutput(a))
	}
	for _, a := range view.Upcoming {
		out.Upcoming = append(out.Upcoming, activityToOutput(a))
	}
	for _, s := range view.Stages {
		out.Stages = append(out.Stages, PipelineStageOutput{Stage: s.Stage, Name: s.Name, Count: s.Count, Value: s.Value})
	}
	return nil, out, nil
}

type TopLeadOutput struct {
	LeadID    int     `json:"lead_id"`
	Name      string  `json:"name"`
	Company   string  `json:"company"`
	DealValue float64 `json:"deal_value"`
	DealCount int     `json:"deal_count"`
}

type ReportsOutput struct {
	ConversionRate         int               `json:"conversion_rate"`
	ActivityCompletionRate int               `json:"activity_completion_rate"`
	WinRate                int               `json:"win_rate"`
	TotalDealsValue        float64           `json:"total_deals_value"`
	WonValue               float64           `json:"won_value"`
	PipelineValue          float64           `json:"pipeline_value"`
	ThisWeek               pages.WeekSummary `json:"this_week"`
	LeadSources            map[string]int    `json:"lead_sources"`
	DealStages             map[string]int    `json:"deal_stages"`
	ActivityTypes          map[string]int    `json:"activity_types"`
	TopLeads               []TopLeadOutput   `json:"top_leads"`
}

func (h *QueryHandlers) GetReports(ctx context.Context, req *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, ReportsOutput, error) {
	view := h.reports.Load(ctx)
	if view.Error != "" {
		return nil, ReportsOutput{}, fmt.Errorf("%s", view.Error)
	}
	out := ReportsOutput{
		ConversionRate:         view.ConversionRate,
		ActivityCompletionRate: view.ActivityCompletionRate,
		WinRate:                view.WinRate,
		TotalDealsValue:        view.TotalDealsValue,
		WonValue:               view.WonValue,
		PipelineValue:          view.PipelineValue,
		ThisWeek:               view.ThisWeek,
		LeadSources:            view.LeadSources,
		DealStages:             view.DealStages,
		ActivityTypes:          view.ActivityTypes,
		TopLeads:               []TopLeadOutput{},
	}
	for _, lv := range view.TopLeads {
		out.TopLeads = append(out.TopLeads, TopLeadOutput{
			LeadID:    lv.Lead.ID,
			Name:      lv.Lead.FullName(),
			Company:   lv.Lead.Company,
			DealValue: lv.DealValue,
			DealCount: lv.DealCount,
		})
	}
	return nil, out, nil
}
