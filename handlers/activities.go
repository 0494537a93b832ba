// ABOUTME: Activity MCP tool handlers
// ABOUTME: Implements add_activity, find_activities, complete_activity and delete_activity tools
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ActivityHandlers struct {
	page *pages.Activities
}

func NewActivityHandlers(page *pages.Activities) *ActivityHandlers {
	return &ActivityHandlers{page: page}
}

type AddActivityInput struct {
	Type    string `json:"type" jsonschema:"Activity type: call, email, meeting, task, note (required)"`
	Subject string `json:"subject" jsonschema:"Short subject line (required)"`
	Notes   string `json:"notes,omitempty" jsonschema:"Notes; completed calls with notes trigger follow-up creation"`
	LeadID  int    `json:"lead_id,omitempty" jsonschema:"ID of the related lead"`
	DealID  int    `json:"deal_id,omitempty" jsonschema:"ID of the related deal"`
	DueDate string `json:"due_date,omitempty" jsonschema:"Due date (YYYY-MM-DD or RFC3339)"`
}

func (h *ActivityHandlers) AddActivity(ctx context.Context, request *mcp.CallToolRequest, input AddActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	if input.Subject == "" {
		return nil, ActivityOutput{}, fmt.Errorf("subject is required")
	}
	if !models.Contains(models.ActivityTypes, input.Type) {
		return nil, ActivityOutput{}, fmt.Errorf("invalid type: %q (valid: call, email, meeting, task, note)", input.Type)
	}

	draft := models.Activity{
		Type:    input.Type,
		Subject: input.Subject,
		Notes:   input.Notes,
		LeadID:  optionalRef(input.LeadID),
		DealID:  optionalRef(input.DealID),
	}
	if input.DueDate != "" {
		t, err := parseDate("due_date", input.DueDate)
		if err != nil {
			return nil, ActivityOutput{}, err
		}
		draft.DueDate = t
	}

	act, err := h.page.Create(ctx, draft)
	if err != nil {
		return nil, ActivityOutput{}, fmt.Errorf("failed to create activity: %w", err)
	}
	return nil, activityToOutput(act), nil
}

type FindActivitiesInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Search subject and notes"`
	Type   string `json:"type,omitempty" jsonschema:"Filter by activity type"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: completed or pending"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type FindActivitiesOutput struct {
	Activities []ActivityOutput `json:"activities"`
	Count      int              `json:"count"`
	Total      int              `json:"total"`
	Summary    string           `json:"summary"`
}

func (h *ActivityHandlers) FindActivities(ctx context.Context, request *mcp.CallToolRequest, input FindActivitiesInput) (*mcp.CallToolResult, FindActivitiesOutput, error) {
	switch input.Status {
	case "", pages.FilterAll, pages.StatusCompleted, pages.StatusPending:
	default:
		return nil, FindActivitiesOutput{}, fmt.Errorf("invalid status: %s (valid: completed, pending)", input.Status)
	}

	view := h.page.Load(ctx, pages.ActivityFilter{Search: input.Query, Type: input.Type, Status: input.Status})
	if view.Error != "" {
		return nil, FindActivitiesOutput{}, fmt.Errorf("failed to find activities: %s", view.Error)
	}

	limit := limitOrDefault(input.Limit)
	out := FindActivitiesOutput{Activities: []ActivityOutput{}, Total: view.Total, Summary: view.Summary()}
	for i, a := range view.Activities {
		if i >= limit {
			break
		}
		out.Activities = append(out.Activities, activityToOutput(a))
	}
	out.Count = len(out.Activities)
	return nil, out, nil
}

type CompleteActivityInput struct {
	ID int `json:"id" jsonschema:"Activity ID (required)"`
}

type CompleteActivityOutput struct {
	Activity        ActivityOutput `json:"activity"`
	TriggerFollowUp bool           `json:"trigger_follow_up"`
	DealID          int            `json:"deal_id,omitempty"`
}

func (h *ActivityHandlers) CompleteActivity(ctx context.Context, request *mcp.CallToolRequest, input CompleteActivityInput) (*mcp.CallToolResult, CompleteActivityOutput, error) {
	if input.ID <= 0 {
		return nil, CompleteActivityOutput{}, fmt.Errorf("id is required")
	}
	res, err := h.page.MarkComplete(ctx, input.ID)
	if err != nil {
		return nil, CompleteActivityOutput{}, fmt.Errorf("failed to complete activity: %w", err)
	}
	return nil, CompleteActivityOutput{
		Activity:        activityToOutput(res.Activity),
		TriggerFollowUp: res.TriggerFollowUp,
		DealID:          res.DealID,
	}, nil
}

func (h *ActivityHandlers) DeleteActivity(ctx context.Context, request *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID <= 0 {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	if err := h.page.Delete(ctx, input.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true, Message: "Activity deleted successfully!"}, nil
}
