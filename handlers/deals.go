// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, find_deals, update_deal, move_deal_stage and delete_deal tools
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type DealHandlers struct {
	page *pages.Deals
}

func NewDealHandlers(s pages.DealStore, toast pages.Toaster) *DealHandlers {
	return &DealHandlers{page: pages.NewDeals(s, toast)}
}

type CreateDealInput struct {
	Title         string  `json:"title" jsonschema:"Deal title (required)"`
	Value         float64 `json:"value,omitempty" jsonschema:"Deal value in dollars"`
	Stage         string  `json:"stage,omitempty" jsonschema:"Deal stage: prospecting, proposal, negotiation, closed-won, closed-lost (default prospecting)"`
	LeadID        int     `json:"lead_id,omitempty" jsonschema:"ID of the lead this deal belongs to"`
	ExpectedClose string  `json:"expected_close,omitempty" jsonschema:"Expected close date (YYYY-MM-DD or RFC3339)"`
	AssigneeID    int     `json:"assignee_id,omitempty" jsonschema:"Sales rep ID"`
	AssigneeName  string  `json:"assignee_name,omitempty" jsonschema:"Sales rep name"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.Title == "" {
		return nil, DealOutput{}, fmt.Errorf("title is required")
	}
	if input.Stage != "" && !models.IsValidStage(input.Stage) {
		return nil, DealOutput{}, invalidStage(input.Stage)
	}

	draft := models.Deal{
		Title:        input.Title,
		Value:        input.Value,
		Stage:        input.Stage,
		LeadID:       optionalRef(input.LeadID),
		AssigneeID:   optionalRef(input.AssigneeID),
		AssigneeName: input.AssigneeName,
	}
	if p, ok := models.StageProbability(draft.Stage); ok {
		draft.Probability = p
	}
	if input.ExpectedClose != "" {
		t, err := parseDate("expected_close", input.ExpectedClose)
		if err != nil {
			return nil, DealOutput{}, err
		}
		draft.ExpectedClose = t
	}

	deal, err := h.page.Create(ctx, draft)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

type FindDealsInput struct {
	Query      string `json:"query,omitempty" jsonschema:"Search deal titles"`
	Stage      string `json:"stage,omitempty" jsonschema:"Filter by stage"`
	AssigneeID int    `json:"assignee_id,omitempty" jsonschema:"Filter by sales rep ID"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type PipelineStageOutput struct {
	Stage string  `json:"stage"`
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type FindDealsOutput struct {
	Deals         []DealOutput          `json:"deals"`
	Count         int                   `json:"count"`
	Total         int                   `json:"total"`
	PipelineValue float64               `json:"pipeline_value"`
	WinRate       int                   `json:"win_rate"`
	Stages        []PipelineStageOutput `json:"stages"`
}

func (h *DealHandlers) FindDeals(ctx context.Context, request *mcp.CallToolRequest, input FindDealsInput) (*mcp.CallToolResult, FindDealsOutput, error) {
	if input.Stage != "" && input.Stage != pages.FilterAll && !models.IsValidStage(input.Stage) {
		return nil, FindDealsOutput{}, invalidStage(input.Stage)
	}
	view := h.page.Load(ctx, pages.DealFilter{Search: input.Query, Stage: input.Stage, AssigneeID: input.AssigneeID})
	if view.Error != "" {
		return nil, FindDealsOutput{}, fmt.Errorf("failed to find deals: %s", view.Error)
	}

	out := FindDealsOutput{
		Deals:         []DealOutput{},
		Total:         view.Total,
		PipelineValue: view.PipelineValue,
		WinRate:       view.WinRate,
	}
	limit := limitOrDefault(input.Limit)
	for _, col := range view.Columns {
		out.Stages = append(out.Stages, PipelineStageOutput{Stage: col.Stage, Name: col.Name, Count: col.Count, Value: col.Value})
		for _, d := range col.Deals {
			if len(out.Deals) < limit {
				out.Deals = append(out.Deals, dealToOutput(d))
			}
		}
	}
	out.Count = len(out.Deals)
	return nil, out, nil
}

type UpdateDealInput struct {
	ID            int      `json:"id" jsonschema:"Deal ID (required)"`
	Title         *string  `json:"title,omitempty" jsonschema:"Updated title"`
	Value         *float64 `json:"value,omitempty" jsonschema:"Updated value in dollars"`
	LeadID        *int     `json:"lead_id,omitempty" jsonschema:"Updated lead ID (0 clears)"`
	ExpectedClose string   `json:"expected_close,omitempty" jsonschema:"Updated expected close date"`
	AssigneeID    *int     `json:"assignee_id,omitempty" jsonschema:"Updated sales rep ID"`
	AssigneeName  *string  `json:"assignee_name,omitempty" jsonschema:"Updated sales rep name"`
}

func (h *DealHandlers) UpdateDeal(ctx context.Context, request *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.ID <= 0 {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}
	patch := models.DealPatch{
		Title:        input.Title,
		Value:        input.Value,
		LeadID:       input.LeadID,
		AssigneeID:   input.AssigneeID,
		AssigneeName: input.AssigneeName,
	}
	if input.ExpectedClose != "" {
		t, err := parseDate("expected_close", input.ExpectedClose)
		if err != nil {
			return nil, DealOutput{}, err
		}
		patch.ExpectedClose = &t
	}

	deal, err := h.page.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

type MoveDealStageInput struct {
	ID    int    `json:"id" jsonschema:"Deal ID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage; must be a forward pipeline step from the current stage"`
}

func (h *DealHandlers) MoveDealStage(ctx context.Context, request *mcp.CallToolRequest, input MoveDealStageInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.ID <= 0 {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}
	if !models.IsValidStage(input.Stage) {
		return nil, DealOutput{}, invalidStage(input.Stage)
	}
	deal, err := h.page.MoveStage(ctx, input.ID, input.Stage)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to move deal: %w", err)
	}
	return nil, dealToOutput(deal), nil
}

func (h *DealHandlers) DeleteDeal(ctx context.Context, request *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID <= 0 {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	if err := h.page.Delete(ctx, input.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true, Message: "Deal deleted successfully!"}, nil
}

func invalidStage(stage string) error {
	return fmt.Errorf("invalid stage: %s (valid: %s)", stage, strings.Join(models.Stages, ", "))
}
