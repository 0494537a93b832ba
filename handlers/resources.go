// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to leads, deals, the pipeline and chat transcripts via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ResourceHandlers struct {
	store *store.Store
}

func NewResourceHandlers(s *store.Store) *ResourceHandlers {
	return &ResourceHandlers{store: s}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")
	switch parts[0] {
	case "leads":
		if len(parts) == 1 {
			leads, err := h.store.ListLeads(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch leads: %w", err)
			}
			return jsonResource(uri, leads)
		}
		id, err := parseID("lead ID", parts[1])
		if err != nil {
			return nil, err
		}
		lead, err := h.store.GetLead(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch lead: %w", err)
		}
		return jsonResource(uri, lead)

	case "deals":
		if len(parts) == 1 {
			deals, err := h.store.ListDeals(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch deals: %w", err)
			}
			return jsonResource(uri, deals)
		}
		id, err := parseID("deal ID", parts[1])
		if err != nil {
			return nil, err
		}
		deal, err := h.store.GetDeal(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch deal: %w", err)
		}
		return jsonResource(uri, deal)

	case "pipeline":
		deals, err := h.store.ListDeals(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch deals: %w", err)
		}
		return jsonResource(uri, pages.BuildDealsView(deals, pages.DealFilter{}))

	case "conversations":
		if len(parts) == 1 {
			convs, err := h.store.ListConversations(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch conversations: %w", err)
			}
			return jsonResource(uri, convs)
		}
		conv, err := h.store.GetConversation(ctx, parts[1])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch conversation: %w", err)
		}
		return jsonResource(uri, conv)

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

// Resources lists the static resources the server advertises.
func Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: "crm://leads", Name: "leads", Description: "All leads", MIMEType: "application/json"},
		{URI: "crm://deals", Name: "deals", Description: "All deals", MIMEType: "application/json"},
		{URI: "crm://pipeline", Name: "pipeline", Description: "Deals grouped by pipeline stage with totals", MIMEType: "application/json"},
		{URI: "crm://conversations", Name: "conversations", Description: "Chat assistant conversations", MIMEType: "application/json"},
	}
}

// ResourceTemplates lists the per-record resource templates.
func ResourceTemplates() []*mcp.ResourceTemplate {
	return []*mcp.ResourceTemplate{
		{URITemplate: "crm://leads/{id}", Name: "lead", Description: "A single lead", MIMEType: "application/json"},
		{URITemplate: "crm://deals/{id}", Name: "deal", Description: "A single deal", MIMEType: "application/json"},
		{URITemplate: "crm://conversations/{conversation_id}", Name: "conversation", Description: "A conversation with its transcript", MIMEType: "application/json"},
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
