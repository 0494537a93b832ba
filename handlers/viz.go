// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the generate_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/store"
	"github.com/harperreed/leadpipe/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	store *store.Store
}

func NewVizHandlers(s *store.Store) *VizHandlers {
	return &VizHandlers{store: s}
}

type GenerateGraphInput struct {
	Type   string `json:"type" jsonschema:"Graph type: pipeline or leads"`
	LeadID int    `json:"lead_id,omitempty" jsonschema:"Limit a leads graph to one lead"`
	Format string `json:"format,omitempty" jsonschema:"Output format: dot (default) or svg"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	Format    string `json:"format"`
	Source    string `json:"source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	if input.Type == "" {
		return nil, GenerateGraphOutput{}, fmt.Errorf("type is required")
	}

	leads, err := h.store.ListLeads(ctx)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to fetch leads: %w", err)
	}
	deals, err := h.store.ListDeals(ctx)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to fetch deals: %w", err)
	}
	acts, err := h.store.ListActivities(ctx)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to fetch activities: %w", err)
	}

	generator, err := viz.NewGraphGenerator(leads, deals, acts).WithFormat(input.Format)
	if err != nil {
		return nil, GenerateGraphOutput{}, err
	}

	var out string
	switch input.Type {
	case "pipeline":
		out, err = generator.GeneratePipelineGraph()
	case "leads":
		out, err = generator.GenerateLeadGraph(optionalRef(input.LeadID))
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("unknown graph type: %s (valid types: pipeline, leads)", input.Type)
	}
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	format := input.Format
	if format == "" {
		format = viz.FormatDOT
	}
	nodes, edges := countGraph(out, format)
	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		Format:    format,
		Source:    out,
		NodeCount: nodes,
		EdgeCount: edges,
	}, nil
}

// countGraph estimates node and edge counts from rendered output.
func countGraph(out, format string) (nodes, edges int) {
	if format == viz.FormatSVG {
		return strings.Count(out, `class="node"`), strings.Count(out, `class="edge"`)
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "->"):
			edges++
		case strings.HasPrefix(line, "graph"), strings.HasPrefix(line, "node"), strings.HasPrefix(line, "edge"):
		case strings.Contains(line, "["):
			nodes++
		}
	}
	return nodes, edges
}
