// ABOUTME: GraphViz rendering of the deal pipeline and lead networks
// ABOUTME: Builds graphs from store snapshots and renders them as xdot or svg
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/leadpipe/models"
)

// Supported render formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

var stageColors = map[string]string{
	models.StageProspecting: "lightgrey",
	models.StageProposal:    "lightblue",
	models.StageNegotiation: "lightyellow",
	models.StageClosedWon:   "palegreen",
	models.StageClosedLost:  "lightpink",
}

// GraphGenerator renders graphs over one consistent set of entities.
type GraphGenerator struct {
	leads      []models.Lead
	deals      []models.Deal
	activities []models.Activity
	format     string
}

func NewGraphGenerator(leads []models.Lead, deals []models.Deal, activities []models.Activity) *GraphGenerator {
	return &GraphGenerator{leads: leads, deals: deals, activities: activities, format: FormatDOT}
}

// WithFormat selects dot (the default) or svg output.
func (g *GraphGenerator) WithFormat(format string) (*GraphGenerator, error) {
	switch format {
	case "", FormatDOT:
		format = FormatDOT
	case FormatSVG:
	default:
		return nil, fmt.Errorf("unknown format: %s (valid: dot, svg)", format)
	}
	out := *g
	out.format = format
	return &out, nil
}

// build creates a graph, lets fill populate it, and renders the result.
func (g *GraphGenerator) build(label string, fill func(graph *cgraph.Graph) error) (string, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel(label)
	graph.SetRankDir(cgraph.LRRank)

	if err := fill(graph); err != nil {
		return "", err
	}

	format := graphviz.XDOT
	if g.format == FormatSVG {
		format = graphviz.SVG
	}
	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

// GeneratePipelineGraph draws the stage graph with each deal hanging off its stage.
func (g *GraphGenerator) GeneratePipelineGraph() (string, error) {
	return g.build("Deal Pipeline", func(graph *cgraph.Graph) error {
		stageNodes, err := addStages(graph)
		if err != nil {
			return err
		}
		for _, deal := range g.deals {
			stageNode, ok := stageNodes[deal.Stage]
			if !ok {
				continue
			}
			node, err := addDeal(graph, deal)
			if err != nil {
				return err
			}
			if _, err := graph.CreateEdgeByName(fmt.Sprintf("in_%d", deal.ID), stageNode, node); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
		return nil
	})
}

// GenerateLeadGraph draws leads with their deals and activities. A non-nil
// leadID limits the graph to that lead.
func (g *GraphGenerator) GenerateLeadGraph(leadID *int) (string, error) {
	label := "Leads"
	if leadID != nil {
		label = fmt.Sprintf("Lead %d", *leadID)
	}
	return g.build(label, func(graph *cgraph.Graph) error {
		leadNodes := make(map[int]*cgraph.Node)
		for _, lead := range g.leads {
			if leadID != nil && lead.ID != *leadID {
				continue
			}
			node, err := graph.CreateNodeByName(fmt.Sprintf("lead_%d", lead.ID))
			if err != nil {
				return fmt.Errorf("failed to create lead node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s", lead.FullName(), lead.Company))
			node.SetShape("ellipse")
			node.SetStyle("filled")
			node.SetFillColor("lightgreen")
			leadNodes[lead.ID] = node
		}
		if leadID != nil && len(leadNodes) == 0 {
			return fmt.Errorf("lead %d not found", *leadID)
		}

		dealNodes := make(map[int]*cgraph.Node)
		for _, deal := range g.deals {
			if deal.LeadID == nil {
				continue
			}
			leadNode, ok := leadNodes[*deal.LeadID]
			if !ok {
				continue
			}
			node, err := addDeal(graph, deal)
			if err != nil {
				return err
			}
			dealNodes[deal.ID] = node
			edge, err := graph.CreateEdgeByName(fmt.Sprintf("owns_%d", deal.ID), leadNode, node)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel("deal")
		}

		for _, act := range g.activities {
			var parent *cgraph.Node
			if act.DealID != nil {
				parent = dealNodes[*act.DealID]
			}
			if parent == nil && act.LeadID != nil {
				parent = leadNodes[*act.LeadID]
			}
			if parent == nil {
				continue
			}
			node, err := graph.CreateNodeByName(fmt.Sprintf("activity_%d", act.ID))
			if err != nil {
				return fmt.Errorf("failed to create activity node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n(%s)", act.Subject, act.Type))
			node.SetShape("note")
			if act.Completed {
				node.SetStyle("dashed")
			}
			edge, err := graph.CreateEdgeByName(fmt.Sprintf("act_%d", act.ID), parent, node)
			if err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dotted")
		}
		return nil
	})
}

func addStages(graph *cgraph.Graph) (map[string]*cgraph.Node, error) {
	nodes := make(map[string]*cgraph.Node, len(models.Stages))
	for _, stage := range models.Stages {
		node, err := graph.CreateNodeByName("stage_" + stage)
		if err != nil {
			return nil, fmt.Errorf("failed to create stage node: %w", err)
		}
		p, _ := models.StageProbability(stage)
		node.SetLabel(fmt.Sprintf("%s\n%d%%", models.StageName(stage), p))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor(stageColors[stage])
		nodes[stage] = node
	}
	for _, stage := range models.Stages {
		for _, next := range models.NextStages(stage) {
			edge, err := graph.CreateEdgeByName(stage+"_"+next, nodes[stage], nodes[next])
			if err != nil {
				return nil, fmt.Errorf("failed to create stage edge: %w", err)
			}
			edge.SetStyle("bold")
		}
	}
	return nodes, nil
}

func addDeal(graph *cgraph.Graph, deal models.Deal) (*cgraph.Node, error) {
	node, err := graph.CreateNodeByName(fmt.Sprintf("deal_%d", deal.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create deal node: %w", err)
	}
	node.SetLabel(fmt.Sprintf("%s\n$%.0fK", deal.Title, deal.Value/1000))
	node.SetShape("diamond")
	node.SetStyle("filled")
	node.SetFillColor(stageColors[deal.Stage])
	return node, nil
}
