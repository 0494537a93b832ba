// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the dashboard, reports and graph generation commands
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/viz"
)

// VizGraphPipelineCommand generates a deal pipeline graph.
func VizGraphPipelineCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("viz pipeline", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", viz.FormatDOT, "Output format (dot, svg)")
	_ = fs.Parse(args)

	generator, err := app.graphGenerator(*format)
	if err != nil {
		return err
	}
	out, err := generator.GeneratePipelineGraph()
	if err != nil {
		return err
	}
	return app.writeOutput(*output, out)
}

// VizGraphLeadsCommand generates the lead network, optionally for one lead id.
func VizGraphLeadsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("viz leads", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", viz.FormatDOT, "Output format (dot, svg)")
	_ = fs.Parse(args)

	var leadID *int
	if fs.NArg() > 0 {
		id, err := positionalID(fs, "lead")
		if err != nil {
			return err
		}
		leadID = models.Ref(id)
	}

	generator, err := app.graphGenerator(*format)
	if err != nil {
		return err
	}
	out, err := generator.GenerateLeadGraph(leadID)
	if err != nil {
		return err
	}
	return app.writeOutput(*output, out)
}

// DashboardCommand prints the dashboard metrics.
func DashboardCommand(app *App, _ []string) error {
	view := pages.NewDashboard(app.Store, app.Now).Load(app.Ctx)
	if view.Error != "" {
		return fmt.Errorf("failed to load dashboard: %s", view.Error)
	}
	fmt.Fprint(app.Out, viz.RenderDashboard(view))
	return nil
}

// ReportsCommand prints the analytics report.
func ReportsCommand(app *App, _ []string) error {
	view := pages.NewReports(app.Store, app.Now).Load(app.Ctx)
	if view.Error != "" {
		return fmt.Errorf("failed to load reports: %s", view.Error)
	}
	fmt.Fprint(app.Out, viz.RenderReports(view))
	return nil
}

func (a *App) graphGenerator(format string) (*viz.GraphGenerator, error) {
	leads, err := a.Store.ListLeads(a.Ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}
	deals, err := a.Store.ListDeals(a.Ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	acts, err := a.Store.ListActivities(a.Ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	return viz.NewGraphGenerator(leads, deals, acts).WithFormat(format)
}

func (a *App) writeOutput(path, content string) error {
	if path != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(a.Out, "✓ Graph written to %s\n", path)
		return nil
	}
	fmt.Fprintln(a.Out, content)
	return nil
}
