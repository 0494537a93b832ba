// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for managing deals and moving them through the pipeline
package cli

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
)

// AddDealCommand adds a new deal.
func AddDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ExitOnError)
	title := fs.String("title", "", "Deal title (required)")
	value := fs.Float64("value", 0, "Deal value in dollars")
	stage := fs.String("stage", models.StageProspecting, "Stage ("+strings.Join(models.Stages, ", ")+")")
	leadID := fs.Int("lead", 0, "Lead ID")
	closeDate := fs.String("close", "", "Expected close date (YYYY-MM-DD)")
	assigneeID := fs.Int("assignee-id", 0, "Sales rep ID")
	assignee := fs.String("assignee", "", "Sales rep name")
	_ = fs.Parse(args)

	if *title == "" {
		return fmt.Errorf("--title is required")
	}
	if !models.IsValidStage(*stage) {
		return fmt.Errorf("invalid stage: %s", *stage)
	}

	draft := models.Deal{
		Title:        *title,
		Value:        *value,
		Stage:        *stage,
		LeadID:       models.NormalizeRef(leadID),
		AssigneeID:   models.NormalizeRef(assigneeID),
		AssigneeName: *assignee,
	}
	draft.Probability, _ = models.StageProbability(*stage)
	if *closeDate != "" {
		t, err := time.Parse("2006-01-02", *closeDate)
		if err != nil {
			return fmt.Errorf("invalid --close date: %w", err)
		}
		draft.ExpectedClose = t
	}

	deal, err := pages.NewDeals(app.Store, app.Toaster).Create(app.Ctx, draft)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Deal created: %s (ID: %d)\n", deal.Title, deal.ID)
	fmt.Fprintf(app.Out, "  Value: $%.2f\n", deal.Value)
	fmt.Fprintf(app.Out, "  Stage: %s (%d%%)\n", models.StageName(deal.Stage), deal.Probability)
	return nil
}

// ListDealsCommand lists deals grouped by pipeline stage.
func ListDealsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ExitOnError)
	query := fs.String("query", "", "Search deal titles")
	stage := fs.String("stage", pages.FilterAll, "Filter by stage")
	assignee := fs.Int("assignee-id", 0, "Filter by sales rep ID")
	_ = fs.Parse(args)

	view := pages.NewDeals(app.Store, app.Toaster).Load(app.Ctx, pages.DealFilter{Search: *query, Stage: *stage, AssigneeID: *assignee})
	if view.Error != "" {
		return fmt.Errorf("failed to list deals: %s", view.Error)
	}
	if len(view.Deals) == 0 {
		fmt.Fprintln(app.Out, "No deals found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tVALUE\tSTAGE\tPROB\tASSIGNEE")
	_, _ = fmt.Fprintln(w, "--\t-----\t-----\t-----\t----\t--------")
	for _, col := range view.Columns {
		for _, d := range col.Deals {
			_, _ = fmt.Fprintf(w, "%d\t%s\t$%.0f\t%s\t%d%%\t%s\n",
				d.ID, d.Title, d.Value, col.Name, d.Probability, dash(d.AssigneeName))
		}
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\n%s\n", view.Summary())
	fmt.Fprintf(app.Out, "Pipeline: $%.0f  Win rate: %d%%\n", view.PipelineValue, view.WinRate)
	return nil
}

// MoveDealCommand advances a deal to the next stage: move-deal <id> <stage>.
func MoveDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("move-deal", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := positionalID(fs, "deal")
	if err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("target stage is required")
	}
	stage := fs.Arg(1)
	if !models.IsValidStage(stage) {
		return fmt.Errorf("invalid stage: %s", stage)
	}

	deal, err := pages.NewDeals(app.Store, app.Toaster).MoveStage(app.Ctx, id, stage)
	if err != nil {
		return fmt.Errorf("failed to move deal: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Deal moved to %s: %s (%d%%)\n", models.StageName(deal.Stage), deal.Title, deal.Probability)
	return nil
}

// DeleteDealCommand deletes a deal after confirmation.
func DeleteDealCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-deal", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip confirmation")
	_ = fs.Parse(args)

	id, err := positionalID(fs, "deal")
	if err != nil {
		return err
	}
	deal, err := app.Store.GetDeal(app.Ctx, id)
	if err != nil {
		return fmt.Errorf("deal not found: %w", err)
	}
	if !*yes && !app.confirm(fmt.Sprintf("Delete deal %q?", deal.Title)) {
		fmt.Fprintln(app.Out, "Cancelled")
		return nil
	}

	if err := pages.NewDeals(app.Store, app.Toaster).Delete(app.Ctx, id); err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Deal deleted: %d\n", id)
	return nil
}
