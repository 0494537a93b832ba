// ABOUTME: Activity CLI commands
// ABOUTME: Adds, lists, completes and deletes calls, emails, meetings, tasks and notes
package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/pages"
)

// AddActivityCommand schedules a new activity.
func AddActivityCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-activity", flag.ExitOnError)
	typ := fs.String("type", models.ActivityTask, "Type (call, email, meeting, task, note)")
	subject := fs.String("subject", "", "Subject (required)")
	notes := fs.String("notes", "", "Notes")
	leadID := fs.Int("lead", 0, "Lead ID")
	dealID := fs.Int("deal", 0, "Deal ID")
	due := fs.String("due", "", "Due date (YYYY-MM-DD, default today)")
	_ = fs.Parse(args)

	if *subject == "" {
		return fmt.Errorf("--subject is required")
	}
	if !models.Contains(models.ActivityTypes, *typ) {
		return fmt.Errorf("invalid type: %s", *typ)
	}

	draft := models.Activity{
		Type:    *typ,
		Subject: *subject,
		Notes:   *notes,
		LeadID:  models.NormalizeRef(leadID),
		DealID:  models.NormalizeRef(dealID),
	}
	if *due != "" {
		t, err := time.Parse("2006-01-02", *due)
		if err != nil {
			return fmt.Errorf("invalid --due date: %w", err)
		}
		draft.DueDate = t
	}

	act, err := app.Activities.Create(app.Ctx, draft)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Activity created: %s (ID: %d)\n", act.Subject, act.ID)
	fmt.Fprintf(app.Out, "  Type: %s, Due: %s\n", act.Type, act.DueDate.Format("2006-01-02"))
	return nil
}

// ListActivitiesCommand lists activities, pending first.
func ListActivitiesCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list-activities", flag.ExitOnError)
	query := fs.String("query", "", "Search subject and notes")
	typ := fs.String("type", pages.FilterAll, "Filter by type")
	status := fs.String("status", pages.FilterAll, "Filter by status (completed, pending)")
	_ = fs.Parse(args)

	view := app.Activities.Load(app.Ctx, pages.ActivityFilter{Search: *query, Type: *typ, Status: *status})
	if view.Error != "" {
		return fmt.Errorf("failed to list activities: %s", view.Error)
	}
	if len(view.Activities) == 0 {
		fmt.Fprintln(app.Out, "No activities found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDONE\tTYPE\tSUBJECT\tDUE")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-------\t---")
	for _, a := range view.Activities {
		done := " "
		if a.Completed {
			done = "✓"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, done, a.Type, a.Subject, a.DueDate.Format("2006-01-02"))
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\n%s\n", view.Summary())
	return nil
}

// CompleteActivityCommand marks an activity complete and reports any follow-up.
func CompleteActivityCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("complete-activity", flag.ExitOnError)
	_ = fs.Parse(args)

	id, err := positionalID(fs, "activity")
	if err != nil {
		return err
	}
	res, err := app.Activities.MarkComplete(app.Ctx, id)
	if err != nil {
		return fmt.Errorf("failed to complete activity: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Activity completed: %s\n", res.Activity.Subject)
	if res.TriggerFollowUp {
		fmt.Fprintf(app.Out, "  Follow-up requested for deal %d\n", res.DealID)
	}
	return nil
}

// DeleteActivityCommand deletes an activity after confirmation.
func DeleteActivityCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-activity", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip confirmation")
	_ = fs.Parse(args)

	id, err := positionalID(fs, "activity")
	if err != nil {
		return err
	}
	act, err := app.Store.GetActivity(app.Ctx, id)
	if err != nil {
		return fmt.Errorf("activity not found: %w", err)
	}
	if !*yes && !app.confirm(fmt.Sprintf("Delete activity %q?", act.Subject)) {
		fmt.Fprintln(app.Out, "Cancelled")
		return nil
	}

	if err := app.Activities.Delete(app.Ctx, id); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Activity deleted: %d\n", id)
	return nil
}
