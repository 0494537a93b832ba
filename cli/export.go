// ABOUTME: Snapshot export command
// ABOUTME: Writes the current in-memory CRM state to a SQLite file
package cli

import (
	"flag"
	"fmt"

	"github.com/harperreed/leadpipe/db"
)

// ExportCommand snapshots the store into the export database.
func ExportCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	path := fs.String("path", app.Config.ExportPath, "SQLite export file")
	_ = fs.Parse(args)

	database, err := db.OpenExport(*path)
	if err != nil {
		return fmt.Errorf("failed to open export database: %w", err)
	}
	defer database.Close()

	res, err := db.ExportSnapshot(app.Ctx, database, app.Store.Snapshot())
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "✓ Snapshot exported to %s (ID: %s)\n", *path, res.ID)
	fmt.Fprintf(app.Out, "  Leads: %d, Deals: %d, Activities: %d, Conversations: %d, Messages: %d\n",
		res.Leads, res.Deals, res.Activities, res.Conversations, res.Messages)
	return nil
}
