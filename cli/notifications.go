// ABOUTME: Notification CLI command
// ABOUTME: Lists the notification feed and marks or dismisses entries
package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"
)

// NotificationsCommand prints the feed. --read and --dismiss act on one id,
// --read-all marks everything read.
func NotificationsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	unread := fs.Bool("unread", false, "Only show unread notifications")
	read := fs.Int("read", 0, "Mark a notification read")
	readAll := fs.Bool("read-all", false, "Mark every notification read")
	dismiss := fs.Int("dismiss", 0, "Dismiss a notification")
	_ = fs.Parse(args)

	switch {
	case *readAll:
		fmt.Fprintf(app.Out, "✓ Marked %d notification(s) read\n", app.Bus.MarkAllAsRead())
	case *read > 0:
		app.Bus.MarkAsRead(*read)
		fmt.Fprintf(app.Out, "✓ Notification %d marked read\n", *read)
	case *dismiss > 0:
		app.Bus.Dismiss(*dismiss)
		fmt.Fprintf(app.Out, "✓ Notification %d dismissed\n", *dismiss)
	}

	list := app.Bus.List()
	if *unread {
		list = app.Bus.Unread()
	}
	if len(list) == 0 {
		fmt.Fprintln(app.Out, "No notifications")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tTITLE\tMESSAGE\tTIME")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------\t----")
	for _, n := range list {
		title := n.Title
		if !n.Read {
			title = "* " + title
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ID, n.Type, title, n.Message, n.Timestamp.Format("15:04:05"))
	}
	_ = w.Flush()

	stats := app.Bus.Stats()
	fmt.Fprintf(app.Out, "\nTotal: %d, unread: %d\n", stats.Total, stats.Unread)
	return nil
}
