// ABOUTME: Full-screen terminal UI command
// ABOUTME: Starts the bubbletea interface over the app's store, notification bus and chat bridge
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/tui"
	"golang.org/x/term"
)

// TUICommand runs the interactive interface. It refuses to start without a terminal.
func TUICommand(app *App, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires a terminal")
	}

	// chat problems surface as toasts; only errors may reach the terminal
	chatLogger := app.Logger.WithPrefix("chat")
	chatLogger.SetLevel(log.ErrorLevel)
	bridge := app.startChat(chatLogger)
	defer bridge.Close()

	return tui.Run(tui.Options{
		Ctx:        app.Ctx,
		Store:      app.Store,
		Bus:        app.Bus,
		Toaster:    app.Toaster,
		Activities: app.Activities,
		Now:        app.Now,
		Chat:       bridge,
	})
}
