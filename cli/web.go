// ABOUTME: HTTP API server command
// ABOUTME: Serves the JSON API and /metrics, with the live chat bridge, until the context is cancelled
package cli

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/harperreed/leadpipe/web"
)

// WebCommand runs the API server and shuts it down gracefully when app.Ctx ends.
func WebCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	port := fs.Int("port", app.Config.WebPort, "Port to listen on")
	_ = fs.Parse(args)

	bridge := app.startChat(app.Logger)
	defer bridge.Close()

	server := web.NewServer(web.Options{
		Port:       *port,
		Store:      app.Store,
		Bus:        app.Bus,
		Toaster:    app.Toaster,
		Activities: app.Activities,
		Metrics:    app.Metrics,
		Logger:     app.Logger.WithPrefix("web"),
		Now:        app.Now,
		Chat:       bridge,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-app.Ctx.Done():
	}

	app.Logger.Info("Shutting down API server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
