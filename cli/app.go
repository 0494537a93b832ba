// ABOUTME: Shared wiring for every CLI command
// ABOUTME: Builds the store, notification bus, page controllers and metrics from config
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/metrics"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"golang.org/x/term"
)

// App carries the long-lived collaborators a command needs.
type App struct {
	// Ctx bounds every store call a command makes.
	Ctx context.Context

	Config     *config.Config
	Logger     *log.Logger
	Store      *store.Store
	Bus        *notify.Bus
	Toaster    *notify.Toaster
	Metrics    *metrics.Metrics
	Activities *pages.Activities
	Now        func() time.Time

	In  io.Reader
	Out io.Writer
	// Interactive enables delete confirmations.
	Interactive bool
}

// NewApp seeds a fresh store from the embedded fixtures plus any overrides
// in cfg.FixturesDir.
func NewApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	fixtures, err := store.LoadFixtures(cfg.FixturesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	latency := store.DefaultLatency
	if cfg.Latency == "off" {
		latency = store.NoLatency
	}
	s := store.New(store.Options{
		Latency:  latency,
		Logger:   logger.WithPrefix("store"),
		Fixtures: fixtures,
	})

	app := NewAppWithStore(cfg, logger, s)
	app.Interactive = term.IsTerminal(int(os.Stdin.Fd()))
	return app, nil
}

// NewAppWithStore wires an App around an existing store.
func NewAppWithStore(cfg *config.Config, logger *log.Logger, s *store.Store) *App {
	bus := notify.NewBus(logger.WithPrefix("notify"))
	toaster := notify.NewToaster(bus)
	m := metrics.New(s, bus)
	bus.Subscribe(m.ObserveNotification)

	var followUp pages.FollowUpProcessor
	if cfg.FollowUpURL != "" {
		followUp = pages.NewHTTPFollowUp(cfg.FollowUpURL)
	}

	return &App{
		Ctx:     context.Background(),
		Config:  cfg,
		Logger:  logger,
		Store:   s,
		Bus:     bus,
		Toaster: toaster,
		Metrics: m,
		Activities: pages.NewActivities(s, pages.ActivitiesOptions{
			Toaster:  toaster,
			FollowUp: followUp,
			Logger:   logger.WithPrefix("activities"),
		}),
		Now: time.Now,
		In:  os.Stdin,
		Out: os.Stdout,
	}
}

// confirm asks a yes/no question when running on a terminal. Non-interactive
// runs proceed without asking.
func (a *App) confirm(prompt string) bool {
	if !a.Interactive {
		return true
	}
	fmt.Fprintf(a.Out, "%s [y/N]: ", prompt)
	answer, _ := bufio.NewReader(a.In).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
