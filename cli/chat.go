// ABOUTME: Chat assistant bridge command
// ABOUTME: Connects the widget (live or a recorded transcript) to the store and prints the resulting CRM changes
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/chat"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/models"
)

// ChatCommand runs the chat bridge until the widget finishes or the context
// is cancelled. With --replay it feeds a JSON-lines transcript instead of
// connecting to the live widget.
func ChatCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	replay := fs.String("replay", "", "Replay a JSON-lines transcript instead of connecting to the widget")
	delay := fs.Duration("delay", 0, "Delay between replayed events")
	_ = fs.Parse(args)

	cfg := app.Config.Chat
	var widget chat.Widget
	if *replay != "" {
		f, err := os.Open(*replay)
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		defer f.Close()
		widget = chat.NewReplayWidget(f, *delay)
		cfg = replayConfig(cfg)
	} else {
		widget = chat.NewWSWidget(app.Logger)
	}

	bridge := app.newBridge(widget, app.Logger)
	defer bridge.Close()

	unsubscribe := app.Bus.Subscribe(func(n models.Notification) {
		fmt.Fprintf(app.Out, "[%s] %s: %s\n", n.Type, n.Title, n.Message)
	})
	defer unsubscribe()

	if err := bridge.Start(app.Ctx, cfg); err != nil {
		if errors.Is(err, chat.ErrChatDisabled) {
			fmt.Fprintln(app.Out, "Chat assistant disabled: set the LEADPIPE_BOTPRESS_* variables")
			return nil
		}
		return err
	}

	if err := bridge.Run(app.Ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	convs, err := app.Store.ListConversations(app.Ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	fmt.Fprintf(app.Out, "\n✓ Chat session finished: %d conversation(s)\n", len(convs))
	for _, c := range convs {
		lead := "-"
		if c.LeadID != nil {
			lead = fmt.Sprintf("%d", *c.LeadID)
		}
		fmt.Fprintf(app.Out, "  %s  status=%s  lead=%s\n", c.ConversationID, c.Status, lead)
	}
	fmt.Fprintf(app.Out, "  Unread while closed: %d\n", bridge.Unread())
	return nil
}

// newBridge wires a bridge to the app's store, bus and metrics.
func (a *App) newBridge(widget chat.Widget, logger *log.Logger) *chat.Bridge {
	return chat.NewBridge(chat.Options{
		Store:    a.Store,
		Widget:   widget,
		Analyzer: a.analyzer(),
		Toaster:  a.Toaster,
		Notifier: a.Bus,
		Logger:   logger,
		Now:      a.Now,
		Observe: func(ev chat.Event) {
			a.Metrics.ObserveChatEvent(ev.Type)
		},
	})
}

// startChat connects the live widget in the background and returns the
// bridge straight away. A failed start leaves the bridge disabled; the
// caller keeps running. Close the bridge when done.
func (a *App) startChat(logger *log.Logger) *chat.Bridge {
	bridge := a.newBridge(chat.NewWSWidget(logger), logger)
	go func() {
		if err := bridge.Start(a.Ctx, a.Config.Chat); err != nil {
			logger.Debug("chat bridge not started", "err", err)
			return
		}
		if err := bridge.Run(a.Ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("chat bridge stopped", "err", err)
		}
	}()
	return bridge
}

// analyzer picks the conversation analyzer: an HTTP endpoint first, then
// OpenAI, else none.
func (a *App) analyzer() chat.Analyzer {
	switch {
	case a.Config.Analyzer.URL != "":
		return chat.NewHTTPAnalyzer(a.Config.Analyzer.URL)
	case a.Config.Analyzer.OpenAIKey != "":
		return chat.NewOpenAIAnalyzer(a.Config.Analyzer.OpenAIKey, a.Config.Analyzer.OpenAIBase, a.Config.Analyzer.OpenAIModel)
	default:
		return chat.NopAnalyzer{}
	}
}

// replayConfig fills unset widget settings so a transcript can run offline.
func replayConfig(cfg config.ChatConfig) config.ChatConfig {
	if cfg.BotID == "" {
		cfg.BotID = "replay"
	}
	if cfg.HostURL == "" {
		cfg.HostURL = "replay://local"
	}
	if cfg.MessagingURL == "" {
		cfg.MessagingURL = "replay://local"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "replay"
	}
	return cfg
}
