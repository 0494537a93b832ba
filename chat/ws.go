// ABOUTME: Websocket chat widget client
// ABOUTME: Reads widget events from the messaging endpoint and sends show/hide commands
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/harperreed/leadpipe/config"
)

type widgetCommand struct {
	Type     string `json:"type"`
	BotID    string `json:"botId,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

// WSWidget connects to the widget messaging URL and decodes one JSON event
// per websocket message.
type WSWidget struct {
	emitter

	logger *log.Logger
	cfg    config.ChatConfig

	writeMu sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
}

func NewWSWidget(logger *log.Logger) *WSWidget {
	if logger == nil {
		logger = log.Default()
	}
	return &WSWidget{
		emitter: emitter{now: time.Now},
		logger:  logger.WithPrefix("widget"),
		done:    make(chan struct{}),
	}
}

func (w *WSWidget) Init(ctx context.Context, cfg config.ChatConfig) error {
	if missing := cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrChatDisabled, missing)
	}
	header := http.Header{}
	header.Set("X-Bot-Id", cfg.BotID)
	header.Set("X-Client-Id", cfg.ClientID)
	header.Set("Origin", cfg.HostURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.MessagingURL, header)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	w.writeMu.Lock()
	w.conn = conn
	w.writeMu.Unlock()
	w.cfg = cfg

	if err := w.send(widgetCommand{Type: "init", BotID: cfg.BotID, ClientID: cfg.ClientID}); err != nil {
		conn.Close()
		return fmt.Errorf("send init: %w", err)
	}
	w.markReady()

	go w.readLoop()
	return nil
}

func (w *WSWidget) readLoop() {
	defer close(w.done)
	for {
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Warn("widget connection closed", "err", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			w.logger.Warn("dropping undecodable widget event", "err", err)
			continue
		}
		ev = ev.Normalized()
		switch ev.Type {
		case EventWidgetOpened:
			w.setOpen(true)
		case EventWidgetClosed:
			w.setOpen(false)
		}
		w.emit(ev)
	}
}

func (w *WSWidget) send(cmd widgetCommand) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(cmd)
}

func (w *WSWidget) Show() error {
	changed, err := w.setOpen(true)
	if err != nil || !changed {
		return err
	}
	if err := w.send(widgetCommand{Type: "show"}); err != nil {
		return fmt.Errorf("show widget: %w", err)
	}
	w.emit(Event{Type: EventWidgetOpened})
	return nil
}

func (w *WSWidget) Hide() error {
	changed, err := w.setOpen(false)
	if err != nil || !changed {
		return err
	}
	if err := w.send(widgetCommand{Type: "hide"}); err != nil {
		return fmt.Errorf("hide widget: %w", err)
	}
	w.emit(Event{Type: EventWidgetClosed})
	return nil
}

func (w *WSWidget) Toggle() error {
	if w.isOpen() {
		return w.Hide()
	}
	return w.Show()
}

func (w *WSWidget) Done() <-chan struct{} {
	return w.done
}

func (w *WSWidget) Close() error {
	w.writeMu.Lock()
	conn := w.conn
	if conn == nil {
		w.writeMu.Unlock()
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()

	err := conn.Close()
	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
	}
	return err
}
