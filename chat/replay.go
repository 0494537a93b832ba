// ABOUTME: In-process widget that replays a recorded JSON-lines transcript
// ABOUTME: Drives the chat bridge offline and in tests
package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/harperreed/leadpipe/config"
)

// ReplayWidget emits events read from a JSON-lines source, one per line.
// Events without a conversation id join the most recently started
// conversation; a start event without an id gets a fresh one.
type ReplayWidget struct {
	emitter

	src   io.Reader
	delay time.Duration

	done      chan struct{}
	closeOnce sync.Once
	stop      chan struct{}
}

// NewReplayWidget creates a widget that waits delay between events.
func NewReplayWidget(src io.Reader, delay time.Duration) *ReplayWidget {
	return &ReplayWidget{
		emitter: emitter{now: time.Now},
		src:     src,
		delay:   delay,
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

// Init parses the whole transcript and starts replaying it in the background.
// A malformed line fails initialization.
func (w *ReplayWidget) Init(ctx context.Context, _ config.ChatConfig) error {
	events, err := parseTranscript(w.src)
	if err != nil {
		return err
	}
	w.markReady()

	go w.replay(ctx, events)
	return nil
}

func parseTranscript(r io.Reader) ([]Event, error) {
	var events []Event
	current := ""
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("transcript line %d: %w", line, err)
		}
		ev = ev.Normalized()
		switch {
		case ev.Type == EventConversationStarted && ev.ConversationID == "":
			ev.ConversationID = NewConversationID()
			current = ev.ConversationID
		case ev.Type == EventConversationStarted:
			current = ev.ConversationID
		case ev.ConversationID == "" && ev.Type != EventWidgetOpened && ev.Type != EventWidgetClosed:
			ev.ConversationID = current
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return events, nil
}

func (w *ReplayWidget) replay(ctx context.Context, events []Event) {
	defer close(w.done)
	for i, ev := range events {
		if i > 0 && w.delay > 0 {
			select {
			case <-time.After(w.delay):
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}
		// keep local visibility in step with recorded open/close events
		switch ev.Type {
		case EventWidgetOpened:
			w.setOpen(true)
		case EventWidgetClosed:
			w.setOpen(false)
		}
		w.emit(ev)
	}
}

func (w *ReplayWidget) Show() error {
	changed, err := w.setOpen(true)
	if err == nil && changed {
		w.emit(Event{Type: EventWidgetOpened})
	}
	return err
}

func (w *ReplayWidget) Hide() error {
	changed, err := w.setOpen(false)
	if err == nil && changed {
		w.emit(Event{Type: EventWidgetClosed})
	}
	return err
}

func (w *ReplayWidget) Toggle() error {
	if w.isOpen() {
		return w.Hide()
	}
	return w.Show()
}

func (w *ReplayWidget) Done() <-chan struct{} {
	return w.done
}

func (w *ReplayWidget) Close() error {
	w.closeOnce.Do(func() { close(w.stop) })
	return nil
}
