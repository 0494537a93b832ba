// ABOUTME: Chat widget abstraction
// ABOUTME: Shared visibility and event fan-out used by the websocket and replay widgets
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harperreed/leadpipe/config"
)

var errNotInitialized = errors.New("chat widget not initialized")

// Widget is the embedded chat client. Events are delivered through the
// callback registered with OnEvent; Done closes once the widget stops
// producing events.
type Widget interface {
	Init(ctx context.Context, cfg config.ChatConfig) error
	Show() error
	Hide() error
	Toggle() error
	OnEvent(fn func(Event))
	Done() <-chan struct{}
	Close() error
}

// emitter holds the event callback and the open/closed flag.
type emitter struct {
	mu      sync.Mutex
	handler func(Event)
	ready   bool
	open    bool
	now     func() time.Time
}

func (e *emitter) OnEvent(fn func(Event)) {
	e.mu.Lock()
	e.handler = fn
	e.mu.Unlock()
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	fn := e.handler
	e.mu.Unlock()
	if fn == nil {
		return
	}
	if ev.Timestamp.IsZero() && e.now != nil {
		ev.Timestamp = e.now()
	}
	fn(ev.Normalized())
}

func (e *emitter) markReady() {
	e.mu.Lock()
	e.ready = true
	e.mu.Unlock()
}

// setOpen flips visibility and reports whether anything changed.
func (e *emitter) setOpen(open bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return false, errNotInitialized
	}
	changed := e.open != open
	e.open = open
	return changed, nil
}

func (e *emitter) isOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}
