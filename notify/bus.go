// ABOUTME: In-memory notification list with synchronous publish/subscribe fan-out
// ABOUTME: Subscribers run outside the bus lock and each delivery recovers from panics
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/models"
)

// Subscriber receives every notification created on the bus.
type Subscriber func(models.Notification)

type subscription struct {
	id int
	fn Subscriber
}

// Bus holds notifications newest first and fans them out to subscribers.
type Bus struct {
	mu            sync.Mutex
	notifications []models.Notification
	nextID        int
	subs          []subscription
	nextSub       int
	logger        *log.Logger
	now           func() time.Time
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{logger: logger, now: time.Now}
}

// Subscribe registers fn and returns a func that removes exactly this
// registration. Calling it twice is a no-op.
func (b *Bus) Subscribe(fn Subscriber) func() {
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Create stamps and stores a notification at the front of the list, then
// delivers it to every subscriber in subscription order.
func (b *Bus) Create(ctx context.Context, draft models.Notification) (models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return models.Notification{}, err
	}

	n := draft.Clone()
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	n.Read = false
	n.Dismissed = false

	b.mu.Lock()
	b.nextID++
	n.ID = b.nextID
	n.Timestamp = b.now()
	b.notifications = append([]models.Notification{n}, b.notifications...)
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, n.Clone())
	}
	return n.Clone(), nil
}

func (b *Bus) deliver(s subscription, n models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("notification subscriber panicked", "subscriber", s.id, "notification", n.ID, "panic", r)
		}
	}()
	s.fn(n)
}

func (b *Bus) List() []models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Notification, 0, len(b.notifications))
	for _, n := range b.notifications {
		out = append(out, n.Clone())
	}
	return out
}

func (b *Bus) Unread() []models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Notification
	for _, n := range b.notifications {
		if !n.Read {
			out = append(out, n.Clone())
		}
	}
	return out
}

// MarkAsRead flags one notification as read. Unknown ids are ignored.
func (b *Bus) MarkAsRead(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		if b.notifications[i].ID == id {
			b.notifications[i].Read = true
			return
		}
	}
}

// MarkAllAsRead flags every notification as read and returns the list length.
func (b *Bus) MarkAllAsRead() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		b.notifications[i].Read = true
	}
	return len(b.notifications)
}

// Dismiss hides one notification until ClearDismissed. Unknown ids are ignored.
func (b *Bus) Dismiss(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		if b.notifications[i].ID == id {
			b.notifications[i].Dismissed = true
			return
		}
	}
}

// ClearDismissed drops dismissed notifications and returns how many went.
func (b *Bus) ClearDismissed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.notifications[:0]
	for _, n := range b.notifications {
		if !n.Dismissed {
			kept = append(kept, n)
		}
	}
	removed := len(b.notifications) - len(kept)
	b.notifications = kept
	return removed
}

func (b *Bus) Stats() models.NotificationStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := models.NotificationStats{
		Total:  len(b.notifications),
		ByType: map[string]int{},
	}
	for _, n := range b.notifications {
		if !n.Read {
			stats.Unread++
		}
		stats.ByType[n.Type]++
	}
	stats.Read = stats.Total - stats.Unread
	return stats
}
