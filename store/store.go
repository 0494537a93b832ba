// ABOUTME: In-memory entity store seeded from fixture data
// ABOUTME: Owns the lead, deal, activity and conversation collections with simulated latency
package store

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/models"
)

// Op names an operation class for the latency profile.
type Op string

const (
	OpList     Op = "list"
	OpGet      Op = "get"
	OpCreate   Op = "create"
	OpUpdate   Op = "update"
	OpDelete   Op = "delete"
	OpMove     Op = "move"
	OpComplete Op = "complete"
	OpChat     Op = "chat"
)

// Delay is a closed range of simulated latency. Min == Max means fixed.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Latency maps operation classes to delays. Missing entries mean no delay.
type Latency map[Op]Delay

// DefaultLatency mirrors the response times of the hosted mock service.
var DefaultLatency = Latency{
	OpList:     {300 * time.Millisecond, 300 * time.Millisecond},
	OpGet:      {200 * time.Millisecond, 200 * time.Millisecond},
	OpCreate:   {400 * time.Millisecond, 400 * time.Millisecond},
	OpUpdate:   {350 * time.Millisecond, 350 * time.Millisecond},
	OpDelete:   {250 * time.Millisecond, 250 * time.Millisecond},
	OpMove:     {300 * time.Millisecond, 300 * time.Millisecond},
	OpComplete: {200 * time.Millisecond, 200 * time.Millisecond},
	OpChat:     {50 * time.Millisecond, 200 * time.Millisecond},
}

// NoLatency disables simulated delays.
var NoLatency = Latency{}

func (l Latency) pick(op Op) time.Duration {
	d, ok := l[op]
	if !ok || d.Max <= 0 {
		return 0
	}
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)+1))
}

type Options struct {
	Latency Latency
	Logger  *log.Logger
	// Fixtures seeds the collections. Nil means empty collections.
	Fixtures *Fixtures
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Store owns every entity collection. Each collection has its own lock and
// every mutation runs entirely under it.
type Store struct {
	latency Latency
	logger  *log.Logger
	now     func() time.Time

	leadsMu     sync.RWMutex
	leads       []models.Lead
	leadsHigh   int
	dealsMu     sync.RWMutex
	deals       []models.Deal
	dealsHigh   int
	actsMu      sync.RWMutex
	activities  []models.Activity
	actsHigh    int
	convMu      sync.RWMutex
	convs       []models.Conversation
	convsHigh   int
	messages    []models.Message
	messageHigh int
}

// New creates a store seeded from opts.Fixtures.
func New(opts Options) *Store {
	s := &Store{
		latency: opts.Latency,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if s.latency == nil {
		s.latency = NoLatency
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	if f := opts.Fixtures; f != nil {
		for _, l := range f.Leads {
			s.leads = append(s.leads, l.Clone())
		}
		for _, d := range f.Deals {
			s.deals = append(s.deals, d.Clone())
		}
		for _, a := range f.Activities {
			s.activities = append(s.activities, a.Clone())
		}
		for _, c := range f.Conversations {
			s.convs = append(s.convs, c.Clone())
		}
		s.messages = append(s.messages, f.Messages...)
	}
	for _, l := range s.leads {
		s.leadsHigh = max(s.leadsHigh, l.ID)
	}
	for _, d := range s.deals {
		s.dealsHigh = max(s.dealsHigh, d.ID)
	}
	for _, a := range s.activities {
		s.actsHigh = max(s.actsHigh, a.ID)
	}
	for _, c := range s.convs {
		s.convsHigh = max(s.convsHigh, c.ID)
	}
	for _, m := range s.messages {
		s.messageHigh = max(s.messageHigh, m.ID)
	}

	return s
}

// wait simulates service latency after a mutation committed. Cancellation
// surfaces ctx.Err() but never rolls back the mutation.
func (s *Store) wait(ctx context.Context, op Op) error {
	d := s.latency.pick(op)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nextID returns the next id for a collection and advances its high-water mark.
func nextID(high *int, maxExisting int) int {
	id := max(*high, maxExisting) + 1
	*high = id
	return id
}
