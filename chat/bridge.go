// ABOUTME: Chat bridge between the widget and the CRM store
// ABOUTME: Persists transcripts, tracks unread messages and turns analyzed chats into leads
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
)

const (
	msgConfigIncomplete = "Chat assistant configuration incomplete"
	msgReady            = "Chat assistant is ready!"
	msgLoadFailed       = "Failed to load chat assistant. Please check your configuration."
	msgStillLoading     = "Chat assistant is still loading..."
	msgStarted          = "Chat conversation started"
	msgUnavailable      = "Chat assistant is unavailable"

	// conversations need more than this many messages to be analyzed
	analysisThreshold = 2
)

// Store is the part of the entity store the bridge writes to.
type Store interface {
	StartConversation(ctx context.Context, externalID string) (models.Conversation, error)
	EndConversation(ctx context.Context, externalID string) (models.Conversation, error)
	SaveMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetConversation(ctx context.Context, externalID string) (models.ConversationWithMessages, error)
	LinkConversationToLead(ctx context.Context, externalID string, leadID int) (models.Conversation, error)
	ListLeads(ctx context.Context) ([]models.Lead, error)
	CreateLead(ctx context.Context, draft models.Lead) (models.Lead, error)
	CreateActivity(ctx context.Context, draft models.Activity) (models.Activity, error)
}

// Toaster shows short user-facing messages.
type Toaster interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Notifier raises templated bot notifications.
type Notifier interface {
	CreateBotNotification(ctx context.Context, kind string, data map[string]string) (models.Notification, error)
}

type Options struct {
	Store    Store
	Widget   Widget
	Analyzer Analyzer
	Toaster  Toaster
	Notifier Notifier
	Logger   *log.Logger
	Now      func() time.Time
	// Observe, when set, sees every event before it is handled.
	Observe func(Event)
}

type Bridge struct {
	store    Store
	widget   Widget
	analyzer Analyzer
	toast    Toaster
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
	observe  func(Event)

	events chan Event
	stop   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	ready    bool
	disabled bool
	open     bool
	unread   int
}

func NewBridge(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	b := &Bridge{
		store:    opts.Store,
		widget:   opts.Widget,
		analyzer: opts.Analyzer,
		toast:    opts.Toaster,
		notifier: opts.Notifier,
		logger:   logger.WithPrefix("chat"),
		now:      opts.Now,
		observe:  opts.Observe,
		events:   make(chan Event, 64),
		stop:     make(chan struct{}),
	}
	if b.analyzer == nil {
		b.analyzer = NopAnalyzer{}
	}
	if b.toast == nil {
		b.toast = nopToaster{}
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

type nopToaster struct{}

func (nopToaster) Success(string) {}
func (nopToaster) Info(string)    {}
func (nopToaster) Warning(string) {}
func (nopToaster) Error(string)   {}

// Start validates the widget configuration and initializes the widget.
// Incomplete configuration disables chat with a warning instead of failing hard.
func (b *Bridge) Start(ctx context.Context, cfg config.ChatConfig) error {
	if missing := cfg.Missing(); len(missing) > 0 {
		b.logger.Warn("chat disabled", "missing", missing)
		b.toast.Warning(msgConfigIncomplete)
		b.disable()
		return fmt.Errorf("%w: missing %v", ErrChatDisabled, missing)
	}
	if b.widget == nil {
		b.toast.Warning(msgConfigIncomplete)
		b.disable()
		return fmt.Errorf("%w: no widget", ErrChatDisabled)
	}

	b.widget.OnEvent(b.enqueue)
	if err := b.widget.Init(ctx, cfg); err != nil {
		b.logger.Error("failed to initialize chat widget", "err", err)
		b.toast.Error(msgLoadFailed)
		b.disable()
		return fmt.Errorf("failed to initialize chat widget: %w", err)
	}

	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()
	b.toast.Success(msgReady)
	b.logger.Info("chat assistant ready", "bot", cfg.BotID)
	return nil
}

func (b *Bridge) enqueue(ev Event) {
	select {
	case b.events <- ev:
	case <-b.stop:
	}
}

// Run handles widget events one at a time until ctx is done, the bridge is
// closed, or the widget finishes. Events already queued when the widget
// finishes are still handled.
func (b *Bridge) Run(ctx context.Context) error {
	var done <-chan struct{}
	if b.widget != nil {
		done = b.widget.Done()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.stop:
			return nil
		case ev := <-b.events:
			b.HandleEvent(ctx, ev)
		case <-done:
			for {
				select {
				case ev := <-b.events:
					b.HandleEvent(ctx, ev)
				default:
					return nil
				}
			}
		}
	}
}

// Close stops Run and closes the widget.
func (b *Bridge) Close() error {
	b.once.Do(func() { close(b.stop) })
	if b.widget == nil {
		return nil
	}
	return b.widget.Close()
}

func (b *Bridge) disable() {
	b.mu.Lock()
	b.disabled = true
	b.mu.Unlock()
}

// Toggle shows or hides the widget. Before initialization it only tells the
// user to wait; after a failed start it says chat is unavailable.
func (b *Bridge) Toggle() error {
	if b.Disabled() {
		b.toast.Warning(msgUnavailable)
		return nil
	}
	if !b.Ready() {
		b.toast.Info(msgStillLoading)
		return nil
	}
	return b.widget.Toggle()
}

// Disabled reports whether Start gave up on the widget.
func (b *Bridge) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

func (b *Bridge) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Unread is the number of visitor messages received while the widget was closed.
func (b *Bridge) Unread() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unread
}

// HandleEvent applies one widget event. Failures are logged, never returned.
func (b *Bridge) HandleEvent(ctx context.Context, ev Event) {
	ev = ev.Normalized()
	if b.observe != nil {
		b.observe(ev)
	}

	switch ev.Type {
	case EventMessage:
		b.handleMessage(ctx, ev)
	case EventConversationStarted:
		b.handleStarted(ctx, ev)
	case EventConversationEnded:
		b.handleEnded(ctx, ev)
	case EventWidgetOpened:
		b.mu.Lock()
		b.open = true
		b.unread = 0
		b.mu.Unlock()
	case EventWidgetClosed:
		b.mu.Lock()
		b.open = false
		b.mu.Unlock()
	default:
		b.logger.Debug("ignoring widget event", "type", ev.Type)
	}
}

func (b *Bridge) handleMessage(ctx context.Context, ev Event) {
	_, err := b.store.SaveMessage(ctx, models.Message{
		ConversationID: ev.ConversationID,
		UserID:         ev.UserID,
		Message:        ev.Message,
		Timestamp:      ev.Timestamp,
	})
	if err != nil {
		b.logger.Error("failed to save message", "conversation", ev.ConversationID, "err", err)
	}

	if ev.UserID == models.BotUserID {
		return
	}
	b.mu.Lock()
	if !b.open {
		b.unread++
	}
	b.mu.Unlock()
}

func (b *Bridge) handleStarted(ctx context.Context, ev Event) {
	id := ev.ConversationID
	if id == "" {
		id = NewConversationID()
	}
	if _, err := b.store.StartConversation(ctx, id); err != nil {
		b.logger.Error("failed to start conversation", "conversation", id, "err", err)
		return
	}
	b.logger.Info("conversation started", "conversation", id)
	b.toast.Success(msgStarted)
}

func (b *Bridge) handleEnded(ctx context.Context, ev Event) {
	id := ev.ConversationID
	if _, err := b.store.EndConversation(ctx, id); err != nil {
		b.logger.Error("failed to end conversation", "conversation", id, "err", err)
		return
	}

	conv, err := b.store.GetConversation(ctx, id)
	if err != nil {
		b.logger.Error("failed to load conversation", "conversation", id, "err", err)
		return
	}
	if len(conv.Messages) <= analysisThreshold {
		b.logger.Debug("conversation too short to analyze", "conversation", id, "messages", len(conv.Messages))
		return
	}

	res, err := b.analyzer.Analyze(ctx, AnalysisRequest{ConversationID: id, Messages: conv.Messages})
	if err != nil {
		b.logger.Warn("conversation analysis failed", "conversation", id, "err", err)
		return
	}
	if !res.Success {
		b.logger.Debug("conversation analysis unsuccessful", "conversation", id, "error", res.Error)
		return
	}

	b.raise(ctx, notify.KindConversationAnalyzed, map[string]string{
		"conversationId": id,
		"confidence":     strconv.FormatFloat(res.Data.Confidence, 'f', 0, 64),
	})

	name := res.Data.LeadName
	if res.Data.Lead != nil {
		lead, err := b.synthesize(ctx, id, res.Data)
		if err != nil {
			b.logger.Warn("failed to record lead from conversation", "conversation", id, "err", err)
		} else if name == "" {
			name = lead.FullName()
		}
	}

	if res.Data.UpdateRecommended {
		b.raise(ctx, notify.KindCRMUpdate, map[string]string{"conversationId": id})
	}
	if res.Data.LeadCreated {
		b.toast.Success("New lead created: " + name)
	}
}

// synthesize records the analyzer's lead draft: it reuses a lead with the
// same email or creates a bot-generated one, links the conversation and
// logs a bot-interaction activity.
func (b *Bridge) synthesize(ctx context.Context, convID string, data AnalysisData) (models.Lead, error) {
	draft := data.Lead
	leads, err := b.store.ListLeads(ctx)
	if err != nil {
		return models.Lead{}, fmt.Errorf("failed to list leads: %w", err)
	}

	lead, found := NewLeadMatcher(leads).FindMatch(draft.Email)
	if found {
		b.logger.Info("conversation matched existing lead", "conversation", convID, "lead", lead.ID)
	} else {
		company := draft.Company
		if company == "" {
			company = companyFromEmail(draft.Email)
		}
		var summary *string
		if data.Summary != "" {
			summary = models.String(data.Summary)
		}
		lead, err = b.store.CreateLead(ctx, models.Lead{
			FirstName:      draft.FirstName,
			LastName:       draft.LastName,
			Email:          draft.Email,
			Phone:          draft.Phone,
			Company:        company,
			ProductName:    draft.ProductName,
			Status:         models.LeadStatusNew,
			Source:         models.SourceChatBot,
			ConversationID: convID,
			BotGenerated:   true,
			ChatSummary:    summary,
		})
		if err != nil {
			return models.Lead{}, fmt.Errorf("failed to create lead: %w", err)
		}
		b.logger.Info("lead created from conversation", "conversation", convID, "lead", lead.ID)
		b.raise(ctx, notify.KindLeadCreated, map[string]string{
			"leadName": lead.FullName(),
			"leadId":   strconv.Itoa(lead.ID),
		})
	}

	if _, err := b.store.LinkConversationToLead(ctx, convID, lead.ID); err != nil {
		b.logger.Warn("failed to link conversation", "conversation", convID, "lead", lead.ID, "err", err)
	}

	subject := "Chat conversation with " + lead.FullName()
	description := data.Summary
	if description == "" {
		description = "Conversation captured by the chat assistant"
	}
	act, err := b.store.CreateActivity(ctx, models.Activity{
		LeadID:         models.Ref(lead.ID),
		Type:           models.ActivityBotInteraction,
		Subject:        subject,
		Description:    description,
		DueDate:        b.now(),
		ConversationID: convID,
		BotGenerated:   true,
	})
	if err != nil {
		b.logger.Warn("failed to record chat activity", "conversation", convID, "err", err)
		return lead, nil
	}
	b.raise(ctx, notify.KindActivityCreated, map[string]string{
		"activityType": act.Type,
		"subject":      act.Subject,
	})
	return lead, nil
}

func (b *Bridge) raise(ctx context.Context, kind string, data map[string]string) {
	if b.notifier == nil {
		return
	}
	if _, err := b.notifier.CreateBotNotification(ctx, kind, data); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Warn("failed to raise notification", "kind", kind, "err", err)
	}
}
