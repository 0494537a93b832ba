// ABOUTME: Tests for the chat bridge
// ABOUTME: Drives the bridge with a replay widget, a real store and a stub analyzer
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testChatConfig = config.ChatConfig{
	BotID:        "bot-1",
	HostURL:      "https://cdn.example.com",
	MessagingURL: "wss://messaging.example.com",
	ClientID:     "client-1",
}

type recordingToaster struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingToaster) add(kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, kind+": "+msg)
}

func (r *recordingToaster) Success(msg string) { r.add("success", msg) }
func (r *recordingToaster) Info(msg string)    { r.add("info", msg) }
func (r *recordingToaster) Warning(msg string) { r.add("warning", msg) }
func (r *recordingToaster) Error(msg string)   { r.add("error", msg) }

func (r *recordingToaster) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

type stubAnalyzer struct {
	result AnalysisResult
	err    error
	calls  []AnalysisRequest
}

func (s *stubAnalyzer) Analyze(_ context.Context, req AnalysisRequest) (AnalysisResult, error) {
	s.calls = append(s.calls, req)
	return s.result, s.err
}

type fixture struct {
	store    *store.Store
	bus      *notify.Bus
	toast    *recordingToaster
	analyzer *stubAnalyzer
	bridge   *Bridge
}

func setupBridge(t *testing.T, widget Widget) *fixture {
	t.Helper()
	f := &fixture{
		store:    store.New(store.Options{Latency: store.NoLatency}),
		bus:      notify.NewBus(nil),
		toast:    &recordingToaster{},
		analyzer: &stubAnalyzer{},
	}
	f.bridge = NewBridge(Options{
		Store:    f.store,
		Widget:   widget,
		Analyzer: f.analyzer,
		Toaster:  f.toast,
		Notifier: f.bus,
	})
	return f
}

func leadResult() AnalysisResult {
	return AnalysisResult{
		Success: true,
		Data: AnalysisData{
			LeadCreated: true,
			LeadName:    "Dana Scully",
			Confidence:  87,
			Summary:     "Wants a quote for 20 seats",
			Lead: &LeadDraft{
				FirstName: "Dana",
				LastName:  "Scully",
				Email:     "dana@fbi.gov",
			},
		},
	}
}

func (f *fixture) converse(t *testing.T, id string, n int) {
	t.Helper()
	ctx := context.Background()
	f.bridge.HandleEvent(ctx, Event{Type: EventConversationStarted, ConversationID: id})
	for i := 0; i < n; i++ {
		user := "visitor"
		if i%2 == 1 {
			user = models.BotUserID
		}
		f.bridge.HandleEvent(ctx, Event{Type: EventMessage, ConversationID: id, UserID: user, Message: "hello"})
	}
	f.bridge.HandleEvent(ctx, Event{Type: EventConversationEnded, ConversationID: id})
}

func TestStartWithMissingConfigDisablesChat(t *testing.T) {
	f := setupBridge(t, NewReplayWidget(strings.NewReader(""), 0))

	err := f.bridge.Start(context.Background(), config.ChatConfig{BotID: "only"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChatDisabled))
	assert.Equal(t, []string{"warning: Chat assistant configuration incomplete"}, f.toast.all())
	assert.False(t, f.bridge.Ready())
}

func TestStartReportsWidgetFailure(t *testing.T) {
	f := setupBridge(t, NewReplayWidget(strings.NewReader("{not json"), 0))

	err := f.bridge.Start(context.Background(), testChatConfig)
	require.Error(t, err)
	assert.Equal(t, []string{"error: Failed to load chat assistant. Please check your configuration."}, f.toast.all())
	assert.False(t, f.bridge.Ready())
}

func TestToggleBeforeReady(t *testing.T) {
	f := setupBridge(t, NewReplayWidget(strings.NewReader(""), 0))

	require.NoError(t, f.bridge.Toggle())
	assert.Equal(t, []string{"info: Chat assistant is still loading..."}, f.toast.all())
}

func TestToggleAfterDisabledStart(t *testing.T) {
	f := setupBridge(t, NewReplayWidget(strings.NewReader(""), 0))

	require.Error(t, f.bridge.Start(context.Background(), config.ChatConfig{}))
	assert.True(t, f.bridge.Disabled())

	require.NoError(t, f.bridge.Toggle())
	assert.Equal(t, []string{
		"warning: Chat assistant configuration incomplete",
		"warning: Chat assistant is unavailable",
	}, f.toast.all())
}

func TestToggleOpensReadyWidget(t *testing.T) {
	f := setupBridge(t, NewReplayWidget(strings.NewReader(""), 0))
	ctx := context.Background()

	require.NoError(t, f.bridge.Start(ctx, testChatConfig))
	assert.False(t, f.bridge.Disabled())
	require.NoError(t, f.bridge.Toggle())
	require.NoError(t, f.bridge.Run(ctx))
	assert.True(t, f.bridge.IsOpen())
}

func TestUnreadCountsVisitorMessagesWhileClosed(t *testing.T) {
	f := setupBridge(t, nil)
	ctx := context.Background()

	f.bridge.HandleEvent(ctx, Event{Type: EventMessage, ConversationID: "c1", UserID: "visitor", Message: "hi"})
	f.bridge.HandleEvent(ctx, Event{Type: EventMessage, ConversationID: "c1", UserID: models.BotUserID, Message: "hello!"})
	f.bridge.HandleEvent(ctx, Event{Type: EventMessage, ConversationID: "c1", UserID: "visitor", Message: "prices?"})
	assert.Equal(t, 2, f.bridge.Unread())

	f.bridge.HandleEvent(ctx, Event{Type: "webchat.opened"})
	assert.True(t, f.bridge.IsOpen())
	assert.Equal(t, 0, f.bridge.Unread())

	f.bridge.HandleEvent(ctx, Event{Type: EventMessage, ConversationID: "c1", UserID: "visitor", Message: "still there?"})
	assert.Equal(t, 0, f.bridge.Unread())

	f.bridge.HandleEvent(ctx, Event{Type: EventWidgetClosed})
	assert.False(t, f.bridge.IsOpen())
	f.bridge.HandleEvent(ctx, Event{Type: EventMessage, ConversationID: "c1", UserID: "visitor", Message: "bye"})
	assert.Equal(t, 1, f.bridge.Unread())
}

func TestShortConversationIsNotAnalyzed(t *testing.T) {
	f := setupBridge(t, nil)
	f.analyzer.result = leadResult()

	f.converse(t, "short", 2)

	assert.Empty(t, f.analyzer.calls)
	conv, err := f.store.GetConversation(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationCompleted, conv.Status)
	assert.NotNil(t, conv.EndTime)
}

func TestAnalyzedConversationCreatesLead(t *testing.T) {
	f := setupBridge(t, nil)
	f.analyzer.result = leadResult()
	ctx := context.Background()

	f.converse(t, "long", 3)

	require.Len(t, f.analyzer.calls, 1)
	assert.Equal(t, "long", f.analyzer.calls[0].ConversationID)
	assert.Len(t, f.analyzer.calls[0].Messages, 3)

	leads, err := f.store.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	lead := leads[0]
	assert.Equal(t, models.SourceChatBot, lead.Source)
	assert.True(t, lead.BotGenerated)
	assert.Equal(t, "long", lead.ConversationID)
	assert.Equal(t, "Fbi", lead.Company)
	require.NotNil(t, lead.ChatSummary)
	assert.Equal(t, "Wants a quote for 20 seats", *lead.ChatSummary)

	conv, err := f.store.GetConversation(ctx, "long")
	require.NoError(t, err)
	assert.True(t, conv.LeadCreated)
	assert.True(t, models.RefEquals(conv.LeadID, lead.ID))

	acts, err := f.store.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityBotInteraction, acts[0].Type)
	assert.False(t, acts[0].Completed)
	assert.True(t, models.RefEquals(acts[0].LeadID, lead.ID))

	titles := map[string]bool{}
	for _, n := range f.bus.List() {
		titles[n.Title] = true
		assert.Equal(t, "bot", n.Source)
	}
	assert.True(t, titles["New Lead Created"])
	assert.True(t, titles["Activity Created"])
	assert.True(t, titles["Conversation Analyzed"])

	assert.Contains(t, f.toast.all(), "success: New lead created: Dana Scully")
	assert.Contains(t, f.toast.all(), "success: Chat conversation started")
}

func TestAnalyzedConversationReusesLeadByEmail(t *testing.T) {
	f := setupBridge(t, nil)
	ctx := context.Background()
	existing, err := f.store.CreateLead(ctx, models.Lead{FirstName: "Dana", LastName: "Scully", Email: "DANA@fbi.gov"})
	require.NoError(t, err)
	f.analyzer.result = leadResult()

	f.converse(t, "again", 4)

	leads, err := f.store.ListLeads(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 1)

	conv, err := f.store.GetConversation(ctx, "again")
	require.NoError(t, err)
	assert.True(t, models.RefEquals(conv.LeadID, existing.ID))

	for _, n := range f.bus.List() {
		assert.NotEqual(t, "New Lead Created", n.Title)
	}
}

func TestAnalyzerFailureIsSwallowed(t *testing.T) {
	f := setupBridge(t, nil)
	f.analyzer.err = errors.New("endpoint down")

	f.converse(t, "boom", 5)

	require.Len(t, f.analyzer.calls, 1)
	conv, err := f.store.GetConversation(context.Background(), "boom")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationCompleted, conv.Status)
	assert.Empty(t, f.bus.List())
}

func TestUnsuccessfulAnalysisRaisesNothing(t *testing.T) {
	f := setupBridge(t, nil)
	f.analyzer.result = AnalysisResult{Success: false, Error: "no contact details"}

	f.converse(t, "quiet", 3)

	assert.Empty(t, f.bus.List())
	leads, err := f.store.ListLeads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestUpdateRecommendedRaisesCRMUpdate(t *testing.T) {
	f := setupBridge(t, nil)
	f.analyzer.result = AnalysisResult{Success: true, Data: AnalysisData{Confidence: 40, UpdateRecommended: true}}

	f.converse(t, "upd", 3)

	var titles []string
	for _, n := range f.bus.List() {
		titles = append(titles, n.Title)
	}
	assert.ElementsMatch(t, []string{"Conversation Analyzed", "CRM Update Recommended"}, titles)
}

func TestEndingUnknownConversationIsLogged(t *testing.T) {
	f := setupBridge(t, nil)

	f.bridge.HandleEvent(context.Background(), Event{Type: EventConversationEnded, ConversationID: "ghost"})

	assert.Empty(t, f.analyzer.calls)
}

func TestRunReplaysTranscript(t *testing.T) {
	transcript := `
{"type":"conversation.started"}
{"type":"message","userId":"visitor","message":"Hi, I'm Dana from the FBI"}
{"type":"message","userId":"bot","message":"Hi Dana! What's your email?"}
{"type":"message","userId":"visitor","message":"dana@fbi.gov"}
{"type":"conversation.ended"}
`
	widget := NewReplayWidget(strings.NewReader(transcript), 0)
	f := setupBridge(t, widget)
	f.analyzer.result = leadResult()

	var mu sync.Mutex
	var seen []string
	f.bridge.observe = func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.bridge.Start(ctx, testChatConfig))
	require.NoError(t, f.bridge.Run(ctx))

	assert.Contains(t, f.toast.all(), "success: Chat assistant is ready!")
	assert.Equal(t, 2, f.bridge.Unread())

	convs, err := f.store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.NotEmpty(t, convs[0].ConversationID)
	assert.True(t, convs[0].LeadCreated)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		EventConversationStarted, EventMessage, EventMessage, EventMessage, EventConversationEnded,
	}, seen)
}

func TestCloseStopsRun(t *testing.T) {
	f := setupBridge(t, nil)
	errc := make(chan error, 1)
	go func() { errc <- f.bridge.Run(context.Background()) }()

	require.NoError(t, f.bridge.Close())
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
