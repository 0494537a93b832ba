// ABOUTME: Tests for the JSON HTTP API
// ABOUTME: Drives the chi router through httptest against a fixture-backed store
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/leadpipe/chat"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/metrics"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *notify.Bus) {
	t.Helper()
	fixtures, err := store.LoadFixtures("")
	require.NoError(t, err)
	s := store.New(store.Options{Latency: store.NoLatency, Fixtures: fixtures})
	bus := notify.NewBus(nil)
	now := func() time.Time { return time.Date(2024, 2, 7, 12, 0, 0, 0, time.UTC) }
	return NewServer(Options{
		Store:   s,
		Bus:     bus,
		Toaster: notify.NewToaster(bus),
		Metrics: metrics.New(s, bus),
		Now:     now,
	}), bus
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestAPI_ListLeads(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, "GET", "/api/v1/leads?status=qualified", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var view pages.LeadsView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Len(t, view.Leads, 3)
	assert.Equal(t, 8, view.Total)
}

func TestAPI_LeadLifecycle(t *testing.T) {
	srv, bus := testServer(t)

	rr := do(t, srv, "POST", "/api/v1/leads", map[string]string{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@engines.io"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var lead models.Lead
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lead))
	assert.Equal(t, 9, lead.ID)
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	rr = do(t, srv, "PUT", "/api/v1/leads/9", map[string]string{"status": "qualified"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lead))
	assert.Equal(t, models.LeadStatusQualified, lead.Status)
	assert.Equal(t, "Ada", lead.FirstName)

	rr = do(t, srv, "DELETE", "/api/v1/leads/9", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, "GET", "/api/v1/leads/9", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, 3, bus.Stats().Total)
}

func TestAPI_BadRequests(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, "POST", "/api/v1/leads", map[string]string{"firstName": "Ada"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest("POST", "/api/v1/deals", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rr = do(t, srv, "GET", "/api/v1/deals/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, "PUT", "/api/v1/deals/1", map[string]string{"stage": "closed-won"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_MoveDealEnforcesEdges(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, "POST", "/api/v1/deals/3/move", map[string]string{"stage": "closed-won"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, srv, "POST", "/api/v1/deals/3/move", map[string]string{"stage": "proposal"})
	require.Equal(t, http.StatusOK, rr.Code)
	var deal models.Deal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &deal))
	assert.Equal(t, models.StageProposal, deal.Stage)
	assert.Equal(t, 50, deal.Probability)

	rr = do(t, srv, "POST", "/api/v1/deals/99/move", map[string]string{"stage": "proposal"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_CompleteActivity(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, "POST", "/api/v1/activities/3/complete", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var res models.CompletionResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Activity.Completed)

	rr = do(t, srv, "GET", "/api/v1/activities?status=pending", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var view pages.ActivitiesView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Len(t, view.Activities, 4)
}

func TestAPI_DashboardAndReports(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, "GET", "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var dash pages.DashboardView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	assert.Equal(t, 8, dash.TotalLeads)

	rr = do(t, srv, "GET", "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rep pages.ReportsView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, 50, rep.WinRate)
}

func TestAPI_Notifications(t *testing.T) {
	srv, bus := testServer(t)
	notify.NewToaster(bus).Info("hello")
	notify.NewToaster(bus).Info("world")

	rr := do(t, srv, "GET", "/api/v1/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp notificationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 2)

	id := resp.Notifications[0].ID
	rr = do(t, srv, "POST", "/api/v1/notifications/"+itoa(id)+"/read", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Stats.Unread)

	rr = do(t, srv, "DELETE", "/api/v1/notifications/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, srv, "DELETE", "/api/v1/notifications/dismissed", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Stats.Total)

	rr = do(t, srv, "POST", "/api/v1/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Stats.Unread)
}

func TestAPI_ConversationNotFound(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, "GET", "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())

	rr = do(t, srv, "GET", "/api/v1/conversations/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_PipelineGraphAndMetrics(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, "GET", "/api/v1/graphs/pipeline", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<svg")

	rr = do(t, srv, "GET", "/api/v1/graphs/pipeline?format=png", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `leadpipe_leads{status="qualified"} 3`)
}

func TestAPI_CORSPreflight(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/leads", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(i int) string {
	data, _ := json.Marshal(i)
	return string(data)
}

func TestAPI_ChatDisabledWithoutBridge(t *testing.T) {
	srv, _ := testServer(t)

	rr := do(t, srv, http.MethodGet, "/api/v1/chat", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var status chatStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.False(t, status.Enabled)

	rr = do(t, srv, http.MethodPost, "/api/v1/chat/toggle", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAPI_ChatBridgeStatusAndMetrics(t *testing.T) {
	ctx := context.Background()
	s := store.New(store.Options{Latency: store.NoLatency})
	bus := notify.NewBus(nil)
	m := metrics.New(s, bus)

	transcript := strings.Join([]string{
		`{"type":"conversation.started","conversationId":"web-1"}`,
		`{"type":"message","userId":"visitor","message":"hello?"}`,
		`{"type":"message","userId":"bot","message":"Hi! How can I help?"}`,
		`{"type":"message","userId":"visitor","message":"pricing please"}`,
	}, "\n")
	bridge := chat.NewBridge(chat.Options{
		Store:    s,
		Widget:   chat.NewReplayWidget(strings.NewReader(transcript), 0),
		Toaster:  notify.NewToaster(bus),
		Notifier: bus,
		Observe:  func(ev chat.Event) { m.ObserveChatEvent(ev.Type) },
	})
	defer bridge.Close()
	require.NoError(t, bridge.Start(ctx, config.ChatConfig{BotID: "b", HostURL: "h", MessagingURL: "m", ClientID: "c"}))
	require.NoError(t, bridge.Run(ctx))

	srv := NewServer(Options{Store: s, Bus: bus, Toaster: notify.NewToaster(bus), Metrics: m, Chat: bridge})

	rr := do(t, srv, http.MethodGet, "/api/v1/chat", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var status chatStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.True(t, status.Enabled)
	assert.True(t, status.Ready)
	assert.False(t, status.Open)
	assert.Equal(t, 2, status.Unread)

	rr = do(t, srv, http.MethodPost, "/api/v1/chat/toggle", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rr.Body.String(), `leadpipe_chat_events_total{type="message"} 3`)
}
