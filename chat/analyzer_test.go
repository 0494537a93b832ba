package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harperreed/leadpipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcript() []models.Message {
	return []models.Message{
		{ConversationID: "c1", UserID: "visitor", Message: "Hi, I'm Dana"},
		{ConversationID: "c1", UserID: models.BotUserID, Message: "Hello Dana"},
		{ConversationID: "c1", UserID: "visitor", Message: "dana@fbi.gov"},
	}
}

func TestHTTPAnalyzer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req AnalysisRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "c1", req.ConversationID)
		assert.Len(t, req.Messages, 3)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"leadCreated":true,"leadName":"Dana Scully","confidence":91}}`))
	}))
	defer srv.Close()

	res, err := NewHTTPAnalyzer(srv.URL).Analyze(context.Background(), AnalysisRequest{ConversationID: "c1", Messages: transcript()})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Data.LeadCreated)
	assert.Equal(t, "Dana Scully", res.Data.LeadName)
	assert.InDelta(t, 91, res.Data.Confidence, 0.001)
}

func TestHTTPAnalyzerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPAnalyzer(srv.URL).Analyze(context.Background(), AnalysisRequest{ConversationID: "c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestOpenAIAnalyzer(t *testing.T) {
	verdict := "```json\n" + `{"leadCreated":true,"confidence":80,"lead":{"firstName":"Dana","lastName":"Scully","email":"dana@fbi.gov"},"summary":"Wants pricing"}` + "\n```"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Contains(t, body.Messages[1].Content, "bot: Hello Dana")
			assert.Contains(t, body.Messages[1].Content, "visitor: dana@fbi.gov")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": verdict},
			}},
		})
	}))
	defer srv.Close()

	a := NewOpenAIAnalyzer("sk-test", srv.URL+"/v1", "test-model")
	res, err := a.Analyze(context.Background(), AnalysisRequest{ConversationID: "c1", Messages: transcript()})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Data.LeadCreated)
	assert.Equal(t, "Dana Scully", res.Data.LeadName)
	require.NotNil(t, res.Data.Lead)
	assert.Equal(t, "dana@fbi.gov", res.Data.Lead.Email)
	assert.Equal(t, "Wants pricing", res.Data.Summary)
}

func TestNopAnalyzer(t *testing.T) {
	res, err := NopAnalyzer{}.Analyze(context.Background(), AnalysisRequest{})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
}

func TestParseTranscriptAssignsConversationIDs(t *testing.T) {
	src := `
# recorded from staging
{"type":"webchat.opened"}
{"type":"conversation.started"}
{"type":"message","userId":"visitor","message":"hi"}
{"type":"conversation.ended"}
{"type":"conversation.started","conversationId":"fixed"}
{"type":"message","userId":"visitor","message":"again"}
`
	events, err := parseTranscript(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, events, 6)

	assert.Equal(t, EventWidgetOpened, events[0].Type)
	assert.Empty(t, events[0].ConversationID)

	first := events[1].ConversationID
	assert.NotEmpty(t, first)
	assert.Equal(t, first, events[2].ConversationID)
	assert.Equal(t, first, events[3].ConversationID)
	assert.Equal(t, "fixed", events[5].ConversationID)
}

func TestReplayWidgetShowHide(t *testing.T) {
	w := NewReplayWidget(strings.NewReader(""), 0)
	assert.ErrorIs(t, w.Show(), errNotInitialized)

	var got []string
	w.OnEvent(func(ev Event) { got = append(got, ev.Type) })
	require.NoError(t, w.Init(context.Background(), testChatConfig))
	<-w.Done()

	require.NoError(t, w.Toggle())
	require.NoError(t, w.Show())
	require.NoError(t, w.Toggle())
	assert.Equal(t, []string{EventWidgetOpened, EventWidgetClosed}, got)
}
