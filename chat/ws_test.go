package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/leadpipe/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSWidgetRelaysEvents(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	commands := make(chan widgetCommand, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bot-1", r.Header.Get("X-Bot-Id"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		var init widgetCommand
		if !assert.NoError(t, conn.ReadJSON(&init)) {
			return
		}
		commands <- init

		_ = conn.WriteJSON(Event{Type: EventConversationStarted, ConversationID: "ws-1"})
		_ = conn.WriteJSON(Event{Type: EventMessage, ConversationID: "ws-1", UserID: "visitor", Message: "hi"})

		var show widgetCommand
		if assert.NoError(t, conn.ReadJSON(&show)) {
			commands <- show
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	cfg := config.ChatConfig{
		BotID:        "bot-1",
		HostURL:      srv.URL,
		MessagingURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		ClientID:     "client-1",
	}

	w := NewWSWidget(nil)
	var mu sync.Mutex
	var got []Event
	received := make(chan struct{}, 8)
	w.OnEvent(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		received <- struct{}{}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Init(ctx, cfg))

	init := <-commands
	assert.Equal(t, "init", init.Type)
	assert.Equal(t, "client-1", init.ClientID)

	<-received
	<-received
	require.NoError(t, w.Show())
	assert.Equal(t, "show", (<-commands).Type)

	select {
	case <-w.Done():
	case <-ctx.Done():
		t.Fatal("widget did not finish")
	}
	require.NoError(t, w.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, EventConversationStarted, got[0].Type)
	assert.Equal(t, "hi", got[1].Message)
	assert.Equal(t, EventWidgetOpened, got[2].Type)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestWSWidgetRequiresConfig(t *testing.T) {
	err := NewWSWidget(nil).Init(context.Background(), config.ChatConfig{})
	assert.ErrorIs(t, err, ErrChatDisabled)
}
