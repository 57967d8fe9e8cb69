package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/docbook-ai/internal/identity"
)

func TestHub_PublishTargetsUser(t *testing.T) {
	hub := NewHub(nil)
	hub.now = func() time.Time { return time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC) }
	mine := hub.register("u1")
	second := hub.register("u1")
	theirs := hub.register("u2")

	hub.Publish("u1", "notification", map[string]string{"title": "Appointment Booked"})

	for _, c := range []*client{mine, second} {
		select {
		case frame := <-c.send:
			var evt Event
			require.NoError(t, json.Unmarshal(frame, &evt))
			assert.Equal(t, "notification", evt.Type)
			assert.JSONEq(t, `{"title":"Appointment Booked"}`, string(evt.Data))
		default:
			t.Fatal("expected a frame")
		}
	}
	assert.Empty(t, theirs.send)

	hub.unregister(mine)
	hub.unregister(mine)
	assert.Equal(t, 1, hub.ConnectionCount("u1"))
	hub.unregister(second)
	assert.Zero(t, hub.ConnectionCount("u1"))
}

func TestHub_PublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	c := hub.register("u1")
	for i := 0; i < sendBuffer+5; i++ {
		hub.Publish("u1", "chat_message", i)
	}
	assert.Len(t, c.send, sendBuffer)
}

func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("user"); id != "" {
			r = r.WithContext(identity.WithUser(r.Context(), identity.User{ID: id}))
		}
		next.ServeHTTP(w, r)
	})
}

func TestHandler_DeliversEvents(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(withUser(NewHandler(hub, nil)))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?user=u1"
	conn, _, err := websocket.DefaultDialer.DialContext(context.Background(), wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount("u1") == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish("u1", "chat_message", map[string]string{"message": "hello"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "chat_message", evt.Type)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount("u1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsAnonymous(t *testing.T) {
	server := httptest.NewServer(withUser(NewHandler(NewHub(nil), nil)))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	server := httptest.NewServer(withUser(NewHandler(NewHub(nil), []string{"https://app.example.com"})))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?user=u1"
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
