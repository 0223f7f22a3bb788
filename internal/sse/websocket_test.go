package sse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWSHandshakeAndSubscription(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 5, SinkBuffer: 8})
	s.Start()
	defer s.Stop()

	ts := httptest.NewServer(http.HandlerFunc(s.ServeWS))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "event: connected")

	require.Eventually(t, func() bool {
		return s.Registry().Active() == 1
	}, time.Second, 10*time.Millisecond)
	conn := s.Registry().List()[0]
	assert.Equal(t, "ws", conn.Metadata()["transport"])

	require.NoError(t, ws.WriteJSON(SubscriptionMessage{
		Action: "subscribe",
		Events: []string{"announcement"},
	}))
	require.Eventually(t, func() bool {
		return conn.SubscribedTo("announcement")
	}, time.Second, 10*time.Millisecond)

	sent := s.BroadcastEvent(Event{Event: "announcement", Data: map[string]any{"text": "hello"}})
	assert.Equal(t, 1, sent)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err = ws.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "event: announcement")
	assert.Contains(t, string(msg), "hello")
}

func TestServeWSRejectsWhenFull(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 1, SinkBuffer: 8})
	s.Start()
	defer s.Stop()
	require.True(t, s.Registry().Add(testConn("taken", "a")))

	ts := httptest.NewServer(http.HandlerFunc(s.ServeWS))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
