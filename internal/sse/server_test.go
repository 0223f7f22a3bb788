package sse

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	// Background loops stay off unless a test enables them.
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatEnabled = false
	}
	return NewServer(cfg, testLogger(), nil)
}

func TestServerLifecycle(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 5})

	assert.False(t, s.IsRunning())
	assert.Equal(t, "stopped", s.Status().State)

	s.Start()
	assert.True(t, s.IsRunning())

	// Double start is a no-op.
	s.Start()
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Equal(t, "stopped", s.Status().State)

	// Double stop is a no-op.
	s.Stop()

	// A stopped server can be started again.
	s.Start()
	assert.True(t, s.IsRunning())
	s.Stop()
}

func TestServerStopClosesConnections(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 5})
	s.Start()

	conn := testConn("c1", "a")
	require.True(t, s.Registry().Add(conn))

	s.Stop()
	assert.True(t, conn.IsClosed())
	assert.Equal(t, 0, s.Registry().Active())
}

func TestServerStatusSnapshot(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 7})
	s.Start()
	defer s.Stop()

	require.True(t, s.Registry().Add(testConn("c1", "a")))

	status := s.Status()
	assert.True(t, status.Running)
	assert.Equal(t, "running", status.State)
	assert.Equal(t, 1, status.ActiveConnections)
	assert.Equal(t, 7, status.MaxConnections)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
	assert.Equal(t, int64(1), status.Registry.TotalCreated)
}

func TestServeSSERejectsWhenNotRunning(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 5})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	s.ServeSSE(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBroadcastHeartbeatEvictsOnlyFailingConnection(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 5})
	s.Start()
	defer s.Stop()

	healthy := testConn("healthy", "a")
	stuck := NewConnection("stuck", 1, map[string]string{"origin": "a"})
	require.True(t, s.Registry().Add(healthy))
	require.True(t, s.Registry().Add(stuck))

	// Fill the stuck connection's sink so the next push fails.
	require.NoError(t, stuck.Push([]byte("backlog")))

	s.broadcastHeartbeat()

	assert.True(t, stuck.IsClosed())
	_, ok := s.Registry().Get("stuck")
	assert.False(t, ok)

	_, ok = s.Registry().Get("healthy")
	assert.True(t, ok)
	select {
	case payload := <-healthy.Sink():
		assert.Contains(t, string(payload), "event: heartbeat")
	default:
		t.Fatal("healthy connection received no heartbeat")
	}
}

func TestBroadcastEventSubscriptionRouting(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 5})
	s.Start()
	defer s.Stop()

	sub := testConn("sub", "a")
	sub.Subscribe("validation_progress")
	other := testConn("other", "a")
	require.True(t, s.Registry().Add(sub))
	require.True(t, s.Registry().Add(other))

	sent := s.BroadcastEvent(Event{Event: "validation_progress", Data: map[string]any{"stage": "parsing"}})
	assert.Equal(t, 1, sent)

	select {
	case payload := <-sub.Sink():
		assert.Contains(t, string(payload), "validation_progress")
	default:
		t.Fatal("subscribed connection received nothing")
	}
	select {
	case <-other.Sink():
		t.Fatal("unsubscribed connection should receive nothing")
	default:
	}
}

// readConnectedEvent consumes the stream up to the first blank line and
// returns what was read.
func readConnectedEvent(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		sb.WriteString(line)
		if line == "\n" {
			return sb.String()
		}
	}
}

func TestServeSSECapacityEndToEnd(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 2, SinkBuffer: 8})
	s.Start()
	defer s.Stop()

	ts := httptest.NewServer(http.HandlerFunc(s.ServeSSE))
	defer ts.Close()

	open := func() *http.Response {
		resp, err := http.Get(ts.URL)
		require.NoError(t, err)
		return resp
	}

	first := open()
	defer first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "text/event-stream", first.Header.Get("Content-Type"))
	handshake := readConnectedEvent(t, bufio.NewReader(first.Body))
	assert.Contains(t, handshake, "event: connected")
	assert.Contains(t, handshake, "connectionId")

	second := open()
	defer second.Body.Close()
	require.Equal(t, http.StatusOK, second.StatusCode)
	readConnectedEvent(t, bufio.NewReader(second.Body))

	// Both slots taken: the third attempt is turned away.
	third := open()
	require.Equal(t, http.StatusServiceUnavailable, third.StatusCode)
	third.Body.Close()
	assert.Equal(t, 2, s.Registry().Active())

	// Closing one stream frees its slot for the next client.
	first.Body.Close()
	require.Eventually(t, func() bool {
		return s.Registry().Active() == 1
	}, 2*time.Second, 10*time.Millisecond)

	fourth := open()
	defer fourth.Body.Close()
	assert.Equal(t, http.StatusOK, fourth.StatusCode)
}

func TestAcceptPreSubscribesFromQuery(t *testing.T) {
	s := quietServer(t, Config{MaxConnections: 5})
	s.Start()
	defer s.Stop()

	req := httptest.NewRequest(http.MethodGet, "/events?subscribe=heartbeat,%20result", nil)
	req.RemoteAddr = "10.1.2.3:44444"

	conn, ok := s.accept(req, "sse")
	require.True(t, ok)
	assert.True(t, conn.SubscribedTo("heartbeat"))
	assert.True(t, conn.SubscribedTo("result"))
	assert.False(t, conn.SubscribedTo("error"))
	assert.Equal(t, "10.1.2.3", conn.Origin())
}
