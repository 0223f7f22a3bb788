package sse

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/graphscribe/graphscribe/internal/metrics"
	"github.com/graphscribe/graphscribe/pkg/logging"
)

// Config is the streaming subsystem configuration.
type Config struct {
	MaxConnections    int
	MaxPerOrigin      int
	IdleTimeout       time.Duration
	CleanupInterval   time.Duration
	HeartbeatEnabled  bool
	HeartbeatInterval time.Duration
	AllowedOrigins    []string
	AllowCredentials  bool
	SinkBuffer        int
}

// DefaultConfig returns the default streaming configuration.
func DefaultConfig() Config {
	return Config{
		MaxConnections:    100,
		MaxPerOrigin:      10,
		IdleTimeout:       5 * time.Minute,
		CleanupInterval:   time.Minute,
		HeartbeatEnabled:  true,
		HeartbeatInterval: 30 * time.Second,
		AllowedOrigins:    []string{"*"},
		SinkBuffer:        64,
	}
}

// State is the server lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// ServerStatus is a synchronous snapshot of the transport server.
type ServerStatus struct {
	Running           bool    `json:"running"`
	State             string  `json:"state"`
	ActiveConnections int     `json:"activeConnections"`
	MaxConnections    int     `json:"maxConnections"`
	HeartbeatsSent    int64   `json:"heartbeatsSent"`
	HeartbeatErrors   int64   `json:"heartbeatErrors"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
	Registry          Stats   `json:"registry"`
}

// Server bridges inbound HTTP streaming requests to the registry and runs
// the heartbeat and idle-cleanup loops. The HTTP listener itself is owned by
// the surrounding service; Start/Stop govern the background loops and the
// willingness to accept connections.
type Server struct {
	cfg      Config
	registry *Registry
	logger   logging.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	state     State
	stopCh    chan struct{}
	wg        sync.WaitGroup
	startedAt time.Time

	heartbeatsSent  atomic.Int64
	heartbeatErrors atomic.Int64
}

// NewServer creates a transport server in the stopped state.
func NewServer(cfg Config, logger logging.Logger, m *metrics.Metrics) *Server {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}
	if cfg.SinkBuffer <= 0 {
		cfg.SinkBuffer = DefaultConfig().SinkBuffer
	}
	return &Server{
		cfg:      cfg,
		registry: NewRegistry(cfg.MaxConnections, cfg.MaxPerOrigin, logger),
		logger:   logger,
		metrics:  m,
	}
}

// Registry exposes the connection registry.
func (s *Server) Registry() *Registry { return s.registry }

// Config returns the active configuration.
func (s *Server) Config() Config { return s.cfg }

// Start transitions stopped -> starting -> running and launches the
// heartbeat and cleanup loops. Calling Start while not stopped is a no-op.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return
	}
	s.state = StateStarting
	s.stopCh = make(chan struct{})
	s.startedAt = time.Now()

	if s.cfg.HeartbeatEnabled && s.cfg.HeartbeatInterval > 0 {
		s.wg.Add(1)
		go s.heartbeatLoop(s.stopCh)
	}
	if s.cfg.CleanupInterval > 0 {
		s.wg.Add(1)
		go s.healthLoop(s.stopCh)
	}

	s.state = StateRunning
	s.logger.WithFields(logging.Fields{
		"max_connections":    s.cfg.MaxConnections,
		"max_per_origin":     s.cfg.MaxPerOrigin,
		"heartbeat_enabled":  s.cfg.HeartbeatEnabled,
		"heartbeat_interval": s.cfg.HeartbeatInterval,
		"idle_timeout":       s.cfg.IdleTimeout,
	}).Info("Streaming server started")
}

// Stop transitions running -> stopping -> stopped: cancels both loops and
// closes every connection. Calling Stop while not running is a no-op.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.registry.Shutdown()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.logger.Info("Streaming server stopped")
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// Status returns a synchronous status snapshot.
func (s *Server) Status() ServerStatus {
	s.mu.Lock()
	state := s.state
	startedAt := s.startedAt
	s.mu.Unlock()

	var uptime float64
	if state == StateRunning {
		uptime = time.Since(startedAt).Seconds()
	}

	return ServerStatus{
		Running:           state == StateRunning,
		State:             state.String(),
		ActiveConnections: s.registry.Active(),
		MaxConnections:    s.cfg.MaxConnections,
		HeartbeatsSent:    s.heartbeatsSent.Load(),
		HeartbeatErrors:   s.heartbeatErrors.Load(),
		UptimeSeconds:     uptime,
		Registry:          s.registry.Stats(),
	}
}

// Send validates, formats and queues one event for a connection.
func (s *Server) Send(conn *Connection, e Event) error {
	if !Validate(e) {
		return ErrInvalidEvent
	}
	if err := conn.SendEvent(e); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.EventsSent.WithLabelValues(e.Event).Inc()
	}
	return nil
}

// BroadcastEvent pushes an event to every connection subscribed to its type.
// A failed write evicts only the failing connection.
func (s *Server) BroadcastEvent(e Event) int {
	payload, err := Format(e)
	if err != nil {
		s.logger.WithError(err).Error("Failed to format broadcast event")
		return 0
	}

	sent := 0
	for _, conn := range s.registry.ByEventSubscription(e.Event) {
		if err := conn.Push([]byte(payload)); err != nil {
			s.logger.WithFields(logging.Fields{
				"connection_id": conn.ID,
				"event":         e.Event,
			}).WithError(err).Debug("Broadcast write failed, evicting connection")
			s.registry.Remove(conn.ID)
			continue
		}
		sent++
		if s.metrics != nil {
			s.metrics.EventsSent.WithLabelValues(e.Event).Inc()
		}
	}
	return sent
}

// ServeSSE handles a streaming request: admission, handshake, pump loop.
func (s *Server) ServeSSE(w http.ResponseWriter, r *http.Request) {
	if !s.IsRunning() {
		http.Error(w, `{"error":"server not running"}`, http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	conn, ok := s.accept(r, "sse")
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"connection limit exceeded"}`))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := s.Send(conn, Event{
		Event: EventConnected,
		Data:  ConnectedData{ConnectionID: conn.ID, Timestamp: time.Now().UTC()},
	}); err != nil {
		s.registry.Remove(conn.ID)
		return
	}

	s.pump(w, flusher, r, conn)
}

// pump drains the connection sink into the response until the client goes
// away, the connection is destroyed or the server stops. The sink has
// exactly this one reader.
func (s *Server) pump(w http.ResponseWriter, flusher http.Flusher, r *http.Request, conn *Connection) {
	defer func() {
		s.registry.Remove(conn.ID)
		if s.metrics != nil {
			s.metrics.ActiveConnections.WithLabelValues("sse").Dec()
		}
		s.logger.WithFields(logging.Fields{
			"connection_id": conn.ID,
			"active":        s.registry.Active(),
		}).Info("Client disconnected")
	}()

	stopCh := s.stopChan()

	for {
		select {
		case payload := <-conn.Sink():
			if _, err := w.Write(payload); err != nil {
				s.logger.WithFields(logging.Fields{
					"connection_id": conn.ID,
				}).WithError(err).Debug("Stream write failed")
				return
			}
			flusher.Flush()
			conn.Touch()
		case <-conn.Done():
			return
		case <-r.Context().Done():
			return
		case <-stopCh:
			return
		}
	}
}

func (s *Server) stopChan() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh
}

// accept builds a connection from the request and asks the registry to
// admit it. Connections may pre-subscribe via the subscribe query param.
func (s *Server) accept(r *http.Request, transport string) (*Connection, bool) {
	id, err := gonanoid.New()
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate connection id")
		return nil, false
	}

	origin := clientOrigin(r)
	conn := NewConnection(id, s.cfg.SinkBuffer, map[string]string{
		"origin":      origin,
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.UserAgent(),
		"transport":   transport,
	})

	if !s.registry.Add(conn) {
		if s.metrics != nil {
			s.metrics.ConnectionsTotal.WithLabelValues(transport, "rejected").Inc()
		}
		return nil, false
	}

	if sub := r.URL.Query().Get("subscribe"); sub != "" {
		conn.Subscribe(splitList(sub)...)
	}

	if s.metrics != nil {
		s.metrics.ConnectionsTotal.WithLabelValues(transport, "accepted").Inc()
		s.metrics.ActiveConnections.WithLabelValues(transport).Inc()
	}
	s.logger.WithFields(logging.Fields{
		"connection_id": conn.ID,
		"origin":        origin,
		"transport":     transport,
		"active":        s.registry.Active(),
	}).Info("Client connected")

	return conn, true
}

// heartbeatLoop broadcasts a liveness event to every connection on the
// configured interval.
func (s *Server) heartbeatLoop(stopCh chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.broadcastHeartbeat()
		}
	}
}

func (s *Server) broadcastHeartbeat() {
	payload, err := Format(Event{
		Event: EventHeartbeat,
		Data: HeartbeatData{
			Timestamp:         time.Now().UTC(),
			ActiveConnections: s.registry.Active(),
			UptimeSeconds:     time.Since(s.startedAt).Seconds(),
		},
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to format heartbeat")
		return
	}

	for _, conn := range s.registry.List() {
		if err := conn.Push([]byte(payload)); err != nil {
			s.heartbeatErrors.Add(1)
			if s.metrics != nil {
				s.metrics.HeartbeatsTotal.WithLabelValues("error").Inc()
			}
			// One bad connection never aborts the broadcast to the rest.
			s.registry.Remove(conn.ID)
			continue
		}
		s.heartbeatsSent.Add(1)
		if s.metrics != nil {
			s.metrics.HeartbeatsTotal.WithLabelValues("sent").Inc()
		}
	}
}

// healthLoop evicts idle connections and warns when nearing capacity.
func (s *Server) healthLoop(stopCh chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			removed := s.registry.SweepIdle(s.cfg.IdleTimeout)
			if removed > 0 && s.metrics != nil {
				s.metrics.IdleEvictionsTotal.WithLabelValues().Add(float64(removed))
			}

			active := s.registry.Active()
			if active > s.cfg.MaxConnections*8/10 {
				s.logger.WithFields(logging.Fields{
					"active": active,
					"max":    s.cfg.MaxConnections,
				}).Warn("Connection count above 80% of capacity")
			}
		}
	}
}

func clientOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
