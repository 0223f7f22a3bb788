package sse

import (
	"sync"
	"time"

	"github.com/graphscribe/graphscribe/pkg/logging"
)

// Stats is the process-wide aggregate over all connections ever seen.
type Stats struct {
	Active            int     `json:"active"`
	TotalCreated      int64   `json:"totalCreated"`
	CleanedUpForIdle  int64   `json:"cleanedUpForIdle"`
	AverageDurationMs float64 `json:"averageDurationMs"`
}

// Registry owns the set of live connections: admission control under the
// global and per-origin caps, activity bookkeeping, idle eviction and
// aggregate statistics. It has no transport knowledge.
type Registry struct {
	logger logging.Logger

	maxConnections int
	maxPerOrigin   int

	mu      sync.Mutex
	conns   map[string]*Connection
	origins map[string]map[string]struct{}

	totalCreated     int64
	cleanedUpForIdle int64
	closedCount      int64
	avgDurationMs    float64
}

// NewRegistry creates a registry with the given capacity limits.
func NewRegistry(maxConnections, maxPerOrigin int, logger logging.Logger) *Registry {
	return &Registry{
		logger:         logger,
		maxConnections: maxConnections,
		maxPerOrigin:   maxPerOrigin,
		conns:          make(map[string]*Connection),
		origins:        make(map[string]map[string]struct{}),
	}
}

// Add admits a connection. A false return means admission was rejected
// (capacity or per-origin limit); rejection is a normal outcome, not an
// error, and the connection is not stored.
func (r *Registry) Add(conn *Connection) bool {
	origin := conn.Origin()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.conns) >= r.maxConnections {
		r.logger.WithFields(logging.Fields{
			"connection_id": conn.ID,
			"active":        len(r.conns),
			"max":           r.maxConnections,
		}).Debug("Connection rejected: at capacity")
		return false
	}
	if r.maxPerOrigin > 0 && len(r.origins[origin]) >= r.maxPerOrigin {
		r.logger.WithFields(logging.Fields{
			"connection_id": conn.ID,
			"origin":        origin,
			"max_origin":    r.maxPerOrigin,
		}).Debug("Connection rejected: origin limit reached")
		return false
	}

	r.conns[conn.ID] = conn
	bucket := r.origins[origin]
	if bucket == nil {
		bucket = make(map[string]struct{})
		r.origins[origin] = bucket
	}
	bucket[conn.ID] = struct{}{}
	r.totalCreated++

	return true
}

// Remove destroys a connection by id. Idempotent: removing an unknown id
// returns false and changes nothing.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	conn, ok := r.conns[id]
	if !ok {
		return false
	}
	delete(r.conns, id)

	origin := conn.Origin()
	if bucket, ok := r.origins[origin]; ok {
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(r.origins, origin)
		}
	}

	lifetime := time.Since(conn.CreatedAt())
	r.closedCount++
	n := float64(r.closedCount)
	r.avgDurationMs = (r.avgDurationMs*(n-1) + float64(lifetime.Milliseconds())) / n

	conn.Close()
	return true
}

// Touch refreshes a connection's activity timestamp.
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	conn, ok := r.conns[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	conn.Touch()
	return true
}

// Get returns a live connection by id.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// List returns a snapshot of all live connections.
func (r *Registry) List() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}

// Active returns the current live connection count.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// SweepIdle removes every connection idle longer than the timeout and
// returns how many were removed.
func (r *Registry) SweepIdle(timeout time.Duration) int {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for id, conn := range r.conns {
		if now.Sub(conn.LastActivity()) > timeout {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		r.removeLocked(id)
	}
	r.cleanedUpForIdle += int64(len(expired))

	if len(expired) > 0 {
		r.logger.WithFields(logging.Fields{
			"removed": len(expired),
			"active":  len(r.conns),
		}).Info("Idle connections evicted")
	}
	return len(expired)
}

// Subscribe adds event types to a connection's subscription set.
func (r *Registry) Subscribe(id string, eventTypes ...string) bool {
	conn, ok := r.Get(id)
	if !ok {
		return false
	}
	conn.Subscribe(eventTypes...)
	return true
}

// Unsubscribe removes event types from a connection's subscription set.
func (r *Registry) Unsubscribe(id string, eventTypes ...string) bool {
	conn, ok := r.Get(id)
	if !ok {
		return false
	}
	conn.Unsubscribe(eventTypes...)
	return true
}

// ByEventSubscription returns the connections subscribed to an event type.
func (r *Registry) ByEventSubscription(eventType string) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Connection
	for _, conn := range r.conns {
		if conn.SubscribedTo(eventType) {
			out = append(out, conn)
		}
	}
	return out
}

// Shutdown removes and closes every connection. Idempotent.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.conns {
		r.removeLocked(id)
	}
}

// Stats returns the registry's aggregate counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Active:            len(r.conns),
		TotalCreated:      r.totalCreated,
		CleanedUpForIdle:  r.cleanedUpForIdle,
		AverageDurationMs: r.avgDurationMs,
	}
}
