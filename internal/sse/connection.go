package sse

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrConnectionClosed is returned when pushing to a closed sink.
	ErrConnectionClosed = errors.New("sse: connection closed")
	// ErrSinkFull is returned when the sink buffer cannot take the event
	// without blocking; the caller treats it as a failed write.
	ErrSinkFull = errors.New("sse: sink buffer full")
)

// Connection is one accepted streaming client. The sink channel is owned by
// exactly one pump loop; everything else is guarded by the connection mutex.
type Connection struct {
	ID string

	sink      chan []byte
	createdAt time.Time
	closed    chan struct{}
	closeOnce sync.Once

	mu            sync.Mutex
	lastActivity  time.Time
	subscriptions map[string]struct{}
	metadata      map[string]string
}

// NewConnection creates a connection with the given sink buffer size.
// Metadata is copied and read-only afterward.
func NewConnection(id string, buffer int, metadata map[string]string) *Connection {
	if buffer <= 0 {
		buffer = 64
	}
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	now := time.Now()
	return &Connection{
		ID:            id,
		sink:          make(chan []byte, buffer),
		createdAt:     now,
		closed:        make(chan struct{}),
		lastActivity:  now,
		subscriptions: make(map[string]struct{}),
		metadata:      meta,
	}
}

// Origin returns the client-identifying attribute used for per-origin limits.
func (c *Connection) Origin() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata["origin"]
}

// Metadata returns a copy of the connection metadata.
func (c *Connection) Metadata() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// Push queues a formatted payload on the sink without blocking.
func (c *Connection) Push(payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.sink <- payload:
		c.Touch()
		return nil
	case <-c.closed:
		return ErrConnectionClosed
	default:
		return ErrSinkFull
	}
}

// SendEvent formats and queues an event.
func (c *Connection) SendEvent(e Event) error {
	payload, err := Format(e)
	if err != nil {
		return err
	}
	return c.Push([]byte(payload))
}

// Sink exposes the outbound payload channel to the pump loop.
func (c *Connection) Sink() <-chan []byte { return c.sink }

// Done is closed when the connection has been destroyed.
func (c *Connection) Done() <-chan struct{} { return c.closed }

// Close destroys the connection. Safe to call more than once; only the
// first call has any effect.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Touch updates the activity timestamp.
func (c *Connection) Touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// LastActivity returns the most recent activity timestamp.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// CreatedAt returns the accept timestamp.
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

// Subscribe adds event types to the connection's subscription set.
func (c *Connection) Subscribe(eventTypes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, et := range eventTypes {
		c.subscriptions[et] = struct{}{}
	}
}

// Unsubscribe removes event types from the subscription set.
func (c *Connection) Unsubscribe(eventTypes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, et := range eventTypes {
		delete(c.subscriptions, et)
	}
}

// SubscribedTo reports whether the connection subscribed to an event type.
func (c *Connection) SubscribedTo(eventType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[eventType]
	return ok
}
