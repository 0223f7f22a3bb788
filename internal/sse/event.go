package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEvent is returned when an event fails the wire contract check.
var ErrInvalidEvent = errors.New("sse: invalid event")

// Well-known event types. Operation drivers derive their own names from an
// operation prefix (validation_start, optimization_progress, ...).
const (
	EventConnected = "connected"
	EventHeartbeat = "heartbeat"
	EventProgress  = "progress"
	EventResult    = "result"
	EventError     = "error"
)

// Operation identifies a streamed multi-stage operation kind.
type Operation string

const (
	OpValidation       Operation = "validation"
	OpOptimization     Operation = "optimization"
	OpTemplate         Operation = "template"
	OpFormatConversion Operation = "format_conversion"
)

// StartEvent returns the start event name for an operation.
func (op Operation) StartEvent() string { return string(op) + "_start" }

// ProgressEvent returns the progress event name for an operation.
func (op Operation) ProgressEvent() string { return string(op) + "_progress" }

// CompleteEvent returns the terminal event name for an operation.
func (op Operation) CompleteEvent() string { return string(op) + "_complete" }

// Event is one unit sent to a connection over the event stream.
type Event struct {
	// ID is an optional client-visible resumption marker.
	ID string
	// Event is the type name, always non-empty.
	Event string
	// Data is the payload. Strings go on the wire as-is, everything else
	// is JSON-encoded.
	Data any
	// Retry, if set, is a client reconnect-delay hint in milliseconds.
	Retry *int
}

// ConnectedData is the payload of the handshake event sent on accept.
type ConnectedData struct {
	ConnectionID string    `json:"connectionId"`
	Timestamp    time.Time `json:"timestamp"`
}

// HeartbeatData is the payload of the periodic liveness event.
type HeartbeatData struct {
	Timestamp         time.Time `json:"timestamp"`
	ActiveConnections int       `json:"activeConnections"`
	UptimeSeconds     float64   `json:"uptimeSeconds"`
}

// ErrorData is the payload of a terminal error event.
type ErrorData struct {
	Operation string    `json:"operation,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Format serializes an event into its wire form: optional id line, event
// line, one data line per newline-separated payload segment, optional retry
// line, and a single blank-line terminator.
func Format(e Event) (string, error) {
	var b strings.Builder

	if e.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", e.ID)
	}
	fmt.Fprintf(&b, "event: %s\n", e.Event)

	data, ok := e.Data.(string)
	if !ok {
		encoded, err := json.Marshal(e.Data)
		if err != nil {
			return "", fmt.Errorf("encode event data: %w", err)
		}
		data = string(encoded)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}

	if e.Retry != nil {
		fmt.Fprintf(&b, "retry: %d\n", *e.Retry)
	}

	b.WriteString("\n")
	return b.String(), nil
}

// Validate reports whether an event satisfies the wire contract: a non-empty
// type name, a present payload and a non-negative retry hint when set. It is
// pure and never rejects by side effect; callers use it to catch programming
// errors before a write is attempted.
func Validate(e Event) bool {
	if e.Event == "" {
		return false
	}
	if e.Data == nil {
		return false
	}
	if e.Retry != nil && *e.Retry < 0 {
		return false
	}
	return true
}
