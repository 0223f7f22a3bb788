// Package ops implements the operation drivers: state machines that run one
// diagram operation each, narrating staged progress over a streaming
// connection before terminating in exactly one complete or error event.
package ops

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/graphscribe/graphscribe/internal/sse"
	"github.com/graphscribe/graphscribe/pkg/logging"
)

// Emit pushes one event to one connection. Each driver invocation receives
// its emit capability as an argument and owns it for the duration of the
// call; a failed emit is fatal and non-retryable for that invocation.
type Emit func(sse.Event) error

// Options configures a driver.
type Options struct {
	// StageDelay is the simulated work latency applied before each stage's
	// progress event. Zero disables it.
	StageDelay time.Duration
	Logger     logging.Logger
}

// ProgressData is the payload shape of start and progress events.
type ProgressData struct {
	RequestID  string `json:"requestId"`
	Operation  string `json:"operation"`
	Stage      string `json:"stage,omitempty"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// CompleteData is the payload shape of terminal complete events.
type CompleteData struct {
	RequestID  string `json:"requestId"`
	Operation  string `json:"operation"`
	Stage      string `json:"stage"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
	Result     any    `json:"result"`
}

// emitter tracks per-invocation progress state: percentage is clamped to
// [0,100] and never decreases within one invocation.
type emitter struct {
	emit      Emit
	op        sse.Operation
	requestID string
	last      int
}

func newEmitter(emit Emit, op sse.Operation, requestID string) *emitter {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &emitter{emit: emit, op: op, requestID: requestID}
}

func (e *emitter) start(message string) error {
	return e.emit(sse.Event{
		Event: e.op.StartEvent(),
		Data: ProgressData{
			RequestID:  e.requestID,
			Operation:  string(e.op),
			Percentage: 0,
			Message:    message,
		},
	})
}

func (e *emitter) progress(stage string, percentage int, message string, details any) error {
	percentage = clamp(percentage)
	if percentage < e.last {
		percentage = e.last
	}
	e.last = percentage

	return e.emit(sse.Event{
		Event: e.op.ProgressEvent(),
		Data: ProgressData{
			RequestID:  e.requestID,
			Operation:  string(e.op),
			Stage:      stage,
			Percentage: percentage,
			Message:    message,
			Details:    details,
		},
	})
}

func (e *emitter) complete(message string, result any) error {
	e.last = 100
	return e.emit(sse.Event{
		Event: e.op.CompleteEvent(),
		Data: CompleteData{
			RequestID:  e.requestID,
			Operation:  string(e.op),
			Stage:      "complete",
			Percentage: 100,
			Message:    message,
			Result:     result,
		},
	})
}

func (e *emitter) fail(err error) {
	// Best effort: if the terminal error event cannot be written the
	// connection is already gone and there is nothing left to notify.
	_ = e.emit(sse.Event{
		Event: sse.EventError,
		Data: sse.ErrorData{
			Operation: string(e.op),
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		},
	})
}

func clamp(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// pause waits out the simulated stage latency, honoring cancellation.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
