package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/graphscribe/graphscribe/pkg/monitoring"
)

// Metrics holds all Prometheus metrics for the graphscribe service
type Metrics struct {
	ActiveConnections  *prometheus.GaugeVec
	ConnectionsTotal   *prometheus.CounterVec
	EventsSent         *prometheus.CounterVec
	HeartbeatsTotal    *prometheus.CounterVec
	IdleEvictionsTotal *prometheus.CounterVec
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// New registers the service metrics on the shared collector.
func New(mc *monitoring.MetricsCollector) *Metrics {
	return &Metrics{
		ActiveConnections:  mc.NewGauge("stream_connections_active", "Active streaming connections", []string{"transport"}),
		ConnectionsTotal:   mc.NewCounter("stream_connections_total", "Streaming connection accept outcomes", []string{"transport", "outcome"}),
		EventsSent:         mc.NewCounter("stream_events_sent_total", "Events written to streaming connections", []string{"event_type"}),
		HeartbeatsTotal:    mc.NewCounter("stream_heartbeats_total", "Heartbeat send outcomes", []string{"outcome"}),
		IdleEvictionsTotal: mc.NewCounter("stream_idle_evictions_total", "Connections evicted for idleness", nil),
		OperationsTotal:    mc.NewCounter("operations_total", "Operation driver invocations", []string{"operation", "status"}),
		OperationDuration:  mc.NewHistogram("operation_duration_seconds", "Operation driver duration", []string{"operation"}, nil),
	}
}
