// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks persisted chat messages by persona and author.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages persisted",
		},
		[]string{"persona", "author"},
	)

	// StreamDuration tracks completion stream duration per model.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_stream_duration_seconds",
			Help:    "Completion gateway streaming response duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// FragmentsTotal tracks streamed fragments received from the gateway.
	FragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_fragments_total",
			Help: "Total streamed fragments received",
		},
		[]string{"model"},
	)

	// MalformedRecordsTotal tracks stream records that failed to parse.
	MalformedRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_malformed_records_total",
			Help: "Stream records skipped because they failed to parse",
		},
	)

	// ModelFallbacksTotal tracks which model-selection strategy resolved
	// each request.
	ModelFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_model_selection_total",
			Help: "Model selection outcomes by strategy",
		},
		[]string{"strategy"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// PersistenceFailuresTotal tracks failed appendMessage calls.
	PersistenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_persistence_failures_total",
			Help: "Failed message persistence attempts",
		},
		[]string{"operation"},
	)

	// ExportsTotal tracks conversation exports by format.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_exports_total",
			Help: "Conversation exports by format",
		},
		[]string{"format"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStream records metrics for one completion stream.
func RecordStream(model, status string, duration float64) {
	StreamDuration.WithLabelValues(model, status).Observe(duration)
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
