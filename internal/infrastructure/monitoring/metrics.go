// Package monitoring exposes Prometheus metrics for the generation
// pipeline, the sandbox, sessions, and the HTTP surface.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Generation pipeline
	TurnsTotal      *prometheus.CounterVec // outcome: accepted or rejection kind
	TurnDuration    prometheus.Histogram
	ProviderCalls   *prometheus.CounterVec // status: ok/error
	ProviderLatency prometheus.Histogram

	// Sandbox
	RenderDuration prometheus.Histogram
	RenderFaults   prometheus.Counter

	// Sessions
	SessionsLive  prometheus.Gauge
	SessionsSaved prometheus.Counter
	PropertyEdits *prometheus.CounterVec // kind: style/text, applied: true/false

	// WebSocket bridge
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec // direction, type

	startTime time.Time
}

// NewMetrics registers and returns the metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_generation_turns_total",
				Help: "Chat turns by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_generation_turn_duration_seconds",
				Help:    "End-to-end chat turn duration",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		ProviderCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_provider_calls_total",
				Help: "Model provider calls by status",
			},
			[]string{"status"},
		),
		ProviderLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_provider_latency_seconds",
				Help:    "Model provider call latency",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		RenderDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_sandbox_render_duration_seconds",
				Help:    "Preflight render duration",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		RenderFaults: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_sandbox_render_faults_total",
				Help: "Preflight renders that raised a fault",
			},
		),

		SessionsLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_sessions_live",
				Help: "Sessions currently open in memory",
			},
		),
		SessionsSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_sessions_saved_total",
				Help: "Session save operations",
			},
		),
		PropertyEdits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_property_edits_total",
				Help: "Property edits by kind and whether they applied",
			},
			[]string{"kind", "applied"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Open websocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Websocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),
	}
}

// RecordTurn records one chat turn outcome.
func (m *Metrics) RecordTurn(outcome string, duration time.Duration) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(duration.Seconds())
}

// RecordRender records one preflight render.
func (m *Metrics) RecordRender(duration time.Duration, faulted bool) {
	m.RenderDuration.Observe(duration.Seconds())
	if faulted {
		m.RenderFaults.Inc()
	}
}

// Uptime returns time since startup.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
