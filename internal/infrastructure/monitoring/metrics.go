package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the runtime host. Each
// Metrics owns its registry so tests can build throwaway collectors
// without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Runtime metrics
	StoreOps     *prometheus.CounterVec
	FlowRuns     *prometheus.CounterVec
	FlowDuration *prometheus.HistogramVec

	// Application metrics
	AppsActive prometheus.Gauge
	AppsTotal  prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a metrics collector backed by a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runtime_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runtime_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		StoreOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runtime_store_operations_total",
				Help: "Total data store mutations by model and operation",
			},
			[]string{"model", "op"},
		),
		FlowRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runtime_flow_runs_total",
				Help: "Total flow executions by flow and outcome",
			},
			[]string{"flow_id", "status"},
		),
		FlowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runtime_flow_duration_seconds",
				Help:    "Flow execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"flow_id"},
		),

		AppsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "runtime_apps_active",
				Help: "Number of running app instances",
			},
		),
		AppsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "runtime_apps_total",
				Help: "Total app instances spawned",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "runtime_ws_connections",
				Help: "Open WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runtime_ws_messages_total",
				Help: "WebSocket messages by direction",
			},
			[]string{"direction"},
		),
	}
}

// Handler exposes the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStoreOp satisfies the data store's instrumentation hook.
func (m *Metrics) ObserveStoreOp(model, op string) {
	m.StoreOps.WithLabelValues(model, op).Inc()
}

// ObserveFlowRun satisfies the flow engine's instrumentation hook.
func (m *Metrics) ObserveFlowRun(flowID string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.FlowRuns.WithLabelValues(flowID, status).Inc()
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAppSpawned tracks a new app instance.
func (m *Metrics) RecordAppSpawned() {
	m.AppsTotal.Inc()
	m.AppsActive.Inc()
}

// RecordAppClosed tracks a closed app instance.
func (m *Metrics) RecordAppClosed() {
	m.AppsActive.Dec()
}

// RecordWSConnect tracks a WebSocket client attaching.
func (m *Metrics) RecordWSConnect() {
	m.WSConnections.Inc()
}

// RecordWSDisconnect tracks a WebSocket client detaching.
func (m *Metrics) RecordWSDisconnect() {
	m.WSConnections.Dec()
}

// RecordWSMessage tracks one WebSocket message.
func (m *Metrics) RecordWSMessage(direction string) {
	m.WSMessages.WithLabelValues(direction).Inc()
}

// Uptime reports how long this collector has been alive.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
