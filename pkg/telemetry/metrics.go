package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the provisioning tool.
type Metrics struct {
	config MetricsConfig

	orchestrationsStarted   prometheus.Counter
	orchestrationsCompleted *prometheus.CounterVec
	orchestrationDuration   *prometheus.HistogramVec

	remoteCalls        *prometheus.CounterVec
	remoteCallDuration *prometheus.HistogramVec

	compensations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector. When disabled, all recording
// methods are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		orchestrationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrations_started_total",
			Help:      "Total number of provisioning orchestrations started",
		}),
		orchestrationsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrations_completed_total",
			Help:      "Total number of orchestrations completed, by terminal status",
		}, []string{"status"}),
		orchestrationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "orchestration_duration_seconds",
			Help:      "Wall time of provisioning orchestrations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Total remote API calls, by resource kind, operation, and outcome",
		}, []string{"kind", "operation", "outcome"}),
		remoteCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of remote API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "operation"}),

		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Total compensating actions attempted during rollback, by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.orchestrationsStarted,
		m.orchestrationsCompleted,
		m.orchestrationDuration,
		m.remoteCalls,
		m.remoteCallDuration,
		m.compensations,
	)

	return m
}

// ObserveOrchestrationStarted records the start of one orchestration.
func (m *Metrics) ObserveOrchestrationStarted() {
	if m.registry == nil {
		return
	}
	m.orchestrationsStarted.Inc()
}

// ObserveOrchestrationCompleted records the terminal status and duration
// of one orchestration.
func (m *Metrics) ObserveOrchestrationCompleted(status string, seconds float64) {
	if m.registry == nil {
		return
	}
	m.orchestrationsCompleted.WithLabelValues(status).Inc()
	m.orchestrationDuration.WithLabelValues(status).Observe(seconds)
}

// ObserveRemoteCall records one remote API call.
func (m *Metrics) ObserveRemoteCall(kind, operation, outcome string, seconds float64) {
	if m.registry == nil {
		return
	}
	m.remoteCalls.WithLabelValues(kind, operation, outcome).Inc()
	m.remoteCallDuration.WithLabelValues(kind, operation).Observe(seconds)
}

// ObserveCompensation records one compensation attempt.
func (m *Metrics) ObserveCompensation(ok bool) {
	if m.registry == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.compensations.WithLabelValues(outcome).Inc()
}

// Handler returns an HTTP handler exposing the metrics, or nil when
// metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests.
func (m *Metrics) Gather() (prometheus.Gatherer, bool) {
	if m.registry == nil {
		return nil, false
	}
	return m.registry, true
}
