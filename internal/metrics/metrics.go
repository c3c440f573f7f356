// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors used across the service. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	transactions     *prometheus.CounterVec
	activityDropped  prometheus.Counter
	activityRecorded prometheus.Counter
}

// New creates a registry with process/Go collectors and the service collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_db_transactions_total",
			Help: "Database transactions by outcome (commit or rollback).",
		}, []string{"outcome"}),
		activityDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_activity_dropped_total",
			Help: "Activity entries dropped because the sink buffer was full or the write failed.",
		}),
		activityRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_activity_recorded_total",
			Help: "Activity entries persisted.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.transactions, m.activityDropped, m.activityRecorded)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) ObserveTransaction(outcome string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ActivityDropped() {
	if m == nil {
		return
	}
	m.activityDropped.Inc()
}

func (m *Metrics) ActivityRecorded() {
	if m == nil {
		return
	}
	m.activityRecorded.Inc()
}

// ActivityRecordedCounter exposes the recorded counter for assertions.
func (m *Metrics) ActivityRecordedCounter() prometheus.Counter { return m.activityRecorded }

// ActivityDroppedCounter exposes the dropped counter for assertions.
func (m *Metrics) ActivityDroppedCounter() prometheus.Counter { return m.activityDropped }
