// Package metrics exposes collection counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics records collection outcomes on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	collections *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	httpTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		collections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedthread_collections_total",
				Help: "Collected records by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedthread_collection_duration_seconds",
				Help:    "Time spent extracting one record",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"kind"},
		),
		httpTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedthread_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveCollection counts one collection and its duration.
func (m *Metrics) ObserveCollection(kind, outcome string, elapsed time.Duration) {
	m.collections.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRequest counts one handled HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	m.httpTotal.WithLabelValues(method, route, http.StatusText(status)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
