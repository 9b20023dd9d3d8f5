// Package metrics provides Prometheus metrics collection for contentgate.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/contentgate/ports"
)

// Namespace prefixes every metric name.
const Namespace = "contentgate"

// Collector holds all Prometheus metrics for contentgate.
type Collector struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Resolver metrics
	ResolvesTotal     *prometheus.CounterVec
	ResolveDuration   *prometheus.HistogramVec
	ReferenceFailures *prometheus.CounterVec

	// Schema metrics
	SchemaCompiles   *prometheus.CounterVec
	SchemaTypes      prometheus.Gauge
	SchemaLastReload prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		ResolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "resolves_total",
				Help:      "Total number of root field resolutions",
			},
			[]string{"type", "field", "outcome"},
		),
		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Root field resolution duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"type", "field"},
		),
		ReferenceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reference_failures_total",
				Help:      "References resolved to null after a lookup error",
			},
			[]string{"type", "field"},
		),

		SchemaCompiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "schema_compiles_total",
				Help:      "Schema compilations by result",
			},
			[]string{"result"},
		),
		SchemaTypes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "schema_types",
				Help:      "Number of content types in the active schema",
			},
		),
		SchemaLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "schema_last_reload_timestamp",
				Help:      "Unix timestamp of the last schema swap",
			},
		),
	}
}

// ObserveResolve records one root field resolution.
func (c *Collector) ObserveResolve(typeName, field string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ResolvesTotal.WithLabelValues(typeName, field, outcome).Inc()
	c.ResolveDuration.WithLabelValues(typeName, field).Observe(d.Seconds())
}

// ReferenceFailed records a reference that resolved to null after an error.
func (c *Collector) ReferenceFailed(typeName, field string) {
	c.ReferenceFailures.WithLabelValues(typeName, field).Inc()
}

// SchemaCompiled records a compile attempt. types is the size of the
// swapped-in schema and is ignored on failure.
func (c *Collector) SchemaCompiled(err error, types int) {
	if err != nil {
		c.SchemaCompiles.WithLabelValues("error").Inc()
		return
	}
	c.SchemaCompiles.WithLabelValues("ok").Inc()
	c.SchemaTypes.Set(float64(types))
	c.SchemaLastReload.SetToCurrentTime()
}

// NormalizePath reduces cardinality by truncating long paths.
func NormalizePath(path string) string {
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}

var (
	_ ports.ResolverMetrics = (*Collector)(nil)
	_ ports.SchemaMetrics   = (*Collector)(nil)
)
