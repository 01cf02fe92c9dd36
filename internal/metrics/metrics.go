// Package metrics provides prometheus instrumentation for graph builds and
// the resolution cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calleagle"

// Build results.
const (
	ResultOK       = "ok"
	ResultCanceled = "canceled"
	ResultNotFound = "not_found"
	ResultFailed   = "failed"
)

// Cache lookup results.
const (
	CacheHit       = "hit"
	CacheMiss      = "miss"
	CacheDiscarded = "discarded"
)

// Metrics holds the collectors shared by builders and caches. A nil *Metrics
// records nothing.
type Metrics struct {
	BuildsTotal        *prometheus.CounterVec
	BuildDuration      prometheus.Histogram
	GraphNodes         prometheus.Gauge
	GraphEdges         prometheus.Gauge
	CacheRequests      *prometheus.CounterVec
	CacheInvalidations prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to read values in isolation.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Call graph builds by result",
			},
			[]string{"result"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Call graph build duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		GraphNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_nodes",
				Help:      "Node count of the most recent successful build",
			},
		),
		GraphEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_edges",
				Help:      "Edge count of the most recent successful build",
			},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Resolution cache lookups by segment and result",
			},
			[]string{"segment", "result"},
		),
		CacheInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Wholesale cache clears caused by source revisions or explicit invalidation",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.BuildsTotal,
			m.BuildDuration,
			m.GraphNodes,
			m.GraphEdges,
			m.CacheRequests,
			m.CacheInvalidations,
		)
	}
	return m
}

// ObserveBuild records one finished build.
func (m *Metrics) ObserveBuild(result string, seconds float64, nodes, edges int) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues(result).Inc()
	m.BuildDuration.Observe(seconds)
	if result == ResultOK {
		m.GraphNodes.Set(float64(nodes))
		m.GraphEdges.Set(float64(edges))
	}
}

// CacheRequest counts one cache lookup.
func (m *Metrics) CacheRequest(segment, result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(segment, result).Inc()
}

// CacheInvalidated counts one wholesale clear.
func (m *Metrics) CacheInvalidated() {
	if m == nil {
		return
	}
	m.CacheInvalidations.Inc()
}

// Handler serves the metrics gathered by g in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
