// Package metrics exposes the Prometheus instrumentation shared by the
// expansion pipeline and the HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the engine reports into. A single
// instance is created per process and threaded through the app wiring so
// tests can register against an isolated registry.
type Metrics struct {
	registry *prometheus.Registry

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	ExpansionsTotal  *prometheus.CounterVec
	TypechecksTotal  *prometheus.CounterVec
	ExpansionSeconds prometheus.Histogram

	WorkersBusy   prometheus.Gauge
	QueueDepth    prometheus.Gauge
	RunsTotal     prometheus.Counter
	SequenceBuilt prometheus.Counter
}

// New creates a Metrics bundle backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "seqgen_compile_cache_hits_total",
			Help: "Compiled-logic cache lookups served without recompiling.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "seqgen_compile_cache_misses_total",
			Help: "Compiled-logic cache lookups that triggered a compile.",
		}),
		ExpansionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seqgen_expansions_total",
			Help: "Activity expansions executed, by outcome.",
		}, []string{"outcome"}),
		TypechecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seqgen_typechecks_total",
			Help: "Expansion logic typechecks, by outcome.",
		}, []string{"outcome"}),
		ExpansionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "seqgen_expansion_duration_seconds",
			Help:    "Wall time spent expanding a single activity.",
			Buckets: prometheus.DefBuckets,
		}),
		WorkersBusy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "seqgen_workers_busy",
			Help: "Workers currently executing an expansion task.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "seqgen_queue_depth",
			Help: "Expansion tasks waiting for a worker.",
		}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "seqgen_expansion_runs_total",
			Help: "Expansion runs persisted.",
		}),
		SequenceBuilt: factory.NewCounter(prometheus.CounterOpts{
			Name: "seqgen_sequences_built_total",
			Help: "Sequences rebuilt into seqJson.",
		}),
	}
}

// Handler returns the HTTP handler serving this bundle's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
