// Package metrics exposes Prometheus instrumentation for the preview
// service. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"spectral-workbench/internal/common/cache"
	"spectral-workbench/internal/pipeline/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spectral_preview"

// Request outcomes
const (
	OutcomeSuccess   = "success"
	OutcomePartial   = "partial"
	OutcomeCacheHit  = "cache_hit"
	OutcomeInvalid   = "invalid"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Metrics holds the service collectors
type Metrics struct {
	registry     prometheus.Gatherer
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
}

// New creates the collectors and registers them with a fresh registry
// that also carries the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg and serves gatherer
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: gatherer,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Preview requests by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock time to answer a preview request.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"cache"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent in a single preview step.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"type"}),
		stepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Failed preview steps by operator.",
		}, []string{"operator", "type"}),
	}
}

// ObserveRequest records one finished request
func (m *Metrics) ObserveRequest(outcome string, cacheHit bool, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()

	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.duration.WithLabelValues(label).Observe(d.Seconds())
}

// StepCompleted implements core.StepObserver
func (m *Metrics) StepCompleted(step *core.StepDefinition, d time.Duration, err error) {
	if m == nil {
		return
	}
	kind := string(step.Type)
	m.stepDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		m.stepFailures.WithLabelValues(step.Name, kind).Inc()
	}
}

// RegisterCacheStats exposes the result cache counters, read from stats
// at scrape time.
func RegisterCacheStats(reg prometheus.Registerer, stats func() cache.Stats) {
	factory := promauto.With(reg)

	counter := func(name, help string, read func(cache.Stats) uint64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stats())) })
	}
	counter("hits_total", "Result cache hits.", func(s cache.Stats) uint64 { return s.Hits })
	counter("misses_total", "Result cache misses.", func(s cache.Stats) uint64 { return s.Misses })
	counter("evictions_total", "Entries evicted to make room.", func(s cache.Stats) uint64 { return s.Evictions })
	counter("expirations_total", "Entries removed after their TTL.", func(s cache.Stats) uint64 { return s.Expirations })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Entries currently held in the local tier.",
	}, func() float64 { return float64(stats().Size) })
}

// Registerer returns the registry collectors were added to, when it
// accepts further registrations.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return nil
	}
	if r, ok := m.registry.(prometheus.Registerer); ok {
		return r
	}
	return nil
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
