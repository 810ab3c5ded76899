package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spectral-workbench/internal/common/cache"
	"spectral-workbench/internal/pipeline/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg), reg
}

func TestObserveRequest(t *testing.T) {
	m, _ := newTestMetrics()

	m.ObserveRequest(OutcomeSuccess, false, 10*time.Millisecond)
	m.ObserveRequest(OutcomeCacheHit, true, time.Millisecond)
	m.ObserveRequest(OutcomeSuccess, false, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(OutcomeCacheHit)))
}

func TestStepCompleted(t *testing.T) {
	m, _ := newTestMetrics()
	step := &core.StepDefinition{ID: "s", Type: "transform", Name: "SNV"}

	m.StepCompleted(step, time.Millisecond, nil)
	m.StepCompleted(step, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepFailures.WithLabelValues("SNV", "transform")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(OutcomeError, false, time.Second)
		m.StepCompleted(&core.StepDefinition{}, time.Second, nil)
	})
	assert.Nil(t, m.Registerer())
}

func TestRegisterCacheStats(t *testing.T) {
	_, reg := newTestMetrics()
	stats := cache.Stats{Size: 3, Hits: 5, Misses: 2, Evictions: 1}
	RegisterCacheStats(reg, func() cache.Stats { return stats })

	count, err := testutil.GatherAndCount(reg, "spectral_preview_cache_hits_total", "spectral_preview_cache_entries")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] = c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				values[f.GetName()] = g.GetValue()
			}
		}
	}
	assert.Equal(t, 5.0, values["spectral_preview_cache_hits_total"])
	assert.Equal(t, 2.0, values["spectral_preview_cache_misses_total"])
	assert.Equal(t, 3.0, values["spectral_preview_cache_entries"])
}

func TestHandler(t *testing.T) {
	m, _ := newTestMetrics()
	m.ObserveRequest(OutcomeSuccess, false, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spectral_preview_requests_total{outcome="success"} 1`)
}
