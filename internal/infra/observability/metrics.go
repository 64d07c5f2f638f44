package observability

import (
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Cache labels.
const (
	CacheSnapshot = "snapshot"
	CacheSettings = "settings"
)

// Metrics holds all Prometheus metrics for the dashboard BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	fetchDuration  *prometheus.HistogramVec
	fetchRuns      *prometheus.CounterVec
	sourceErrors   *prometheus.CounterVec
	externalErrors *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	supersessions  prometheus.Counter
	requestsTotal  *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_fetch_duration_seconds",
				Help:    "Duration of dashboard fetch runs by outcome.",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20},
			},
			[]string{"outcome"},
		),
		fetchRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_fetch_runs_total",
				Help: "Total dashboard fetch runs by outcome.",
			},
			[]string{"outcome"},
		),
		sourceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_source_read_errors_total",
				Help: "Total failed source reads by source.",
			},
			[]string{"source"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		supersessions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dashboard_fetch_supersessions_total",
				Help: "Total fetch runs cancelled because a newer run started.",
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_requests_total",
				Help: "Total dashboard requests served.",
			},
			[]string{"status"},
		),
	}
}

// RecordFetch records a finished fetch run and its outcome.
func (m *Metrics) RecordFetch(outcome domain.FetchState, d time.Duration) {
	m.fetchDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
	m.fetchRuns.WithLabelValues(string(outcome)).Inc()
}

// IncrSourceError increments the failed read counter for a source.
func (m *Metrics) IncrSourceError(source string) {
	m.sourceErrors.WithLabelValues(source).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSupersession counts a run cancelled by a newer one.
func (m *Metrics) IncrSupersession() {
	m.supersessions.Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetPipelineSnapshot summarises the fetch pipeline counters for the
// GET /v1/metrics/pipeline endpoint.
func (m *Metrics) GetPipelineSnapshot() *domain.PipelineMetrics {
	succeeded := getCounterValue(m.fetchRuns, string(domain.FetchSucceeded))
	timedOut := getCounterValue(m.fetchRuns, string(domain.FetchTimedOut))
	cancelled := getCounterValue(m.fetchRuns, string(domain.FetchCancelled))
	failed := getCounterValue(m.fetchRuns, string(domain.FetchFailed))
	total := succeeded + timedOut + cancelled + failed

	hits := getCounterValue(m.cacheHits, CacheSnapshot)
	misses := getCounterValue(m.cacheMisses, CacheSnapshot)

	errorRate := float64(0)
	if total > 0 {
		errorRate = (timedOut + failed) / total
	}
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.PipelineMetrics{
		TotalRuns:     int64(total),
		Succeeded:     int64(succeeded),
		TimedOut:      int64(timedOut),
		Cancelled:     int64(cancelled),
		Failed:        int64(failed),
		Supersessions: int64(counterValue(m.supersessions)),
		ErrorRate:     errorRate,
		CacheHitRate:  hitRate,
		Period:        "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
