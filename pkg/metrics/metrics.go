package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics for the backtest service.
type Registry struct {
	*prometheus.Registry

	matrixBuildsTotal   *prometheus.CounterVec
	matrixBuildDuration prometheus.Histogram
	cacheEntries        *prometheus.GaugeVec

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	candidatesTotal  prometheus.Counter
	tradesTotal      prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		matrixBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantscan_matrix_builds_total",
				Help: "Total number of matrix bundle builds",
			},
			[]string{"outcome"}, // hit, miss, extended
		),

		matrixBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quantscan_matrix_build_duration_seconds",
				Help:    "Matrix bundle build duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180},
			},
		),

		cacheEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantscan_runtime_cache_entries",
				Help: "Number of entries in the runtime caches",
			},
			[]string{"cache"}, // bundle, signal
		),

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantscan_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"}, // ok, error
		),

		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quantscan_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),

		candidatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quantscan_candidates_total",
				Help: "Total number of entry candidates generated",
			},
		),

		tradesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quantscan_trades_total",
				Help: "Total number of simulated trades executed",
			},
		),
	}

	reg.MustRegister(r.matrixBuildsTotal)
	reg.MustRegister(r.matrixBuildDuration)
	reg.MustRegister(r.cacheEntries)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.candidatesTotal)
	reg.MustRegister(r.tradesTotal)

	return r
}

// ObserveMatrixBuild records a matrix build with its outcome and duration.
func (r *Registry) ObserveMatrixBuild(outcome string, d time.Duration) {
	r.matrixBuildsTotal.WithLabelValues(outcome).Inc()
	r.matrixBuildDuration.Observe(d.Seconds())
}

// ObserveBacktest records a backtest run.
func (r *Registry) ObserveBacktest(status string, d time.Duration) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(d.Seconds())
}

// SetCacheEntries updates the runtime cache entry gauge.
func (r *Registry) SetCacheEntries(cache string, n int) {
	r.cacheEntries.WithLabelValues(cache).Set(float64(n))
}

// AddCandidates increments the candidate counter.
func (r *Registry) AddCandidates(n int) {
	r.candidatesTotal.Add(float64(n))
}

// AddTrades increments the trade counter.
func (r *Registry) AddTrades(n int) {
	r.tradesTotal.Add(float64(n))
}
