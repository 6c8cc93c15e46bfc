package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a
// batch analysis run.
type Metrics struct {
	RecordsProcessed   prometheus.Counter
	ValidationFailures prometheus.Counter
	DomainErrors       prometheus.Counter
	RunActive          prometheus.Gauge

	// Stage metrics.
	StageDuration *prometheus.HistogramVec // label: stage
	BatchSize     prometheus.Histogram

	// Watershed delineation metrics.
	DelineationFailures prometheus.Counter
	WatershedCache      *prometheus.CounterVec // label: result={hit,miss}
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsProcessed,
		m.ValidationFailures,
		m.DomainErrors,
		m.RunActive,
		m.StageDuration,
		m.BatchSize,
		m.DelineationFailures,
		m.WatershedCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "culvert_toolkit",
			Name:      "records_processed_total",
			Help:      "Total culvert records read from the input table.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "culvert_toolkit",
			Name:      "validation_failures_total",
			Help:      "Total records flagged include=false during normalization.",
		}),
		DomainErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "culvert_toolkit",
			Name:      "domain_errors_total",
			Help:      "Total capacity calculations rejected for a negative radicand.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "culvert_toolkit",
			Name:      "run_active",
			Help:      "1 while a batch run is in progress, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "culvert_toolkit",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each run stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "culvert_toolkit",
			Name:      "batch_size",
			Help:      "Number of culvert records per run.",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		DelineationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "culvert_toolkit",
			Name:      "delineation_failures_total",
			Help:      "Total points the geoprocessing backend could not delineate.",
		}),
		WatershedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "culvert_toolkit",
			Name:      "watershed_cache_total",
			Help:      "Watershed parameter cache lookups by result.",
		}, []string{"result"}),
	}
}

// WatershedCacheHit implements the watershed cache observer.
func (m *Metrics) WatershedCacheHit() {
	m.WatershedCache.WithLabelValues("hit").Inc()
}

// WatershedCacheMiss implements the watershed cache observer.
func (m *Metrics) WatershedCacheMiss() {
	m.WatershedCache.WithLabelValues("miss").Inc()
}
