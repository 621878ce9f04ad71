package observability

import (
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Aggregation kinds used as the "kind" label.
const (
	KindDashboard    = "dashboard"
	KindReport       = "report"
	KindTransactions = "transactions"
)

// CategoryCache is the cache label for resolved category names.
const CategoryCache = "categories"

// Metrics holds all Prometheus metrics for the ledger engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	storeErrors         *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	aggregations        *prometheus.CounterVec
	transactionsScanned *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_request_duration_seconds",
				Help:    "Duration of engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_store_errors_total",
				Help: "Total errors returned by the transaction store.",
			},
			[]string{"backend"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		aggregations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_aggregations_total",
				Help: "Total aggregations computed, by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
		transactionsScanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_scanned_total",
				Help: "Total transactions folded, by aggregation kind.",
			},
			[]string{"kind"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(backend string) {
	m.storeErrors.WithLabelValues(backend).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrAggregation counts one aggregation of kind with status "success" or "error".
func (m *Metrics) IncrAggregation(kind, status string) {
	m.aggregations.WithLabelValues(kind, status).Inc()
}

// AddTransactionsScanned records how many transactions an aggregation folded.
func (m *Metrics) AddTransactionsScanned(kind string, n int) {
	m.transactionsScanned.WithLabelValues(kind).Add(float64(n))
}

// GetEngineSnapshot returns a snapshot of engine metrics suitable for the
// GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	kinds := []string{KindDashboard, KindReport, KindTransactions}

	var succeeded, failed, scanned float64
	for _, k := range kinds {
		succeeded += getCounterValue(m.aggregations, k, "success")
		failed += getCounterValue(m.aggregations, k, "error")
		scanned += getCounterValue(m.transactionsScanned, k)
	}

	storeErrors := float64(0)
	for _, backend := range []string{"supabase", "postgres", "sqlite"} {
		storeErrors += getCounterValue(m.storeErrors, backend)
	}

	hits := getCounterValue(m.cacheHits, CategoryCache)
	misses := getCounterValue(m.cacheMisses, CategoryCache)

	errorRate := float64(0)
	if total := succeeded + failed; total > 0 {
		errorRate = failed / total
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.EngineMetrics{
		DashboardComputations: int64(getCounterValue(m.aggregations, KindDashboard, "success")),
		ReportComputations:    int64(getCounterValue(m.aggregations, KindReport, "success")),
		TransactionListings:   int64(getCounterValue(m.aggregations, KindTransactions, "success")),
		FailedComputations:    int64(failed),
		TransactionsScanned:   int64(scanned),
		StoreErrors:           int64(storeErrors),
		CategoryCacheHitRate:  cacheHitRate,
		ErrorRate:             errorRate,
		Period:                "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
