// Package metrics defines the Prometheus metric collectors used by the
// search engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	DocumentsIndexedTotal prometheus.Counter
	IndexBatchesTotal     *prometheus.CounterVec
	IndexRowsWrittenTotal prometheus.Counter
	IndexRetriesTotal     prometheus.Counter
	IndexLatency          prometheus.Histogram
	DeletesTotal          *prometheus.CounterVec
	SearchQueriesTotal    *prometheus.CounterVec
	SearchLatency         *prometheus.HistogramVec
	SearchResultsCount    prometheus.Histogram
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
}

// New creates and registers all engine metrics with the given registerer.
// Passing nil registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		DocumentsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_documents_indexed_total",
				Help: "Total documents written to the search index.",
			},
		),
		IndexBatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_index_batches_total",
				Help: "Total index batch transactions by status (ok, error).",
			},
			[]string{"status"},
		),
		IndexRowsWrittenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_index_rows_written_total",
				Help: "Total term posting rows inserted into the index table.",
			},
		),
		IndexRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_index_transaction_retries_total",
				Help: "Total index transactions re-attempted after a transient conflict.",
			},
		),
		IndexLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scout_index_batch_duration_seconds",
				Help:    "Index batch transaction latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		DeletesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_index_deletes_total",
				Help: "Total delete operations by scope (documents, type) and status.",
			},
			[]string{"scope", "status"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, empty_query, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scout_search_results_count",
				Help:    "Number of identifiers returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_cache_hits_total",
				Help: "Total search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scout_cache_misses_total",
				Help: "Total search cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.DocumentsIndexedTotal,
		m.IndexBatchesTotal,
		m.IndexRowsWrittenTotal,
		m.IndexRetriesTotal,
		m.IndexLatency,
		m.DeletesTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Nop returns metrics registered with a private registry, for callers that
// do not scrape them (library embedding, tests).
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
