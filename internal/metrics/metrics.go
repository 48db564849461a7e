// Package metrics exposes Prometheus collectors for queries, document searches, and uploads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tanya"

// Per-document search outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeEmpty     = "empty"
	OutcomeNoPages   = "no_pages"
	OutcomePageError = "page_error"
	OutcomeReadError = "read_error"
	OutcomeQAError   = "qa_error"
)

// Query and upload outcomes.
const (
	StatusOK          = "ok"
	StatusNoResults   = "no_results"
	StatusClientError = "client_error"
	StatusError       = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	queries         *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	documents       *prometheus.CounterVec
	summarizations  *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	textCacheHits   prometheus.Counter
	textCacheMisses prometheus.Counter
}

// New registers the collectors on a fresh registry along with the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{registry: reg}
	factory := promauto.With(reg)

	m.queries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Folder queries by outcome",
		},
		[]string{"status"},
	)
	m.queryDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent answering a folder query",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
	)
	m.documents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_searches_total",
			Help:      "Per-document searches by outcome",
		},
		[]string{"outcome"},
	)
	m.summarizations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizations_total",
			Help:      "Summarization calls for long answers",
		},
		[]string{"status"},
	)
	m.uploads = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "File uploads by outcome",
		},
		[]string{"status"},
	)
	m.textCacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "text_cache_hits_total",
		Help:      "Corrected document text served from cache",
	})
	m.textCacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "text_cache_misses_total",
		Help:      "Corrected document text rebuilt from the PDF",
	})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records one folder query.
func (m *Metrics) ObserveQuery(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(status).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
}

// ObserveDocument records one per-document search.
func (m *Metrics) ObserveDocument(outcome string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(outcome).Inc()
}

// ObserveSummarization records a summarization call.
func (m *Metrics) ObserveSummarization(err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.summarizations.WithLabelValues(status).Inc()
}

// ObserveUpload records an upload attempt.
func (m *Metrics) ObserveUpload(status string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(status).Inc()
}

// ObserveTextCache records a corrected-text cache lookup.
func (m *Metrics) ObserveTextCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.textCacheHits.Inc()
	} else {
		m.textCacheMisses.Inc()
	}
}
