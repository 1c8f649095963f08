// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagergenie_job_runs_total",
			Help: "Ingestion job runs by job and outcome",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wagergenie_job_duration_seconds",
			Help:    "Duration of ingestion job runs in seconds",
			Buckets: []float64{.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"job"},
	)

	RowsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagergenie_rows_ingested_total",
			Help: "Rows written by ingestion jobs",
		},
		[]string{"table"},
	)

	UpstreamFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagergenie_upstream_failures_total",
			Help: "Failed calls to external providers",
		},
		[]string{"upstream"},
	)

	// Chat
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagergenie_chat_requests_total",
			Help: "Chat requests by outcome",
		},
		[]string{"status"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wagergenie_completion_duration_seconds",
			Help:    "Duration of completion calls in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)

	PickExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagergenie_pick_extractions_total",
			Help: "Assistant replies by extraction mode and whether a pick was found",
		},
		[]string{"mode", "found"},
	)

	// Cache
	ContextCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagergenie_context_cache_total",
			Help: "Chat context cache lookups",
		},
		[]string{"result"},
	)

	// Realtime
	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wagergenie_stream_subscribers",
			Help: "Open chat stream connections",
		},
	)

	StreamDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wagergenie_stream_dropped_total",
			Help: "Messages dropped for slow stream subscribers",
		},
	)
)

// RecordJob records one ingestion run.
func RecordJob(job, status string, seconds float64) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(seconds)
}

// RecordRows adds n written rows for table.
func RecordRows(table string, n int) {
	RowsIngestedTotal.WithLabelValues(table).Add(float64(n))
}

// RecordUpstreamFailure counts a failed provider call.
func RecordUpstreamFailure(upstream string) {
	UpstreamFailuresTotal.WithLabelValues(upstream).Inc()
}

// RecordChat counts a chat request by outcome.
func RecordChat(status string) {
	ChatRequestsTotal.WithLabelValues(status).Inc()
}

// RecordCompletion observes one completion call.
func RecordCompletion(mode string, seconds float64) {
	CompletionDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordExtraction counts how a reply's pick was obtained.
func RecordExtraction(mode string, found bool) {
	f := "false"
	if found {
		f = "true"
	}
	PickExtractionsTotal.WithLabelValues(mode, f).Inc()
}

// RecordCacheHit and RecordCacheMiss count context cache lookups.
func RecordCacheHit()  { ContextCacheTotal.WithLabelValues("hit").Inc() }
func RecordCacheMiss() { ContextCacheTotal.WithLabelValues("miss").Inc() }
