package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedbackIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_feedback_ingested_total",
		Help: "The total number of ingested feedback records by source and result",
	}, []string{"source", "result"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_status_transitions_total",
		Help: "The total number of effective Kanban status transitions",
	}, []string{"to"})

	QueueEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_queue_enqueued_total",
		Help: "The total number of enqueue attempts by result",
	}, []string{"result"})

	QueueItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_queue_items_processed_total",
		Help: "The total number of queue items processed by outcome and error kind",
	}, []string{"outcome", "error_kind"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "triage_queue_depth",
		Help: "Number of queue items by status",
	}, []string{"status"})

	QueueRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_queue_recovered_total",
		Help: "The total number of stale processing items reclaimed to pending",
	})

	QueueRunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_queue_run_duration_seconds",
		Help:    "Duration in seconds of one queue processor run",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	QueueItemAgeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_queue_item_age_seconds",
		Help:    "Age of queue items when processing starts",
		Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200, 86400},
	})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triage_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})

	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_llm_tokens_total",
		Help: "LLM tokens consumed by provider and direction",
	}, []string{"provider", "direction"})
)
