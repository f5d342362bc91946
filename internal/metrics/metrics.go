package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BatchJobsStarted counts jobs picked up by a worker.
	BatchJobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seetu_batch_jobs_started_total",
		Help: "Batch jobs picked up for processing.",
	})

	// BatchJobsFinished counts jobs by terminal status.
	BatchJobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seetu_batch_jobs_finished_total",
		Help: "Batch jobs finished, labeled by terminal status.",
	}, []string{"status"})

	// BatchItemsProcessed counts item outcomes.
	BatchItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seetu_batch_items_processed_total",
		Help: "Batch items processed, labeled by outcome.",
	}, []string{"outcome"})

	// CreditsDebited totals credit units withdrawn by the batch engine.
	CreditsDebited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seetu_credits_debited_total",
		Help: "Credit units debited for batch generations.",
	})

	// PresetUsage counts style resolutions per preset.
	PresetUsage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seetu_preset_usage_total",
		Help: "Batch jobs created from each preset.",
	}, []string{"preset"})

	// DispatchQueueDepth tracks the waiting depth of the durable queue.
	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seetu_dispatch_queue_depth",
		Help: "Jobs waiting in the dispatch queue.",
	})

	// DispatchRetries counts enqueue attempts beyond the first.
	DispatchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seetu_dispatch_retries_total",
		Help: "Dispatch attempts retried after a failure.",
	})

	// DispatchFailedToStart counts jobs the dispatcher gave up on entirely.
	DispatchFailedToStart = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seetu_dispatch_failed_to_start_total",
		Help: "Jobs marked failed after exhausting dispatch attempts.",
	})
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
