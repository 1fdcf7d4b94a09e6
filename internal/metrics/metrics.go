// Package metrics exposes SparkQ's internal counters as Prometheus
// counters plus one request-latency histogram (SPEC_FULL.md §2
// "[DOMAIN]"), grounded on the
// prometheus/client_golang usage in the rest of the retrieved corpus.
// Nothing here changes scheduling behavior or adds a push/streaming
// surface — it is read-only observability served at GET /api/metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkq_tasks_enqueued_total",
		Help: "Total number of tasks enqueued.",
	})
	TasksClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkq_tasks_claimed_total",
		Help: "Total number of tasks claimed by a worker.",
	})
	TasksSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkq_tasks_succeeded_total",
		Help: "Total number of tasks completed successfully.",
	})
	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkq_tasks_failed_total",
		Help: "Total number of tasks that ended in failure.",
	})
	TasksRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkq_tasks_requeued_total",
		Help: "Total number of tasks requeued from a terminal state.",
	})
	AutoFailTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkq_autofail_total",
		Help: "Total number of tasks auto-failed by the stale reaper.",
	})
	PurgeDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparkq_purge_deleted_total",
		Help: "Total number of terminal tasks removed by the purge reaper.",
	})
	ReaperTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparkq_reaper_ticks_total",
		Help: "Total number of reaper ticks, by reaper name.",
	}, []string{"reaper"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sparkq_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)
