// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_workflow_runs_total",
			Help: "Workflow runs by final intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	WorkflowStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_workflow_step_duration_seconds",
			Help:    "Duration of each workflow step",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_classifier_calls_total",
			Help: "Classifier backend calls by result",
		},
		[]string{"result"},
	)

	CatalogWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_catalog_writes_total",
			Help: "Catalog write submissions by result",
		},
		[]string{"result"},
	)

	CatalogSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_catalog_searches_total",
			Help: "Catalog searches by result",
		},
		[]string{"result"},
	)

	TrackedTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tracked_task_transitions_total",
			Help: "Async catalog task status transitions observed by the poller",
		},
		[]string{"status"},
	)

	ReplyCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_reply_cache_hits_total",
			Help: "Redelivered messages answered from the reply cache",
		},
	)
)
