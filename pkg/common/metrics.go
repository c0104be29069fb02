package common

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_processor_tasks_enqueued_total",
		Help: "Total number of tasks enqueued",
	}, []string{"queue", "task_type"})

	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_processor_tasks_processed_total",
		Help: "Total number of tasks processed",
	}, []string{"queue", "task_type", "status"})

	TaskProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trade_processor_task_processing_duration_seconds",
		Help:    "Time taken to process a task",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"queue", "task_type"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trade_processor_queue_depth",
		Help: "Current number of waiting tasks in queue",
	}, []string{"queue"})

	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_processor_sync_runs_total",
		Help: "Total number of statistics sync runs per source",
	}, []string{"source", "status"})

	SyncPageCursor = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trade_processor_sync_page_cursor",
		Help: "Last synced scan API page and last seen page count",
	}, []string{"boundary"})

	CrawlCursor = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trade_processor_crawl_cursor",
		Help: "Last enqueued block number",
	})

	ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trade_processor_chain_head",
		Help: "Chain head block number as seen by the crawler",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_processor_cache_hits_total",
		Help: "Total number of response cache hits",
	}, []string{"endpoint"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_processor_cache_misses_total",
		Help: "Total number of response cache misses",
	}, []string{"endpoint"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trade_processor_http_request_duration_seconds",
		Help:    "Time taken to serve an HTTP request",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"endpoint", "status"})

	LeaderElectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trade_processor_leader_election_status",
		Help: "Leader election status (1 = leader, 0 = follower)",
	}, []string{"node_id"})

	LeaderElectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_processor_leader_election_errors_total",
		Help: "Total number of leader election errors",
	}, []string{"node_id", "operation"})
)
