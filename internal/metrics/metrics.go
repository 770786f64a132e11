package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtual_drive_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_db_queries_total",
			Help: "Total number of index store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtual_drive_db_query_duration_seconds",
			Help:    "Index store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtual_drive_db_transaction_duration_seconds",
			Help:    "Index store transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "virtual_drive_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_indexer_runs_total",
			Help: "Total number of reconciler runs by kind",
		},
		[]string{"kind"}, // "full", "directory", "scan"
	)

	IndexerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "virtual_drive_indexer_last_run_timestamp",
			Help: "Timestamp of the last completed run",
		},
		[]string{"kind"},
	)

	IndexerLastRunDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "virtual_drive_indexer_last_run_duration_seconds",
			Help: "Duration of the last completed run in seconds",
		},
		[]string{"kind"},
	)

	IndexerNodesVisited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "virtual_drive_indexer_nodes_visited_total",
			Help: "Total number of filesystem nodes visited by full index walks",
		},
	)

	IndexerRecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_indexer_records_written_total",
			Help: "Total number of index records written",
		},
		[]string{"kind"}, // "file", "directory"
	)

	IndexerRecordsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_indexer_records_deleted_total",
			Help: "Total number of index records removed by reason",
		},
		[]string{"reason"}, // "missing", "broken_link", "outside_root", "removed"
	)

	IndexerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_indexer_errors_total",
			Help: "Total number of per-node indexing errors",
		},
		[]string{"stage"}, // "stat", "fingerprint", "store", "readdir"
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_indexer_running",
			Help: "Whether a full index is currently running (1 = running, 0 = idle)",
		},
	)

	IndexerParallelWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_indexer_parallel_workers",
			Help: "Number of fingerprint workers used by the last full index",
		},
	)

	FingerprintDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtual_drive_fingerprint_duration_seconds",
			Help:    "Time spent fingerprinting one node",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method"}, // "directory", "full", "sketch"
	)
)

// Deduplication metrics
var (
	FlashTransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_flash_transfers_total",
			Help: "Total number of flash transfers by outcome",
		},
		[]string{"outcome"}, // "created", "exists", "not_found", "source_missing", "failed"
	)

	BytesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "virtual_drive_bytes_deduplicated_total",
			Help: "Bytes not transferred because a flash transfer linked existing content",
		},
	)

	DuplicateGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_duplicate_groups",
			Help: "Number of duplicate groups found by the last report",
		},
	)

	ReclaimableBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_duplicate_reclaimable_bytes",
			Help: "Bytes held by redundant copies in the last duplicate report",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_uploads_total",
			Help: "Total number of uploads by outcome",
		},
		[]string{"outcome"},
	)
)

// Index content metrics
var (
	IndexRecordsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "virtual_drive_index_records",
			Help: "Number of index records by media type",
		},
		[]string{"type"},
	)

	IndexBytesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_index_bytes",
			Help: "Total size of indexed files in bytes",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"type", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtual_drive_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "virtual_drive_thumbnail_cache_hits_total",
			Help: "Thumbnail requests served from cache",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "virtual_drive_memory_paused",
			Help: "1 while thumbnail generation is paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "virtual_drive_memory_gc_pauses_total",
			Help: "Times memory pressure paused processing and forced a GC",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtual_drive_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	// FilesystemRetries counts steps of the ESTALE retry loop. event is
	// stale, attempt, success or failure.
	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_filesystem_retries_total",
			Help: "Stale file handle retry events by volume, operation and event",
		},
		[]string{"volume", "operation", "event"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "virtual_drive_filesystem_retry_duration_seconds",
			Help:    "Time spent on filesystem operations that exhausted their retries",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemLinksPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "virtual_drive_filesystem_links_pruned_total",
			Help: "Broken symlinks removed from disk by volume",
		},
		[]string{"volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "virtual_drive_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
