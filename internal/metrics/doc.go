// Package metrics provides Prometheus instrumentation for the virtual drive.
//
// All metrics are prefixed with "virtual_drive_" and registered on the default
// registry through promauto. They fall into these groups:
//
//   - HTTP: request counts, durations and in-flight requests
//   - Database: query counts and latencies, transaction latency, file sizes
//   - Indexer: runs, nodes visited, records written and deleted, errors
//   - Deduplication: flash transfer outcomes, deduplicated bytes, duplicate report
//   - Thumbnails: generations and cache hits
//   - Filesystem: per-volume operation latency and ESTALE retries
//
// InitializeMetrics pre-populates label combinations so dashboards see zero
// values before the first event. Collector refreshes index gauges from a
// StatsProvider on an interval. NewFilesystemObserver bridges the filesystem
// package's Observer interface to the metrics here.
package metrics
