// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - MOUNTED_DIRS: Roots to index, separated by ':' or ',' (default: /drive).
//     Roots may not nest.
//   - CACHE_DIR: Thumbnail cache location (default: /cache)
//   - DATABASE_DIR: Index database location (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - INDEX_INTERVAL: Full index interval as Go duration (default: 6h)
//   - SCAN_INTERVAL: Stale row scan interval as Go duration (default: 1h)
//   - INDEX_WORKERS: Fingerprinting workers (default: 2 per CPU, max 16)
//   - SKETCH_THRESHOLD: Files above this size are sketched (default: 2MiB)
//   - SKETCH_BLOCK_SIZE: Bytes per sketch window (default: 2MiB)
//   - MAX_UPLOAD_SIZE: Largest accepted upload (default: 4GiB)
//   - COUNT_DIR_SIZE: Report on-disk directory sizes in /api/stats (default: false)
//   - SKIP_HIDDEN: Leave dot files out of the index (default: false)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Sizes accept plain byte counts or human forms such as "512KiB" or "4 GB".
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
