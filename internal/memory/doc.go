// Package memory sizes the Go heap to the container and reports memory
// pressure.
//
// ConfigureFromEnv runs first in main. An explicit GOMEMLIMIT wins; otherwise
// MEMORY_LIMIT (bytes or a size such as "2GiB", typically from the Kubernetes
// Downward API) is scaled by MEMORY_RATIO (default 0.85) and applied. The
// remainder is left for ffmpeg, SQLite's page cache and goroutine stacks.
//
// Monitor samples heap allocation against that limit. Above the critical
// water mark it reports paused and forces a collection; it resumes once
// allocation falls below the high water mark. Thumbnail generation, which
// decodes full-size images, checks it before starting.
package memory
