// Package workers sizes the indexer's worker pools.
//
// Counts derive from GOMAXPROCS, which tracks container CPU limits, scaled
// by how I/O-heavy the work is. Fingerprinting mostly waits on disk reads,
// so the indexer uses [ForIO]. The INDEX_WORKERS environment variable
// overrides the computed value.
package workers
