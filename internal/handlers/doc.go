// Package handlers implements the HTTP API over the index, the dedup
// service and the thumbnail cache.
//
// Handlers are thin: they parse the request, call one operation and encode
// the result as JSON. Operation errors are mapped to status codes by
// [writeError] using the kinds in the indexer package, and every error body
// carries a machine-readable code so clients can tell a missing source
// (fall back to upload) from a plain 404.
package handlers
