// Package indexer keeps the index store consistent with the mounted roots.
//
// It offers three reconciliation scopes:
//   - IndexAll walks every root pre-order with an explicit worklist and a pool
//     of fingerprint workers, writing only nodes that are new or whose size or
//     modification time changed. An unchanged tree costs no writes.
//   - IndexDirectory reconciles the direct children of one directory. It is
//     cheap enough to run before serving a listing, and calls for the same
//     directory are collapsed into one.
//   - ScanDatabaseRows checks every stored record against disk, evicting
//     records for vanished paths and roots, and deleting symlinks whose target
//     is gone.
//
// Per-node failures are logged and skipped; a walk never aborts on one file.
// Caller-facing operations report errors classified by the kinds in
// errors.go (ErrNotFound, ErrIO, ErrConflict, ErrStore and friends).
//
// Start runs a full index and scan in the background and repeats them on
// the configured intervals.
package indexer
