// Package database is the SQLite-backed index store.
//
// One table, file_index, maps absolute paths to content fingerprints. Path is
// the primary key; fingerprint is indexed but not unique, since deduplicated
// entries share one. Every record also carries its parent directory and the
// mounted root it belongs to, which drive child enumeration and the cascading
// deletes used when directories vanish or roots are unmounted.
//
// Each exported operation runs as a single statement or a single
// transaction, so concurrent callers never observe a partial write. The
// database runs in WAL mode; writers are serialized in-process per call.
package database
