package indexer

import (
	"context"
	"errors"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/fingerprint"
)

// ResolveFingerprint returns the fingerprint of path, indexing it first when
// the store has no record or the record is stale.
func (idx *Indexer) ResolveFingerprint(ctx context.Context, path string) (string, error) {
	rec, err := idx.IndexPath(ctx, path)
	if err != nil {
		return "", err
	}
	return rec.Fingerprint, nil
}

// ResolveRecords returns the live records carrying fp in insertion order.
// Records whose path is gone are evicted on the way, and records whose file
// changed since it was indexed are re-fingerprinted and kept only if they
// still match.
func (idx *Indexer) ResolveRecords(ctx context.Context, fp string) ([]database.FileRecord, error) {
	const op = "resolve"
	if !fingerprint.Valid(fp) {
		return nil, newError(op, fp, ErrInvalidArgument, errors.New("malformed fingerprint"))
	}

	recs, err := idx.store.RecordsByFingerprint(ctx, fp)
	if err != nil {
		return nil, storeError(op, fp, err)
	}

	live := recs[:0]
	for i := range recs {
		if gone, _, _ := idx.evictIfGone(ctx, &recs[i]); gone {
			continue
		}
		if rec, ok := idx.verify(ctx, &recs[i]); ok {
			live = append(live, *rec)
		}
	}
	if len(live) == 0 {
		return nil, newError(op, fp, ErrNotFound, nil)
	}
	return live, nil
}

// ResolvePaths returns every live path carrying fp.
func (idx *Indexer) ResolvePaths(ctx context.Context, fp string) ([]string, error) {
	recs, err := idx.ResolveRecords(ctx, fp)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(recs))
	for i, r := range recs {
		paths[i] = r.Path
	}
	return paths, nil
}

// ResolveDirectory returns the live directory record addressed by fp.
func (idx *Indexer) ResolveDirectory(ctx context.Context, fp string) (*database.FileRecord, error) {
	recs, err := idx.ResolveRecords(ctx, fp)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].IsDir() {
			return &recs[i], nil
		}
	}
	return nil, newError("resolve directory", fp, ErrNotFound, errors.New("fingerprint does not name a directory"))
}

// verify re-indexes rec when its stat data drifted and reports whether the
// path still carries the fingerprint rec was found under.
func (idx *Indexer) verify(ctx context.Context, rec *database.FileRecord) (*database.FileRecord, bool) {
	info, err := filesystem.StatWithRetry(rec.Path, idx.retry)
	if err != nil {
		return nil, false
	}
	if !stale(rec, info) {
		return rec, true
	}
	fresh, err := idx.IndexPath(ctx, rec.Path)
	if err != nil {
		return nil, false
	}
	return fresh, fresh.Fingerprint == rec.Fingerprint
}
