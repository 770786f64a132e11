package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// ReconcileStats summarizes one directory reconciliation.
type ReconcileStats struct {
	Dir     string `json:"dir"`
	Written int    `json:"written"`
	Removed int    `json:"removed"`
	Pruned  int    `json:"pruned"`
	Failed  int    `json:"failed"`
}

// cleanPath makes path absolute and clean and finds its root.
func (idx *Indexer) cleanPath(op, path string) (string, string, error) {
	if path == "" {
		return "", "", newError(op, path, ErrInvalidArgument, errors.New("empty path"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", newError(op, path, ErrInvalidArgument, err)
	}
	root, ok := idx.RootFor(abs)
	if !ok {
		return "", "", newError(op, abs, ErrOutsideRoot, nil)
	}
	if link := filesystem.LinkBelow(root, filepath.Dir(abs)); link != "" {
		return "", "", newError(op, abs, ErrInvalidArgument, fmt.Errorf("%s is a symbolic link", link))
	}
	return abs, root, nil
}

// cleanDir is cleanPath for a directory that will be listed or written into.
// The directory itself must not be a symlink either.
func (idx *Indexer) cleanDir(op, path string) (string, string, error) {
	abs, root, err := idx.cleanPath(op, path)
	if err != nil {
		return "", "", err
	}
	if abs != root && filesystem.IsSymlink(abs) {
		return "", "", newError(op, abs, ErrInvalidArgument, errors.New("directory is a symbolic link"))
	}
	return abs, root, nil
}

// IndexDirectory makes the store agree with disk for the direct children of
// dir: the directory's own record is written if absent or stale, believed
// children that are gone are deleted (broken symlinks are removed from disk
// too), and children on disk that are unknown or changed are fingerprinted
// and written. Calls for the same directory are serialized; concurrent
// callers share the in-flight result. The shared run stops only with the
// Indexer; a caller whose ctx ends stops waiting for it.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (ReconcileStats, error) {
	const op = "index directory"
	abs, root, err := idx.cleanDir(op, dir)
	if err != nil {
		return ReconcileStats{}, err
	}

	ch := idx.dirFlight.DoChan(abs, func() (any, error) {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(idx.ctx, cancel)
		defer stop()
		return idx.reconcileDirectory(runCtx, abs, root)
	})

	select {
	case res := <-ch:
		stats, _ := res.Val.(ReconcileStats)
		return stats, res.Err
	case <-ctx.Done():
		return ReconcileStats{Dir: abs}, fmt.Errorf("%s %s: %w", op, abs, ctx.Err())
	}
}

func (idx *Indexer) reconcileDirectory(ctx context.Context, dir, root string) (ReconcileStats, error) {
	const op = "index directory"
	start := time.Now()
	stats := ReconcileStats{Dir: dir}

	metrics.IndexerRunsTotal.WithLabelValues("directory").Inc()
	defer func() {
		metrics.IndexerLastRunTimestamp.WithLabelValues("directory").Set(float64(time.Now().Unix()))
		metrics.IndexerLastRunDuration.WithLabelValues("directory").Set(time.Since(start).Seconds())
	}()

	info, err := filesystem.StatWithRetry(dir, idx.retry)
	if err != nil {
		if os.IsNotExist(err) {
			if n, delErr := idx.store.DeleteTree(ctx, dir); delErr == nil && n > 0 {
				metrics.IndexerRecordsDeleted.WithLabelValues("missing").Add(float64(n))
				logging.Debug("Evicted %d records under vanished directory %s", n, dir)
			}
			return stats, newError(op, dir, ErrNotFound, err)
		}
		return stats, newError(op, dir, ErrIO, err)
	}
	if !info.IsDir() {
		return stats, newError(op, dir, ErrInvalidArgument, errors.New("not a directory"))
	}

	// 1. The directory's own record.
	existing, err := idx.store.Get(ctx, dir)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return stats, storeError(op, dir, err)
	}
	if res := idx.examine(dir, root, existing); res.Record != nil {
		if err := idx.store.Upsert(ctx, res.Record); err != nil {
			return stats, storeError(op, dir, err)
		}
		metrics.IndexerRecordsWritten.WithLabelValues(string(res.Record.Kind)).Inc()
		stats.Written++
	}

	// 2. Believed children.
	believed, err := idx.store.ChildrenOf(ctx, dir)
	if err != nil {
		return stats, storeError(op, dir, err)
	}
	known := make(map[string]*database.FileRecord, len(believed))

	// 3. Evict the ones that are gone.
	for i := range believed {
		rec := &believed[i]
		gone, deleted, pruned := idx.evictIfGone(ctx, rec)
		if !gone {
			known[rec.Path] = rec
			continue
		}
		stats.Removed += int(deleted)
		if pruned {
			stats.Pruned++
		}
	}

	// 4. Add what disk has and the store does not.
	entries, err := filesystem.ReadDirWithRetry(dir, idx.retry)
	if err != nil {
		return stats, newError(op, dir, ErrIO, err)
	}

	var (
		mu      sync.Mutex
		records []database.FileRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.Walker.NumWorkers)
	for _, entry := range entries {
		if idx.config.Walker.SkipHidden && isHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		existing := known[path]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := idx.examine(path, root, existing)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case res.Err != nil:
				stats.Failed++
				logging.Debug("Skipping %v", res.Err)
			case res.Record != nil:
				records = append(records, *res.Record)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if len(records) > 0 {
		if err := idx.store.UpsertBatch(ctx, records); err != nil {
			metrics.IndexerErrors.WithLabelValues("store").Inc()
			return stats, storeError(op, dir, err)
		}
		for _, rec := range records {
			metrics.IndexerRecordsWritten.WithLabelValues(string(rec.Kind)).Inc()
		}
		stats.Written += len(records)
	}

	if stats.Written+stats.Removed > 0 {
		logging.Debug("Reconciled %s: %d written, %d removed (%d broken links), %d failed in %v",
			dir, stats.Written, stats.Removed, stats.Pruned, stats.Failed, time.Since(start))
	}
	return stats, nil
}

// evictIfGone deletes rec when its path no longer resolves. A symlink whose
// target vanished is deleted from disk as well. Directory records take their
// subtree with them. gone reports that the path no longer resolves; deleted
// counts the rows actually removed.
func (idx *Indexer) evictIfGone(ctx context.Context, rec *database.FileRecord) (gone bool, deleted int64, pruned bool) {
	state, err := filesystem.Probe(rec.Path, idx.retry)
	switch state {
	case filesystem.StateLive:
		return false, 0, false
	case filesystem.StateUnknown:
		logging.Debug("Keeping %s, state unknown: %v", rec.Path, err)
		return false, 0, false
	case filesystem.StateBrokenLink:
		if _, err := filesystem.RemoveBrokenLink(rec.Path); err != nil {
			logging.Warn("Failed to remove broken link %s: %v", rec.Path, err)
		} else {
			pruned = true
		}
	}

	if rec.IsDir() {
		deleted, err = idx.store.DeleteTree(ctx, rec.Path)
	} else {
		var ok bool
		ok, err = idx.store.Delete(ctx, rec.Path)
		if ok {
			deleted = 1
		}
	}
	if err != nil {
		metrics.IndexerErrors.WithLabelValues("store").Inc()
		logging.Warn("Failed to evict %s: %v", rec.Path, err)
		return true, 0, pruned
	}

	reason := "missing"
	if state == filesystem.StateBrokenLink {
		reason = "broken_link"
	}
	metrics.IndexerRecordsDeleted.WithLabelValues(reason).Add(float64(deleted))
	return true, deleted, pruned
}

// IndexPath brings the record for one path up to date and returns it. The
// path's ancestors up to its root are indexed too when missing. A path that
// no longer resolves has its records evicted and reports ErrNotFound.
func (idx *Indexer) IndexPath(ctx context.Context, path string) (*database.FileRecord, error) {
	const op = "index path"
	abs, root, err := idx.cleanPath(op, path)
	if err != nil {
		return nil, err
	}

	existing, err := idx.store.Get(ctx, abs)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, storeError(op, abs, err)
	}

	state, probeErr := filesystem.Probe(abs, idx.retry)
	switch state {
	case filesystem.StateMissing, filesystem.StateBrokenLink:
		if existing != nil {
			idx.evictIfGone(ctx, existing)
		}
		return nil, newError(op, abs, ErrNotFound, probeErr)
	case filesystem.StateUnknown:
		return nil, newError(op, abs, ErrIO, probeErr)
	}

	res := idx.examine(abs, root, existing)
	switch {
	case res.Err != nil:
		return nil, newError(op, abs, ErrIO, res.Err)
	case res.Unchanged:
		return existing, nil
	}

	if err := idx.ensureAncestors(ctx, abs, root); err != nil {
		return nil, err
	}
	if err := idx.store.Upsert(ctx, res.Record); err != nil {
		return nil, storeError(op, abs, err)
	}
	metrics.IndexerRecordsWritten.WithLabelValues(string(res.Record.Kind)).Inc()
	return res.Record, nil
}

// ensureAncestors indexes the directories between root and path's parent
// that the store does not know yet.
func (idx *Indexer) ensureAncestors(ctx context.Context, path, root string) error {
	var missing []string
	for dir := filepath.Dir(path); filesystem.Within(root, dir); dir = filepath.Dir(dir) {
		ok, err := idx.store.ExistsByPath(ctx, dir)
		if err != nil {
			return storeError("index path", dir, err)
		}
		if ok {
			break
		}
		missing = append(missing, dir)
		if dir == root {
			break
		}
	}

	for i := len(missing) - 1; i >= 0; i-- {
		res := idx.examine(missing[i], root, nil)
		if res.Record == nil {
			continue
		}
		if err := idx.store.Upsert(ctx, res.Record); err != nil {
			return storeError("index path", missing[i], err)
		}
	}
	return nil
}
