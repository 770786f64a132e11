package indexer

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"virtual-drive/internal/database"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// ScanStats summarizes one garbage-collection pass.
type ScanStats struct {
	Checked     int64 `json:"checked"`
	Removed     int64 `json:"removed"`
	BrokenLinks int64 `json:"brokenLinks"`
	OutsideRoot int64 `json:"outsideRoot"`
}

// ScanDatabaseRows removes records that no longer hold: records from roots
// that are no longer mounted, records whose path is gone, and symlinks whose
// target is gone (the link file is deleted too). Existence checks run in
// parallel; no lock is held across the pass and cancellation leaves the store
// valid. If a pass is already running it returns immediately.
func (idx *Indexer) ScanDatabaseRows(ctx context.Context) (ScanStats, error) {
	var stats ScanStats
	if !idx.scanning.CompareAndSwap(false, true) {
		logging.Info("Scan already in progress, skipping...")
		return stats, nil
	}
	defer idx.scanning.Store(false)

	start := time.Now()
	metrics.IndexerRunsTotal.WithLabelValues("scan").Inc()
	logging.Info("Starting index scan")

	n, err := idx.store.DeleteNotUnderRoots(ctx, idx.config.Roots)
	if err != nil {
		return stats, storeError("scan", "", err)
	}
	stats.OutsideRoot = n
	if n > 0 {
		metrics.IndexerRecordsDeleted.WithLabelValues("outside_root").Add(float64(n))
		logging.Info("Removed %d records outside the mounted roots", n)
	}

	var checked, removed, broken atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.Walker.NumWorkers * 2)

	cur := idx.store.AllRecords()
	for cur.Next(gctx) {
		rec := cur.Record()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, deleted, pruned := idx.evictIfGone(gctx, &rec)
			removed.Add(deleted)
			if pruned {
				broken.Add(1)
			}
			if c := checked.Add(1); c%(progressEvery*10) == 0 {
				logging.Info("Scan progress: %d checked, %d removed", c, removed.Load())
			}
			return nil
		})
	}
	waitErr := g.Wait()

	stats.Checked = checked.Load()
	stats.Removed = removed.Load()
	stats.BrokenLinks = broken.Load()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if waitErr != nil {
		return stats, waitErr
	}
	if err := cur.Err(); err != nil {
		return stats, storeError("scan", "", err)
	}

	now := time.Now()
	idx.lastScanTime.Store(now)
	if err := idx.store.SetTimestamp(ctx, database.MetaLastScan, now); err != nil {
		logging.Warn("Failed to record scan time: %v", err)
	}
	metrics.IndexerLastRunTimestamp.WithLabelValues("scan").Set(float64(now.Unix()))
	metrics.IndexerLastRunDuration.WithLabelValues("scan").Set(time.Since(start).Seconds())

	logging.Info("Scan complete: %d checked, %d removed (%d broken links), %d outside roots in %v",
		stats.Checked, stats.Removed, stats.BrokenLinks, stats.OutsideRoot, time.Since(start))
	return stats, nil
}
