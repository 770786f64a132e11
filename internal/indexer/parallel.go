package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// progressEvery is how many nodes pass between progress log lines.
const progressEvery = 1000

// ParallelWalkerConfig configures the parallel tree walker
type ParallelWalkerConfig struct {
	// NumWorkers is the number of fingerprint workers
	NumWorkers int
	// BatchSize is the number of records written per store transaction
	BatchSize int
	// ChannelBuffer is the size of the job and result channel buffers
	ChannelBuffer int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
}

// DefaultParallelWalkerConfig returns defaults that are safe on NFS.
func DefaultParallelWalkerConfig() ParallelWalkerConfig {
	return ParallelWalkerConfig{
		NumWorkers:    3,
		BatchSize:     500,
		ChannelBuffer: 1000,
	}
}

// walkStart is one subtree to walk and the root scope its records belong to.
type walkStart struct {
	path string
	root string
}

// nodeJob is one node waiting to be examined.
type nodeJob struct {
	path     string
	root     string
	existing *database.FileRecord
}

// dirItem is one directory on the worklist.
type dirItem struct {
	path     string
	root     string
	existing *database.FileRecord
}

// WalkStats summarizes one walk.
type WalkStats struct {
	Visited   int64 `json:"visited"`
	Written   int64 `json:"written"`
	Unchanged int64 `json:"unchanged"`
	Errors    int64 `json:"errors"`
}

// ParallelWalker walks trees pre-order with an explicit worklist. Listing is
// done by one goroutine; stat and fingerprint work is fanned out to workers;
// one collector batches the writes.
type ParallelWalker struct {
	config ParallelWalkerConfig
	store  Store
	idx    *Indexer

	jobs    chan nodeJob
	results chan NodeResult

	wg sync.WaitGroup

	// Statistics
	visited   atomic.Int64
	written   atomic.Int64
	unchanged atomic.Int64
	errs      atomic.Int64

	// progress is called after every result with the running totals.
	progress func(WalkStats)
}

// NewParallelWalker creates a walker that writes through idx's store.
func NewParallelWalker(idx *Indexer, config ParallelWalkerConfig) *ParallelWalker {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}
	return &ParallelWalker{
		config:  config,
		store:   idx.store,
		idx:     idx,
		jobs:    make(chan nodeJob, config.ChannelBuffer),
		results: make(chan NodeResult, config.ChannelBuffer),
	}
}

// Walk indexes every node under starts. Per-node failures are counted and
// logged; only cancellation stops the walk early, returning ctx.Err().
func (pw *ParallelWalker) Walk(ctx context.Context, starts []walkStart) (WalkStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.IndexerParallelWorkers.Set(float64(pw.config.NumWorkers))

	for i := 0; i < pw.config.NumWorkers; i++ {
		pw.wg.Add(1)
		go pw.worker(ctx, i)
	}

	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		pw.collect(ctx)
	}()

	err := pw.enqueue(ctx, starts)

	close(pw.jobs)
	pw.wg.Wait()
	close(pw.results)
	collectorWg.Wait()

	stats := pw.Stats()
	if err == nil {
		err = ctx.Err()
	}
	return stats, err
}

// enqueue pops directories off the worklist, sends a job for each node and
// pushes subdirectories. Symlinked directories are indexed but not entered.
func (pw *ParallelWalker) enqueue(ctx context.Context, starts []walkStart) error {
	stack := make([]dirItem, 0, len(starts))
	for i := len(starts) - 1; i >= 0; i-- {
		s := starts[i]
		existing, err := pw.store.Get(ctx, s.path)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			pw.report(ctx, failed(s.path, "store", err))
			continue
		}
		stack = append(stack, dirItem{path: s.path, root: s.root, existing: existing})
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !pw.send(ctx, nodeJob{path: dir.path, root: dir.root, existing: dir.existing}) {
			return ctx.Err()
		}

		entries, err := filesystem.ReadDirWithRetry(dir.path, pw.idx.retry)
		if err != nil {
			pw.report(ctx, failed(dir.path, "readdir", err))
			continue
		}

		believed, err := pw.store.ChildrenOf(ctx, dir.path)
		if err != nil {
			pw.report(ctx, failed(dir.path, "store", err))
			continue
		}
		known := make(map[string]*database.FileRecord, len(believed))
		for i := range believed {
			known[believed[i].Path] = &believed[i]
		}

		// Reverse order so the stack pops subdirectories in name order.
		var subdirs []dirItem
		for _, entry := range entries {
			if pw.config.SkipHidden && isHidden(entry.Name()) {
				continue
			}
			path := filepath.Join(dir.path, entry.Name())
			if entry.IsDir() {
				subdirs = append(subdirs, dirItem{path: path, root: dir.root, existing: known[path]})
				continue
			}
			if !pw.send(ctx, nodeJob{path: path, root: dir.root, existing: known[path]}) {
				return ctx.Err()
			}
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

func (pw *ParallelWalker) send(ctx context.Context, job nodeJob) bool {
	select {
	case pw.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

func (pw *ParallelWalker) report(ctx context.Context, res NodeResult) {
	select {
	case pw.results <- res:
	case <-ctx.Done():
	}
}

// worker examines nodes from the jobs channel
func (pw *ParallelWalker) worker(ctx context.Context, id int) {
	defer pw.wg.Done()

	logging.Debug("Walk worker %d started", id)

	for job := range pw.jobs {
		if ctx.Err() != nil {
			continue // drain
		}
		pw.report(ctx, pw.idx.examine(job.path, job.root, job.existing))
	}

	logging.Debug("Walk worker %d finished", id)
}

// collect tallies results and writes changed records in batches.
func (pw *ParallelWalker) collect(ctx context.Context) {
	batch := make([]database.FileRecord, 0, pw.config.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// The batch is written even after cancellation so finished work is kept.
		if err := pw.store.UpsertBatch(context.WithoutCancel(ctx), batch); err != nil {
			metrics.IndexerErrors.WithLabelValues("store").Inc()
			pw.errs.Add(int64(len(batch)))
			logging.Error("Failed to write batch of %d records: %v", len(batch), err)
		} else {
			pw.written.Add(int64(len(batch)))
			for _, rec := range batch {
				metrics.IndexerRecordsWritten.WithLabelValues(string(rec.Kind)).Inc()
			}
		}
		batch = batch[:0]
	}

	for res := range pw.results {
		switch {
		case res.Err != nil:
			pw.errs.Add(1)
			logging.Debug("Skipping %v", res.Err)
		case res.Unchanged:
			pw.visited.Add(1)
			pw.unchanged.Add(1)
		case res.Record != nil:
			pw.visited.Add(1)
			batch = append(batch, *res.Record)
			if len(batch) >= pw.config.BatchSize {
				flush()
			}
		}

		if n := pw.visited.Load(); n > 0 && n%progressEvery == 0 && res.Err == nil {
			logging.Info("Index progress: %d nodes visited, %d written, %d errors",
				n, pw.written.Load()+int64(len(batch)), pw.errs.Load())
		}
		if pw.progress != nil {
			pw.progress(pw.Stats())
		}
	}
	flush()
}

// Stats returns current processing statistics
func (pw *ParallelWalker) Stats() WalkStats {
	return WalkStats{
		Visited:   pw.visited.Load(),
		Written:   pw.written.Load(),
		Unchanged: pw.unchanged.Load(),
		Errors:    pw.errs.Load(),
	}
}
