package indexer

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/fingerprint"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

const (
	// Minimum nodes visited before marking the server as ready
	minNodesForReady = 100

	defaultIndexInterval = 6 * time.Hour
	defaultScanInterval  = 1 * time.Hour
)

// Config is fixed for the lifetime of an Indexer.
type Config struct {
	// Roots are the mounted root directories, absolute and clean.
	Roots       []string
	Fingerprint fingerprint.Options
	Walker      ParallelWalkerConfig
	// IndexInterval is the period of the background full index. Zero uses the default.
	IndexInterval time.Duration
	// ScanInterval is the period of the background garbage-collection pass.
	ScanInterval time.Duration
}

// Indexer reconciles the index store against the mounted roots.
type Indexer struct {
	store  Store
	config Config
	retry  filesystem.RetryConfig

	// dirFlight serializes reconciliation per directory path.
	dirFlight singleflight.Group

	stopChan chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	initialIndexComplete bool
	initialIndexError    error
	startTime            time.Time

	scanning     atomic.Bool
	lastScanTime atomic.Value // time.Time

	// Progress tracking
	nodesVisited  atomic.Int64
	indexProgress atomic.Value
}

// IndexProgress tracks the current full index
type IndexProgress struct {
	Visited    int64     `json:"visited"`
	Written    int64     `json:"written"`
	Errors     int64     `json:"errors"`
	IsIndexing bool      `json:"isIndexing"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool           `json:"ready"`
	Indexing          bool           `json:"indexing"`
	Scanning          bool           `json:"scanning"`
	StartTime         time.Time      `json:"startTime"`
	Uptime            string         `json:"uptime"`
	LastIndexed       time.Time      `json:"lastIndexed,omitempty"`
	LastScanned       time.Time      `json:"lastScanned,omitempty"`
	InitialIndexError string         `json:"initialIndexError,omitempty"`
	NodesVisited      int64          `json:"nodesVisited"`
	Roots             []string       `json:"roots"`
	IndexProgress     *IndexProgress `json:"indexProgress,omitempty"`
}

// New creates an Indexer over store. Roots are cleaned; nothing runs until
// Start or one of the index methods is called.
func New(store Store, config Config) *Indexer {
	roots := make([]string, 0, len(config.Roots))
	for _, r := range config.Roots {
		roots = append(roots, filepath.Clean(r))
	}
	config.Roots = roots
	if config.IndexInterval <= 0 {
		config.IndexInterval = defaultIndexInterval
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = defaultScanInterval
	}
	if config.Walker == (ParallelWalkerConfig{}) {
		config.Walker = DefaultParallelWalkerConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	idx := &Indexer{
		store:     store,
		config:    config,
		retry:     config.Fingerprint.Retry,
		stopChan:  make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	if idx.retry == (filesystem.RetryConfig{}) {
		idx.retry = filesystem.DefaultRetryConfig()
		idx.config.Fingerprint.Retry = idx.retry
	}
	idx.indexProgress.Store(IndexProgress{})
	idx.lastScanTime.Store(time.Time{})
	return idx
}

// Roots returns the mounted roots.
func (idx *Indexer) Roots() []string {
	return append([]string(nil), idx.config.Roots...)
}

// RootFor returns the mounted root containing path.
func (idx *Indexer) RootFor(path string) (string, bool) {
	return filesystem.RootFor(idx.config.Roots, path)
}

// Start runs the initial full index and garbage-collection pass in the
// background, then repeats both on their intervals until Stop.
func (idx *Indexer) Start() error {
	go func() {
		logging.Info("Starting initial index in background...")
		if _, err := idx.IndexAll(idx.ctx); err != nil {
			logging.Error("Initial index error: %v", err)
			idx.indexMu.Lock()
			idx.initialIndexError = err
			idx.indexMu.Unlock()
			return
		}
		if _, err := idx.ScanDatabaseRows(idx.ctx); err != nil {
			logging.Error("Initial scan error: %v", err)
		}
	}()

	go idx.periodic("index", idx.config.IndexInterval, func() error {
		_, err := idx.IndexAll(idx.ctx)
		return err
	})
	go idx.periodic("scan", idx.config.ScanInterval, func() error {
		_, err := idx.ScanDatabaseRows(idx.ctx)
		return err
	})

	return nil
}

// Stop cancels any running walk and ends the background loops. The store is
// left valid; a later run resumes the work.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() {
		close(idx.stopChan)
		idx.cancel()
	})
}

func (idx *Indexer) periodic(name string, interval time.Duration, run func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic %s triggered", name)
			if err := run(); err != nil && idx.ctx.Err() == nil {
				logging.Error("Periodic %s failed: %v", name, err)
			}
		case <-idx.stopChan:
			return
		}
	}
}

// TriggerIndex starts a full index in the background. With reindex set the
// store is cleared first.
func (idx *Indexer) TriggerIndex(reindex bool) {
	go func() {
		var err error
		if reindex {
			_, err = idx.ReindexAll(idx.ctx)
		} else {
			_, err = idx.IndexAll(idx.ctx)
		}
		if err != nil {
			logging.Error("Manually triggered index failed: %v", err)
		}
	}()
}

// TriggerScan starts a garbage-collection pass in the background.
func (idx *Indexer) TriggerScan() {
	go func() {
		if _, err := idx.ScanDatabaseRows(idx.ctx); err != nil {
			logging.Error("Manually triggered scan failed: %v", err)
		}
	}()
}

// IndexAll walks every mounted root and writes nodes that are new or changed.
// On an unchanged tree it performs no writes. Records for vanished paths are
// left to ScanDatabaseRows. If a full index is already running it returns
// immediately.
func (idx *Indexer) IndexAll(ctx context.Context) (WalkStats, error) {
	return idx.runFull(ctx, false)
}

// ReindexAll clears the store and indexes every root from scratch.
func (idx *Indexer) ReindexAll(ctx context.Context) (WalkStats, error) {
	return idx.runFull(ctx, true)
}

func (idx *Indexer) runFull(ctx context.Context, clear bool) (WalkStats, error) {
	if !idx.tryStartIndexing() {
		logging.Info("Index already in progress, skipping...")
		return WalkStats{}, nil
	}

	kind := "full"
	metrics.IndexerIsRunning.Set(1)
	metrics.IndexerRunsTotal.WithLabelValues(kind).Inc()

	startTime := time.Now()
	idx.indexProgress.Store(IndexProgress{IsIndexing: true, StartedAt: startTime})

	var (
		stats WalkStats
		err   error
	)
	defer func() {
		metrics.IndexerIsRunning.Set(0)
		idx.finishIndexing(stats, err)
	}()

	if clear {
		logging.Info("Clearing index for full reindex")
		if err = idx.store.Clear(ctx); err != nil {
			err = storeError("reindex", "", err)
			return stats, err
		}
	}

	starts := make([]walkStart, 0, len(idx.config.Roots))
	for _, root := range idx.config.Roots {
		starts = append(starts, walkStart{path: root, root: root})
	}

	logging.Info("Starting full index of %d roots with %d workers",
		len(starts), idx.config.Walker.NumWorkers)

	walker := NewParallelWalker(idx, idx.config.Walker)
	walker.progress = func(s WalkStats) {
		idx.nodesVisited.Store(s.Visited)
		idx.indexProgress.Store(IndexProgress{
			Visited:    s.Visited,
			Written:    s.Written,
			Errors:     s.Errors,
			IsIndexing: true,
			StartedAt:  startTime,
		})
	}

	stats, err = walker.Walk(ctx, starts)
	metrics.IndexerNodesVisited.Add(float64(stats.Visited))

	duration := time.Since(startTime)
	if err != nil {
		logging.Warn("Index interrupted after %v: %d visited, %d written: %v",
			duration, stats.Visited, stats.Written, err)
		return stats, err
	}

	if tsErr := idx.store.SetTimestamp(ctx, database.MetaLastIndex, time.Now()); tsErr != nil {
		logging.Warn("Failed to record index time: %v", tsErr)
	}
	metrics.IndexerLastRunTimestamp.WithLabelValues(kind).Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.WithLabelValues(kind).Set(duration.Seconds())

	logging.Info("Index complete: %d visited, %d written, %d unchanged, %d errors in %v",
		stats.Visited, stats.Written, stats.Unchanged, stats.Errors, duration)
	return stats, nil
}

// tryStartIndexing attempts to start indexing, returns false if already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// finishIndexing marks indexing as complete.
func (idx *Indexer) finishIndexing(stats WalkStats, err error) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	if err == nil {
		idx.initialIndexComplete = true
		idx.lastIndexTime = time.Now()
	}
	idx.indexProgress.Store(IndexProgress{
		Visited: stats.Visited,
		Written: stats.Written,
		Errors:  stats.Errors,
	})
}

// IsReady returns true if the server is ready to accept traffic.
func (idx *Indexer) IsReady() bool {
	if idx.nodesVisited.Load() >= minNodesForReady {
		return true
	}

	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// IsIndexing returns whether a full index is in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// GetProgress returns the current indexing progress.
func (idx *Indexer) GetProgress() IndexProgress {
	if progress, ok := idx.indexProgress.Load().(IndexProgress); ok {
		return progress
	}
	return IndexProgress{}
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	progress := idx.GetProgress()
	lastScan, _ := idx.lastScanTime.Load().(time.Time)

	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	status := HealthStatus{
		Ready:        idx.initialIndexComplete || idx.nodesVisited.Load() >= minNodesForReady,
		Indexing:     idx.isIndexing,
		Scanning:     idx.scanning.Load(),
		StartTime:    idx.startTime,
		Uptime:       time.Since(idx.startTime).Round(time.Second).String(),
		LastIndexed:  idx.lastIndexTime,
		LastScanned:  lastScan,
		NodesVisited: idx.nodesVisited.Load(),
		Roots:        idx.Roots(),
	}
	if idx.isIndexing {
		status.IndexProgress = &progress
	}
	if idx.initialIndexError != nil {
		status.InitialIndexError = idx.initialIndexError.Error()
	}
	return status
}
