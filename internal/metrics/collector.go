package metrics

import (
	"context"
	"time"

	"virtual-drive/internal/logging"
)

// Snapshot is the index state the collector publishes as gauges.
type Snapshot struct {
	RecordsByType map[string]int64
	TotalBytes    int64
	DBFileSizes   map[string]int64
}

// StatsProvider supplies snapshots. The index store is adapted to it in main
// so this package does not import the store.
type StatsProvider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// StatsProviderFunc adapts a function to StatsProvider.
type StatsProviderFunc func(ctx context.Context) (Snapshot, error)

// Snapshot calls f.
func (f StatsProviderFunc) Snapshot(ctx context.Context) (Snapshot, error) {
	return f(ctx)
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := c.statsProvider.Snapshot(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	for t, n := range snap.RecordsByType {
		IndexRecordsTotal.WithLabelValues(t).Set(float64(n))
	}
	IndexBytesTotal.Set(float64(snap.TotalBytes))
	for file, size := range snap.DBFileSizes {
		DBSizeBytes.WithLabelValues(file).Set(float64(size))
	}
}
