package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// Config holds the pressure thresholds as fractions of the limit.
type Config struct {
	// Limit is the heap budget in bytes. Zero uses GOMEMLIMIT.
	Limit             int64
	HighWaterMark     float64
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultConfig returns the thresholds used by the server.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor tracks heap allocation against the limit.
type Monitor struct {
	config   Config
	limit    int64
	stopChan chan struct{}
	stopOnce sync.Once
	readHeap func() uint64

	mu       sync.RWMutex
	current  uint64
	isPaused bool
	// resumed is closed and replaced each time a pause ends.
	resumed chan struct{}
}

// NewMonitor creates a monitor. Without a limit it never reports pressure.
func NewMonitor(config Config) *Monitor {
	limit := config.Limit
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, backpressure disabled")
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		stopChan: make(chan struct{}),
		readHeap: heapAlloc,
		resumed:  make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start samples memory every CheckInterval until Stop.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop ends sampling and releases any waiters.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) check() {
	alloc := m.readHeap()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case usage >= m.config.CriticalWaterMark && !m.isPaused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing thumbnail generation", usage*100)
		m.isPaused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.isPaused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming", usage*100)
		m.isPaused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumed)
		m.resumed = make(chan struct{})
	}
}

// IsPaused reports whether allocation is above the critical water mark.
func (m *Monitor) IsPaused() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

// WaitIfPaused blocks while paused. It returns ctx.Err() if ctx ends first
// and context.Canceled once the monitor is stopped.
func (m *Monitor) WaitIfPaused(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	if !m.isPaused {
		m.mu.RUnlock()
		return nil
	}
	resumed := m.resumed
	m.mu.RUnlock()

	select {
	case <-resumed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopChan:
		return context.Canceled
	}
}

// Usage returns the last sampled allocation as a fraction of the limit.
func (m *Monitor) Usage() float64 {
	if m == nil || m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
