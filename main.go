package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"virtual-drive/internal/database"
	"virtual-drive/internal/dedup"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/fingerprint"
	"virtual-drive/internal/handlers"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/memory"
	"virtual-drive/internal/metrics"
	"virtual-drive/internal/middleware"
	"virtual-drive/internal/startup"
	"virtual-drive/internal/thumbnail"
)

const metricsInterval = time.Minute

func main() {
	startTime := time.Now()

	// Size the heap to the container before anything large is allocated
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Filesystem metrics are labeled by volume
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes(config)))
	metrics.InitializeMetrics(config.Roots)

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize thumbnails
	startup.LogThumbnailInit(config.ThumbnailsEnabled)
	thumbs := thumbnail.NewGenerator(config.ThumbnailDir, config.ThumbnailsEnabled)
	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()
	defer memMonitor.Stop()
	thumbs.SetGate(memMonitor)

	// Initialize indexer
	startup.LogIndexerInit(config)
	walker := indexer.DefaultParallelWalkerConfig()
	walker.NumWorkers = config.IndexWorkers
	walker.SkipHidden = config.SkipHidden
	idx := indexer.New(db, indexer.Config{
		Roots: config.Roots,
		Fingerprint: fingerprint.Options{
			Threshold: config.SketchThreshold,
			BlockSize: config.SketchBlockSize,
			Retry:     filesystem.DefaultRetryConfig(),
		},
		Walker:        walker,
		IndexInterval: config.IndexInterval,
		ScanInterval:  config.ScanInterval,
	})

	// Start indexer in background (non-blocking)
	go func() {
		if err := idx.Start(); err != nil {
			logging.Error("Failed to start indexer: %v", err)
		}
	}()
	startup.LogIndexerStarted()

	svc := dedup.New(idx, db, dedup.Options{MaxUploadSize: config.MaxUploadSize})

	// Metrics collector and server
	var (
		collector  *metrics.Collector
		metricsSrv *http.Server
	)
	if config.MetricsEnabled {
		collector = metrics.NewCollector(storeStats(db), metricsInterval)
		collector.Start()
		metricsSrv = startMetricsServer(config.MetricsPort)
	}

	// Initialize handlers
	h := handlers.New(db, idx, svc, thumbs, config)

	// Setup router
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Create server
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	// Start graceful shutdown handler
	done := make(chan struct{})
	go handleShutdown(srv, metricsSrv, idx, collector, done)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// volumes names each mounted root by its base name plus the cache and
// database directories, for filesystem metric labels.
func volumes(config *startup.Config) map[string]string {
	v := map[string]string{
		"cache":    config.CacheDir,
		"database": config.DatabaseDir,
	}
	for _, root := range config.Roots {
		v[root] = root
	}
	return v
}

// storeStats adapts the index store to the metrics collector.
func storeStats(db *database.Database) metrics.StatsProvider {
	return metrics.StatsProviderFunc(func(ctx context.Context) (metrics.Snapshot, error) {
		stats, err := db.GetStats(ctx)
		if err != nil {
			return metrics.Snapshot{}, err
		}
		snap := metrics.Snapshot{
			RecordsByType: make(map[string]int64, len(stats.ByMediaType)),
			TotalBytes:    stats.TotalBytes,
			DBFileSizes:   db.FileSizes(),
		}
		for t, n := range stats.ByMediaType {
			snap.RecordsByType[string(t)] = n
		}
		return snap, nil
	})
}

func startMetricsServer(port string) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           serveMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, idx *indexer.Indexer, collector *metrics.Collector, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	if collector != nil {
		collector.Stop()
	}
	if metricsSrv != nil {
		startup.LogShutdownStep("Stopping metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
