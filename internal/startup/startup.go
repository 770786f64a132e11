package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// ErrNestedRoots is returned when one mounted root lies inside another.
var ErrNestedRoots = errors.New("mounted directories must not nest")

// Config holds all application configuration. It is read once at startup
// and never mutated afterwards.
type Config struct {
	Roots           []string
	CacheDir        string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	IndexInterval   time.Duration
	ScanInterval    time.Duration
	IndexWorkers    int
	SketchThreshold int64
	SketchBlockSize int64
	MaxUploadSize   int64
	CountDirSize    bool
	SkipHidden      bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string
	ThumbnailDir string

	// Feature flags based on directory availability
	ThumbnailsEnabled bool
}

// RootFor returns the mounted root that owns path.
func (c *Config) RootFor(path string) (string, bool) {
	return filesystem.RootFor(c.Roots, path)
}

// Defaults used when a variable is unset or unparsable.
const (
	defaultIndexInterval = 6 * time.Hour
	defaultScanInterval  = time.Hour
	defaultSketchSize    = 2 << 20
	defaultMaxUpload     = 4 << 30
	maxIndexWorkers      = 16
)

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Section("CONFIGURATION")

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	logging.Info("  MOUNTED_DIRS:        %s", strings.Join(config.Roots, ", "))
	logging.Info("  CACHE_DIR:           %s", config.CacheDir)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  INDEX_INTERVAL:      %s", config.IndexInterval)
	logging.Info("  SCAN_INTERVAL:       %s", config.ScanInterval)
	logging.Info("  INDEX_WORKERS:       %d", config.IndexWorkers)
	logging.Info("  SKETCH_THRESHOLD:    %s", humanize.IBytes(uint64(config.SketchThreshold)))
	logging.Info("  SKETCH_BLOCK_SIZE:   %s", humanize.IBytes(uint64(config.SketchBlockSize)))
	logging.Info("  MAX_UPLOAD_SIZE:     %s", humanize.IBytes(uint64(config.MaxUploadSize)))
	logging.Info("  COUNT_DIR_SIZE:      %v", config.CountDirSize)
	logging.Info("  SKIP_HIDDEN:         %v", config.SkipHidden)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Section("DIRECTORY SETUP")

	for _, root := range config.Roots {
		// Mounted roots are checked but never created.
		if err := checkRoot(root); err != nil {
			logging.Warn("  Mounted directory issue (%s): %v", root, err)
		}
	}

	if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(config.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	config.ThumbnailsEnabled = setupOptionalDir(config.ThumbnailDir, "thumbnails")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Thumbnails:  %s", enabledString(config.ThumbnailsEnabled))
	logging.Info("    Dir sizes:   %s", enabledString(config.CountDirSize))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// configFromEnv parses the environment without touching the filesystem.
func configFromEnv() (*Config, error) {
	roots, err := ParseRoots(getEnv("MOUNTED_DIRS", "/drive"))
	if err != nil {
		return nil, err
	}

	cacheDir, err := filepath.Abs(getEnv("CACHE_DIR", "/cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	databaseDir, err := filepath.Abs(getEnv("DATABASE_DIR", "/database"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	config := &Config{
		Roots:           roots,
		CacheDir:        cacheDir,
		DatabaseDir:     databaseDir,
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		IndexInterval:   getEnvDuration("INDEX_INTERVAL", defaultIndexInterval),
		ScanInterval:    getEnvDuration("SCAN_INTERVAL", defaultScanInterval),
		IndexWorkers:    workers.ForIO(maxIndexWorkers),
		SketchThreshold: getEnvBytes("SKETCH_THRESHOLD", defaultSketchSize),
		SketchBlockSize: getEnvBytes("SKETCH_BLOCK_SIZE", defaultSketchSize),
		MaxUploadSize:   getEnvBytes("MAX_UPLOAD_SIZE", defaultMaxUpload),
		CountDirSize:    getEnvBool("COUNT_DIR_SIZE", false),
		SkipHidden:      getEnvBool("SKIP_HIDDEN", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
		DatabasePath:    filepath.Join(databaseDir, "index.db"),
		ThumbnailDir:    filepath.Join(cacheDir, "thumbnails"),
	}
	return config, nil
}

// ParseRoots splits a list of mounted directories on the path list
// separator or commas, makes each absolute, drops duplicates and rejects
// roots nested inside one another.
func ParseRoots(value string) ([]string, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == os.PathListSeparator || r == ','
	})

	seen := make(map[string]bool, len(fields))
	roots := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve mounted directory %q: %w", f, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		roots = append(roots, abs)
	}
	if len(roots) == 0 {
		return nil, errors.New("MOUNTED_DIRS names no directories")
	}

	sort.Strings(roots)
	for i, a := range roots {
		for _, b := range roots[i+1:] {
			if filesystem.Within(a, b) {
				return nil, fmt.Errorf("%w: %s contains %s", ErrNestedRoots, a, b)
			}
		}
	}
	return roots, nil
}

func checkRoot(path string) error {
	logging.Debug("  Checking mounted directory: %s", path)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			fileCount, dirCount := 0, 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}
	logging.Info("  [OK] %s", path)
	return nil
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Section("DATABASE INITIALIZATION")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogThumbnailInit logs thumbnail generator initialization and checks FFmpeg
func LogThumbnailInit(enabled bool) {
	logging.Info("")
	logging.Section("THUMBNAIL INITIALIZATION")

	if !enabled {
		logging.Info("  Thumbnails disabled (cache directory not writable)")
		return
	}

	if err := checkFFmpeg(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video thumbnails will not be available")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
}

// LogIndexerInit logs indexer initialization
func LogIndexerInit(config *Config) {
	logging.Info("")
	logging.Section("INDEXER INITIALIZATION")
	logging.Info("  Roots:          %s", strings.Join(config.Roots, ", "))
	logging.Info("  Index interval: %v", config.IndexInterval)
	logging.Info("  Scan interval:  %v", config.ScanInterval)
	logging.Info("  Workers:        %d", config.IndexWorkers)
	logging.Info("  Starting indexer...")
}

// LogIndexerStarted logs successful indexer start
func LogIndexerStarted() {
	logging.Info("  [OK] Indexer started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 __     ___      _               _   ____       _
 \ \   / (_)_ __| |_ _   _  __ _| | |  _ \ _ __(_)_   _____
  \ \ / /| | '__| __| | | |/ _' | | | | | | '__| \ \ / / _ \
   \ V / | | |  | |_| |_| | (_| | | | |_| | |  | |\ V /  __/
    \_/  |_|_|   \__|\__,_|\__,_|_| |____/|_|  |_| \_/ \___|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvBytes accepts plain byte counts and humanized sizes ("2MiB", "4 GB").
func getEnvBytes(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := humanize.ParseBytes(value)
	if err != nil || parsed == 0 {
		logging.Warn("Invalid size for %s: %q, using default: %s", key, value, humanize.IBytes(uint64(defaultValue)))
		return defaultValue
	}
	return int64(parsed)
}
