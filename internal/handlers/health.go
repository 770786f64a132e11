package handlers

import (
	"net/http"
	"runtime"
	"time"

	"virtual-drive/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string   `json:"status"`
	Ready             bool     `json:"ready"`
	Version           string   `json:"version"`
	Uptime            string   `json:"uptime"`
	Indexing          bool     `json:"indexing"`
	Scanning          bool     `json:"scanning"`
	LastIndexed       string   `json:"lastIndexed,omitempty"`
	LastScanned       string   `json:"lastScanned,omitempty"`
	InitialIndexError string   `json:"initialIndexError,omitempty"`
	NodesVisited      int64    `json:"nodesVisited"`
	Roots             []string `json:"roots"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Index summary
	TotalFiles       int64 `json:"totalFiles,omitempty"`
	TotalDirectories int64 `json:"totalDirectories,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	hs := h.indexer.GetHealthStatus()

	response := HealthResponse{
		Ready:        hs.Ready,
		Version:      startup.Version,
		Uptime:       hs.Uptime,
		Indexing:     hs.Indexing,
		Scanning:     hs.Scanning,
		NodesVisited: hs.NodesVisited,
		Roots:        hs.Roots,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	switch {
	case hs.InitialIndexError != "":
		response.Status = statusDegraded
		response.InitialIndexError = hs.InitialIndexError
	case hs.Ready:
		response.Status = statusHealthy
	default:
		response.Status = statusStarting
	}

	if !hs.LastIndexed.IsZero() {
		response.LastIndexed = hs.LastIndexed.Format(time.RFC3339)
	}
	if !hs.LastScanned.IsZero() {
		response.LastScanned = hs.LastScanned.Format(time.RFC3339)
	}

	if stats, err := h.db.GetStats(r.Context()); err == nil {
		response.TotalFiles = stats.Files
		response.TotalDirectories = stats.Directories
	}

	status := http.StatusOK
	if !hs.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the initial index has made progress
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsReady() {
		writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
