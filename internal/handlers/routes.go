package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes attaches every API and health route to r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readyz")
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/list", h.ListDirectory).Methods(http.MethodGet).Name("list")
	api.HandleFunc("/resolve", h.ResolveFingerprint).Methods(http.MethodGet).Name("resolve")
	api.HandleFunc("/paths/{fingerprint}", h.ResolvePaths).Methods(http.MethodGet).Name("paths")
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet).Name("search")
	api.HandleFunc("/search/type/{type}", h.SearchByType).Methods(http.MethodGet).Name("searchByType")
	api.HandleFunc("/recent", h.Recent).Methods(http.MethodGet).Name("recent")
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet).Name("stats")
	api.HandleFunc("/duplicates", h.FindDuplicates).Methods(http.MethodGet).Name("duplicates")

	api.HandleFunc("/flash-transfer", h.FlashTransfer).Methods(http.MethodPost).Name("flashTransfer")
	api.HandleFunc("/flash-backup", h.FlashBackup).Methods(http.MethodPost).Name("flashBackup")
	api.HandleFunc("/upload", h.Upload).Methods(http.MethodPost, http.MethodPut).Name("upload")

	api.HandleFunc("/mkdir", h.CreateDirectory).Methods(http.MethodPost).Name("mkdir")
	api.HandleFunc("/rename", h.Rename).Methods(http.MethodPost).Name("rename")
	api.HandleFunc("/file", h.Delete).Methods(http.MethodDelete).Name("delete")
	api.HandleFunc("/file/{fingerprint}", h.Download).Methods(http.MethodGet, http.MethodHead).Name("download")
	api.HandleFunc("/thumbnail/{fingerprint}", h.GetThumbnail).Methods(http.MethodGet).Name("thumbnail")

	api.HandleFunc("/reindex", h.TriggerReindex).Methods(http.MethodPost).Name("reindex")
	api.HandleFunc("/scan", h.TriggerScan).Methods(http.MethodPost).Name("scan")
}
