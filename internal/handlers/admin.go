package handlers

import (
	"net/http"
)

// TriggerReindex starts a background ReindexAll. ?full=false runs an
// incremental IndexAll instead.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, r *http.Request) {
	full := r.URL.Query().Get("full") != "false"
	if h.indexer.IsIndexing() {
		writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "already_running"})
		return
	}
	h.indexer.TriggerIndex(full)
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// TriggerScan starts a background scan for stale database rows.
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	h.indexer.TriggerScan()
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "started"})
}
