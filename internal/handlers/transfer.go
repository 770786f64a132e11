package handlers

import (
	"net/http"
	"strconv"

	"virtual-drive/internal/database"
	"virtual-drive/internal/dedup"
)

// FlashTransferRequest asks for content already on the server to appear in
// a directory.
type FlashTransferRequest struct {
	TargetDir   string `json:"targetDir"`
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name,omitempty"`
}

// FlashTransfer links existing content into a directory without copying.
// A 404 with code source_missing tells the client to upload instead.
func (h *Handlers) FlashTransfer(w http.ResponseWriter, r *http.Request) {
	var req FlashTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.dedup.FlashTransfer(r.Context(), req.TargetDir, req.Fingerprint, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Created {
		writeJSONStatus(w, http.StatusCreated, res)
		return
	}
	writeJSON(w, res)
}

// FlashBackupRequest asks for content to be linked into the backup tree of
// one device.
type FlashBackupRequest struct {
	Folder      string `json:"folder"`
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name"`
	Device      string `json:"device,omitempty"`
}

// FlashBackup links existing content into <folder>/Backups/From <device>/...
func (h *Handlers) FlashBackup(w http.ResponseWriter, r *http.Request) {
	var req FlashBackupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.dedup.FlashBackup(r.Context(), req.Folder, req.Fingerprint, req.Name, req.Device)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Created {
		writeJSONStatus(w, http.StatusCreated, res)
		return
	}
	writeJSON(w, res)
}

// Upload stores the raw request body as ?name= inside the directory ?dir=
// (a directory fingerprint). With ?device= set the file goes into that
// device's backup tree below dir instead.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	dir, err := requireParam(r, "dir")
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, err := requireParam(r, "name")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rec *database.FileRecord
	if device := r.URL.Query().Get("device"); device != "" {
		rec, err = h.dedup.UploadBackup(r.Context(), dir, name, device, r.Body)
	} else {
		rec, err = h.dedup.Upload(r.Context(), dir, name, r.Body)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

// DuplicatesResponse is the duplicate report.
type DuplicatesResponse struct {
	Groups           []dedup.DuplicateGroup `json:"groups"`
	ReclaimableBytes int64                  `json:"reclaimableBytes"`
}

// FindDuplicates reports content stored under more than one path.
// ?live=true drops paths gone from disk; ?minSize= skips small files.
func (h *Handlers) FindDuplicates(w http.ResponseWriter, r *http.Request) {
	opts := dedup.ReportOptions{}
	if live, err := strconv.ParseBool(r.URL.Query().Get("live")); err == nil {
		opts.LiveOnly = live
	}
	if size, err := strconv.ParseInt(r.URL.Query().Get("minSize"), 10, 64); err == nil && size > 0 {
		opts.MinSize = size
	}

	groups, err := h.dedup.FindDuplicates(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := DuplicatesResponse{Groups: groups}
	for _, g := range groups {
		resp.ReclaimableBytes += g.ReclaimableBytes
	}
	writeJSON(w, resp)
}
