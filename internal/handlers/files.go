package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/mediatypes"
	"virtual-drive/internal/thumbnail"
)

// MkdirRequest creates Name inside the directory with fingerprint Parent.
type MkdirRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name"`
}

// CreateDirectory makes a new directory and indexes it.
func (h *Handlers) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	var req MkdirRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	parent, err := h.indexer.ResolveDirectory(r.Context(), req.Parent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.indexer.CreateDirectory(r.Context(), parent.Path, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

// RenameRequest renames the entry at Path to NewName in the same directory.
type RenameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"newName"`
}

// Rename renames a file or directory and moves its index records along.
func (h *Handlers) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.indexer.Rename(r.Context(), req.Path, req.NewName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

// DeleteResponse reports how many index records a delete removed.
type DeleteResponse struct {
	Path    string `json:"path"`
	Removed int64  `json:"removed"`
}

// Delete removes ?path= from disk and drops its records. Deleting a link
// never touches the content it points at.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	path, err := requireParam(r, "path")
	if err != nil {
		writeError(w, r, err)
		return
	}

	removed, err := h.indexer.Remove(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, DeleteResponse{Path: path, Removed: removed})
}

// fileFor picks a live file record carrying fp.
func (h *Handlers) fileFor(r *http.Request, fp string) (*database.FileRecord, error) {
	recs, err := h.indexer.ResolveRecords(r.Context(), fp)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if !recs[i].IsDir() {
			return &recs[i], nil
		}
	}
	return nil, &indexer.Error{Op: "download", Path: fp, Kind: indexer.ErrInvalidArgument, Err: errors.New("fingerprint names a directory")}
}

// Download serves the content addressed by {fingerprint}. Range requests
// are honored. ?download=1 asks the browser to save rather than display.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	fp := mux.Vars(r)["fingerprint"]
	rec, err := h.fileFor(r, fp)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := filesystem.OpenWithRetry(rec.Path, filesystem.DefaultRetryConfig())
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "download", Path: rec.Path, Kind: indexer.ErrIO, Err: err})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(rec.Name)))
	w.Header().Set("ETag", `"`+fp+`"`)
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.Name}))
	}
	http.ServeContent(w, r, rec.Name, rec.ModTime, f)
}

// GetThumbnail serves a JPEG preview of the image or video {fingerprint}.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	if !h.thumbs.IsEnabled() {
		writeJSONError(w, "thumbnails disabled", "unavailable", http.StatusServiceUnavailable)
		return
	}

	fp := mux.Vars(r)["fingerprint"]
	rec, err := h.fileFor(r, fp)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := h.thumbs.Get(r.Context(), rec.Path, fp, rec.MediaType)
	if err != nil {
		if errors.Is(err, thumbnail.ErrUnsupported) {
			writeJSONError(w, err.Error(), "unsupported", http.StatusBadRequest)
			return
		}
		if errors.Is(err, thumbnail.ErrBusy) {
			w.Header().Set("Retry-After", "5")
			writeJSONError(w, err.Error(), "busy", http.StatusServiceUnavailable)
			return
		}
		logging.Error("Thumbnail generation failed for %s: %v", rec.Path, err)
		writeJSONError(w, "failed to generate thumbnail", "thumbnail_failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("ETag", `"`+fp+`"`)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Thumbnail write for %s aborted: %v", fp, err)
	}
}
