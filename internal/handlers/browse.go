package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"virtual-drive/internal/database"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/mediatypes"
)

// Listing is one page of a directory, reconciled against disk first.
type Listing struct {
	Directory *database.FileRecord    `json:"directory,omitempty"`
	Reconcile *indexer.ReconcileStats `json:"reconcile,omitempty"`
	*database.SearchResult
}

// ListDirectory reconciles the requested directory with disk and returns
// a page of its children, directories first. The directory is named by
// ?path= or by its fingerprint in ?dir=. Without either it lists the
// mounted roots.
func (h *Handlers) ListDirectory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := listOptions(r)

	path := r.URL.Query().Get("path")
	if fp := r.URL.Query().Get("dir"); fp != "" && path == "" {
		rec, err := h.indexer.ResolveDirectory(ctx, fp)
		if err != nil {
			writeError(w, r, err)
			return
		}
		path = rec.Path
	}
	if path == "" {
		roots := h.indexer.Roots()
		if len(roots) != 1 {
			h.listRoots(w, r, roots)
			return
		}
		path = roots[0]
	}

	stats, err := h.indexer.IndexDirectory(ctx, path)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dir, err := h.db.Get(ctx, stats.Dir)
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "list", Path: stats.Dir, Kind: indexer.ErrStore, Err: err})
		return
	}

	opts.Parent = stats.Dir
	if t, ok := mediatypes.Parse(r.URL.Query().Get("type")); ok {
		opts.Types = []mediatypes.FileType{t}
	}
	page, err := h.db.Search(ctx, opts)
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "list", Path: stats.Dir, Kind: indexer.ErrStore, Err: err})
		return
	}

	writeJSON(w, Listing{Directory: dir, Reconcile: &stats, SearchResult: page})
}

func (h *Handlers) listRoots(w http.ResponseWriter, r *http.Request, roots []string) {
	items := make([]database.FileRecord, 0, len(roots))
	for _, root := range roots {
		rec, err := h.indexer.IndexPath(r.Context(), root)
		if err != nil {
			writeError(w, r, err)
			return
		}
		items = append(items, *rec)
	}
	writeJSON(w, Listing{SearchResult: &database.SearchResult{
		Items:      items,
		Page:       1,
		PageSize:   len(items),
		TotalItems: len(items),
		TotalPages: 1,
	}})
}

// ResolveResponse pairs a path with its fingerprint.
type ResolveResponse struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
}

// ResolveFingerprint returns the fingerprint of ?path=, indexing it if needed.
func (h *Handlers) ResolveFingerprint(w http.ResponseWriter, r *http.Request) {
	path, err := requireParam(r, "path")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fp, err := h.indexer.ResolveFingerprint(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, ResolveResponse{Path: path, Fingerprint: fp})
}

// PathsResponse lists every live path carrying one fingerprint.
type PathsResponse struct {
	Fingerprint string   `json:"fingerprint"`
	Paths       []string `json:"paths"`
}

// ResolvePaths returns the live paths for {fingerprint}.
func (h *Handlers) ResolvePaths(w http.ResponseWriter, r *http.Request) {
	fp := mux.Vars(r)["fingerprint"]
	paths, err := h.indexer.ResolvePaths(r.Context(), fp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, PathsResponse{Fingerprint: fp, Paths: paths})
}

// Search matches ?q= against entry names across the index, optionally
// restricted by ?root= and ?type=.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	opts := listOptions(r)
	opts.Query = r.URL.Query().Get("q")
	opts.Root = r.URL.Query().Get("root")
	if t := r.URL.Query().Get("type"); t != "" {
		ft, ok := mediatypes.Parse(t)
		if !ok {
			writeJSONError(w, "unknown type "+strconv.Quote(t), "invalid_argument", http.StatusBadRequest)
			return
		}
		opts.Types = []mediatypes.FileType{ft}
	}

	if opts.Query == "" && len(opts.Types) == 0 {
		writeJSON(w, database.SearchResult{Items: []database.FileRecord{}, Page: 1, PageSize: opts.PageSize})
		return
	}

	result, err := h.db.Search(r.Context(), opts)
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "search", Kind: indexer.ErrStore, Err: err})
		return
	}
	writeJSON(w, result)
}

// SearchByType lists every file of {type}. "documents" covers text, word,
// excel and ppt.
func (h *Handlers) SearchByType(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["type"]
	ft, ok := mediatypes.Parse(name)
	if !ok {
		writeJSONError(w, "unknown type "+strconv.Quote(name), "invalid_argument", http.StatusBadRequest)
		return
	}

	opts := listOptions(r)
	opts.Types = []mediatypes.FileType{ft}
	opts.Root = r.URL.Query().Get("root")

	result, err := h.db.Search(r.Context(), opts)
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "search by type", Kind: indexer.ErrStore, Err: err})
		return
	}
	writeJSON(w, result)
}

// Recent returns the most recently modified files.
func (h *Handlers) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	recs, err := h.db.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "recent", Kind: indexer.ErrStore, Err: err})
		return
	}
	if recs == nil {
		recs = []database.FileRecord{}
	}
	writeJSON(w, recs)
}
