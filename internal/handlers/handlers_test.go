package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"virtual-drive/internal/database"
	"virtual-drive/internal/dedup"
	"virtual-drive/internal/fingerprint"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/startup"
	"virtual-drive/internal/thumbnail"
)

type testServer struct {
	root   string
	db     *database.Database
	idx    *indexer.Indexer
	h      *Handlers
	router *mux.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	idx := indexer.New(db, indexer.Config{Roots: []string{root}, Fingerprint: fingerprint.DefaultOptions()})
	t.Cleanup(idx.Stop)

	config := &startup.Config{Roots: []string{root}}
	h := New(db, idx, dedup.New(idx, db, dedup.Options{MaxUploadSize: 1 << 20}), thumbnail.NewGenerator("", false), config)

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return &testServer{root: root, db: db, idx: idx, h: h, router: router}
}

func (s *testServer) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (s *testServer) indexAll(t *testing.T) {
	t.Helper()
	if _, err := s.idx.IndexAll(context.Background()); err != nil {
		t.Fatalf("IndexAll: %v", err)
	}
}

func (s *testServer) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(t *testing.T, target string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return s.do(http.MethodPost, target, bytes.NewReader(data))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if code != "" {
		if got := decode[ErrorResponse](t, rec); got.Code != code {
			t.Errorf("code = %q, want %q", got.Code, code)
		}
	}
}

func TestStatusFor(t *testing.T) {
	kinded := func(kind error) error {
		return fmt.Errorf("wrapped: %w", &indexer.Error{Op: "test", Kind: kind})
	}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"source missing", kinded(indexer.ErrSourceMissing), http.StatusNotFound, "source_missing"},
		{"not found", kinded(indexer.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", kinded(indexer.ErrConflict), http.StatusConflict, "conflict"},
		{"invalid", kinded(indexer.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"outside root", kinded(indexer.ErrOutsideRoot), http.StatusBadRequest, "outside_root"},
		{"transfer failed", kinded(indexer.ErrTransferFailed), http.StatusBadGateway, "transfer_failed"},
		{"io", kinded(indexer.ErrIO), http.StatusInternalServerError, "io_error"},
		{"store", kinded(indexer.ErrStore), http.StatusInternalServerError, "store_error"},
		{"canceled", fmt.Errorf("walk: %w", context.Canceled), http.StatusServiceUnavailable, "canceled"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("statusFor(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
			}
		})
	}
}

func TestListDirectory(t *testing.T) {
	s := newTestServer(t)
	s.write(t, "docs/a.txt", "a")
	s.write(t, "b.mp3", "bb")
	s.write(t, "c.jpg", "ccc")

	rec := s.do(http.MethodGet, "/api/list?path="+s.root, nil)
	expectStatus(t, rec, http.StatusOK, "")
	listing := decode[Listing](t, rec)

	if listing.Directory == nil || listing.Directory.Path != s.root {
		t.Fatalf("directory = %+v", listing.Directory)
	}
	if listing.Reconcile.Written != 4 {
		t.Errorf("reconcile wrote %d, want 4 (root and three children)", listing.Reconcile.Written)
	}
	names := make([]string, 0, len(listing.Items))
	for _, it := range listing.Items {
		names = append(names, it.Name)
	}
	if got := strings.Join(names, ","); got != "docs,b.mp3,c.jpg" {
		t.Errorf("items = %s, want directories first then by name", got)
	}

	// The same directory addressed by its fingerprint.
	rec = s.do(http.MethodGet, "/api/list?dir="+fingerprint.Directory(filepath.Join(s.root, "docs")), nil)
	expectStatus(t, rec, http.StatusOK, "")
	if listing := decode[Listing](t, rec); listing.TotalItems != 1 || listing.Items[0].Name != "a.txt" {
		t.Errorf("dir listing: %+v", listing.SearchResult)
	}
	expectStatus(t, s.do(http.MethodGet, "/api/list?dir="+fingerprint.Directory("/nowhere"), nil), http.StatusNotFound, "not_found")

	// The default path is the single mounted root.
	rec = s.do(http.MethodGet, "/api/list?type=audio", nil)
	expectStatus(t, rec, http.StatusOK, "")
	if listing := decode[Listing](t, rec); listing.TotalItems != 1 || listing.Items[0].Name != "b.mp3" {
		t.Errorf("type filter: %+v", listing.SearchResult)
	}
}

func TestListDirectoryErrors(t *testing.T) {
	s := newTestServer(t)
	file := s.write(t, "plain.txt", "x")

	expectStatus(t, s.do(http.MethodGet, "/api/list?path=/definitely/elsewhere", nil), http.StatusBadRequest, "outside_root")
	expectStatus(t, s.do(http.MethodGet, "/api/list?path="+filepath.Join(s.root, "missing"), nil), http.StatusNotFound, "not_found")
	expectStatus(t, s.do(http.MethodGet, "/api/list?path="+file, nil), http.StatusBadRequest, "invalid_argument")
}

func TestResolveAndPaths(t *testing.T) {
	s := newTestServer(t)
	a := s.write(t, "one/song.mp3", "same bytes")
	b := s.write(t, "two/song.mp3", "same bytes")
	s.indexAll(t)

	rec := s.do(http.MethodGet, "/api/resolve?path="+a, nil)
	expectStatus(t, rec, http.StatusOK, "")
	resolved := decode[ResolveResponse](t, rec)

	rec = s.do(http.MethodGet, "/api/paths/"+resolved.Fingerprint, nil)
	expectStatus(t, rec, http.StatusOK, "")
	paths := decode[PathsResponse](t, rec)
	sort.Strings(paths.Paths)
	if len(paths.Paths) != 2 || paths.Paths[0] != a || paths.Paths[1] != b {
		t.Errorf("paths = %v, want [%s %s]", paths.Paths, a, b)
	}

	expectStatus(t, s.do(http.MethodGet, "/api/resolve", nil), http.StatusBadRequest, "invalid_argument")
	expectStatus(t, s.do(http.MethodGet, "/api/paths/nothex", nil), http.StatusBadRequest, "invalid_argument")
	expectStatus(t, s.do(http.MethodGet, "/api/paths/"+strings.ToUpper(resolved.Fingerprint), nil), http.StatusBadRequest, "invalid_argument")
	expectStatus(t, s.do(http.MethodGet, "/api/paths/"+fingerprint.Directory("/none"), nil), http.StatusNotFound, "not_found")
}

func TestFlashTransferEndpoint(t *testing.T) {
	s := newTestServer(t)
	src := s.write(t, "media/clip.mp4", "video")
	gone := s.write(t, "media/gone.mp4", "gone soon")
	if err := os.MkdirAll(filepath.Join(s.root, "target"), 0o755); err != nil {
		t.Fatal(err)
	}
	s.indexAll(t)

	srcFp, err := s.idx.ResolveFingerprint(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	goneFp, err := s.idx.ResolveFingerprint(context.Background(), gone)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	target := fingerprint.Directory(filepath.Join(s.root, "target"))

	rec := s.postJSON(t, "/api/flash-transfer", FlashTransferRequest{TargetDir: target, Fingerprint: srcFp})
	expectStatus(t, rec, http.StatusCreated, "")
	res := decode[dedup.TransferResult](t, rec)
	if !res.Created || res.Path != filepath.Join(s.root, "target", "clip.mp4") {
		t.Errorf("result = %+v", res)
	}

	rec = s.postJSON(t, "/api/flash-transfer", FlashTransferRequest{TargetDir: target, Fingerprint: srcFp})
	expectStatus(t, rec, http.StatusOK, "")
	if res := decode[dedup.TransferResult](t, rec); res.Created {
		t.Error("repeated transfer reported Created")
	}

	expectStatus(t, s.postJSON(t, "/api/flash-transfer", FlashTransferRequest{TargetDir: target, Fingerprint: goneFp, Name: "x.mp4"}),
		http.StatusNotFound, "source_missing")
	expectStatus(t, s.postJSON(t, "/api/flash-transfer", FlashTransferRequest{TargetDir: target, Fingerprint: fingerprint.Directory("?"), Name: "x"}),
		http.StatusNotFound, "not_found")
	expectStatus(t, s.do(http.MethodPost, "/api/flash-transfer", strings.NewReader("{not json")), http.StatusBadRequest, "invalid_argument")
}

func TestFlashBackupEndpoint(t *testing.T) {
	s := newTestServer(t)
	src := s.write(t, "camera/photo.jpg", "jpeg bytes")
	s.indexAll(t)

	fp, err := s.idx.ResolveFingerprint(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	rec := s.postJSON(t, "/api/flash-backup", FlashBackupRequest{
		Folder:      fingerprint.Directory(s.root),
		Fingerprint: fp,
		Name:        "photo.jpg",
		Device:      "tablet",
	})
	expectStatus(t, rec, http.StatusCreated, "")
	res := decode[dedup.TransferResult](t, rec)
	if want := filepath.Join(s.root, "Backups", "From tablet", "Images", "photo.jpg"); res.Path != want {
		t.Errorf("path = %s, want %s", res.Path, want)
	}
}

func TestUploadEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.indexAll(t)
	dir := fingerprint.Directory(s.root)

	rec := s.do(http.MethodPost, "/api/upload?dir="+dir+"&name=notes.txt", strings.NewReader("hello"))
	expectStatus(t, rec, http.StatusCreated, "")
	up := decode[database.FileRecord](t, rec)
	if up.Path != filepath.Join(s.root, "notes.txt") || up.Size != 5 {
		t.Errorf("record = %+v", up)
	}

	expectStatus(t, s.do(http.MethodPost, "/api/upload?dir="+dir+"&name=notes.txt", strings.NewReader("again")), http.StatusConflict, "conflict")
	expectStatus(t, s.do(http.MethodPost, "/api/upload?dir="+dir, strings.NewReader("x")), http.StatusBadRequest, "invalid_argument")
	expectStatus(t, s.do(http.MethodPost, "/api/upload?dir="+dir+"&name=big.bin", strings.NewReader(strings.Repeat("x", 1<<20+1))),
		http.StatusBadRequest, "invalid_argument")

	rec = s.do(http.MethodPost, "/api/upload?dir="+dir+"&name=song.mp3&device=phone", strings.NewReader("audio"))
	expectStatus(t, rec, http.StatusCreated, "")
	if up := decode[database.FileRecord](t, rec); up.Path != filepath.Join(s.root, "Backups", "From phone", "Audio", "song.mp3") {
		t.Errorf("backup upload landed at %s", up.Path)
	}
}

func TestFileOperations(t *testing.T) {
	s := newTestServer(t)
	s.write(t, "old/inner.txt", "inner")
	s.indexAll(t)

	rec := s.postJSON(t, "/api/mkdir", MkdirRequest{Parent: fingerprint.Directory(s.root), Name: "fresh"})
	expectStatus(t, rec, http.StatusCreated, "")
	if dir := decode[database.FileRecord](t, rec); dir.Kind != database.KindDirectory {
		t.Errorf("mkdir returned %+v", dir)
	}
	expectStatus(t, s.postJSON(t, "/api/mkdir", MkdirRequest{Parent: fingerprint.Directory(s.root), Name: "fresh"}), http.StatusConflict, "conflict")
	expectStatus(t, s.postJSON(t, "/api/mkdir", MkdirRequest{Parent: fingerprint.Directory(s.root), Name: "../escape"}), http.StatusBadRequest, "invalid_argument")

	rec = s.postJSON(t, "/api/rename", RenameRequest{Path: filepath.Join(s.root, "old"), NewName: "new"})
	expectStatus(t, rec, http.StatusOK, "")
	if ok, _ := s.db.ExistsByPath(context.Background(), filepath.Join(s.root, "new", "inner.txt")); !ok {
		t.Error("rename did not move child records")
	}

	rec = s.do(http.MethodDelete, "/api/file?path="+filepath.Join(s.root, "new"), nil)
	expectStatus(t, rec, http.StatusOK, "")
	if del := decode[DeleteResponse](t, rec); del.Removed != 2 {
		t.Errorf("removed = %d, want 2", del.Removed)
	}
	expectStatus(t, s.do(http.MethodDelete, "/api/file?path="+s.root, nil), http.StatusBadRequest, "invalid_argument")
}

func TestDownload(t *testing.T) {
	s := newTestServer(t)
	path := s.write(t, "docs/readme.txt", "0123456789")
	s.indexAll(t)

	fp, err := s.idx.ResolveFingerprint(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	rec := s.do(http.MethodGet, "/api/file/"+fp, nil)
	expectStatus(t, rec, http.StatusOK, "")
	if rec.Body.String() != "0123456789" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/file/"+fp+"?download=1", nil)
	req.Header.Set("Range", "bytes=2-4")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusPartialContent || rr.Body.String() != "234" {
		t.Errorf("range: %d %q", rr.Code, rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "readme.txt") {
		t.Errorf("content disposition = %q", cd)
	}

	expectStatus(t, s.do(http.MethodGet, "/api/file/"+fingerprint.Directory(s.root), nil), http.StatusBadRequest, "invalid_argument")
}

func TestDuplicatesAndSearch(t *testing.T) {
	s := newTestServer(t)
	s.write(t, "a/report.txt", "dup")
	s.write(t, "b/report.txt", "dup")
	s.write(t, "b/sheet.xlsx", "cells")
	s.write(t, "b/photo.jpg", "pixels")
	s.indexAll(t)

	rec := s.do(http.MethodGet, "/api/duplicates?live=true", nil)
	expectStatus(t, rec, http.StatusOK, "")
	dups := decode[DuplicatesResponse](t, rec)
	if len(dups.Groups) != 1 || len(dups.Groups[0].Members) != 2 || dups.ReclaimableBytes != 3 {
		t.Errorf("duplicates = %+v", dups)
	}

	rec = s.do(http.MethodGet, "/api/search/type/documents", nil)
	expectStatus(t, rec, http.StatusOK, "")
	if res := decode[database.SearchResult](t, rec); res.TotalItems != 3 {
		t.Errorf("documents = %d, want 3", res.TotalItems)
	}
	expectStatus(t, s.do(http.MethodGet, "/api/search/type/spaceships", nil), http.StatusBadRequest, "invalid_argument")

	rec = s.do(http.MethodGet, "/api/search?q=REPORT", nil)
	expectStatus(t, rec, http.StatusOK, "")
	if res := decode[database.SearchResult](t, rec); res.TotalItems != 2 {
		t.Errorf("search = %d, want 2", res.TotalItems)
	}

	rec = s.do(http.MethodGet, "/api/search", nil)
	expectStatus(t, rec, http.StatusOK, "")
	if res := decode[database.SearchResult](t, rec); res.TotalItems != 0 || res.Items == nil {
		t.Errorf("empty search = %+v", res)
	}
}

func TestStatsAndHealth(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(http.MethodGet, "/readyz", nil), http.StatusServiceUnavailable, "")
	expectStatus(t, s.do(http.MethodGet, "/livez", nil), http.StatusOK, "")

	s.write(t, "x.bin", "12345")
	s.indexAll(t)

	expectStatus(t, s.do(http.MethodGet, "/readyz", nil), http.StatusOK, "")

	rec := s.do(http.MethodGet, "/health", nil)
	expectStatus(t, rec, http.StatusOK, "")
	if health := decode[HealthResponse](t, rec); health.Status != statusHealthy || health.TotalFiles != 1 {
		t.Errorf("health = %+v", health)
	}

	rec = s.do(http.MethodGet, "/api/stats", nil)
	expectStatus(t, rec, http.StatusOK, "")
	stats := decode[StatsResponse](t, rec)
	if stats.TotalBytes != 5 || len(stats.Roots) != 1 || stats.Roots[0].DiskBytes != nil {
		t.Fatalf("stats = %+v", stats)
	}
	if v := stats.Roots[0].Volume; v == nil || v.Total == 0 || v.Free > v.Total {
		t.Errorf("volume capacity = %+v", v)
	}

	expectStatus(t, s.do(http.MethodGet, "/version", nil), http.StatusOK, "")
	expectStatus(t, s.do(http.MethodGet, "/api/thumbnail/"+fingerprint.Directory("x"), nil), http.StatusServiceUnavailable, "unavailable")
}

type pausedGate struct{}

func (pausedGate) IsPaused() bool { return true }

func TestThumbnailUnderPressure(t *testing.T) {
	s := newTestServer(t)
	s.h.thumbs = thumbnail.NewGenerator(filepath.Join(t.TempDir(), "thumbs"), true)
	s.h.thumbs.SetGate(pausedGate{})

	photo := s.write(t, "photo.jpg", "not really a jpeg")
	notes := s.write(t, "notes.txt", "text")
	s.indexAll(t)

	fpOf := func(path string) string {
		fp, err := s.db.FingerprintByPath(context.Background(), path)
		if err != nil {
			t.Fatalf("FingerprintByPath(%s): %v", path, err)
		}
		return fp
	}

	rec := s.do(http.MethodGet, "/api/thumbnail/"+fpOf(photo), nil)
	if got := rec.Header().Get("Retry-After"); got != "5" {
		t.Errorf("Retry-After = %q, want 5", got)
	}
	expectStatus(t, rec, http.StatusServiceUnavailable, "busy")

	expectStatus(t, s.do(http.MethodGet, "/api/thumbnail/"+fpOf(notes), nil), http.StatusBadRequest, "unsupported")
}
