package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/fingerprint"
	"virtual-drive/internal/mediatypes"
	"virtual-drive/internal/metrics"
)

// NodeResult is the outcome of indexing one filesystem node. Exactly one of
// Record, Unchanged or Err is meaningful.
type NodeResult struct {
	Path string
	// Record is set when the node must be written.
	Record *database.FileRecord
	// Unchanged means the stored record already matches disk.
	Unchanged bool
	Err       *NodeError
}

func failed(path, stage string, err error) NodeResult {
	metrics.IndexerErrors.WithLabelValues(stage).Inc()
	return NodeResult{Path: path, Err: &NodeError{Path: path, Stage: stage, Err: err}}
}

// isHidden reports whether name is a dot file.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// stale reports whether existing no longer describes info. info follows symlinks.
func stale(existing *database.FileRecord, info os.FileInfo) bool {
	if existing == nil {
		return true
	}
	if existing.IsDir() != info.IsDir() {
		return true
	}
	if !existing.ModTime.Equal(info.ModTime()) {
		return true
	}
	return !info.IsDir() && existing.Size != info.Size()
}

// examine stats path and returns the record to write, if any. existing may be
// nil when the node is not indexed yet.
func (idx *Indexer) examine(path, root string, existing *database.FileRecord) NodeResult {
	info, err := filesystem.StatWithRetry(path, idx.retry)
	if err != nil {
		return failed(path, "stat", err)
	}
	if !stale(existing, info) {
		return NodeResult{Path: path, Unchanged: true}
	}

	start := time.Now()
	res, err := fingerprint.FromInfo(path, info, idx.config.Fingerprint)
	if err != nil {
		return failed(path, "fingerprint", err)
	}
	method := "full"
	switch {
	case res.Kind == fingerprint.KindDirectory:
		method = "directory"
	case res.Sketched:
		method = "sketch"
	}
	metrics.FingerprintDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	rec := recordFor(res, root)
	return NodeResult{Path: path, Record: &rec}
}

// recordFor converts a fingerprint result into the row stored for it.
func recordFor(res fingerprint.Result, root string) database.FileRecord {
	name := filepath.Base(res.Path)
	rec := database.FileRecord{
		Path:        res.Path,
		Name:        name,
		Fingerprint: res.Fingerprint,
		ParentPath:  filepath.Dir(res.Path),
		RootScope:   root,
		Size:        res.Size,
		ModTime:     res.ModTime,
		IndexedAt:   time.Now(),
	}
	if res.Kind == fingerprint.KindDirectory {
		rec.Kind = database.KindDirectory
		rec.MediaType = mediatypes.FileTypeFolder
	} else {
		rec.Kind = database.KindFile
		rec.MediaType = mediatypes.FromName(name)
	}
	return rec
}
