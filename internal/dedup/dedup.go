// Package dedup avoids storing the same content twice.
//
// FlashTransfer places content the server already holds into a directory by
// creating a symlink to an existing copy and recording the link under the
// same fingerprint. FlashBackup does the same into a per-device backup tree.
// Upload is the byte-copy fallback. FindDuplicates reports fingerprints that
// more than one path carries.
package dedup

import (
	"context"
	"os"
	"sort"
	"strings"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/indexer"
)

// Store is the part of the index store the service reads and writes directly.
type Store interface {
	Upsert(ctx context.Context, rec *database.FileRecord) error
	RecordsByFingerprint(ctx context.Context, fp string) ([]database.FileRecord, error)
	AllRecords() *database.Cursor
}

// Options configures a Service.
type Options struct {
	// MaxUploadSize caps Upload bodies in bytes. Zero means no limit.
	MaxUploadSize int64
}

// Service runs transfers and reports against one index.
type Service struct {
	idx     *indexer.Indexer
	store   Store
	opts    Options
	symlink func(oldname, newname string) error
}

// New creates a Service. store must be the store idx writes to.
func New(idx *indexer.Indexer, store Store, opts Options) *Service {
	return &Service{idx: idx, store: store, opts: opts, symlink: os.Symlink}
}

// preferSource orders candidate sources: real files before symlinks, then
// shorter paths, then lexical order.
func preferSource(recs []database.FileRecord) []database.FileRecord {
	links := make(map[string]bool, len(recs))
	for _, r := range recs {
		links[r.Path] = filesystem.IsSymlink(r.Path)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if links[a.Path] != links[b.Path] {
			return !links[a.Path]
		}
		if len(a.Path) != len(b.Path) {
			return len(a.Path) < len(b.Path)
		}
		return strings.Compare(a.Path, b.Path) < 0
	})
	return recs
}
