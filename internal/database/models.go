package database

import (
	"errors"
	"time"

	"virtual-drive/internal/mediatypes"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Kind distinguishes directories from files.
type Kind string

const (
	// KindFile is a regular file or a live symlink to one.
	KindFile Kind = "file"
	// KindDirectory is a directory.
	KindDirectory Kind = "directory"
)

// FileRecord is one indexed filesystem entry. Path is unique; Fingerprint is not.
type FileRecord struct {
	ID          int64               `json:"-"`
	Path        string              `json:"path"`
	Name        string              `json:"name"`
	Fingerprint string              `json:"fingerprint"`
	ParentPath  string              `json:"parentPath"`
	RootScope   string              `json:"rootScope"`
	Kind        Kind                `json:"kind"`
	MediaType   mediatypes.FileType `json:"mediaType"`
	Size        int64               `json:"size"`
	ModTime     time.Time           `json:"modifiedAt"`
	IndexedAt   time.Time           `json:"indexedAt"`
}

// IsDir reports whether the record describes a directory.
func (r FileRecord) IsDir() bool {
	return r.Kind == KindDirectory
}

// SearchOptions selects and orders records. Zero values mean "no filter".
type SearchOptions struct {
	// Query matches a case-insensitive substring of the entry name.
	Query string
	// Parent restricts results to direct children of one directory.
	Parent string
	// Root restricts results to one mounted root.
	Root string
	// Types restricts results to the given media types (after expansion).
	Types     []mediatypes.FileType
	SortField mediatypes.SortField
	SortOrder mediatypes.SortOrder
	Page      int
	PageSize  int
}

// SearchResult is one page of records. Directories always precede files.
type SearchResult struct {
	Items      []FileRecord `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalItems int          `json:"totalItems"`
	TotalPages int          `json:"totalPages"`
}

// RootUsage summarizes the records under one mounted root.
type RootUsage struct {
	Root        string `json:"root"`
	Files       int64  `json:"files"`
	Directories int64  `json:"directories"`
	Bytes       int64  `json:"bytes"`
}

// Stats summarizes the whole index.
type Stats struct {
	Files        int64                         `json:"files"`
	Directories  int64                         `json:"directories"`
	TotalBytes   int64                         `json:"totalBytes"`
	ByMediaType  map[mediatypes.FileType]int64 `json:"byMediaType"`
	Fingerprints int64                         `json:"distinctFingerprints"`
}
