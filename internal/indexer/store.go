package indexer

import (
	"context"
	"time"

	"virtual-drive/internal/database"
)

// Store is the slice of the index store the reconciler needs. *database.Database
// implements it; tests wrap it to count writes.
type Store interface {
	Upsert(ctx context.Context, rec *database.FileRecord) error
	UpsertBatch(ctx context.Context, recs []database.FileRecord) error
	Get(ctx context.Context, path string) (*database.FileRecord, error)
	ExistsByPath(ctx context.Context, path string) (bool, error)
	RecordsByFingerprint(ctx context.Context, fp string) ([]database.FileRecord, error)
	ChildrenOf(ctx context.Context, parent string) ([]database.FileRecord, error)
	Delete(ctx context.Context, path string) (bool, error)
	DeleteTree(ctx context.Context, path string) (int64, error)
	DeleteNotUnderRoots(ctx context.Context, roots []string) (int64, error)
	Clear(ctx context.Context) error
	AllRecords() *database.Cursor
	SetTimestamp(ctx context.Context, key string, t time.Time) error
}

var _ Store = (*database.Database)(nil)
