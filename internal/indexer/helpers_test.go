package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"virtual-drive/internal/database"
	"virtual-drive/internal/fingerprint"
)

// countingStore counts every call that changed the store.
type countingStore struct {
	*database.Database
	writes atomic.Int64
}

func (s *countingStore) Upsert(ctx context.Context, rec *database.FileRecord) error {
	s.writes.Add(1)
	return s.Database.Upsert(ctx, rec)
}

func (s *countingStore) UpsertBatch(ctx context.Context, recs []database.FileRecord) error {
	s.writes.Add(int64(len(recs)))
	return s.Database.UpsertBatch(ctx, recs)
}

func (s *countingStore) Delete(ctx context.Context, path string) (bool, error) {
	ok, err := s.Database.Delete(ctx, path)
	if ok {
		s.writes.Add(1)
	}
	return ok, err
}

func (s *countingStore) DeleteTree(ctx context.Context, path string) (int64, error) {
	n, err := s.Database.DeleteTree(ctx, path)
	s.writes.Add(n)
	return n, err
}

func (s *countingStore) DeleteNotUnderRoots(ctx context.Context, roots []string) (int64, error) {
	n, err := s.Database.DeleteNotUnderRoots(ctx, roots)
	s.writes.Add(n)
	return n, err
}

func (s *countingStore) SetTimestamp(context.Context, string, time.Time) error {
	return nil
}

// gatedStore holds the first ChildrenOf call until release is closed.
type gatedStore struct {
	*countingStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) ChildrenOf(ctx context.Context, parent string) ([]database.FileRecord, error) {
	first := false
	s.once.Do(func() {
		first = true
		close(s.entered)
	})
	if first {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.countingStore.ChildrenOf(ctx, parent)
}

func newTestStore(t *testing.T) *countingStore {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &countingStore{Database: db}
}

func newTestIndexer(t *testing.T, roots ...string) (*Indexer, *countingStore) {
	t.Helper()
	store := newTestStore(t)
	opts := fingerprint.DefaultOptions()
	opts.Threshold = 64
	opts.BlockSize = 16
	idx := New(store, Config{
		Roots:       roots,
		Fingerprint: opts,
		Walker:      ParallelWalkerConfig{NumWorkers: 4, BatchSize: 3, ChannelBuffer: 8},
	})
	t.Cleanup(idx.Stop)
	return idx, store
}

// writeTree creates files (path -> content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func mustExist(t *testing.T, store Store, path string, want bool) {
	t.Helper()
	ok, err := store.ExistsByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("ExistsByPath(%s): %v", path, err)
	}
	if ok != want {
		t.Errorf("ExistsByPath(%s) = %v, want %v", path, ok, want)
	}
}
