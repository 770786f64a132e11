package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"virtual-drive/internal/database"
	"virtual-drive/internal/mediatypes"
	"virtual-drive/internal/startup"
)

func TestStoreStats(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	recs := []database.FileRecord{
		{Path: "/r", Name: "r", ParentPath: "/", RootScope: "/r", Fingerprint: "00000000000000000000000000000001",
			Kind: database.KindDirectory, MediaType: mediatypes.FileTypeFolder, ModTime: now},
		{Path: "/r/a.mp3", Name: "a.mp3", ParentPath: "/r", RootScope: "/r", Fingerprint: "00000000000000000000000000000002",
			Kind: database.KindFile, MediaType: mediatypes.FileTypeAudio, Size: 10, ModTime: now},
		{Path: "/r/b.mp3", Name: "b.mp3", ParentPath: "/r", RootScope: "/r", Fingerprint: "00000000000000000000000000000003",
			Kind: database.KindFile, MediaType: mediatypes.FileTypeAudio, Size: 32, ModTime: now},
	}
	if err := db.UpsertBatch(ctx, recs); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	snap, err := storeStats(db).Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TotalBytes != 42 {
		t.Errorf("TotalBytes = %d, want 42", snap.TotalBytes)
	}
	if got := snap.RecordsByType["audio"]; got != 2 {
		t.Errorf("audio records = %d, want 2", got)
	}
	if _, ok := snap.DBFileSizes["main"]; !ok {
		t.Errorf("DBFileSizes = %v, want the main database file", snap.DBFileSizes)
	}
}

func TestStoreStatsClosedDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	db.Close()

	if _, err := storeStats(db).Snapshot(ctx); err == nil {
		t.Error("Snapshot on a closed database succeeded")
	}
}

func TestVolumes(t *testing.T) {
	config := &startup.Config{
		Roots:       []string{"/srv/a", "/srv/b"},
		CacheDir:    "/cache",
		DatabaseDir: "/db",
	}
	got := volumes(config)
	want := map[string]string{"cache": "/cache", "database": "/db", "/srv/a": "/srv/a", "/srv/b": "/srv/b"}
	if len(got) != len(want) {
		t.Fatalf("volumes = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("volumes[%q] = %q, want %q", k, got[k], v)
		}
	}
}
