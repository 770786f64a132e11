package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestUpsertAndGet(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	rec := fileRec("/r", "song.mp3", "fp-1", 42)
	if err := db.Upsert(ctx, &rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := db.Get(ctx, "/r/song.mp3")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Fingerprint != "fp-1" || got.Size != 42 || got.Kind != KindFile || got.MediaType != "audio" {
		t.Errorf("Get returned %+v", got)
	}
	if !got.ModTime.Equal(rec.ModTime) {
		t.Errorf("ModTime = %v, want %v", got.ModTime, rec.ModTime)
	}
	if got.IndexedAt.IsZero() {
		t.Error("IndexedAt was not set")
	}

	// Upsert replaces the row with the same path.
	rec.Fingerprint = "fp-2"
	rec.Size = 7
	if err := db.Upsert(ctx, &rec); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	got, _ = db.Get(ctx, "/r/song.mp3")
	if got.Fingerprint != "fp-2" || got.Size != 7 {
		t.Errorf("after replace: %+v", got)
	}
	if recs, _ := db.RecordsByFingerprint(ctx, "fp-1"); len(recs) != 0 {
		t.Errorf("old fingerprint still maps to %d records", len(recs))
	}
}

func TestUpsertValidation(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  FileRecord
	}{
		{"empty path", FileRecord{Fingerprint: "x", Kind: KindFile}},
		{"no fingerprint", FileRecord{Path: "/r/a", Kind: KindFile}},
		{"bad kind", FileRecord{Path: "/r/a", Fingerprint: "x", Kind: "socket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.Upsert(ctx, &tt.rec); err == nil {
				t.Error("expected validation error")
			}
			if err := db.UpsertBatch(ctx, []FileRecord{tt.rec}); err == nil {
				t.Error("expected validation error from batch")
			}
		})
	}
}

func TestUpsertBatchIsAtomic(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	good := fileRec("/r", "a.txt", "fp-a", 1)
	bad := FileRecord{Path: "/r/b.txt", Kind: KindFile}
	if err := db.UpsertBatch(ctx, []FileRecord{good, bad}); err == nil {
		t.Fatal("expected batch with an invalid record to fail")
	}
	if ok, _ := db.ExistsByPath(ctx, good.Path); ok {
		t.Error("a failed batch left a partial write")
	}

	if err := db.UpsertBatch(ctx, nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.Get(ctx, "/nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if _, err := db.FingerprintByPath(ctx, "/nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FingerprintByPath error = %v, want ErrNotFound", err)
	}
	if ok, err := db.ExistsByPath(ctx, "/nope"); ok || err != nil {
		t.Errorf("ExistsByPath = %v, %v", ok, err)
	}
}

func TestFingerprintLookups(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	recs := []FileRecord{
		dirRec("/r/x"),
		dirRec("/r/y"),
		fileRec("/r/y", "copy.bin", "shared", 10),
		fileRec("/r/x", "orig.bin", "shared", 10),
		fileRec("/r/x", "other.bin", "unique", 3),
	}
	if err := db.UpsertBatch(ctx, recs); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	// Insertion order, not path order.
	paths, err := db.PathsByFingerprint(ctx, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/r/y/copy.bin", "/r/x/orig.bin"}; !reflect.DeepEqual(paths, want) {
		t.Errorf("PathsByFingerprint = %v, want %v", paths, want)
	}

	p, err := db.PathByFingerprintUnderParent(ctx, "shared", "/r/x")
	if err != nil || p != "/r/x/orig.bin" {
		t.Errorf("PathByFingerprintUnderParent = %q, %v", p, err)
	}
	if _, err := db.PathByFingerprintUnderParent(ctx, "unique", "/r/y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	fps, err := db.ChildFingerprints(ctx, "/r/x")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"/r/x/orig.bin": "shared", "/r/x/other.bin": "unique"}
	if !reflect.DeepEqual(fps, want) {
		t.Errorf("ChildFingerprints = %v, want %v", fps, want)
	}
}

func TestChildrenOfOrdering(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	recs := []FileRecord{
		dirRec("/r"),
		fileRec("/r", "b.txt", "1", 1),
		fileRec("/r", "A.txt", "2", 1),
		dirRec("/r/zeta"),
		dirRec("/r/alpha"),
	}
	// A root records itself as its parent and must not list itself.
	recs[0].ParentPath = "/r"
	if err := db.UpsertBatch(ctx, recs); err != nil {
		t.Fatal(err)
	}

	children, err := db.ChildrenOf(ctx, "/r")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range children {
		names = append(names, c.Name)
	}
	if want := []string{"alpha", "zeta", "A.txt", "b.txt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("ChildrenOf order = %v, want %v", names, want)
	}
}

func TestDeletes(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *Database {
		db, _ := setupTestDB(t)
		recs := []FileRecord{
			dirRec("/r/a"),
			fileRec("/r/a", "1.txt", "f1", 1),
			dirRec("/r/a/deep"),
			fileRec("/r/a/deep", "2.txt", "f2", 1),
			dirRec("/r/ab"),
			fileRec("/r/ab", "3.txt", "f3", 1),
			dirRec("/r/a.d"),
		}
		if err := db.UpsertBatch(ctx, recs); err != nil {
			t.Fatal(err)
		}
		return db
	}

	t.Run("delete one", func(t *testing.T) {
		db := seed(t)
		if ok, err := db.Delete(ctx, "/r/a/1.txt"); !ok || err != nil {
			t.Errorf("Delete = %v, %v", ok, err)
		}
		if ok, _ := db.Delete(ctx, "/r/a/1.txt"); ok {
			t.Error("second Delete reported a row")
		}
	})

	t.Run("delete by parent", func(t *testing.T) {
		db := seed(t)
		n, err := db.DeleteByParent(ctx, "/r/a")
		if err != nil || n != 2 {
			t.Errorf("DeleteByParent = %d, %v; want 2", n, err)
		}
		if ok, _ := db.ExistsByPath(ctx, "/r/a/deep/2.txt"); !ok {
			t.Error("grandchild should survive DeleteByParent")
		}
	})

	t.Run("delete tree excludes siblings sharing a prefix", func(t *testing.T) {
		db := seed(t)
		n, err := db.DeleteTree(ctx, "/r/a")
		if err != nil || n != 4 {
			t.Errorf("DeleteTree = %d, %v; want 4", n, err)
		}
		for _, p := range []string{"/r/ab", "/r/ab/3.txt", "/r/a.d"} {
			if ok, _ := db.ExistsByPath(ctx, p); !ok {
				t.Errorf("%s should survive", p)
			}
		}
	})

	t.Run("delete by root", func(t *testing.T) {
		db := seed(t)
		other := fileRec("/s", "x.txt", "fx", 1)
		other.RootScope = "/s"
		if err := db.Upsert(ctx, &other); err != nil {
			t.Fatal(err)
		}

		n, err := db.DeleteNotUnderRoots(ctx, []string{"/r"})
		if err != nil || n != 1 {
			t.Errorf("DeleteNotUnderRoots = %d, %v; want 1", n, err)
		}
		n, err = db.DeleteByRoot(ctx, "/r")
		if err != nil || n != 7 {
			t.Errorf("DeleteByRoot = %d, %v; want 7", n, err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		db := seed(t)
		if err := db.Clear(ctx); err != nil {
			t.Fatal(err)
		}
		stats, _ := db.GetStats(ctx)
		if stats.Files+stats.Directories != 0 {
			t.Errorf("records left after Clear: %+v", stats)
		}
	})
}

func TestSubtreeBounds(t *testing.T) {
	tests := []struct {
		dir, lo, hi string
	}{
		{"/r/a", "/r/a/", "/r/a0"},
		{"/r/a/", "/r/a/", "/r/a0"},
	}
	for _, tt := range tests {
		lo, hi := subtreeBounds(tt.dir)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("subtreeBounds(%q) = %q, %q; want %q, %q", tt.dir, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestCursor(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	var recs []FileRecord
	for i := 0; i < 25; i++ {
		recs = append(recs, fileRec("/r", string(rune('a'+i))+".txt", "fp", 1))
	}
	if err := db.UpsertBatch(ctx, recs); err != nil {
		t.Fatal(err)
	}

	cur := db.AllRecords()
	cur.pageSize = 10 // force several pages
	var seen []string
	for cur.Next(ctx) {
		seen = append(seen, cur.Record().Name)
		if len(seen) == 5 {
			// Writes during iteration must not deadlock.
			extra := fileRec("/r", "late.txt", "fp", 1)
			if err := db.Upsert(ctx, &extra); err != nil {
				t.Fatalf("Upsert during iteration: %v", err)
			}
		}
	}
	if err := cur.Err(); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 26 || seen[0] != "a.txt" || seen[25] != "late.txt" {
		t.Errorf("cursor saw %d records: %v", len(seen), seen)
	}
}

func TestCursorCanceled(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cur := db.AllRecords()
	if cur.Next(ctx) {
		t.Error("Next succeeded on a canceled context")
	}
	if !errors.Is(cur.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", cur.Err())
	}
}
