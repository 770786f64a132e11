package filesystem

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"drive":    "/drive",
		"archive":  "/drive/archive",
		"database": "/database",
	})

	tests := []struct {
		path string
		want string
	}{
		{"/drive", "drive"},
		{"/drive/movies/movie.mkv", "drive"},
		{"/drive/archive/2019/a.jpg", "archive"},
		{"/database/index.db-wal", "database"},
		{"/drivers/x", "unknown"},
		{"/etc/hosts", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/drive/a"); got != "unknown" {
		t.Errorf("Expected unknown for nil resolver, got %q", got)
	}
}

func TestWithRetry_RetriesStaleHandles(t *testing.T) {
	calls := 0
	got, err := withRetry("stat", "/drive/a", fastRetryConfig(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	calls := 0
	_, err := withRetry("open", "/drive/a", fastRetryConfig(), func() (struct{}, error) {
		calls++
		return struct{}{}, syscall.ESTALE
	})
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if calls != 4 {
		t.Errorf("Expected 4 calls (1 + 3 retries), got %d", calls)
	}
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	_, err := withRetry("stat", "/drive/a", fastRetryConfig(), func() (int, error) {
		calls++
		return 0, os.ErrPermission
	})
	if err != os.ErrPermission {
		t.Errorf("Expected ErrPermission, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestStatAndOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(path, fastRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("FileInfo.Size() = %d, want 4", info.Size())
	}

	f, err := OpenWithRetry(path, fastRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	f.Close()

	entries, err := ReadDirWithRetry(dir, fastRetryConfig())
	if err != nil {
		t.Fatalf("ReadDirWithRetry() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(entries))
	}

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), fastRetryConfig()); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}
