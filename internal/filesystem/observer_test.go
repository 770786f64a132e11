package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingObserver) Operation(volume, op string, _ float64, err error) {
	r.add(volume + " " + op + " done err=" + boolString(err != nil))
}

func (r *recordingObserver) Retry(volume, op string, event RetryEvent) {
	r.add(volume + " " + op + " " + string(event))
}

func (r *recordingObserver) RetriesExhausted(volume, op string, _ float64) {
	r.add(volume + " " + op + " exhausted")
}

func (r *recordingObserver) LinkPruned(volume string) {
	r.add(volume + " pruned")
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func withObserver(t *testing.T) *recordingObserver {
	t.Helper()
	rec := &recordingObserver{}
	SetObserver(rec)
	t.Cleanup(func() { SetObserver(nil) })
	return rec
}

func TestObserverRetryEvents(t *testing.T) {
	rec := withObserver(t)
	config := fastRetryConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"drive": "/drive"})

	calls := 0
	if _, err := withRetry("stat", "/drive/a", config, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, syscall.ESTALE
		}
		return 1, nil
	}); err != nil {
		t.Fatal(err)
	}
	_, _ = withRetry("open", "/drive/b", RetryConfig{VolumeResolver: config.VolumeResolver}, func() (int, error) {
		return 0, syscall.ESTALE
	})

	want := []string{
		"drive stat stale",
		"drive stat attempt",
		"drive stat success",
		"drive stat done err=false",
		"drive open stale",
		"drive open failure",
		"drive open exhausted",
		"drive open done err=true",
	}
	if got := strings.Join(rec.events, "\n"); got != strings.Join(want, "\n") {
		t.Errorf("events:\n%s\nwant:\n%s", got, strings.Join(want, "\n"))
	}
}

func TestObserverLinkPruned(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "dangling")
	if err := os.Symlink(filepath.Join(dir, "gone"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"drive": dir}))
	t.Cleanup(func() { SetDefaultVolumeResolver(nil) })
	rec := withObserver(t)

	if removed, err := RemoveBrokenLink(link); err != nil || !removed {
		t.Fatalf("RemoveBrokenLink = %v, %v", removed, err)
	}

	found := false
	for _, e := range rec.events {
		if e == "drive pruned" {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %v, want a prune on drive", rec.events)
	}
}
