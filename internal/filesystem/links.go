package filesystem

import (
	"errors"
	"io/fs"
	"os"
)

// EntryState describes what is on disk at a path.
type EntryState int

const (
	// StateMissing means nothing exists at the path.
	StateMissing EntryState = iota
	// StateLive means a regular file, a directory, or a symlink whose target exists.
	StateLive
	// StateBrokenLink means a symlink whose target does not exist.
	StateBrokenLink
	// StateUnknown means the path could not be inspected (permissions, IO).
	StateUnknown
)

func (s EntryState) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateLive:
		return "live"
	case StateBrokenLink:
		return "broken-link"
	default:
		return "unknown"
	}
}

// Probe inspects path without following the final symlink first, then checks
// the link target. Errors other than not-exist yield StateUnknown so callers
// can leave the entry alone until the next pass.
func Probe(path string, config RetryConfig) (EntryState, error) {
	info, err := LstatWithRetry(path, config)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StateMissing, nil
		}
		return StateUnknown, err
	}

	if info.Mode()&os.ModeSymlink == 0 {
		return StateLive, nil
	}

	if _, err := StatWithRetry(path, config); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StateBrokenLink, nil
		}
		return StateUnknown, err
	}
	return StateLive, nil
}

// Exists reports whether path is live: present on disk, with any symlink resolving.
func Exists(path string) bool {
	state, _ := Probe(path, DefaultRetryConfig())
	return state == StateLive
}

// IsSymlink reports whether path itself is a symbolic link.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// RemoveBrokenLink deletes path only if it is still a symlink with a missing target.
func RemoveBrokenLink(path string) (bool, error) {
	state, err := Probe(path, DefaultRetryConfig())
	if err != nil || state != StateBrokenLink {
		return false, err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if obs := observe(); obs != nil {
		obs.LinkPruned(defaultResolver.Resolve(path))
	}
	return true, nil
}
