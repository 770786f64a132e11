package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/boostgo/fsx"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// ValidName rejects names that would escape their directory.
func ValidName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return errors.New("invalid name")
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, 0):
		return errors.New("name must not contain '/' or NUL")
	}
	return nil
}

// CreateDirectory creates name inside parent and indexes it. An existing
// entry of that name is ErrConflict.
func (idx *Indexer) CreateDirectory(ctx context.Context, parent, name string) (*database.FileRecord, error) {
	const op = "mkdir"
	if err := ValidName(name); err != nil {
		return nil, newError(op, name, ErrInvalidArgument, err)
	}
	dir, _, err := idx.cleanDir(op, parent)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)

	if _, err := os.Lstat(path); err == nil {
		return nil, newError(op, path, ErrConflict, nil)
	}
	if !fsx.DirectoryExist(dir) {
		return nil, newError(op, dir, ErrNotFound, nil)
	}
	if err := fsx.CreateDirectory(path); err != nil {
		return nil, newError(op, path, ErrIO, err)
	}

	logging.Info("Created directory %s", path)
	return idx.IndexPath(ctx, path)
}

// EnsureDirectory creates path and any missing parents inside its root and
// indexes each of them. An existing directory is returned as is.
func (idx *Indexer) EnsureDirectory(ctx context.Context, path string) (*database.FileRecord, error) {
	const op = "mkdir"
	abs, _, err := idx.cleanDir(op, path)
	if err != nil {
		return nil, err
	}
	if err := fsx.CreateDirectories(abs); err != nil {
		return nil, newError(op, abs, ErrIO, err)
	}
	return idx.IndexPath(ctx, abs)
}

// Remove deletes path from disk and evicts it and everything below it from
// the store. Mounted roots cannot be removed.
func (idx *Indexer) Remove(ctx context.Context, path string) (int64, error) {
	const op = "remove"
	abs, root, err := idx.cleanPath(op, path)
	if err != nil {
		return 0, err
	}
	if abs == root {
		return 0, newError(op, abs, ErrInvalidArgument, errors.New("cannot remove a mounted root"))
	}

	info, err := filesystem.LstatWithRetry(abs, idx.retry)
	switch {
	case os.IsNotExist(err):
		n, _ := idx.store.DeleteTree(ctx, abs)
		return n, newError(op, abs, ErrNotFound, err)
	case err != nil:
		return 0, newError(op, abs, ErrIO, err)
	}

	if info.IsDir() {
		err = fsx.DeleteDirectory(abs, fsx.WithRecursive())
	} else {
		// Symlinks go through os.Remove so the link, not its target, is removed.
		err = os.Remove(abs)
	}
	if err != nil {
		return 0, newError(op, abs, ErrIO, err)
	}

	n, err := idx.store.DeleteTree(ctx, abs)
	if err != nil {
		return 0, storeError(op, abs, err)
	}
	metrics.IndexerRecordsDeleted.WithLabelValues("removed").Add(float64(n))
	logging.Info("Removed %s (%d records)", abs, n)
	return n, nil
}

// Rename moves path to newName within the same directory and re-indexes the
// moved subtree. An existing entry at the destination is ErrConflict.
func (idx *Indexer) Rename(ctx context.Context, path, newName string) (*database.FileRecord, error) {
	const op = "rename"
	if err := ValidName(newName); err != nil {
		return nil, newError(op, newName, ErrInvalidArgument, err)
	}
	abs, root, err := idx.cleanPath(op, path)
	if err != nil {
		return nil, err
	}
	if abs == root {
		return nil, newError(op, abs, ErrInvalidArgument, errors.New("cannot rename a mounted root"))
	}
	dest := filepath.Join(filepath.Dir(abs), newName)
	if dest == abs {
		return idx.IndexPath(ctx, abs)
	}

	info, err := filesystem.LstatWithRetry(abs, idx.retry)
	switch {
	case os.IsNotExist(err):
		return nil, newError(op, abs, ErrNotFound, err)
	case err != nil:
		return nil, newError(op, abs, ErrIO, err)
	}
	if _, err := os.Lstat(dest); err == nil {
		return nil, newError(op, dest, ErrConflict, nil)
	}

	if info.IsDir() {
		err = fsx.RenameDirectory(abs, dest)
	} else {
		err = fsx.MoveFile(abs, dest)
	}
	if err != nil {
		return nil, newError(op, abs, ErrIO, err)
	}

	if _, err := idx.store.DeleteTree(ctx, abs); err != nil {
		logging.Warn("Failed to evict renamed path %s: %v", abs, err)
	}

	if info.IsDir() {
		walker := NewParallelWalker(idx, idx.config.Walker)
		stats, err := walker.Walk(ctx, []walkStart{{path: dest, root: root}})
		if err != nil {
			return nil, newError(op, dest, ErrIO, err)
		}
		logging.Debug("Indexed renamed directory %s: %d written", dest, stats.Written)
	}

	logging.Info("Renamed %s to %s", abs, dest)
	return idx.IndexPath(ctx, dest)
}
