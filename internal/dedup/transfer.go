package dedup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/mediatypes"
	"virtual-drive/internal/metrics"
)

// TransferResult describes a completed flash transfer.
type TransferResult struct {
	// Path is the entry now present in the target directory.
	Path string `json:"path"`
	// Source is the existing copy the link points at.
	Source      string `json:"source"`
	Fingerprint string `json:"fingerprint"`
	// Created is false when Path already existed and nothing was done.
	Created bool  `json:"created"`
	Size    int64 `json:"size"`
}

// FlashTransfer places the content known as sourceFp into the directory known
// as targetDirFp under name, without copying bytes: a symlink to a live copy
// is created and recorded with the same fingerprint. An existing entry at the
// destination makes the call a no-op. A blank name uses the source's name.
//
// Errors: ErrNotFound when either fingerprint is unknown, ErrSourceMissing
// when the content is indexed but no copy is left on disk, ErrTransferFailed
// when the link cannot be created. Callers fall back to Upload on the last two.
func (s *Service) FlashTransfer(ctx context.Context, targetDirFp, sourceFp, name string) (TransferResult, error) {
	dir, err := s.idx.ResolveDirectory(ctx, targetDirFp)
	if err != nil {
		metrics.FlashTransfersTotal.WithLabelValues("not_found").Inc()
		return TransferResult{}, err
	}
	return s.transferInto(ctx, dir.Path, sourceFp, name)
}

func (s *Service) transferInto(ctx context.Context, dir, sourceFp, name string) (TransferResult, error) {
	const op = "flash transfer"

	source, err := s.resolveSource(ctx, sourceFp)
	if err != nil {
		outcome := "not_found"
		if errors.Is(err, indexer.ErrSourceMissing) {
			outcome = "source_missing"
		}
		metrics.FlashTransfersTotal.WithLabelValues(outcome).Inc()
		return TransferResult{}, err
	}

	if name == "" {
		name = source.Name
	}
	if err := indexer.ValidName(name); err != nil {
		return TransferResult{}, &indexer.Error{Op: op, Path: name, Kind: indexer.ErrInvalidArgument, Err: err}
	}

	if filesystem.IsSymlink(dir) {
		return TransferResult{}, &indexer.Error{Op: op, Path: dir, Kind: indexer.ErrInvalidArgument, Err: errors.New("target directory is a symbolic link")}
	}

	linkPath := filepath.Join(dir, name)
	result := TransferResult{Path: linkPath, Source: source.Path, Fingerprint: sourceFp, Size: source.Size}

	if _, err := os.Lstat(linkPath); err == nil {
		return s.occupied(ctx, result), nil
	}

	if err := s.symlink(source.Path, linkPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Another writer took the name since the Lstat.
			return s.occupied(ctx, result), nil
		}
		metrics.FlashTransfersTotal.WithLabelValues("failed").Inc()
		return TransferResult{}, &indexer.Error{Op: op, Path: linkPath, Kind: indexer.ErrTransferFailed, Err: err}
	}

	rec, err := s.linkRecord(linkPath, sourceFp)
	if err == nil {
		err = s.store.Upsert(ctx, rec)
	}
	if err != nil {
		// The link is correct on disk; the next reconciliation indexes it.
		logging.Warn("Linked %s but failed to record it: %v", linkPath, err)
		metrics.FlashTransfersTotal.WithLabelValues("created").Inc()
		result.Created = true
		return result, &indexer.Error{Op: op, Path: linkPath, Kind: indexer.ErrStore, Err: err}
	}

	metrics.FlashTransfersTotal.WithLabelValues("created").Inc()
	metrics.BytesDeduplicated.Add(float64(source.Size))
	logging.Info("Flash transfer complete: %s linked >> %s", source.Path, linkPath)

	result.Created = true
	return result, nil
}

// occupied finishes a transfer whose destination already exists: the entry
// is left alone and indexed as it is.
func (s *Service) occupied(ctx context.Context, result TransferResult) TransferResult {
	metrics.FlashTransfersTotal.WithLabelValues("exists").Inc()
	logging.Info("Flash transfer target already exists: %s", result.Path)
	if _, err := s.idx.IndexPath(ctx, result.Path); err != nil && !errors.Is(err, indexer.ErrNotFound) {
		logging.Warn("Failed to index existing entry %s: %v", result.Path, err)
	}
	return result
}

// resolveSource picks the copy a new link will point at.
func (s *Service) resolveSource(ctx context.Context, fp string) (*database.FileRecord, error) {
	const op = "flash transfer"

	known, err := s.store.RecordsByFingerprint(ctx, fp)
	if err != nil {
		return nil, &indexer.Error{Op: op, Path: fp, Kind: indexer.ErrStore, Err: err}
	}
	if len(known) == 0 {
		return nil, &indexer.Error{Op: op, Path: fp, Kind: indexer.ErrNotFound, Err: errors.New("no known index for this content")}
	}

	live, err := s.idx.ResolveRecords(ctx, fp)
	if err != nil {
		if errors.Is(err, indexer.ErrNotFound) {
			return nil, &indexer.Error{Op: op, Path: fp, Kind: indexer.ErrSourceMissing}
		}
		return nil, err
	}

	files := live[:0]
	for _, r := range live {
		if !r.IsDir() {
			files = append(files, r)
		}
	}
	if len(files) == 0 {
		return nil, &indexer.Error{Op: op, Path: fp, Kind: indexer.ErrInvalidArgument, Err: errors.New("fingerprint names a directory")}
	}

	best := preferSource(files)[0]
	return &best, nil
}

// linkRecord builds the record for a fresh link. It carries the source's
// fingerprint rather than a recomputed one.
func (s *Service) linkRecord(linkPath string, fp string) (*database.FileRecord, error) {
	root, ok := s.idx.RootFor(linkPath)
	if !ok {
		return nil, fmt.Errorf("%s is outside the mounted roots", linkPath)
	}
	info, err := filesystem.StatWithRetry(linkPath, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	return &database.FileRecord{
		Path:        linkPath,
		Name:        filepath.Base(linkPath),
		Fingerprint: fp,
		ParentPath:  filepath.Dir(linkPath),
		RootScope:   root,
		Kind:        database.KindFile,
		MediaType:   mediatypes.FromName(linkPath),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IndexedAt:   time.Now(),
	}, nil
}
