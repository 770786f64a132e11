package dedup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/boostgo/fsx"
	"github.com/google/uuid"

	"virtual-drive/internal/database"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// uploadPrefix marks in-progress uploads. They are hidden dot files so a
// walk with SKIP_HIDDEN never indexes them.
const uploadPrefix = ".upload-"

// ErrTooLarge is returned when an upload exceeds MaxUploadSize. It is also
// indexer.ErrInvalidArgument.
var ErrTooLarge = fmt.Errorf("upload too large: %w", indexer.ErrInvalidArgument)

// Upload writes r into the directory known as dirFp under name and indexes
// the result. The data lands in a temporary file first so a failed upload
// never leaves a partial file under the final name. An existing entry is
// ErrConflict.
func (s *Service) Upload(ctx context.Context, dirFp, name string, r io.Reader) (*database.FileRecord, error) {
	dir, err := s.idx.ResolveDirectory(ctx, dirFp)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	return s.uploadInto(ctx, dir.Path, name, r)
}

func (s *Service) uploadInto(ctx context.Context, dir, name string, r io.Reader) (rec *database.FileRecord, err error) {
	const op = "upload"

	defer func() {
		switch {
		case err == nil:
			metrics.UploadsTotal.WithLabelValues("success").Inc()
		case errors.Is(err, indexer.ErrConflict):
			metrics.UploadsTotal.WithLabelValues("conflict").Inc()
		default:
			metrics.UploadsTotal.WithLabelValues("error").Inc()
		}
	}()

	if err := indexer.ValidName(name); err != nil {
		return nil, &indexer.Error{Op: op, Path: name, Kind: indexer.ErrInvalidArgument, Err: err}
	}
	dest := filepath.Join(dir, name)
	if _, err := os.Lstat(dest); err == nil {
		return nil, &indexer.Error{Op: op, Path: dest, Kind: indexer.ErrConflict}
	}

	tmp := filepath.Join(dir, uploadPrefix+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, &indexer.Error{Op: op, Path: tmp, Kind: indexer.ErrIO, Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmp)
		}
	}()

	written, err := s.copyLimited(ctx, f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, &indexer.Error{Op: op, Path: dest, Kind: indexer.ErrInvalidArgument, Err: err}
		}
		return nil, &indexer.Error{Op: op, Path: dest, Kind: indexer.ErrIO, Err: err}
	}

	if _, err := os.Lstat(dest); err == nil {
		return nil, &indexer.Error{Op: op, Path: dest, Kind: indexer.ErrConflict}
	}
	if err := fsx.MoveFile(tmp, dest); err != nil {
		return nil, &indexer.Error{Op: op, Path: dest, Kind: indexer.ErrIO, Err: err}
	}
	committed = true

	logging.Info("Received %s (%d bytes)", dest, written)
	return s.idx.IndexPath(ctx, dest)
}

// copyLimited copies r to w, honoring MaxUploadSize and cancellation.
func (s *Service) copyLimited(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	if s.opts.MaxUploadSize > 0 {
		r = io.LimitReader(r, s.opts.MaxUploadSize+1)
	}
	n, err := io.Copy(w, ctxReader{ctx: ctx, r: r})
	if err != nil {
		return n, err
	}
	if s.opts.MaxUploadSize > 0 && n > s.opts.MaxUploadSize {
		return n, ErrTooLarge
	}
	return n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
