// Package fingerprint computes the content identifiers used as index keys.
//
// Directories are identified by their absolute path. Files up to the sketch
// threshold are identified by the md5 of their full content; larger files by
// one md5 over three sampled windows (start, middle, end). The result is a
// fast content sketch, not a collision-resistant hash.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // content sketch, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"time"

	"virtual-drive/internal/filesystem"
)

// DefaultBlockSize is the window size used when sketching large files.
const DefaultBlockSize int64 = 2 << 20

// Length is the number of hex characters in every fingerprint.
const Length = 32

// ErrUnreadable wraps every failure to read the bytes being fingerprinted.
var ErrUnreadable = errors.New("fingerprint: unreadable")

// Options controls when and how large files are sketched.
type Options struct {
	// Threshold is the largest size hashed in full. Zero means BlockSize.
	Threshold int64
	// BlockSize is the width of each sampled window. Zero means DefaultBlockSize.
	BlockSize int64
	// Retry configures NFS retries for opening files.
	Retry filesystem.RetryConfig
}

// DefaultOptions returns 2 MiB windows with a matching full-hash threshold.
func DefaultOptions() Options {
	return Options{
		Threshold: DefaultBlockSize,
		BlockSize: DefaultBlockSize,
		Retry:     filesystem.DefaultRetryConfig(),
	}
}

func (o Options) normalized() Options {
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.Threshold < o.BlockSize {
		o.Threshold = o.BlockSize
	}
	return o
}

// Kind distinguishes directory fingerprints from content fingerprints.
type Kind string

const (
	// KindFile is a regular file, or a symlink resolving to one.
	KindFile Kind = "file"
	// KindDirectory is a directory, or a symlink resolving to one.
	KindDirectory Kind = "directory"
)

// Result is the fingerprint of one path together with the stat data it was computed from.
type Result struct {
	Path        string
	Fingerprint string
	Kind        Kind
	Size        int64
	ModTime     time.Time
	Sketched    bool
}

// Directory returns the fingerprint of a directory: md5 of its absolute path.
func Directory(absPath string) string {
	sum := md5.Sum([]byte(absPath)) //nolint:gosec // path-derived identifier
	return hex.EncodeToString(sum[:])
}

// Path fingerprints whatever is at path, following symlinks.
func Path(path string, opts Options) (Result, error) {
	opts = opts.normalized()

	info, err := filesystem.StatWithRetry(path, opts.Retry)
	if err != nil {
		return Result{}, fmt.Errorf("%w: stat %s: %w", ErrUnreadable, path, err)
	}
	return FromInfo(path, info, opts)
}

// FromInfo fingerprints path using stat data the caller already holds. info
// must describe the symlink target when path is a symlink.
func FromInfo(path string, info os.FileInfo, opts Options) (Result, error) {
	opts = opts.normalized()

	if info.IsDir() {
		return Result{
			Path:        path,
			Fingerprint: Directory(path),
			Kind:        KindDirectory,
			ModTime:     info.ModTime(),
		}, nil
	}

	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("%w: %s is not a regular file (%s)", ErrUnreadable, path, info.Mode().Type())
	}

	fp, sketched, err := file(path, info.Size(), opts)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Path:        path,
		Fingerprint: fp,
		Kind:        KindFile,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Sketched:    sketched,
	}, nil
}

// File fingerprints the regular file at path.
func File(path string, opts Options) (string, error) {
	res, err := Path(path, opts)
	if err != nil {
		return "", err
	}
	if res.Kind != KindFile {
		return "", fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}
	return res.Fingerprint, nil
}

func file(path string, size int64, opts Options) (string, bool, error) {
	f, err := filesystem.OpenWithRetry(path, opts.Retry)
	if err != nil {
		return "", false, fmt.Errorf("%w: open %s: %w", ErrUnreadable, path, err)
	}
	defer f.Close()

	fp, err := Reader(f, size, opts)
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %w", ErrUnreadable, path, err)
	}
	return fp, size > opts.Threshold, nil
}

// Reader fingerprints size bytes available from r.
func Reader(r io.ReaderAt, size int64, opts Options) (string, error) {
	opts = opts.normalized()
	h := md5.New() //nolint:gosec // content sketch

	var err error
	if size <= opts.Threshold {
		err = copyWindow(h, r, 0, size)
	} else {
		err = sketch(h, r, size, opts.BlockSize)
	}
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sketch hashes the start, middle and end windows. Windows never overlap:
// each starts at or after the end of the previous one, so for files of up
// to three blocks every byte is hashed exactly once.
func sketch(h hash.Hash, r io.ReaderAt, size, block int64) error {
	starts := []int64{0, size/2 - block/2, size - block}

	var pos int64
	for _, start := range starts {
		if start < pos {
			start = pos
		}
		n := block
		if start+n > size {
			n = size - start
		}
		if n <= 0 {
			continue
		}
		if err := copyWindow(h, r, start, n); err != nil {
			return err
		}
		pos = start + n
	}
	return nil
}

func copyWindow(h hash.Hash, r io.ReaderAt, off, n int64) error {
	if n == 0 {
		return nil
	}
	written, err := io.Copy(h, io.NewSectionReader(r, off, n))
	if err != nil {
		return err
	}
	if written != n {
		return fmt.Errorf("short read at offset %d: got %d of %d bytes: %w", off, written, n, io.ErrUnexpectedEOF)
	}
	return nil
}

// Valid reports whether s is a fingerprint: Length lowercase hex digits,
// the only form ever stored.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
