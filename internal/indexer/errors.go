package indexer

import (
	"context"
	"errors"
	"fmt"

	"virtual-drive/internal/database"
)

// Error kinds surfaced by caller-facing operations. Match with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrIO              = errors.New("i/o failure")
	ErrConflict        = errors.New("conflict")
	ErrStore           = errors.New("store failure")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutsideRoot     = errors.New("path outside mounted roots")

	// ErrSourceMissing means the index knows the content but no copy is left
	// on disk. Callers fall back to a real upload. It is also ErrNotFound.
	ErrSourceMissing error = &subKind{msg: "original file missing", parent: ErrNotFound}

	// ErrTransferFailed means a link could not be created. Callers fall back
	// to a byte copy. It is also ErrIO.
	ErrTransferFailed error = &subKind{msg: "transfer failed", parent: ErrIO}
)

type subKind struct {
	msg    string
	parent error
}

func (k *subKind) Error() string { return k.msg }
func (k *subKind) Unwrap() error { return k.parent }

// Error records the operation and path that failed along with its kind.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, path string, kind, err error) error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// storeError classifies an error returned by the index store. Cancellation
// is passed through unclassified.
func storeError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", op, path, err)
	}
	if errors.Is(err, database.ErrNotFound) {
		return newError(op, path, ErrNotFound, nil)
	}
	return newError(op, path, ErrStore, err)
}

// StatusKind returns the taxonomy kind of err, or nil when err carries none.
// The more specific kinds are reported before their parents.
func StatusKind(err error) error {
	for _, kind := range []error{
		ErrSourceMissing, ErrTransferFailed,
		ErrInvalidArgument, ErrOutsideRoot, ErrConflict,
		ErrNotFound, ErrIO, ErrStore,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// NodeError is the per-node failure reported by walks. Walks log these and
// continue; they never abort on one.
type NodeError struct {
	Path  string
	Stage string // "stat", "fingerprint", "store", "readdir"
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
