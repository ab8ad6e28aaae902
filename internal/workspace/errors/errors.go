// Package errors defines the error kinds of the workspace engine.
//
// Expected absences (missing files, permission walls, malformed paths,
// unknown locator schemes) are distinguished from unexpected failures so
// call sites can branch on outcome instead of catching broadly.
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
)

// Standard errors returned by the workspace packages.
var (
	// ErrNotFound indicates a file does not exist on disk.
	ErrNotFound = stderrors.New("file not found")

	// ErrAccessDenied indicates a permission or security failure.
	ErrAccessDenied = stderrors.New("access denied")

	// ErrMalformedPath indicates a path that cannot be expressed as a valid
	// path on the current platform.
	ErrMalformedPath = stderrors.New("malformed path")

	// ErrUnsupportedScheme indicates a locator scheme the registry does not
	// recognize.
	ErrUnsupportedScheme = stderrors.New("unsupported locator scheme")

	// ErrIOFailure indicates a read failure that is neither a missing file
	// nor a permission problem.
	ErrIOFailure = stderrors.New("i/o failure")

	// ErrNoWorkspaceRoot indicates an operation that needs a workspace root
	// when none is configured.
	ErrNoWorkspaceRoot = stderrors.New("no workspace root set")
)

// PathError represents an error associated with a document path or locator.
type PathError struct {
	Op   string // Operation that failed (get, resolve, enumerate, ...)
	Path string // Path or locator string
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError creates a new PathError.
func NewPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

// IsExpectedAbsence reports whether err is one of the defined error kinds
// that mean "this document cannot be produced" rather than an unexpected
// failure: missing file, permission denial, malformed path, or an
// unrecognized locator scheme. TryGet converts exactly these into an absent
// result; anything else propagates.
func IsExpectedAbsence(err error) bool {
	return stderrors.Is(err, ErrNotFound) ||
		stderrors.Is(err, ErrAccessDenied) ||
		stderrors.Is(err, ErrMalformedPath) ||
		stderrors.Is(err, ErrUnsupportedScheme)
}

// ClassifyIOError maps an error from the file system into one of the defined
// error kinds. fs.ErrNotExist and fs.ErrPermission have dedicated kinds;
// anything else is an i/o failure.
func ClassifyIOError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case stderrors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	default:
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
}
