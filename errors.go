package vecforge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrBundleReleased is returned when a bundle is released or used after
	// its resources were already released.
	ErrBundleReleased = errors.New("vecforge: bundle already released")

	// ErrNilBundle is returned when a nil bundle is passed to Convert or
	// Write.
	ErrNilBundle = errors.New("vecforge: nil bundle")
)

// ConversionError indicates that a GPU to CPU index conversion failed.
//
// The original underlying error can be accessed via errors.Unwrap.
type ConversionError struct {
	Stage string // conversion stage that failed (allocate, copy, relocate, release)
	cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert GPU index to CPU index (%s): %v", e.Stage, e.cause)
}

func (e *ConversionError) Unwrap() error { return e.cause }

func convErr(stage string, cause error) *ConversionError {
	return &ConversionError{Stage: stage, cause: cause}
}

// SerializationError indicates that writing a CPU index to disk failed.
// IO distinguishes filesystem failures (path, permissions, disk space) from
// unexpected failures in the index writer itself.
//
// The original underlying error can be accessed via errors.Unwrap.
type SerializationError struct {
	Path  string
	IO    bool
	cause error
}

func (e *SerializationError) Error() string {
	if e.IO {
		return fmt.Sprintf("failed to write index to file %s: %v", e.Path, e.cause)
	}
	return fmt.Sprintf("unexpected error while writing index to file %s: %v", e.Path, e.cause)
}

func (e *SerializationError) Unwrap() error { return e.cause }

func serErr(path string, cause error) *SerializationError {
	return &SerializationError{Path: path, IO: isIOError(cause), cause: cause}
}

func isIOError(err error) bool {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return true
	}
	return errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrExist)
}
