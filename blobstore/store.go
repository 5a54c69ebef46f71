package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for storing and retrieving immutable data blobs
// (serialized index files).
type Store interface {
	// Put writes a blob atomically under name.
	Put(ctx context.Context, name string, data []byte) error

	// PutFile uploads the file at path under name.
	PutFile(ctx context.Context, name, path string) error

	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// putFileVia reads path and delegates to put. Shared by backends whose
// native API is buffer-based.
func putFileVia(ctx context.Context, put func(context.Context, string, []byte) error, name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return put(ctx, name, data)
}
