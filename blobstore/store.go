package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore stores immutable named blobs.
type BlobStore interface {
	// Get opens a blob for reading. The caller must close the reader.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// Put writes a blob, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
