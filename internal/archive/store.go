// Package archive persists trace-file archives downloaded from BOLD.
//
// Archives are gzip-packed with pgzip and written to a Store: the local file
// system, Amazon S3 or any MinIO/S3-compatible endpoint.
package archive

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when an archive does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// Store is a flat object namespace for archives.
type Store interface {
	// Put writes the object atomically, replacing any previous one.
	Put(ctx context.Context, name string, data []byte) error
	// Open returns a reader for the object.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// List returns object names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
}
