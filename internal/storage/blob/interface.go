// internal/storage/blob/interface.go
package blob

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read when nothing is stored at the path.
var ErrNotExist = errors.New("blob: object does not exist")

// Storage is a flat object store addressed by slash-separated paths.
type Storage interface {
	// Write stores data at the given path, replacing any previous object
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// Delete removes the data at the given path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}
