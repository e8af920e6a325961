package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when the backing object for a key does not exist.
// Invoice documents are purged by retention policy, so a missing object is an
// expected condition rather than corruption.
var ErrNotFound = errors.New("object not found")

// Storage is the minimal interface for invoice document backends.
type Storage interface {
	// Put stores a document under the given key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get retrieves a document by key. Returns ErrNotFound if the object
	// does not exist or has been purged.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a document by key. Returns nil if it doesn't exist.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a document is present under the key.
	Exists(ctx context.Context, key string) (bool, error)
}
