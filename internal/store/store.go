// Package store defines the blob store contract shared by the origin store,
// which holds untransformed assets, and the cache store, which holds
// transformed artifacts.
package store

import (
	"context"
	"github.com/cirruslabs/mocha/internal/failure"
	"io"
)

//nolint:gochecknoglobals // sentinel error
var ErrNotFound = failure.NotFound("object not found")

type Metadata struct {
	ContentType  string `json:"content-type,omitempty"`
	CacheControl string `json:"cache-control,omitempty"`
}

type Reader interface {
	// Exists reports whether the object is present. Transport and
	// authentication errors are returned as such, never as "absent".
	Exists(ctx context.Context, key string) (bool, error)

	// Get returns the object contents, or ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, Metadata, error)
}

type Store interface {
	Reader

	// Put stores the object as a whole. Concurrent Put() calls for the same
	// key overwrite each other and are never an error.
	Put(ctx context.Context, key string, metadata Metadata, blobReader io.Reader) error
}

// Connector is implemented by backends that establish their connection
// lazily. Connect is safe to call multiple times, only the first successful
// call does any work.
type Connector interface {
	Connect(ctx context.Context) error
}

// Connect establishes connections of the given stores up-front, so
// that misconfiguration surfaces at startup rather than on the first request.
func Connect(ctx context.Context, readers ...Reader) error {
	for _, reader := range readers {
		connector, ok := reader.(Connector)
		if !ok {
			continue
		}

		if err := connector.Connect(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Unavailable wraps a backend error into a StoreUnavailable failure.
func Unavailable(err error, operation string, key string) error {
	return failure.StoreUnavailable(err, "failed to %s object %q", operation, key)
}
