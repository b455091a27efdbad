// Package memory implements an in-process store, useful for development
// and as a cache store for a single-node deployment with a small working set.
package memory

import (
	"bytes"
	"context"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
)

type object struct {
	blob     []byte
	metadata store.Metadata
}

type Memory struct {
	objects *xsync.MapOf[string, object]
}

func New() *Memory {
	return &Memory{
		objects: xsync.NewMapOf[string, object](),
	}
}

func (memory *Memory) Exists(_ context.Context, key string) (bool, error) {
	_, ok := memory.objects.Load(key)

	return ok, nil
}

func (memory *Memory) Get(_ context.Context, key string) (io.ReadCloser, store.Metadata, error) {
	object, ok := memory.objects.Load(key)
	if !ok {
		return nil, store.Metadata{}, store.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(object.blob)), object.metadata, nil
}

func (memory *Memory) Put(_ context.Context, key string, metadata store.Metadata, blobReader io.Reader) error {
	blob, err := io.ReadAll(blobReader)
	if err != nil {
		return store.Unavailable(err, "read the contents of", key)
	}

	memory.objects.Store(key, object{
		blob:     blob,
		metadata: metadata,
	})

	return nil
}

func (memory *Memory) Len() int {
	return memory.objects.Size()
}
