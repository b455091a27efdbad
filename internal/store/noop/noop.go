// Package noop implements a cache store that never retains anything,
// which effectively disables caching of transformed artifacts.
package noop

import (
	"context"
	"github.com/cirruslabs/mocha/internal/store"
	"io"
)

type NoOp struct{}

func New() *NoOp {
	return &NoOp{}
}

func (noop *NoOp) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (noop *NoOp) Get(_ context.Context, _ string) (io.ReadCloser, store.Metadata, error) {
	return nil, store.Metadata{}, store.ErrNotFound
}

func (noop *NoOp) Put(_ context.Context, _ string, _ store.Metadata, blobReader io.Reader) error {
	_, err := io.Copy(io.Discard, blobReader)

	return err
}
