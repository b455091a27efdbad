// Package fsys implements a read-only origin store over a filesystem,
// typically a local directory of original assets.
package fsys

import (
	"context"
	"errors"
	"fmt"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"io"
	"os"
	"path/filepath"
)

type FS struct {
	fs billy.Filesystem
}

// New returns an origin store serving files under dir. Paths (including
// symbolic links) that resolve outside of dir are treated as absent.
func New(dir string) (*FS, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open origin directory %q: %w", dir, err)
	}

	if !fi.IsDir() {
		return nil, fmt.Errorf("origin directory %q is not a directory", dir)
	}

	return NewFromFilesystem(osfs.New(dir, osfs.WithBoundOS())), nil
}

func NewFromFilesystem(fs billy.Filesystem) *FS {
	return &FS{
		fs: fs,
	}
}

func (fsys *FS) Exists(_ context.Context, key string) (bool, error) {
	fi, err := fsys.fs.Stat(key)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, store.Unavailable(err, "check existence of", key)
	}

	return !fi.IsDir(), nil
}

// Get returns the file contents. The filesystem carries no metadata, so the
// consumer is expected to infer the content type from the key's extension.
func (fsys *FS) Get(_ context.Context, key string) (io.ReadCloser, store.Metadata, error) {
	fi, err := fsys.fs.Stat(key)
	if err != nil {
		if isNotFound(err) {
			return nil, store.Metadata{}, store.ErrNotFound
		}

		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	if fi.IsDir() {
		return nil, store.Metadata{}, store.ErrNotFound
	}

	file, err := fsys.fs.Open(key)
	if err != nil {
		if isNotFound(err) {
			return nil, store.Metadata{}, store.ErrNotFound
		}

		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	return file, store.Metadata{}, nil
}

func isNotFound(err error) bool {
	// BoundOS refuses paths that escape the base directory, which
	// from the consumer's perspective is the same as being absent
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission)
}
