package fsys_test

import (
	"context"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/cirruslabs/mocha/internal/store/fsys"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "nested/clip.mp4", []byte("mp4 bytes"), 0600))

	origin := fsys.NewFromFilesystem(fs)

	exists, err := origin.Exists(ctx, "nested/clip.mp4")
	require.NoError(t, err)
	require.True(t, exists)

	reader, metadata, err := origin.Get(ctx, "nested/clip.mp4")
	require.NoError(t, err)
	require.Empty(t, metadata.ContentType)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "mp4 bytes", string(content))
	require.NoError(t, reader.Close())

	// Directories are not objects
	exists, err = origin.Exists(ctx, "nested")
	require.NoError(t, err)
	require.False(t, exists)

	_, _, err = origin.Get(ctx, "nested")
	require.ErrorIs(t, err, store.ErrNotFound)

	exists, err = origin.Exists(ctx, "missing.png")
	require.NoError(t, err)
	require.False(t, exists)

	_, _, err = origin.Get(ctx, "missing.png")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()

	parentDir := t.TempDir()
	originDir := filepath.Join(parentDir, "origin")
	require.NoError(t, os.MkdirAll(originDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(originDir, "photo.jpg"), []byte("jpeg bytes"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(parentDir, "secret.txt"), []byte("secret"), 0600))

	origin, err := fsys.New(originDir)
	require.NoError(t, err)

	exists, err := origin.Exists(ctx, "photo.jpg")
	require.NoError(t, err)
	require.True(t, exists)

	// Files outside of the origin directory are not reachable
	exists, err = origin.Exists(ctx, "../secret.txt")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = fsys.New(filepath.Join(originDir, "photo.jpg"))
	require.Error(t, err)
}
