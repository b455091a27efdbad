package minio_test

import (
	"bytes"
	"context"
	"github.com/cirruslabs/mocha/internal/store"
	"github.com/cirruslabs/mocha/internal/store/minio"
	"github.com/cirruslabs/mocha/internal/testutil"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func TestSimple(t *testing.T) {
	ctx := context.Background()

	minioStore := minio.New(testutil.MinIO(t))
	require.NoError(t, minioStore.Connect(ctx))

	exists, err := minioStore.Exists(ctx, "photos/photo.jpg")
	require.NoError(t, err)
	require.False(t, exists)

	_, _, err = minioStore.Get(ctx, "photos/photo.jpg")
	require.ErrorIs(t, err, store.ErrNotFound)

	metadata := store.Metadata{
		ContentType:  "image/jpeg",
		CacheControl: "public, max-age=31536000, immutable",
	}

	require.NoError(t, minioStore.Put(ctx, "photos/photo.jpg", metadata, bytes.NewReader([]byte("jpeg bytes"))))

	exists, err = minioStore.Exists(ctx, "photos/photo.jpg")
	require.NoError(t, err)
	require.True(t, exists)

	reader, actualMetadata, err := minioStore.Get(ctx, "photos/photo.jpg")
	require.NoError(t, err)
	require.Equal(t, metadata, actualMetadata)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(content))
	require.NoError(t, reader.Close())

	// Overwrites are fine
	require.NoError(t, minioStore.Put(ctx, "photos/photo.jpg", metadata, bytes.NewReader([]byte("other"))))
}
