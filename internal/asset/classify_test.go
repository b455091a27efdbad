package asset_test

import (
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestClassify(t *testing.T) {
	for _, path := range []string{"photo.jpg", "a/b/photo.JPEG", "logo.png", "hero.WebP", "x.avif"} {
		require.Equal(t, asset.Transformable, asset.Classify(path), path)
	}

	for _, path := range []string{"clip.mp4", "doc.pdf", "archive.zip", "README", "photo.jpg.bak",
		"animation.gif", "vector.svg", "dir.png/file"} {
		require.Equal(t, asset.PassThrough, asset.Classify(path), path)
	}
}

func TestContentType(t *testing.T) {
	require.Equal(t, "video/mp4", asset.ContentType("clip.mp4"))
	require.Equal(t, "image/jpeg", asset.ContentType("photo.JPG"))
	require.Equal(t, "application/pdf", asset.ContentType("docs/manual.pdf"))
	require.Equal(t, "application/octet-stream", asset.ContentType("blob.unknownext"))
	require.Equal(t, "application/octet-stream", asset.ContentType("Makefile"))
}

func TestNormalizePath(t *testing.T) {
	normalized, err := asset.NormalizePath("/photo.jpg")
	require.NoError(t, err)
	require.Equal(t, "photo.jpg", normalized)

	normalized, err = asset.NormalizePath("///nested//dir/./photo.jpg")
	require.NoError(t, err)
	require.Equal(t, "nested/dir/photo.jpg", normalized)

	// Traversal can't escape the store root
	normalized, err = asset.NormalizePath("/../../etc/passwd")
	require.NoError(t, err)
	require.Equal(t, "etc/passwd", normalized)

	for _, raw := range []string{"", "/", "///", "/.", "/dir/"} {
		_, err := asset.NormalizePath(raw)
		require.Error(t, err, raw)
	}
}
