package run

import (
	"bytes"
	"context"
	"github.com/cirruslabs/mocha/internal/asset"
	configpkg "github.com/cirruslabs/mocha/internal/config"
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/cirruslabs/mocha/internal/store/disk"
	"github.com/cirruslabs/mocha/internal/store/fsys"
	"github.com/cirruslabs/mocha/internal/store/memory"
	"github.com/cirruslabs/mocha/internal/store/noop"
	"github.com/cirruslabs/mocha/internal/store/upstream"
	"github.com/stretchr/testify/require"
	"image"
	"image/png"
	"testing"
)

func TestListenAddr(t *testing.T) {
	t.Setenv("PORT", "")
	require.Equal(t, ":8080", listenAddr(""))

	t.Setenv("PORT", "3000")
	require.Equal(t, ":3000", listenAddr(""))
	require.Equal(t, "127.0.0.1:9000", listenAddr("127.0.0.1:9000"))
}

func TestNewOrigin(t *testing.T) {
	origin, err := newOrigin(configpkg.Origin{Dir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &fsys.FS{}, origin)

	origin, err = newOrigin(configpkg.Origin{Upstream: &configpkg.Upstream{URL: "https://assets.example.com"}})
	require.NoError(t, err)
	require.IsType(t, &upstream.Upstream{}, origin)

	_, err = newOrigin(configpkg.Origin{Upstream: &configpkg.Upstream{URL: "ftp://assets.example.com"}})
	require.Error(t, err)
}

func TestNewCache(t *testing.T) {
	cache, err := newCache(configpkg.Cache{})
	require.NoError(t, err)
	require.IsType(t, &memory.Memory{}, cache)

	cache, err = newCache(configpkg.Cache{None: true})
	require.NoError(t, err)
	require.IsType(t, &noop.NoOp{}, cache)

	cache, err = newCache(configpkg.Cache{Disk: &configpkg.Disk{Dir: t.TempDir(), Limit: "1GB"}})
	require.NoError(t, err)
	require.IsType(t, &disk.Disk{}, cache)

	_, err = newCache(configpkg.Cache{Disk: &configpkg.Disk{Dir: t.TempDir(), Limit: "plenty"}})
	require.Error(t, err)
}

func TestNewEngine(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 20, 20))))

	avifSpeed := 10

	engine, err := newEngine(configpkg.Transform{
		Filter:    "nearest-neighbor",
		AVIFSpeed: &avifSpeed,
		MaxPixels: 400,
	})
	require.NoError(t, err)

	result, err := engine.Transform(context.Background(), buf.Bytes(),
		asset.Params{Width: 10, Format: asset.FormatAVIF, Quality: asset.DefaultQuality})
	require.NoError(t, err)
	require.NotEmpty(t, result)

	engine, err = newEngine(configpkg.Transform{MaxPixels: 399})
	require.NoError(t, err)

	_, err = engine.Transform(context.Background(), buf.Bytes(),
		asset.Params{Width: 10, Format: asset.FormatPNG, Quality: asset.DefaultQuality})
	require.True(t, failure.IsTransformFailed(err))

	_, err = newEngine(configpkg.Transform{Filter: "bicubic"})
	require.ErrorContains(t, err, "transform.filter")
}
