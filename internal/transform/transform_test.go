package transform_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/cirruslabs/mocha/internal/transform"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"github.com/stretchr/testify/require"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"
)

func TestFitWidthOnly(t *testing.T) {
	out := transformPNG(t, 400, 200, asset.Params{Width: 100, Format: asset.FormatPNG, Quality: 80})

	requireDimensions(t, out, "png", 100, 50)
}

func TestFitHeightOnly(t *testing.T) {
	out := transformPNG(t, 400, 200, asset.Params{Height: 100, Format: asset.FormatPNG, Quality: 80})

	requireDimensions(t, out, "png", 200, 100)
}

func TestFitBoundingBox(t *testing.T) {
	out := transformPNG(t, 400, 200, asset.Params{Width: 100, Height: 100, Format: asset.FormatPNG, Quality: 80})

	requireDimensions(t, out, "png", 100, 50)
}

func TestNoUpscale(t *testing.T) {
	out := transformPNG(t, 40, 20, asset.Params{Width: 1000, Height: 1000, Format: asset.FormatPNG, Quality: 80})

	requireDimensions(t, out, "png", 40, 20)
}

func TestFormats(t *testing.T) {
	for _, format := range []asset.Format{asset.FormatJPEG, asset.FormatWebP, asset.FormatAVIF} {
		t.Run(string(format), func(t *testing.T) {
			out := transformPNG(t, 64, 32, asset.Params{Width: 32, Format: format, Quality: 75})

			requireDimensions(t, out, string(format), 32, 16)
		})
	}
}

func TestDecodeFormats(t *testing.T) {
	img := testImage(48, 24)

	for _, testCase := range []struct {
		name   string
		encode func(w io.Writer, img image.Image) error
	}{
		{"webp", func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, webp.Options{Quality: 90})
		}},
		{"avif", func(w io.Writer, img image.Image) error {
			return avif.Encode(w, img, avif.Options{Quality: 90, QualityAlpha: 90, Speed: 10})
		}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			var buf bytes.Buffer

			require.NoError(t, testCase.encode(&buf, img))

			out, err := transform.New().Transform(context.Background(), buf.Bytes(),
				asset.Params{Width: 24, Format: asset.FormatPNG, Quality: 80})
			require.NoError(t, err)

			requireDimensions(t, out, "png", 24, 12)
		})
	}
}

func TestForgedDimensions(t *testing.T) {
	// A tiny file whose header claims a huge image must be
	// rejected before any pixel memory is allocated
	forged := forgePNGDimensions(t, encodePNG(t, 1, 1), 65535, 65535)

	config, _, err := image.DecodeConfig(bytes.NewReader(forged))
	require.NoError(t, err)
	require.Equal(t, 65535, config.Width)

	_, err = transform.New().Transform(context.Background(), forged,
		asset.Params{Width: 10, Format: asset.FormatPNG, Quality: 80})
	require.Error(t, err)
	require.True(t, failure.IsTransformFailed(err))
	require.ErrorContains(t, err, "exceed the limit")
}

func TestMaxPixels(t *testing.T) {
	engine := transform.New(transform.WithMaxPixels(100 * 100))

	_, err := engine.Transform(context.Background(), encodePNG(t, 101, 100),
		asset.Params{Width: 10, Format: asset.FormatPNG, Quality: 80})
	require.Error(t, err)
	require.True(t, failure.IsTransformFailed(err))

	out, err := engine.Transform(context.Background(), encodePNG(t, 100, 100),
		asset.Params{Width: 10, Format: asset.FormatPNG, Quality: 80})
	require.NoError(t, err)
	requireDimensions(t, out, "png", 10, 10)
}

func TestParseFilter(t *testing.T) {
	for _, name := range []string{"", "lanczos", "Catmull-Rom", "box", "nearest-neighbor"} {
		_, err := transform.ParseFilter(name)
		require.NoError(t, err, name)
	}

	_, err := transform.ParseFilter("bicubic-deluxe")
	require.Error(t, err)

	filter, err := transform.ParseFilter("box")
	require.NoError(t, err)

	out, err := transform.New(transform.WithFilter(filter), transform.WithAVIFSpeed(10)).Transform(
		context.Background(), encodePNG(t, 64, 64), asset.Params{Width: 16, Format: asset.FormatAVIF, Quality: 60})
	require.NoError(t, err)
	requireDimensions(t, out, "avif", 16, 16)
}

func TestGarbageInput(t *testing.T) {
	_, err := transform.New().Transform(context.Background(), []byte("definitely not an image"),
		asset.Params{Format: asset.FormatPNG, Quality: 80})
	require.Error(t, err)
	require.True(t, failure.IsTransformFailed(err))
}

func TestDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	<-ctx.Done()

	_, err := transform.New().Transform(ctx, encodePNG(t, 2000, 2000),
		asset.Params{Width: 10, Format: asset.FormatPNG, Quality: 80})
	require.Error(t, err)
	require.True(t, failure.IsTransformFailed(err))
}

func transformPNG(t *testing.T, width int, height int, params asset.Params) []byte {
	t.Helper()

	out, err := transform.New().Transform(context.Background(), encodePNG(t, width, height), params)
	require.NoError(t, err)

	return out
}

func testImage(width int, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}

	return img
}

func encodePNG(t *testing.T, width int, height int) []byte {
	t.Helper()

	var buf bytes.Buffer

	require.NoError(t, png.Encode(&buf, testImage(width, height)))

	return buf.Bytes()
}

// forgePNGDimensions rewrites the width and height in the IHDR chunk,
// which immediately follows the 8-byte PNG signature, and fixes up its CRC.
func forgePNGDimensions(t *testing.T, data []byte, width uint32, height uint32) []byte {
	t.Helper()

	const (
		ihdrType = 12
		ihdrData = 16
		ihdrCRC  = ihdrData + 13
	)

	require.Equal(t, "IHDR", string(data[ihdrType:ihdrData]))

	forged := bytes.Clone(data)

	binary.BigEndian.PutUint32(forged[ihdrData:], width)
	binary.BigEndian.PutUint32(forged[ihdrData+4:], height)
	binary.BigEndian.PutUint32(forged[ihdrCRC:], crc32.ChecksumIEEE(forged[ihdrType:ihdrCRC]))

	return forged
}

func requireDimensions(t *testing.T, data []byte, expectedFormat string, expectedWidth int, expectedHeight int) {
	t.Helper()

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, expectedFormat, format)
	require.Equal(t, expectedWidth, config.Width)
	require.Equal(t, expectedHeight, config.Height)
}
