// Package transform re-encodes raster images: it decodes the original,
// scales it down to fit the requested bounding box and encodes the result
// in the requested format and quality.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"image"
	"io"
)

const (
	defaultAVIFSpeed = 8

	// DefaultMaxPixels limits the decoded size of an image to 16383x16383 pixels
	DefaultMaxPixels = 0x3FFF * 0x3FFF
)

type Engine interface {
	Transform(ctx context.Context, src []byte, params asset.Params) ([]byte, error)
}

type Imaging struct {
	filter    imaging.ResampleFilter
	avifSpeed int
	maxPixels uint64
}

func New(opts ...Option) *Imaging {
	engine := &Imaging{
		filter:    imaging.Lanczos,
		avifSpeed: defaultAVIFSpeed,
		maxPixels: DefaultMaxPixels,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

type result struct {
	data []byte
	err  error
}

// Transform runs the conversion in a separate goroutine so that it can be
// abandoned once the context is done. The goroutine itself runs to completion.
func (engine *Imaging) Transform(ctx context.Context, src []byte, params asset.Params) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.TransformFailed(err, "image transformation was cancelled")
	}

	resultCh := make(chan result, 1)

	go func() {
		data, err := engine.transform(src, params)

		resultCh <- result{data: data, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, failure.TransformFailed(res.err, "failed to transform image")
		}

		return res.data, nil
	case <-ctx.Done():
		return nil, failure.TransformFailed(ctx.Err(), "image transformation did not finish in time")
	}
}

func (engine *Imaging) transform(src []byte, params asset.Params) ([]byte, error) {
	// Memory needed for decoding depends on the dimensions claimed
	// by the image header rather than on the size of the file
	config, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("image has invalid dimensions %dx%d", config.Width, config.Height)
	}

	if pixels := uint64(config.Width) * uint64(config.Height); pixels > engine.maxPixels {
		return nil, fmt.Errorf("image dimensions %dx%d exceed the limit of %d pixels",
			config.Width, config.Height, engine.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = engine.fit(img, params.Width, params.Height)

	var buf bytes.Buffer

	if err := encode(&buf, img, params.Format, params.Quality, engine.avifSpeed); err != nil {
		return nil, fmt.Errorf("failed to encode image as %s: %w", params.Format, err)
	}

	return buf.Bytes(), nil
}

// fit scales the image down so that it fits into a width x height box
// while preserving the aspect ratio. An absent dimension is unconstrained
// and images that already fit are never enlarged.
func (engine *Imaging) fit(img image.Image, width int, height int) image.Image {
	bounds := img.Bounds()

	if width == 0 {
		width = bounds.Dx()
	}

	if height == 0 {
		height = bounds.Dy()
	}

	if bounds.Dx() <= width && bounds.Dy() <= height {
		return img
	}

	return imaging.Fit(img, width, height, engine.filter)
}

func encode(w io.Writer, img image.Image, format asset.Format, quality int, avifSpeed int) error {
	switch format {
	case asset.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case asset.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case asset.FormatWebP:
		return webp.Encode(w, img, webp.Options{Quality: quality})
	case asset.FormatAVIF:
		return avif.Encode(w, img, avif.Options{
			Quality:      quality,
			QualityAlpha: quality,
			Speed:        avifSpeed,
		})
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
