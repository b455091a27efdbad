package transform

import (
	"fmt"
	"github.com/disintegration/imaging"
	"github.com/samber/lo"
	"slices"
	"strings"
)

type Option func(engine *Imaging)

func WithFilter(filter imaging.ResampleFilter) Option {
	return func(engine *Imaging) {
		engine.filter = filter
	}
}

// WithAVIFSpeed sets the AVIF encoder speed, from 0 (slowest) to 10 (fastest).
func WithAVIFSpeed(speed int) Option {
	return func(engine *Imaging) {
		if speed >= 0 && speed <= 10 {
			engine.avifSpeed = speed
		}
	}
}

// WithMaxPixels limits width x height of the images that are decoded.
func WithMaxPixels(maxPixels uint64) Option {
	return func(engine *Imaging) {
		if maxPixels > 0 {
			engine.maxPixels = maxPixels
		}
	}
}

//nolint:gochecknoglobals // lookup table
var filters = map[string]imaging.ResampleFilter{
	"lanczos":            imaging.Lanczos,
	"catmull-rom":        imaging.CatmullRom,
	"mitchell-netravali": imaging.MitchellNetravali,
	"linear":             imaging.Linear,
	"box":                imaging.Box,
	"nearest-neighbor":   imaging.NearestNeighbor,
}

// ParseFilter resolves a resampling filter by name,
// an empty name resolves to Lanczos.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	if name == "" {
		return imaging.Lanczos, nil
	}

	filter, ok := filters[strings.ToLower(name)]
	if !ok {
		names := lo.Keys(filters)
		slices.Sort(names)

		return imaging.ResampleFilter{}, fmt.Errorf("unsupported resampling filter %q, expected one of: %s",
			name, strings.Join(names, ", "))
	}

	return filter, nil
}
