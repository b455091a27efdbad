package asset

import (
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/samber/lo"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatAVIF Format = "avif"
)

const (
	QueryWidth   = "w"
	QueryHeight  = "h"
	QueryFormat  = "format"
	QueryQuality = "q"
)

const (
	DefaultFormat       = FormatWebP
	DefaultQuality      = 80
	DefaultMaxDimension = 2000
)

//nolint:gochecknoglobals // lookup table
var formatAliases = map[string]Format{
	"webp": FormatWebP,
	"jpeg": FormatJPEG,
	"jpg":  FormatJPEG,
	"png":  FormatPNG,
	"avif": FormatAVIF,
}

func (format Format) ContentType() string {
	return "image/" + string(format)
}

// Params is a validated, fully defaulted set of transform parameters.
// Zero Width or Height means the dimension is unconstrained.
type Params struct {
	Width   int
	Height  int
	Format  Format
	Quality int
}

type ParseOptions struct {
	MaxDimension int
}

// Sizeless reports whether the query carries none of the transform parameters.
func Sizeless(query url.Values) bool {
	return !lo.SomeBy([]string{QueryWidth, QueryHeight, QueryFormat, QueryQuality}, query.Has)
}

// ParseParams extracts transform parameters from the request query, applying
// defaults to absent ones. Malformed values are rejected rather than ignored,
// so that an unparsable dimension can never slip past the bound check.
func ParseParams(query url.Values, opts ParseOptions) (Params, error) {
	maxDimension := opts.MaxDimension
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}

	params := Params{
		Format:  DefaultFormat,
		Quality: DefaultQuality,
	}

	var err error

	if params.Width, err = parseDimension(query, QueryWidth, "width", maxDimension); err != nil {
		return Params{}, err
	}

	if params.Height, err = parseDimension(query, QueryHeight, "height", maxDimension); err != nil {
		return Params{}, err
	}

	if rawFormat := strings.TrimSpace(query.Get(QueryFormat)); rawFormat != "" {
		format, ok := formatAliases[strings.ToLower(rawFormat)]
		if !ok {
			return Params{}, failure.Validation("Unsupported format %q, expected one of: %s",
				rawFormat, strings.Join(SupportedFormats(), ", "))
		}

		params.Format = format
	}

	if rawQuality := strings.TrimSpace(query.Get(QueryQuality)); rawQuality != "" {
		quality, err := strconv.Atoi(rawQuality)
		if err != nil || quality < 1 || quality > 100 {
			return Params{}, failure.Validation("Invalid quality %q, expected an integer in [1, 100]",
				rawQuality)
		}

		params.Quality = quality
	}

	return params, nil
}

func SupportedFormats() []string {
	formats := lo.Uniq(lo.Map(lo.Values(formatAliases), func(format Format, _ int) string {
		return string(format)
	}))

	slices.Sort(formats)

	return formats
}

func parseDimension(query url.Values, key string, name string, maxDimension int) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, failure.Validation("Invalid %s %q, expected a positive integer", name, raw)
	}

	if value > maxDimension {
		return 0, failure.Validation("Image too large")
	}

	return value, nil
}
