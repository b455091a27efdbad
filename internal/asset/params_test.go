package asset_test

import (
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/stretchr/testify/require"
	"net/url"
	"testing"
)

func parse(t *testing.T, rawQuery string) (asset.Params, error) {
	t.Helper()

	query, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)

	return asset.ParseParams(query, asset.ParseOptions{})
}

func TestParseParamsDefaults(t *testing.T) {
	params, err := parse(t, "")
	require.NoError(t, err)
	require.Equal(t, asset.Params{Format: asset.FormatWebP, Quality: 80}, params)

	params, err = parse(t, "w=500&format=webp")
	require.NoError(t, err)
	require.Equal(t, asset.Params{Width: 500, Format: asset.FormatWebP, Quality: 80}, params)

	params, err = parse(t, "w=&h=")
	require.NoError(t, err)
	require.Equal(t, asset.Params{Format: asset.FormatWebP, Quality: 80}, params)
}

func TestParseParamsExplicit(t *testing.T) {
	params, err := parse(t, "w=2000&h=1&format=JPG&q=100")
	require.NoError(t, err)
	require.Equal(t, asset.Params{Width: 2000, Height: 1, Format: asset.FormatJPEG, Quality: 100}, params)
	require.Equal(t, "image/jpeg", params.Format.ContentType())
}

func TestParseParamsBounds(t *testing.T) {
	for _, rawQuery := range []string{"w=2001", "h=2500", "w=3000", "w=100&h=99999"} {
		_, err := parse(t, rawQuery)
		require.True(t, failure.IsValidation(err), rawQuery)
		require.Equal(t, "Image too large", failure.PublicMessage(err))
	}

	params, err := asset.ParseParams(url.Values{"w": {"3000"}}, asset.ParseOptions{MaxDimension: 4000})
	require.NoError(t, err)
	require.Equal(t, 3000, params.Width)
}

func TestParseParamsMalformed(t *testing.T) {
	// None of these may silently become "no constraint"
	for _, rawQuery := range []string{"w=abc", "w=500px", "h=-1", "w=0", "w=1e9", "h=NaN",
		"w=99999999999999999999999", "q=0", "q=101", "q=high", "format=gif", "format=tiff"} {
		_, err := parse(t, rawQuery)
		require.True(t, failure.IsValidation(err), rawQuery)
	}
}

func TestSizeless(t *testing.T) {
	require.True(t, asset.Sizeless(url.Values{}))
	require.True(t, asset.Sizeless(url.Values{"utm_source": {"newsletter"}}))
	require.False(t, asset.Sizeless(url.Values{"w": {"100"}}))
	require.False(t, asset.Sizeless(url.Values{"format": {"png"}}))
	require.False(t, asset.Sizeless(url.Values{"q": {""}}))
}

func TestSupportedFormats(t *testing.T) {
	require.Equal(t, []string{"avif", "jpeg", "png", "webp"}, asset.SupportedFormats())
}
