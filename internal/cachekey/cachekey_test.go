package cachekey_test

import (
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/cirruslabs/mocha/internal/cachekey"
	"github.com/stretchr/testify/require"
	"net/url"
	"regexp"
	"testing"
	"testing/quick"
)

func mustParse(t *testing.T, query url.Values) asset.Params {
	t.Helper()

	params, err := asset.ParseParams(query, asset.ParseOptions{})
	require.NoError(t, err)

	return params
}

func TestLayout(t *testing.T) {
	key := cachekey.Derive("photo.jpg", asset.Params{Width: 500, Format: asset.FormatWebP, Quality: 80})
	require.Regexp(t, regexp.MustCompile(`^cache/photo\.jpg\.[0-9a-f]{32}$`), key)

	assetPath, ok := cachekey.AssetPath(key)
	require.True(t, ok)
	require.Equal(t, "photo.jpg", assetPath)

	_, ok = cachekey.AssetPath("photo.jpg")
	require.False(t, ok)

	_, ok = cachekey.AssetPath("cache/photo.jpg")
	require.False(t, ok)
}

func TestDeterministic(t *testing.T) {
	// Same logical parameters, assembled in different order and with defaults spelled out
	first := mustParse(t, url.Values{"w": {"500"}, "format": {"webp"}})
	second := mustParse(t, url.Values{"format": {"WEBP"}, "q": {"80"}, "w": {"500"}})
	third, err := url.ParseQuery("q=80&w=500")
	require.NoError(t, err)

	require.Equal(t, cachekey.Derive("photo.jpg", first), cachekey.Derive("photo.jpg", second))
	require.Equal(t, cachekey.Derive("photo.jpg", first), cachekey.Derive("photo.jpg", mustParse(t, third)))
}

func TestStable(t *testing.T) {
	// Keys are persisted, so the derivation must never change between releases
	params := asset.Params{Width: 500, Format: asset.FormatWebP, Quality: 80}

	require.Equal(t, cachekey.Derive("photo.jpg", params), cachekey.Derive("photo.jpg", params))
	require.Equal(t, "d2eae7334ffd72b60774b4d437c01683", cachekey.Hash("photo.jpg", params))
	require.Equal(t, "cache/photo.jpg.d2eae7334ffd72b60774b4d437c01683", cachekey.Derive("photo.jpg", params))
}

func TestDistinct(t *testing.T) {
	base := asset.Params{Width: 500, Height: 300, Format: asset.FormatWebP, Quality: 80}

	variants := []asset.Params{
		{Width: 501, Height: 300, Format: asset.FormatWebP, Quality: 80},
		{Width: 500, Height: 0, Format: asset.FormatWebP, Quality: 80},
		{Width: 300, Height: 500, Format: asset.FormatWebP, Quality: 80},
		{Width: 500, Height: 300, Format: asset.FormatAVIF, Quality: 80},
		{Width: 500, Height: 300, Format: asset.FormatWebP, Quality: 81},
	}

	for _, variant := range variants {
		require.NotEqual(t, cachekey.Hash("photo.jpg", base), cachekey.Hash("photo.jpg", variant))
	}

	// The path participates in the hash, not just in the prefix
	require.NotEqual(t, cachekey.Hash("a.jpg", base), cachekey.Hash("b.jpg", base))
}

func TestDistinctProperty(t *testing.T) {
	require.NoError(t, quick.Check(func(path string, w1, w2, q1, q2 uint8) bool {
		first := asset.Params{Width: int(w1), Format: asset.FormatJPEG, Quality: int(q1)}
		second := asset.Params{Width: int(w2), Format: asset.FormatJPEG, Quality: int(q2)}

		if first == second {
			return cachekey.Derive(path, first) == cachekey.Derive(path, second)
		}

		return cachekey.Derive(path, first) != cachekey.Derive(path, second)
	}, &quick.Config{
		MaxCount: 10_000,
	}))
}
