// Package cachekey derives the storage key of a transformed artifact.
//
// Keys have the form "cache/<asset path>.<hash>", where the hash covers the
// asset path and every transform parameter. The parameters are serialized
// using CBOR Core Deterministic Encoding[1], so the key only depends on the
// parameter values and never on how the request spelled or ordered them.
//
// [1]: https://www.rfc-editor.org/rfc/rfc8949.html#section-4.2.1
package cachekey

import (
	"encoding/hex"
	"fmt"
	"github.com/cirruslabs/mocha/internal/asset"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"strings"
)

const (
	Prefix = "cache/"

	// 128 bits of BLAKE3 output is plenty for a global identifier namespace
	hashBytes = 16
)

type canonical struct {
	Path    string `cbor:"1,keyasint"`
	Width   int    `cbor:"2,keyasint"`
	Height  int    `cbor:"3,keyasint"`
	Format  string `cbor:"4,keyasint"`
	Quality int    `cbor:"5,keyasint"`
}

//nolint:gochecknoglobals // immutable and safe for concurrent use
var encMode = mustEncMode()

// Derive maps an asset path and validated transform parameters to a cache key.
func Derive(assetPath string, params asset.Params) string {
	return Prefix + assetPath + "." + Hash(assetPath, params)
}

// Hash returns the hex-encoded hash suffix of the cache key.
func Hash(assetPath string, params asset.Params) string {
	encoded, err := encMode.Marshal(&canonical{
		Path:    assetPath,
		Width:   params.Width,
		Height:  params.Height,
		Format:  string(params.Format),
		Quality: params.Quality,
	})
	if err != nil {
		// a struct of strings and integers always encodes
		panic(fmt.Sprintf("failed to encode cache key parameters: %v", err))
	}

	sum := blake3.Sum256(encoded)

	return hex.EncodeToString(sum[:hashBytes])
}

// AssetPath recovers the asset path from a cache key, which is handy
// when listing the cache store.
func AssetPath(key string) (string, bool) {
	withoutPrefix, ok := strings.CutPrefix(key, Prefix)
	if !ok {
		return "", false
	}

	idx := strings.LastIndexByte(withoutPrefix, '.')
	if idx <= 0 || len(withoutPrefix)-idx-1 != hex.EncodedLen(hashBytes) {
		return "", false
	}

	return withoutPrefix[:idx], true
}

func mustEncMode() cbor.EncMode {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	return encMode
}
