package asset

import (
	"github.com/cirruslabs/mocha/internal/failure"
	"path"
	"strings"
)

// NormalizePath turns a decoded route path into a store-relative asset path:
// leading slashes are stripped and "." and ".." segments are resolved.
func NormalizePath(raw string) (string, error) {
	trimmed := strings.TrimLeft(raw, "/")
	if trimmed == "" {
		return "", failure.NotFound("empty asset path")
	}

	cleaned := path.Clean("/" + trimmed)[1:]
	if cleaned == "" {
		return "", failure.NotFound("empty asset path")
	}

	// path.Clean() on a rooted path never leaves ".." behind, but a
	// trailing slash would name a directory rather than an object
	if strings.HasSuffix(trimmed, "/") {
		return "", failure.NotFound("asset path %q refers to a directory", raw)
	}

	return cleaned, nil
}
