// Package asset decides how a requested asset is served: which paths the
// transform engine understands, which MIME type an extension carries and
// which transform parameters a request asks for.
package asset

import (
	"path"
	"strings"
)

type Class int

const (
	PassThrough Class = iota
	Transformable
)

func (class Class) String() string {
	switch class {
	case Transformable:
		return "transformable"
	default:
		return "pass-through"
	}
}

const defaultContentType = "application/octet-stream"

//nolint:gochecknoglobals // lookup table
var classes = map[string]Class{
	"jpg":  Transformable,
	"jpeg": Transformable,
	"png":  Transformable,
	"webp": Transformable,
	"avif": Transformable,
}

//nolint:gochecknoglobals // lookup table
var contentTypes = map[string]string{
	// Images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"avif": "image/avif",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",

	// Video and audio
	"mp4":  "video/mp4",
	"m4v":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
	"m3u8": "application/vnd.apple.mpegurl",
	"ts":   "video/mp2t",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"ogg":  "audio/ogg",
	"wav":  "audio/wav",

	// Documents and web assets
	"pdf":   "application/pdf",
	"json":  "application/json",
	"txt":   "text/plain; charset=utf-8",
	"csv":   "text/csv; charset=utf-8",
	"html":  "text/html; charset=utf-8",
	"css":   "text/css; charset=utf-8",
	"js":    "text/javascript; charset=utf-8",
	"xml":   "application/xml",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"ttf":   "font/ttf",
	"otf":   "font/otf",

	// Archives
	"zip": "application/zip",
	"gz":  "application/gzip",
	"tar": "application/x-tar",
}

// Classify reports whether the asset at the given path can be transformed.
func Classify(assetPath string) Class {
	return classes[extension(assetPath)]
}

// ContentType infers the MIME type of the asset from its extension.
func ContentType(assetPath string) string {
	if contentType, ok := contentTypes[extension(assetPath)]; ok {
		return contentType
	}

	return defaultContentType
}

func extension(assetPath string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(assetPath), "."))
}
