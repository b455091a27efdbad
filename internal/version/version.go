package version

import "fmt"

//nolint:gochecknoglobals // set via -ldflags
var (
	Version     = "unknown"
	Commit      = "unknown"
	FullVersion = ""
)

//nolint:gochecknoinits // derived from the -ldflags values above
func init() {
	FullVersion = fmt.Sprintf("%s-%s", Version, Commit)
}
