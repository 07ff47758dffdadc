package frummy

import (
	"embed"
	"io/fs"
)

//go:embed views public
var embeddedFS embed.FS

// EmbeddedAssets exposes the baked in views and public assets so builds
// can run without the source tree on disk.
func EmbeddedAssets() fs.FS {
	return embeddedFS
}
