//go:build ui

// Package ui embeds the dashboard build when compiled with -tags ui.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the dashboard bundle rooted at dist/, served under /ui/.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
