//go:build !ui

package ui

import "io/fs"

// DistFS returns nil without the ui build tag; /ui/ is then not mounted and
// only the JSON API is served.
func DistFS() (fs.FS, error) {
	return nil, nil
}
