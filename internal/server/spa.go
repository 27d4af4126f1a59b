package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/vigil-grid/vigil/internal/model"
)

// spaHandler serves the embedded dashboard build under /ui/ and falls back
// to index.html for client-side routes.
type spaHandler struct {
	fs     http.FileSystem
	static http.Handler
}

func newSPAHandler(fsys fs.FS) http.Handler {
	httpFS := http.FS(fsys)
	return &spaHandler{
		fs:     httpFS,
		static: http.FileServer(httpFS),
	}
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean("/" + r.URL.Path)

	if urlPath != "/" {
		if f, err := h.fs.Open(urlPath); err == nil {
			_ = f.Close()
			setCacheHeaders(w, urlPath)
			h.static.ServeHTTP(w, r)
			return
		}
		// A missing file is a 404; only extensionless paths are routes.
		if isStaticPath(urlPath) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "file not found")
			return
		}
	}

	r.URL.Path = "/"
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.static.ServeHTTP(w, r)
}

// isStaticPath reports whether p names a file rather than a dashboard route.
func isStaticPath(p string) bool {
	return strings.HasPrefix(p, "/assets/") || path.Ext(p) != ""
}

// setCacheHeaders caches Vite's hashed assets/ output for a year and
// everything else for an hour.
func setCacheHeaders(w http.ResponseWriter, urlPath string) {
	if strings.HasPrefix(urlPath, "/assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
}
