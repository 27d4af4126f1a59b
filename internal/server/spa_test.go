package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func testUIFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":             {Data: []byte("<html>vigil</html>")},
		"assets/index-abc123.js": {Data: []byte("console.log('vigil')")},
		"favicon.ico":            {Data: []byte("ico")},
	}
}

func TestSPAHandler(t *testing.T) {
	h := http.StripPrefix("/ui", newSPAHandler(testUIFS()))

	tests := []struct {
		name     string
		path     string
		status   int
		body     string
		cacheCtl string
	}{
		{"index", "/ui/", http.StatusOK, "<html>vigil</html>", "no-cache, no-store, must-revalidate"},
		{"client route", "/ui/map/region/NORCAL", http.StatusOK, "<html>vigil</html>", "no-cache, no-store, must-revalidate"},
		{"hashed asset", "/ui/assets/index-abc123.js", http.StatusOK, "console.log('vigil')", "public, max-age=31536000, immutable"},
		{"plain file", "/ui/favicon.ico", http.StatusOK, "ico", "public, max-age=3600"},
		{"missing asset", "/ui/assets/gone-999.js", http.StatusNotFound, "NOT_FOUND", ""},
		{"missing file", "/ui/robots.txt", http.StatusNotFound, "NOT_FOUND", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			if tt.cacheCtl != "" {
				assert.Equal(t, tt.cacheCtl, rec.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestIsStaticPath(t *testing.T) {
	assert.True(t, isStaticPath("/assets/index-abc123.js"))
	assert.True(t, isStaticPath("/assets/chunk"))
	assert.True(t, isStaticPath("/favicon.ico"))
	assert.False(t, isStaticPath("/"))
	assert.False(t, isStaticPath("/work-orders"))
	assert.False(t, isStaticPath("/map/region/NORCAL"))
}

func TestSetCacheHeaders(t *testing.T) {
	tests := []struct {
		urlPath string
		want    string
	}{
		{"/assets/index-abc123.js", "public, max-age=31536000, immutable"},
		{"/assets/style-def456.css", "public, max-age=31536000, immutable"},
		{"/favicon.ico", "public, max-age=3600"},
		{"/images/logo.png", "public, max-age=3600"},
	}
	for _, tt := range tests {
		t.Run(tt.urlPath, func(t *testing.T) {
			w := httptest.NewRecorder()
			setCacheHeaders(w, tt.urlPath)
			assert.Equal(t, tt.want, w.Header().Get("Cache-Control"))
		})
	}
}
