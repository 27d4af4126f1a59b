package ratelimit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/ratelimit"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}
func (failingLimiter) Close() error { return nil }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestMiddlewareLimitsPrefix(t *testing.T) {
	lim := ratelimit.NewMemoryLimiter(0.001, 2)
	t.Cleanup(func() { _ = lim.Close() })

	reqID := func(*http.Request) string { return "req-1" }
	h := ratelimit.Middleware(lim, "/chat", ratelimit.IPKeyFunc, reqID, discard())(okHandler())

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("/chat").Code)
	assert.Equal(t, http.StatusOK, do("/chat/stream").Code)

	rec := do("/chat")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.Contains(t, rec.Body.String(), "req-1")

	// Paths outside the prefix are never limited.
	assert.Equal(t, http.StatusOK, do("/assets").Code)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	h := ratelimit.Middleware(failingLimiter{}, "/chat", ratelimit.IPKeyFunc, nil, discard())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareNilLimiter(t *testing.T) {
	h := ratelimit.Middleware(nil, "/chat", ratelimit.IPKeyFunc, nil, discard())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4242"
	assert.Equal(t, "192.168.1.9", ratelimit.IPKeyFunc(req))

	req.RemoteAddr = "[::1]:80"
	assert.Equal(t, "[::1]", ratelimit.IPKeyFunc(req))
}
