// Package auth guards write endpoints with an operator API key.
//
// The key itself is never stored: the server is configured with an
// Argon2id hash (see HashAPIKey) and compares presented keys against it.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"
)

// Errors returned by Guard.Check.
var (
	ErrMissingKey = errors.New("auth: missing api key")
	ErrInvalidKey = errors.New("auth: invalid api key")
)

// HeaderAPIKey is the request header carrying the operator key.
const HeaderAPIKey = "X-API-Key"

// Guard verifies presented API keys against a configured hash.
// A Guard with an empty hash admits every request.
type Guard struct {
	hash string

	// keys that already passed VerifyAPIKey
	mu       sync.Mutex
	verified map[string]struct{}
}

// NewGuard creates a Guard for the encoded hash produced by HashAPIKey.
func NewGuard(hash string) *Guard {
	return &Guard{hash: strings.TrimSpace(hash), verified: make(map[string]struct{})}
}

// Enabled reports whether a key hash is configured.
func (g *Guard) Enabled() bool {
	return g != nil && g.hash != ""
}

// Check validates the key presented on r.
func (g *Guard) Check(r *http.Request) error {
	if !g.Enabled() {
		return nil
	}
	key := KeyFromRequest(r)
	if key == "" {
		DummyVerify()
		return ErrMissingKey
	}

	g.mu.Lock()
	_, ok := g.verified[key]
	g.mu.Unlock()
	if ok {
		return nil
	}

	valid, err := VerifyAPIKey(key, g.hash)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidKey
	}
	g.mu.Lock()
	g.verified[key] = struct{}{}
	g.mu.Unlock()
	return nil
}

// KeyFromRequest returns the key from the X-API-Key header, or from an
// "Authorization: Bearer" header when X-API-Key is absent.
func KeyFromRequest(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); k != "" {
		return k
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
