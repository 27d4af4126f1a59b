package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/auth"
)

func TestHashAndVerifyAPIKey(t *testing.T) {
	hash, err := auth.HashAPIKey("field-ops-key")
	require.NoError(t, err)
	assert.Contains(t, hash, "$")

	ok, err := auth.VerifyAPIKey("field-ops-key", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.VerifyAPIKey("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = auth.VerifyAPIKey("field-ops-key", "no-separator")
	assert.Error(t, err)
}

func TestHashAPIKeyUsesFreshSalt(t *testing.T) {
	a, err := auth.HashAPIKey("same")
	require.NoError(t, err)
	b, err := auth.HashAPIKey("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestKeyFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/work-orders", nil)
	assert.Empty(t, auth.KeyFromRequest(req))

	req.Header.Set("Authorization", "Bearer tok")
	assert.Equal(t, "tok", auth.KeyFromRequest(req))

	req.Header.Set(auth.HeaderAPIKey, "hdr")
	assert.Equal(t, "hdr", auth.KeyFromRequest(req))
}

func TestGuard(t *testing.T) {
	hash, err := auth.HashAPIKey("secret")
	require.NoError(t, err)
	g := auth.NewGuard(hash)
	require.True(t, g.Enabled())

	req := httptest.NewRequest(http.MethodPost, "/work-orders", nil)
	assert.ErrorIs(t, g.Check(req), auth.ErrMissingKey)

	req.Header.Set(auth.HeaderAPIKey, "nope")
	assert.ErrorIs(t, g.Check(req), auth.ErrInvalidKey)

	req.Header.Set(auth.HeaderAPIKey, "secret")
	assert.NoError(t, g.Check(req))
	// Second check hits the verified cache.
	assert.NoError(t, g.Check(req))
}

func TestGuardDisabled(t *testing.T) {
	g := auth.NewGuard("")
	assert.False(t, g.Enabled())
	assert.NoError(t, g.Check(httptest.NewRequest(http.MethodPost, "/", nil)))

	var nilGuard *auth.Guard
	assert.False(t, nilGuard.Enabled())
	assert.NoError(t, nilGuard.Check(httptest.NewRequest(http.MethodPost, "/", nil)))
}
