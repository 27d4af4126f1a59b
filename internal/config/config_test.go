package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatal("expected true")
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
	if got := err.Error(); got != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	v, err := envDuration("TEST_DUR", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Seconds() != 5 {
		t.Fatalf("expected 5s, got %s", v)
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	_, err := envDuration("TEST_DUR_BAD", 0)
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
	if got := err.Error(); got != `TEST_DUR_BAD="five-seconds" is not a valid duration` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvFloatInvalid(t *testing.T) {
	t.Setenv("TEST_FLOAT_BAD", "fast")
	_, err := envFloat("TEST_FLOAT_BAD", 1)
	require.Error(t, err)
	assert.Equal(t, `TEST_FLOAT_BAD="fast" is not a valid number`, err.Error())
}

func TestLoadFailsOnInvalidPort(t *testing.T) {
	t.Setenv("VIGIL_PORT", "abc")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIGIL_PORT")
	assert.Contains(t, err.Error(), "abc")
}

func TestLoadFailsOnMultipleInvalid(t *testing.T) {
	t.Setenv("VIGIL_PORT", "abc")
	t.Setenv("VIGIL_RATE_LIMIT_BURST", "xyz")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIGIL_PORT")
	assert.Contains(t, err.Error(), "VIGIL_RATE_LIMIT_BURST")
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, cfg.DatabaseURL, cfg.NotifyURL)
	assert.Equal(t, "auto", cfg.SQLGenerator)
	assert.Equal(t, 1024, cfg.EmbeddingDimensions)
	assert.False(t, cfg.CortexConfigured())
}

func TestValidateRejectsUnknownGenerator(t *testing.T) {
	t.Setenv("VIGIL_SQL_GENERATOR", "magic")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIGIL_SQL_GENERATOR")
}

func TestCortexSettings(t *testing.T) {
	cfg := Config{SnowflakeAccount: "XY12345", SnowflakeUser: "svc", SnowflakePrivateKey: "/keys/rsa.p8"}
	assert.True(t, cfg.CortexConfigured())
	assert.Equal(t, "xy12345.snowflakecomputing.com", cfg.CortexHost())

	cfg.SnowflakeHost = "custom.host"
	assert.Equal(t, "custom.host", cfg.CortexHost())

	cfg = Config{SnowflakeHost: "h", SnowflakeOAuthFile: "/snowflake/session/token"}
	assert.True(t, cfg.CortexConfigured())
}
