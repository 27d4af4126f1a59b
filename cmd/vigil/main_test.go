package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/auth"
)

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortDigest("v1:0123456789abcdef"))
	assert.Equal(t, "abc", shortDigest("v1:abc"))
	assert.Equal(t, "", shortDigest(""))
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := t.Context()
	assert.True(t, newLogger("debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger("warn").Enabled(ctx, slog.LevelInfo))
	assert.True(t, newLogger("bogus").Enabled(ctx, slog.LevelInfo), "unknown level falls back to info")
	assert.False(t, newLogger("").Enabled(ctx, slog.LevelDebug))
}

func TestHashKeyCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("operator-secret\n"))
	rootCmd.SetArgs([]string{"hash-key"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	ok, err := auth.VerifyAPIKey("operator-secret", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "vigil dev ("))
}

func TestExecuteReportsErrors(t *testing.T) {
	var stderr bytes.Buffer
	rootCmd.SetArgs([]string{"hash-key", "one", "two"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.Equal(t, 1, execute(&stderr))
	assert.Contains(t, stderr.String(), "Error: accepts at most 1 arg(s), received 2")
}

func TestExecuteSucceeds(t *testing.T) {
	var stderr, out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	assert.Equal(t, 0, execute(&stderr))
	assert.Empty(t, stderr.String())
}
