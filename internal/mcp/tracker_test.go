package mcp

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionTracker(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := newSessionTracker(time.Minute)

	_, ok := tr.Lookup("mcp-1", now)
	assert.False(t, ok)

	tr.Record("mcp-1", "chat-1", now)
	id, ok := tr.Lookup("mcp-1", now.Add(30*time.Second))
	assert.True(t, ok)
	assert.Equal(t, "chat-1", id)

	_, ok = tr.Lookup("mcp-1", now.Add(2*time.Minute))
	assert.False(t, ok, "expired sessions are forgotten")
}

func TestSessionTrackerIgnoresBlank(t *testing.T) {
	now := time.Now()
	tr := newSessionTracker(time.Minute)
	tr.Record("", "chat-1", now)
	tr.Record("mcp-1", "", now)
	assert.Empty(t, tr.sessions)
}

func TestSessionTrackerPurgesWhenLarge(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := newSessionTracker(time.Minute)
	for i := range 1000 {
		tr.Record(fmt.Sprintf("old-%d", i), "chat", now)
	}
	tr.Record("fresh", "chat", now.Add(time.Hour))
	assert.Len(t, tr.sessions, 1)
}
