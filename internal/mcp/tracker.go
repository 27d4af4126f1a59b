package mcp

import (
	"sync"
	"time"
)

// sessionTracker maps MCP client sessions to copilot session ids so an
// agent's follow-up questions keep their conversation context.
type sessionTracker struct {
	mu       sync.Mutex
	sessions map[string]trackedSession
	window   time.Duration
}

type trackedSession struct {
	chatID   string
	lastSeen time.Time
}

func newSessionTracker(window time.Duration) *sessionTracker {
	return &sessionTracker{
		sessions: make(map[string]trackedSession),
		window:   window,
	}
}

// Record remembers the copilot session used by an MCP session.
func (t *sessionTracker) Record(mcpSession, chatID string, now time.Time) {
	if mcpSession == "" || chatID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[mcpSession] = trackedSession{chatID: chatID, lastSeen: now}

	if len(t.sessions) > 1000 {
		t.purgeStale(now)
	}
}

// Lookup returns the copilot session for an MCP session seen within the
// window.
func (t *sessionTracker) Lookup(mcpSession string, now time.Time) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[mcpSession]
	if !ok {
		return "", false
	}
	if now.Sub(s.lastSeen) > t.window {
		delete(t.sessions, mcpSession)
		return "", false
	}
	return s.chatID, true
}

// purgeStale must be called with mu held.
func (t *sessionTracker) purgeStale(now time.Time) {
	for k, s := range t.sessions {
		if now.Sub(s.lastSeen) > t.window {
			delete(t.sessions, k)
		}
	}
}
