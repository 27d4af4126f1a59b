// Package session keeps per-conversation copilot state: the selected
// persona, the asset and region the user is talking about, the last
// classified intent, and the agent thread to continue. State expires after
// a period of inactivity.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// State is the conversation context for one session.
type State struct {
	ID            string    `json:"id"`
	Persona       string    `json:"persona"`
	CurrentAsset  string    `json:"current_asset,omitempty"`
	CurrentRegion string    `json:"current_region,omitempty"`
	LastIntent    string    `json:"last_intent,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store persists session state. Implementations must be safe for
// concurrent use.
type Store interface {
	// Load returns ErrNotFound for unknown or expired sessions.
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, id string) error
	// Sweep removes sessions idle since before cutoff and reports how many.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

func expired(st State, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(st.UpdatedAt) > ttl
}

// RunSweeper removes idle sessions every interval until ctx is done.
func RunSweeper(ctx context.Context, store Store, interval, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.Sweep(ctx, now.Add(-ttl))
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
