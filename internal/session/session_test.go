package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func testStores(t *testing.T, ttl time.Duration, c *clock) map[string]Store {
	t.Helper()

	mem := NewMemoryStore(ttl)
	mem.now = c.now

	lite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sessions.db"), ttl)
	require.NoError(t, err)
	lite.now = c.now
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]Store{"memory": mem, "sqlite": lite}
}

func TestStore_SaveLoad(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	for name, store := range testStores(t, time.Hour, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.Load(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, State{
				ID:            "s1",
				Persona:       "field_partner",
				CurrentAsset:  "AST-00042",
				CurrentRegion: "NORCAL",
				LastIntent:    "vegetation",
			}))

			st, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "field_partner", st.Persona)
			assert.Equal(t, "AST-00042", st.CurrentAsset)
			assert.Equal(t, "NORCAL", st.CurrentRegion)
			assert.Equal(t, "vegetation", st.LastIntent)
			assert.True(t, st.UpdatedAt.Equal(c.t))

			st.LastIntent = "fire_risk"
			require.NoError(t, store.Save(ctx, st))
			st, err = store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "fire_risk", st.LastIntent)

			require.NoError(t, store.Delete(ctx, "s1"))
			_, err = store.Load(ctx, "s1")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	for name, store := range testStores(t, time.Hour, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, State{ID: "old"}))

			c.t = c.t.Add(30 * time.Minute)
			require.NoError(t, store.Save(ctx, State{ID: "fresh"}))
			_, err := store.Load(ctx, "old")
			require.NoError(t, err, "within ttl")

			c.t = c.t.Add(45 * time.Minute)
			_, err = store.Load(ctx, "old")
			require.ErrorIs(t, err, ErrNotFound)
			_, err = store.Load(ctx, "fresh")
			require.NoError(t, err)

			c.t = c.t.Add(-75 * time.Minute)
		})
	}
}

func TestStore_Sweep(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	for name, store := range testStores(t, 0, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, State{ID: "a"}))
			require.NoError(t, store.Save(ctx, State{ID: "b"}))
			c.t = c.t.Add(time.Hour)
			require.NoError(t, store.Save(ctx, State{ID: "c"}))

			n, err := store.Sweep(ctx, c.t.Add(-time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			_, err = store.Load(ctx, "a")
			require.ErrorIs(t, err, ErrNotFound)
			_, err = store.Load(ctx, "c")
			require.NoError(t, err)

			c.t = c.t.Add(-time.Hour)
		})
	}
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	store := NewMemoryStore(time.Millisecond)
	require.NoError(t, store.Save(context.Background(), State{ID: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSweeper(ctx, store, 5*time.Millisecond, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
