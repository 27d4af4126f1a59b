package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(rate float64, burst int) (*MemoryLimiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	return newMemoryLimiter(rate, burst, clk.now), clk
}

func allowN(t *testing.T, m *MemoryLimiter, key string, n int) int {
	t.Helper()
	allowed := 0
	for range n {
		ok, err := m.Allow(context.Background(), key)
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	return allowed
}

func TestMemoryLimiterBurst(t *testing.T) {
	m, _ := newTestLimiter(10, 3)
	assert.Equal(t, 3, allowN(t, m, "k", 5))
}

func TestMemoryLimiterRefill(t *testing.T) {
	m, clk := newTestLimiter(2, 2)
	require.Equal(t, 2, allowN(t, m, "k", 2))
	assert.Equal(t, 0, allowN(t, m, "k", 1))

	clk.advance(500 * time.Millisecond)
	assert.Equal(t, 1, allowN(t, m, "k", 2))
}

func TestMemoryLimiterCapsAtBurst(t *testing.T) {
	m, clk := newTestLimiter(1000, 3)
	allowN(t, m, "k", 1)
	clk.advance(time.Hour)
	assert.Equal(t, 3, allowN(t, m, "k", 5))
}

func TestMemoryLimiterIndependentKeys(t *testing.T) {
	m, _ := newTestLimiter(10, 1)
	assert.Equal(t, 1, allowN(t, m, "a", 2))
	assert.Equal(t, 1, allowN(t, m, "b", 2))
	assert.Equal(t, 2, m.Len())
}

func TestMemoryLimiterConcurrent(t *testing.T) {
	m, _ := newTestLimiter(100, 50)
	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			for range 10 {
				if ok, _ := m.Allow(context.Background(), "shared"); ok {
					allowed.Add(1)
				}
			}
		})
	}
	wg.Wait()
	assert.Equal(t, int64(50), allowed.Load())
}

func TestMemoryLimiterEvictStale(t *testing.T) {
	m, clk := newTestLimiter(10, 5)
	allowN(t, m, "old", 1)
	clk.advance(11 * time.Minute)
	allowN(t, m, "fresh", 1)

	m.evictStale()
	m.mu.Lock()
	_, oldKept := m.buckets["old"]
	_, freshKept := m.buckets["fresh"]
	m.mu.Unlock()
	assert.False(t, oldKept)
	assert.True(t, freshKept)
}

func TestMemoryLimiterCloseStopsSweeper(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := NewMemoryLimiter(10, 5)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	// The sweeper exits asynchronously after Close.
	time.Sleep(10 * time.Millisecond)
}

func TestNoopLimiterAlwaysAllows(t *testing.T) {
	var l NoopLimiter
	for range 100 {
		ok, err := l.Allow(context.Background(), "anything")
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.NoError(t, l.Close())
}
