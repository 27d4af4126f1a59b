package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vigil-grid/vigil/internal/storage"
)

// testLogger returns a logger for tests that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type notification struct{ channel, payload string }

// fakeNotifier delivers notifications pushed onto its channel.
type fakeNotifier struct {
	listenErr error
	listened  chan string
	notes     chan notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{listened: make(chan string, 1), notes: make(chan notification, 4)}
}

func (f *fakeNotifier) Listen(_ context.Context, channel string) error {
	if f.listenErr != nil {
		return f.listenErr
	}
	f.listened <- channel
	return nil
}

func (f *fakeNotifier) WaitForNotification(ctx context.Context) (string, string, error) {
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case n := <-f.notes:
		return n.channel, n.payload, nil
	}
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case got := <-ch:
		return string(got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestBrokerFanOut(t *testing.T) {
	broker := NewBroker(newFakeNotifier(), testLogger())

	ch1 := broker.Subscribe()
	ch2 := broker.Subscribe()
	assert.Equal(t, 2, broker.SubscriberCount())

	event := formatSSE(EventWorkOrderCreated, `{"work_order_id":"WO-1"}`)
	broker.broadcast(event)
	assert.Equal(t, string(event), receive(t, ch1))
	assert.Equal(t, string(event), receive(t, ch2))

	broker.Unsubscribe(ch1)
	event2 := formatSSE(EventWorkOrderCreated, `{"work_order_id":"WO-2"}`)
	broker.broadcast(event2)
	assert.Equal(t, string(event2), receive(t, ch2))

	broker.Unsubscribe(ch2)
	assert.Zero(t, broker.SubscriberCount())
}

func TestFormatSSE(t *testing.T) {
	got := string(formatSSE("work_order_created", `{"id":"123"}`))
	assert.Equal(t, "event: work_order_created\ndata: {\"id\":\"123\"}\n\n", got)
}

func TestBrokerSlowSubscriber(t *testing.T) {
	broker := NewBroker(newFakeNotifier(), testLogger())

	slow := broker.Subscribe()
	fast := broker.Subscribe()
	for range 65 {
		broker.broadcast(formatSSE("test", "fill"))
	}
	// fast has a full buffer too but was never blocked.
	receive(t, fast)

	broker.Unsubscribe(slow)
	broker.Unsubscribe(fast)
}

func TestBrokerStartRelaysNotifications(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := newFakeNotifier()
	broker := NewBroker(n, testLogger())
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		broker.Start(ctx)
		close(done)
	}()

	select {
	case channel := <-n.listened:
		assert.Equal(t, storage.ChannelWorkOrders, channel)
	case <-time.After(time.Second):
		t.Fatal("broker never called Listen")
	}
	require.Eventually(t, broker.Running, time.Second, 5*time.Millisecond)

	n.notes <- notification{storage.ChannelWorkOrders, `{"work_order_id":"WO-20260601120000"}`}
	assert.Equal(t,
		"event: work_order_created\ndata: {\"work_order_id\":\"WO-20260601120000\"}\n\n",
		receive(t, ch))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broker did not stop after cancel")
	}
	assert.False(t, broker.Running())
}

func TestBrokerStartListenFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := newFakeNotifier()
	n.listenErr = errors.New("no notify connection")
	broker := NewBroker(n, testLogger())

	broker.Start(context.Background())
	assert.False(t, broker.Running())
}
