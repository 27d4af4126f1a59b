package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vigil-grid/vigil/internal/storage"
)

// EventWorkOrderCreated is the SSE event name for new work orders.
const EventWorkOrderCreated = "work_order_created"

const notifyRetryDelay = time.Second

// Notifier is the LISTEN/NOTIFY side of storage.
type Notifier interface {
	Listen(ctx context.Context, channel string) error
	WaitForNotification(ctx context.Context) (channel, payload string, err error)
}

// Broker fans out Postgres notifications to SSE subscribers.
// It runs a background goroutine that calls WaitForNotification in a loop
// and sends each payload to all active subscriber channels.
type Broker struct {
	notifier Notifier
	logger   *slog.Logger
	running  atomic.Bool

	mu sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewBroker creates a new SSE broker. Call Start to begin listening.
func NewBroker(notifier Notifier, logger *slog.Logger) *Broker {
	return &Broker{
		notifier:    notifier,
		logger:      logger.With("component", "broker"),
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Start listens on the work order channel. It blocks, so call it in a
// goroutine. Returns when ctx is cancelled or LISTEN fails.
func (b *Broker) Start(ctx context.Context) {
	if err := b.notifier.Listen(ctx, storage.ChannelWorkOrders); err != nil {
		b.logger.Error("broker: listen work orders", "error", err)
		return
	}
	b.running.Store(true)
	defer b.running.Store(false)
	b.logger.Info("broker: listening for notifications", "channel", storage.ChannelWorkOrders)

	for {
		channel, payload, err := b.notifier.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("broker: notification error, retrying", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(notifyRetryDelay):
			}
			continue
		}
		b.broadcast(formatSSE(eventName(channel), payload))
	}
}

// Running reports whether the listen loop is active.
func (b *Broker) Running() bool {
	return b != nil && b.running.Load()
}

// Subscribe returns a channel that receives SSE-formatted events.
// The caller must call Unsubscribe when done.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// SubscriberCount returns the number of connected SSE clients.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// broadcast sends an event to all subscribers. Subscribers with a full
// buffer miss the event.
func (b *Broker) broadcast(event []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func eventName(channel string) string {
	if channel == storage.ChannelWorkOrders {
		return EventWorkOrderCreated
	}
	return channel
}

// formatSSE formats a notification as a Server-Sent Events message.
func formatSSE(eventType, data string) []byte {
	return []byte("event: " + eventType + "\ndata: " + data + "\n\n")
}
