package bus

import (
	"context"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. Slow subscribers
// drop messages rather than blocking publishers.
const subscriberBuffer = 128

// MemoryBus is an in-process implementation of domain.SignalBus. Publish
// never blocks: messages to subscribers with full buffers are dropped.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewMemoryBus creates an empty in-process signal bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]chan []byte)}
}

// Publish delivers payload to every current subscriber of the channel.
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			// Subscriber buffer full; drop.
		}
	}
	return nil
}

// Subscribe registers a new subscriber for the channel. The returned channel
// is closed when ctx is cancelled.
func (b *MemoryBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
