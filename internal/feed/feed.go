// Package feed ingests social-media posts and hands them to the analyzer
// through a bounded queue. Two sources exist: the live TwitterAPI.io
// WebSocket stream and a synthetic generator for demo mode.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// Source produces normalized events until its context is cancelled.
type Source interface {
	// Run blocks, delivering events through the emit callback.
	Run(ctx context.Context, emit func(domain.Event)) error
}

// Queue is the bounded hand-off between a source and the analyzer. When the
// analyzer falls behind, the oldest queued event is dropped to admit the new
// one: fresher news is worth more than stale news.
type Queue struct {
	events chan domain.Event
	logger *slog.Logger

	mu      sync.Mutex
	dropped int
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{
		events: make(chan domain.Event, capacity),
		logger: logger.With(slog.String("component", "feed")),
	}
}

// Push enqueues an event, evicting the oldest queued event if full.
func (q *Queue) Push(event domain.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case q.events <- event:
			return
		default:
		}
		select {
		case old := <-q.events:
			q.dropped++
			q.logger.Warn("queue full, dropped oldest event",
				slog.String("dropped_event_id", old.ID),
				slog.Int("total_dropped", q.dropped),
			)
		default:
		}
	}
}

// Events returns the consumer side of the queue.
func (q *Queue) Events() <-chan domain.Event {
	return q.events
}

// Close closes the queue; consumers drain remaining events and stop.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	close(q.events)
}

// Dropped reports the number of events evicted so far.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Pump runs the source, pushing every emitted event into the queue, and
// closes the queue when the source stops.
func Pump(ctx context.Context, src Source, q *Queue) error {
	defer q.Close()
	return src.Run(ctx, q.Push)
}
