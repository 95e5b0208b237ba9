// Package queue carries session events from producers (pollers, HTTP
// handlers) to the single session event loop.
//
// The queue is bounded and never blocks a producer: when it is full the
// event is dropped and counted, since the next poll supersedes it.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Event represents the payload type flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue.
	// Returns false if the queue is full or closed and the event was dropped.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel that will receive events as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new events can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan Event, q.capacity)
	metrics.UpdateQueueDepth(0)

	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop("closed")
		return false
	}

	select {
	case <-ctx.Done():
		q.drop("context_cancelled")
		return false
	default:
	}

	select {
	case q.events <- e:
		metrics.UpdateQueueDepth(len(q.events))
		return true
	default:
		q.drop("queue_full")
		return false
	}
}

// EnqueueWait blocks until e is queued. It returns ErrDropped when the queue
// is closed and the context error when ctx ends first.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop("closed")
		return ErrDropped
	}

	select {
	case q.events <- e:
		metrics.UpdateQueueDepth(len(q.events))
		return nil
	case <-ctx.Done():
		q.drop("context_cancelled")
		return ctx.Err()
	}
}

func (q *InMemoryQueue) drop(reason string) {
	q.dropped.Add(1)
	metrics.RecordEventDropped()
	metrics.RecordErrorByComponent("queue", reason)
}

// Dropped returns how many events were rejected since creation.
func (q *InMemoryQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Dequeue returns a channel that will receive events as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for event := range q.events {
			select {
			case out <- event:
				metrics.UpdateQueueDepth(len(q.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.events)
}

// Capacity returns the maximum number of queued events.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.events)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
