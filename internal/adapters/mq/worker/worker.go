// Package worker runs the session event loop: a single consumer that
// applies queued events one at a time.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/pkg/logger"
	"github.com/okian/runtrack/pkg/metrics"
)

// Default worker configuration constants.
const (
	slowEventThreshold = 250 * time.Millisecond
)

// Event abstracts what the worker reads off the queue.
type Event = model.Event

// Handler applies one event to the session state. It is only ever called
// from the worker goroutine.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, e Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	return f(ctx, e)
}

// Queue defines how the worker receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker drains a queue into a handler.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the event in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker with a single goroutine, so handlers
// never run concurrently with each other.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	processed uint64
	failed    uint64
	statsMu   sync.RWMutex

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "event-loop",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "event-loop" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event",
					logger.String("kind", string(event.Kind)),
					logger.Uint64("seq", event.Seq),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Stats returns the number of processed and failed events.
func (w *InMemoryWorker) Stats() (processed, failed uint64) {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return w.processed, w.failed
}

// processEvent handles a single event and acknowledges it to a waiting sender.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) (err error) { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			metrics.RecordErrorByComponent("worker", "panic")
		}
		event.Ack(err)

		w.statsMu.Lock()
		w.processed++
		if err != nil {
			w.failed++
		}
		w.statsMu.Unlock()

		metrics.RecordSessionEvent(string(event.Kind))
		if took := time.Since(start); took > slowEventThreshold {
			w.logger.Warn(ctx, "slow event",
				logger.String("kind", string(event.Kind)),
				logger.Duration("took", took),
			)
		}
	}()

	if err = w.handler.Handle(ctx, event); err != nil {
		metrics.RecordErrorByComponent("worker", "handler_error")
		return fmt.Errorf("handle %s: %w", event.Kind, err)
	}
	return nil
}
