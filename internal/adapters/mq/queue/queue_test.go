package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/runtrack/internal/domain/model"
)

func snapshot(seq uint64) model.Event {
	return model.Event{Kind: model.EventSnapshotFetched, Seq: seq}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, snapshot(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	event := <-q.Dequeue(ctx)
	if event.Seq != 1 || event.Kind != model.EventSnapshotFetched {
		t.Errorf("expected snapshot 1, got %+v", event)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, snapshot(1)) || !q.Enqueue(ctx, snapshot(2)) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(ctx, snapshot(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
	if d := q.Dropped(); d != 1 {
		t.Errorf("expected 1 dropped event, got %d", d)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, snapshot(1)) {
		t.Error("expected enqueue with a cancelled context to fail")
	}
	if q.Len(context.Background()) != 0 {
		t.Error("expected queue to stay empty")
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		q.Enqueue(ctx, snapshot(i))
	}
	_ = q.Close()

	var got []uint64
	for e := range q.Dequeue(ctx) {
		got = append(got, e.Seq)
	}
	want := []uint64{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()
	producers := 8
	perProducer := 50

	consumed := make(chan struct{}, producers*perProducer)
	go func() {
		for range q.Dequeue(ctx) {
			consumed <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if q.Enqueue(ctx, snapshot(uint64(j))) {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	deadline := time.After(time.Second)
	for n := 0; n < accepted; n++ {
		select {
		case <-consumed:
		case <-deadline:
			t.Fatalf("consumed %d of %d accepted events", n, accepted)
		}
	}
	if int(q.Dropped())+accepted != producers*perProducer {
		t.Errorf("accepted %d + dropped %d != %d", accepted, q.Dropped(), producers*perProducer)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, snapshot(1)) {
		t.Error("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, snapshot(2)) {
		t.Error("expected enqueue to fail after closing")
	}

	eventChan := q.Dequeue(ctx)
	timeout := time.After(100 * time.Millisecond)
	drained := 0
	for open := true; open; {
		select {
		case _, ok := <-eventChan:
			if !ok {
				open = false
				continue
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
	if drained != 1 {
		t.Errorf("expected the queued event to drain before close, got %d", drained)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

func TestInMemoryQueue_EnqueueWait(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if !q.Enqueue(ctx, snapshot(1)) {
		t.Fatal("expected first enqueue to succeed")
	}

	done := make(chan error, 1)
	go func() {
		done <- q.EnqueueWait(ctx, model.Event{Kind: model.EventRoutesLoaded})
	}()

	select {
	case err := <-done:
		t.Fatalf("expected EnqueueWait to block on a full queue, got %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	events := q.Dequeue(ctx)
	if e := <-events; e.Seq != 1 {
		t.Errorf("expected snapshot 1 first, got %+v", e)
	}
	if err := <-done; err != nil {
		t.Fatalf("expected EnqueueWait to succeed once space frees up, got %v", err)
	}
	if e := <-events; e.Kind != model.EventRoutesLoaded {
		t.Errorf("expected the routes event next, got %+v", e)
	}
	if d := q.Dropped(); d != 0 {
		t.Errorf("expected no dropped events, got %d", d)
	}
}

func TestInMemoryQueue_EnqueueWaitFailures(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	if !q.Enqueue(context.Background(), snapshot(1)) {
		t.Fatal("expected first enqueue to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.EnqueueWait(ctx, snapshot(2)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded on a full queue, got %v", err)
	}

	_ = q.Close()
	if err := q.EnqueueWait(context.Background(), snapshot(3)); !errors.Is(err, ErrDropped) {
		t.Errorf("expected ErrDropped after close, got %v", err)
	}
	if d := q.Dropped(); d != 2 {
		t.Errorf("expected 2 dropped events, got %d", d)
	}
}
