// Package poller fetches participant snapshots on a fixed cadence and hands
// every outcome to the session as a sequenced event.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/runtrack/internal/adapters/provider"
	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/pkg/logger"
	"github.com/okian/runtrack/pkg/metrics"
)

// DefaultInterval is the time between two snapshot requests.
const DefaultInterval = 2 * time.Second

// Source fetches one snapshot.
type Source interface {
	FetchSnapshot(ctx context.Context) (provider.Snapshot, error)
}

// Sink receives fetch outcomes. It must not block.
type Sink interface {
	Enqueue(ctx context.Context, e model.Event) bool
}

// Poller issues one fetch immediately at start and one per tick. Fetches run
// in their own goroutines, so a slow response never delays the next tick and
// responses may arrive out of order; every event carries the sequence number
// of the request that produced it so the session can discard stale ones.
type Poller struct {
	interval time.Duration
	source   Source
	sink     Sink
	logger   logger.Logger

	seq      atomic.Uint64
	inFlight atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a new Poller.
func New(source Source, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		interval: DefaultInterval,
		source:   source,
		sink:     sink,
		logger:   logger.Get().Named("poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyStarted
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info(ctx, "snapshot poller started", logger.Duration("interval", p.interval))
	return nil
}

// Stop cancels in-flight fetches and waits for every goroutine to exit.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info(ctx, "snapshot poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Issued returns the sequence number of the latest request.
func (p *Poller) Issued() uint64 { return p.seq.Load() }

// InFlight returns the number of requests awaiting a response.
func (p *Poller) InFlight() int64 { return p.inFlight.Load() }

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll starts one sequenced fetch without waiting for it.
func (p *Poller) poll() {
	seq := p.seq.Add(1)
	p.wg.Add(1)
	go p.fetch(seq)
}

func (p *Poller) fetch(seq uint64) {
	defer p.wg.Done()

	p.inFlight.Add(1)
	metrics.FetchStarted()
	defer func() {
		p.inFlight.Add(-1)
		metrics.FetchFinished()
	}()

	snap, err := p.source.FetchSnapshot(p.ctx)
	if p.ctx.Err() != nil {
		return
	}

	event := model.Event{Seq: seq, ReceivedAt: time.Now()}
	if err != nil {
		p.logger.Warn(p.ctx, "snapshot fetch failed", logger.Uint64("seq", seq), logger.Error(err))
		event.Kind = model.EventFetchFailed
		event.Err = err
	} else {
		event.Kind = model.EventSnapshotFetched
		event.Participants = snap.Participants
		event.Raw = snap.Raw
	}

	if !p.sink.Enqueue(p.ctx, event) {
		p.logger.Debug(p.ctx, "fetch outcome dropped", logger.Uint64("seq", seq))
	}
}
