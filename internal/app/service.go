// Package service runs one tracking session: it owns the session state,
// drives the snapshot poller and publishes rendered views for the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/runtrack/internal/adapters/mq/queue"
	eventloop "github.com/okian/runtrack/internal/adapters/mq/worker"
	"github.com/okian/runtrack/internal/adapters/poller"
	"github.com/okian/runtrack/internal/adapters/provider"
	repository "github.com/okian/runtrack/internal/adapters/repository"
	"github.com/okian/runtrack/internal/domain/geo"
	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/internal/domain/ranking"
	"github.com/okian/runtrack/internal/domain/types"
	"github.com/okian/runtrack/pkg/logger"
)

// Default session configuration constants.
const (
	defaultQueueSize       = 64
	defaultShutdownTimeout = 5 * time.Second
)

// Provider is the data source of a session.
type Provider interface {
	FetchSnapshot(ctx context.Context) (provider.Snapshot, error)
	FetchRoutes(ctx context.Context) ([]model.Route, error)
}

// Service implements the API dependencies for one tracking session.
type Service struct {
	mu sync.RWMutex

	id       string
	source   Provider
	store    *repository.ViewStore
	queue    *eventqueue.InMemoryQueue
	loop     *eventloop.InMemoryWorker
	poller   *poller.Poller
	mapper   *geo.Mapper
	rankOpts []ranking.Option

	// Configuration
	queueSize    int
	pollInterval time.Duration
	maxLimit     int

	// State
	started    bool
	cancel     context.CancelFunc
	bootCancel context.CancelFunc
	boot       sync.WaitGroup
	state      *session

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the session event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPollInterval sets the snapshot polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMapper sets the coordinate mapper.
func WithMapper(m *geo.Mapper) Option {
	return func(s *Service) {
		if m != nil {
			s.mapper = m
		}
	}
}

// WithRankingOptions sets the options passed to every leaderboard build.
func WithRankingOptions(opts ...ranking.Option) Option {
	return func(s *Service) {
		s.rankOpts = append(s.rankOpts, opts...)
	}
}

// WithMaxLeaderboardLimit caps the limit accepted by TopN.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a session bound to a data provider.
func New(source Provider, opts ...Option) *Service {
	s := &Service{
		id:           uuid.NewString(),
		source:       source,
		queueSize:    defaultQueueSize,
		pollInterval: poller.DefaultInterval,
		mapper:       geo.NewMapper(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ID returns the session identifier.
func (s *Service) ID() string { return s.id }

// Start builds the event loop, publishes the initial empty view and returns.
// The route catalog is requested once in the background; snapshot polling
// begins only after its outcome is queued, so the first ranking pass always
// sees the catalog or its failure.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.With(logger.String("session", s.id))
	s.logger.Info(ctx, "starting tracking session...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	var storeOpts []repository.Option
	if s.maxLimit > 0 {
		storeOpts = append(storeOpts, repository.WithMaxLimit(s.maxLimit))
	}
	s.store = repository.NewViewStore(storeOpts...)
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.state = newSession(s.id, s.mapper, s.rankOpts, s.store, s.logger.Named("session"))

	if err := s.state.render(runCtx); err != nil {
		cancel()
		return fmt.Errorf("initial render: %w", err)
	}

	s.loop = eventloop.NewInMemoryWorker(s.queue, eventloop.HandlerFunc(s.state.handle),
		eventloop.WithLogger(s.logger.Named("event-loop")))
	go s.loop.Run(runCtx)

	s.poller = poller.New(s.source, s.queue,
		poller.WithInterval(s.pollInterval),
		poller.WithLogger(s.logger.Named("poller")))

	bootCtx, bootCancel := context.WithCancel(runCtx)
	s.bootCancel = bootCancel
	s.boot.Add(1)
	go s.bootstrap(bootCtx, runCtx)

	s.started = true
	s.logger.Info(ctx, "tracking session started",
		logger.Duration("pollInterval", s.pollInterval),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// bootstrap loads the route catalog, then starts the poller on runCtx.
func (s *Service) bootstrap(ctx, runCtx context.Context) {
	defer s.boot.Done()

	if err := s.loadRoutes(ctx); err != nil {
		if ctx.Err() == nil {
			s.logger.Error(ctx, "route catalog event not queued", logger.Error(err))
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err := s.poller.Start(runCtx); err != nil {
		s.logger.Error(ctx, "start poller", logger.Error(err))
	}
}

// loadRoutes fetches the route catalog exactly once and queues the outcome,
// waiting for room in the queue since the fetch is never repeated.
func (s *Service) loadRoutes(ctx context.Context) error {
	rs, err := s.source.FetchRoutes(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	e := model.Event{Kind: model.EventRoutesLoaded, Routes: rs, ReceivedAt: time.Now()}
	if err != nil {
		e = model.Event{Kind: model.EventRoutesFailed, Err: err, ReceivedAt: time.Now()}
	}
	return s.queue.EnqueueWait(ctx, e)
}

// Stop gracefully shuts down the session. The last view stays readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping tracking session...")

	s.bootCancel()
	s.boot.Wait()
	if err := s.poller.Stop(ctx); err != nil {
		s.logger.Warn(ctx, "poller stop", logger.Error(err))
	}
	_ = s.queue.Close()
	if err := s.loop.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "event loop stop", logger.Error(err))
	}
	s.cancel()
	_ = s.store.Close()

	s.started = false
	s.logger.Info(ctx, "tracking session stopped")
}

// ApplyFilter submits a display filter and waits until the view reflects it.
func (s *Service) ApplyFilter(ctx context.Context, text string) (types.View, error) {
	return s.submit(ctx, model.Event{Kind: model.EventFilterApplied, Filter: text})
}

// ClearFilter removes the display filter and waits until the view reflects it.
func (s *Service) ClearFilter(ctx context.Context) (types.View, error) {
	return s.submit(ctx, model.Event{Kind: model.EventFilterCleared})
}

func (s *Service) submit(ctx context.Context, e model.Event) (types.View, error) { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	s.mu.RLock()
	started, q, store := s.started, s.queue, s.store
	s.mu.RUnlock()
	if !started {
		return types.View{}, ErrNotStarted
	}

	e.ReceivedAt = time.Now()
	e.Done = make(chan error, 1)
	if !q.Enqueue(ctx, e) {
		return types.View{}, ErrDropped
	}

	select {
	case err := <-e.Done:
		if err != nil {
			return types.View{}, err
		}
		v, _ := store.View(ctx)
		return v, nil
	case <-ctx.Done():
		return types.View{}, ctx.Err()
	}
}

// View returns the latest rendered view.
func (s *Service) View(ctx context.Context) (types.View, error) {
	store := s.viewStore()
	if store == nil {
		return types.View{}, ErrNotStarted
	}
	v, ok := store.View(ctx)
	if !ok {
		return types.View{}, ErrNotStarted
	}
	return v, nil
}

// Leaderboard returns the leaderboard of one route.
func (s *Service) Leaderboard(ctx context.Context, routeID int) (types.Leaderboard, error) {
	store := s.viewStore()
	if store == nil {
		return types.Leaderboard{}, ErrNotStarted
	}
	return store.Leaderboard(ctx, routeID)
}

// TopN returns the first n ranked rows of a route leaderboard.
func (s *Service) TopN(ctx context.Context, routeID, n int) ([]types.Entry, error) {
	store := s.viewStore()
	if store == nil {
		return nil, ErrNotStarted
	}
	return store.TopN(ctx, routeID, n)
}

// Rank returns the leaderboard row of one runner.
func (s *Service) Rank(ctx context.Context, runnerID string) (types.Entry, error) {
	store := s.viewStore()
	if store == nil {
		return types.Entry{}, ErrNotStarted
	}
	return store.Rank(ctx, runnerID)
}

func (s *Service) viewStore() *repository.ViewStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// GetStats returns session statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"sessionId":    s.id,
		"started":      s.started,
		"queueSize":    s.queueSize,
		"pollInterval": s.pollInterval.String(),
	}

	if s.queue == nil {
		return stats
	}

	processed, failed := s.loop.Stats()
	stats["queueLength"] = s.queue.Len(ctx)
	stats["eventsDropped"] = s.queue.Dropped()
	stats["eventsProcessed"] = processed
	stats["eventsFailed"] = failed
	stats["fetchesIssued"] = s.poller.Issued()
	stats["fetchesInFlight"] = s.poller.InFlight()
	for k, v := range s.state.stats() {
		stats[k] = v
	}
	if v, ok := s.store.View(ctx); ok {
		stats["participants"] = v.Participants
		stats["markers"] = len(v.Markers)
		stats["leaderboards"] = len(v.Leaderboards)
		stats["filter"] = v.Filter
		stats["error"] = v.Error
		stats["lastUpdate"] = v.UpdatedAt
	}

	return stats
}
