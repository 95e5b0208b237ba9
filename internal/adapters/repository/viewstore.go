package repository

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/runtrack/internal/domain/types"
	"github.com/okian/runtrack/pkg/metrics"
)

const defaultMaxLimit = 1000

// Snapshot is an immutable published view with lookup indexes. ByRoute maps
// a route id to its index in View.Leaderboards.
type Snapshot struct {
	View          types.View
	ByRoute       map[int]int
	EntryByRunner map[string]types.Entry
	PublishedAt   time.Time
}

// ViewStore implements Store with an atomically swapped snapshot.
type ViewStore struct {
	snapshot atomic.Pointer[Snapshot]
	closed   atomic.Bool
	maxLimit int
}

// NewViewStore constructs an empty view store.
func NewViewStore(opts ...Option) *ViewStore {
	s := &ViewStore{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish indexes v and makes it the current view.
func (s *ViewStore) Publish(_ context.Context, v types.View) error {
	if s.closed.Load() {
		return ErrClosed
	}

	snap := &Snapshot{
		View:          v,
		ByRoute:       make(map[int]int, len(v.Leaderboards)),
		EntryByRunner: make(map[string]types.Entry),
		PublishedAt:   time.Now(),
	}
	for i, lb := range v.Leaderboards {
		snap.ByRoute[lb.RouteID] = i
		for _, e := range lb.Entries {
			if e.IsPlaceholder() {
				continue
			}
			snap.EntryByRunner[e.RunnerID] = e
		}
		metrics.UpdateLeaderboardRows(strconv.Itoa(lb.RouteID), lb.Ranked())
	}
	s.snapshot.Store(snap)

	metrics.UpdateMarkers(len(v.Markers))
	metrics.UpdateParticipants(v.Participants)
	return nil
}

// Snapshot returns the current snapshot, nil before the first publish.
func (s *ViewStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// View returns the current view.
func (s *ViewStore) View(_ context.Context) (types.View, bool) {
	snap := s.snapshot.Load()
	if snap == nil {
		return types.View{}, false
	}
	return snap.View, true
}

// Leaderboard returns the leaderboard of one route.
func (s *ViewStore) Leaderboard(_ context.Context, routeID int) (types.Leaderboard, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return types.Leaderboard{}, ErrNotFound
	}
	i, ok := snap.ByRoute[routeID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Leaderboard{}, ErrNotFound
	}
	return snap.View.Leaderboards[i], nil
}

// Rank returns the leaderboard row of a runner.
func (s *ViewStore) Rank(_ context.Context, runnerID string) (types.Entry, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return types.Entry{}, ErrNotFound
	}
	e, ok := snap.EntryByRunner[runnerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	return e, nil
}

// TopN returns up to n ranked rows of a route leaderboard. Placeholder rows
// are not returned.
func (s *ViewStore) TopN(ctx context.Context, routeID, n int) ([]types.Entry, error) {
	if n < 1 || n > s.maxLimit {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	lb, err := s.Leaderboard(ctx, routeID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, 0, min(n, len(lb.Entries)))
	for _, e := range lb.Entries {
		if len(out) == n {
			break
		}
		if !e.IsPlaceholder() {
			out = append(out, e)
		}
	}
	return out, nil
}

// Count returns the number of reconciled participants in the view.
func (s *ViewStore) Count(_ context.Context) int {
	snap := s.snapshot.Load()
	if snap == nil {
		return 0
	}
	return snap.View.Participants
}

// Close rejects further publishes. Reads keep serving the last view.
func (s *ViewStore) Close() error {
	s.closed.Store(true)
	return nil
}
