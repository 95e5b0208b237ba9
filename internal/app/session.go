package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/runtrack/internal/adapters/provider"
	repository "github.com/okian/runtrack/internal/adapters/repository"
	"github.com/okian/runtrack/internal/domain/dedupe"
	"github.com/okian/runtrack/internal/domain/filter"
	"github.com/okian/runtrack/internal/domain/geo"
	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/internal/domain/ranking"
	"github.com/okian/runtrack/internal/domain/routes"
	"github.com/okian/runtrack/internal/domain/types"
	"github.com/okian/runtrack/pkg/logger"
	"github.com/okian/runtrack/pkg/metrics"
)

// session is the state of one tracking session. Every field except the
// atomics is owned by the event loop goroutine.
type session struct {
	id       string
	mapper   *geo.Mapper
	rankOpts []ranking.Option
	store    repository.Store
	logger   logger.Logger

	reconciled []model.Participant
	raw        json.RawMessage
	catalog    *routes.Catalog
	filter     filter.Filter
	errText    string
	errSeq     uint64
	updatedAt  time.Time

	appliedSeq atomic.Uint64
	stale      atomic.Uint64
	collapsed  atomic.Uint64
	routes     atomic.Int64
	routesErr  atomic.Pointer[string]
}

func newSession(id string, m *geo.Mapper, rankOpts []ranking.Option, store repository.Store, l logger.Logger) *session {
	return &session{
		id:         id,
		mapper:     m,
		rankOpts:   rankOpts,
		store:      store,
		logger:     l,
		reconciled: []model.Participant{},
		catalog:    routes.New(nil),
	}
}

// handle applies one event and re-renders when the state changed.
func (s *session) handle(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	switch e.Kind {
	case model.EventSnapshotFetched:
		if !s.applySnapshot(ctx, e) {
			return nil
		}
	case model.EventFetchFailed:
		if !s.applyFailure(ctx, e) {
			return nil
		}
	case model.EventRoutesLoaded:
		s.catalog = routes.New(e.Routes)
		s.routes.Store(int64(s.catalog.Len()))
		metrics.UpdateRoutesLoaded(s.catalog.Len())
		s.logger.Info(ctx, "route catalog loaded", logger.Int("routes", s.catalog.Len()))
	case model.EventRoutesFailed:
		msg := e.Err.Error()
		s.routesErr.Store(&msg)
		metrics.RecordErrorByComponent("session", "routes_unavailable")
		s.logger.Warn(ctx, "route catalog unavailable, continuing without overlays", logger.Error(e.Err))
		return nil
	case model.EventFilterApplied:
		s.filter = filter.Parse(e.Filter)
	case model.EventFilterCleared:
		s.filter = filter.Filter{}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return s.render(ctx)
}

// applySnapshot replaces the held participants unless a newer snapshot was
// already applied.
func (s *session) applySnapshot(ctx context.Context, e model.Event) bool { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	if e.Seq <= s.appliedSeq.Load() {
		s.stale.Add(1)
		metrics.RecordFetch(provider.EndpointSnapshot, metrics.OutcomeStale, 0)
		s.logger.Debug(ctx, "discarding stale snapshot",
			logger.Uint64("seq", e.Seq),
			logger.Uint64("applied", s.appliedSeq.Load()),
		)
		return false
	}

	reconciled, st := dedupe.ReconcileWithStats(e.Participants)
	s.reconciled = reconciled
	s.raw = e.Raw
	s.appliedSeq.Store(e.Seq)
	s.updatedAt = e.ReceivedAt
	if s.updatedAt.IsZero() {
		s.updatedAt = time.Now()
	}
	if e.Seq > s.errSeq {
		s.errText = ""
	}

	s.collapsed.Add(uint64(st.Collapsed()))
	metrics.RecordCollapsed(st.Collapsed())
	metrics.MarkSnapshotApplied(s.updatedAt)
	return true
}

// applyFailure raises the error indicator unless a newer snapshot already
// superseded the failed request. The held participants are kept.
func (s *session) applyFailure(ctx context.Context, e model.Event) bool { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	if e.Seq <= s.appliedSeq.Load() {
		s.stale.Add(1)
		return false
	}
	s.errText = fmt.Sprintf("snapshot fetch failed: %v", e.Err)
	s.errSeq = e.Seq
	metrics.RecordErrorByComponent("session", "fetch_failed")
	s.logger.Warn(ctx, "keeping previous snapshot", logger.Uint64("seq", e.Seq), logger.Error(e.Err))
	return true
}

// render runs a full synchronous render pass and publishes the view.
func (s *session) render(ctx context.Context) error {
	start := time.Now()

	overlays := make([]types.Overlay, 0, s.catalog.Len())
	for _, r := range s.catalog.Routes() {
		overlays = append(overlays, s.mapper.Overlay(r))
	}

	v := types.View{
		SessionID:    s.id,
		Seq:          s.appliedSeq.Load(),
		UpdatedAt:    s.updatedAt,
		Filter:       s.filter.String(),
		Error:        s.errText,
		Participants: len(s.reconciled),
		Markers:      s.mapper.Markers(s.filter.Apply(s.reconciled)),
		Overlays:     overlays,
		Leaderboards: ranking.Build(s.reconciled, s.catalog, s.rankOpts...),
		Raw:          s.raw,
	}

	if err := s.store.Publish(ctx, v); err != nil {
		return fmt.Errorf("publish view: %w", err)
	}
	metrics.RecordRenderLatency(time.Since(start))
	return nil
}

// stats may be called from any goroutine.
func (s *session) stats() map[string]interface{} {
	out := map[string]interface{}{
		"appliedSeq":       s.appliedSeq.Load(),
		"staleDiscarded":   s.stale.Load(),
		"recordsCollapsed": s.collapsed.Load(),
		"routesLoaded":     s.routes.Load(),
	}
	if msg := s.routesErr.Load(); msg != nil {
		out["routesError"] = *msg
	}
	return out
}
