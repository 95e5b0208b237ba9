// Package ranking orders reconciled participants into leaderboards.
package ranking

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/internal/domain/routes"
	"github.com/okian/runtrack/internal/domain/scoring"
	"github.com/okian/runtrack/internal/domain/types"
)

// DefaultSpeedTopN is the length of the overall speed leaderboard.
const DefaultSpeedTopN = 10

// OverallRouteID is the route id of the speed leaderboard.
const OverallRouteID = 0

// Option configures a Build call.
type Option func(*builder)

// WithDefaultSegments sets the segment count used when no catalog route
// describes a participant's route.
func WithDefaultSegments(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.defaultSegments = n
		}
	}
}

// WithSpeedTopN sets how many rows the speed leaderboard keeps.
func WithSpeedTopN(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.topN = n
		}
	}
}

type builder struct {
	defaultSegments int
	topN            int
}

// Mode reports which ordering Build uses for the given inputs.
func Mode(ps []model.Participant, catalog *routes.Catalog) string {
	if catalog.Len() > 0 {
		return types.ModeProgress
	}
	if lo.SomeBy(ps, func(p model.Participant) bool { return p.HasSegment() }) {
		return types.ModeProgress
	}
	return types.ModeSpeed
}

// Build returns the leaderboards of a reconciled participant set.
//
// With a non-empty catalog there is one progress leaderboard per catalog
// route in ascending id order and participants on unknown routes are left
// out. Without a catalog but with segment data, the route ids carried by the
// participants are ranked against the default segment count. Otherwise a
// single overall leaderboard ranks by speed. Ties always break on runner id.
// An empty leaderboard holds one placeholder row.
func Build(ps []model.Participant, catalog *routes.Catalog, opts ...Option) []types.Leaderboard {
	b := builder{defaultSegments: scoring.DefaultSegments, topN: DefaultSpeedTopN}
	for _, opt := range opts {
		opt(&b)
	}

	if Mode(ps, catalog) == types.ModeSpeed {
		return []types.Leaderboard{b.speed(ps)}
	}

	byRoute := lo.GroupBy(ps, func(p model.Participant) int { return p.Route() })

	var ids []int
	if catalog.Len() > 0 {
		ids = catalog.IDs()
	} else {
		ids = lo.Keys(byRoute)
		slices.Sort(ids)
	}

	out := make([]types.Leaderboard, 0, len(ids))
	for _, id := range ids {
		total := catalog.SegmentsOr(id, b.defaultSegments)
		out = append(out, b.progress(id, catalog.Name(id), total, byRoute[id]))
	}
	return out
}

func (b builder) progress(routeID int, name string, total int, ps []model.Participant) types.Leaderboard {
	lb := types.Leaderboard{
		RouteID:       routeID,
		RouteName:     name,
		TotalSegments: total,
		Mode:          types.ModeProgress,
	}
	rows := lo.Map(ps, func(p model.Participant, _ int) types.Entry {
		return entry(p, routeID, scoring.Score(p, total))
	})
	slices.SortStableFunc(rows, func(a, c types.Entry) int {
		if n := cmp.Compare(c.Progress, a.Progress); n != 0 {
			return n
		}
		return cmp.Compare(a.RunnerID, c.RunnerID)
	})
	lb.Entries = finish(rows, routeID)
	return lb
}

func (b builder) speed(ps []model.Participant) types.Leaderboard {
	lb := types.Leaderboard{RouteID: OverallRouteID, Mode: types.ModeSpeed}
	rows := lo.Map(ps, func(p model.Participant, _ int) types.Entry {
		return entry(p, p.Route(), scoring.Score(p, 0))
	})
	slices.SortStableFunc(rows, func(a, c types.Entry) int {
		if n := cmp.Compare(c.Speed, a.Speed); n != 0 {
			return n
		}
		return cmp.Compare(a.RunnerID, c.RunnerID)
	})
	if len(rows) > b.topN {
		rows = rows[:b.topN]
	}
	lb.Entries = finish(rows, OverallRouteID)
	return lb
}

func entry(p model.Participant, routeID int, m scoring.Metrics) types.Entry {
	x, y, _ := p.Position()
	sx, sy := p.Velocity()
	return types.Entry{
		RunnerID:       p.RunnerID,
		RouteID:        routeID,
		CurrentSegment: m.Segment,
		TotalSegments:  m.TotalSegments,
		Progress:       scoring.Percent(m.Progress),
		Speed:          m.Speed,
		SpeedX:         sx,
		SpeedY:         sy,
		PositionX:      x,
		PositionY:      y,
	}
}

// finish assigns 1-based ranks, or returns the placeholder row when empty.
func finish(rows []types.Entry, routeID int) []types.Entry {
	if len(rows) == 0 {
		return []types.Entry{{RouteID: routeID, Placeholder: types.NoParticipants}}
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
