package probe

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/okian/runtrack/internal/domain/filter"
	"github.com/okian/runtrack/internal/domain/types"
)

// Violation is one broken invariant found in a sampled view.
type Violation struct {
	Seq     uint64
	RouteID int
	Reason  string
}

func (v Violation) String() string {
	if v.RouteID >= 0 {
		return fmt.Sprintf("seq=%d route=%d: %s", v.Seq, v.RouteID, v.Reason)
	}
	return fmt.Sprintf("seq=%d: %s", v.Seq, v.Reason)
}

// Verify checks the invariants every rendered view must hold:
//   - at most one marker per runner id;
//   - no more markers than reconciled participants;
//   - every marker passes the active filter;
//   - every leaderboard is ranked 1..n in mode order;
//   - an empty leaderboard carries exactly one placeholder row.
func Verify(v types.View) []Violation {
	var out []Violation
	add := func(routeID int, format string, args ...any) {
		out = append(out, Violation{Seq: v.Seq, RouteID: routeID, Reason: fmt.Sprintf(format, args...)})
	}

	dups := lo.FindDuplicatesBy(v.Markers, func(m types.Marker) string { return m.RunnerID })
	for _, m := range dups {
		add(-1, "runner %q has more than one marker", m.RunnerID)
	}
	if len(v.Markers) > v.Participants {
		add(-1, "%d markers for %d participants", len(v.Markers), v.Participants)
	}

	f := filter.Parse(v.Filter)
	for _, m := range v.Markers {
		if !f.Match(m.RunnerID) {
			add(-1, "marker %q does not pass filter %q", m.RunnerID, v.Filter)
		}
	}

	for _, lb := range v.Leaderboards {
		for _, reason := range verifyLeaderboard(lb) {
			add(lb.RouteID, "%s", reason)
		}
	}
	return out
}

func verifyLeaderboard(lb types.Leaderboard) []string {
	if len(lb.Entries) == 0 {
		return []string{"no rows and no placeholder"}
	}
	if lb.Ranked() == 0 {
		if len(lb.Entries) != 1 {
			return []string{fmt.Sprintf("%d placeholder rows", len(lb.Entries))}
		}
		return nil
	}

	var out []string
	if lb.Ranked() != len(lb.Entries) {
		out = append(out, "placeholder mixed with ranked rows")
	}
	for i, e := range lb.Entries {
		if e.Rank != i+1 {
			out = append(out, fmt.Sprintf("row %d has rank %d", i, e.Rank))
		}
	}

	key := func(e types.Entry) float64 { return e.Progress }
	if lb.Mode == types.ModeSpeed {
		key = func(e types.Entry) float64 { return e.Speed }
	}
	sorted := slices.IsSortedFunc(lb.Entries, func(a, b types.Entry) int {
		switch ka, kb := key(a), key(b); {
		case ka > kb:
			return -1
		case ka < kb:
			return 1
		default:
			return 0
		}
	})
	if !sorted {
		out = append(out, fmt.Sprintf("rows not sorted by %s", lb.Mode))
	}
	return out
}

// rankTargets returns every ranked row keyed by runner id.
func rankTargets(v types.View) map[string]types.Entry {
	out := make(map[string]types.Entry)
	for _, lb := range v.Leaderboards {
		for _, e := range lb.Entries {
			if !e.IsPlaceholder() && e.RunnerID != "" {
				out[e.RunnerID] = e
			}
		}
	}
	return out
}
