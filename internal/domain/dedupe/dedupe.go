// Package dedupe collapses a raw participant list into one authoritative
// record per runner.
package dedupe

import (
	"strconv"

	"github.com/okian/runtrack/internal/domain/model"
)

// Stats summarizes one reconciliation pass.
type Stats struct {
	Raw        int // records in the input
	Reconciled int // records in the output
	Anonymous  int // records without a runner id (never merged)
}

// Collapsed returns how many raw records were folded into another record.
func (s Stats) Collapsed() int { return s.Raw - s.Reconciled }

// Reconcile returns exactly one record per distinct runner id.
//
// A record replaces the current winner of its key when its timestamp is
// greater than or equal to the winner's, so on ties the record appearing
// later in raw wins. A missing timestamp ranks below any present one.
// Records without an id get a positional key and are never merged.
//
// The result is ordered by first appearance of each key, not by recency.
// raw is never modified.
func Reconcile(raw []model.Participant) []model.Participant {
	out, _ := ReconcileWithStats(raw)
	return out
}

// ReconcileWithStats is Reconcile that also reports pass statistics.
func ReconcileWithStats(raw []model.Participant) ([]model.Participant, Stats) {
	stats := Stats{Raw: len(raw)}
	out := make([]model.Participant, 0, len(raw))
	slot := make(map[string]int, len(raw)) // key -> index in out

	for i, p := range raw {
		key := keyOf(p, i)
		if !p.HasID() {
			stats.Anonymous++
		}
		idx, seen := slot[key]
		if !seen {
			slot[key] = len(out)
			out = append(out, p)
			continue
		}
		if p.Recency() >= out[idx].Recency() {
			out[idx] = p
		}
	}

	stats.Reconciled = len(out)
	return out, stats
}

// keyOf returns the dedup key of the record at position i. The prefixes keep
// runner ids and positional keys in separate namespaces.
func keyOf(p model.Participant, i int) string {
	if p.HasID() {
		return "id\x00" + p.RunnerID
	}
	return "pos\x00" + strconv.Itoa(i)
}
