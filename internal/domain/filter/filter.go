// Package filter restricts the displayed participants by identifier.
package filter

import (
	"strings"

	"github.com/samber/lo"

	"github.com/okian/runtrack/internal/domain/model"
)

// Filter is a parsed identifier filter. The zero value matches everything.
type Filter struct {
	text      string
	fragments []string
}

// Parse splits text on commas into lower-cased, trimmed fragments. Empty
// fragments are dropped; a filter with no fragments passes everything.
func Parse(text string) Filter {
	parts := strings.Split(text, ",")
	frags := lo.FilterMap(parts, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	})
	return Filter{text: strings.TrimSpace(text), fragments: lo.Uniq(frags)}
}

// IsEmpty reports whether the filter passes every participant.
func (f Filter) IsEmpty() bool { return len(f.fragments) == 0 }

// String returns the text the filter was parsed from.
func (f Filter) String() string { return f.text }

// Fragments returns a copy of the parsed fragments.
func (f Filter) Fragments() []string { return append([]string(nil), f.fragments...) }

// Match reports whether the runner id contains any fragment, ignoring case.
func (f Filter) Match(runnerID string) bool {
	if f.IsEmpty() {
		return true
	}
	id := strings.ToLower(runnerID)
	return lo.SomeBy(f.fragments, func(frag string) bool {
		return strings.Contains(id, frag)
	})
}

// Apply returns the matching participants in input order. ps is not modified.
func (f Filter) Apply(ps []model.Participant) []model.Participant {
	if f.IsEmpty() {
		out := make([]model.Participant, len(ps))
		copy(out, ps)
		return out
	}
	return lo.Filter(ps, func(p model.Participant, _ int) bool {
		return f.Match(p.RunnerID)
	})
}
