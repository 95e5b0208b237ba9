package model

import (
	"encoding/json"
	"time"
)

// EventKind identifies what a session event carries.
type EventKind string

// Session event kinds.
const (
	EventSnapshotFetched EventKind = "snapshot_fetched"
	EventFetchFailed     EventKind = "fetch_failed"
	EventRoutesLoaded    EventKind = "routes_loaded"
	EventRoutesFailed    EventKind = "routes_failed"
	EventFilterApplied   EventKind = "filter_applied"
	EventFilterCleared   EventKind = "filter_cleared"
)

// Event is one input to the session event loop. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind       EventKind
	Seq        uint64 // fetch sequence number, snapshot and failure events only
	ReceivedAt time.Time

	Participants []Participant
	Raw          json.RawMessage
	Routes       []Route
	Filter       string
	Err          error

	// Done, when non-nil, receives the outcome once the event has been
	// rendered. It must be buffered.
	Done chan error
}

// Ack reports the handling outcome to a waiting sender, if any.
func (e Event) Ack(err error) {
	if e.Done == nil {
		return
	}
	select {
	case e.Done <- err:
	default:
	}
}
