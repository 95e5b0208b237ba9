package probe

import (
	"errors"
	"fmt"
)

// Sentinel kinds for probe errors.
var (
	ErrUnhealthy  = errors.New("tracker unhealthy")
	ErrViolations = errors.New("view invariants violated")
	ErrNoSamples  = errors.New("no view could be sampled")
)

// StatusError reports an unexpected HTTP status from the tracker.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}
