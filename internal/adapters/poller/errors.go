package poller

import "errors"

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("poller already started")
