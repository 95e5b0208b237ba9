package queue

import "errors"

// ErrDropped is returned by EnqueueWait when the queue is closed.
var ErrDropped = errors.New("event dropped")
