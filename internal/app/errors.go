package service

import "errors"

// Sentinel kinds for session errors.
var (
	ErrNotStarted = errors.New("session not started")
	ErrDropped    = errors.New("session busy, event dropped")
)
