package repository

import "errors"

// Sentinel kinds for view store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrClosed       = errors.New("view store closed")
)
