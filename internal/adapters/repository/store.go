// Package repository holds the latest rendered view for readers.
package repository

import (
	"context"

	"github.com/okian/runtrack/internal/domain/types"
)

// Store publishes rendered views and answers read queries against the
// latest one. Publish is called from the session event loop only; reads may
// come from any goroutine and never block it.
type Store interface {
	// Publish replaces the current view.
	Publish(ctx context.Context, v types.View) error

	// View returns the current view and false when nothing was published yet.
	View(ctx context.Context) (types.View, bool)

	// Leaderboard returns the leaderboard of one route.
	// Returns ErrNotFound if the route has no leaderboard.
	Leaderboard(ctx context.Context, routeID int) (types.Leaderboard, error)

	// Rank returns the leaderboard row of a runner.
	// Returns ErrNotFound if the runner is not ranked.
	Rank(ctx context.Context, runnerID string) (types.Entry, error)

	// TopN returns the first n ranked rows of a route leaderboard.
	TopN(ctx context.Context, routeID, n int) ([]types.Entry, error)

	// Count returns the number of reconciled participants in the view.
	Count(ctx context.Context) int
}
