package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/runtrack/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	View(ctx context.Context) (types.View, error)
	Leaderboard(ctx context.Context, routeID int) (types.Leaderboard, error)
	TopN(ctx context.Context, routeID, n int) ([]types.Entry, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests.
//
//	/leaderboard                  every leaderboard of the view
//	/leaderboard?route=N          the leaderboard of route N
//	/leaderboard?route=N&limit=K  the first K ranked rows of route N
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	routeStr, limitStr := q.Get("route"), q.Get("limit")

	if routeStr == "" {
		if limitStr != "" {
			writeFailure(w, NewKind(op, ErrBadRequest))
			return
		}
		v, err := h.deps.View(r.Context())
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, v.Leaderboards)
		return
	}

	routeID, err := strconv.Atoi(routeStr)
	if err != nil || routeID < 0 {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}

	if limitStr == "" {
		lb, err := h.deps.Leaderboard(r.Context(), routeID)
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, lb)
		return
	}

	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopN(r.Context(), routeID, n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
