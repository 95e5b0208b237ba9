// Package api serves the rendered session outputs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/okian/runtrack/internal/adapters/repository"
	service "github.com/okian/runtrack/internal/app"
	"github.com/okian/runtrack/internal/domain/types"
)

// Dependencies required by HTTP handlers. Reads never block the session
// event loop; filter changes wait for the render that applies them.
type Dependencies interface {
	View(ctx context.Context) (types.View, error)
	Leaderboard(ctx context.Context, routeID int) (types.Leaderboard, error)
	TopN(ctx context.Context, routeID, n int) ([]types.Entry, error)
	Rank(ctx context.Context, runnerID string) (types.Entry, error)

	ApplyFilter(ctx context.Context, text string) (types.View, error)
	ClearFilter(ctx context.Context) (types.View, error)
}

// Server wires HTTP routes for the tracker outputs.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	viewHandler        *ViewHandler
	filterHandler      *FilterHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	dashboardHandler   *DashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		viewHandler:        NewViewHandler(deps),
		filterHandler:      NewFilterHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		dashboardHandler:   NewDashboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/view", MetricsMiddleware(s.viewHandler.HandleView, "view"))
	mux.HandleFunc("/markers", MetricsMiddleware(s.viewHandler.HandleMarkers, "markers"))
	mux.HandleFunc("/routes", MetricsMiddleware(s.viewHandler.HandleRoutes, "routes"))
	mux.HandleFunc("/filter", MetricsMiddleware(s.filterHandler.HandleFilter, "filter"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates upstream errors into a status and a stable code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrDropped):
		writeError(w, http.StatusServiceUnavailable, "busy", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, repository.ErrClosed), errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
