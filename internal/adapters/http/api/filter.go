package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/runtrack/internal/domain/types"
)

// defaultFilterTimeout bounds how long a filter request waits for its render.
const defaultFilterTimeout = 5 * time.Second

// FilterDependencies defines the interface for filter changes.
type FilterDependencies interface {
	ApplyFilter(ctx context.Context, text string) (types.View, error)
	ClearFilter(ctx context.Context) (types.View, error)
}

// FilterHandler handles filter submissions.
type FilterHandler struct {
	deps    FilterDependencies
	timeout time.Duration
}

// NewFilterHandler creates a new filter handler.
func NewFilterHandler(deps FilterDependencies) *FilterHandler {
	return &FilterHandler{deps: deps, timeout: defaultFilterTimeout}
}

type filterRequest struct {
	Filter string `json:"filter"`
}

type filterResponse struct {
	Filter  string         `json:"filter"`
	Seq     uint64         `json:"seq"`
	Markers []types.Marker `json:"markers"`
}

// HandleFilter handles POST /filter (apply) and DELETE /filter (clear).
// The response is sent once the view reflects the change.
func (h *FilterHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	const op = "api.filter"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		v   types.View
		err error
	)
	switch r.Method {
	case http.MethodPost:
		var req filterRequest
		if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, derr))
			return
		}
		v, err = h.deps.ApplyFilter(ctx, req.Filter)
	case http.MethodDelete:
		v, err = h.deps.ClearFilter(ctx)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, filterResponse{Filter: v.Filter, Seq: v.Seq, Markers: v.Markers})
}
