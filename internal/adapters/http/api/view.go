package api

import (
	"context"
	"net/http"

	"github.com/okian/runtrack/internal/domain/types"
)

// ViewDependencies defines the read side of the rendered view.
type ViewDependencies interface {
	View(ctx context.Context) (types.View, error)
}

// ViewHandler serves the rendered view and its parts.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

// HandleView handles GET /view requests.
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	v, ok := h.current(w, r, "api.get_view")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleMarkers handles GET /markers requests. Only markers passing the
// active filter are returned.
func (h *ViewHandler) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	v, ok := h.current(w, r, "api.get_markers")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.Markers)
}

// HandleRoutes handles GET /routes requests.
func (h *ViewHandler) HandleRoutes(w http.ResponseWriter, r *http.Request) {
	v, ok := h.current(w, r, "api.get_routes")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.Overlays)
}

func (h *ViewHandler) current(w http.ResponseWriter, r *http.Request, op string) (types.View, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return types.View{}, false
	}
	v, err := h.deps.View(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return types.View{}, false
	}
	return v, true
}
