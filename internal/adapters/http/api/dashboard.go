package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/okian/runtrack/internal/domain/types"
)

// DashboardDependencies defines the read side used by the dashboard.
type DashboardDependencies interface {
	View(ctx context.Context) (types.View, error)
}

// DashboardHandler renders the session view as an HTML page.
type DashboardHandler struct {
	deps DashboardDependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps DashboardDependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

// HandleDashboard handles GET /dashboard requests: a map of route overlays
// and filtered markers, followed by one chart per leaderboard.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_dashboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	v, err := h.deps.View(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	page := components.NewPage()
	page.SetPageTitle("runtrack")
	page.AddCharts(mapChart(v))
	for _, lb := range v.Leaderboards {
		page.AddCharts(leaderboardChart(lb))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		writeFailure(w, WrapKind(op, ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func mapSubtitle(v types.View) string {
	sub := fmt.Sprintf("participants=%d markers=%d", v.Participants, len(v.Markers))
	if v.Filter != "" {
		sub += fmt.Sprintf(" filter=%q", v.Filter)
	}
	if !v.UpdatedAt.IsZero() {
		sub += " updated=" + v.UpdatedAt.Format(time.RFC3339)
	}
	if v.Error != "" {
		sub += " error=" + v.Error
	}
	return sub
}

// mapChart draws route polylines as line series with the markers overlaid
// as a scatter series, longitude on X and latitude on Y.
func mapChart(v types.View) *charts.Line {
	axes := []charts.GlobalOpts{
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "lon", Scale: opts.Bool(true), Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "lat", Scale: opts.Bool(true), Min: "dataMin", Max: "dataMax"}),
	}

	routes := charts.NewLine()
	routes.SetGlobalOptions(append(axes,
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Live map", Subtitle: mapSubtitle(v)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)...)
	for _, o := range v.Overlays {
		path := make([]opts.LineData, 0, len(o.Path))
		for _, p := range o.Path {
			path = append(path, opts.LineData{Value: []interface{}{p.Lon, p.Lat}})
		}
		name := o.Name
		if name == "" {
			name = "route " + strconv.Itoa(o.RouteID)
		}
		routes.AddSeries(name, path, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	markers := make([]opts.ScatterData, 0, len(v.Markers))
	for _, m := range v.Markers {
		markers = append(markers, opts.ScatterData{Name: m.RunnerID, Value: []interface{}{m.Lon, m.Lat}})
	}
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(axes...)
	scatter.AddSeries("participants", markers)

	routes.Overlap(scatter)
	return routes
}

// leaderboardChart draws one leaderboard as a bar per ranked row.
func leaderboardChart(lb types.Leaderboard) *charts.Bar {
	title := "Overall"
	if lb.RouteID != 0 {
		title = lb.RouteName
		if title == "" {
			title = "Route " + strconv.Itoa(lb.RouteID)
		}
	}
	sub := "by " + lb.Mode
	if lb.Ranked() == 0 {
		sub += ", " + types.NoParticipants
	}

	labels := make([]string, 0, len(lb.Entries))
	values := make([]opts.BarData, 0, len(lb.Entries))
	for _, e := range lb.Entries {
		if e.IsPlaceholder() {
			continue
		}
		labels = append(labels, fmt.Sprintf("#%d %s", e.Rank, e.RunnerID))
		value := e.Progress
		if lb.Mode == types.ModeSpeed {
			value = e.Speed
		}
		values = append(values, opts.BarData{Value: value})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: sub}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries(lb.Mode, values,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
