// Package types contains the rendered view shapes shared across the application.
package types

import (
	"encoding/json"
	"time"
)

// NoParticipants is the placeholder text of an empty leaderboard.
const NoParticipants = "no participants"

// Leaderboard ordering modes.
const (
	ModeProgress = "progress"
	ModeSpeed    = "speed"
)

// LatLon is a geographic coordinate.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Marker is one participant plotted on the map.
type Marker struct {
	RunnerID  string  `json:"runner_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	RouteID   int     `json:"route_id"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	SpeedX    float64 `json:"speed_x"`
	SpeedY    float64 `json:"speed_y"`
}

// Overlay is a route polyline drawn on the map.
type Overlay struct {
	RouteID  int      `json:"id"`
	Name     string   `json:"name"`
	Segments int      `json:"segments"`
	Path     []LatLon `json:"path"`
}

// Entry is a leaderboard row. A row with a non-empty Placeholder carries no
// participant and stands for an empty leaderboard.
type Entry struct {
	Rank           int     `json:"rank"`
	RunnerID       string  `json:"runner_id,omitempty"`
	RouteID        int     `json:"route_id"`
	CurrentSegment int     `json:"current_segment"`
	TotalSegments  int     `json:"total_segments"`
	Progress       float64 `json:"progress"` // percent
	Speed          float64 `json:"speed"`
	SpeedX         float64 `json:"speed_x"`
	SpeedY         float64 `json:"speed_y"`
	PositionX      float64 `json:"position_x"`
	PositionY      float64 `json:"position_y"`
	Placeholder    string  `json:"placeholder,omitempty"`
}

// IsPlaceholder reports whether the row stands for an empty leaderboard.
func (e Entry) IsPlaceholder() bool { return e.Placeholder != "" }

// Leaderboard is the ordered table of one route, or the overall table in
// speed mode (RouteID 0).
type Leaderboard struct {
	RouteID       int     `json:"route_id"`
	RouteName     string  `json:"route_name"`
	TotalSegments int     `json:"total_segments"`
	Mode          string  `json:"mode"`
	Entries       []Entry `json:"entries"`
}

// Ranked returns the number of participant rows, placeholder excluded.
func (l Leaderboard) Ranked() int {
	n := 0
	for _, e := range l.Entries {
		if !e.IsPlaceholder() {
			n++
		}
	}
	return n
}

// View is one complete render pass.
type View struct {
	SessionID    string          `json:"session_id"`
	Seq          uint64          `json:"seq"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Filter       string          `json:"filter"`
	Error        string          `json:"error,omitempty"`
	Participants int             `json:"participants"`
	Markers      []Marker        `json:"markers"`
	Overlays     []Overlay       `json:"overlays"`
	Leaderboards []Leaderboard   `json:"leaderboards"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}
