package model

import (
	"encoding/json"
	"fmt"
)

// Point is a waypoint in abstract position units.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as the provider's [x, y] pair.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes an [x, y] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("point must have 2 coordinates, got %d", len(pair))
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// Route is a named, ordered sequence of waypoints.
type Route struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Segments returns the number of legs between consecutive waypoints.
func (r Route) Segments() int {
	if len(r.Points) < 2 {
		return 0
	}
	return len(r.Points) - 1
}
