// Package geo converts abstract provider positions into map coordinates.
package geo

import (
	"maps"

	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/internal/domain/types"
)

// Default map anchor and scale.
const (
	DefaultBaseLat = 38.7138
	DefaultBaseLon = -9.1396
	DefaultScale   = 0.02

	// unitsPerScale is how many position units map to one Scale step.
	unitsPerScale = 100.0
)

// DefaultOffsets separates the known routes visually so overlapping courses
// do not draw on top of each other. Routes missing here get a zero offset.
func DefaultOffsets() map[int]types.LatLon {
	return map[int]types.LatLon{
		1: {Lat: 0, Lon: 0},
		2: {Lat: 0.005, Lon: 0.005},
		3: {Lat: -0.005, Lon: 0.005},
	}
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithBase sets the coordinate the origin maps to.
func WithBase(lat, lon float64) Option {
	return func(m *Mapper) {
		m.baseLat = lat
		m.baseLon = lon
	}
}

// WithScale sets the degrees covered by 100 position units.
func WithScale(scale float64) Option {
	return func(m *Mapper) {
		if scale > 0 {
			m.scale = scale
		}
	}
}

// WithOffsets replaces the per-route offset table.
func WithOffsets(offsets map[int]types.LatLon) Option {
	return func(m *Mapper) {
		if offsets != nil {
			m.offsets = maps.Clone(offsets)
		}
	}
}

// Mapper is a pure, deterministic position to coordinate transform.
type Mapper struct {
	baseLat float64
	baseLon float64
	scale   float64
	offsets map[int]types.LatLon
}

// NewMapper returns a Mapper with the default anchor, scale and offsets.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		baseLat: DefaultBaseLat,
		baseLon: DefaultBaseLon,
		scale:   DefaultScale,
		offsets: DefaultOffsets(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Offset returns the visual offset of a route. Unknown routes get (0, 0).
func (m *Mapper) Offset(routeID int) types.LatLon {
	return m.offsets[routeID]
}

// Project maps an abstract (x, y) on the given route.
func (m *Mapper) Project(x, y float64, routeID int) types.LatLon {
	off := m.Offset(routeID)
	return types.LatLon{
		Lat: m.baseLat + (x/unitsPerScale)*m.scale + off.Lat,
		Lon: m.baseLon + (y/unitsPerScale)*m.scale + off.Lon,
	}
}

// Map returns the coordinate of a participant, false when either position
// component is missing.
func (m *Mapper) Map(p model.Participant) (types.LatLon, bool) {
	x, y, ok := p.Position()
	if !ok {
		return types.LatLon{}, false
	}
	return m.Project(x, y, p.Route()), true
}

// Markers maps every participant that has a position. The result is never nil.
func (m *Mapper) Markers(ps []model.Participant) []types.Marker {
	out := make([]types.Marker, 0, len(ps))
	for _, p := range ps {
		ll, ok := m.Map(p)
		if !ok {
			continue
		}
		x, y, _ := p.Position()
		sx, sy := p.Velocity()
		out = append(out, types.Marker{
			RunnerID:  p.RunnerID,
			Lat:       ll.Lat,
			Lon:       ll.Lon,
			RouteID:   p.Route(),
			PositionX: x,
			PositionY: y,
			SpeedX:    sx,
			SpeedY:    sy,
		})
	}
	return out
}

// Polyline maps the waypoints of a route with the offset of that route.
func (m *Mapper) Polyline(r model.Route) []types.LatLon {
	out := make([]types.LatLon, 0, len(r.Points))
	for _, pt := range r.Points {
		out = append(out, m.Project(pt.X, pt.Y, r.ID))
	}
	return out
}

// Overlay renders a route as a map overlay.
func (m *Mapper) Overlay(r model.Route) types.Overlay {
	return types.Overlay{
		RouteID:  r.ID,
		Name:     r.Name,
		Segments: r.Segments(),
		Path:     m.Polyline(r),
	}
}
