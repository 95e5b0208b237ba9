// Package routes holds the static route catalog loaded once per session.
package routes

import (
	"slices"

	"github.com/okian/runtrack/internal/domain/model"
)

// Catalog is an immutable route lookup keyed by route id.
// The zero value is an empty catalog.
type Catalog struct {
	byID map[int]model.Route
	ids  []int
}

// New builds a catalog. When an id appears more than once the last
// definition wins.
func New(rs []model.Route) *Catalog {
	c := &Catalog{byID: make(map[int]model.Route, len(rs))}
	for _, r := range rs {
		r.Points = slices.Clone(r.Points)
		c.byID[r.ID] = r
	}
	c.ids = make([]int, 0, len(c.byID))
	for id := range c.byID {
		c.ids = append(c.ids, id)
	}
	slices.Sort(c.ids)
	return c
}

// Len returns the number of distinct routes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// IDs returns the route ids in ascending order.
func (c *Catalog) IDs() []int {
	if c == nil {
		return nil
	}
	return slices.Clone(c.ids)
}

// Route returns the route with the given id.
func (c *Catalog) Route(id int) (model.Route, bool) {
	if c == nil {
		return model.Route{}, false
	}
	r, ok := c.byID[id]
	return r, ok
}

// Routes returns every route ordered by id.
func (c *Catalog) Routes() []model.Route {
	out := make([]model.Route, 0, c.Len())
	for _, id := range c.IDs() {
		out = append(out, c.byID[id])
	}
	return out
}

// Points returns the waypoints of a route, nil when unknown.
func (c *Catalog) Points(id int) []model.Point {
	r, ok := c.Route(id)
	if !ok {
		return nil
	}
	return slices.Clone(r.Points)
}

// Name returns the display name of a route, empty when unknown.
func (c *Catalog) Name(id int) string {
	r, _ := c.Route(id)
	return r.Name
}

// Segments returns the number of legs of a route and whether it is known.
func (c *Catalog) Segments(id int) (int, bool) {
	r, ok := c.Route(id)
	if !ok {
		return 0, false
	}
	return r.Segments(), true
}

// SegmentsOr returns the segment count of a known route or def otherwise.
func (c *Catalog) SegmentsOr(id, def int) int {
	if n, ok := c.Segments(id); ok {
		return n
	}
	return def
}
