// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// DefaultRouteID is the route a participant follows when the report omits it.
const DefaultRouteID = 1

// Participant is one raw report of a runner as published by the provider.
// A snapshot may carry several reports for the same runner. Optional fields
// are pointers; use the accessor methods to read them with their defaults.
type Participant struct {
	RunnerID       string   `json:"runner_id,omitempty"`
	PositionX      *float64 `json:"positionX,omitempty"`
	PositionY      *float64 `json:"positionY,omitempty"`
	SpeedX         *float64 `json:"speedX,omitempty"`
	SpeedY         *float64 `json:"speedY,omitempty"`
	RouteID        *int     `json:"route_id,omitempty"`
	CurrentSegment *int     `json:"current_segment,omitempty"`
	TimestampMs    *int64   `json:"timestampMs,omitempty"`
}

// HasID reports whether the report carried a non-empty runner identifier.
func (p Participant) HasID() bool { return p.RunnerID != "" }

// Route returns the route id, DefaultRouteID when absent.
func (p Participant) Route() int {
	if p.RouteID == nil {
		return DefaultRouteID
	}
	return *p.RouteID
}

// Segment returns the completed segment count, 0 when absent.
func (p Participant) Segment() int {
	if p.CurrentSegment == nil {
		return 0
	}
	return *p.CurrentSegment
}

// HasSegment reports whether the report carried current_segment.
func (p Participant) HasSegment() bool { return p.CurrentSegment != nil }

// Recency returns the capture timestamp; a missing one sorts below every
// present value.
func (p Participant) Recency() int64 {
	if p.TimestampMs == nil {
		return math.MinInt64
	}
	return *p.TimestampMs
}

// Velocity returns (speedX, speedY) with missing components as 0.
func (p Participant) Velocity() (float64, float64) {
	return deref(p.SpeedX), deref(p.SpeedY)
}

// Position returns (positionX, positionY) and whether both were present.
func (p Participant) Position() (float64, float64, bool) {
	if p.PositionX == nil || p.PositionY == nil {
		return 0, 0, false
	}
	return *p.PositionX, *p.PositionY, true
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// wireParticipant mirrors the provider payload. Integer fields keep their
// literal text so large timestamps survive decoding exactly.
type wireParticipant struct {
	RunnerID       json.RawMessage `json:"runner_id"`
	LegacyID       json.RawMessage `json:"id"`
	PositionX      *float64        `json:"positionX"`
	PositionY      *float64        `json:"positionY"`
	SpeedX         *float64        `json:"speedX"`
	SpeedY         *float64        `json:"speedY"`
	RouteID        *json.Number    `json:"route_id"`
	CurrentSegment *json.Number    `json:"current_segment"`
	TimestampMs    *json.Number    `json:"timestampMs"`
}

// UnmarshalJSON decodes a provider report. runner_id may be a string or a
// number; the legacy "id" field is used when runner_id is absent.
func (p *Participant) UnmarshalJSON(data []byte) error {
	var w wireParticipant
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, ok, err := decodeID(w.RunnerID)
	if err != nil {
		return fmt.Errorf("runner_id: %w", err)
	}
	if !ok {
		if id, _, err = decodeID(w.LegacyID); err != nil {
			return fmt.Errorf("id: %w", err)
		}
	}

	route, err := wholeNumber(w.RouteID)
	if err != nil {
		return fmt.Errorf("route_id: %w", err)
	}
	segment, err := wholeNumber(w.CurrentSegment)
	if err != nil {
		return fmt.Errorf("current_segment: %w", err)
	}
	ts, err := wholeNumber(w.TimestampMs)
	if err != nil {
		return fmt.Errorf("timestampMs: %w", err)
	}

	*p = Participant{
		RunnerID:       id,
		PositionX:      w.PositionX,
		PositionY:      w.PositionY,
		SpeedX:         w.SpeedX,
		SpeedY:         w.SpeedY,
		RouteID:        toInt(route),
		CurrentSegment: toInt(segment),
		TimestampMs:    ts,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{', '[':
		return "", false, fmt.Errorf("unsupported identifier %s", raw)
	default:
		// numbers and booleans keep their literal text
		return string(raw), true, nil
	}
}

// wholeNumber parses an optional integer field. Integral floats such as 2.0
// or 1e3 are accepted; fractional values are an error.
func wholeNumber(n *json.Number) (*int64, error) {
	if n == nil {
		return nil, nil
	}
	if i, err := n.Int64(); err == nil {
		return &i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%s is not an integer", n.String())
	}
	i := int64(f)
	return &i, nil
}

func toInt(v *int64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
