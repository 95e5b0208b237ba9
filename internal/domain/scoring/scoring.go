// Package scoring derives the ranking metrics of a participant.
package scoring

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/runtrack/internal/domain/model"
)

// DefaultSegments is the segment count assumed for a route the catalog does
// not describe.
const DefaultSegments = 3

// Progress returns segment / totalSegments. It is 0 when totalSegments is not
// positive. Values above 1 are kept so over-reporting stays visible.
func Progress(segment, totalSegments int) float64 {
	if totalSegments <= 0 {
		return 0
	}
	return float64(segment) / float64(totalSegments)
}

// Percent returns a ratio as a percentage rounded to one decimal.
func Percent(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}

// Speed returns the magnitude of the participant velocity; missing
// components count as 0.
func Speed(p model.Participant) float64 {
	sx, sy := p.Velocity()
	return floats.Norm([]float64{sx, sy}, 2)
}

// Metrics is the scored view of one participant.
type Metrics struct {
	Segment       int
	TotalSegments int
	Progress      float64 // ratio
	Speed         float64
}

// Score computes the metrics of p against a route of totalSegments legs.
func Score(p model.Participant, totalSegments int) Metrics {
	return Metrics{
		Segment:       p.Segment(),
		TotalSegments: totalSegments,
		Progress:      Progress(p.Segment(), totalSegments),
		Speed:         Speed(p),
	}
}
