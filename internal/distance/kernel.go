// Package distance implements the Beat Distance Kernel: the weighted,
// per-segment similarity measure between two beats.
package distance

import (
	"math"

	"github.com/foreverjukebox/core/internal/track"
	"gonum.org/v1/gonum/floats"
)

// missingSegmentPenalty is the constant contribution added per position
// when one beat has fewer overlapping segments than the other.
const missingSegmentPenalty = 100.0

// phasePenalty is added when two beats have differing indexInParent.
const phasePenalty = 100.0

// Weights configures the per-component contribution to the per-segment
// distance. Field names mirror the enumerated options in the spec.
type Weights struct {
	Timbre     float64
	Pitch      float64
	LoudStart  float64
	LoudMax    float64
	Duration   float64
	Confidence float64
}

// CanonizerWeights returns the Canonizer's default weights.
func CanonizerWeights() Weights {
	return Weights{
		Timbre:     1,
		Pitch:      10,
		LoudStart:  1,
		LoudMax:    1,
		Duration:   100,
		Confidence: 1,
	}
}

// DefaultWeights returns the Jump Graph Builder's default weights, analogous
// to the Canonizer's.
func DefaultWeights() Weights {
	return CanonizerWeights()
}

// Kernel computes beat-to-beat distance under a fixed set of weights.
type Kernel struct {
	Weights Weights
}

// NewKernel constructs a Kernel with the given weights.
func NewKernel(w Weights) Kernel {
	return Kernel{Weights: w}
}

// Beat computes the directed distance from a to b. Distance is +Inf if a
// has no overlapping segments (a mute/unknown beat).
func (k Kernel) Beat(a, b *track.Beat) float64 {
	n := len(a.OverlappingSegments)
	if n == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sa := a.OverlappingSegments[i]
		if i >= len(b.OverlappingSegments) {
			sum += missingSegmentPenalty
			continue
		}
		sb := b.OverlappingSegments[i]
		sum += k.segment(sa, sb)
	}

	d := sum / float64(n)
	if a.IndexInParent != b.IndexInParent {
		d += phasePenalty
	}
	return d
}

// segment computes the weighted distance between two segments.
func (k Kernel) segment(a, b *track.Segment) float64 {
	w := k.Weights
	d := 0.0
	d += w.Timbre * floats.Distance(a.Timbre[:], b.Timbre[:], 2)
	d += w.Pitch * floats.Distance(a.Pitches[:], b.Pitches[:], 2)
	d += w.LoudStart * math.Abs(a.LoudnessStart-b.LoudnessStart)
	d += w.LoudMax * math.Abs(a.LoudnessMax-b.LoudnessMax)
	d += w.Duration * math.Abs(a.Duration-b.Duration)
	d += w.Confidence * math.Abs(a.Confidence-b.Confidence)
	return d
}
