// Package track holds the analysis data model: tracks, beats, segments,
// and the directed similarity graph over beats.
package track

import "github.com/foreverjukebox/core/internal/quantum"

// Segment is a short analysis frame carrying pitch/timbre/loudness
// features, attached to the beats it overlaps.
type Segment struct {
	Start           float64
	Duration        float64
	Confidence      float64
	LoudnessStart   float64
	LoudnessMax     float64
	LoudnessMaxTime float64
	Pitches         [12]float64
	Timbre          [12]float64
}

// End returns the exclusive end of the segment's interval.
func (s *Segment) End() float64 { return s.Start + s.Duration }

// Beat is the primary playback quantum: the unit at which jumps occur.
type Beat struct {
	Quantum quantum.Quantum

	// OverlappingSegments are segments whose interval intersects the
	// beat's interval, in time order. Empty means the beat is mute/unknown
	// and is excluded from neighbor search.
	OverlappingSegments []*Segment

	// IndexInParent is this beat's position within its containing bar.
	IndexInParent int

	// Neighbors is the retained outgoing edge list after pruning, ordered
	// by distance ascending, rotated by the Branch Selector as it is used.
	Neighbors []*Edge

	// AllNeighbors is the full candidate list before threshold/limit.
	AllNeighbors []*Edge
}

// Which returns the beat's stable index among all beats.
func (b *Beat) Which() int { return b.Quantum.Which }

// Start returns the beat's start time.
func (b *Beat) Start() float64 { return b.Quantum.Start }

// Duration returns the beat's duration.
func (b *Beat) Duration() float64 { return b.Quantum.Duration }

// End returns the beat's exclusive end time.
func (b *Beat) End() float64 { return b.Quantum.End() }

// Edge is a directed similarity link: splicing from the end of Src
// directly into a point inside Dest is expected to sound acceptable.
type Edge struct {
	ID       uint64
	Src      *Beat
	Dest     *Beat
	Distance float64
	Deleted  bool
}

// GraphState summarizes the built jump graph.
type GraphState struct {
	ComputedThreshold float64
	CurrentThreshold  float64

	// LastBranchPoint is the latest beat from which every earlier beat can
	// still reach a branch. -1 means "no branch point could be established"
	// (treated as +∞: the Driver never force-branches).
	LastBranchPoint int

	TotalBeats    int
	LongestReach  int
	AllEdges      []*Edge
	Degenerate    bool
}

// HasBranchPoint reports whether LastBranchPoint is meaningful.
func (g *GraphState) HasBranchPoint() bool {
	return g != nil && g.LastBranchPoint >= 0
}

// Track is a fully normalized analysis: linked quanta plus the beat/edge
// graph once built.
type Track struct {
	Duration      float64
	Tempo         float64
	TimeSignature int

	Sections []*quantum.Quantum
	Bars     []*quantum.Quantum
	Beats    []*quantum.Quantum
	Tatums   []*quantum.Quantum

	Segments []*Segment

	// BeatData holds the augmented per-beat state (overlapping segments,
	// neighbors) parallel to Beats by index.
	BeatData []*Beat

	Graph *GraphState
}

// BeatAt returns the beat data at index i, or nil if out of range.
func (t *Track) BeatAt(i int) *Beat {
	if i < 0 || i >= len(t.BeatData) {
		return nil
	}
	return t.BeatData[i]
}

// TotalBeats returns the number of beats in the track.
func (t *Track) TotalBeats() int { return len(t.BeatData) }
