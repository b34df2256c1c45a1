// Package canonizer implements the optional Canonizer (component G): for
// each section it finds the dominant integer offset that best explains the
// section's own nearest-neighbor structure, pairs every beat with the beat
// that offset away, and tracks the crossfade gain and accumulated skew
// needed to blend the two concurrent buffer reads that pairing implies.
package canonizer

import (
	"time"

	"github.com/foreverjukebox/core/internal/distance"
	"github.com/foreverjukebox/core/internal/quantum"
	"github.com/foreverjukebox/core/internal/track"
)

// DefaultMasterBlend is the default weight given to the live (non-canonized)
// buffer read; the paired "other" read gets 1-DefaultMasterBlend, further
// scaled by OtherGain.
const DefaultMasterBlend = 0.5

// ResyncSkewThreshold is the accumulated-skew duration past which a
// SkewTracker reports that the offset track needs realigning.
const ResyncSkewThreshold = 50 * time.Millisecond

// Table is the per-beat canonization result.
type Table struct {
	// CanonicalWhich[i] is the beat index beat i has been paired with:
	// beats[i.which-Offset[i]], or i itself when that index falls outside
	// the track.
	CanonicalWhich []int

	// Offset[i] is the section-dominant integer shift applied to beat i.
	Offset []int

	// OtherGain[i] is the crossfade weight given to the paired-beat buffer
	// read at beat i: 1.0 away from a pairing discontinuity, halved at the
	// beat where the pairing stops being sequential, recovering toward 1.0
	// over subsequent beats.
	OtherGain []float64

	// MasterBlend is the gain given to the beat's own buffer read; the
	// paired read gets (1-MasterBlend)*OtherGain[i].
	MasterBlend float64
}

// Gains returns the two concurrent playback gains for beat which: the
// beat's own buffer read and its paired "other" buffer read.
func (tbl *Table) Gains(which int) (masterGain, otherGain float64) {
	if which < 0 || which >= len(tbl.OtherGain) {
		return tbl.MasterBlend, 0
	}
	return tbl.MasterBlend, (1 - tbl.MasterBlend) * tbl.OtherGain[which]
}

// BeatSkew returns the duration skew between beat which and its paired
// other beat (beat.duration - other.duration), the quantity SkewTracker
// accumulates over playback.
func (tbl *Table) BeatSkew(t *track.Track, which int) time.Duration {
	if which < 0 || which >= len(tbl.CanonicalWhich) {
		return 0
	}
	b := t.BeatAt(which)
	other := t.BeatAt(tbl.CanonicalWhich[which])
	if b == nil || other == nil {
		return 0
	}
	return durationOf(b.Duration()) - durationOf(other.Duration())
}

// SkewTracker accumulates BeatSkew across played beats and reports when the
// accumulated drift crosses ResyncSkewThreshold.
type SkewTracker struct {
	accumulated time.Duration
}

// Accumulate adds skew for one played beat and reports whether the running
// total has exceeded ResyncSkewThreshold. The accumulator resets on a fire
// so skew is measured from the last resync, not from playback start.
func (s *SkewTracker) Accumulate(skew time.Duration) bool {
	s.accumulated += skew
	abs := s.accumulated
	if abs < 0 {
		abs = -abs
	}
	if abs > ResyncSkewThreshold {
		s.accumulated = 0
		return true
	}
	return false
}

func durationOf(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Canonizer computes a Table for a track under a fixed distance Kernel.
type Canonizer struct {
	Kernel      distance.Kernel
	MasterBlend float64
}

// New constructs a Canonizer using the Canonizer's default weights and
// DefaultMasterBlend.
func New() *Canonizer {
	return &Canonizer{
		Kernel:      distance.NewKernel(distance.CanonizerWeights()),
		MasterBlend: DefaultMasterBlend,
	}
}

func (c *Canonizer) masterBlend() float64 {
	if c.MasterBlend <= 0 {
		return DefaultMasterBlend
	}
	return c.MasterBlend
}

// Build computes the canonization Table for t. A track with fewer than two
// beats has nothing to pair against and produces an all-identity Table.
func (c *Canonizer) Build(t *track.Track) *Table {
	n := t.TotalBeats()
	tbl := &Table{
		CanonicalWhich: make([]int, n),
		Offset:         make([]int, n),
		OtherGain:      make([]float64, n),
		MasterBlend:    c.masterBlend(),
	}
	for i := range tbl.CanonicalWhich {
		tbl.CanonicalWhich[i] = i
		tbl.OtherGain[i] = 1.0
	}
	if n < 2 {
		return tbl
	}

	nn := c.nearestNeighbors(t)

	for _, section := range sectionGroups(t) {
		delta := dominantOffset(section, nn)
		for _, which := range section {
			other := which - delta
			if other < 0 || other >= n {
				other = which
			}
			tbl.Offset[which] = delta
			tbl.CanonicalWhich[which] = other
		}
	}

	applyOtherGain(tbl, n)
	return tbl
}

// nearestNeighbors returns, for every beat, the which-index of the other
// beat in the track closest to it under the Canonizer's Kernel.
func (c *Canonizer) nearestNeighbors(t *track.Track) []int {
	n := t.TotalBeats()
	nn := make([]int, n)
	for i := 0; i < n; i++ {
		a := t.BeatAt(i)
		best := i
		bestDist := -1.0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			b := t.BeatAt(j)
			if a == nil || b == nil {
				continue
			}
			d := c.Kernel.Beat(a, b)
			if bestDist < 0 || d < bestDist {
				bestDist = d
				best = j
			}
		}
		nn[i] = best
	}
	return nn
}

// dominantOffset returns the integer offset delta that places the most
// beats in section's nearest neighbor at which-delta, per spec's "dominant
// offset maximizing nearest-neighbor vote count". Ties favor whichever
// delta the section reaches first, for determinism.
func dominantOffset(section []int, nn []int) int {
	votes := make(map[int]int, len(section))
	best, bestCount := 0, -1
	for _, which := range section {
		delta := which - nn[which]
		votes[delta]++
		if votes[delta] > bestCount {
			bestCount = votes[delta]
			best = delta
		}
	}
	return best
}

// applyOtherGain halves the paired-buffer gain at every beat whose pairing
// isn't a sequential continuation of the previous beat's, then lets it
// recover by doubling back toward 1.0 over subsequent beats.
func applyOtherGain(tbl *Table, n int) {
	gain := 1.0
	for i := 0; i < n; i++ {
		discontinuous := i > 0 && tbl.CanonicalWhich[i-1]+1 != tbl.CanonicalWhich[i]
		if discontinuous {
			gain *= 0.5
		} else if gain < 1.0 {
			gain *= 2.0
			if gain > 1.0 {
				gain = 1.0
			}
		}
		tbl.OtherGain[i] = gain
	}
}

// sectionGroups returns, for each section (in order), the ordered list of
// beat-which indices it contains.
func sectionGroups(t *track.Track) [][]int {
	var groups [][]int
	var cur []int
	var curSection *quantum.Quantum

	for _, beat := range t.BeatData {
		section := sectionOf(&beat.Quantum)
		if section != curSection {
			if len(cur) > 0 {
				groups = append(groups, cur)
			}
			cur = nil
			curSection = section
		}
		cur = append(cur, beat.Which())
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// sectionOf walks Parent links up from a beat's bar to its section.
func sectionOf(q *quantum.Quantum) *quantum.Quantum {
	if q.Parent == nil {
		return nil
	}
	return q.Parent.Parent
}
