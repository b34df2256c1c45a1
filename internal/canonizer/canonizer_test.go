package canonizer

import (
	"testing"
	"time"

	"github.com/foreverjukebox/core/internal/quantum"
	"github.com/foreverjukebox/core/internal/track"
	"github.com/stretchr/testify/assert"
)

// buildRepeatedSectionTrack creates two sections of n beats each, where
// section two is an exact repeat of section one's timbre sequence shifted
// by shift positions, so every section-two beat's global nearest neighbor
// is recoverable exactly.
func buildRepeatedSectionTrack(n, shift int) *track.Track {
	sectionA := &quantum.Quantum{Kind: quantum.KindSection, Which: 0, Start: 0, Duration: float64(n)}
	sectionB := &quantum.Quantum{Kind: quantum.KindSection, Which: 1, Start: float64(n), Duration: float64(n)}
	barA := &quantum.Quantum{Kind: quantum.KindBar, Which: 0, Start: 0, Duration: float64(n), Parent: sectionA}
	barB := &quantum.Quantum{Kind: quantum.KindBar, Which: 1, Start: float64(n), Duration: float64(n), Parent: sectionB}

	beats := make([]*track.Beat, 0, 2*n)

	mk := func(which int, start float64, bar *quantum.Quantum, value float64) *track.Beat {
		seg := &track.Segment{Start: start, Duration: 1}
		for i := range seg.Timbre {
			seg.Timbre[i] = value
		}
		q := quantum.Quantum{Kind: quantum.KindBeat, Which: which, Start: start, Duration: 1, Parent: bar}
		return &track.Beat{Quantum: q, OverlappingSegments: []*track.Segment{seg}}
	}

	for i := 0; i < n; i++ {
		beats = append(beats, mk(i, float64(i), barA, float64(i)))
	}
	for i := 0; i < n; i++ {
		value := float64((i + shift) % n)
		beats = append(beats, mk(n+i, float64(n+i), barB, value))
	}

	return &track.Track{BeatData: beats}
}

func TestCanonizerDegenerateOnFewerThanTwoBeats(t *testing.T) {
	tr := buildRepeatedSectionTrack(1, 0)
	tr.BeatData = tr.BeatData[:1]
	c := New()
	tbl := c.Build(tr)

	assert.Equal(t, 0, tbl.CanonicalWhich[0])
	assert.Equal(t, 0, tbl.Offset[0])
	assert.Equal(t, 1.0, tbl.OtherGain[0])
}

func TestCanonizerPairsRepeatedSectionToOriginal(t *testing.T) {
	tr := buildRepeatedSectionTrack(6, 0)
	c := New()
	tbl := c.Build(tr)

	assert.Equal(t, 6, tbl.Offset[6])
	for i := 0; i < 6; i++ {
		assert.Equal(t, i, tbl.CanonicalWhich[6+i])
	}

	// Section A pairs forward with section B, so the pairing jumps from
	// section A's tail (CanonicalWhich[5]=11) to section B's head
	// (CanonicalWhich[6]=0): a discontinuity, so the first
	// beat of section B halves, then recovers immediately since the rest of
	// the section's pairing is sequential.
	assert.Equal(t, 0.5, tbl.OtherGain[6])
	assert.Equal(t, 1.0, tbl.OtherGain[7])
}

func TestDominantOffsetPicksMajorityVote(t *testing.T) {
	// Beats 0..4 vote for offset 5 three times and offset 2 twice; 5 must win.
	section := []int{0, 1, 2, 3, 4}
	nn := []int{-5, -4, 0, 1, -1} // deltas: 5,5,2,2,5
	assert.Equal(t, 5, dominantOffset(section, nn))
}

func TestApplyOtherGainHalvesAtDiscontinuityAndRecovers(t *testing.T) {
	tbl := &Table{
		CanonicalWhich: []int{0, 1, 5, 6, 7},
		OtherGain:      make([]float64, 5),
	}
	applyOtherGain(tbl, 5)
	assert.Equal(t, []float64{1, 1, 0.5, 1, 1}, tbl.OtherGain)
}

func TestGainsSplitsMasterAndPairedByBlend(t *testing.T) {
	tbl := &Table{MasterBlend: 0.5, OtherGain: []float64{1, 0.5}}

	master, other := tbl.Gains(0)
	assert.Equal(t, 0.5, master)
	assert.Equal(t, 0.5, other)

	master, other = tbl.Gains(1)
	assert.Equal(t, 0.5, master)
	assert.Equal(t, 0.25, other)
}

func TestGainsOutOfRangeGivesNoPairedSignal(t *testing.T) {
	tbl := &Table{MasterBlend: 0.5, OtherGain: []float64{1}}
	master, other := tbl.Gains(5)
	assert.Equal(t, 0.5, master)
	assert.Equal(t, 0.0, other)
}

func TestBeatSkewComputesDurationDifference(t *testing.T) {
	tr := &track.Track{BeatData: []*track.Beat{
		{Quantum: quantum.Quantum{Which: 0, Start: 0, Duration: 0.5}},
		{Quantum: quantum.Quantum{Which: 1, Start: 0.5, Duration: 0.8}},
	}}
	tbl := &Table{CanonicalWhich: []int{1, 0}}

	skew := tbl.BeatSkew(tr, 0)
	assert.InDelta(t, -300*time.Millisecond, skew, float64(time.Microsecond))
}

func TestSkewTrackerFiresOnceAccumulatedSkewExceedsThresholdAndResets(t *testing.T) {
	var tracker SkewTracker

	assert.False(t, tracker.Accumulate(30*time.Millisecond))
	assert.True(t, tracker.Accumulate(30*time.Millisecond))
	assert.False(t, tracker.Accumulate(10*time.Millisecond))
}

func TestSkewTrackerTracksNegativeSkewByMagnitude(t *testing.T) {
	var tracker SkewTracker

	assert.False(t, tracker.Accumulate(-30*time.Millisecond))
	assert.True(t, tracker.Accumulate(-30*time.Millisecond))
}
