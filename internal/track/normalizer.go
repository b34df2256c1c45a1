package track

import (
	"encoding/json"
	"fmt"

	"github.com/foreverjukebox/core/internal/jukeboxerr"
	"github.com/foreverjukebox/core/internal/quantum"
)

type rawQuantum struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

type rawSegment struct {
	Start           float64   `json:"start"`
	Duration        float64   `json:"duration"`
	Confidence      float64   `json:"confidence"`
	LoudnessStart   float64   `json:"loudness_start"`
	LoudnessMax     float64   `json:"loudness_max"`
	LoudnessMaxTime float64   `json:"loudness_max_time"`
	Pitches         []float64 `json:"pitches"`
	Timbre          []float64 `json:"timbre"`
}

type rawTrackMeta struct {
	Duration      float64 `json:"duration"`
	Tempo         float64 `json:"tempo"`
	TimeSignature int     `json:"time_signature"`
}

type rawAnalysis struct {
	Sections []rawQuantum `json:"sections"`
	Bars     []rawQuantum `json:"bars"`
	Beats    []rawQuantum `json:"beats"`
	Tatums   []rawQuantum `json:"tatums"`
	Segments []rawSegment `json:"segments"`
	Track    rawTrackMeta `json:"track"`
}

type rawPayload struct {
	rawAnalysis
	Analysis *rawAnalysis `json:"analysis"`
}

// epsilon bounds the allowed slack in the beat-ordering invariant
// (start_i + duration_i <= start_{i+1} + epsilon).
const epsilon = 0.001

// Normalize parses an analysis payload (flat, or nested under "analysis")
// and returns a fully linked Track. It fails with a jukeboxerr of kind
// InvalidAnalysis for malformed input.
func Normalize(data []byte) (*Track, error) {
	var payload rawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, jukeboxerr.New(jukeboxerr.InvalidAnalysis, "malformed JSON", err)
	}

	raw := payload.rawAnalysis
	if payload.Analysis != nil {
		raw = *payload.Analysis
	}

	if len(raw.Beats) == 0 {
		return nil, jukeboxerr.New(jukeboxerr.InvalidAnalysis, "beats array is empty", nil)
	}

	for _, seg := range raw.Segments {
		if len(seg.Pitches) != 12 || len(seg.Timbre) != 12 {
			return nil, jukeboxerr.New(jukeboxerr.InvalidAnalysis,
				fmt.Sprintf("segment at %.3f has non-12 pitch/timbre vector", seg.Start), nil)
		}
	}

	sections := buildQuanta(raw.Sections)
	bars := buildQuanta(raw.Bars)
	beats := buildQuanta(raw.Beats)
	tatums := buildQuanta(raw.Tatums)

	for _, group := range [][]*quantum.Quantum{sections, bars, beats, tatums} {
		if err := checkMonotonic(group); err != nil {
			return nil, err
		}
	}

	quantum.LinkSiblings(quantum.KindSection, sections)
	quantum.LinkSiblings(quantum.KindBar, bars)
	quantum.LinkSiblings(quantum.KindBeat, beats)
	quantum.LinkSiblings(quantum.KindTatum, tatums)

	beatData := make([]*Beat, len(beats))
	for i, q := range beats {
		beatData[i] = &Beat{Quantum: *q}
	}
	// Re-point Quantum.Prev/Next to the copies held by Beat, not the
	// throwaway slice, so downstream code walking Beat.Quantum.Next sees
	// other Beats rather than the transient quantum slice.
	for i, b := range beatData {
		if i > 0 {
			b.Quantum.Prev = &beatData[i-1].Quantum
			beatData[i-1].Quantum.Next = &b.Quantum
		}
	}

	linkParentChild(sections, bars, func(b *quantum.Quantum, idx int) {})
	linkParentChild(bars, beatQuanta(beatData), func(beatQ *quantum.Quantum, idx int) {
		beatData[beatQ.Which].IndexInParent = idx
	})
	linkParentChild(beats, tatums, func(b *quantum.Quantum, idx int) {})

	segments := make([]*Segment, len(raw.Segments))
	for i, s := range raw.Segments {
		seg := &Segment{
			Start:           s.Start,
			Duration:        s.Duration,
			Confidence:      s.Confidence,
			LoudnessStart:   s.LoudnessStart,
			LoudnessMax:     s.LoudnessMax,
			LoudnessMaxTime: s.LoudnessMaxTime,
		}
		copy(seg.Pitches[:], s.Pitches)
		copy(seg.Timbre[:], s.Timbre)
		segments[i] = seg
	}

	attachOverlappingSegments(beatData, segments)

	trackDuration := raw.Track.Duration
	if trackDuration > 0 && len(beatData) > 0 {
		last := beatData[len(beatData)-1]
		if last.Start()+last.Duration() < trackDuration {
			last.Quantum.Duration = trackDuration - last.Start()
		}
	}

	return &Track{
		Duration:      trackDuration,
		Tempo:         raw.Track.Tempo,
		TimeSignature: raw.Track.TimeSignature,
		Sections:      sections,
		Bars:          bars,
		Beats:         beats,
		Tatums:        tatums,
		Segments:      segments,
		BeatData:      beatData,
	}, nil
}

func buildQuanta(rs []rawQuantum) []*quantum.Quantum {
	qs := make([]*quantum.Quantum, len(rs))
	for i, r := range rs {
		qs[i] = &quantum.Quantum{
			Start:      r.Start,
			Duration:   r.Duration,
			Confidence: r.Confidence,
		}
	}
	return qs
}

func checkMonotonic(qs []*quantum.Quantum) error {
	for i := 1; i < len(qs); i++ {
		if qs[i].Start < qs[i-1].Start {
			return jukeboxerr.New(jukeboxerr.InvalidAnalysis,
				fmt.Sprintf("quantum times are not monotonically non-decreasing at index %d", i), nil)
		}
		if qs[i-1].Start+qs[i-1].Duration > qs[i].Start+epsilon {
			return jukeboxerr.New(jukeboxerr.InvalidAnalysis,
				fmt.Sprintf("quantum %d overruns quantum %d's start beyond epsilon", i-1, i), nil)
		}
	}
	return nil
}

func beatQuanta(beatData []*Beat) []*quantum.Quantum {
	qs := make([]*quantum.Quantum, len(beatData))
	for i, b := range beatData {
		qs[i] = &b.Quantum
	}
	return qs
}

// linkParentChild links each child whose Start lies in a parent's interval
// as belonging to that parent, stamping index-in-parent monotonically via
// onChild(child, indexInParent). Children are assumed ordered by Start.
func linkParentChild(parents, children []*quantum.Quantum, onChild func(child *quantum.Quantum, idx int)) {
	if len(parents) == 0 || len(children) == 0 {
		return
	}
	pi := 0
	idxInParent := 0
	for _, c := range children {
		for pi < len(parents)-1 && c.Start >= parents[pi].End() {
			pi++
			idxInParent = 0
		}
		c.Parent = parents[pi]
		onChild(c, idxInParent)
		idxInParent++
	}
}

// attachOverlappingSegments assigns each beat the segments whose interval
// intersects it, inclusive on the left, exclusive on the right.
func attachOverlappingSegments(beats []*Beat, segments []*Segment) {
	si := 0
	for _, b := range beats {
		// Advance past segments that end at or before this beat starts.
		for si < len(segments) && segments[si].End() <= b.Start() {
			si++
		}
		j := si
		for j < len(segments) && segments[j].Start < b.End() {
			if b.Quantum.Overlaps(segments[j].Start, segments[j].Duration) {
				b.OverlappingSegments = append(b.OverlappingSegments, segments[j])
			}
			j++
		}
	}
}
