// Package selector implements the Branch Selector: the decision of whether
// a beat boundary triggers a jump, and to which retained neighbor.
package selector

import (
	"math/rand"
	"time"
)

// RandomMode selects how a Selector's random draws are produced.
type RandomMode int

const (
	// RandomModeRandom seeds from the current wall-clock time in
	// nanoseconds, a different sequence every run.
	RandomModeRandom RandomMode = iota
	// RandomModeSeeded seeds from a caller-supplied int64, reproducible
	// across runs with the same seed.
	RandomModeSeeded
	// RandomModeFixed cycles through a caller-supplied sequence of draws,
	// for exact test determinism.
	RandomModeFixed
)

// RNG is the draw source the Selector consumes. Float64 returns a value in
// [0, 1).
type RNG interface {
	Float64() float64
}

// NewRNG constructs an RNG for the given mode. seed is used only in
// RandomModeSeeded; fixed is used only in RandomModeFixed and is cycled
// indefinitely.
func NewRNG(mode RandomMode, seed int64, fixed []float64) RNG {
	switch mode {
	case RandomModeSeeded:
		return rand.New(rand.NewSource(seed))
	case RandomModeFixed:
		return &fixedRNG{sequence: fixed}
	default:
		return rand.New(rand.NewSource(randomSeed()))
	}
}

func randomSeed() int64 { return time.Now().UnixNano() }

type fixedRNG struct {
	sequence []float64
	pos      int
}

func (f *fixedRNG) Float64() float64 {
	if len(f.sequence) == 0 {
		return 0
	}
	v := f.sequence[f.pos%len(f.sequence)]
	f.pos++
	return v
}
