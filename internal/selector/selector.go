package selector

import "github.com/foreverjukebox/core/internal/track"

// Config enumerates the Branch Selector's probability tuning (spec §6).
type Config struct {
	MinRandomBranchChance   float64
	MaxRandomBranchChance   float64
	RandomBranchChanceDelta float64
}

// DefaultConfig returns the enumerated defaults from spec §6.
func DefaultConfig() Config {
	return Config{
		MinRandomBranchChance:   0.18,
		MaxRandomBranchChance:   0.5,
		RandomBranchChanceDelta: 0.018,
	}
}

// BranchState is the Selector's per-playback mutable state: the current
// chance of a spontaneous branch, which ratchets up the longer playback
// goes without jumping and resets whenever it does.
type BranchState struct {
	CurRandomBranchChance float64
}

// NewBranchState returns a BranchState primed at the configured minimum.
func NewBranchState(cfg Config) *BranchState {
	return &BranchState{CurRandomBranchChance: cfg.MinRandomBranchChance}
}

// Selector decides, at each beat boundary, whether to jump and to which
// retained neighbor.
type Selector struct {
	Config Config
	RNG    RNG
}

// NewSelector constructs a Selector over the given config and draw source.
func NewSelector(cfg Config, rng RNG) *Selector {
	return &Selector{Config: cfg, RNG: rng}
}

// Next decides the outcome for the beat boundary at seed. graph supplies
// lastBranchPoint; forceBranch lets a caller (e.g. a "skip ahead" command)
// demand a jump regardless of the random draw. It returns the destination
// beat and true if a jump was chosen; nil, false means "advance linearly".
//
// Decision order: a forced branch at lastBranchPoint or via forceBranch
// always takes priority over the random draw. Failing both, a draw against
// CurRandomBranchChance decides; a jump resets the chance to the configured
// minimum, a non-jump ratchets it up by RandomBranchChanceDelta capped at
// MaxRandomBranchChance. A chosen edge is rotated to the back of the
// beat's neighbor list so repeated visits to the same beat cycle through
// its retained neighbors rather than always taking the nearest one.
func (s *Selector) Next(seed *track.Beat, graph *track.GraphState, state *BranchState, forceBranch bool) (*track.Beat, bool) {
	mustBranch := forceBranch || (graph.HasBranchPoint() && seed.Which() == graph.LastBranchPoint)

	if mustBranch {
		if dest, ok := s.jump(seed, state); ok {
			return dest, true
		}
		return nil, false
	}

	if s.RNG.Float64() < state.CurRandomBranchChance {
		if dest, ok := s.jump(seed, state); ok {
			return dest, true
		}
	}

	state.CurRandomBranchChance += s.Config.RandomBranchChanceDelta
	if state.CurRandomBranchChance > s.Config.MaxRandomBranchChance {
		state.CurRandomBranchChance = s.Config.MaxRandomBranchChance
	}
	return nil, false
}

// jump picks the first non-deleted neighbor, rotates it to the back of
// seed's neighbor list, resets the branch chance, and returns its
// destination. ok is false if seed has no retained, non-deleted neighbor.
func (s *Selector) jump(seed *track.Beat, state *BranchState) (*track.Beat, bool) {
	idx := -1
	for i, e := range seed.Neighbors {
		if !e.Deleted {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	chosen := seed.Neighbors[idx]
	seed.Neighbors = append(append(append([]*track.Edge{}, seed.Neighbors[:idx]...), seed.Neighbors[idx+1:]...), chosen)

	state.CurRandomBranchChance = s.Config.MinRandomBranchChance
	return chosen.Dest, true
}
