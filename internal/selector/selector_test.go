package selector

import (
	"testing"

	"github.com/foreverjukebox/core/internal/quantum"
	"github.com/foreverjukebox/core/internal/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beatAt(which int) *track.Beat {
	return &track.Beat{Quantum: quantum.Quantum{Which: which}}
}

func TestForcedBranchAtLastBranchPointAlwaysJumps(t *testing.T) {
	seed := beatAt(5)
	dest := beatAt(2)
	seed.Neighbors = []*track.Edge{{Src: seed, Dest: dest, Distance: 1}}
	graph := &track.GraphState{LastBranchPoint: 5}

	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.999}))
	state := NewBranchState(cfg)

	got, jumped := sel.Next(seed, graph, state, false)
	assert.True(t, jumped)
	assert.Same(t, dest, got)
	assert.Equal(t, cfg.MinRandomBranchChance, state.CurRandomBranchChance)
}

func TestNoForcedBranchWhenNoNeighbors(t *testing.T) {
	seed := beatAt(5)
	graph := &track.GraphState{LastBranchPoint: 5}
	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.999}))
	state := NewBranchState(cfg)

	got, jumped := sel.Next(seed, graph, state, false)
	assert.False(t, jumped)
	assert.Nil(t, got)
}

func TestForceBranchFlagOverridesRandomDraw(t *testing.T) {
	seed := beatAt(1)
	dest := beatAt(9)
	seed.Neighbors = []*track.Edge{{Src: seed, Dest: dest, Distance: 1}}
	graph := &track.GraphState{LastBranchPoint: -1}

	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.999}))
	state := NewBranchState(cfg)

	got, jumped := sel.Next(seed, graph, state, true)
	assert.True(t, jumped)
	assert.Same(t, dest, got)
}

func TestRandomDrawBelowChanceJumps(t *testing.T) {
	seed := beatAt(1)
	dest := beatAt(9)
	seed.Neighbors = []*track.Edge{{Src: seed, Dest: dest, Distance: 1}}
	graph := &track.GraphState{LastBranchPoint: -1}

	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.0}))
	state := NewBranchState(cfg)

	got, jumped := sel.Next(seed, graph, state, false)
	assert.True(t, jumped)
	assert.Same(t, dest, got)
}

func TestRandomDrawAboveChanceRatchetsUp(t *testing.T) {
	seed := beatAt(1)
	dest := beatAt(9)
	seed.Neighbors = []*track.Edge{{Src: seed, Dest: dest, Distance: 1}}
	graph := &track.GraphState{LastBranchPoint: -1}

	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.999}))
	state := NewBranchState(cfg)

	got, jumped := sel.Next(seed, graph, state, false)
	assert.False(t, jumped)
	assert.Nil(t, got)
	assert.InDelta(t, cfg.MinRandomBranchChance+cfg.RandomBranchChanceDelta, state.CurRandomBranchChance, 1e-9)
}

func TestRandomBranchChanceNeverExceedsMax(t *testing.T) {
	seed := beatAt(1)
	graph := &track.GraphState{LastBranchPoint: -1}
	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.999}))
	state := &BranchState{CurRandomBranchChance: cfg.MaxRandomBranchChance}

	_, jumped := sel.Next(seed, graph, state, false)
	assert.False(t, jumped)
	assert.Equal(t, cfg.MaxRandomBranchChance, state.CurRandomBranchChance)
}

func TestJumpRotatesChosenNeighborToBack(t *testing.T) {
	seed := beatAt(1)
	d1, d2 := beatAt(2), beatAt(3)
	e1 := &track.Edge{Src: seed, Dest: d1, Distance: 1}
	e2 := &track.Edge{Src: seed, Dest: d2, Distance: 2}
	seed.Neighbors = []*track.Edge{e1, e2}
	graph := &track.GraphState{LastBranchPoint: -1}

	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.0}))
	state := NewBranchState(cfg)

	got1, jumped1 := sel.Next(seed, graph, state, false)
	require.True(t, jumped1)
	assert.Same(t, d1, got1)
	require.Len(t, seed.Neighbors, 2)
	assert.Same(t, e2, seed.Neighbors[0])
	assert.Same(t, e1, seed.Neighbors[1])

	got2, jumped2 := sel.Next(seed, graph, state, false)
	require.True(t, jumped2)
	assert.Same(t, d2, got2)
}

func TestSkipsDeletedNeighborsWhenJumping(t *testing.T) {
	seed := beatAt(1)
	dest := beatAt(2)
	deleted := &track.Edge{Src: seed, Dest: beatAt(3), Deleted: true}
	live := &track.Edge{Src: seed, Dest: dest}
	seed.Neighbors = []*track.Edge{deleted, live}
	graph := &track.GraphState{LastBranchPoint: -1}

	cfg := DefaultConfig()
	sel := NewSelector(cfg, NewRNG(RandomModeFixed, 0, []float64{0.0}))
	state := NewBranchState(cfg)

	got, jumped := sel.Next(seed, graph, state, false)
	assert.True(t, jumped)
	assert.Same(t, dest, got)
}

func TestFixedRNGCyclesSequence(t *testing.T) {
	r := NewRNG(RandomModeFixed, 0, []float64{0.1, 0.2, 0.3})
	assert.Equal(t, 0.1, r.Float64())
	assert.Equal(t, 0.2, r.Float64())
	assert.Equal(t, 0.3, r.Float64())
	assert.Equal(t, 0.1, r.Float64())
}

func TestSeededRNGIsDeterministic(t *testing.T) {
	a := NewRNG(RandomModeSeeded, 42, nil)
	b := NewRNG(RandomModeSeeded, 42, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}
