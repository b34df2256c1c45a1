// Package jumpgraph builds the directed similarity graph over a track's
// beats: candidate generation, global thresholding, per-beat pruning, and
// the reachability guarantee that playback never runs off the end of the
// track without a branch.
package jumpgraph

import (
	"sort"
	"sync"

	"github.com/foreverjukebox/core/internal/distance"
	"github.com/foreverjukebox/core/internal/jukeboxerr"
	"github.com/foreverjukebox/core/internal/track"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"
)

// Builder computes and mutates a track's GraphState. A Builder owns the set
// of user-deleted edges so that Rebuild can reapply them after a fresh
// candidate pass.
type Builder struct {
	Config Config
	kernel distance.Kernel

	mu      sync.Mutex
	deleted map[[2]int]struct{}
	nextID  uint64
}

// NewBuilder constructs a Builder with the given config.
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		Config:  cfg,
		kernel:  distance.NewKernel(cfg.Weights),
		deleted: make(map[[2]int]struct{}),
	}
}

// Build computes a fresh GraphState for t and attaches it to t.Graph. When
// the track has fewer than two beats, it returns a degenerate GraphState
// alongside a DegenerateGraph error: callers that only care about the
// graceful-degradation signal can check errors.Is against
// jukeboxerr.ErrDegenerateGraph rather than treating this as fatal.
func (b *Builder) Build(t *track.Track) (*track.GraphState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buildLocked(t)
}

// Rebuild recomputes the graph from scratch, reapplying every edge deletion
// recorded so far. It is idempotent: calling it twice in a row with no
// intervening DeleteEdge produces the same GraphState.
func (b *Builder) Rebuild(t *track.Track) (*track.GraphState, error) {
	return b.Build(t)
}

// DeleteEdge removes the edge between the beats at srcWhich and destWhich,
// and its mirror, from future builds. The caller is expected to call
// Rebuild afterward to recompute LastBranchPoint and the retained neighbor
// lists under the new constraint.
func (b *Builder) DeleteEdge(srcWhich, destWhich int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted[[2]int{srcWhich, destWhich}] = struct{}{}
	b.deleted[[2]int{destWhich, srcWhich}] = struct{}{}
}

func (b *Builder) isDeleted(srcWhich, destWhich int) bool {
	_, ok := b.deleted[[2]int{srcWhich, destWhich}]
	return ok
}

func (b *Builder) buildLocked(t *track.Track) (*track.GraphState, error) {
	total := t.TotalBeats()
	if total < 2 {
		state := &track.GraphState{LastBranchPoint: -1, TotalBeats: total, Degenerate: true}
		t.Graph = state
		return state, jukeboxerr.New(jukeboxerr.DegenerateGraph, "fewer than two beats", nil)
	}

	b.nextID = 0
	allDistances := b.buildAllNeighbors(t)

	computedThreshold := b.computeThreshold(allDistances, total)
	currentThreshold := b.Config.CurrentThreshold
	if currentThreshold > computedThreshold {
		currentThreshold = computedThreshold
	}
	if currentThreshold > b.Config.MaxBranchThreshold {
		currentThreshold = b.Config.MaxBranchThreshold
	}

	var allEdges []*track.Edge
	for _, beat := range t.BeatData {
		beat.Neighbors = b.selectNeighbors(beat, currentThreshold)
		for _, e := range beat.Neighbors {
			allEdges = append(allEdges, e)
		}
	}

	lastBranchPoint := b.computeLastBranchPoint(t)
	if lastBranchPoint < 0 && b.Config.AddLastEdge {
		if e := b.insertBestBackwardBranch(t); e != nil {
			allEdges = append(allEdges, e)
			lastBranchPoint = b.computeLastBranchPoint(t)
		}
	}

	state := &track.GraphState{
		ComputedThreshold: computedThreshold,
		CurrentThreshold:  currentThreshold,
		LastBranchPoint:   lastBranchPoint,
		TotalBeats:        total,
		LongestReach:      b.computeLongestReach(t),
		AllEdges:          allEdges,
		Degenerate:        len(allEdges) == 0,
	}
	t.Graph = state

	if state.Degenerate {
		return state, jukeboxerr.New(jukeboxerr.DegenerateGraph, "no retained edges after pruning", nil)
	}
	return state, nil
}

// buildAllNeighbors computes, for every beat, the full candidate edge list
// to every other beat (skipping self, +Inf mute distances, and collapsing
// duplicate zero-distance candidates from the same source down to one).
// Candidates are sorted ascending by distance. It returns the flat multiset
// of all candidate distances, used for the global threshold scan.
func (b *Builder) buildAllNeighbors(t *track.Track) []float64 {
	beats := t.BeatData
	var all []float64

	for _, src := range beats {
		var candidates []*track.Edge
		seenZero := false
		for _, dst := range beats {
			if src == dst {
				continue
			}
			d := b.kernel.Beat(src, dst)
			if d > 1e300 {
				continue
			}
			if d == 0 {
				if seenZero {
					continue
				}
				seenZero = true
			}
			b.nextID++
			candidates = append(candidates, &track.Edge{
				ID:       b.nextID,
				Src:      src,
				Dest:     dst,
				Distance: d,
				Deleted:  b.isDeleted(src.Which(), dst.Which()),
			})
			all = append(all, d)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })
		src.AllNeighbors = candidates
	}
	return all
}

// computeThreshold finds the smallest T such that the count of candidate
// edges with distance <= T is at least maxBranches*totalBeats, capped at
// maxBranchThreshold. It uses the empirical quantile of the sorted distance
// multiset as the rank-based equivalent of that sort-scan.
func (b *Builder) computeThreshold(all []float64, total int) float64 {
	if len(all) == 0 {
		return b.Config.MaxBranchThreshold
	}
	sorted := append([]float64(nil), all...)
	sort.Float64s(sorted)

	target := b.Config.MaxBranches * total
	p := float64(target) / float64(len(sorted))
	if p >= 1 {
		return b.Config.MaxBranchThreshold
	}

	t := stat.Quantile(p, stat.Empirical, sorted, nil)
	if t > b.Config.MaxBranchThreshold {
		t = b.Config.MaxBranchThreshold
	}
	return t
}

// selectNeighbors applies the currentThreshold and maxBranches cap plus the
// justBackwards/justLongBranches/removeSequentialBranches policies to a
// beat's candidate list, in candidate (distance-ascending) order.
func (b *Builder) selectNeighbors(beat *track.Beat, currentThreshold float64) []*track.Edge {
	cfg := b.Config
	var out []*track.Edge
	var lastWhich = -2

	for _, e := range beat.AllNeighbors {
		if len(out) >= cfg.MaxBranches {
			break
		}
		if e.Deleted {
			continue
		}
		if e.Distance > currentThreshold {
			continue
		}
		if cfg.JustBackwards && e.Dest.Which() >= beat.Which() {
			continue
		}
		if cfg.JustLongBranches {
			diff := e.Dest.Which() - beat.Which()
			if diff < 0 {
				diff = -diff
			}
			if diff < cfg.MinLongBranch {
				continue
			}
		}
		if cfg.RemoveSequentialBranches && e.Dest.Which() == lastWhich+1 {
			continue
		}
		out = append(out, e)
		lastWhich = e.Dest.Which()
	}
	return out
}

// computeLastBranchPoint finds the largest index L such that the prefix of
// beats [0, L] is closed under every retained edge (no edge from within the
// prefix lands past L), and beat L itself has a retained edge. This is the
// beat at which a forced branch is guaranteed to
// have somewhere to go without ever needing to reach past the point where
// the guarantee was established. Returns -1 if no such L exists.
func (b *Builder) computeLastBranchPoint(t *track.Track) int {
	total := t.TotalBeats()
	if total == 0 {
		return -1
	}

	escape := make([]int, total)
	for i, beat := range t.BeatData {
		escape[i] = -1
		for _, e := range beat.Neighbors {
			if e.Deleted {
				continue
			}
			if w := e.Dest.Which(); w > escape[i] {
				escape[i] = w
			}
		}
	}

	prefixMaxEscape := make([]int, total)
	prefixMaxEscape[0] = escape[0]
	for i := 1; i < total; i++ {
		prefixMaxEscape[i] = prefixMaxEscape[i-1]
		if escape[i] > prefixMaxEscape[i] {
			prefixMaxEscape[i] = escape[i]
		}
	}

	for l := total - 1; l >= 0; l-- {
		if prefixMaxEscape[l] <= l && escape[l] >= 0 {
			return l
		}
	}
	return -1
}

// insertBestBackwardBranch synthesizes a single retained edge from the true
// last beat backward to whichever earlier beat it is closest to, so that
// the last beat itself has somewhere to jump and a LastBranchPoint can be
// established. It returns the synthesized edge, or nil if the track has no
// usable candidate (every beat mute).
func (b *Builder) insertBestBackwardBranch(t *track.Track) *track.Edge {
	beats := t.BeatData
	last := beats[len(beats)-1]

	var best *track.Beat
	bestDist := 0.0
	for _, candidate := range beats[:len(beats)-1] {
		if b.isDeleted(last.Which(), candidate.Which()) {
			continue
		}
		d := b.kernel.Beat(candidate, last)
		if d > 1e300 {
			continue
		}
		if best == nil || d < bestDist {
			best = candidate
			bestDist = d
		}
	}
	if best == nil {
		return nil
	}

	b.nextID++
	e := &track.Edge{ID: b.nextID, Src: last, Dest: best, Distance: bestDist}
	last.Neighbors = append(last.Neighbors, e)
	last.AllNeighbors = append(last.AllNeighbors, e)
	return e
}

// computeLongestReach returns the furthest beat index reachable from beat 0
// by following linear advance and retained edges, used only for diagnostics.
func (b *Builder) computeLongestReach(t *track.Track) int {
	total := t.TotalBeats()
	if total == 0 {
		return 0
	}
	visited := make([]bool, total)
	furthest := 0
	var stack []int
	stack = append(stack, 0)
	visited[0] = true
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if i > furthest {
			furthest = i
		}
		if i+1 < total && !visited[i+1] {
			visited[i+1] = true
			stack = append(stack, i+1)
		}
		for _, e := range t.BeatData[i].Neighbors {
			if e.Deleted {
				continue
			}
			w := e.Dest.Which()
			if !visited[w] {
				visited[w] = true
				stack = append(stack, w)
			}
		}
	}
	return furthest
}

// WeightedGraph renders the track's currently retained (non-deleted) edges
// into a gonum weighted directed graph, for visualization and export.
func (b *Builder) WeightedGraph(t *track.Track) *simple.WeightedDirectedGraph {
	g := simple.NewWeightedDirectedGraph(0, 0)
	for _, beat := range t.BeatData {
		g.AddNode(simple.Node(beat.Which()))
	}
	for _, beat := range t.BeatData {
		for _, e := range beat.Neighbors {
			if e.Deleted {
				continue
			}
			g.SetWeightedEdge(g.NewWeightedEdge(
				simple.Node(e.Src.Which()),
				simple.Node(e.Dest.Which()),
				e.Distance,
			))
		}
	}
	return g
}

// VisualizationEdge is a deduplicated, undirected-pair view of the graph for
// external rendering: (a,b) and (b,a) collapse to a single entry.
type VisualizationEdge struct {
	A, B     int
	Distance float64
	Deleted  bool
}

// GetVisualizationData returns one entry per undirected beat pair that has
// at least one retained or deleted directed edge between them.
func (b *Builder) GetVisualizationData(t *track.Track) []VisualizationEdge {
	retained := make(map[*track.Edge]bool)
	for _, beat := range t.BeatData {
		for _, e := range beat.Neighbors {
			retained[e] = true
		}
	}
	seen := make(map[[2]int]bool)
	var out []VisualizationEdge
	for _, beat := range t.BeatData {
		for _, e := range beat.AllNeighbors {
			if !e.Deleted && !retained[e] {
				continue
			}
			a, c := e.Src.Which(), e.Dest.Which()
			if a > c {
				a, c = c, a
			}
			key := [2]int{a, c}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, VisualizationEdge{A: a, B: c, Distance: e.Distance, Deleted: e.Deleted})
		}
	}
	return out
}
