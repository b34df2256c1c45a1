package jumpgraph

import "github.com/foreverjukebox/core/internal/distance"

// Config enumerates the Jump Graph Builder's options (spec §6).
type Config struct {
	MaxBranches        int
	MaxBranchThreshold float64
	CurrentThreshold   float64
	AddLastEdge        bool

	JustBackwards            bool
	JustLongBranches         bool
	RemoveSequentialBranches bool
	MinLongBranch            int

	Weights distance.Weights
}

// DefaultConfig returns the enumerated defaults from spec §6. MinLongBranch
// is derived from totalBeats per the spec formula floor(totalBeats/5); pass
// the beat count of the track the config will build against.
func DefaultConfig(totalBeats int) Config {
	return Config{
		MaxBranches:        4,
		MaxBranchThreshold: 80,
		CurrentThreshold:   60,
		AddLastEdge:        true,

		JustBackwards:            false,
		JustLongBranches:         false,
		RemoveSequentialBranches: false,
		MinLongBranch:            totalBeats / 5,

		Weights: distance.DefaultWeights(),
	}
}
