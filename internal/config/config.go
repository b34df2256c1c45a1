// Package config loads the tunable parameters of the Jump Graph Builder
// and Branch Selector from a TOML file, for the CLI's --config flag.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/foreverjukebox/core/internal/jumpgraph"
	"github.com/foreverjukebox/core/internal/selector"
)

// Config is the top-level TOML document shape:
//
//	[graph]
//	max_branches = 4
//	max_branch_threshold = 80
//	current_threshold = 60
//	add_last_edge = true
//
//	[selector]
//	min_random_branch_chance = 0.18
//	max_random_branch_chance = 0.5
//	random_branch_chance_delta = 0.018
type Config struct {
	Graph    GraphConfig    `toml:"graph"`
	Selector SelectorConfig `toml:"selector"`
}

// GraphConfig mirrors jumpgraph.Config with TOML field names.
type GraphConfig struct {
	MaxBranches              int     `toml:"max_branches"`
	MaxBranchThreshold       float64 `toml:"max_branch_threshold"`
	CurrentThreshold         float64 `toml:"current_threshold"`
	AddLastEdge              bool    `toml:"add_last_edge"`
	JustBackwards            bool    `toml:"just_backwards"`
	JustLongBranches         bool    `toml:"just_long_branches"`
	RemoveSequentialBranches bool    `toml:"remove_sequential_branches"`
}

// SelectorConfig mirrors selector.Config with TOML field names.
type SelectorConfig struct {
	MinRandomBranchChance   float64 `toml:"min_random_branch_chance"`
	MaxRandomBranchChance   float64 `toml:"max_random_branch_chance"`
	RandomBranchChanceDelta float64 `toml:"random_branch_chance_delta"`
}

// Default returns the enumerated defaults taken from jumpgraph.DefaultConfig
// and selector.DefaultConfig. Config has no MinLongBranch field; that value
// is derived from the beat count by GraphConfigFor.
func Default(totalBeats int) *Config {
	g := jumpgraph.DefaultConfig(totalBeats)
	s := selector.DefaultConfig()
	return &Config{
		Graph: GraphConfig{
			MaxBranches:              g.MaxBranches,
			MaxBranchThreshold:       g.MaxBranchThreshold,
			CurrentThreshold:         g.CurrentThreshold,
			AddLastEdge:              g.AddLastEdge,
			JustBackwards:            g.JustBackwards,
			JustLongBranches:         g.JustLongBranches,
			RemoveSequentialBranches: g.RemoveSequentialBranches,
		},
		Selector: SelectorConfig{
			MinRandomBranchChance:   s.MinRandomBranchChance,
			MaxRandomBranchChance:   s.MaxRandomBranchChance,
			RandomBranchChanceDelta: s.RandomBranchChanceDelta,
		},
	}
}

// Load reads and decodes a TOML config file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// GraphConfigFor builds a jumpgraph.Config for a track with totalBeats
// beats, deriving MinLongBranch the way jumpgraph.DefaultConfig does since
// TOML has no way to reference another field's loaded value.
func (c *Config) GraphConfigFor(totalBeats int) jumpgraph.Config {
	return jumpgraph.Config{
		MaxBranches:              c.Graph.MaxBranches,
		MaxBranchThreshold:       c.Graph.MaxBranchThreshold,
		CurrentThreshold:         c.Graph.CurrentThreshold,
		AddLastEdge:              c.Graph.AddLastEdge,
		JustBackwards:            c.Graph.JustBackwards,
		JustLongBranches:         c.Graph.JustLongBranches,
		RemoveSequentialBranches: c.Graph.RemoveSequentialBranches,
		MinLongBranch:            totalBeats / 5,
		Weights:                  jumpgraph.DefaultConfig(totalBeats).Weights,
	}
}

// SelectorConfigValue builds a selector.Config from the loaded values.
func (c *Config) SelectorConfigValue() selector.Config {
	return selector.Config{
		MinRandomBranchChance:   c.Selector.MinRandomBranchChance,
		MaxRandomBranchChance:   c.Selector.MaxRandomBranchChance,
		RandomBranchChanceDelta: c.Selector.RandomBranchChanceDelta,
	}
}
