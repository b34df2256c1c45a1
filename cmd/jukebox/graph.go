package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/foreverjukebox/core/internal/config"
	"github.com/foreverjukebox/core/internal/jumpgraph"
	"github.com/foreverjukebox/core/internal/track"
	"github.com/spf13/cobra"
)

func graphCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "graph <analysis.json>",
		Short: "Build and print the jump graph for an analysis file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read analysis: %w", err)
			}

			tr, err := track.Normalize(data)
			if err != nil {
				return fmt.Errorf("normalize analysis: %w", err)
			}

			var graphCfg jumpgraph.Config
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				graphCfg = cfg.GraphConfigFor(tr.TotalBeats())
			} else {
				graphCfg = jumpgraph.DefaultConfig(tr.TotalBeats())
			}

			builder := jumpgraph.NewBuilder(graphCfg)
			state, err := builder.Build(tr)
			if err != nil && state == nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"totalBeats":        state.TotalBeats,
				"computedThreshold": state.ComputedThreshold,
				"currentThreshold":  state.CurrentThreshold,
				"lastBranchPoint":   state.LastBranchPoint,
				"longestReach":      state.LongestReach,
				"degenerate":        state.Degenerate,
				"edges":             builder.GetVisualizationData(tr),
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "TOML config file for graph/selector tuning")
	return cmd
}
