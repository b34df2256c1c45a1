package main

import (
	"fmt"
	"os"

	"github.com/foreverjukebox/core/internal/player"
	"github.com/foreverjukebox/core/internal/waveform"
	"github.com/spf13/cobra"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <track.mp3>",
		Short: "Print a level-meter view of an MP3 file's decoded samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			native := player.NewNative(path)
			if err := native.Load(); err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}

			samples, sampleRate := native.ExportSamples()
			frames := waveform.Compute(samples, sampleRate, waveform.DefaultConfig())
			for _, f := range frames {
				fmt.Fprintf(cmd.OutOrStdout(), "%.3fs\t%.4f\n", f.Time, f.Magnitude)
			}
			return nil
		},
	}
	return cmd
}
