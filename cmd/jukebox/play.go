package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foreverjukebox/core/internal/config"
	"github.com/foreverjukebox/core/internal/driver"
	"github.com/foreverjukebox/core/internal/jumpgraph"
	"github.com/foreverjukebox/core/internal/player"
	"github.com/foreverjukebox/core/internal/selector"
	"github.com/foreverjukebox/core/internal/track"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func playCmd() *cobra.Command {
	var (
		watch      bool
		seed       int64
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "play <analysis.json>",
		Short: "Play an analysis in a headless, beat-synchronous loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			drv, err := loadDriver(path, seed, configPath)
			if err != nil {
				return err
			}

			if watch {
				return watchAndPlay(cmd, path, drv, seed, configPath)
			}
			return runDriverUntilDone(cmd, drv)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "reload the analysis file whenever it changes on disk")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed the branch selector's RNG for reproducible playback")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML config file for graph/selector tuning")
	return cmd
}

func loadDriver(path string, seed int64, configPath string) (*driver.Driver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis: %w", err)
	}
	tr, err := track.Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize analysis: %w", err)
	}

	var graphCfg jumpgraph.Config
	var selCfg selector.Config
	if configPath != "" {
		cfg, cerr := config.Load(configPath)
		if cerr != nil {
			return nil, cerr
		}
		graphCfg = cfg.GraphConfigFor(tr.TotalBeats())
		selCfg = cfg.SelectorConfigValue()
	} else {
		graphCfg = jumpgraph.DefaultConfig(tr.TotalBeats())
		selCfg = selector.DefaultConfig()
	}

	builder := jumpgraph.NewBuilder(graphCfg)
	if _, err := builder.Build(tr); err != nil && tr.Graph == nil {
		return nil, err
	}

	rng := selector.NewRNG(selector.RandomModeSeeded, seed, nil)
	sel := selector.NewSelector(selCfg, rng)
	branch := selector.NewBranchState(selCfg)

	p := player.NewSimulated()
	if err := p.Load(); err != nil {
		return nil, err
	}

	drv := driver.New(p, tr, sel, branch)
	if err := drv.Load(time.Now()); err != nil {
		return nil, err
	}
	return drv, nil
}

func runDriverUntilDone(cmd *cobra.Command, drv *driver.Driver) error {
	if err := drv.Play(); err != nil {
		return err
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for now := range ticker.C {
		if err := drv.Tick(now); err != nil {
			return err
		}
		snap := drv.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "beat=%d played=%d chance=%.3f\n",
			snap.BeatIndex, snap.BeatsPlayed, snap.CurRandomBranchChance)
		if !snap.Playing {
			return nil
		}
	}
	return nil
}

// watchAndPlay watches the analysis file's containing directory and reloads
// the analysis whenever fsnotify reports a write or create event for that
// file, swapping in a fresh Driver without exiting.
func watchAndPlay(cmd *cobra.Command, path string, drv *driver.Driver, seed int64, configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- runDriverUntilDone(cmd, drv)
	}()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return <-done
			}
			if ev.Name != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reloading %s\n", path)
			next, err := loadDriver(path, seed, configPath)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", err)
				continue
			}
			drv = next
			go func() { done <- runDriverUntilDone(cmd, drv) }()
		case err := <-done:
			return err
		}
	}
}
