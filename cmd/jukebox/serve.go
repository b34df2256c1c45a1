package main

import (
	"github.com/foreverjukebox/core/internal/config"
	"github.com/foreverjukebox/core/internal/httpapi"
	"github.com/foreverjukebox/core/internal/jumpgraph"
	"github.com/foreverjukebox/core/internal/selector"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the jukebox state/control API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			graphCfg := jumpgraph.DefaultConfig(0)
			selCfg := selector.DefaultConfig()
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				graphCfg = cfg.GraphConfigFor(0)
				selCfg = cfg.SelectorConfigValue()
			}

			srv := httpapi.New(graphCfg, selCfg)
			return srv.Start(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML config file for graph/selector tuning")
	return cmd
}
