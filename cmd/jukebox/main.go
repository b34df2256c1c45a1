// Command jukebox loads a beat analysis, builds its jump graph, and either
// prints it, plays it back in a terminal loop, or serves it over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jukebox",
		Short: "Forever-jukebox style beat-synchronous playback",
	}
	root.AddCommand(graphCmd())
	root.AddCommand(playCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(inspectCmd())
	return root
}
