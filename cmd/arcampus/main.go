package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "arcampus",
	Short:         "Recognize campus landmarks and keep a history of what was scanned",
	Version:       fmt.Sprintf("%s (built %s)", Version, BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing arcampus.cfg.json")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newCatalogCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "arcampus: %v\n", err)
		os.Exit(1)
	}
}
