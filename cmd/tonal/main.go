package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "tonal",
		Short:         "Tonal: rewrite text along formality and verbosity axes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "tonal.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newAdjustCmd(&configPath),
		newCacheCmd(&configPath),
		newStatsCmd(&configPath),
		newMCPCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
