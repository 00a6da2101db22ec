package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "quill",
		Short:         "Quill: cached, multi-provider text actions (summarize, rewrite, translate, ...)",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "quill.yaml", "path to config file (empty for defaults)")

	root.AddCommand(
		newServeCmd(&configPath),
		newMCPCmd(&configPath),
		newRunCmd(&configPath),
		newCacheCmd(&configPath),
		newStatsCmd(&configPath),
	)
	return root
}
