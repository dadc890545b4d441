package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "seo-agents",
		Short:         "SEO content agents: keyword research, compliant drafting and orchestration",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./config.yaml)")

	root.AddCommand(
		newServeCmd(&configPath),
		newRunCmd(&configPath),
		newResumeCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}
