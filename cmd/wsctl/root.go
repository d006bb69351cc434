package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath   string
	workspaceDir string
)

var rootCmd = &cobra.Command{
	Use:           "wsctl",
	Short:         "wsctl - Profiles and queries for forecasting workspaces",
	Long:          "wsctl keeps per-project profiles and per-query cache bundles so several forecasting contexts can live side by side.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default $WSCTL_CONFIG or the XDG config home)")
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "dir", "", "Workspace directory (overrides settings and $WSCTL_DIR)")

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newQueryCmd())
}
