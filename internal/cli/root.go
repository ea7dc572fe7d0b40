// Package cli implements the codefund command line client for the public API.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	server     string
	jsonOutput bool
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "codefund",
		Short:         "Browse CodeFund campaigns from the command line",
		Long:          `codefund reads campaigns, milestones and user dashboards from a CodeFund API server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "API server URL (default $CODEFUND_API_URL or http://localhost:8000)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(createListCmd())
	rootCmd.AddCommand(createInfoCmd())
	rootCmd.AddCommand(createCreatedCmd())
	rootCmd.AddCommand(createContributedCmd())

	return rootCmd
}

// getServer returns the server URL from flag, env, or the default
func getServer() string {
	if server != "" {
		return server
	}
	if env := os.Getenv("CODEFUND_API_URL"); env != "" {
		return env
	}
	return "http://localhost:8000"
}
