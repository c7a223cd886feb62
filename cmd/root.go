// Package cmd implements the askhr command line interface.
//
// Commands:
//   - serve (default): run the HTTP API server
//   - ask: answer a single question on stdout
//   - version: print build information
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "askhr",
	Short: "Conversational assistant for HR policy questions",
	Long: `askhr answers HR policy questions grounded in the indexed policy
documents. Running without a subcommand starts the HTTP API server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the CLI. It is the only entry point main() calls.
func Execute() error {
	return rootCmd.Execute()
}
