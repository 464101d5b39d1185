// Package commands holds the relay's cobra command tree.
package commands

import (
	"github.com/spf13/cobra"
)

// Execute runs the root command. With no subcommand the relay serves HTTP.
func Execute() error {
	root := &cobra.Command{
		Use:          "relay",
		Short:        "Authenticated Web Push delivery relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(serveCmd(), keysCmd())
	return root.Execute()
}
