package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/spire/cmd/spire/handlers"
)

// Hosts returns the command printing the bootstrap /etc/hosts table.
func Hosts() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Print the bootstrap /etc/hosts entries",
		Long: `Print the /etc/hosts lines that "spire setup dns-bootstrap" would install.

The table is validated exactly as during setup, so redundant entries are
reported without contacting any node.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Hosts(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	// MarkFlagRequired cannot fail for flags defined on the same command
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
