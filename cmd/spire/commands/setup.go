package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/spire/cmd/spire/handlers"
	"github.com/imamik/spire/internal/setup"
)

// Setup returns the command group holding one subcommand per deployment
// procedure.
//
// Flags shared by every subcommand:
//
//	--config, -c: Path to the cluster setup file (required)
//	--dry-run: List the operations without running them
//	--metrics-file: Write Prometheus textfile metrics for the run
//	--verbosity, -v: Log verbosity
//
// Environment variables:
//
//	SPIRE_S3_ACCESS_KEY, SPIRE_S3_SECRET_KEY: object storage credentials
//	SPIRE_SSH_DIAL_TIMEOUT, SPIRE_SSH_MAX_RETRIES, SPIRE_SSH_RETRY_DELAY,
//	SPIRE_SSH_MAX_RETRY_DELAY: SSH connection tuning
func Setup() *cobra.Command {
	var opts handlers.SetupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Commands about setting up a cluster",
		Long: `Run a deployment procedure against the cluster nodes.

Each procedure first builds the full list of operations, validating the
configuration and decrypting secrets locally, and only then connects to
the nodes. Operations run one at a time in order; the first failure stops
the run and names the failed operation. Procedures are safe to re-run
after fixing the cause.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "List operations without executing them")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	cmd.PersistentFlags().IntVarP(&opts.Verbosity, "verbosity", "v", 0, "Log verbosity")

	// MarkPersistentFlagRequired cannot fail for flags defined on the same command
	_ = cmd.MarkPersistentFlagRequired("config")

	for _, c := range setup.Commands() {
		name := c.Name
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: c.Short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				procedureOpts := opts
				procedureOpts.Procedure = name
				return handlers.RunProcedure(cmd.Context(), procedureOpts)
			},
		})
	}

	return cmd
}
