// Package handlers implements the spire commands.
//
// Handlers load the configuration, build the collaborators a procedure
// needs and drive the operation queue. Collaborator constructors are
// package variables so tests can replace them.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/logging"
	"github.com/imamik/spire/internal/ops"
	"github.com/imamik/spire/internal/platform/s3"
	"github.com/imamik/spire/internal/platform/ssh"
	"github.com/imamik/spire/internal/progress"
	"github.com/imamik/spire/internal/resources"
	"github.com/imamik/spire/internal/secrets"
	"github.com/imamik/spire/internal/setup"
)

// SetupOptions contains options for the setup commands.
type SetupOptions struct {
	ConfigPath  string
	Procedure   string
	DryRun      bool
	MetricsFile string
	Verbosity   int
}

// RemoteBackend is a setup.Remote holding connections that must be released.
type RemoteBackend interface {
	setup.Remote
	Close() error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file (for testing injection).
	loadConfigFile = config.LoadFile

	// loadTimeouts reads SSH tuning from the environment.
	loadTimeouts = config.LoadTimeouts

	// newRemote creates the SSH executor.
	newRemote = func(cfg *config.Config, timeouts *config.Timeouts, log logr.Logger) (RemoteBackend, error) {
		return ssh.NewExecutor(cfg, timeouts, log)
	}

	// newObjectStore creates the object storage client, or returns nil when
	// no secret location needs one.
	newObjectStore = func(ctx context.Context, cfg *config.Config) (secrets.ObjectStore, error) {
		if !s3.IsLocation(cfg.Secrets.Authorities) && !s3.IsLocation(cfg.Secrets.KeytabPattern) {
			return nil, nil
		}
		client, err := s3.NewClient(ctx, cfg.S3.Endpoint, cfg.S3.Region,
			os.Getenv("SPIRE_S3_ACCESS_KEY"), os.Getenv("SPIRE_S3_SECRET_KEY"))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	// stdout and stderr receive progress and log output.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	// colorOutput reports whether progress output may use colors.
	colorOutput = func() bool {
		return progress.IsTerminal(os.Stdout)
	}
)

// RunProcedure handles the setup subcommands.
//
// It builds the operation queue for the named procedure and then either
// lists the operations (dry run) or runs them. A failed operation is
// returned as an *ops.OperationError naming the operation.
func RunProcedure(ctx context.Context, opts SetupOptions) error {
	command, ok := setup.Lookup(opts.Procedure)
	if !ok {
		return fmt.Errorf("unknown setup procedure %q", opts.Procedure)
	}

	cfg, err := loadConfigFile(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.New(stderr, opts.Verbosity).WithValues("procedure", command.Name)
	ctx = logr.NewContext(ctx, log)

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create object storage client: %w", err)
	}

	env := &setup.Env{
		Config:    cfg,
		Secrets:   secrets.NewStore(cfg, objects),
		Resources: resources.Default(),
		Log:       log,
	}
	if !opts.DryRun {
		remote, err := newRemote(cfg, loadTimeouts(), log)
		if err != nil {
			return fmt.Errorf("failed to create SSH executor: %w", err)
		}
		defer func() { _ = remote.Close() }()
		env.Remote = remote
	}

	var metrics *progress.Metrics
	if opts.MetricsFile != "" {
		metrics = progress.NewMetrics(command.Name)
	}
	reporter := progress.NewReporter(stdout, colorOutput(), log, metrics)

	q := ops.NewQueue(reporter)
	if err := command.Procedure(ctx, env, q); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", command.Name, err)
	}
	if metrics != nil {
		metrics.Planned(q.Len())
	}

	if opts.DryRun {
		reporter.Plan(q.Names())
		return nil
	}

	log.V(1).Info("running operations", "count", q.Len())
	runErr := q.Run(ctx)

	if metrics != nil {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			log.Error(err, "failed to write metrics")
		}
	}
	return runErr
}
