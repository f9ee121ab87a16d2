package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/spire/internal/config"
)

// Executor runs commands on configuration nodes, one Client per node.
type Executor struct {
	base    Config
	log     logr.Logger
	clients map[string]*Client
	closers []io.Closer
}

// NewExecutor builds an executor from the cluster SSH settings.
//
// Authentication uses ssh.identity_file when set and the agent at
// SSH_AUTH_SOCK otherwise. Host keys are verified against ssh.known_hosts
// when it is set.
func NewExecutor(cfg *config.Config, timeouts *config.Timeouts, log logr.Logger) (*Executor, error) {
	e := &Executor{
		base: Config{
			User:          cfg.SSH.User,
			Port:          cfg.SSH.Port,
			DialTimeout:   timeouts.SSHDial,
			MaxRetries:    timeouts.SSHMaxRetries,
			RetryDelay:    timeouts.SSHRetryDelay,
			MaxRetryDelay: timeouts.SSHMaxRetryDelay,
		},
		log:     log.WithName("ssh"),
		clients: make(map[string]*Client),
	}
	if e.base.MaxRetries == 0 {
		e.base.MaxRetries = -1
	}

	switch {
	case cfg.SSH.IdentityFile != "":
		path := cfg.Resolve(cfg.SSH.IdentityFile)
		// #nosec G304
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH identity: %w", err)
		}
		e.base.PrivateKey = key
	case os.Getenv("SSH_AUTH_SOCK") != "":
		auth, conn, err := AgentAuth(os.Getenv("SSH_AUTH_SOCK"))
		if err != nil {
			return nil, err
		}
		e.base.Auth = []ssh.AuthMethod{auth}
		e.closers = append(e.closers, conn)
	default:
		return nil, errors.New("no SSH credentials: set ssh.identity_file or run an SSH agent")
	}

	if cfg.SSH.KnownHosts != "" {
		callback, err := KnownHostsCallback(cfg.Resolve(cfg.SSH.KnownHosts))
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.base.HostKeyCallback = callback
	}

	return e, nil
}

// client returns the cached client for node, creating it on first use.
func (e *Executor) client(node config.Node) (*Client, error) {
	if c, ok := e.clients[node.Hostname]; ok {
		return c, nil
	}

	cfg := e.base
	cfg.Host = node.IP
	hostname := node.Hostname
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		e.log.Info("SSH connection failed, retrying", "node", hostname, "attempt", attempt, "delay", delay, "error", err.Error())
	}

	c, err := NewClient(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH client for %s: %w", node.Hostname, err)
	}
	e.clients[node.Hostname] = c
	return c, nil
}

// Run executes command on node and fails on a nonzero exit status.
func (e *Executor) Run(ctx context.Context, node config.Node, command string) error {
	c, err := e.client(node)
	if err != nil {
		return err
	}
	e.log.V(1).Info("running command", "node", node.Hostname, "command", command)
	output, err := c.Execute(ctx, command)
	if output != "" {
		e.log.V(2).Info("command output", "node", node.Hostname, "output", output)
	}
	return err
}

// Output executes command on node and returns its stdout.
func (e *Executor) Output(ctx context.Context, node config.Node, command string) ([]byte, error) {
	c, err := e.client(node)
	if err != nil {
		return nil, err
	}
	e.log.V(1).Info("reading command output", "node", node.Hostname, "command", command)
	return c.Output(ctx, command)
}

// UploadBytes writes data to dest on node.
func (e *Executor) UploadBytes(ctx context.Context, node config.Node, data []byte, dest string, perm fs.FileMode) error {
	c, err := e.client(node)
	if err != nil {
		return err
	}
	e.log.V(1).Info("uploading", "node", node.Hostname, "dest", dest, "bytes", len(data))
	return c.Upload(ctx, data, dest, perm)
}

// UploadFile copies the local file src to dest on node, keeping its permissions.
func (e *Executor) UploadFile(ctx context.Context, node config.Node, src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	// #nosec G304
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return e.UploadBytes(ctx, node, data, dest, info.Mode().Perm())
}

// Close releases the SSH agent connection, if any.
func (e *Executor) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}
