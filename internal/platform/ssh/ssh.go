// Package ssh executes commands and uploads files on cluster nodes over SSH.
//
// A [Client] talks to one host and opens a fresh connection per call, with
// retry while the SSH daemon is not yet reachable. The [Executor] maps
// configuration nodes to clients and is the remote execution backend used
// by the setup procedures.
//
// Commands are passed verbatim to the remote shell; callers are expected to
// build them with the shell package so every argument is quoted.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/spire/internal/shell"
	"github.com/imamik/spire/internal/util/retry"
)

const (
	defaultPort          = 22
	defaultDialTimeout   = 10 * time.Second
	defaultMaxRetries    = 3
	defaultRetryDelay    = 2 * time.Second
	defaultMaxRetryDelay = 10 * time.Second
)

// Config holds SSH client configuration.
type Config struct {
	Host string
	Port int
	User string

	// PrivateKey is a PEM encoded private key. Either PrivateKey or Auth
	// must be set; when both are set, PrivateKey is tried first.
	PrivateKey []byte

	// Auth holds additional authentication methods, such as an SSH agent.
	Auth []ssh.AuthMethod

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the number of connection retries after the first attempt.
	// If zero, defaultMaxRetries is used; a negative value disables retries.
	MaxRetries int

	// RetryDelay is the initial delay between connection attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff delay. If zero, defaultMaxRetryDelay is used.
	MaxRetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, host keys are not verified.
	HostKeyCallback ssh.HostKeyCallback

	// OnRetry, if set, is called when a connection attempt fails and will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// RemoteError reports a command that exited nonzero or could not be run.
type RemoteError struct {
	Host    string
	Command string
	// ExitStatus is the remote exit code, or -1 if the command did not
	// report one (for example when the connection failed).
	ExitStatus int
	Output     string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.ExitStatus < 0 {
		return fmt.Sprintf("command failed on %s: %v", e.Host, e.Err)
	}
	if e.Output == "" {
		return fmt.Sprintf("command failed on %s with exit status %d", e.Host, e.ExitStatus)
	}
	return fmt.Sprintf("command failed on %s with exit status %d: %s", e.Host, e.ExitStatus, e.Output)
}

// ExitCode returns the remote exit status, or -1 if there was none.
func (e *RemoteError) ExitCode() int {
	return e.ExitStatus
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Client executes commands on a remote server via SSH.
// It parses the private key once during construction and
// creates connections on-demand per call.
type Client struct {
	config *Config
	auth   []ssh.AuthMethod
}

// NewClient creates a new SSH client and validates its configuration.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 && len(cfg.Auth) == 0 {
		return nil, fmt.Errorf("config needs a private key or an auth method")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.MaxRetries == 0 {
		configCopy.MaxRetries = defaultMaxRetries
	} else if configCopy.MaxRetries < 0 {
		configCopy.MaxRetries = 0
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.MaxRetryDelay == 0 {
		configCopy.MaxRetryDelay = defaultMaxRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // known_hosts is optional
	}

	var auth []ssh.AuthMethod
	if len(configCopy.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	auth = append(auth, configCopy.Auth...)

	return &Client{
		config: &configCopy,
		auth:   auth,
	}, nil
}

// Host returns the address the client connects to.
func (c *Client) Host() string {
	return c.config.Host
}

// Execute runs a command and returns its combined stdout and stderr.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	var combined bytes.Buffer
	err := c.session(ctx, func(session *ssh.Session) error {
		session.Stdout = &combined
		session.Stderr = &combined
		return session.Run(command)
	})
	if err != nil {
		return combined.String(), c.remoteError(command, combined.String(), err)
	}
	return combined.String(), nil
}

// Output runs a command and returns its stdout unmodified. Stderr is only
// reported as part of the error when the command fails.
func (c *Client) Output(ctx context.Context, command string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	err := c.session(ctx, func(session *ssh.Session) error {
		session.Stdout = &stdout
		session.Stderr = &stderr
		return session.Run(command)
	})
	if err != nil {
		return stdout.Bytes(), c.remoteError(command, stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

// Upload writes data to dest on the remote host with the given permissions.
//
// New files are created under umask 077 and only then chmod-ed to perm.
func (c *Client) Upload(ctx context.Context, data []byte, dest string, perm fs.FileMode) error {
	command := "umask 077 && cat > " + shell.Quote(dest) +
		" && " + shell.Command([]string{"chmod", strconv.FormatUint(uint64(perm.Perm()), 8), dest})

	var stderr bytes.Buffer
	err := c.session(ctx, func(session *ssh.Session) error {
		session.Stdin = bytes.NewReader(data)
		session.Stderr = &stderr
		return session.Run(command)
	})
	if err != nil {
		return c.remoteError(command, stderr.String(), err)
	}
	return nil
}

// session connects, opens a session, and hands it to run.
func (c *Client) session(ctx context.Context, run func(*ssh.Session) error) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	return run(session)
}

// connect establishes an SSH connection, retrying while the host is unreachable.
func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            c.auth,
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
	var client *ssh.Client

	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, config)
		if dialErr != nil && isAuthError(dialErr) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(c.config.MaxRetries),
		retry.WithInitialDelay(c.config.RetryDelay),
		retry.WithMaxDelay(c.config.MaxRetryDelay),
		retry.WithOnRetry(c.config.OnRetry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	return client, nil
}

// remoteError converts a session error into a *RemoteError.
func (c *Client) remoteError(command, output string, err error) error {
	remoteErr := &RemoteError{
		Host:       c.config.Host,
		Command:    command,
		ExitStatus: -1,
		Output:     output,
		Err:        err,
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		remoteErr.ExitStatus = exitErr.ExitStatus()
	}
	return remoteErr
}
