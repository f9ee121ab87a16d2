package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// AgentAuth returns an auth method backed by the SSH agent listening on
// socket, along with the connection to close when done.
func AgentAuth(socket string) (ssh.AuthMethod, net.Conn, error) {
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SSH agent at %s: %w", socket, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), conn, nil
}

// KnownHostsCallback returns a host key callback verifying against the
// given known_hosts file.
func KnownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse known_hosts %s: %w", path, err)
	}
	return callback, nil
}

// isAuthError reports whether a dial error is an authentication or host key
// failure, which retrying cannot fix.
func isAuthError(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "knownhosts:") ||
		strings.Contains(msg, "host key mismatch")
}
