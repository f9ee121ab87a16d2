package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the SSH connection settings that can be tuned from the
// environment. They apply to the remote execution layer only; operations
// themselves are never retried.
type Timeouts struct {
	SSHDial          time.Duration // Timeout for establishing a TCP connection
	SSHMaxRetries    int           // Connection attempts before giving up
	SSHRetryDelay    time.Duration // Initial delay between connection attempts
	SSHMaxRetryDelay time.Duration // Upper bound for the backoff delay
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - SPIRE_SSH_DIAL_TIMEOUT (default: 10s)
//   - SPIRE_SSH_MAX_RETRIES (default: 3)
//   - SPIRE_SSH_RETRY_DELAY (default: 2s)
//   - SPIRE_SSH_MAX_RETRY_DELAY (default: 10s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		SSHDial:          parseDuration("SPIRE_SSH_DIAL_TIMEOUT", 10*time.Second),
		SSHMaxRetries:    parseInt("SPIRE_SSH_MAX_RETRIES", 3),
		SSHRetryDelay:    parseDuration("SPIRE_SSH_RETRY_DELAY", 2*time.Second),
		SSHMaxRetryDelay: parseDuration("SPIRE_SSH_MAX_RETRY_DELAY", 10*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
