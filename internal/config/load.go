package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the configuration from a YAML or TOML file.
// The format is chosen by extension; anything other than .toml is YAML.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg.Path = absPath
	cfg.ProjectDir = filepath.Dir(absPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes configuration data and applies defaults. It does not validate.
func Parse(data []byte, isTOML bool) (*Config, error) {
	var cfg Config
	if isTOML {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal toml: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SSH.User == "" {
		c.SSH.User = DefaultSSHUser
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.Cluster.KeyserverAlias == "" {
		c.Cluster.KeyserverAlias = DefaultKeyserverAlias
	}
	if c.Secrets.KeytabPattern == "" {
		c.Secrets.KeytabPattern = DefaultKeytabPattern
	}
	if c.Secrets.Authorities == "" {
		c.Secrets.Authorities = DefaultAuthorities
	}
	if c.Secrets.AgeIdentity == "" {
		c.Secrets.AgeIdentity = DefaultAgeIdentity
	}
}

// Resolve turns a location from the configuration into an absolute path,
// relative to the project directory. s3:// URLs and absolute paths are
// returned unchanged; a leading ~/ expands to the user's home directory.
func (c *Config) Resolve(location string) string {
	if strings.HasPrefix(location, "s3://") || filepath.IsAbs(location) {
		return location
	}
	if rest, ok := strings.CutPrefix(location, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return filepath.Join(c.ProjectDir, location)
}

// KeytabLocation returns the encrypted keytab location for a node.
func (c *Config) KeytabLocation(node Node) string {
	return c.Resolve(fmt.Sprintf(c.Secrets.KeytabPattern, node.Hostname))
}
