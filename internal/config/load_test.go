package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
cluster:
  external_domain: mit.example.org
features:
  kerberos_gateway: true
ssh:
  identity_file: /keys/id_ed25519
secrets:
  authorities: s3://spire-secrets/authorities/
nodes:
  - hostname: eggs
    ip: 18.4.60.150
    kind: supervisor
  - hostname: huevos
    ip: 18.4.60.151
    kind: master
  - hostname: ovos
    ip: 18.4.60.152
    kind: worker
dns_bootstrap:
  mirror.example.org: 18.4.60.1
`

const testTOML = `
[cluster]
external_domain = "mit.example.org"
keyserver_alias = "keys.private"

[ssh]
user = "admin"
port = 2222

[[nodes]]
hostname = "eggs"
ip = "18.4.60.150"
kind = "supervisor"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "setup.yaml", testYAML)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "mit.example.org", cfg.Cluster.ExternalDomain)
	assert.True(t, cfg.Features.KerberosGateway)
	assert.Len(t, cfg.Nodes, 3)
	assert.Equal(t, Node{Hostname: "eggs", IP: "18.4.60.150", Kind: KindSupervisor}, cfg.Nodes[0])
	assert.Equal(t, "18.4.60.1", cfg.DNSBootstrap["mirror.example.org"])

	// Defaults
	assert.Equal(t, DefaultSSHUser, cfg.SSH.User)
	assert.Equal(t, DefaultSSHPort, cfg.SSH.Port)
	assert.Equal(t, DefaultKeyserverAlias, cfg.Cluster.KeyserverAlias)
	assert.Equal(t, DefaultKeytabPattern, cfg.Secrets.KeytabPattern)

	// Paths
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, filepath.Dir(path), cfg.ProjectDir)
}

func TestLoadFile_TOML(t *testing.T) {
	path := writeFile(t, "setup.toml", testTOML)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "keys.private", cfg.Cluster.KeyserverAlias)
	assert.Equal(t, "admin", cfg.SSH.User)
	assert.Equal(t, 2222, cfg.SSH.Port)
	require.Len(t, cfg.Nodes, 1)
	assert.True(t, cfg.Nodes[0].IsSupervisor())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/setup.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := writeFile(t, "setup.yaml", "invalid: yaml: content: [")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal yaml")
}

func TestLoadFile_InvalidTOML(t *testing.T) {
	path := writeFile(t, "setup.toml", "[cluster\n")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal toml")
}

func TestLoadFile_ValidationFailure(t *testing.T) {
	path := writeFile(t, "setup.yaml", "cluster:\n  external_domain: example.org\n")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "at least one node is required")
}

func TestResolve(t *testing.T) {
	cfg := &Config{ProjectDir: "/srv/cluster"}

	assert.Equal(t, "/srv/cluster/keys.txt", cfg.Resolve("keys.txt"))
	assert.Equal(t, "/etc/keys.txt", cfg.Resolve("/etc/keys.txt"))
	assert.Equal(t, "s3://bucket/key", cfg.Resolve("s3://bucket/key"))

	home, err := os.UserHomeDir()
	if err == nil {
		assert.Equal(t, filepath.Join(home, ".ssh/id"), cfg.Resolve("~/.ssh/id"))
	}
}

func TestKeytabLocation(t *testing.T) {
	cfg := &Config{ProjectDir: "/srv/cluster", Secrets: SecretsConfig{KeytabPattern: DefaultKeytabPattern}}
	assert.Equal(t, "/srv/cluster/keytab.eggs.crypt", cfg.KeytabLocation(Node{Hostname: "eggs"}))

	cfg.Secrets.KeytabPattern = "s3://bucket/keytabs/%s.age"
	assert.Equal(t, "s3://bucket/keytabs/eggs.age", cfg.KeytabLocation(Node{Hostname: "eggs"}))
}
