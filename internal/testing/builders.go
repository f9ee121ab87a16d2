package testing

import (
	"maps"

	"github.com/imamik/spire/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with sensible defaults and
// no nodes.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: config.Config{
			Cluster: config.ClusterConfig{
				ExternalDomain: "mit.example.org",
				KeyserverAlias: config.DefaultKeyserverAlias,
			},
			SSH: config.SSHConfig{
				User: config.DefaultSSHUser,
				Port: config.DefaultSSHPort,
			},
			Secrets: config.SecretsConfig{
				AgeIdentity:   config.DefaultAgeIdentity,
				Authorities:   config.DefaultAuthorities,
				KeytabPattern: config.DefaultKeytabPattern,
			},
			Path:       "/project/setup.yaml",
			ProjectDir: "/project",
		},
	}
}

// WithDomain sets the external domain.
func (b *ConfigBuilder) WithDomain(domain string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Cluster.ExternalDomain = domain
	return newBuilder
}

// WithNode appends a node.
func (b *ConfigBuilder) WithNode(hostname, ip, kind string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Nodes = append(newBuilder.cfg.Nodes, config.Node{
		Hostname: hostname,
		IP:       ip,
		Kind:     kind,
	})
	return newBuilder
}

// WithKerberosGateway toggles the Kerberos gateway feature.
func (b *ConfigBuilder) WithKerberosGateway(enabled bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Features.KerberosGateway = enabled
	return newBuilder
}

// WithDNSBootstrap adds a static bootstrap host entry.
func (b *ConfigBuilder) WithDNSBootstrap(hostname, ip string) *ConfigBuilder {
	newBuilder := b.clone()
	if newBuilder.cfg.DNSBootstrap == nil {
		newBuilder.cfg.DNSBootstrap = make(map[string]string)
	}
	newBuilder.cfg.DNSBootstrap[hostname] = ip
	return newBuilder
}

// WithPath sets the path the configuration was loaded from.
func (b *ConfigBuilder) WithPath(path, projectDir string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Path = path
	newBuilder.cfg.ProjectDir = projectDir
	return newBuilder
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	return &cfg
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newCfg := b.cfg
	if b.cfg.Nodes != nil {
		newCfg.Nodes = make([]config.Node, len(b.cfg.Nodes))
		copy(newCfg.Nodes, b.cfg.Nodes)
	}
	if b.cfg.DNSBootstrap != nil {
		newCfg.DNSBootstrap = make(map[string]string, len(b.cfg.DNSBootstrap))
		maps.Copy(newCfg.DNSBootstrap, b.cfg.DNSBootstrap)
	}
	return &ConfigBuilder{cfg: newCfg}
}

// MinimalConfig returns a config with a single supervisor.
func MinimalConfig() *config.Config {
	return NewConfigBuilder().
		WithNode("eggs", "18.4.60.150", config.KindSupervisor).
		Build()
}

// FullConfig returns a config with one node of every kind, the Kerberos
// gateway enabled and one static bootstrap entry.
func FullConfig() *config.Config {
	return NewConfigBuilder().
		WithNode("eggs", "18.4.60.150", config.KindSupervisor).
		WithNode("huevos", "18.4.60.151", config.KindMaster).
		WithNode("ovos", "18.4.60.152", config.KindWorker).
		WithKerberosGateway(true).
		WithDNSBootstrap("mirror.mit.example.org", "18.4.60.2").
		Build()
}
