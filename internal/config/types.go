package config

// Config holds the cluster setup configuration.
type Config struct {
	Cluster  ClusterConfig `yaml:"cluster" toml:"cluster"`
	Features FeatureConfig `yaml:"features" toml:"features"`
	SSH      SSHConfig     `yaml:"ssh" toml:"ssh"`
	Secrets  SecretsConfig `yaml:"secrets" toml:"secrets"`
	S3       S3Config      `yaml:"s3" toml:"s3"`
	Nodes    []Node        `yaml:"nodes" toml:"nodes"`

	// DNSBootstrap maps static hostnames to IPs written into /etc/hosts
	// while the cluster DNS is not yet available.
	DNSBootstrap map[string]string `yaml:"dns_bootstrap" toml:"dns_bootstrap"`

	// Path is the file the configuration was loaded from.
	Path string `yaml:"-" toml:"-"`
	// ProjectDir is the directory containing Path. Relative secret
	// locations are resolved against it.
	ProjectDir string `yaml:"-" toml:"-"`
}

// ClusterConfig holds cluster-wide naming.
type ClusterConfig struct {
	// ExternalDomain is appended to node hostnames to form their FQDN.
	ExternalDomain string `yaml:"external_domain" toml:"external_domain"`

	// KeyserverAlias is the internal name resolving to the keyserver.
	// Default: "homeworld.private"
	KeyserverAlias string `yaml:"keyserver_alias" toml:"keyserver_alias"`
}

// FeatureConfig toggles optional components.
type FeatureConfig struct {
	// KerberosGateway enables deployment of the keygateway service.
	KerberosGateway bool `yaml:"kerberos_gateway" toml:"kerberos_gateway"`
}

// SSHConfig describes how nodes are reached.
type SSHConfig struct {
	User         string `yaml:"user" toml:"user"`                   // Default: root
	Port         int    `yaml:"port" toml:"port"`                   // Default: 22
	IdentityFile string `yaml:"identity_file" toml:"identity_file"` // Falls back to SSH agent when empty
	KnownHosts   string `yaml:"known_hosts" toml:"known_hosts"`     // Host keys are not verified when empty
}

// SecretsConfig describes where encrypted artifacts are stored.
//
// Locations are either paths relative to the project directory, absolute
// paths, or s3://bucket/key URLs.
type SecretsConfig struct {
	// AgeIdentity is the age identity file used for decryption.
	AgeIdentity string `yaml:"age_identity" toml:"age_identity"`

	// Authorities is the directory or s3 prefix holding encrypted authority keys.
	Authorities string `yaml:"authorities" toml:"authorities"`

	// KeytabPattern is a printf pattern taking the node hostname.
	KeytabPattern string `yaml:"keytab_pattern" toml:"keytab_pattern"`
}

// S3Config configures the object storage used for s3:// secret locations.
// Credentials are read from SPIRE_S3_ACCESS_KEY and SPIRE_S3_SECRET_KEY.
type S3Config struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Region   string `yaml:"region" toml:"region"`
}

// Node is a single cluster machine.
type Node struct {
	Hostname string `yaml:"hostname" toml:"hostname"`
	IP       string `yaml:"ip" toml:"ip"`
	Kind     string `yaml:"kind" toml:"kind"`
}

// IsSupervisor reports whether the node is a control-plane supervisor.
func (n Node) IsSupervisor() bool {
	return n.Kind == KindSupervisor
}

// FQDN returns the node's fully-qualified hostname under domain.
func (n Node) FQDN(domain string) string {
	return n.Hostname + "." + domain
}

// NodesOfKind returns the nodes with the given kind, preserving order.
func (c *Config) NodesOfKind(kind string) []Node {
	var nodes []Node
	for _, node := range c.Nodes {
		if node.Kind == kind {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Supervisors returns the supervisor nodes in configuration order.
func (c *Config) Supervisors() []Node {
	return c.NodesOfKind(KindSupervisor)
}

// Keyserver returns the node hosting the keyserver: the first supervisor.
func (c *Config) Keyserver() (Node, bool) {
	supervisors := c.Supervisors()
	if len(supervisors) == 0 {
		return Node{}, false
	}
	return supervisors[0], true
}
