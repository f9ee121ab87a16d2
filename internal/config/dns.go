package config

import (
	"fmt"
	"sort"
	"strings"
)

// BootstrapMarker tags every /etc/hosts line written during DNS bootstrap so
// the lines can be stripped again later.
const BootstrapMarker = "AUTO-HOMEWORLD-BOOTSTRAP"

// HostEntry is one hostname to IP mapping for /etc/hosts.
type HostEntry struct {
	Hostname string
	IP       string
}

// Line renders the entry as a tagged /etc/hosts line without a newline.
func (e HostEntry) Line() string {
	return fmt.Sprintf("%s\t%s # %s", e.IP, e.Hostname, BootstrapMarker)
}

// BootstrapHosts builds the bootstrap /etc/hosts table.
//
// Entries come from three sources, in order: the static dns_bootstrap map
// (sorted by hostname), the keyserver alias pointing at the first supervisor,
// and each node's short and fully-qualified hostnames. A hostname produced by
// more than one source is rejected with a *ValidationError.
func (c *Config) BootstrapHosts() ([]HostEntry, error) {
	keyserver, ok := c.Keyserver()
	if !ok {
		return nil, &ValidationError{Field: "nodes", Message: "no supervisor node to serve as keyserver"}
	}

	var entries []HostEntry
	seen := make(map[string]bool)
	add := func(hostname, ip string) error {
		key := strings.ToLower(hostname)
		if seen[key] {
			return &ValidationError{Field: "dns_bootstrap", Message: "redundant /etc/hosts entry: " + hostname}
		}
		seen[key] = true
		entries = append(entries, HostEntry{Hostname: hostname, IP: ip})
		return nil
	}

	static := make([]string, 0, len(c.DNSBootstrap))
	for hostname := range c.DNSBootstrap {
		static = append(static, hostname)
	}
	sort.Strings(static)
	for _, hostname := range static {
		if err := add(hostname, c.DNSBootstrap[hostname]); err != nil {
			return nil, err
		}
	}

	if err := add(c.Cluster.KeyserverAlias, keyserver.IP); err != nil {
		return nil, err
	}

	for _, node := range c.Nodes {
		if err := add(node.Hostname, node.IP); err != nil {
			return nil, err
		}
		if err := add(node.FQDN(c.Cluster.ExternalDomain), node.IP); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// HostsFile renders entries as /etc/hosts lines, one per entry.
func HostsFile(entries []HostEntry) string {
	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(entry.Line())
		b.WriteByte('\n')
	}
	return b.String()
}
