package config

import (
	"fmt"
	"strings"
)

// ClusterConf renders the cluster.conf consumed by the keyserver.
//
// The format is one "key=value" assignment per line. Node lines are keyed by
// hostname and carry the IP and kind separated by a space.
func (c *Config) ClusterConf() string {
	var b strings.Builder
	fmt.Fprintf(&b, "external_domain=%s\n", c.Cluster.ExternalDomain)
	fmt.Fprintf(&b, "internal_domain=%s\n", c.Cluster.KeyserverAlias)
	if keyserver, ok := c.Keyserver(); ok {
		fmt.Fprintf(&b, "keyserver=%s\n", keyserver.Hostname)
	}
	for _, node := range c.Nodes {
		fmt.Fprintf(&b, "node.%s=%s %s\n", node.Hostname, node.IP, node.Kind)
	}
	return b.String()
}
