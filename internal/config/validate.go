package config

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

// ValidationError reports a configuration problem detected locally, before
// any remote action is taken.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// hostnamePattern matches a single DNS label.
var hostnamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// domainPattern matches a dotted DNS name.
var domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidKinds contains all recognised node kinds.
var ValidKinds = map[string]bool{
	KindSupervisor: true,
	KindMaster:     true,
	KindWorker:     true,
}

// Validate checks the configuration and returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Cluster.ExternalDomain == "" {
		errs = append(errs, &ValidationError{Field: "cluster.external_domain", Message: "is required"})
	} else if !domainPattern.MatchString(c.Cluster.ExternalDomain) {
		errs = append(errs, &ValidationError{Field: "cluster.external_domain",
			Message: fmt.Sprintf("invalid domain %q", c.Cluster.ExternalDomain)})
	}

	if !domainPattern.MatchString(c.Cluster.KeyserverAlias) {
		errs = append(errs, &ValidationError{Field: "cluster.keyserver_alias",
			Message: fmt.Sprintf("invalid hostname %q", c.Cluster.KeyserverAlias)})
	}

	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		errs = append(errs, &ValidationError{Field: "ssh.port", Message: fmt.Sprintf("invalid port %d", c.SSH.Port)})
	}

	if strings.Count(c.Secrets.KeytabPattern, "%s") != 1 {
		errs = append(errs, &ValidationError{Field: "secrets.keytab_pattern",
			Message: "must contain exactly one %s placeholder for the hostname"})
	}

	if len(c.Nodes) == 0 {
		errs = append(errs, &ValidationError{Field: "nodes", Message: "at least one node is required"})
	}

	seen := make(map[string]bool)
	for i, node := range c.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if err := validateNode(node); err != nil {
			errs = append(errs, &ValidationError{Field: field, Message: err.Error()})
			continue
		}
		if seen[node.Hostname] {
			errs = append(errs, &ValidationError{Field: field,
				Message: fmt.Sprintf("duplicate hostname %q", node.Hostname)})
		}
		seen[node.Hostname] = true
	}

	for hostname, ip := range c.DNSBootstrap {
		if !domainPattern.MatchString(hostname) {
			errs = append(errs, &ValidationError{Field: "dns_bootstrap",
				Message: fmt.Sprintf("invalid hostname %q", hostname)})
		}
		if _, err := netip.ParseAddr(ip); err != nil {
			errs = append(errs, &ValidationError{Field: "dns_bootstrap",
				Message: fmt.Sprintf("invalid IP %q for %s", ip, hostname)})
		}
	}

	return errors.Join(errs...)
}

// validateNode checks a single node entry.
func validateNode(node Node) error {
	if !hostnamePattern.MatchString(node.Hostname) {
		return fmt.Errorf("invalid hostname %q: must be a single lowercase DNS label", node.Hostname)
	}
	if _, err := netip.ParseAddr(node.IP); err != nil {
		return fmt.Errorf("invalid IP %q for %s", node.IP, node.Hostname)
	}
	if !ValidKinds[node.Kind] {
		return fmt.Errorf("invalid kind %q for %s: must be supervisor, master, or worker", node.Kind, node.Hostname)
	}
	return nil
}
