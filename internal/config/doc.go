// Package config defines the cluster setup configuration consumed by the
// setup procedures.
//
// The [Config] struct describes the fixed cluster topology (the ordered list
// of [Node] values), the external DNS domain, feature flags, SSH access
// settings, and where encrypted secrets live. It is loaded once per run with
// [LoadFile] and passed explicitly to every procedure.
package config
