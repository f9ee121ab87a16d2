// Package testing provides test utilities, builders, and mocks shared by
// the setup, handler and command tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - MockRemote: testify mock of the remote execution backend
//   - MockSecrets, MockResources: mocks for the secret and resource sources
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithNode("eggs", "18.4.60.150", config.KindSupervisor).
//	    WithKerberosGateway(true).
//	    Build()
//
//	remote := testing.NewMockRemote()
//	remote.AcceptAll()
package testing
