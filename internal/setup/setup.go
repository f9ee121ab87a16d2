// Package setup holds the deployment procedures that configure cluster
// supervisors.
//
// A procedure never touches a node while it runs. It reads the cluster
// configuration, decrypts whatever secrets it needs, and appends named
// operations to an [ops.Queue]; the caller decides whether to list those
// operations or run them. Anything that can be checked locally (host
// tables, authority names, secret decryption) is checked while the queue
// is built, so a bad configuration fails before the first remote command.
package setup

import (
	"context"
	"io/fs"
	"sort"

	"github.com/go-logr/logr"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/ops"
	"github.com/imamik/spire/internal/secrets"
)

// Remote executes commands and writes files on nodes.
type Remote interface {
	// Run executes command and fails on a nonzero exit status.
	Run(ctx context.Context, node config.Node, command string) error
	// Output executes command and returns its stdout.
	Output(ctx context.Context, node config.Node, command string) ([]byte, error)
	// UploadBytes writes data to dest.
	UploadBytes(ctx context.Context, node config.Node, data []byte, dest string, perm fs.FileMode) error
	// UploadFile copies the local file src to dest.
	UploadFile(ctx context.Context, node config.Node, src, dest string) error
}

// SecretSource decrypts cluster secrets.
type SecretSource interface {
	Keytab(ctx context.Context, node config.Node) ([]byte, error)
	Authorities(ctx context.Context) ([]secrets.Authority, error)
}

// ResourceSource serves files bundled with spire.
type ResourceSource interface {
	Get(name string) ([]byte, error)
}

// Env carries the collaborators a procedure builds its operations from.
type Env struct {
	Config    *config.Config
	Remote    Remote
	Secrets   SecretSource
	Resources ResourceSource
	Log       logr.Logger
}

// Procedure appends the operations of one deployment step to q.
type Procedure func(ctx context.Context, env *Env, q *ops.Queue) error

// Command describes a procedure exposed on the command line.
type Command struct {
	Name      string
	Short     string
	Procedure Procedure
}

var commands = []Command{
	{"keyserver", "Deploy keys and configuration for the keyserver, then start it", Keyserver},
	{"self-admit", "Admit the keyserver into the cluster during bootstrapping", AdmitKeyserver},
	{"keygateway", "Deploy keytabs and start the keygateway", SetupKeygateway},
	{"update-keygateway", "Update keytabs and restart the keygateway", UpdateKeygateway},
	{"supervisor-ssh", "Configure supervisor SSH access", SupervisorSSH},
	{"dns-bootstrap", "Switch cluster nodes into bootstrapped DNS mode", StartDNSBootstrap},
	{"stop-dns-bootstrap", "Switch cluster nodes out of bootstrapped DNS mode", StopDNSBootstrap},
	{"bootstrap-registry", "Bring up the bootstrap container registry on supervisors", BootstrapRegistry},
	{"update-registry", "Upload the latest container images to the bootstrap registry", UpdateRegistry},
	{"prometheus", "Bring up the supervisor Prometheus instance", Prometheus},
}

// Commands returns every procedure in the order it is usually run.
func Commands() []Command {
	return append([]Command(nil), commands...)
}

// Lookup returns the procedure registered under name.
func Lookup(name string) (Command, bool) {
	for _, c := range commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Names returns the registered procedure names, sorted.
func Names() []string {
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
