package setup

import (
	"context"
	"io/fs"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/ops"
	"github.com/imamik/spire/internal/shell"
)

// Remote paths shared by several procedures.
const (
	AuthorityDir = "/etc/homeworld/keyserver/authorities"
	StaticsDir   = "/etc/homeworld/keyserver/static"
	ConfigDir    = "/etc/homeworld/config"
	KeyclientDir = "/etc/homeworld/keyclient"
	KeytabPath   = "/etc/krb5.keytab"
)

const (
	secretPerm = fs.FileMode(0o600)
	publicPerm = fs.FileMode(0o644)
)

// sshCommand enqueues argv, quoted, as a remote command on node.
func sshCommand(q *ops.Queue, env *Env, template string, node config.Node, argv []string, opts ...shell.Option) {
	command := shell.Command(argv, opts...)
	q.AddFor(template, node, func(ctx context.Context) error {
		return env.Remote.Run(ctx, node, command)
	})
}

// sshScript enqueues a raw shell script. Use it only for constructs argv
// quoting cannot express, such as conditionals and pipes.
func sshScript(q *ops.Queue, env *Env, template string, node config.Node, script string) {
	q.AddFor(template, node, func(ctx context.Context) error {
		return env.Remote.Run(ctx, node, script)
	})
}

// sshMkdir enqueues a single mkdir -p for all paths.
func sshMkdir(q *ops.Queue, env *Env, template string, node config.Node, paths ...string) {
	argv := append([]string{"mkdir", "-p", "--"}, paths...)
	sshCommand(q, env, template, node, argv)
}

// systemctl enqueues a systemctl action on unit.
func systemctl(q *ops.Queue, env *Env, template string, node config.Node, action, unit string) {
	sshCommand(q, env, template, node, []string{"systemctl", action, unit})
}

// uploadBytes enqueues writing data to dest on node.
func uploadBytes(q *ops.Queue, env *Env, template string, node config.Node, data []byte, dest string, perm fs.FileMode) {
	q.AddFor(template, node, func(ctx context.Context) error {
		return env.Remote.UploadBytes(ctx, node, data, dest, perm)
	})
}

// uploadFile enqueues copying the local file src to dest on node.
func uploadFile(q *ops.Queue, env *Env, template string, node config.Node, src, dest string) {
	q.AddFor(template, node, func(ctx context.Context) error {
		return env.Remote.UploadFile(ctx, node, src, dest)
	})
}
