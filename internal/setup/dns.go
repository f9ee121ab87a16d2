package setup

import (
	"context"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/ops"
	"github.com/imamik/spire/internal/shell"
)

const hostsPath = "/etc/hosts"

// StartDNSBootstrap points every node at the bootstrap host table.
func StartDNSBootstrap(ctx context.Context, env *Env, q *ops.Queue) error {
	return DNSBootstrap(ctx, env, q, true)
}

// StopDNSBootstrap removes the bootstrap host table from every node.
func StopDNSBootstrap(ctx context.Context, env *Env, q *ops.Queue) error {
	return DNSBootstrap(ctx, env, q, false)
}

// DNSBootstrap strips previously installed bootstrap lines from /etc/hosts
// on every node and, when install is set, appends the current table.
//
// The table is validated before anything is queued, so a redundant entry
// leaves the queue empty.
func DNSBootstrap(_ context.Context, env *Env, q *ops.Queue, install bool) error {
	var entries []config.HostEntry
	if install {
		var err error
		entries, err = env.Config.BootstrapHosts()
		if err != nil {
			return err
		}
	}

	strip := shell.Command([]string{"grep", "-vF", config.BootstrapMarker, hostsPath},
		shell.RedirectTo(hostsPath+".new")) +
		" && " + shell.Command([]string{"mv", hostsPath + ".new", hostsPath})

	for _, node := range env.Config.Nodes {
		sshScript(q, env, "strip bootstrapped dns on @HOST", node, strip)
		for _, entry := range entries {
			sshScript(q, env, "bootstrap dns on @HOST: "+entry.Hostname, node,
				shell.Command([]string{"echo", entry.Line()})+" >>"+shell.Quote(hostsPath))
		}
	}
	return nil
}
