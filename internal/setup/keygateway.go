package setup

import (
	"bytes"
	"context"
	"fmt"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/ops"
	"github.com/imamik/spire/internal/shell"
)

// SetupKeygateway installs keytabs without replacing a different one that
// is already present.
func SetupKeygateway(ctx context.Context, env *Env, q *ops.Queue) error {
	return Keygateway(ctx, env, q, false)
}

// UpdateKeygateway installs keytabs, replacing whatever is present.
func UpdateKeygateway(ctx context.Context, env *Env, q *ops.Queue) error {
	return Keygateway(ctx, env, q, true)
}

// keytabUpload is the per-node state shared between the verification and
// upload operations of one run.
type keytabUpload struct {
	node    config.Node
	keytab  []byte
	current bool
}

// Keygateway installs each supervisor's Kerberos keytab and restarts the
// keygateway.
//
// Unless force is set, every supervisor's existing keytab is read and
// compared before any keytab is written. A supervisor already holding the
// same keytab is left untouched; a different keytab anywhere fails the run
// with a *PreconditionMismatchError before the first upload.
func Keygateway(ctx context.Context, env *Env, q *ops.Queue, force bool) error {
	if !env.Config.Features.KerberosGateway {
		env.Log.Info("keygateway disabled; skipping")
		return nil
	}

	var uploads []*keytabUpload
	for _, node := range env.Config.Supervisors() {
		keytab, err := env.Secrets.Keytab(ctx, node)
		if err != nil {
			return err
		}
		uploads = append(uploads, &keytabUpload{node: node, keytab: keytab})
	}

	if !force {
		for _, u := range uploads {
			q.AddFor("verify existing keytab on @HOST", u.node, func(ctx context.Context) error {
				return verifyKeytab(ctx, env, u)
			})
		}
	}

	for _, u := range uploads {
		q.AddFor("upload keytab for @HOST", u.node, func(ctx context.Context) error {
			if u.current {
				env.Log.Info("existing keytab matches local keytab; not uploading", "node", u.node.Hostname)
				return nil
			}
			return env.Remote.UploadBytes(ctx, u.node, u.keytab, KeytabPath, secretPerm)
		})
		systemctl(q, env, "enable keygateway on @HOST", u.node, "enable", "keygateway")
		systemctl(q, env, "restart keygateway on @HOST", u.node, "restart", "keygateway")
	}
	return nil
}

// verifyKeytab compares the node's keytab with the local one. cat exits 1
// when the file does not exist, which means there is nothing to protect.
func verifyKeytab(ctx context.Context, env *Env, u *keytabUpload) error {
	existing, err := env.Remote.Output(ctx, u.node, shell.Command([]string{"cat", KeytabPath}))
	if err != nil {
		if exitCode(err) == 1 {
			env.Log.Info("no existing keytab found, uploading local keytab", "node", u.node.Hostname)
			return nil
		}
		return fmt.Errorf("failed to read existing keytab: %w", err)
	}
	if !bytes.Equal(existing, u.keytab) {
		return &PreconditionMismatchError{Host: u.node.Hostname, Path: KeytabPath}
	}
	u.current = true
	return nil
}
