package setup

import (
	"context"

	"github.com/imamik/spire/internal/ops"
	"github.com/imamik/spire/internal/resources"
	"github.com/imamik/spire/internal/shell"
)

const (
	sshdConfigPath         = "/etc/ssh/sshd_config"
	authorizedKeysPath     = "/root/.ssh/authorized_keys"
	originalAuthorizedKeys = "/root/original_authorized_keys"
)

// SupervisorSSH installs the bundled sshd configuration on supervisors and
// moves root's authorized_keys out of the way, leaving certificate login as
// the only way in.
func SupervisorSSH(_ context.Context, env *Env, q *ops.Queue) error {
	sshdConfig, err := env.Resources.Get(resources.SSHDConfig)
	if err != nil {
		return err
	}

	shiftAside := "if [ -f " + shell.Quote(authorizedKeysPath) + " ]; then " +
		shell.Command([]string{"mv", authorizedKeysPath, originalAuthorizedKeys}) + "; fi"

	for _, node := range env.Config.Supervisors() {
		uploadBytes(q, env, "upload new ssh configuration to @HOST", node, sshdConfig, sshdConfigPath, publicPerm)
		systemctl(q, env, "reload ssh configuration on @HOST", node, "restart", "ssh")
		sshScript(q, env, "shift aside old authorized_keys on @HOST", node, shiftAside)
	}
	return nil
}

// BootstrapRegistry starts the container registry and its nginx frontend
// on supervisors.
func BootstrapRegistry(_ context.Context, env *Env, q *ops.Queue) error {
	for _, node := range env.Config.Supervisors() {
		systemctl(q, env, "enable docker-registry on @HOST", node, "enable", "docker-registry")
		systemctl(q, env, "restart docker-registry on @HOST", node, "restart", "docker-registry")

		systemctl(q, env, "unmask nginx on @HOST", node, "unmask", "nginx")
		systemctl(q, env, "enable nginx on @HOST", node, "enable", "nginx")
		systemctl(q, env, "restart nginx on @HOST", node, "restart", "nginx")
	}
	return nil
}

// UpdateRegistry upgrades the OCI image package on supervisors and pushes
// its images to the local registry.
func UpdateRegistry(_ context.Context, env *Env, q *ops.Queue) error {
	for _, node := range env.Config.Supervisors() {
		sshCommand(q, env, "update apt repositories on @HOST", node, []string{"apt-get", "update"})
		sshCommand(q, env, "update package of OCIs on @HOST", node, []string{"apt-get", "install", "-y", "homeworld-oci-pack"})
		sshCommand(q, env, "upgrade apt packages on @HOST", node, []string{"apt-get", "upgrade", "-y"})
		sshCommand(q, env, "re-push OCIs to registry on @HOST", node, []string{"/usr/lib/homeworld/push-ocis.sh"})
	}
	return nil
}
