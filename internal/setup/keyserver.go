package setup

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/ops"
	"github.com/imamik/spire/internal/shell"
)

// Keyserver deploys the keyserver to every supervisor: authorities, the
// rendered cluster.conf and the setup file, then starts the service.
func Keyserver(ctx context.Context, env *Env, q *ops.Queue) error {
	if env.Config.Path == "" {
		return errors.New("keyserver setup needs a configuration loaded from a file")
	}

	authorities, err := env.Secrets.Authorities(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(authorities))
	for _, authority := range authorities {
		if strings.Contains(authority.Name, "/") || authority.Name == "" || authority.Name == "." || authority.Name == ".." {
			return &config.ValidationError{
				Field:   "secrets.authorities",
				Message: fmt.Sprintf("found key in upload list with invalid filename %q", authority.Name),
			}
		}
		if seen[authority.Name] {
			return &config.ValidationError{
				Field:   "secrets.authorities",
				Message: fmt.Sprintf("found key in upload list with duplicate filename %q", authority.Name),
			}
		}
		seen[authority.Name] = true
	}

	clusterConf := []byte(env.Config.ClusterConf())

	// The keyserver only reads YAML, so TOML setup files are converted.
	var setupYAML []byte
	if strings.EqualFold(filepath.Ext(env.Config.Path), ".toml") {
		setupYAML, err = yaml.Marshal(env.Config)
		if err != nil {
			return fmt.Errorf("failed to convert %s to yaml: %w", env.Config.Path, err)
		}
	}

	for _, node := range env.Config.Supervisors() {
		sshMkdir(q, env, "create directories on @HOST", node, AuthorityDir, StaticsDir, ConfigDir)
		for _, authority := range authorities {
			uploadBytes(q, env, "upload authority "+authority.Name+" to @HOST", node,
				authority.Data, path.Join(AuthorityDir, authority.Name), secretPerm)
		}
		uploadBytes(q, env, "upload cluster config to @HOST", node,
			clusterConf, path.Join(StaticsDir, "cluster.conf"), publicPerm)
		if setupYAML != nil {
			uploadBytes(q, env, "upload cluster setup to @HOST", node,
				setupYAML, path.Join(ConfigDir, "setup.yaml"), publicPerm)
		} else {
			uploadFile(q, env, "upload cluster setup to @HOST", node,
				env.Config.Path, path.Join(ConfigDir, "setup.yaml"))
		}
		systemctl(q, env, "enable keyserver on @HOST", node, "enable", "keyserver.service")
		systemctl(q, env, "start keyserver on @HOST", node, "restart", "keyserver.service")
	}
	return nil
}

// AdmitKeyserver admits each supervisor into the keysystem with a bootstrap
// token it issues for itself, then starts the auth monitor.
func AdmitKeyserver(_ context.Context, env *Env, q *ops.Queue) error {
	for _, node := range env.Config.Supervisors() {
		fqdn := node.FQDN(env.Config.Cluster.ExternalDomain)
		sshCommand(q, env, "request bootstrap token for @HOST", node,
			[]string{"keyinitadmit", fqdn},
			shell.RedirectTo(path.Join(KeyclientDir, "bootstrap.token")))
		systemctl(q, env, "kick keyclient daemon on @HOST", node, "restart", "keyclient")
		// fails until the keyclient has obtained its granting certificate
		sshCommand(q, env, "confirm that @HOST was admitted", node,
			[]string{"test", "-e", path.Join(KeyclientDir, "granting.pem")})
		systemctl(q, env, "enable auth-monitor daemon on @HOST", node, "enable", "auth-monitor")
		systemctl(q, env, "start auth-monitor daemon on @HOST", node, "restart", "auth-monitor")
	}
	return nil
}
