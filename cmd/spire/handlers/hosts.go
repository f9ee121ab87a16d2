package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/spire/internal/config"
)

// Hosts prints the validated bootstrap /etc/hosts table.
func Hosts(_ context.Context, configPath string) error {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	entries, err := cfg.BootstrapHosts()
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(stdout, config.HostsFile(entries))
	return err
}
