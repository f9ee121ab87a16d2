package setup

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/ops"
)

const (
	prometheusConfigPath = "/etc/prometheus.yaml"
	prometheusPort       = 9090
	nodeExporterPort     = 9100
)

type prometheusConfig struct {
	Global        prometheusGlobal `yaml:"global"`
	ScrapeConfigs []scrapeConfig   `yaml:"scrape_configs"`
}

type prometheusGlobal struct {
	ScrapeInterval     string `yaml:"scrape_interval"`
	EvaluationInterval string `yaml:"evaluation_interval"`
}

type scrapeConfig struct {
	JobName       string         `yaml:"job_name"`
	StaticConfigs []staticConfig `yaml:"static_configs"`
}

type staticConfig struct {
	Targets []string          `yaml:"targets"`
	Labels  map[string]string `yaml:"labels,omitempty"`
}

// PrometheusConfig renders the Prometheus configuration for the cluster:
// Prometheus itself plus the node exporter on every node, labeled with the
// node's hostname and kind.
func PrometheusConfig(cfg *config.Config) ([]byte, error) {
	pc := prometheusConfig{
		Global: prometheusGlobal{
			ScrapeInterval:     "15s",
			EvaluationInterval: "15s",
		},
		ScrapeConfigs: []scrapeConfig{{
			JobName: "prometheus",
			StaticConfigs: []staticConfig{{
				Targets: []string{net.JoinHostPort("localhost", strconv.Itoa(prometheusPort))},
			}},
		}},
	}

	nodes := scrapeConfig{JobName: "node"}
	for _, node := range cfg.Nodes {
		nodes.StaticConfigs = append(nodes.StaticConfigs, staticConfig{
			Targets: []string{net.JoinHostPort(node.IP, strconv.Itoa(nodeExporterPort))},
			Labels: map[string]string{
				"hostname": node.Hostname,
				"kind":     node.Kind,
			},
		})
	}
	if len(nodes.StaticConfigs) > 0 {
		pc.ScrapeConfigs = append(pc.ScrapeConfigs, nodes)
	}

	data, err := yaml.Marshal(&pc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prometheus config: %w", err)
	}
	return data, nil
}

// Prometheus uploads the rendered configuration to supervisors and
// restarts Prometheus.
func Prometheus(_ context.Context, env *Env, q *ops.Queue) error {
	data, err := PrometheusConfig(env.Config)
	if err != nil {
		return err
	}

	for _, node := range env.Config.Supervisors() {
		uploadBytes(q, env, "upload prometheus config to @HOST", node, data, prometheusConfigPath, publicPerm)
		systemctl(q, env, "enable prometheus on @HOST", node, "enable", "prometheus")
		systemctl(q, env, "restart prometheus on @HOST", node, "restart", "prometheus")
	}
	return nil
}
