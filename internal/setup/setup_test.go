package setup

import (
	"bytes"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/spire/internal/config"
	"github.com/imamik/spire/internal/logging"
	"github.com/imamik/spire/internal/ops"
	spiretesting "github.com/imamik/spire/internal/testing"
)

var (
	eggs   = config.Node{Hostname: "eggs", IP: "18.4.60.150", Kind: config.KindSupervisor}
	huevos = config.Node{Hostname: "huevos", IP: "18.4.60.151", Kind: config.KindMaster}
	ovos   = config.Node{Hostname: "ovos", IP: "18.4.60.152", Kind: config.KindWorker}
	spam   = config.Node{Hostname: "spam", IP: "18.4.60.153", Kind: config.KindSupervisor}
)

type fixture struct {
	env       *Env
	remote    *spiretesting.MockRemote
	secrets   *spiretesting.MockSecrets
	resources *spiretesting.MockResources
	log       *bytes.Buffer
	observer  *spiretesting.RecordingObserver
	queue     *ops.Queue
}

func newFixture(cfg *config.Config) *fixture {
	f := &fixture{
		remote:    spiretesting.NewMockRemote(),
		secrets:   &spiretesting.MockSecrets{},
		resources: &spiretesting.MockResources{},
		log:       &bytes.Buffer{},
		observer:  &spiretesting.RecordingObserver{},
	}
	f.env = &Env{
		Config:    cfg,
		Remote:    f.remote,
		Secrets:   f.secrets,
		Resources: f.resources,
		Log:       logging.New(f.log, 0),
	}
	f.queue = ops.NewQueue(f.observer)
	return f
}

func TestCommands_Registry(t *testing.T) {
	t.Parallel()

	names := make([]string, 0)
	for _, c := range Commands() {
		names = append(names, c.Name)
		assert.NotNil(t, c.Procedure, c.Name)
		assert.NotEmpty(t, c.Short, c.Name)
	}
	assert.Equal(t, []string{
		"keyserver", "self-admit", "keygateway", "update-keygateway", "supervisor-ssh",
		"dns-bootstrap", "stop-dns-bootstrap", "bootstrap-registry", "update-registry", "prometheus",
	}, names)

	assert.Len(t, Names(), len(names))
	assert.Equal(t, "bootstrap-registry", Names()[0])

	c, ok := Lookup("update-keygateway")
	require.True(t, ok)
	assert.Equal(t, "update-keygateway", c.Name)

	_, ok = Lookup("nonexistent")
	assert.False(t, ok)
}

func TestCommands_ReturnsCopy(t *testing.T) {
	t.Parallel()
	cmds := Commands()
	cmds[0].Name = "changed"

	_, ok := Lookup("keyserver")
	assert.True(t, ok)
}

func TestProcedures_OnlyTargetSupervisors(t *testing.T) {
	t.Parallel()

	procedures := map[string]Procedure{
		"self-admit":         AdmitKeyserver,
		"bootstrap-registry": BootstrapRegistry,
		"update-registry":    UpdateRegistry,
		"prometheus":         Prometheus,
	}
	for name, procedure := range procedures {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(spiretesting.FullConfig())
			require.NoError(t, procedure(t.Context(), f.env, f.queue))

			require.NotZero(t, f.queue.Len())
			for _, op := range f.queue.Names() {
				assert.Contains(t, op, "eggs")
				assert.NotContains(t, op, "huevos")
				assert.NotContains(t, op, "ovos")
				assert.NotContains(t, op, ops.HostPlaceholder)
			}
		})
	}
}

func TestProcedures_NoSupervisorsQueueNothing(t *testing.T) {
	t.Parallel()
	cfg := spiretesting.NewConfigBuilder().
		WithNode("ovos", "18.4.60.152", config.KindWorker).
		Build()

	for _, c := range []Procedure{AdmitKeyserver, BootstrapRegistry, UpdateRegistry, Prometheus} {
		f := newFixture(cfg)
		require.NoError(t, c(t.Context(), f.env, f.queue))
		assert.Equal(t, 0, f.queue.Len())
	}
}

func TestEnv_DiscardLogger(t *testing.T) {
	t.Parallel()
	env := &Env{Config: spiretesting.MinimalConfig(), Log: logr.Discard()}
	q := ops.NewQueue(nil)

	require.NoError(t, BootstrapRegistry(t.Context(), env, q))
	assert.Equal(t, []string{
		"enable docker-registry on eggs",
		"restart docker-registry on eggs",
		"unmask nginx on eggs",
		"enable nginx on eggs",
		"restart nginx on eggs",
	}, q.Names())
}
