package testing

import (
	"context"
	"testing"
	"time"

	"github.com/imamik/spire/internal/ops"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// RecordingObserver records operation names in the order they finish,
// with "FAILED " prefixed to failed ones.
type RecordingObserver struct {
	Started  []string
	Finished []string
}

var _ ops.Observer = (*RecordingObserver)(nil)

// OperationStarted implements ops.Observer.
func (r *RecordingObserver) OperationStarted(_, _ int, name string) {
	r.Started = append(r.Started, name)
}

// OperationFinished implements ops.Observer.
func (r *RecordingObserver) OperationFinished(_, _ int, name string, _ time.Duration, err error) {
	if err != nil {
		name = "FAILED " + name
	}
	r.Finished = append(r.Finished, name)
}
