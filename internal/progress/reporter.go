// Package progress reports operation queue progress to the console, the
// log and Prometheus metrics.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"

	"github.com/imamik/spire/internal/ops"
)

var _ ops.Observer = (*Reporter)(nil)

// Reporter prints one line per operation event.
type Reporter struct {
	out     io.Writer
	color   bool
	log     logr.Logger
	metrics *Metrics
}

// NewReporter creates a reporter writing to out. Colors are used only when
// color is set. metrics may be nil.
func NewReporter(out io.Writer, color bool, log logr.Logger, metrics *Metrics) *Reporter {
	return &Reporter{out: out, color: color, log: log, metrics: metrics}
}

// OperationStarted implements ops.Observer.
func (r *Reporter) OperationStarted(index, total int, name string) {
	r.log.V(1).Info("operation started", "index", index+1, "total", total, "operation", name)
	_, _ = fmt.Fprintf(r.out, "%s %s %s\n",
		r.render(dimStyle, counter(index, total)),
		r.render(dimStyle, spinner),
		r.render(activeStyle, name))
}

// OperationFinished implements ops.Observer.
func (r *Reporter) OperationFinished(index, total int, name string, elapsed time.Duration, err error) {
	if r.metrics != nil {
		r.metrics.Observe(elapsed, err)
	}

	elapsed = elapsed.Round(time.Millisecond)
	if err != nil {
		// The caller reports the cause once the run has stopped.
		r.log.V(1).Info("operation failed", "operation", name, "elapsed", elapsed, "error", err.Error())
		_, _ = fmt.Fprintf(r.out, "%s %s %s %s\n",
			r.render(dimStyle, counter(index, total)),
			r.render(failedStyle, crossMark),
			r.render(failedStyle, name),
			r.render(dimStyle, "("+elapsed.String()+")"))
		return
	}

	r.log.V(1).Info("operation finished", "operation", name, "elapsed", elapsed)
	_, _ = fmt.Fprintf(r.out, "%s %s %s %s\n",
		r.render(dimStyle, counter(index, total)),
		r.render(readyStyle, checkMark),
		name,
		r.render(dimStyle, "("+elapsed.String()+")"))
}

// Plan lists queued operation names without running them.
func (r *Reporter) Plan(names []string) {
	for i, name := range names {
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.render(dimStyle, counter(i, len(names))), name)
	}
}

func (r *Reporter) render(style lipgloss.Style, s string) string {
	if !r.color {
		return s
	}
	return style.Render(s)
}

func counter(index, total int) string {
	width := len(fmt.Sprint(total))
	return fmt.Sprintf("[%*d/%d]", width, index+1, total)
}
