// Package ops queues named units of remote work and runs them in order.
//
// Procedures build a [Queue] by appending [Operation] values whose actions
// capture everything they need by closure. Nothing happens until [Queue.Run],
// which executes the operations strictly in insertion order and stops at the
// first failure. There is no retry and no rollback: procedures are written to
// be safely re-run from scratch once the cause of a failure is fixed.
package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/spire/internal/config"
)

// HostPlaceholder is replaced by the node hostname in operation names.
const HostPlaceholder = "@HOST"

// Action performs one unit of work. A non-nil error halts the queue.
type Action func(ctx context.Context) error

// Operation is a named, deferred unit of work.
type Operation struct {
	Name   string
	Action Action
}

// Describe renders a name template for node, replacing every occurrence of
// HostPlaceholder with the node hostname.
func Describe(template string, node config.Node) string {
	return strings.ReplaceAll(template, HostPlaceholder, node.Hostname)
}

// OperationError reports the operation that halted a queue run.
type OperationError struct {
	Index int // zero-based position in the queue
	Name  string
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %q failed: %v", e.Name, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Observer is notified around each operation during Run.
type Observer interface {
	// OperationStarted is called before the action runs.
	OperationStarted(index, total int, name string)

	// OperationFinished is called after the action returns, with its error.
	OperationFinished(index, total int, name string, elapsed time.Duration, err error)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

// OperationStarted implements Observer.
func (NopObserver) OperationStarted(int, int, string) {}

// OperationFinished implements Observer.
func (NopObserver) OperationFinished(int, int, string, time.Duration, error) {}

// Queue is an ordered, single-use list of operations.
//
// A Queue is built and run by one goroutine; it is not safe for concurrent use.
type Queue struct {
	operations []Operation
	observer   Observer
	started    bool
}

// NewQueue creates an empty queue reporting to observer. A nil observer
// discards notifications.
func NewQueue(observer Observer) *Queue {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Queue{observer: observer}
}

// Add appends an operation. It has no side effect until Run.
//
// Add panics if the queue has already started running, if action is nil,
// or if name still contains HostPlaceholder.
func (q *Queue) Add(name string, action Action) {
	if q.started {
		panic(fmt.Sprintf("ops: operation %q added after the queue started running", name))
	}
	if action == nil {
		panic(fmt.Sprintf("ops: operation %q has no action", name))
	}
	if strings.Contains(name, HostPlaceholder) {
		panic(fmt.Sprintf("ops: operation name %q contains an unsubstituted %s", name, HostPlaceholder))
	}
	q.operations = append(q.operations, Operation{Name: name, Action: action})
}

// AddFor appends an operation whose name template is rendered for node.
func (q *Queue) AddFor(template string, node config.Node, action Action) {
	q.Add(Describe(template, node), action)
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	return len(q.operations)
}

// Names returns the operation names in execution order.
func (q *Queue) Names() []string {
	names := make([]string, len(q.operations))
	for i, op := range q.operations {
		names[i] = op.Name
	}
	return names
}

// Run executes every operation in insertion order.
//
// On the first failing action Run returns an *OperationError naming that
// operation; later operations never execute. Run panics if called twice.
func (q *Queue) Run(ctx context.Context) error {
	if q.started {
		panic("ops: queue already ran")
	}
	q.started = true

	total := len(q.operations)
	for i, op := range q.operations {
		q.observer.OperationStarted(i, total, op.Name)
		start := time.Now()
		err := op.Action(ctx)
		q.observer.OperationFinished(i, total, op.Name, time.Since(start), err)
		if err != nil {
			return &OperationError{Index: i, Name: op.Name, Err: err}
		}
	}
	return nil
}
