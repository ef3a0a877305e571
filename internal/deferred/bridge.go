package deferred

import (
	"context"

	"github.com/dshills/cmdbridge/internal/grammar"
)

// Bridge is the dispatch source for deferred commands. It carries the
// caller's source and the queue actions are recorded on.
type Bridge[S any] struct {
	source S
	queue  *Queue
}

// Bridged wraps source with a fresh queue.
func Bridged[S any](source S) *Bridge[S] {
	return &Bridge[S]{source: source, queue: NewQueue()}
}

// Source returns the wrapped source.
func (b *Bridge[S]) Source() S { return b.source }

// UnwrapSource returns the wrapped source so bindings see S rather than
// the bridge.
func (b *Bridge[S]) UnwrapSource() any { return b.source }

// Queue returns the queue shared by this bridge and every bridge derived
// from it by a redirect or fork.
func (b *Bridge[S]) Queue() *Queue { return b.queue }

// Enqueue records an action to run after dispatch.
func (b *Bridge[S]) Enqueue(a Action) error {
	return b.queue.Enqueue(a)
}

// derive wraps a new source around the same queue.
func (b *Bridge[S]) derive(source S) *Bridge[S] {
	return &Bridge[S]{source: source, queue: b.queue}
}

// SuspendDispatcher is a dispatcher whose commands may defer work.
type SuspendDispatcher[S any] = grammar.Dispatcher[*Bridge[S]]

// NewDispatcher creates an empty suspend dispatcher.
func NewDispatcher[S any]() *SuspendDispatcher[S] {
	return grammar.NewDispatcher[*Bridge[S]]()
}

// ExecuteSuspend dispatches input for source, then runs everything the
// matched commands deferred.
func ExecuteSuspend[S any](ctx context.Context, d *SuspendDispatcher[S], input string, source S) (int, error) {
	return ExecuteBridge(ctx, d, input, Bridged(source))
}

// ExecuteBridge is ExecuteSuspend with a caller supplied bridge, which
// lets the caller inspect the queue afterwards. A dispatch error skips
// the drain. A drain error is returned together with the dispatch result.
func ExecuteBridge[S any](ctx context.Context, d *SuspendDispatcher[S], input string, bridge *Bridge[S]) (int, error) {
	result, err := d.Execute(input, bridge)
	if err != nil {
		return result, err
	}
	if err := bridge.queue.Drain(ctx); err != nil {
		return result, err
	}
	return result, nil
}
