package deferred

import (
	"context"

	"github.com/dshills/cmdbridge/internal/binding"
	"github.com/dshills/cmdbridge/internal/command"
	"github.com/dshills/cmdbridge/internal/grammar"
)

// RunSuspend defers fn until the dispatch has returned.
func RunSuspend[S any](b *command.Builder[*Bridge[S]], fn func(ctx context.Context, source S, args *command.Arguments) error) {
	b.Executes(func(c *grammar.Context[*Bridge[S]]) error {
		bridge := c.Source()
		args := command.NewArguments(c)
		return bridge.Enqueue(func(ctx context.Context) error {
			return fn(ctx, bridge.source, args)
		})
	})
}

// RunSuspendConstruct builds a T from the arguments during dispatch and
// defers fn. A binding failure fails the dispatch and records nothing.
func RunSuspendConstruct[S, T any](b *command.Builder[*Bridge[S]], fn func(ctx context.Context, source S, args T) error) {
	b.Executes(func(c *grammar.Context[*Bridge[S]]) error {
		v, err := binding.Construct[T](command.NewArguments(c))
		if err != nil {
			return err
		}
		bridge := c.Source()
		return bridge.Enqueue(func(ctx context.Context) error {
			return fn(ctx, bridge.source, v)
		})
	})
}

// RunSuspendFunc binds spec during dispatch and defers the call. A
// validation or binding failure fails the dispatch and records nothing.
func RunSuspendFunc[S any](b *command.Builder[*Bridge[S]], spec binding.CallSpec) {
	b.Executes(func(c *grammar.Context[*Bridge[S]]) error {
		if err := binding.Validate(spec); err != nil {
			return err
		}
		bound, err := binding.Bind(spec, command.NewArguments(c))
		if err != nil {
			return err
		}
		return c.Source().Enqueue(func(ctx context.Context) error {
			_, err := binding.Invoke(ctx, bound)
			return err
		})
	})
}

// RunSuspendLazy defers both resolving the callable and binding it.
// Failures surface from the drain.
func RunSuspendLazy[S any](b *command.Builder[*Bridge[S]], resolve func() (binding.CallSpec, error)) {
	b.Executes(func(c *grammar.Context[*Bridge[S]]) error {
		args := command.NewArguments(c)
		return c.Source().Enqueue(func(ctx context.Context) error {
			spec, err := resolve()
			if err != nil {
				return err
			}
			_, err = binding.Call(ctx, spec, args)
			return err
		})
	})
}

// RedirectSuspend continues at node with the source fn returns. The new
// source records onto the same queue.
func RedirectSuspend[S any](b *command.Builder[*Bridge[S]], node *grammar.Node[*Bridge[S]], fn func(source S, args *command.Arguments) (S, error)) {
	b.RedirectWith(node, func(bridge *Bridge[S], args *command.Arguments) (*Bridge[S], error) {
		source, err := fn(bridge.source, args)
		if err != nil {
			return nil, err
		}
		return bridge.derive(source), nil
	})
}

// ForkSuspend continues at node once per source fn returns. Every branch
// records onto the same queue.
func ForkSuspend[S any](b *command.Builder[*Bridge[S]], node *grammar.Node[*Bridge[S]], fn func(source S, args *command.Arguments) ([]S, error)) {
	b.Fork(node, func(bridge *Bridge[S], args *command.Arguments) ([]*Bridge[S], error) {
		sources, err := fn(bridge.source, args)
		if err != nil {
			return nil, err
		}
		out := make([]*Bridge[S], len(sources))
		for i, s := range sources {
			out[i] = bridge.derive(s)
		}
		return out, nil
	})
}

// MeetSuspend guards the node with a predicate on the wrapped source.
func MeetSuspend[S any](b *command.Builder[*Bridge[S]], pred func(source S) bool) {
	b.Meet(func(bridge *Bridge[S]) bool {
		return pred(bridge.source)
	})
}
