package command

import (
	"context"
	"math"

	"github.com/dshills/cmdbridge/internal/binding"
	"github.com/dshills/cmdbridge/internal/grammar"
)

// Integer bounds used when a range is not restricted.
const (
	MinInt = math.MinInt32
	MaxInt = math.MaxInt32
)

// Range is an inclusive numeric range.
type Range[T int | int64] struct {
	Min T
	Max T
}

// Builder is a node under construction. Nested configure funcs receive the
// builder explicitly, so nested declarations read top-down.
type Builder[S any] struct {
	underlying *grammar.Builder[S]
	hasAction  bool
	forwarded  bool
}

func newBuilder[S any](underlying *grammar.Builder[S], configure func(*Builder[S])) *Builder[S] {
	b := &Builder[S]{underlying: underlying}
	if configure != nil {
		configure(b)
	}
	return b
}

// Literal creates a builder for a fixed word.
func Literal[S any](name string, configure func(*Builder[S])) *Builder[S] {
	return newBuilder(grammar.Literal[S](name), configure)
}

// Argument creates a builder for an argument of any grammar type.
func Argument[S any](name string, t grammar.ArgumentType, configure func(*Builder[S])) *Builder[S] {
	return newBuilder(grammar.Argument[S](name, t), configure)
}

// Bool creates a builder for a true/false argument.
func Bool[S any](name string, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.Bool(), configure)
}

// Int creates a builder for a bounded integer argument.
func Int[S any](name string, minimum, maximum int, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.Integer(minimum, maximum), configure)
}

// IntRange is Int with the bounds given as a range.
func IntRange[S any](name string, r Range[int], configure func(*Builder[S])) *Builder[S] {
	return Int(name, r.Min, r.Max, configure)
}

// Long creates a builder for a bounded 64-bit integer argument.
func Long[S any](name string, minimum, maximum int64, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.Long(minimum, maximum), configure)
}

// LongRange is Long with the bounds given as a range.
func LongRange[S any](name string, r Range[int64], configure func(*Builder[S])) *Builder[S] {
	return Long(name, r.Min, r.Max, configure)
}

// Float creates a builder for a bounded float32 argument.
func Float[S any](name string, minimum, maximum float32, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.Float(minimum, maximum), configure)
}

// Double creates a builder for a bounded float64 argument.
func Double[S any](name string, minimum, maximum float64, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.Double(minimum, maximum), configure)
}

// Word creates a builder for a single unquoted word.
func Word[S any](name string, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.Word(), configure)
}

// String creates a builder for a word or quoted phrase.
func String[S any](name string, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.String(), configure)
}

// Greedy creates a builder consuming the rest of the input.
func Greedy[S any](name string, configure func(*Builder[S])) *Builder[S] {
	return Argument(name, grammar.Greedy(), configure)
}

// Register declares a root command on d.
func Register[S any](d *grammar.Dispatcher[S], name string, configure func(*Builder[S])) *grammar.Node[S] {
	return d.Register(Literal(name, configure).underlying)
}

// Then applies configure to other, builds it and attaches the result.
func (b *Builder[S]) Then(other *Builder[S], configure func(*Builder[S])) *grammar.Node[S] {
	if configure != nil {
		configure(other)
	}
	built := other.Build()
	b.underlying.ThenNode(built)
	return built
}

// Build creates the grammar node.
func (b *Builder[S]) Build() *grammar.Node[S] {
	return b.underlying.Build()
}

// Name returns the name of the node being built.
func (b *Builder[S]) Name() string {
	return b.underlying.Name()
}

// Literal attaches a literal child configured by configure and returns it.
func (b *Builder[S]) Literal(name string, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Literal(name, configure), nil)
}

// Argument attaches an argument child of type t and returns it.
func (b *Builder[S]) Argument(name string, t grammar.ArgumentType, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Argument(name, t, configure), nil)
}

// Bool attaches a boolean argument child.
func (b *Builder[S]) Bool(name string, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Bool(name, configure), nil)
}

// Int attaches an int argument child bounded by minimum and maximum.
func (b *Builder[S]) Int(name string, minimum, maximum int, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Int(name, minimum, maximum, configure), nil)
}

// IntRange is like Int but takes the bounds as a Range.
func (b *Builder[S]) IntRange(name string, r Range[int], configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(IntRange(name, r, configure), nil)
}

// Long attaches an int64 argument child bounded by minimum and maximum.
func (b *Builder[S]) Long(name string, minimum, maximum int64, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Long(name, minimum, maximum, configure), nil)
}

// LongRange is like Long but takes the bounds as a Range.
func (b *Builder[S]) LongRange(name string, r Range[int64], configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(LongRange(name, r, configure), nil)
}

// Float attaches a float32 argument child bounded by minimum and maximum.
func (b *Builder[S]) Float(name string, minimum, maximum float32, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Float(name, minimum, maximum, configure), nil)
}

// Double attaches a float64 argument child bounded by minimum and maximum.
func (b *Builder[S]) Double(name string, minimum, maximum float64, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Double(name, minimum, maximum, configure), nil)
}

// Word attaches a single-word string argument child.
func (b *Builder[S]) Word(name string, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Word(name, configure), nil)
}

// String attaches a quotable string argument child.
func (b *Builder[S]) String(name string, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(String(name, configure), nil)
}

// Greedy attaches a string argument child that consumes the rest of the input.
func (b *Builder[S]) Greedy(name string, configure func(*Builder[S])) *grammar.Node[S] {
	return b.Then(Greedy(name, configure), nil)
}

// Executes sets the node's action. The engine sees a result of 1 for
// every successful run. A node takes at most one action.
func (b *Builder[S]) Executes(action func(ctx *grammar.Context[S]) error) {
	if b.hasAction {
		panic(ErrActionAlreadySet)
	}
	b.hasAction = true
	b.underlying.Executes(func(ctx *grammar.Context[S]) (int, error) {
		if err := action(ctx); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// Run sets an action receiving the source and the parsed arguments.
func (b *Builder[S]) Run(fn func(source S, args *Arguments) error) {
	b.Executes(func(ctx *grammar.Context[S]) error {
		return fn(ctx.Source(), NewArguments(ctx))
	})
}

// RunFunc sets an action calling spec with parameters bound from the
// parsed arguments. The callable's own result is discarded.
func (b *Builder[S]) RunFunc(spec binding.CallSpec) {
	b.Executes(func(ctx *grammar.Context[S]) error {
		_, err := binding.Call(context.Background(), spec, NewArguments(ctx))
		return err
	})
}

// RunConstruct sets an action receiving the source and a T built from
// the parsed arguments.
func RunConstruct[S, T any](b *Builder[S], fn func(source S, args T) error) {
	b.Executes(func(ctx *grammar.Context[S]) error {
		v, err := binding.Construct[T](NewArguments(ctx))
		if err != nil {
			return err
		}
		return fn(ctx.Source(), v)
	})
}

// Meet guards the node with a predicate on the source.
func (b *Builder[S]) Meet(pred func(source S) bool) {
	b.underlying.Requires(pred)
}

// Redirect continues at node with the same source.
func (b *Builder[S]) Redirect(node *grammar.Node[S]) {
	b.forward()
	b.underlying.Redirect(node)
}

// RedirectWith continues at node with the source fn returns.
func (b *Builder[S]) RedirectWith(node *grammar.Node[S], fn func(source S, args *Arguments) (S, error)) {
	b.forward()
	b.underlying.RedirectWith(node, func(ctx *grammar.Context[S]) (S, error) {
		return fn(ctx.Source(), NewArguments(ctx))
	})
}

// Fork continues at node once for each source fn returns.
func (b *Builder[S]) Fork(node *grammar.Node[S], fn func(source S, args *Arguments) ([]S, error)) {
	b.forward()
	b.underlying.Fork(node, func(ctx *grammar.Context[S]) ([]S, error) {
		return fn(ctx.Source(), NewArguments(ctx))
	})
}

func (b *Builder[S]) forward() {
	if b.forwarded {
		panic(ErrRedirectConflict)
	}
	b.forwarded = true
}
