package grammar

import (
	"fmt"
	"maps"
	"reflect"
)

// StringRange is a half-open byte range of the input.
type StringRange struct {
	Start int
	End   int
}

// IsEmpty reports whether the range covers no input.
func (r StringRange) IsEmpty() bool {
	return r.Start == r.End
}

// Get returns the text covered by the range.
func (r StringRange) Get(input string) string {
	return input[r.Start:r.End]
}

func encompassing(a, b StringRange) StringRange {
	return StringRange{Start: min(a.Start, b.Start), End: max(a.End, b.End)}
}

// ParsedArgument is an argument value and where it was read from.
type ParsedArgument struct {
	Range StringRange
	Value any
}

// ParsedNode is a matched node and the input it consumed.
type ParsedNode[S any] struct {
	Node  *Node[S]
	Range StringRange
}

// Context carries the state of one matched command path.
type Context[S any] struct {
	source    S
	input     string
	arguments map[string]ParsedArgument
	command   Command[S]
	root      *Node[S]
	nodes     []ParsedNode[S]
	rng       StringRange
	child     *Context[S]
	modifier  RedirectModifier[S]
	forks     bool
}

// Source returns the source the command runs for.
func (c *Context[S]) Source() S { return c.source }

// SourceValue returns the source as an untyped value.
func (c *Context[S]) SourceValue() any { return c.source }

// Input returns the full dispatched input.
func (c *Context[S]) Input() string { return c.input }

// Range returns the input range matched by this context.
func (c *Context[S]) Range() StringRange { return c.rng }

// Nodes returns the matched nodes in order.
func (c *Context[S]) Nodes() []ParsedNode[S] { return c.nodes }

// HasNodes reports whether any node was matched.
func (c *Context[S]) HasNodes() bool { return len(c.nodes) > 0 }

// RootNode returns the node the parse started from.
func (c *Context[S]) RootNode() *Node[S] { return c.root }

// Command returns the command to execute, if any.
func (c *Context[S]) Command() Command[S] { return c.command }

// Child returns the context of the redirect continuation, if any.
func (c *Context[S]) Child() *Context[S] { return c.child }

// LastChild returns the innermost redirect continuation, or c itself.
func (c *Context[S]) LastChild() *Context[S] {
	result := c
	for result.child != nil {
		result = result.child
	}
	return result
}

// RedirectModifier returns the modifier of the last matched redirect.
func (c *Context[S]) RedirectModifier() RedirectModifier[S] { return c.modifier }

// IsForked reports whether the matched redirect forks.
func (c *Context[S]) IsForked() bool { return c.forks }

// Arguments returns a copy of the parsed arguments.
func (c *Context[S]) Arguments() map[string]ParsedArgument {
	return maps.Clone(c.arguments)
}

// Argument returns the parsed value of the named argument.
func (c *Context[S]) Argument(name string) (any, error) {
	arg, ok := c.arguments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchArgument, name)
	}
	return arg.Value, nil
}

// CopyFor returns a shallow copy of c bound to a different source.
func (c *Context[S]) CopyFor(source S) *Context[S] {
	cp := *c
	cp.source = source
	return &cp
}

// ArgumentLookup is implemented by contexts that expose named arguments.
type ArgumentLookup interface {
	Argument(name string) (any, error)
}

// Arg returns the named argument converted to T.
func Arg[T any](src ArgumentLookup, name string) (T, error) {
	var zero T
	v, err := src.Argument(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ArgumentTypeError{
			Name:     name,
			Expected: reflect.TypeFor[T](),
			Found:    reflect.TypeOf(v),
		}
	}
	return typed, nil
}

// contextBuilder accumulates parse state for one branch.
type contextBuilder[S any] struct {
	source    S
	root      *Node[S]
	arguments map[string]ParsedArgument
	nodes     []ParsedNode[S]
	command   Command[S]
	child     *contextBuilder[S]
	rng       StringRange
	modifier  RedirectModifier[S]
	forks     bool
}

func newContextBuilder[S any](source S, root *Node[S], start int) *contextBuilder[S] {
	return &contextBuilder[S]{
		source:    source,
		root:      root,
		arguments: make(map[string]ParsedArgument),
		rng:       StringRange{Start: start, End: start},
	}
}

func (b *contextBuilder[S]) copy() *contextBuilder[S] {
	cp := *b
	cp.arguments = maps.Clone(b.arguments)
	cp.nodes = append([]ParsedNode[S](nil), b.nodes...)
	return &cp
}

func (b *contextBuilder[S]) withArgument(name string, arg ParsedArgument) {
	b.arguments[name] = arg
}

func (b *contextBuilder[S]) withNode(n *Node[S], rng StringRange) {
	b.nodes = append(b.nodes, ParsedNode[S]{Node: n, Range: rng})
	b.rng = encompassing(b.rng, rng)
	b.modifier = n.modifier
	b.forks = n.forks
}

func (b *contextBuilder[S]) lastChild() *contextBuilder[S] {
	result := b
	for result.child != nil {
		result = result.child
	}
	return result
}

func (b *contextBuilder[S]) build(input string) *Context[S] {
	c := &Context[S]{
		source:    b.source,
		input:     input,
		arguments: b.arguments,
		command:   b.command,
		root:      b.root,
		nodes:     b.nodes,
		rng:       b.rng,
		modifier:  b.modifier,
		forks:     b.forks,
	}
	if b.child != nil {
		c.child = b.child.build(input)
	}
	return c
}
