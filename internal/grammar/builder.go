package grammar

// Builder assembles a literal or argument node and its subtree.
//
// Builders are not safe for concurrent use. Build may be called more than
// once; each call produces an independent node sharing the built children.
type Builder[S any] struct {
	kind        NodeKind
	name        string
	argType     ArgumentType
	arguments   *Node[S]
	command     Command[S]
	requirement func(S) bool
	target      *Node[S]
	modifier    RedirectModifier[S]
	forks       bool
}

// Literal starts a builder for a node matching the fixed word name.
func Literal[S any](name string) *Builder[S] {
	return &Builder[S]{kind: LiteralNode, name: name, arguments: newNode[S](RootNode, "")}
}

// Argument starts a builder for a node parsing a value of type t.
func Argument[S any](name string, t ArgumentType) *Builder[S] {
	return &Builder[S]{kind: ArgumentNode, name: name, argType: t, arguments: newNode[S](RootNode, "")}
}

// Kind returns the kind of node being built.
func (b *Builder[S]) Kind() NodeKind { return b.kind }

// Name returns the name of the node being built.
func (b *Builder[S]) Name() string { return b.name }

// Then builds child and attaches it.
func (b *Builder[S]) Then(child *Builder[S]) *Builder[S] {
	return b.ThenNode(child.Build())
}

// ThenNode attaches an already built node.
func (b *Builder[S]) ThenNode(child *Node[S]) *Builder[S] {
	if b.target != nil {
		panic(ErrChildOnRedirect)
	}
	b.arguments.AddChild(child)
	return b
}

// Children returns the children attached so far.
func (b *Builder[S]) Children() []*Node[S] {
	return b.arguments.Children()
}

// Executes sets the node's command.
func (b *Builder[S]) Executes(cmd Command[S]) *Builder[S] {
	b.command = cmd
	return b
}

// Command returns the command set so far.
func (b *Builder[S]) Command() Command[S] { return b.command }

// Requires sets the predicate a source must satisfy to use the node.
func (b *Builder[S]) Requires(pred func(S) bool) *Builder[S] {
	b.requirement = pred
	return b
}

// Requirement returns the predicate set so far.
func (b *Builder[S]) Requirement() func(S) bool { return b.requirement }

// Redirect continues parsing at target with the same source.
func (b *Builder[S]) Redirect(target *Node[S]) *Builder[S] {
	return b.Forward(target, nil, false)
}

// RedirectWith continues parsing at target with a mapped source.
func (b *Builder[S]) RedirectWith(target *Node[S], modifier SingleRedirectModifier[S]) *Builder[S] {
	var mod RedirectModifier[S]
	if modifier != nil {
		mod = func(ctx *Context[S]) ([]S, error) {
			source, err := modifier(ctx)
			if err != nil {
				return nil, err
			}
			return []S{source}, nil
		}
	}
	return b.Forward(target, mod, false)
}

// Fork continues parsing at target once for every source the modifier
// produces.
func (b *Builder[S]) Fork(target *Node[S], modifier RedirectModifier[S]) *Builder[S] {
	return b.Forward(target, modifier, true)
}

// Forward sets the redirect target, modifier and fork flag together.
func (b *Builder[S]) Forward(target *Node[S], modifier RedirectModifier[S], fork bool) *Builder[S] {
	if b.arguments.HasChildren() {
		panic(ErrRedirectWithChildren)
	}
	b.target = target
	b.modifier = modifier
	b.forks = fork
	return b
}

// RedirectTarget returns the redirect target set so far.
func (b *Builder[S]) RedirectTarget() *Node[S] { return b.target }

// Build creates the node.
func (b *Builder[S]) Build() *Node[S] {
	n := newNode[S](b.kind, b.name)
	n.argType = b.argType
	n.command = b.command
	n.requirement = b.requirement
	n.redirect = b.target
	n.modifier = b.modifier
	n.forks = b.forks
	for _, child := range b.arguments.Children() {
		n.AddChild(child)
	}
	return n
}
