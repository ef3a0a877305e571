package grammar

import (
	"github.com/tidwall/btree"
)

// NodeKind identifies the role of a node in the command tree.
type NodeKind uint8

const (
	// RootNode is the unnamed node at the top of a dispatcher.
	RootNode NodeKind = iota
	// LiteralNode matches a fixed word.
	LiteralNode
	// ArgumentNode parses a typed value.
	ArgumentNode
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case RootNode:
		return "root"
	case LiteralNode:
		return "literal"
	case ArgumentNode:
		return "argument"
	default:
		return "unknown"
	}
}

// Command is the action attached to a node. Its integer result is summed
// across a dispatch.
type Command[S any] func(ctx *Context[S]) (int, error)

// RedirectModifier maps the current source to the sources the redirect
// target continues with.
type RedirectModifier[S any] func(ctx *Context[S]) ([]S, error)

// SingleRedirectModifier maps the current source to exactly one source.
type SingleRedirectModifier[S any] func(ctx *Context[S]) (S, error)

// Node is one element of a command tree.
type Node[S any] struct {
	kind        NodeKind
	name        string
	argType     ArgumentType
	command     Command[S]
	requirement func(S) bool
	redirect    *Node[S]
	modifier    RedirectModifier[S]
	forks       bool

	// children are keyed by childKey so literals sort before arguments.
	children *btree.Map[string, *Node[S]]
	literals int
}

func newNode[S any](kind NodeKind, name string) *Node[S] {
	return &Node[S]{
		kind:     kind,
		name:     name,
		children: btree.NewMap[string, *Node[S]](0),
	}
}

func childKey(kind NodeKind, name string) string {
	if kind == LiteralNode {
		return "0" + name
	}
	return "1" + name
}

// Kind returns the node kind.
func (n *Node[S]) Kind() NodeKind { return n.kind }

// Name returns the literal text or argument name. The root has no name.
func (n *Node[S]) Name() string { return n.name }

// Type returns the argument type of an argument node, nil otherwise.
func (n *Node[S]) Type() ArgumentType { return n.argType }

// Command returns the node's action, if any.
func (n *Node[S]) Command() Command[S] { return n.command }

// Redirect returns the redirect target, if any.
func (n *Node[S]) Redirect() *Node[S] { return n.redirect }

// RedirectModifier returns the redirect source mapper, if any.
func (n *Node[S]) RedirectModifier() RedirectModifier[S] { return n.modifier }

// IsFork reports whether the redirect forks.
func (n *Node[S]) IsFork() bool { return n.forks }

// CanUse reports whether source satisfies the node's requirement.
func (n *Node[S]) CanUse(source S) bool {
	return n.requirement == nil || n.requirement(source)
}

// UsageText returns the literal text, or <name> for arguments.
func (n *Node[S]) UsageText() string {
	if n.kind == ArgumentNode {
		return "<" + n.name + ">"
	}
	return n.name
}

// Children returns the children, literals first, each group sorted by name.
func (n *Node[S]) Children() []*Node[S] {
	out := make([]*Node[S], 0, n.children.Len())
	n.children.Scan(func(_ string, child *Node[S]) bool {
		out = append(out, child)
		return true
	})
	return out
}

// Child returns the child with the given name.
func (n *Node[S]) Child(name string) *Node[S] {
	if child, ok := n.children.Get(childKey(LiteralNode, name)); ok {
		return child
	}
	if child, ok := n.children.Get(childKey(ArgumentNode, name)); ok {
		return child
	}
	return nil
}

// HasChildren reports whether the node has any children.
func (n *Node[S]) HasChildren() bool {
	return n.children.Len() > 0
}

// AddChild merges child into n. A child with the same name absorbs the
// new node's command and grandchildren.
func (n *Node[S]) AddChild(child *Node[S]) {
	if child.kind == RootNode {
		panic("grammar: cannot add a root node as a child")
	}
	key := childKey(child.kind, child.name)
	existing, ok := n.children.Get(key)
	if !ok {
		n.children.Set(key, child)
		if child.kind == LiteralNode {
			n.literals++
		}
		return
	}
	if child.command != nil {
		existing.command = child.command
	}
	for _, grandchild := range child.Children() {
		existing.AddChild(grandchild)
	}
}

// RemoveChild removes the named child and reports whether it existed.
func (n *Node[S]) RemoveChild(name string) bool {
	if _, ok := n.children.Delete(childKey(LiteralNode, name)); ok {
		n.literals--
		return true
	}
	_, ok := n.children.Delete(childKey(ArgumentNode, name))
	return ok
}

// relevantNodes returns the children worth trying at the reader's position.
// A literal matching the next word hides every argument child.
func (n *Node[S]) relevantNodes(r *Reader) []*Node[S] {
	if n.literals == 0 {
		return n.Children()
	}
	cursor := r.Cursor()
	for r.More() && r.Peek() != ' ' {
		r.Skip()
	}
	word := r.String()[cursor:r.Cursor()]
	r.SetCursor(cursor)
	if literal, ok := n.children.Get(childKey(LiteralNode, word)); ok {
		return []*Node[S]{literal}
	}
	out := make([]*Node[S], 0, n.children.Len()-n.literals)
	n.children.Ascend("1", func(_ string, child *Node[S]) bool {
		out = append(out, child)
		return true
	})
	return out
}

// parse consumes this node's token from r and records it on b.
func (n *Node[S]) parse(r *Reader, b *contextBuilder[S]) error {
	start := r.Cursor()
	switch n.kind {
	case LiteralNode:
		end := n.matchLiteral(r)
		if end < 0 {
			return syntaxErrorf(ErrIncorrectLiteral, r, "incorrect literal for command, expected '%s'", n.name)
		}
		b.withNode(n, StringRange{Start: start, End: end})
		return nil
	case ArgumentNode:
		value, err := n.argType.Parse(r)
		if err != nil {
			return err
		}
		rng := StringRange{Start: start, End: r.Cursor()}
		b.withArgument(n.name, ParsedArgument{Range: rng, Value: value})
		b.withNode(n, rng)
		return nil
	default:
		return nil
	}
}

func (n *Node[S]) matchLiteral(r *Reader) int {
	start := r.Cursor()
	if !r.CanRead(len(n.name)) {
		return -1
	}
	end := start + len(n.name)
	if r.String()[start:end] != n.name {
		return -1
	}
	r.SetCursor(end)
	if !r.More() || r.Peek() == ' ' {
		return end
	}
	r.SetCursor(start)
	return -1
}
