package grammar

import (
	"slices"
	"strings"
	"sync"
)

const (
	argumentSeparator = ' '
	usageOptionalOpen  = "["
	usageOptionalClose = "]"
	usageRequiredOpen  = "("
	usageRequiredClose = ")"
	usageOr            = "|"
)

// ResultConsumer observes the outcome of every command run and every
// failed redirect during a dispatch.
type ResultConsumer[S any] func(ctx *Context[S], success bool, result int)

// ParseResults is the outcome of matching input against the tree.
type ParseResults[S any] struct {
	context *contextBuilder[S]
	reader  *Reader
	errors  map[*Node[S]]error
}

// Reader returns the reader positioned where matching stopped.
func (p *ParseResults[S]) Reader() *Reader { return p.reader }

// Errors returns the per-node errors of the deepest failed level.
func (p *ParseResults[S]) Errors() map[*Node[S]]error { return p.errors }

// Context builds the matched context for inspection.
func (p *ParseResults[S]) Context() *Context[S] {
	return p.context.build(p.reader.String())
}

// Dispatcher matches input against a command tree and runs the result.
//
// Registration and dispatch may happen from different goroutines.
// Commands run without the dispatcher lock held and may register
// further commands.
type Dispatcher[S any] struct {
	mu       sync.RWMutex
	root     *Node[S]
	consumer ResultConsumer[S]
}

// NewDispatcher creates a dispatcher with an empty root.
func NewDispatcher[S any]() *Dispatcher[S] {
	return &Dispatcher[S]{root: newNode[S](RootNode, "")}
}

// Root returns the root node.
func (d *Dispatcher[S]) Root() *Node[S] { return d.root }

// SetConsumer installs a result consumer.
func (d *Dispatcher[S]) SetConsumer(consumer ResultConsumer[S]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consumer = consumer
}

// Register builds a literal command and merges it into the root.
// It returns the node now stored under the literal's name.
func (d *Dispatcher[S]) Register(b *Builder[S]) *Node[S] {
	if b.Kind() != LiteralNode {
		panic(ErrNotLiteral)
	}
	node := b.Build()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root.AddChild(node)
	return d.root.Child(node.name)
}

// Unregister removes a root command and reports whether it existed.
func (d *Dispatcher[S]) Unregister(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root.RemoveChild(name)
}

// Execute parses and runs input for source.
func (d *Dispatcher[S]) Execute(input string, source S) (int, error) {
	return d.ExecuteParsed(d.Parse(input, source))
}

// Parse matches input against the tree without running anything.
func (d *Dispatcher[S]) Parse(input string, source S) *ParseResults[S] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.parseNodes(d.root, NewReader(input), newContextBuilder(source, d.root, 0))
}

func (d *Dispatcher[S]) parseNodes(node *Node[S], original *Reader, soFar *contextBuilder[S]) *ParseResults[S] {
	source := soFar.source
	var errs map[*Node[S]]error
	var potentials []*ParseResults[S]
	cursor := original.Cursor()

	for _, child := range node.relevantNodes(original) {
		if !child.CanUse(source) {
			continue
		}
		ctx := soFar.copy()
		r := original.Copy()
		err := child.parse(r, ctx)
		if err == nil && r.More() && r.Peek() != argumentSeparator {
			err = syntaxErrorf(ErrExpectedSeparator, r, "expected whitespace to end one argument, but found trailing data")
		}
		if err != nil {
			if errs == nil {
				errs = make(map[*Node[S]]error)
			}
			errs[child] = err
			r.SetCursor(cursor)
			continue
		}

		ctx.command = child.command
		need := 2
		if child.redirect != nil {
			need = 1
		}
		if !r.CanRead(need) {
			potentials = append(potentials, &ParseResults[S]{context: ctx, reader: r})
			continue
		}
		r.Skip()
		if child.redirect != nil {
			childCtx := newContextBuilder(source, child.redirect, r.Cursor())
			parse := d.parseNodes(child.redirect, r, childCtx)
			ctx.child = parse.context
			return &ParseResults[S]{context: ctx, reader: parse.reader, errors: parse.errors}
		}
		potentials = append(potentials, d.parseNodes(child, r, ctx))
	}

	if len(potentials) == 0 {
		return &ParseResults[S]{context: soFar, reader: original, errors: errs}
	}
	slices.SortStableFunc(potentials, comparePotentials[S])
	return potentials[0]
}

// comparePotentials prefers fully consumed input, then error-free parses.
func comparePotentials[S any](a, b *ParseResults[S]) int {
	aMore, bMore := a.reader.More(), b.reader.More()
	switch {
	case aMore && !bMore:
		return 1
	case !aMore && bMore:
		return -1
	}
	aErr, bErr := len(a.errors) > 0, len(b.errors) > 0
	switch {
	case !aErr && bErr:
		return -1
	case aErr && !bErr:
		return 1
	}
	return 0
}

// ExecuteParsed runs a previous parse.
//
// Without a fork the first command error is returned and the result is
// the sum of command results. Inside a fork, branch errors are reported to
// the consumer and swallowed, and the result is the number of branches
// that succeeded.
func (d *Dispatcher[S]) ExecuteParsed(parse *ParseResults[S]) (int, error) {
	if parse.reader.More() {
		return 0, parseFailure(parse)
	}

	d.mu.RLock()
	consumer := d.consumer
	d.mu.RUnlock()
	notify := func(ctx *Context[S], success bool, result int) {
		if consumer != nil {
			consumer(ctx, success, result)
		}
	}

	result := 0
	successfulForks := 0
	forked := false
	foundCommand := false
	original := parse.context.build(parse.reader.String())
	contexts := []*Context[S]{original}

	for len(contexts) > 0 {
		var next []*Context[S]
		for _, ctx := range contexts {
			child := ctx.child
			if child != nil {
				forked = forked || ctx.forks
				if !child.HasNodes() {
					continue
				}
				foundCommand = true
				if ctx.modifier == nil {
					next = append(next, child.CopyFor(ctx.source))
					continue
				}
				sources, err := ctx.modifier(ctx)
				if err != nil {
					notify(ctx, false, 0)
					if !forked {
						return 0, err
					}
					continue
				}
				for _, source := range sources {
					next = append(next, child.CopyFor(source))
				}
				continue
			}
			if ctx.command == nil {
				continue
			}
			foundCommand = true
			value, err := ctx.command(ctx)
			if err != nil {
				notify(ctx, false, 0)
				if !forked {
					return 0, err
				}
				continue
			}
			result += value
			notify(ctx, true, value)
			successfulForks++
		}
		contexts = next
	}

	if !foundCommand {
		notify(original, false, 0)
		return 0, syntaxErrorf(ErrUnknownCommand, parse.reader, "unknown command")
	}
	if forked {
		return successfulForks, nil
	}
	return result, nil
}

func parseFailure[S any](parse *ParseResults[S]) error {
	if len(parse.errors) == 1 {
		for _, err := range parse.errors {
			return err
		}
	}
	if parse.context.rng.IsEmpty() {
		return syntaxErrorf(ErrUnknownCommand, parse.reader, "unknown command")
	}
	return syntaxErrorf(ErrUnknownArgument, parse.reader, "incorrect argument for command")
}

// Path returns the names leading from the root to target, or nil.
func (d *Dispatcher[S]) Path(target *Node[S]) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var found []string
	var walk func(n *Node[S], path []string) bool
	walk = func(n *Node[S], path []string) bool {
		if n == target {
			found = slices.Clone(path)
			return true
		}
		for _, child := range n.Children() {
			if walk(child, append(path, child.name)) {
				return true
			}
		}
		return false
	}
	walk(d.root, nil)
	return found
}

// FindNode follows path from the root and returns the node, or nil.
func (d *Dispatcher[S]) FindNode(path ...string) *Node[S] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := d.root
	for _, name := range path {
		n = n.Child(name)
		if n == nil {
			return nil
		}
	}
	return n
}

// AllUsage lists every executable path below node. With restricted set,
// branches the source cannot use are left out.
func (d *Dispatcher[S]) AllUsage(node *Node[S], source S, restricted bool) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var result []string
	d.allUsage(node, source, &result, "", restricted)
	return result
}

func (d *Dispatcher[S]) allUsage(node *Node[S], source S, result *[]string, prefix string, restricted bool) {
	if restricted && !node.CanUse(source) {
		return
	}
	if node.command != nil {
		*result = append(*result, prefix)
	}
	if node.redirect != nil {
		redirect := d.redirectUsage(node.redirect)
		if prefix == "" {
			*result = append(*result, node.UsageText()+" "+redirect)
		} else {
			*result = append(*result, prefix+" "+redirect)
		}
		return
	}
	for _, child := range node.Children() {
		next := child.UsageText()
		if prefix != "" {
			next = prefix + " " + next
		}
		d.allUsage(child, source, result, next, restricted)
	}
}

func (d *Dispatcher[S]) redirectUsage(target *Node[S]) string {
	if target == d.root {
		return "..."
	}
	return "-> " + target.UsageText()
}

// SmartUsage returns a condensed usage line for each usable child of
// node, keyed by child name.
func (d *Dispatcher[S]) SmartUsage(node *Node[S], source S) map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make(map[string]string)
	optional := node.command != nil
	for _, child := range node.Children() {
		if usage, ok := d.smartUsage(child, source, optional, false); ok {
			result[child.name] = usage
		}
	}
	return result
}

func (d *Dispatcher[S]) smartUsage(node *Node[S], source S, optional, deep bool) (string, bool) {
	if !node.CanUse(source) {
		return "", false
	}
	self := node.UsageText()
	if optional {
		self = usageOptionalOpen + self + usageOptionalClose
	}
	if deep {
		return self, true
	}
	if node.redirect != nil {
		return self + " " + d.redirectUsage(node.redirect), true
	}

	childOptional := node.command != nil
	var children []*Node[S]
	for _, child := range node.Children() {
		if child.CanUse(source) {
			children = append(children, child)
		}
	}
	switch {
	case len(children) == 1:
		if usage, ok := d.smartUsage(children[0], source, childOptional, childOptional); ok {
			return self + " " + usage, true
		}
	case len(children) > 1:
		distinct := make(map[string]struct{})
		var first string
		for _, child := range children {
			if usage, ok := d.smartUsage(child, source, childOptional, true); ok {
				if len(distinct) == 0 {
					first = usage
				}
				distinct[usage] = struct{}{}
			}
		}
		if len(distinct) == 1 {
			if childOptional {
				first = usageOptionalOpen + first + usageOptionalClose
			}
			return self + " " + first, true
		}
		if len(distinct) > 1 {
			open, closing := usageRequiredOpen, usageRequiredClose
			if childOptional {
				open, closing = usageOptionalOpen, usageOptionalClose
			}
			names := make([]string, 0, len(children))
			for _, child := range children {
				names = append(names, child.UsageText())
			}
			return self + " " + open + strings.Join(names, usageOr) + closing, true
		}
	}
	return self, true
}
