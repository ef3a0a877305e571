// Package grammar implements a tree-structured command grammar and dispatcher.
//
// A command tree is made of literal nodes ("tp", "give") and typed argument
// nodes ("<x:int>", "<target:word>"). Input is matched against the tree one
// space-separated token at a time; the deepest successful branch wins and the
// command attached to its last node is executed with a Context carrying the
// parsed arguments and the caller supplied source value.
//
// # Building
//
//	d := grammar.NewDispatcher[*Player]()
//	d.Register(grammar.Literal[*Player]("tp").
//	    Then(grammar.Argument[*Player]("x", grammar.Integer(0, 1000)).
//	        Executes(func(ctx *grammar.Context[*Player]) (int, error) {
//	            x, err := grammar.Arg[int](ctx, "x")
//	            ...
//	        })))
//
// # Redirects and forks
//
// A node may redirect its continuation to another node (often the root),
// optionally mapping the source first. A forking redirect may map one source
// to many; the continuation then runs once per produced source and the
// dispatch result is the number of successful branches.
//
// # Sources
//
// The source type S is opaque to the dispatcher. It is threaded through
// requirement predicates, redirect modifiers and commands unchanged.
package grammar
