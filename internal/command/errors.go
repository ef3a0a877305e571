package command

import "errors"

// Builder misuse, raised with panic while a tree is declared.
var (
	// ErrActionAlreadySet indicates a second action was set on one node.
	ErrActionAlreadySet = errors.New("command: node already has an action")

	// ErrRedirectConflict indicates a node was given more than one redirect or fork.
	ErrRedirectConflict = errors.New("command: node already redirects")
)
