package grammar

import (
	"errors"
	"fmt"
	"reflect"
)

// Syntax error kinds. A *SyntaxError unwraps to one of these.
var (
	// ErrUnknownCommand indicates no root literal matched the input.
	ErrUnknownCommand = errors.New("grammar: unknown command")

	// ErrUnknownArgument indicates a command matched but its arguments did not.
	ErrUnknownArgument = errors.New("grammar: incorrect argument for command")

	// ErrExpectedSeparator indicates an argument was not followed by a space.
	ErrExpectedSeparator = errors.New("grammar: expected whitespace to end one argument")

	// ErrIncorrectLiteral indicates the next token did not match a literal.
	ErrIncorrectLiteral = errors.New("grammar: incorrect literal")

	// ErrExpectedValue indicates a value was required but the input ended.
	ErrExpectedValue = errors.New("grammar: expected value")

	// ErrInvalidValue indicates a value could not be parsed.
	ErrInvalidValue = errors.New("grammar: invalid value")

	// ErrOutOfRange indicates a numeric value fell outside its bounds.
	ErrOutOfRange = errors.New("grammar: value out of range")

	// ErrExpectedStartOfQuote indicates a quoted string did not open with a quote.
	ErrExpectedStartOfQuote = errors.New("grammar: expected quote to start a string")

	// ErrExpectedEndOfQuote indicates a quoted string was not terminated.
	ErrExpectedEndOfQuote = errors.New("grammar: unclosed quoted string")

	// ErrInvalidEscape indicates an unsupported escape sequence in a quoted string.
	ErrInvalidEscape = errors.New("grammar: invalid escape sequence in quoted string")
)

// Context lookup errors.
var (
	// ErrNoSuchArgument indicates the context holds no argument with the given name.
	ErrNoSuchArgument = errors.New("grammar: no such argument")

	// ErrArgumentType indicates an argument exists but holds a different type.
	ErrArgumentType = errors.New("grammar: argument type mismatch")
)

// Builder misuse. These are programming errors and are raised with panic.
var (
	// ErrRedirectWithChildren indicates a redirect was set on a node that has children.
	ErrRedirectWithChildren = errors.New("grammar: cannot forward a node with children")

	// ErrChildOnRedirect indicates a child was added to a redirected node.
	ErrChildOnRedirect = errors.New("grammar: cannot add children to a redirected node")

	// ErrNotLiteral indicates a non-literal builder was registered at the root.
	ErrNotLiteral = errors.New("grammar: only literal nodes can be registered")
)

// syntaxContextLen is how many characters of input precede the cursor marker.
const syntaxContextLen = 10

// SyntaxError reports a failure to match input against the command tree.
type SyntaxError struct {
	Kind    error
	Message string
	Input   string
	Cursor  int
}

func (e *SyntaxError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Input == "" || e.Cursor < 0 {
		return msg
	}
	return fmt.Sprintf("%s at position %d: %s", msg, e.Cursor, e.context())
}

func (e *SyntaxError) Unwrap() error {
	return e.Kind
}

func (e *SyntaxError) context() string {
	cursor := min(len(e.Input), e.Cursor)
	start := max(0, cursor-syntaxContextLen)
	prefix := ""
	if start > 0 {
		prefix = "..."
	}
	return prefix + e.Input[start:cursor] + "<--[HERE]"
}

func syntaxErrorf(kind error, r *Reader, format string, args ...any) *SyntaxError {
	e := &SyntaxError{Kind: kind, Message: fmt.Sprintf(format, args...), Cursor: -1}
	if r != nil {
		e.Input = r.String()
		e.Cursor = r.Cursor()
	}
	return e
}

// ArgumentTypeError reports an argument lookup with the wrong expected type.
type ArgumentTypeError struct {
	Name     string
	Expected reflect.Type
	Found    reflect.Type
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("argument %q is defined as %s, not %s", e.Name, typeName(e.Found), typeName(e.Expected))
}

func (e *ArgumentTypeError) Unwrap() error {
	return ErrArgumentType
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
