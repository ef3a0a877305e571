package binding

import (
	"errors"
	"fmt"
	"reflect"
)

// Binding errors. Each typed error below unwraps to one of these.
var (
	// ErrUnsupportedParameterKind indicates a variadic, generic or nullable parameter.
	ErrUnsupportedParameterKind = errors.New("binding: unsupported parameter kind")

	// ErrReceiverTypeMismatch indicates the source cannot fill the source slot.
	ErrReceiverTypeMismatch = errors.New("binding: receiver type mismatch")

	// ErrMissingRequiredArgument indicates a required parameter has no argument.
	ErrMissingRequiredArgument = errors.New("binding: missing required argument")

	// ErrArgumentTypeMismatch indicates an argument cannot be assigned to its parameter.
	ErrArgumentTypeMismatch = errors.New("binding: argument type mismatch")

	// ErrUnsupportedTargetShape indicates a construction target is not a plain record.
	ErrUnsupportedTargetShape = errors.New("binding: unsupported target shape")

	// ErrCallableNotInvocable indicates a call spec fails validation.
	ErrCallableNotInvocable = errors.New("binding: callable not invocable")
)

// ParamKind names a parameter shape the binder refuses.
type ParamKind string

const (
	KindVariadic ParamKind = "variadic"
	KindGeneric  ParamKind = "generic"
	KindNullable ParamKind = "nullable"
)

// UnsupportedParameterKindError reports a parameter the binder cannot fill.
type UnsupportedParameterKindError struct {
	Name string
	Kind ParamKind
}

func (e *UnsupportedParameterKindError) Error() string {
	return fmt.Sprintf("binding: %s parameter %s unsupported", e.Kind, paramLabel(e.Name))
}

func (e *UnsupportedParameterKindError) Unwrap() error { return ErrUnsupportedParameterKind }

// ReceiverTypeMismatchError reports a source of the wrong type.
type ReceiverTypeMismatchError struct {
	Expected reflect.Type
	Found    reflect.Type
}

func (e *ReceiverTypeMismatchError) Error() string {
	return fmt.Sprintf("binding: receiver must be %s, found %s", typeName(e.Expected), typeName(e.Found))
}

func (e *ReceiverTypeMismatchError) Unwrap() error { return ErrReceiverTypeMismatch }

// MissingRequiredArgumentError reports a required parameter with no argument.
type MissingRequiredArgumentError struct {
	Name     string
	Expected reflect.Type
}

func (e *MissingRequiredArgumentError) Error() string {
	return fmt.Sprintf("binding: missing required argument '%s: %s'", e.Name, typeName(e.Expected))
}

func (e *MissingRequiredArgumentError) Unwrap() error { return ErrMissingRequiredArgument }

// ArgumentTypeMismatchError reports an argument of the wrong type.
type ArgumentTypeMismatchError struct {
	Name     string
	Expected reflect.Type
	Found    reflect.Type
}

func (e *ArgumentTypeMismatchError) Error() string {
	return fmt.Sprintf("binding: the type of '%s' mismatched, expected %s, found %s",
		e.Name, typeName(e.Expected), typeName(e.Found))
}

func (e *ArgumentTypeMismatchError) Unwrap() error { return ErrArgumentTypeMismatch }

// UnsupportedTargetShapeError reports a type that cannot be constructed from arguments.
type UnsupportedTargetShapeError struct {
	Type   reflect.Type
	Reason string
}

func (e *UnsupportedTargetShapeError) Error() string {
	return fmt.Sprintf("binding: cannot construct %s: %s", typeName(e.Type), e.Reason)
}

func (e *UnsupportedTargetShapeError) Unwrap() error { return ErrUnsupportedTargetShape }

// CallableNotInvocableError reports a call spec that fails validation.
type CallableNotInvocableError struct {
	Name   string
	Reason string
}

func (e *CallableNotInvocableError) Error() string {
	name := e.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("binding: %s is not invocable: %s", name, e.Reason)
}

func (e *CallableNotInvocableError) Unwrap() error { return ErrCallableNotInvocable }

func paramLabel(name string) string {
	if name == "" {
		return "receiver"
	}
	return "'" + name + "'"
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
