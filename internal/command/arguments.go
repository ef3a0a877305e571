package command

import (
	"context"
	"reflect"

	"github.com/dshills/cmdbridge/internal/binding"
	"github.com/dshills/cmdbridge/internal/grammar"
)

// Arguments is a source-independent view of a matched command's
// arguments. The typed source stays reachable through Source and the
// binding helpers.
type Arguments struct {
	underlying binding.ArgumentSource
}

// NewArguments wraps a matched context.
func NewArguments(src binding.ArgumentSource) *Arguments {
	return &Arguments{underlying: src}
}

// SourceValue returns the raw source.
func (a *Arguments) SourceValue() any {
	return a.underlying.SourceValue()
}

// Source returns the source with one layer of wrapping removed.
func (a *Arguments) Source() any {
	return binding.UnwrapSource(a.underlying)
}

// Argument returns the named argument.
func (a *Arguments) Argument(name string) (any, error) {
	return a.underlying.Argument(name)
}

// ArgumentOf returns the named argument if its value has type t.
func (a *Arguments) ArgumentOf(name string, t reflect.Type) (any, error) {
	v, err := a.underlying.Argument(name)
	if err != nil {
		return nil, err
	}
	if found := reflect.TypeOf(v); found != t {
		return nil, &grammar.ArgumentTypeError{Name: name, Expected: t, Found: found}
	}
	return v, nil
}

func (a *Arguments) Int(name string) (int, error)         { return Arg[int](a, name) }
func (a *Arguments) Int64(name string) (int64, error)     { return Arg[int64](a, name) }
func (a *Arguments) Float32(name string) (float32, error) { return Arg[float32](a, name) }
func (a *Arguments) Float64(name string) (float64, error) { return Arg[float64](a, name) }
func (a *Arguments) Bool(name string) (bool, error)       { return Arg[bool](a, name) }
func (a *Arguments) String(name string) (string, error)   { return Arg[string](a, name) }

// Unpack binds spec against the arguments without calling it.
func (a *Arguments) Unpack(spec binding.CallSpec) (binding.Bound, error) {
	if err := binding.Validate(spec); err != nil {
		return binding.Bound{}, err
	}
	return binding.Bind(spec, a)
}

// Call binds and invokes spec.
func (a *Arguments) Call(ctx context.Context, spec binding.CallSpec) (any, error) {
	return binding.Call(ctx, spec, a)
}

// Arg returns the named argument as a T.
func Arg[T any](a *Arguments, name string) (T, error) {
	return grammar.Arg[T](a, name)
}

// Construct builds a T record from the arguments.
func Construct[T any](a *Arguments) (T, error) {
	return binding.Construct[T](a)
}
