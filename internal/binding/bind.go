package binding

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/dshills/cmdbridge/internal/grammar"
)

// ArgumentSource exposes the source and named arguments of a matched
// command.
type ArgumentSource interface {
	SourceValue() any
	Argument(name string) (any, error)
}

// SourceUnwrapper is implemented by sources that wrap the value a source
// slot should receive.
type SourceUnwrapper interface {
	UnwrapSource() any
}

type placeholder uint8

const (
	sourcePlaceholder placeholder = iota + 1
	omitPlaceholder
)

// Bound is a spec together with the values chosen for its parameters.
// Omitted optional parameters have no entry in Values.
type Bound struct {
	Spec   CallSpec
	Values map[int]any
}

// Lookup returns the value bound to the named parameter.
func (b Bound) Lookup(name string) (any, bool) {
	for i, p := range b.Spec.Params {
		if p.Name == name {
			v, ok := b.Values[i]
			return v, ok
		}
	}
	return nil, false
}

// UnwrapSource returns the source value behind src, looking through one
// layer of SourceUnwrapper.
func UnwrapSource(src ArgumentSource) any {
	v := src.SourceValue()
	if u, ok := v.(SourceUnwrapper); ok {
		return u.UnwrapSource()
	}
	return v
}

// Bind matches every declared parameter of spec against src.
func Bind(spec CallSpec, src ArgumentSource) (Bound, error) {
	values := make(map[int]any, len(spec.Params))
	for i, p := range spec.Params {
		v, err := bindParam(p, src)
		if err != nil {
			return Bound{}, err
		}
		values[i] = v
	}

	var source any
	resolved := false
	for i, v := range values {
		switch v {
		case sourcePlaceholder:
			if !resolved {
				source = UnwrapSource(src)
				resolved = true
			}
			values[i] = source
		case omitPlaceholder:
			delete(values, i)
		}
	}
	return Bound{Spec: spec, Values: values}, nil
}

func bindParam(p Param, src ArgumentSource) (any, error) {
	switch {
	case p.Variadic:
		return nil, &UnsupportedParameterKindError{Name: p.Name, Kind: KindVariadic}
	case p.Generic:
		return nil, &UnsupportedParameterKindError{Name: p.Name, Kind: KindGeneric}
	case p.Nullable:
		return nil, &UnsupportedParameterKindError{Name: p.Name, Kind: KindNullable}
	}

	if p.IsSource() {
		found := reflect.TypeOf(UnwrapSource(src))
		if !assignable(found, p.Type) {
			return nil, &ReceiverTypeMismatchError{Expected: p.Type, Found: found}
		}
		return sourcePlaceholder, nil
	}

	v, err := src.Argument(p.Name)
	if errors.Is(err, grammar.ErrNoSuchArgument) {
		if !p.Optional {
			return nil, &MissingRequiredArgumentError{Name: p.Name, Expected: p.Type}
		}
		return omitPlaceholder, nil
	}
	if err != nil {
		return nil, fmt.Errorf("binding: argument %q: %w", p.Name, err)
	}
	if found := reflect.TypeOf(v); !assignable(found, p.Type) {
		return nil, &ArgumentTypeMismatchError{Name: p.Name, Expected: p.Type, Found: found}
	}
	return v, nil
}

// assignable treats a nil value as assignable only to nilable types.
func assignable(found, expected reflect.Type) bool {
	if expected == nil {
		return true
	}
	if found == nil {
		return nilable(expected) || expected.Kind() == reflect.Interface
	}
	return found.AssignableTo(expected)
}

// Invoke calls the bound spec. Omitted parameters receive their declared
// default or the zero value of their type. A trailing error result is
// returned as the error.
func Invoke(ctx context.Context, b Bound) (any, error) {
	spec := b.Spec
	t := spec.Fn.Type()
	in := make([]reflect.Value, 0, t.NumIn())
	for i, p := range spec.Params {
		if spec.ctxIndex > 0 && len(in) == spec.ctxIndex-1 {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		in = append(in, paramValue(p, b.Values, i))
	}
	if spec.ctxIndex > 0 && len(in) == spec.ctxIndex-1 {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}

	out := spec.Fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func paramValue(p Param, values map[int]any, i int) reflect.Value {
	v, ok := values[i]
	if !ok {
		v = p.Default
	}
	if v == nil {
		return reflect.Zero(p.Type)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != p.Type {
		converted := reflect.New(p.Type).Elem()
		converted.Set(rv)
		return converted
	}
	return rv
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// Call validates spec, binds it against src and invokes it.
func Call(ctx context.Context, spec CallSpec, src ArgumentSource) (any, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	b, err := Bind(spec, src)
	if err != nil {
		return nil, err
	}
	return Invoke(ctx, b)
}
