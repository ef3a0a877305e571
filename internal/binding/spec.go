package binding

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Param declares one parameter of a callable or one field of a record.
// An empty Name marks the source slot.
type Param struct {
	Name     string
	Type     reflect.Type
	Optional bool
	Default  any
	Variadic bool
	Generic  bool
	Nullable bool
}

// IsSource reports whether the parameter receives the command source.
func (p Param) IsSource() bool {
	return p.Name == ""
}

// CallSpec is a callable together with its declared parameter table.
type CallSpec struct {
	Name   string
	Params []Param
	Fn     reflect.Value

	Exported bool
	Abstract bool
	Generic  bool
	Property bool
	External bool

	// ctxIndex is the input index of a context.Context parameter plus one.
	ctxIndex int
}

// Func builds a spec from a function value. names gives one name per
// parameter, with "" marking the source slot. A leading context.Context
// parameter is filled with the call context and takes no name.
func Func(fn any, names ...string) (CallSpec, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return CallSpec{}, &CallableNotInvocableError{Reason: fmt.Sprintf("%T is not a function", fn)}
	}

	spec := CallSpec{Fn: v, Exported: true}
	if v.IsNil() {
		spec.Abstract = true
	} else if f := runtime.FuncForPC(v.Pointer()); f != nil {
		spec.Name = f.Name()
	}

	t := v.Type()
	offset := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		spec.ctxIndex = 1
		offset = 1
	}
	params, err := declare(spec.Name, t, offset, names)
	if err != nil {
		return CallSpec{}, err
	}
	spec.Params = params
	return spec, nil
}

// MustFunc is like Func but panics on error.
func MustFunc(fn any, names ...string) CallSpec {
	spec, err := Func(fn, names...)
	if err != nil {
		panic(err)
	}
	return spec
}

// Method builds a spec for the named method of recv's type. The receiver
// is the source slot; names covers the remaining parameters. A
// context.Context directly after the receiver is filled with the call
// context.
func Method(recv any, method string, names ...string) (CallSpec, error) {
	return MethodOf(reflect.TypeOf(recv), method, names...)
}

// MethodOf is like Method but takes the receiver type directly, which
// allows interface types.
func MethodOf(recv reflect.Type, method string, names ...string) (CallSpec, error) {
	if recv == nil {
		return CallSpec{}, &CallableNotInvocableError{Name: method, Reason: "nil receiver type"}
	}
	name := recv.String() + "." + method

	m, ok := recv.MethodByName(method)
	if !ok {
		if r, _ := utf8.DecodeRuneInString(method); !unicode.IsUpper(r) {
			return CallSpec{Name: name}, nil
		}
		return CallSpec{}, &CallableNotInvocableError{Name: name, Reason: "no such method"}
	}

	if recv.Kind() == reflect.Interface {
		// Interface methods have no implementation to call.
		spec := CallSpec{Name: name, Exported: true, Abstract: true}
		params, err := declare(name, m.Type, 0, names)
		if err != nil {
			return CallSpec{}, err
		}
		spec.Params = append([]Param{{Type: recv}}, params...)
		return spec, nil
	}

	spec := CallSpec{Name: name, Fn: m.Func, Exported: true}
	t := m.Type
	offset := 1
	if t.NumIn() > 1 && t.In(1) == contextType {
		spec.ctxIndex = 2
		offset = 2
	}
	params, err := declare(name, t, offset, names)
	if err != nil {
		return CallSpec{}, err
	}
	spec.Params = append([]Param{{Type: recv}}, params...)
	return spec, nil
}

func declare(name string, t reflect.Type, offset int, names []string) ([]Param, error) {
	if got, want := len(names), t.NumIn()-offset; got != want {
		return nil, &CallableNotInvocableError{
			Name:   name,
			Reason: fmt.Sprintf("%d parameter names given for %d parameters", got, want),
		}
	}
	if err := checkResults(t); err != nil {
		return nil, &CallableNotInvocableError{Name: name, Reason: err.Error()}
	}
	params := make([]Param, len(names))
	for i, n := range names {
		in := t.In(offset + i)
		params[i] = Param{
			Name:     n,
			Type:     in,
			Variadic: t.IsVariadic() && offset+i == t.NumIn()-1,
			Nullable: n != "" && nilable(in),
		}
	}
	return params, nil
}

func checkResults(t reflect.Type) error {
	switch t.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if t.Out(1) != errorType {
			return fmt.Errorf("second result must be error, found %s", t.Out(1))
		}
		return nil
	default:
		return fmt.Errorf("%d results, want at most 2", t.NumOut())
	}
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// Optional returns a copy of the spec with the named parameter marked
// optional. A nil def leaves the zero value as the default.
func (s CallSpec) Optional(name string, def any) CallSpec {
	params := append([]Param(nil), s.Params...)
	found := false
	for i := range params {
		if params[i].Name == name && name != "" {
			params[i].Optional = true
			params[i].Default = def
			found = true
		}
	}
	if !found {
		panic(fmt.Sprintf("binding: %s has no parameter %q", s.Name, name))
	}
	s.Params = params
	return s
}

// Param returns the declared parameter with the given name.
func (s CallSpec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Validate reports whether the spec can be invoked at all.
func Validate(spec CallSpec) error {
	fail := func(reason string) error {
		return &CallableNotInvocableError{Name: spec.Name, Reason: reason}
	}
	switch {
	case !spec.Exported:
		return fail("function not accessible")
	case spec.Abstract || !spec.Fn.IsValid() || spec.Fn.Kind() != reflect.Func || spec.Fn.IsNil():
		return fail("function not implemented")
	case spec.Generic:
		return fail("generic function unsupported")
	case spec.Property:
		return fail("property access unsupported")
	case spec.External:
		return fail("external function unsupported")
	}

	sources := 0
	seen := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		if p.IsSource() {
			sources++
			continue
		}
		if seen[p.Name] {
			return fail(fmt.Sprintf("duplicate parameter name %q", p.Name))
		}
		seen[p.Name] = true
		if p.Default != nil && p.Type != nil && !reflect.TypeOf(p.Default).AssignableTo(p.Type) {
			return fail(fmt.Sprintf("default for %q is %T, not assignable to %s", p.Name, p.Default, p.Type))
		}
	}
	if sources > 1 {
		return fail("instance and extension receiver cannot be available at the same time")
	}

	t := spec.Fn.Type()
	want := len(spec.Params)
	if spec.ctxIndex > 0 {
		want++
	}
	if t.NumIn() != want {
		return fail(fmt.Sprintf("function takes %d inputs, parameter table declares %d", t.NumIn(), want))
	}
	j := 0
	for _, p := range spec.Params {
		if j == spec.ctxIndex-1 {
			j++
		}
		switch {
		case p.Type == nil:
			return fail(fmt.Sprintf("parameter %s has no type", paramLabel(p.Name)))
		case !p.Type.AssignableTo(t.In(j)):
			return fail(fmt.Sprintf("parameter %s declared as %s, function takes %s", paramLabel(p.Name), p.Type, t.In(j)))
		}
		j++
	}
	if err := checkResults(t); err != nil {
		return fail(err.Error())
	}
	return nil
}

// lowerCamel maps an exported field name to its default argument name.
func lowerCamel(name string) string {
	runes := []rune(name)
	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return name
	case upper == len(runes):
		return strings.ToLower(name)
	case upper > 1:
		upper--
	}
	for i := 0; i < upper; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
