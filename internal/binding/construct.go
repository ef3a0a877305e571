package binding

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const argTag = "arg"

// record holds a derived parameter table and the field index of each
// parameter.
type record struct {
	spec   CallSpec
	fields []int
}

// records caches the parameter table derived for each record type.
var records sync.Map // reflect.Type -> *record

// Construct builds a T from the arguments in src. T must be a named
// struct whose fields are all exported. Each field is filled from the
// argument named by its `arg` tag, or by its lower-camel field name.
// A tag of "name,optional" makes the argument optional; "-" skips the
// field.
func Construct[T any](src ArgumentSource) (T, error) {
	var zero T
	v, err := ConstructType(reflect.TypeFor[T](), src)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// ConstructType is like Construct but takes the target type at run time.
func ConstructType(t reflect.Type, src ArgumentSource) (any, error) {
	rec, err := recordOf(t)
	if err != nil {
		return nil, err
	}
	b, err := Bind(rec.spec, src)
	if err != nil {
		return nil, err
	}
	out := reflect.New(t).Elem()
	for i, f := range rec.fields {
		v, ok := b.Values[i]
		if !ok || v == nil {
			continue
		}
		out.Field(f).Set(reflect.ValueOf(v))
	}
	return out.Interface(), nil
}

// RecordParams returns the parameter table Construct uses for t.
func RecordParams(t reflect.Type) ([]Param, error) {
	rec, err := recordOf(t)
	if err != nil {
		return nil, err
	}
	return append([]Param(nil), rec.spec.Params...), nil
}

func recordOf(t reflect.Type) (*record, error) {
	if t == nil {
		return nil, &UnsupportedTargetShapeError{Reason: "nil type"}
	}
	if cached, ok := records.Load(t); ok {
		return cached.(*record), nil
	}
	rec, err := buildRecord(t)
	if err != nil {
		return nil, err
	}
	actual, _ := records.LoadOrStore(t, rec)
	return actual.(*record), nil
}

func buildRecord(t reflect.Type) (*record, error) {
	shape := func(format string, args ...any) error {
		return &UnsupportedTargetShapeError{Type: t, Reason: fmt.Sprintf(format, args...)}
	}
	switch {
	case t.Kind() != reflect.Struct:
		return nil, shape("not a struct")
	case t.Name() == "":
		return nil, shape("anonymous struct")
	case isInstantiated(t):
		return nil, shape("generic type unsupported")
	}

	rec := &record{spec: CallSpec{Name: t.String(), Exported: true}}
	seen := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			return nil, shape("embedded field %s unsupported", f.Name)
		}
		if !f.IsExported() {
			return nil, shape("field %s is not exported", f.Name)
		}
		name, optional, skip := parseArgTag(f.Tag.Get(argTag))
		if skip {
			continue
		}
		if name == "" {
			name = lowerCamel(f.Name)
		}
		if other, dup := seen[name]; dup {
			return nil, shape("fields %s and %s both bind argument %q", other, f.Name, name)
		}
		seen[name] = f.Name

		p := Param{
			Name:     name,
			Type:     f.Type,
			Optional: optional,
			Generic:  isInstantiated(f.Type),
			Nullable: nilable(f.Type),
		}
		rec.spec.Params = append(rec.spec.Params, p)
		rec.fields = append(rec.fields, i)
	}
	return rec, nil
}

func parseArgTag(tag string) (name string, optional, skip bool) {
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	for opt := range strings.SplitSeq(opts, ",") {
		if strings.TrimSpace(opt) == "optional" {
			optional = true
		}
	}
	return strings.TrimSpace(name), optional, false
}

// isInstantiated reports whether t is an instantiation of a generic type.
func isInstantiated(t reflect.Type) bool {
	return strings.Contains(t.Name(), "[")
}
