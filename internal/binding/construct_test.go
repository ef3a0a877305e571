package binding_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/cmdbridge/internal/binding"
)

type Teleport struct {
	X      int
	Y      int    `arg:"height,optional"`
	Reason string `arg:"-"`
	UserID string
}

type hiddenField struct {
	X int
	y int
}

type Embedded struct {
	Teleport
}

type Duplicate struct {
	A int `arg:"n"`
	B int `arg:"n"`
}

type Box[T any] struct {
	Value T
}

type Crate struct {
	Item Box[int]
}

func TestConstruct(t *testing.T) {
	src := fakeSource{args: map[string]any{"x": 3, "height": 9, "userID": "u1"}}
	got, err := binding.Construct[Teleport](src)
	if err != nil {
		t.Fatalf("Construct failed: %v", err)
	}
	want := Teleport{X: 3, Y: 9, UserID: "u1"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestConstructOptionalOmitted(t *testing.T) {
	got, err := binding.Construct[Teleport](fakeSource{args: map[string]any{"x": 1, "userID": "u"}})
	if err != nil {
		t.Fatalf("Construct failed: %v", err)
	}
	if got.Y != 0 {
		t.Errorf("expected zero Y, got %d", got.Y)
	}
}

func TestConstructMissing(t *testing.T) {
	_, err := binding.Construct[Teleport](fakeSource{args: map[string]any{"x": 1}})
	var missing *binding.MissingRequiredArgumentError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingRequiredArgumentError, got %v", err)
	}
	if missing.Name != "userID" {
		t.Errorf("expected userID, got %q", missing.Name)
	}
}

func TestConstructShapes(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"pointer", reflect.TypeFor[*Teleport]()},
		{"not struct", reflect.TypeFor[int]()},
		{"anonymous", reflect.TypeFor[struct{ X int }]()},
		{"unexported field", reflect.TypeFor[hiddenField]()},
		{"embedded", reflect.TypeFor[Embedded]()},
		{"duplicate", reflect.TypeFor[Duplicate]()},
		{"generic", reflect.TypeFor[Box[int]]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := binding.ConstructType(tt.typ, fakeSource{})
			if !errors.Is(err, binding.ErrUnsupportedTargetShape) {
				t.Errorf("expected ErrUnsupportedTargetShape, got %v", err)
			}
		})
	}
}

func TestRecordParams(t *testing.T) {
	params, err := binding.RecordParams(reflect.TypeFor[Teleport]())
	if err != nil {
		t.Fatalf("RecordParams failed: %v", err)
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	want := []string{"x", "height", "userID"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
	if !params[1].Optional {
		t.Error("expected height to be optional")
	}
}

func TestConstructGenericField(t *testing.T) {
	params, err := binding.RecordParams(reflect.TypeFor[Crate]())
	if err != nil {
		t.Fatalf("RecordParams failed: %v", err)
	}
	if !params[0].Generic {
		t.Fatal("expected item to be marked generic")
	}

	_, err = binding.Construct[Crate](fakeSource{args: map[string]any{"item": Box[int]{Value: 1}}})
	if !errors.Is(err, binding.ErrUnsupportedParameterKind) {
		t.Fatalf("expected ErrUnsupportedParameterKind, got %v", err)
	}
	var kind *binding.UnsupportedParameterKindError
	if !errors.As(err, &kind) || kind.Kind != binding.KindGeneric {
		t.Errorf("expected generic kind, got %v", err)
	}
}
