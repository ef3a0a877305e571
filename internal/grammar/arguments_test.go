package grammar_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/cmdbridge/internal/grammar"
)

func TestArgumentTypesParse(t *testing.T) {
	tests := []struct {
		name  string
		typ   grammar.ArgumentType
		input string
		want  any
	}{
		{"bool", grammar.Bool(), "false", false},
		{"integer", grammar.Integer(-5, 5), "-5", -5},
		{"long", grammar.Long(0, 1<<40), "1099511627776", int64(1 << 40)},
		{"float", grammar.Float(0, 2), "1.25", float32(1.25)},
		{"double", grammar.AnyDouble(), "-3.5", -3.5},
		{"word", grammar.Word(), "abc def", "abc"},
		{"string", grammar.String(), `'a b' c`, "a b"},
		{"greedy", grammar.Greedy(), "a b c", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.Parse(grammar.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
			if reflect.TypeOf(got) != tt.typ.ValueType() {
				t.Errorf("value type %T does not match declared %v", got, tt.typ.ValueType())
			}
		})
	}
}

func TestArgumentTypesRange(t *testing.T) {
	tests := []struct {
		name  string
		typ   grammar.ArgumentType
		input string
	}{
		{"integer low", grammar.Integer(0, 10), "-1"},
		{"integer high", grammar.Integer(0, 10), "11"},
		{"long high", grammar.Long(0, 10), "11"},
		{"float low", grammar.Float(1, 2), "0.5"},
		{"double high", grammar.Double(1, 2), "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := grammar.NewReader(tt.input)
			_, err := tt.typ.Parse(r)
			if !errors.Is(err, grammar.ErrOutOfRange) {
				t.Fatalf("expected ErrOutOfRange, got %v", err)
			}
			if r.Cursor() != 0 {
				t.Errorf("expected cursor reset to 0, got %d", r.Cursor())
			}
		})
	}
}
