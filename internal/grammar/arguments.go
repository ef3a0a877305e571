package grammar

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ArgumentType parses one argument value from a Reader.
type ArgumentType interface {
	// Parse consumes the argument from r and returns its value.
	Parse(r *Reader) (any, error)

	// ValueType returns the Go type of values produced by Parse.
	ValueType() reflect.Type

	// Examples returns sample inputs accepted by the type.
	Examples() []string
}

// StringKind selects how a string argument consumes input.
type StringKind uint8

const (
	// SingleWord reads one unquoted word.
	SingleWord StringKind = iota
	// QuotablePhrase reads one word or a quoted phrase.
	QuotablePhrase
	// GreedyPhrase reads the rest of the input.
	GreedyPhrase
)

type boolArgument struct{}

// Bool returns an argument type accepting true or false.
func Bool() ArgumentType { return boolArgument{} }

func (boolArgument) Parse(r *Reader) (any, error) { return r.ReadBool() }
func (boolArgument) ValueType() reflect.Type      { return reflect.TypeFor[bool]() }
func (boolArgument) Examples() []string           { return []string{"true", "false"} }

// IntegerArgument accepts a bounded 32-bit integer, produced as int.
type IntegerArgument struct {
	Min, Max int
}

// Integer returns a bounded integer argument type.
func Integer(minimum, maximum int) IntegerArgument {
	return IntegerArgument{Min: minimum, Max: maximum}
}

// AnyInteger returns an integer argument type spanning the 32-bit range.
func AnyInteger() IntegerArgument {
	return Integer(math.MinInt32, math.MaxInt32)
}

func (a IntegerArgument) Parse(r *Reader) (any, error) {
	start := r.Cursor()
	v, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	if v < a.Min || v > a.Max {
		r.SetCursor(start)
		return nil, rangeError(r, "integer", strconv.Itoa(v), strconv.Itoa(a.Min), strconv.Itoa(a.Max), v < a.Min)
	}
	return v, nil
}

func (IntegerArgument) ValueType() reflect.Type { return reflect.TypeFor[int]() }
func (IntegerArgument) Examples() []string      { return []string{"0", "123", "-123"} }

// LongArgument accepts a bounded 64-bit integer.
type LongArgument struct {
	Min, Max int64
}

// Long returns a bounded long argument type.
func Long(minimum, maximum int64) LongArgument {
	return LongArgument{Min: minimum, Max: maximum}
}

// AnyLong returns a long argument type spanning the 64-bit range.
func AnyLong() LongArgument {
	return Long(math.MinInt64, math.MaxInt64)
}

func (a LongArgument) Parse(r *Reader) (any, error) {
	start := r.Cursor()
	v, err := r.ReadLong()
	if err != nil {
		return nil, err
	}
	if v < a.Min || v > a.Max {
		r.SetCursor(start)
		return nil, rangeError(r, "long", strconv.FormatInt(v, 10),
			strconv.FormatInt(a.Min, 10), strconv.FormatInt(a.Max, 10), v < a.Min)
	}
	return v, nil
}

func (LongArgument) ValueType() reflect.Type { return reflect.TypeFor[int64]() }
func (LongArgument) Examples() []string      { return []string{"0", "123", "-123"} }

// FloatArgument accepts a bounded 32-bit float.
type FloatArgument struct {
	Min, Max float32
}

// Float returns a bounded float argument type.
func Float(minimum, maximum float32) FloatArgument {
	return FloatArgument{Min: minimum, Max: maximum}
}

// AnyFloat returns a float argument type spanning all finite float32 values.
func AnyFloat() FloatArgument {
	return Float(-math.MaxFloat32, math.MaxFloat32)
}

func (a FloatArgument) Parse(r *Reader) (any, error) {
	start := r.Cursor()
	v, err := r.ReadFloat()
	if err != nil {
		return nil, err
	}
	if v < a.Min || v > a.Max {
		r.SetCursor(start)
		return nil, rangeError(r, "float", formatFloat(float64(v), 32),
			formatFloat(float64(a.Min), 32), formatFloat(float64(a.Max), 32), v < a.Min)
	}
	return v, nil
}

func (FloatArgument) ValueType() reflect.Type { return reflect.TypeFor[float32]() }
func (FloatArgument) Examples() []string      { return []string{"0", "1.2", ".5", "-1", "-.5", "-1234.56"} }

// DoubleArgument accepts a bounded 64-bit float.
type DoubleArgument struct {
	Min, Max float64
}

// Double returns a bounded double argument type.
func Double(minimum, maximum float64) DoubleArgument {
	return DoubleArgument{Min: minimum, Max: maximum}
}

// AnyDouble returns a double argument type spanning all finite float64 values.
func AnyDouble() DoubleArgument {
	return Double(-math.MaxFloat64, math.MaxFloat64)
}

func (a DoubleArgument) Parse(r *Reader) (any, error) {
	start := r.Cursor()
	v, err := r.ReadDouble()
	if err != nil {
		return nil, err
	}
	if v < a.Min || v > a.Max {
		r.SetCursor(start)
		return nil, rangeError(r, "double", formatFloat(v, 64),
			formatFloat(a.Min, 64), formatFloat(a.Max, 64), v < a.Min)
	}
	return v, nil
}

func (DoubleArgument) ValueType() reflect.Type { return reflect.TypeFor[float64]() }
func (DoubleArgument) Examples() []string      { return []string{"0", "1.2", ".5", "-1", "-.5", "-1234.56"} }

// StringArgument accepts a word, a quotable phrase or the rest of the input.
type StringArgument struct {
	Kind StringKind
}

// Word returns an argument type reading a single unquoted word.
func Word() StringArgument { return StringArgument{Kind: SingleWord} }

// String returns an argument type reading a word or a quoted phrase.
func String() StringArgument { return StringArgument{Kind: QuotablePhrase} }

// Greedy returns an argument type reading the remaining input.
func Greedy() StringArgument { return StringArgument{Kind: GreedyPhrase} }

func (a StringArgument) Parse(r *Reader) (any, error) {
	switch a.Kind {
	case GreedyPhrase:
		text := r.Remaining()
		r.SetCursor(len(r.String()))
		return text, nil
	case SingleWord:
		return r.ReadUnquotedString(), nil
	default:
		return r.ReadString()
	}
}

func (StringArgument) ValueType() reflect.Type { return reflect.TypeFor[string]() }

func (a StringArgument) Examples() []string {
	switch a.Kind {
	case GreedyPhrase:
		return []string{"word", "words with spaces", `"and symbols"`}
	case SingleWord:
		return []string{"word", "words_with_underscores"}
	default:
		return []string{`"quoted phrase"`, "word", `""`}
	}
}

// EscapeIfRequired quotes s when it cannot be read back as an unquoted string.
func EscapeIfRequired(s string) string {
	for i := 0; i < len(s); i++ {
		if !isAllowedInUnquotedString(s[i]) {
			return escape(s)
		}
	}
	return s
}

func escape(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

func rangeError(r *Reader, kind, found, minimum, maximum string, tooLow bool) error {
	if tooLow {
		return syntaxErrorf(ErrOutOfRange, r, "%s must not be less than %s, found %s", kind, minimum, found)
	}
	return syntaxErrorf(ErrOutOfRange, r, "%s must not be more than %s, found %s", kind, maximum, found)
}

func formatFloat(v float64, bits int) string {
	return strconv.FormatFloat(v, 'g', -1, bits)
}
