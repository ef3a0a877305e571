package grammar

import (
	"strconv"
	"strings"
)

const (
	syntaxEscape      = '\\'
	syntaxDoubleQuote = '"'
	syntaxSingleQuote = '\''
)

// Reader is a cursor over a command input string.
type Reader struct {
	input  string
	cursor int
}

// NewReader creates a reader positioned at the start of input.
func NewReader(input string) *Reader {
	return &Reader{input: input}
}

// Copy returns an independent reader at the same position.
func (r *Reader) Copy() *Reader {
	c := *r
	return &c
}

// String returns the full input.
func (r *Reader) String() string {
	return r.input
}

// Cursor returns the current offset.
func (r *Reader) Cursor() int {
	return r.cursor
}

// SetCursor moves the cursor to an absolute offset.
func (r *Reader) SetCursor(cursor int) {
	r.cursor = cursor
}

// Read returns the consumed part of the input.
func (r *Reader) Read() string {
	return r.input[:r.cursor]
}

// Remaining returns the unconsumed part of the input.
func (r *Reader) Remaining() string {
	return r.input[r.cursor:]
}

// RemainingLen returns the number of unconsumed bytes.
func (r *Reader) RemainingLen() int {
	return len(r.input) - r.cursor
}

// CanRead reports whether at least n more bytes are available.
func (r *Reader) CanRead(n int) bool {
	return r.cursor+n <= len(r.input)
}

// More reports whether at least one more byte is available.
func (r *Reader) More() bool {
	return r.CanRead(1)
}

// Peek returns the byte under the cursor without consuming it.
func (r *Reader) Peek() byte {
	return r.input[r.cursor]
}

// PeekAt returns the byte offset bytes ahead of the cursor.
func (r *Reader) PeekAt(offset int) byte {
	return r.input[r.cursor+offset]
}

// Next consumes and returns the byte under the cursor.
func (r *Reader) Next() byte {
	c := r.input[r.cursor]
	r.cursor++
	return c
}

// Skip advances the cursor by one byte.
func (r *Reader) Skip() {
	r.cursor++
}

// SkipWhitespace advances past spaces.
func (r *Reader) SkipWhitespace() {
	for r.More() && r.Peek() == ' ' {
		r.cursor++
	}
}

func isAllowedNumber(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-'
}

func isQuote(c byte) bool {
	return c == syntaxDoubleQuote || c == syntaxSingleQuote
}

func isAllowedInUnquotedString(c byte) bool {
	return c >= '0' && c <= '9' ||
		c >= 'A' && c <= 'Z' ||
		c >= 'a' && c <= 'z' ||
		c == '_' || c == '-' || c == '.' || c == '+'
}

func (r *Reader) readNumber() string {
	start := r.cursor
	for r.More() && isAllowedNumber(r.Peek()) {
		r.Skip()
	}
	return r.input[start:r.cursor]
}

// ReadInt reads a signed 32-bit integer.
func (r *Reader) ReadInt() (int, error) {
	v, err := r.readSigned("integer", 32)
	return int(v), err
}

// ReadLong reads a signed 64-bit integer.
func (r *Reader) ReadLong() (int64, error) {
	return r.readSigned("long", 64)
}

func (r *Reader) readSigned(kind string, bits int) (int64, error) {
	start := r.cursor
	number := r.readNumber()
	if number == "" {
		return 0, syntaxErrorf(ErrExpectedValue, r, "expected %s", kind)
	}
	v, err := strconv.ParseInt(number, 10, bits)
	if err != nil {
		r.cursor = start
		return 0, syntaxErrorf(ErrInvalidValue, r, "invalid %s '%s'", kind, number)
	}
	return v, nil
}

// ReadFloat reads a 32-bit float.
func (r *Reader) ReadFloat() (float32, error) {
	v, err := r.readFloating("float", 32)
	return float32(v), err
}

// ReadDouble reads a 64-bit float.
func (r *Reader) ReadDouble() (float64, error) {
	return r.readFloating("double", 64)
}

func (r *Reader) readFloating(kind string, bits int) (float64, error) {
	start := r.cursor
	number := r.readNumber()
	if number == "" {
		return 0, syntaxErrorf(ErrExpectedValue, r, "expected %s", kind)
	}
	v, err := strconv.ParseFloat(number, bits)
	if err != nil {
		r.cursor = start
		return 0, syntaxErrorf(ErrInvalidValue, r, "invalid %s '%s'", kind, number)
	}
	return v, nil
}

// ReadUnquotedString reads a run of characters allowed outside quotes.
func (r *Reader) ReadUnquotedString() string {
	start := r.cursor
	for r.More() && isAllowedInUnquotedString(r.Peek()) {
		r.Skip()
	}
	return r.input[start:r.cursor]
}

// ReadQuotedString reads a string enclosed in single or double quotes.
func (r *Reader) ReadQuotedString() (string, error) {
	if !r.More() {
		return "", nil
	}
	next := r.Peek()
	if !isQuote(next) {
		return "", syntaxErrorf(ErrExpectedStartOfQuote, r, "expected quote to start a string")
	}
	r.Skip()
	return r.readStringUntil(next)
}

func (r *Reader) readStringUntil(terminator byte) (string, error) {
	var sb strings.Builder
	escaped := false
	for r.More() {
		c := r.Next()
		switch {
		case escaped:
			if c != terminator && c != syntaxEscape {
				r.cursor--
				return "", syntaxErrorf(ErrInvalidEscape, r, "invalid escape sequence '%c' in quoted string", c)
			}
			sb.WriteByte(c)
			escaped = false
		case c == syntaxEscape:
			escaped = true
		case c == terminator:
			return sb.String(), nil
		default:
			sb.WriteByte(c)
		}
	}
	return "", syntaxErrorf(ErrExpectedEndOfQuote, r, "unclosed quoted string")
}

// ReadString reads either a quoted or an unquoted string.
func (r *Reader) ReadString() (string, error) {
	if !r.More() {
		return "", nil
	}
	next := r.Peek()
	if isQuote(next) {
		r.Skip()
		return r.readStringUntil(next)
	}
	return r.ReadUnquotedString(), nil
}

// ReadBool reads "true" or "false".
func (r *Reader) ReadBool() (bool, error) {
	start := r.cursor
	value, err := r.ReadString()
	if err != nil {
		return false, err
	}
	switch value {
	case "":
		return false, syntaxErrorf(ErrExpectedValue, r, "expected bool")
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		r.cursor = start
		return false, syntaxErrorf(ErrInvalidValue, r, "invalid bool, expected true or false but found '%s'", value)
	}
}
