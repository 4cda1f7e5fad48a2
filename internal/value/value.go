// Package value defines the typed values carried by entity attributes and
// produced by query expressions.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindReal
	KindString
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// DateTimeLayout is the canonical text form of datetime values.
const DateTimeLayout = "2006-01-02 15:04:05"

// Value is an immutable, dynamically typed value. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Null is the sentinel for a missing or undefined value.
var Null = Value{}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Real returns a floating point value.
func Real(v float64) Value { return Value{kind: KindReal, f: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// DateTime returns a datetime value.
func DateTime(v time.Time) Value { return Value{kind: KindDateTime, t: v} }

// Bool returns Int(1) for true and Int(0) for false.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) IsNumber() bool   { return v.kind == KindInt || v.kind == KindReal }
func (v Value) AsInt() int64     { return v.i }
func (v Value) AsString() string { return v.s }
func (v Value) AsTime() time.Time {
	return v.t
}

// AsReal returns the value as a float. Integers are converted.
func (v Value) AsReal() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Truthy reports whether v counts as true in a WHERE clause. Null is never
// truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInt:
		return v.i != 0
	case KindReal:
		return v.f != 0 && !math.IsNaN(v.f)
	case KindString:
		return v.s != ""
	case KindDateTime:
		return true
	default:
		return false
	}
}

// String renders the value for display. Strings are not quoted.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindDateTime:
		return v.t.Format(DateTimeLayout)
	default:
		return "null"
	}
}

// Literal renders the value as query language source text.
func (v Value) Literal() string {
	switch v.kind {
	case KindString:
		return Quote(v.s)
	case KindReal:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case KindDateTime:
		return fmt.Sprintf("datetime(%s)", Quote(v.t.Format(DateTimeLayout)))
	default:
		return v.String()
	}
}

// Quote renders s as a double-quoted query string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// Equal reports whether a and b are the same value. Integers and reals with
// the same numeric value are equal. Null equals Null.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Compare orders two values of comparable kinds. ok is false when the kinds
// cannot be compared (e.g. a string and a number) or either side is null.
func Compare(a, b Value) (c int, ok bool) {
	if a.IsNull() && b.IsNull() {
		return 0, true
	}
	if a.IsNull() || b.IsNull() {
		return 0, false
	}
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmpOrdered(a.i, b.i), true
	case a.IsNumber() && b.IsNumber():
		return cmpOrdered(a.AsReal(), b.AsReal()), true
	case a.kind == KindString && b.kind == KindString:
		return strings.Compare(a.s, b.s), true
	case a.kind == KindDateTime && b.kind == KindDateTime:
		return a.t.Compare(b.t), true
	}
	return 0, false
}

// Order is a total order over all values used for sorting: null first, then
// numbers, strings and datetimes.
func Order(a, b Value) int {
	if c, ok := Compare(a, b); ok {
		return c
	}
	return cmpOrdered(rank(a), rank(b))
}

func rank(v Value) int {
	switch v.kind {
	case KindNull:
		return 0
	case KindInt, KindReal:
		return 1
	case KindString:
		return 2
	default:
		return 3
	}
}

func cmpOrdered[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Parse converts the textual form produced by String back into a value of
// the given kind.
func Parse(kind Kind, text string) (Value, error) {
	switch kind {
	case KindNull:
		return Null, nil
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Null, fmt.Errorf("parse integer %q: %w", text, err)
		}
		return Int(n), nil
	case KindReal:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Null, fmt.Errorf("parse real %q: %w", text, err)
		}
		return Real(f), nil
	case KindString:
		return String(text), nil
	case KindDateTime:
		t, err := ParseDateTime(text)
		if err != nil {
			return Null, err
		}
		return DateTime(t), nil
	}
	return Null, fmt.Errorf("unknown value kind %d", kind)
}

var dateTimeLayouts = []string{
	DateTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006:01:02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime accepts the canonical layout, RFC 3339, the EXIF layout and
// a bare date.
func ParseDateTime(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse datetime %q: unrecognized format", text)
}
