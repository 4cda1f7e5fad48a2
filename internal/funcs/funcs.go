// Package funcs is the runtime function registry: the operators and named
// functions query predicates are evaluated with.
package funcs

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/trylock/viewer-sub003/internal/value"
)

var (
	// ErrUnknownFunction is returned for a name that is not registered.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrInvalidArguments is returned when no overload accepts the arguments.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Func implements a function. Arguments are never null: null propagation
// happens before the call.
type Func func(args []value.Value) (value.Value, error)

// Registry maps case-insensitive names to functions.
type Registry struct {
	funcs map[string]Func
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[strings.ToLower(name)] = fn
}

// Lookup finds a function by name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[strings.ToLower(name)]
	return fn, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Call invokes name with args.
func (r *Registry) Call(name string, args []value.Value) (value.Value, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return value.Null, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	v, err := fn(args)
	if err != nil {
		return value.Null, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns a registry with the query language operators and the
// built-in functions.
func Default() *Registry {
	r := New()

	r.Register("+", add)
	r.Register("-", subtract)
	r.Register("*", arithmetic(func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }))
	r.Register("/", divide)

	r.Register("=", equality(false))
	r.Register("<>", equality(true))
	r.Register("<", ordering(func(c int) bool { return c < 0 }))
	r.Register("<=", ordering(func(c int) bool { return c <= 0 }))
	r.Register(">", ordering(func(c int) bool { return c > 0 }))
	r.Register(">=", ordering(func(c int) bool { return c >= 0 }))

	r.Register("lower", stringFunc(strings.ToLower))
	r.Register("upper", stringFunc(strings.ToUpper))
	r.Register("length", length)
	r.Register("contains", stringPredicate(strings.Contains))
	r.Register("startswith", stringPredicate(strings.HasPrefix))
	r.Register("endswith", stringPredicate(strings.HasSuffix))
	r.Register("abs", numberFunc(func(n int64) int64 {
		if n < 0 {
			return -n
		}
		return n
	}, math.Abs))
	r.Register("round", numberFunc(func(n int64) int64 { return n }, math.Round))
	r.Register("datetime", toDateTime)
	r.Register("year", datePart(func(t time.Time) int64 { return int64(t.Year()) }))
	r.Register("month", datePart(func(t time.Time) int64 { return int64(t.Month()) }))
	r.Register("day", datePart(func(t time.Time) int64 { return int64(t.Day()) }))
	r.Register("now", now)
	return r
}

func arity(args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %d argument(s), got %d", ErrInvalidArguments, n, len(args))
	}
	return nil
}

func mismatch(args []value.Value) error {
	kinds := make([]string, len(args))
	for i, a := range args {
		kinds[i] = a.Kind().String()
	}
	return fmt.Errorf("%w: (%s)", ErrInvalidArguments, strings.Join(kinds, ", "))
}

func arithmetic(ints func(a, b int64) int64, reals func(a, b float64) float64) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(args, 2); err != nil {
			return value.Null, err
		}
		a, b := args[0], args[1]
		switch {
		case a.Kind() == value.KindInt && b.Kind() == value.KindInt:
			return value.Int(ints(a.AsInt(), b.AsInt())), nil
		case a.IsNumber() && b.IsNumber():
			return value.Real(reals(a.AsReal(), b.AsReal())), nil
		}
		return value.Null, mismatch(args)
	}
}

var plus = arithmetic(func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })

func add(args []value.Value) (value.Value, error) {
	if len(args) == 2 && args[0].Kind() == value.KindString && args[1].Kind() == value.KindString {
		return value.String(args[0].AsString() + args[1].AsString()), nil
	}
	return plus(args)
}

var minus = arithmetic(func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })

func subtract(args []value.Value) (value.Value, error) {
	if len(args) == 1 {
		switch a := args[0]; a.Kind() {
		case value.KindInt:
			return value.Int(-a.AsInt()), nil
		case value.KindReal:
			return value.Real(-a.AsReal()), nil
		}
		return value.Null, mismatch(args)
	}
	if len(args) == 2 && args[0].Kind() == value.KindDateTime && args[1].Kind() == value.KindDateTime {
		return value.Real(args[0].AsTime().Sub(args[1].AsTime()).Seconds()), nil
	}
	return minus(args)
}

// divide always produces a real; division by zero is undefined (null).
func divide(args []value.Value) (value.Value, error) {
	if err := arity(args, 2); err != nil {
		return value.Null, err
	}
	if !args[0].IsNumber() || !args[1].IsNumber() {
		return value.Null, mismatch(args)
	}
	if args[1].AsReal() == 0 {
		return value.Null, nil
	}
	return value.Real(args[0].AsReal() / args[1].AsReal()), nil
}

func equality(negate bool) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(args, 2); err != nil {
			return value.Null, err
		}
		c, ok := value.Compare(args[0], args[1])
		return value.Bool((ok && c == 0) != negate), nil
	}
}

func ordering(test func(int) bool) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(args, 2); err != nil {
			return value.Null, err
		}
		c, ok := value.Compare(args[0], args[1])
		if !ok {
			return value.Null, mismatch(args)
		}
		return value.Bool(test(c)), nil
	}
}

func stringFunc(fn func(string) string) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(args, 1); err != nil {
			return value.Null, err
		}
		if args[0].Kind() != value.KindString {
			return value.Null, mismatch(args)
		}
		return value.String(fn(args[0].AsString())), nil
	}
}

func stringPredicate(fn func(s, sub string) bool) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(args, 2); err != nil {
			return value.Null, err
		}
		if args[0].Kind() != value.KindString || args[1].Kind() != value.KindString {
			return value.Null, mismatch(args)
		}
		return value.Bool(fn(args[0].AsString(), args[1].AsString())), nil
	}
}

func length(args []value.Value) (value.Value, error) {
	if err := arity(args, 1); err != nil {
		return value.Null, err
	}
	if args[0].Kind() != value.KindString {
		return value.Null, mismatch(args)
	}
	return value.Int(int64(len([]rune(args[0].AsString())))), nil
}

func numberFunc(ints func(int64) int64, reals func(float64) float64) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(args, 1); err != nil {
			return value.Null, err
		}
		switch a := args[0]; a.Kind() {
		case value.KindInt:
			return value.Int(ints(a.AsInt())), nil
		case value.KindReal:
			return value.Real(reals(a.AsReal())), nil
		}
		return value.Null, mismatch(args)
	}
}

func toDateTime(args []value.Value) (value.Value, error) {
	if err := arity(args, 1); err != nil {
		return value.Null, err
	}
	switch a := args[0]; a.Kind() {
	case value.KindDateTime:
		return a, nil
	case value.KindString:
		t, err := value.ParseDateTime(a.AsString())
		if err != nil {
			return value.Null, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return value.DateTime(t), nil
	}
	return value.Null, mismatch(args)
}

func datePart(part func(time.Time) int64) Func {
	return func(args []value.Value) (value.Value, error) {
		if err := arity(args, 1); err != nil {
			return value.Null, err
		}
		if args[0].Kind() != value.KindDateTime {
			return value.Null, mismatch(args)
		}
		return value.Int(part(args[0].AsTime())), nil
	}
}

var clock = time.Now

func now(args []value.Value) (value.Value, error) {
	if err := arity(args, 0); err != nil {
		return value.Null, err
	}
	return value.DateTime(clock()), nil
}
