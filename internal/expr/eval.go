package expr

import (
	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/value"
)

// Functions resolves operator and function calls. *funcs.Registry
// implements it.
type Functions interface {
	Call(name string, args []value.Value) (value.Value, error)
}

// Evaluator interprets expressions against entities.
type Evaluator struct {
	Funcs Functions
}

// Eval computes the value of n for entity e.
//
// A missing attribute evaluates to value.Null. Calls and operators return
// Null without being invoked when any argument is Null. And, Or and Not
// short-circuit:
//
//	And: the first operand that is null or falsy decides (null or 0),
//	     otherwise 1
//	Or:  1 if any operand is truthy, null if both are null, otherwise 0
//	Not: null stays null, otherwise the negated truth value
func (ev Evaluator) Eval(n Node, e entity.Entity) (value.Value, error) {
	switch n := n.(type) {
	case *Constant:
		return n.Value, nil

	case *Attribute:
		if a, ok := e.Attribute(n.Name); ok {
			return a.Value, nil
		}
		return value.Null, nil

	case *Call:
		args := make([]value.Value, len(n.Args))
		for i, arg := range n.Args {
			v, err := ev.Eval(arg, e)
			if err != nil {
				return value.Null, err
			}
			if v.IsNull() {
				return value.Null, nil
			}
			args[i] = v
		}
		return ev.Funcs.Call(n.Name, args)

	case *Binary:
		l, err := ev.Eval(n.Left, e)
		if err != nil || l.IsNull() {
			return value.Null, err
		}
		r, err := ev.Eval(n.Right, e)
		if err != nil || r.IsNull() {
			return value.Null, err
		}
		return ev.Funcs.Call(n.Op, []value.Value{l, r})

	case *Unary:
		v, err := ev.Eval(n.Operand, e)
		if err != nil || v.IsNull() {
			return value.Null, err
		}
		return ev.Funcs.Call(n.Op, []value.Value{v})

	case *And:
		l, err := ev.Eval(n.Left, e)
		if err != nil {
			return value.Null, err
		}
		if l.IsNull() {
			return value.Null, nil
		}
		if !l.Truthy() {
			return value.Bool(false), nil
		}
		r, err := ev.Eval(n.Right, e)
		if err != nil || r.IsNull() {
			return value.Null, err
		}
		return value.Bool(r.Truthy()), nil

	case *Or:
		l, err := ev.Eval(n.Left, e)
		if err != nil {
			return value.Null, err
		}
		if l.Truthy() {
			return value.Bool(true), nil
		}
		r, err := ev.Eval(n.Right, e)
		if err != nil {
			return value.Null, err
		}
		if r.Truthy() {
			return value.Bool(true), nil
		}
		if l.IsNull() && r.IsNull() {
			return value.Null, nil
		}
		return value.Bool(false), nil

	case *Not:
		v, err := ev.Eval(n.Operand, e)
		if err != nil || v.IsNull() {
			return value.Null, err
		}
		return value.Bool(!v.Truthy()), nil
	}
	panic(unknownNode(n))
}

// Matches reports whether n evaluates to a non-null truthy value for e.
func (ev Evaluator) Matches(n Node, e entity.Entity) (bool, error) {
	v, err := ev.Eval(n, e)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}
