package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trylock/viewer-sub003/internal/expr"
	"github.com/trylock/viewer-sub003/internal/plan"
	"github.com/trylock/viewer-sub003/internal/value"
)

// ErrCompilation is returned when a query does not compile. The details
// have been reported to the ErrorListener.
var ErrCompilation = errors.New("query compilation failed")

// Views resolves view names to their stored query text.
type Views interface {
	Lookup(name string) (text string, ok bool)
}

// FunctionSet tells which function names exist. *funcs.Registry
// implements it.
type FunctionSet interface {
	Has(name string) bool
}

// Compiler turns query text into an executable plan.
type Compiler struct {
	env   *plan.Environment
	views Views
	funcs FunctionSet
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithViews enables view references.
func WithViews(v Views) Option {
	return func(c *Compiler) { c.views = v }
}

// WithFunctions sets the function names accepted in calls. By default the
// environment's function registry is used when it can list its names;
// otherwise calls are not checked at compile time.
func WithFunctions(fs FunctionSet) Option {
	return func(c *Compiler) { c.funcs = fs }
}

// NewCompiler creates a compiler producing plans that run in env.
func NewCompiler(env *plan.Environment, opts ...Option) *Compiler {
	c := &Compiler{env: env}
	if env != nil {
		if fs, ok := env.Funcs.(FunctionSet); ok {
			c.funcs = fs
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles text. Errors go to listener, which may be nil; on
// failure Compile returns ErrCompilation.
func (c *Compiler) Compile(text string, listener ErrorListener) (plan.Query, error) {
	if listener == nil {
		listener = nopListener{}
	}
	listener.BeforeCompilation()
	defer listener.AfterCompilation()

	u := &unit{compiler: c, listener: listener}
	return u.compile(text)
}

// unit is the state of one Compile call. Nested view compilations share
// it so their errors reach the same listener.
type unit struct {
	compiler *Compiler
	listener ErrorListener
	views    []string // views being expanded, outermost first
}

func (u *unit) compile(text string) (plan.Query, error) {
	tree, err := Parse(text)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			u.report(se.Line, se.Column, se.Message)
		} else {
			u.report(1, 1, err.Error())
		}
		return nil, ErrCompilation
	}
	return u.queries(tree)
}

func (u *unit) report(line, column int, message string) {
	if n := len(u.views); n > 0 {
		message = fmt.Sprintf("in view %s: %s", u.views[n-1], message)
	}
	u.listener.ReportError(line, column, message)
}

func (u *unit) fail(tok Token, format string, args ...any) error {
	u.report(tok.Line, tok.Column, fmt.Sprintf(format, args...))
	return ErrCompilation
}

func (u *unit) queries(n *Node) (plan.Query, error) {
	left, err := u.intersection(n.Children[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < len(n.Children); i += 2 {
		op, next := n.Children[i], n.Children[i+1]
		right, err := u.intersection(next)
		if err != nil {
			return nil, err
		}
		if op.IsToken(TokenUnion) {
			left, err = plan.NewUnion(left, right)
		} else {
			left, err = plan.NewExcept(left, right)
		}
		if err != nil {
			return nil, u.fail(op.Token, "%v", err)
		}
	}
	return left, nil
}

func (u *unit) intersection(n *Node) (plan.Query, error) {
	left, err := u.queryFactor(n.Children[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < len(n.Children); i += 2 {
		right, err := u.queryFactor(n.Children[i+1])
		if err != nil {
			return nil, err
		}
		if left, err = plan.NewIntersect(left, right); err != nil {
			return nil, u.fail(n.Children[i].Token, "%v", err)
		}
	}
	return left, nil
}

func (u *unit) queryFactor(n *Node) (plan.Query, error) {
	var q plan.Query
	var err error
	switch first := n.Children[0]; first.Rule {
	case RuleQuery:
		q, err = u.query(first)
	case RuleQueries:
		q, err = u.queries(first)
	default:
		q, err = u.view(first.Token)
	}
	if err != nil {
		return nil, err
	}

	if len(n.Children) < 2 {
		return q, nil
	}
	order := n.Children[1]
	keys := make([]plan.OrderKey, 0, len(order.Children))
	for _, k := range order.Children {
		e, err := u.expr(k.Children[0])
		if err != nil {
			return nil, err
		}
		keys = append(keys, plan.OrderKey{
			Expr: e,
			Desc: len(k.Children) > 1 && k.Children[1].IsToken(TokenDesc),
		})
	}
	ordered, err := plan.NewOrdered(u.compiler.env, q, keys)
	if err != nil {
		return nil, u.fail(order.Token, "%v", err)
	}
	return ordered, nil
}

func (u *unit) query(n *Node) (plan.Query, error) {
	src := n.Children[0].Children[0]
	var q plan.Query
	var err error
	switch {
	case src.IsToken(TokenString):
		q, err = plan.NewSelect(u.compiler.env, src.Token.Value)
		if err != nil {
			return nil, u.fail(src.Token, "%v", err)
		}
	case src.IsToken(TokenIdent):
		q, err = u.view(src.Token)
	default:
		q, err = u.queries(src)
	}
	if err != nil {
		return nil, err
	}

	if len(n.Children) < 2 {
		return q, nil
	}
	pred, err := u.expr(n.Children[1])
	if err != nil {
		return nil, err
	}
	w, err := plan.NewWhere(u.compiler.env, q, pred)
	if err != nil {
		return nil, u.fail(n.Children[1].Token, "%v", err)
	}
	return w, nil
}

// view compiles the view named by tok.
func (u *unit) view(tok Token) (plan.Query, error) {
	name := tok.Value
	if u.compiler.views == nil {
		return nil, u.fail(tok, "unknown view %s", name)
	}
	text, ok := u.compiler.views.Lookup(name)
	if !ok {
		return nil, u.fail(tok, "unknown view %s", name)
	}
	for i, v := range u.views {
		if strings.EqualFold(v, name) {
			cycle := append(append([]string{}, u.views[i:]...), name)
			return nil, u.fail(tok, "view cycle: %s", strings.Join(cycle, " -> "))
		}
	}

	u.views = append(u.views, name)
	q, err := u.compile(text)
	u.views = u.views[:len(u.views)-1]
	if err != nil {
		// already reported inside the view
		return nil, err
	}
	return plan.NewView(name, q)
}

// expr compiles a predicate-level rule into an expression tree.
func (u *unit) expr(n *Node) (expr.Node, error) {
	switch n.Rule {
	case RulePredicate, RuleConjunction:
		left, err := u.expr(n.Children[0])
		if err != nil {
			return nil, err
		}
		for i := 2; i < len(n.Children); i += 2 {
			right, err := u.expr(n.Children[i])
			if err != nil {
				return nil, err
			}
			if n.Rule == RulePredicate {
				left = &expr.Or{Left: left, Right: right}
			} else {
				left = &expr.And{Left: left, Right: right}
			}
		}
		return left, nil

	case RuleLiteral:
		if n.Children[0].IsToken(TokenNot) {
			operand, err := u.expr(n.Children[1])
			if err != nil {
				return nil, err
			}
			return &expr.Not{Operand: operand}, nil
		}
		return u.expr(n.Children[0])

	case RuleComparison, RuleExpression, RuleTerm:
		left, err := u.expr(n.Children[0])
		if err != nil {
			return nil, err
		}
		for i := 1; i+1 < len(n.Children); i += 2 {
			right, err := u.expr(n.Children[i+1])
			if err != nil {
				return nil, err
			}
			left = &expr.Binary{Op: operatorName(n.Children[i].Token), Left: left, Right: right}
		}
		return left, nil

	case RuleFactor:
		return u.factor(n)

	case RuleCall:
		name := n.Children[0].Token
		if fs := u.compiler.funcs; fs != nil && !fs.Has(name.Value) {
			return nil, u.fail(name, "unknown function %s", name.Value)
		}
		call := &expr.Call{Name: name.Value}
		for _, arg := range n.Children[1:] {
			a, err := u.expr(arg)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, a)
		}
		return call, nil
	}
	panic(fmt.Sprintf("query: unexpected %s node in expression", n.Rule))
}

func (u *unit) factor(n *Node) (expr.Node, error) {
	first := n.Children[0]
	if first.Rule != RuleToken {
		return u.expr(first)
	}

	tok := first.Token
	switch tok.Type {
	case TokenMinus:
		operand, err := u.expr(n.Children[1])
		if err != nil {
			return nil, err
		}
		if c, ok := operand.(*expr.Constant); ok {
			switch c.Value.Kind() {
			case value.KindInt:
				return &expr.Constant{Value: value.Int(-c.Value.AsInt())}, nil
			case value.KindReal:
				return &expr.Constant{Value: value.Real(-c.Value.AsReal())}, nil
			}
		}
		return &expr.Unary{Op: "-", Operand: operand}, nil

	case TokenInt, TokenReal:
		kind := value.KindInt
		if tok.Type == TokenReal {
			kind = value.KindReal
		}
		v, err := value.Parse(kind, tok.Value)
		if err != nil {
			return nil, u.fail(tok, "invalid number %s", tok.Value)
		}
		return &expr.Constant{Value: v}, nil

	case TokenString:
		return &expr.Constant{Value: value.String(tok.Value)}, nil

	case TokenIdent, TokenComplexID:
		return &expr.Attribute{Name: tok.Value}, nil
	}
	panic(fmt.Sprintf("query: unexpected token %s in factor", tok.Type))
}

// operatorName maps an operator token to its registry function name.
func operatorName(tok Token) string {
	if tok.Type == TokenNe {
		return "<>"
	}
	return tok.Value
}
