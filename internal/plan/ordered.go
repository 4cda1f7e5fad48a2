package plan

import (
	"context"
	"iter"
	"strings"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/expr"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/value"
)

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Expr expr.Node
	Desc bool
}

// Ordered attaches a result order to its source. Results are not sorted
// during execution; see Sort.
type Ordered struct {
	env    *Environment
	source Query
	keys   []OrderKey
	eval   expr.Evaluator
}

var _ DirectedQuery = (*Ordered)(nil)

// NewOrdered orders source by keys.
func NewOrdered(env *Environment, source Query, keys []OrderKey) (*Ordered, error) {
	if env == nil || env.Funcs == nil || source == nil || len(keys) == 0 {
		return nil, errNilArgument
	}
	return &Ordered{env: env, source: source, keys: keys, eval: expr.Evaluator{Funcs: env.Funcs}}, nil
}

// Keys returns the sort keys.
func (o *Ordered) Keys() []OrderKey { return o.keys }

func (o *Ordered) Text() string {
	var sb strings.Builder
	switch o.source.(type) {
	case *Select, *Where, *View:
		sb.WriteString(o.source.Text())
	default:
		sb.WriteString("(" + o.source.Text() + ")")
	}
	sb.WriteString(" order by ")
	for i, k := range o.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(expr.FormatExpression(k.Expr))
		if k.Desc {
			sb.WriteString(" desc")
		}
	}
	return sb.String()
}

// Comparer compares by each key in turn using the total value order, then
// by path.
func (o *Ordered) Comparer() Comparer {
	return func(a, b entity.Entity) int {
		for _, k := range o.keys {
			c := value.Order(o.key(k, a), o.key(k, b))
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return entity.ComparePaths(a, b)
	}
}

func (o *Ordered) key(k OrderKey, e entity.Entity) value.Value {
	v, err := o.eval.Eval(k.Expr, e)
	if err != nil {
		log := o.env.logger()
		log.Debug().Err(err).Str("path", e.Path()).Msg("sort key failed")
		return value.Null
	}
	return v
}

func (o *Ordered) Patterns() []*glob.Pattern { return o.source.Patterns() }

func (o *Ordered) Match(e entity.Entity) bool { return o.source.Match(e) }

func (o *Ordered) Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error] {
	return o.source.Execute(ctx, p)
}

func (o *Ordered) ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	return directed(ctx, o.source, p, order)
}
