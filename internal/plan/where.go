package plan

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/expr"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/stats"
)

// Where keeps the entities of its source for which the predicate is
// truthy. Null and evaluation errors exclude the entity.
type Where struct {
	env       *Environment
	source    Query
	predicate expr.Node
	eval      expr.Evaluator
}

var _ DirectedQuery = (*Where)(nil)

// NewWhere filters source by predicate.
func NewWhere(env *Environment, source Query, predicate expr.Node) (*Where, error) {
	if env == nil || env.Funcs == nil || source == nil || predicate == nil {
		return nil, errNilArgument
	}
	return &Where{
		env:       env,
		source:    source,
		predicate: predicate,
		eval:      expr.Evaluator{Funcs: env.Funcs},
	}, nil
}

// Source returns the filtered query.
func (w *Where) Source() Query { return w.source }

// Predicate returns the filter expression.
func (w *Where) Predicate() expr.Node { return w.predicate }

func (w *Where) Text() string {
	return "select " + sourceText(w.source) + " where " + expr.Format(w.predicate)
}

func (w *Where) Comparer() Comparer { return w.source.Comparer() }

func (w *Where) Patterns() []*glob.Pattern { return w.source.Patterns() }

func (w *Where) Match(e entity.Entity) bool {
	return w.source.Match(e) && w.test(e)
}

func (w *Where) test(e entity.Entity) bool {
	ok, err := w.eval.Matches(w.predicate, e)
	if err != nil {
		log := w.env.logger()
		log.Debug().Err(err).Str("path", e.Path()).Msg("predicate failed")
		return false
	}
	return ok
}

func (w *Where) Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error] {
	return w.ExecuteDirected(ctx, p, nil)
}

// ExecuteDirected implements DirectedQuery. The directory order derived
// from the predicate takes precedence over order; order is used when no
// statistics are available.
func (w *Where) ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		if _, ok := w.source.(DirectedQuery); ok {
			if derived := w.order(ctx); derived != nil {
				order = derived
			}
		}
		for e, err := range directed(ctx, w.source, p, order) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !w.test(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// order builds search statistics for the predicate and returns the
// directory order they imply, or nil if that is not possible.
func (w *Where) order(ctx context.Context) glob.DirectoryOrder {
	if w.env.Stats == nil {
		return nil
	}
	log := w.env.logger()
	root := commonRoot(w.source.Patterns())
	idx, err := stats.Build(ctx, w.env.Stats, root, expr.AttributeNames(w.predicate))
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Str("root", root).Msg("search statistics unavailable")
		}
		return nil
	}
	idx.Log(log)
	return idx.Order(w.predicate)
}

// commonRoot returns the deepest directory containing the literal roots
// of all patterns.
func commonRoot(patterns []*glob.Pattern) string {
	if len(patterns) == 0 {
		return ""
	}
	root := patterns[0].Root()
	for _, p := range patterns[1:] {
		other := p.Root()
		for root != "" && other != root && !strings.HasPrefix(other, strings.TrimSuffix(root, "/")+"/") {
			parent := fsys.Dir(root)
			if parent == root {
				root = ""
				break
			}
			root = parent
		}
	}
	return root
}
