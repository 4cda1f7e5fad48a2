package plan

import (
	"context"
	"iter"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/expr"
	"github.com/trylock/viewer-sub003/internal/glob"
)

// View is a reference to a named query. It behaves exactly like the query
// it names but renders as the name.
type View struct {
	name  string
	query Query
}

var _ DirectedQuery = (*View)(nil)

func NewView(name string, q Query) (*View, error) {
	if name == "" || q == nil {
		return nil, errNilArgument
	}
	return &View{name: name, query: q}, nil
}

// Name returns the view name.
func (v *View) Name() string { return v.name }

// Query returns the compiled view.
func (v *View) Query() Query { return v.query }

func (v *View) Text() string { return expr.Identifier(v.name) }

func (v *View) Comparer() Comparer { return v.query.Comparer() }

func (v *View) Patterns() []*glob.Pattern { return v.query.Patterns() }

func (v *View) Match(e entity.Entity) bool { return v.query.Match(e) }

func (v *View) Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error] {
	return v.query.Execute(ctx, p)
}

func (v *View) ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	return directed(ctx, v.query, p, order)
}
