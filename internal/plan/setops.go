package plan

import (
	"context"
	"iter"
	"slices"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/glob"
)

type binary struct {
	left, right Query
}

func (b binary) Comparer() Comparer { return entity.ComparePaths }

func (b binary) Patterns() []*glob.Pattern {
	return slices.Concat(b.left.Patterns(), b.right.Patterns())
}

func (b binary) text(op string) string {
	return operandText(b.left) + " " + op + " " + operandText(b.right)
}

// Union yields the entities of either operand, each path once.
type Union struct{ binary }

// Except yields the entities of the left operand that the right one does
// not match.
type Except struct{ binary }

// Intersect yields the entities both operands match, each path once.
type Intersect struct{ binary }

var (
	_ DirectedQuery = (*Union)(nil)
	_ DirectedQuery = (*Except)(nil)
	_ DirectedQuery = (*Intersect)(nil)
)

func NewUnion(left, right Query) (*Union, error) {
	if left == nil || right == nil {
		return nil, errNilArgument
	}
	return &Union{binary{left, right}}, nil
}

func NewExcept(left, right Query) (*Except, error) {
	if left == nil || right == nil {
		return nil, errNilArgument
	}
	return &Except{binary{left, right}}, nil
}

func NewIntersect(left, right Query) (*Intersect, error) {
	if left == nil || right == nil {
		return nil, errNilArgument
	}
	return &Intersect{binary{left, right}}, nil
}

func (u *Union) Text() string { return u.text("union") }

func (u *Union) Match(e entity.Entity) bool { return u.left.Match(e) || u.right.Match(e) }

func (u *Union) Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error] {
	return u.ExecuteDirected(ctx, p, nil)
}

func (u *Union) ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		seen := map[string]struct{}{}
		for e, err := range directed(ctx, u.left, p, order) {
			if err != nil {
				yield(nil, err)
				return
			}
			seen[e.Path()] = struct{}{}
			if !yield(e, nil) {
				return
			}
		}
		for e, err := range directed(ctx, u.right, p, order) {
			if err != nil {
				yield(nil, err)
				return
			}
			if _, ok := seen[e.Path()]; ok {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (x *Except) Text() string { return x.text("except") }

func (x *Except) Match(e entity.Entity) bool { return x.left.Match(e) && !x.right.Match(e) }

func (x *Except) Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error] {
	return x.ExecuteDirected(ctx, p, nil)
}

// ExecuteDirected never runs the right operand; membership is tested with
// its Match.
func (x *Except) ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		for e, err := range directed(ctx, x.left, p, order) {
			if err != nil {
				yield(nil, err)
				return
			}
			if x.right.Match(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (i *Intersect) Text() string { return i.text("intersect") }

func (i *Intersect) Match(e entity.Entity) bool { return i.left.Match(e) && i.right.Match(e) }

func (i *Intersect) Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error] {
	return i.ExecuteDirected(ctx, p, nil)
}

// ExecuteDirected streams the left operand, then the right one, skipping
// paths already visited on the left.
func (i *Intersect) ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	return func(yield func(entity.Entity, error) bool) {
		visited := map[string]struct{}{}
		for e, err := range directed(ctx, i.left, p, order) {
			if err != nil {
				yield(nil, err)
				return
			}
			visited[e.Path()] = struct{}{}
			if !i.right.Match(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
		for e, err := range directed(ctx, i.right, p, order) {
			if err != nil {
				yield(nil, err)
				return
			}
			if _, ok := visited[e.Path()]; ok {
				continue
			}
			visited[e.Path()] = struct{}{}
			if !i.left.Match(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}
