// Package plan implements the executable query plan: a tree of operators
// evaluated lazily against the filesystem.
package plan

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/expr"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/logging"
	"github.com/trylock/viewer-sub003/internal/stats"
)

// Comparer orders query results.
type Comparer func(a, b entity.Entity) int

// Query is an immutable node of a compiled query plan.
//
// Match must agree with Execute: an entity is yielded by Execute iff Match
// reports true for it. Set operators rely on this to test membership
// without running the other operand.
type Query interface {
	// Text renders the query back to source text.
	Text() string

	// Comparer is the order results should be presented in once
	// materialized. Execute does not sort.
	Comparer() Comparer

	// Patterns returns the path patterns of every Select below this node.
	Patterns() []*glob.Pattern

	Match(e entity.Entity) bool

	// Execute returns a single-use lazy stream of results. A cancelled
	// context ends the stream with the context error.
	Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error]
}

// DirectedQuery is a Query whose traversal visits sibling directories in a
// caller-supplied order. The order never changes the result set.
type DirectedQuery interface {
	Query
	ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error]
}

// Progress receives execution events. Folder is reported when a directory
// is about to be listed, BeginLoading and EndLoading around every entity
// load.
type Progress interface {
	BeginExecution()
	Folder(path string)
	BeginLoading(path string)
	EndLoading(path string)
	EndExecution()
}

// NopProgress ignores all events.
type NopProgress struct{}

func (NopProgress) BeginExecution()     {}
func (NopProgress) Folder(string)       {}
func (NopProgress) BeginLoading(string) {}
func (NopProgress) EndLoading(string)   {}
func (NopProgress) EndExecution()       {}

// DefaultExtensions are the file extensions a Select accepts when the
// environment does not name any.
var DefaultExtensions = []string{".jpg", ".jpeg"}

var errNilArgument = errors.New("plan: nil argument")

// Environment is everything operators need to run.
type Environment struct {
	FS     fsys.FileSystem
	Loader entity.Loader

	// Hidden entries are excluded from results and from wildcard
	// expansion.
	Hidden fsys.Attributes

	// Extensions accepted by Select, lower case with the leading dot.
	Extensions []string

	Funcs expr.Functions

	// Stats is optional. Without it Where visits directories in the
	// default order.
	Stats stats.Source

	Logger *zerolog.Logger
}

func (env *Environment) logger() zerolog.Logger {
	if env.Logger != nil {
		return *env.Logger
	}
	return logging.GetLogger()
}

// Accepts reports whether path has one of the accepted extensions.
func (env *Environment) Accepts(path string) bool {
	exts := env.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	base := fsys.Base(path)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return false
	}
	return slices.Contains(exts, strings.ToLower(base[i:]))
}

// Execute runs q, reporting BeginExecution before the first result and
// EndExecution once the stream is finished, stopped or cancelled.
func Execute(ctx context.Context, q Query, p Progress) iter.Seq2[entity.Entity, error] {
	if p == nil {
		p = NopProgress{}
	}
	return func(yield func(entity.Entity, error) bool) {
		p.BeginExecution()
		defer p.EndExecution()
		for e, err := range q.Execute(ctx, p) {
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains seq. On error it returns the results collected so far.
func Collect(seq iter.Seq2[entity.Entity, error]) ([]entity.Entity, error) {
	var out []entity.Entity
	for e, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Sort orders materialized results by cmp, falling back to path order.
func Sort(entities []entity.Entity, cmp Comparer) {
	if cmp == nil {
		cmp = entity.ComparePaths
	}
	slices.SortStableFunc(entities, cmp)
}

// directed runs q with order when it supports directed traversal.
func directed(ctx context.Context, q Query, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	if d, ok := q.(DirectedQuery); ok && order != nil {
		return d.ExecuteDirected(ctx, p, order)
	}
	return q.Execute(ctx, p)
}

// operandText renders a set operator operand. Anything that is not a plain
// query factor is wrapped in a select so it parses back.
func operandText(q Query) string {
	switch q.(type) {
	case *Select, *Where, *View:
		return q.Text()
	}
	return "select (" + q.Text() + ")"
}

// sourceText renders q in the source position of a select.
func sourceText(q Query) string {
	switch q := q.(type) {
	case *Select:
		return q.quotedPattern()
	case *View:
		return q.Text()
	}
	return "(" + q.Text() + ")"
}
