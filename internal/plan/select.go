package plan

import (
	"context"
	"fmt"
	"iter"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/value"
)

// Select lists the contents of every directory matching a path pattern:
// accepted image files first, then visible subdirectories.
type Select struct {
	env     *Environment
	pattern *glob.Pattern
}

var _ DirectedQuery = (*Select)(nil)

// NewSelect parses pattern and returns a Select over it. Malformed patterns
// fail with glob.ErrInvalidPattern.
func NewSelect(env *Environment, pattern string) (*Select, error) {
	if env == nil || env.FS == nil || env.Loader == nil {
		return nil, errNilArgument
	}
	p, err := glob.Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", pattern, err)
	}
	return &Select{env: env, pattern: p}, nil
}

// Pattern returns the parsed path pattern.
func (s *Select) Pattern() *glob.Pattern { return s.pattern }

func (s *Select) quotedPattern() string { return value.Quote(s.pattern.String()) }

func (s *Select) Text() string { return "select " + s.quotedPattern() }

func (s *Select) Comparer() Comparer { return entity.ComparePaths }

func (s *Select) Patterns() []*glob.Pattern { return []*glob.Pattern{s.pattern} }

// Match reports whether e lies directly in a matching directory, is
// visible and, for files, has an accepted extension.
func (s *Select) Match(e entity.Entity) bool {
	p := e.Path()
	if !s.pattern.Match(fsys.Dir(p)) {
		return false
	}
	if !e.IsDirectory() && !s.env.Accepts(p) {
		return false
	}
	return s.visible(p)
}

func (s *Select) visible(path string) bool {
	if s.env.Hidden == 0 {
		return true
	}
	attrs, err := s.env.FS.Attributes(path)
	if err != nil {
		s.skip(path, err)
		return false
	}
	return !attrs.Has(s.env.Hidden)
}

func (s *Select) skip(path string, err error) {
	log := s.env.logger()
	log.Debug().Err(err).Str("path", path).Msg("skipping path")
}

func (s *Select) Execute(ctx context.Context, p Progress) iter.Seq2[entity.Entity, error] {
	return s.ExecuteDirected(ctx, p, nil)
}

// ExecuteDirected implements DirectedQuery. A nil order keeps the default
// alphabetical order.
func (s *Select) ExecuteDirected(ctx context.Context, p Progress, order glob.DirectoryOrder) iter.Seq2[entity.Entity, error] {
	if p == nil {
		p = NopProgress{}
	}
	return func(yield func(entity.Entity, error) bool) {
		m, err := glob.NewMatcher(s.env.FS, s.pattern,
			glob.WithOrder(order),
			glob.WithHidden(s.env.Hidden),
			glob.WithLogger(s.env.logger()),
		)
		if err != nil {
			yield(nil, err)
			return
		}

		for dir, err := range m.GetDirectories(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			p.Folder(dir)
			if !s.files(ctx, p, dir, yield) {
				return
			}
			if !s.directories(ctx, dir, yield) {
				return
			}
		}
	}
}

// files yields the accepted files of dir. It returns false once the
// consumer stops or ctx is cancelled.
func (s *Select) files(ctx context.Context, p Progress, dir string, yield func(entity.Entity, error) bool) bool {
	files, err := s.env.FS.EnumerateFiles(dir, "*")
	if err != nil {
		s.skip(dir, err)
		return true
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return false
		}
		if !s.env.Accepts(f) || !s.visible(f) {
			continue
		}
		p.BeginLoading(f)
		e, err := s.env.Loader.Load(f)
		p.EndLoading(f)
		if err != nil {
			s.skip(f, err)
			continue
		}
		if !yield(e, nil) {
			return false
		}
	}
	return true
}

func (s *Select) directories(ctx context.Context, dir string, yield func(entity.Entity, error) bool) bool {
	dirs, err := s.env.FS.EnumerateDirectories(dir, "*")
	if err != nil {
		s.skip(dir, err)
		return true
	}
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return false
		}
		if !s.visible(d) {
			continue
		}
		if !yield(entity.NewDirectory(d), nil) {
			return false
		}
	}
	return true
}
