package glob

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/logging"
)

// DirectoryOrder compares two sibling directories. Negative means a is
// visited before b.
type DirectoryOrder func(a, b string) int

// Alphabetical is the default sibling order.
func Alphabetical(a, b string) int { return strings.Compare(a, b) }

// DefaultHidden is the attribute set excluded from wildcard expansion.
const DefaultHidden = fsys.AttrHidden | fsys.AttrSystem

// Matcher resolves a Pattern against a FileSystem.
type Matcher struct {
	fs      fsys.FileSystem
	pattern *Pattern
	order   DirectoryOrder
	hidden  fsys.Attributes
	log     zerolog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithOrder sets the order in which sibling directories are visited.
// A nil order keeps the default.
func WithOrder(order DirectoryOrder) Option {
	return func(m *Matcher) {
		if order != nil {
			m.order = order
		}
	}
}

// WithHidden sets the attribute flags that exclude an entry from wildcard
// and recursive expansion.
func WithHidden(attrs fsys.Attributes) Option {
	return func(m *Matcher) { m.hidden = attrs }
}

// WithLogger sets the logger used for pruned branches.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Matcher) { m.log = l }
}

var errNilArgument = errors.New("glob: nil argument")

// NewMatcher creates a matcher for pattern over fs.
func NewMatcher(fs fsys.FileSystem, pattern *Pattern, opts ...Option) (*Matcher, error) {
	if fs == nil || pattern == nil {
		return nil, errNilArgument
	}
	m := &Matcher{
		fs:      fs,
		pattern: pattern,
		order:   Alphabetical,
		hidden:  DefaultHidden,
		log:     logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Pattern returns the pattern this matcher resolves.
func (m *Matcher) Pattern() *Pattern { return m.pattern }

type frame struct {
	path  string
	index int // number of pattern parts consumed by path
}

// GetDirectories returns every directory matching the pattern. The sequence
// yields the context error and stops if ctx is cancelled.
func (m *Matcher) GetDirectories(ctx context.Context) iter.Seq2[string, error] {
	return m.walk(ctx, m.pattern.parts)
}

// GetFiles returns every file matching the pattern: the directories matched
// by all parts but the last, then the files in each matching the last part.
// A trailing `**` selects every file below the matched directories.
func (m *Matcher) GetFiles(ctx context.Context) iter.Seq2[string, error] {
	dirParts, filePart := splitFilePart(m.pattern.parts)
	return func(yield func(string, error) bool) {
		for dir, err := range m.walk(ctx, dirParts) {
			if err != nil {
				yield("", err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			files, err := m.fs.EnumerateFiles(dir, filePart.Text)
			if err != nil {
				m.prune(dir, err)
				continue
			}
			if filePart.Kind != PartLiteral {
				files = m.visible(files)
			}
			slices.Sort(files)
			for _, f := range files {
				if !yield(f, nil) {
					return
				}
			}
		}
	}
}

func splitFilePart(parts []Part) ([]Part, Part) {
	n := len(parts)
	if n == 0 {
		return nil, Part{Kind: PartWildcard, Text: "*"}
	}
	last := parts[n-1]
	switch last.Kind {
	case PartRecursive:
		return parts, Part{Kind: PartWildcard, Text: "*"}
	case PartLiteral:
		dir, name := fsys.Dir(last.Text), fsys.Base(last.Text)
		head := slices.Clone(parts[:n-1])
		if dir != "" {
			head = append(head, Part{Kind: PartLiteral, Text: dir})
		}
		return head, Part{Kind: PartLiteral, Text: name}
	}
	return parts[:n-1], last
}

// walk is a depth-first search over an explicit stack of frames.
func (m *Matcher) walk(ctx context.Context, parts []Part) iter.Seq2[string, error] {
	recursive := 0
	for _, p := range parts {
		if p.Kind == PartRecursive {
			recursive++
		}
	}

	return func(yield func(string, error) bool) {
		// Only several `**` parts can reach one directory along two routes.
		var seen map[string]struct{}
		if recursive > 1 {
			seen = make(map[string]struct{})
		}

		stack := []frame{{path: "", index: 0}}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if top.index == len(parts) {
				if seen != nil {
					if _, dup := seen[top.path]; dup {
						continue
					}
					seen[top.path] = struct{}{}
				}
				if !yield(top.path, nil) {
					return
				}
				continue
			}

			part := parts[top.index]
			switch part.Kind {
			case PartLiteral:
				next := fsys.Join(top.path, part.Text)
				ok, err := m.fs.DirectoryExists(next)
				if err != nil {
					m.prune(next, err)
					continue
				}
				if ok {
					stack = append(stack, frame{path: next, index: top.index + 1})
				}

			case PartWildcard:
				dirs, err := m.children(top.path, part.Text)
				if err != nil {
					m.prune(top.path, err)
					continue
				}
				for i := len(dirs) - 1; i >= 0; i-- {
					stack = append(stack, frame{path: dirs[i], index: top.index + 1})
				}

			case PartRecursive:
				dirs, err := m.children(top.path, "*")
				if err != nil {
					m.prune(top.path, err)
					continue
				}
				// descend further: `**` stays at the same index
				for i := len(dirs) - 1; i >= 0; i-- {
					stack = append(stack, frame{path: dirs[i], index: top.index})
				}
				// `**` matched by zero more segments; popped first
				stack = append(stack, frame{path: top.path, index: top.index + 1})
			}
		}
	}
}

// children lists visible subdirectories of dir matching pattern in visiting
// order.
func (m *Matcher) children(dir, pattern string) ([]string, error) {
	dirs, err := m.fs.EnumerateDirectories(dir, pattern)
	if err != nil {
		return nil, err
	}
	dirs = m.visible(dirs)
	slices.SortStableFunc(dirs, m.order)
	return dirs, nil
}

func (m *Matcher) visible(paths []string) []string {
	if m.hidden == 0 {
		return paths
	}
	out := paths[:0]
	for _, p := range paths {
		attrs, err := m.fs.Attributes(p)
		if err != nil {
			m.prune(p, err)
			continue
		}
		if attrs.Has(m.hidden) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *Matcher) prune(path string, err error) {
	m.log.Debug().Err(err).Str("path", path).Str("pattern", m.pattern.String()).Msg("skipping unreadable path")
}
