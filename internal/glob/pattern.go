// Package glob resolves path patterns with `*`, `?` and `**` into the
// directories and files they match.
package glob

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/trylock/viewer-sub003/internal/fsys"
)

// PartKind tags a pattern part.
type PartKind int

const (
	// PartLiteral is a relative path without wildcards. Adjacent literal
	// segments are merged into a single part.
	PartLiteral PartKind = iota
	// PartWildcard is a single segment containing `*` or `?`.
	PartWildcard
	// PartRecursive is a `**` segment.
	PartRecursive
)

func (k PartKind) String() string {
	switch k {
	case PartLiteral:
		return "literal"
	case PartWildcard:
		return "wildcard"
	case PartRecursive:
		return "recursive"
	default:
		return "unknown"
	}
}

// Part is one element of a parsed pattern.
type Part struct {
	Kind PartKind
	Text string
}

// ErrInvalidPattern is returned for patterns that cannot name a path.
var ErrInvalidPattern = errors.New("invalid path pattern")

const invalidPathChars = "\x00<>|\""

// Pattern is a parsed, normalized path pattern. It is immutable.
type Pattern struct {
	text  string
	parts []Part
}

// Parse normalizes and parses a path pattern.
func Parse(pattern string) (*Pattern, error) {
	if strings.ContainsAny(pattern, invalidPathChars) {
		return nil, fmt.Errorf("%w: %q contains an invalid path character", ErrInvalidPattern, pattern)
	}
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}

	text := fsys.Normalize(pattern)
	var parts []Part
	var literal []string
	flush := func() {
		if len(literal) > 0 {
			parts = append(parts, Part{Kind: PartLiteral, Text: joinLiteral(literal)})
			literal = nil
		}
	}

	for i, seg := range strings.Split(text, "/") {
		switch {
		case seg == "**":
			flush()
			if n := len(parts); n > 0 && parts[n-1].Kind == PartRecursive {
				continue
			}
			parts = append(parts, Part{Kind: PartRecursive, Text: seg})
		case strings.Contains(seg, "**"):
			return nil, fmt.Errorf("%w: %q: ** must be a whole segment", ErrInvalidPattern, pattern)
		case strings.ContainsAny(seg, "*?"):
			if _, err := path.Match(seg, ""); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
			}
			flush()
			parts = append(parts, Part{Kind: PartWildcard, Text: seg})
		case seg == "" && i == 0:
			// absolute unix path
			literal = append(literal, "")
		case seg == "":
			// trailing separator of a drive root
		default:
			literal = append(literal, seg)
		}
	}
	flush()

	return &Pattern{text: text, parts: parts}, nil
}

func joinLiteral(segs []string) string {
	joined := strings.Join(segs, "/")
	switch {
	case joined == "":
		return "/"
	case len(joined) == 2 && joined[1] == ':':
		return joined + "/"
	}
	return joined
}

// MustParse is like Parse but panics on error.
func MustParse(pattern string) *Pattern {
	p, err := Parse(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the normalized pattern text.
func (p *Pattern) String() string { return p.text }

// Parts returns a copy of the parsed parts.
func (p *Pattern) Parts() []Part {
	return append([]Part(nil), p.parts...)
}

// Root returns the directory named by the leading literal part, or "" when
// the pattern starts with a wildcard. It is the deepest directory every
// match lies under.
func (p *Pattern) Root() string {
	if len(p.parts) > 0 && p.parts[0].Kind == PartLiteral {
		return p.parts[0].Text
	}
	return ""
}

// HasWildcards reports whether the pattern contains `*`, `?` or `**`.
func (p *Pattern) HasWildcards() bool {
	for _, part := range p.parts {
		if part.Kind != PartLiteral {
			return true
		}
	}
	return false
}

// Match reports whether the normalized path p matches the whole pattern.
// It performs no I/O. A `**` matches zero or more segments; `*` and `?`
// never match an empty segment.
func (p *Pattern) Match(target string) bool {
	segs := splitSegments(p.text)
	return matchSegments(segs, splitSegments(fsys.Normalize(target)))
}

func splitSegments(p string) []string {
	if p == "" {
		return nil
	}
	segs := strings.Split(p, "/")
	if n := len(segs); n > 1 && segs[n-1] == "" {
		segs = segs[:n-1]
	}
	return segs
}

func matchSegments(pattern, target []string) bool {
	for len(pattern) > 0 {
		seg := pattern[0]
		if seg == "**" {
			rest := pattern[1:]
			for len(rest) > 0 && rest[0] == "**" {
				rest = rest[1:]
			}
			for i := 0; i <= len(target); i++ {
				if matchSegments(rest, target[i:]) {
					return true
				}
			}
			return false
		}
		if len(target) == 0 {
			return false
		}
		if strings.ContainsAny(seg, "*?") {
			if target[0] == "" {
				return false
			}
			if ok, _ := path.Match(seg, target[0]); !ok {
				return false
			}
		} else if seg != target[0] {
			return false
		}
		pattern, target = pattern[1:], target[1:]
	}
	return len(target) == 0
}
