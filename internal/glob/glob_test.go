package glob

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trylock/viewer-sub003/internal/fsys"
)

func TestParseMergesLiteralSegments(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		parts   []Part
	}{
		{
			name:    "drive root with recursion",
			pattern: `C:\a\b\**\c\*`,
			parts: []Part{
				{Kind: PartLiteral, Text: "C:/a/b"},
				{Kind: PartRecursive, Text: "**"},
				{Kind: PartLiteral, Text: "c"},
				{Kind: PartWildcard, Text: "*"},
			},
		},
		{
			name:    "absolute unix path",
			pattern: "/photos//2020/",
			parts:   []Part{{Kind: PartLiteral, Text: "/photos/2020"}},
		},
		{
			name:    "consecutive recursion collapses",
			pattern: "a/**/**/b",
			parts: []Part{
				{Kind: PartLiteral, Text: "a"},
				{Kind: PartRecursive, Text: "**"},
				{Kind: PartLiteral, Text: "b"},
			},
		},
		{
			name:    "relative wildcard first",
			pattern: "*/x/y",
			parts: []Part{
				{Kind: PartWildcard, Text: "*"},
				{Kind: PartLiteral, Text: "x/y"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.pattern)
			require.NoError(t, err)
			require.Equal(t, tt.parts, p.Parts())
		})
	}
}

func TestParseRejectsMalformedPatterns(t *testing.T) {
	for _, pattern := range []string{"", "  ", "a/b**/c", "a/<b>", "a|b", "a/[*/b"} {
		_, err := Parse(pattern)
		require.Error(t, err, pattern)
		require.True(t, errors.Is(err, ErrInvalidPattern), pattern)
	}
	require.Panics(t, func() { MustParse("a/**x") })
}

func TestPatternRoot(t *testing.T) {
	require.Equal(t, "C:/a", MustParse("C:/a/**/b").Root())
	require.Equal(t, "/photos/2020", MustParse("/photos/2020").Root())
	require.Equal(t, "", MustParse("*/b").Root())
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"a/**", "a", true},
		{"a/**", "a/b/c", true},
		{"a/*/b", "a/b", false},
		{"a/*/b", "a/x/b", true},
		{"a/?/b", "a/xy/b", false},
		{"C:/a/**/b/*", "C:/a/b/b", true},
		{"C:/a/**/b/*", "C:/a/d/e/b/x", true},
		{"C:/a/**/b/*", "C:/a/d/e/b", false},
		{"C:/a/**/b/*", `C:\a\c\b\x`, true},
		{"/photos/**/2020", "/photos/2020", true},
		{"/photos/**/2020", "/photos/x/y/2020", true},
		{"/photos/**/2020", "/photos/x/y/2021", false},
		{"**", "anything/at/all", true},
		{"a/b", "a/b/c", false},
		{"C:/", "C:", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, MustParse(tt.pattern).Match(tt.path))
		})
	}
}

func collect(t *testing.T, seq func(func(string, error) bool)) []string {
	t.Helper()
	var out []string
	for p, err := range seq {
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestGetFilesTraversalScenario(t *testing.T) {
	fs := fsys.NewMem().
		AddFile("C:/a/b/b/x").
		AddFile("C:/a/c/b/x").
		AddFile("C:/a/d/e/b/x")

	m, err := NewMatcher(fs, MustParse("C:/a/**/b/*"))
	require.NoError(t, err)

	got := collect(t, m.GetFiles(context.Background()))
	sort.Strings(got)
	require.Equal(t, []string{"C:/a/b/b/x", "C:/a/c/b/x", "C:/a/d/e/b/x"}, got)
}

func fixture() *fsys.Mem {
	return fsys.NewMem().
		AddDir("r/a/b/c").
		AddDir("r/a/b/b/b").
		AddDir("r/a/x/b").
		AddDir("r/b").
		AddDir("r/y/z/a/b").
		AddDir("r/q")
}

func allDirs(fs *fsys.Mem, root string) []string {
	var out []string
	var visit func(string)
	visit = func(dir string) {
		out = append(out, dir)
		children, _ := fs.EnumerateDirectories(dir, "*")
		for _, c := range children {
			visit(c)
		}
	}
	visit(root)
	return out
}

func TestGetDirectoriesAgreesWithMatch(t *testing.T) {
	fs := fixture()
	patterns := []string{
		"r/**",
		"r/**/b",
		"r/**/b/**",
		"r/*/b",
		"r/a/**/b/*",
		"r/**/a/**/b",
		"r/?",
		"r/a/b",
		"r/missing/**",
	}

	for _, pattern := range patterns {
		t.Run(pattern, func(t *testing.T) {
			p := MustParse(pattern)
			m, err := NewMatcher(fs, p)
			require.NoError(t, err)

			got := collect(t, m.GetDirectories(context.Background()))

			seen := map[string]bool{}
			for _, d := range got {
				require.False(t, seen[d], "duplicate %s", d)
				seen[d] = true
			}

			var want []string
			for _, d := range allDirs(fs, "r") {
				if p.Match(d) {
					want = append(want, d)
				}
			}
			sort.Strings(got)
			sort.Strings(want)
			require.Equal(t, want, got)
		})
	}
}

func TestGetDirectoriesSkipsHiddenEntries(t *testing.T) {
	fs := fsys.NewMem().
		AddDir("r/visible/b").
		AddDir("r/.cache", fsys.AttrHidden).
		AddDir("r/.cache/b").
		AddDir("r/sys", fsys.AttrSystem)

	m, err := NewMatcher(fs, MustParse("r/**"))
	require.NoError(t, err)
	require.Equal(t, []string{"r", "r/visible", "r/visible/b"}, collect(t, m.GetDirectories(context.Background())))

	// literal probes are not subject to the hidden filter
	m, err = NewMatcher(fs, MustParse("r/.cache/*"))
	require.NoError(t, err)
	require.Equal(t, []string{"r/.cache/b"}, collect(t, m.GetDirectories(context.Background())))

	m, err = NewMatcher(fs, MustParse("r/*"), WithHidden(0))
	require.NoError(t, err)
	require.Equal(t, []string{"r/.cache", "r/sys", "r/visible"}, collect(t, m.GetDirectories(context.Background())))
}

func TestGetDirectoriesVisitsParentBeforeChildren(t *testing.T) {
	m, err := NewMatcher(fixture(), MustParse("r/a/**"))
	require.NoError(t, err)
	require.Equal(t, []string{
		"r/a",
		"r/a/b",
		"r/a/b/b",
		"r/a/b/b/b",
		"r/a/b/c",
		"r/a/x",
		"r/a/x/b",
	}, collect(t, m.GetDirectories(context.Background())))
}

func TestGetDirectoriesUsesInjectedOrder(t *testing.T) {
	reverse := func(a, b string) int { return strings.Compare(b, a) }
	m, err := NewMatcher(fixture(), MustParse("r/*"), WithOrder(reverse))
	require.NoError(t, err)
	require.Equal(t, []string{"r/y", "r/q", "r/b", "r/a"}, collect(t, m.GetDirectories(context.Background())))
}

func TestGetDirectoriesCancellation(t *testing.T) {
	fs := fsys.NewMem()
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		fs.AddDir("r/" + d + "/1")
	}
	m, err := NewMatcher(fs, MustParse("r/**"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []string
	var gotErr error
	for p, err := range m.GetDirectories(ctx) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, p)
		if len(got) == 2 {
			cancel()
		}
	}
	require.ErrorIs(t, gotErr, context.Canceled)
	require.Len(t, got, 2)
}

func TestNewMatcherRejectsNilArguments(t *testing.T) {
	_, err := NewMatcher(nil, MustParse("a"))
	require.Error(t, err)
	_, err = NewMatcher(fsys.NewMem(), nil)
	require.Error(t, err)
}
