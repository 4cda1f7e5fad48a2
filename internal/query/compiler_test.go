package query

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/funcs"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/plan"
	"github.com/trylock/viewer-sub003/internal/value"
)

type memLoader map[string]map[string]value.Value

func (l memLoader) Load(path string) (entity.Entity, error) {
	var attrs []entity.Attribute
	for name, v := range l[path] {
		attrs = append(attrs, entity.Attribute{Name: name, Value: v})
	}
	return entity.NewFile(path, attrs), nil
}

type viewMap map[string]string

func (m viewMap) Lookup(name string) (string, bool) {
	text, ok := m[strings.ToLower(name)]
	return text, ok
}

// recordingListener checks the listener protocol.
type recordingListener struct {
	ErrorList
	before, after int
}

func (l *recordingListener) BeforeCompilation() {
	l.before++
	l.ErrorList.BeforeCompilation()
}

func (l *recordingListener) AfterCompilation() { l.after++ }

func newCompiler(views viewMap) *Compiler {
	fs := fsys.NewMem().
		AddFile("dir/a.jpg").
		AddFile("dir/b.jpg").
		AddFile("dir/c.jpg").
		AddFile("other/d.jpg")
	loader := memLoader{
		"dir/a.jpg":   {"x": value.Int(1), "name": value.String("Alpha")},
		"dir/b.jpg":   {"name": value.String("beta")},
		"dir/c.jpg":   {"x": value.Int(3)},
		"other/d.jpg": {"x": value.Int(2)},
	}
	env := &plan.Environment{FS: fs, Loader: loader, Hidden: glob.DefaultHidden, Funcs: funcs.Default()}
	return NewCompiler(env, WithViews(views))
}

func run(t *testing.T, q plan.Query) []string {
	t.Helper()
	results, err := plan.Collect(q.Execute(context.Background(), nil))
	require.NoError(t, err)
	plan.Sort(results, q.Comparer())
	out := make([]string, len(results))
	for i, e := range results {
		out[i] = e.Path()
	}
	return out
}

func TestCompileAndExecute(t *testing.T) {
	c := newCompiler(viewMap{
		"tagged": `select "dir" where x > 0`,
	})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"select", `select "dir"`, []string{"dir/a.jpg", "dir/b.jpg", "dir/c.jpg"}},
		{"where", `select "dir" where x > 0`, []string{"dir/a.jpg", "dir/c.jpg"}},
		{"not of missing attribute", `select "dir" where not (x > 0)`, []string{}},
		{"arithmetic", `select "dir" where x * 2 - 1 = 5`, []string{"dir/c.jpg"}},
		{"function", `select "dir" where LOWER(name) = "alpha"`, []string{"dir/a.jpg"}},
		{"or with null", `select "dir" where x = 3 or name = "beta"`, []string{"dir/b.jpg", "dir/c.jpg"}},
		{"union", `select "dir" where x = 1 union select "other"`, []string{"dir/a.jpg", "other/d.jpg"}},
		{"except", `select "dir" except select "dir" where x = 1`, []string{"dir/b.jpg", "dir/c.jpg"}},
		{"intersect", `select "*" where x >= 2 intersect select "dir"`, []string{"dir/c.jpg"}},
		{"view", `select tagged where x < 3`, []string{"dir/a.jpg"}},
		{"view as query", `tagged`, []string{"dir/a.jpg", "dir/c.jpg"}},
		{"order by", `select "*" where x > 0 order by x desc`, []string{"dir/c.jpg", "other/d.jpg", "dir/a.jpg"}},
		{"nested", `select (select "*" where x > 0) where x <> 2`, []string{"dir/a.jpg", "dir/c.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := c.Compile(tt.query, nil)
			require.NoError(t, err)
			got := run(t, q)
			require.ElementsMatch(t, tt.want, got)
			if strings.Contains(tt.query, "order by") {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCompileText(t *testing.T) {
	c := newCompiler(viewMap{"tagged": `select "dir" where x > 0`})

	tests := []struct {
		query string
		want  string
	}{
		{`SELECT "dir"`, `select "dir"`},
		{`select "dir" where (x > 0) and (name = "a")`, `select "dir" where x > 0 and name = "a"`},
		{`select "dir" where -x < -1.5`, `select "dir" where -x < -1.5`},
		{"select \"dir\" where `camera model` != \"x\"", "select \"dir\" where `camera model` <> \"x\""},
		{`tagged union select "other"`, `tagged union select "other"`},
		{`(select "a" union select "b") except select "c"`, `select (select "a" union select "b") except select "c"`},
		{`select (select "a" union select "b") where x = 1`, `select (select "a" union select "b") where x = 1`},
		{`select "dir" order by x, name desc`, `select "dir" order by x, name desc`},
		{`select "dir" order by (x > 0) desc`, `select "dir" order by (x > 0) desc`},
		{`select "dir" order by (x > 0 and name = "a"), -x`, `select "dir" order by (x > 0 and name = "a"), -x`},
		{`select "dir" order by (not x = 1), (x + 1) * 2`, `select "dir" order by (not x = 1), (x + 1) * 2`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := c.Compile(tt.query, nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, q.Text())

			// the rendered text compiles to the same text
			again, err := c.Compile(q.Text(), nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, again.Text())
		})
	}
}

func TestCompileErrors(t *testing.T) {
	c := newCompiler(viewMap{
		"loop":   `select again`,
		"again":  `select loop`,
		"broken": `select "dir" where`,
	})

	tests := []struct {
		name    string
		query   string
		line    int
		column  int
		message string
	}{
		{"syntax", `select "dir" where x >`, 1, 23, "unexpected end of input, expected an expression"},
		{"unknown view", `select missing`, 1, 8, "unknown view missing"},
		{"unknown function", `select "dir" where nope(x)`, 1, 20, "unknown function nope"},
		{"view cycle", `loop`, 1, 8, "in view again: view cycle: loop -> again -> loop"},
		{"broken view", `select broken where x = 1`, 1, 19, "in view broken: unexpected end of input, expected an expression"},
		{"invalid pattern", `select "a|b"`, 1, 8, `select "a|b": invalid path pattern: "a|b" contains an invalid path character`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &recordingListener{}
			q, err := c.Compile(tt.query, l)
			require.ErrorIs(t, err, ErrCompilation)
			require.Nil(t, q)
			require.Equal(t, 1, l.before)
			require.Equal(t, 1, l.after)
			require.Len(t, l.Errors, 1, "nested failures are reported once")
			require.Equal(t, tt.line, l.Errors[0].Line)
			require.Equal(t, tt.column, l.Errors[0].Column)
			require.Equal(t, tt.message, l.Errors[0].Message)
		})
	}
}

func TestCompileSuccessStillNotifiesListener(t *testing.T) {
	l := &recordingListener{}
	_, err := newCompiler(nil).Compile(`select "dir"`, l)
	require.NoError(t, err)
	require.Equal(t, 1, l.before)
	require.Equal(t, 1, l.after)
	require.Empty(t, l.Errors)
}

func TestCompiledPatterns(t *testing.T) {
	q, err := newCompiler(nil).Compile(`select "dir" union select "other/**" where x = 1`, nil)
	require.NoError(t, err)
	var got []string
	for _, p := range q.Patterns() {
		got = append(got, p.String())
	}
	require.True(t, slices.Equal([]string{"dir", "other/**"}, got), got)
}
