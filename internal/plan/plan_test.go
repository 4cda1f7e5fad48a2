package plan

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/expr"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/funcs"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/value"
)

// memLoader serves entities with fixed attributes.
type memLoader struct {
	attrs map[string]map[string]value.Value
	fail  map[string]bool
}

func (l memLoader) Load(path string) (entity.Entity, error) {
	if l.fail[path] {
		return nil, fmt.Errorf("%s: malformed", path)
	}
	var list []entity.Attribute
	for name, v := range l.attrs[path] {
		list = append(list, entity.Attribute{Name: name, Value: v, Source: entity.SourceMetadata})
	}
	return entity.NewFile(path, list), nil
}

// recorder captures progress events.
type recorder struct {
	events []string
}

func (r *recorder) BeginExecution()       { r.events = append(r.events, "begin") }
func (r *recorder) Folder(p string)       { r.events = append(r.events, "folder "+p) }
func (r *recorder) BeginLoading(p string) { r.events = append(r.events, "load "+p) }
func (r *recorder) EndLoading(p string)   { r.events = append(r.events, "loaded "+p) }
func (r *recorder) EndExecution()         { r.events = append(r.events, "end") }

func newEnv(fs fsys.FileSystem, loader entity.Loader) *Environment {
	return &Environment{
		FS:     fs,
		Loader: loader,
		Hidden: glob.DefaultHidden,
		Funcs:  funcs.Default(),
	}
}

func paths(t *testing.T, q Query) []string {
	t.Helper()
	results, err := Collect(q.Execute(context.Background(), NopProgress{}))
	require.NoError(t, err)
	out := make([]string, len(results))
	for i, e := range results {
		out[i] = e.Path()
	}
	return out
}

func mustSelect(t *testing.T, env *Environment, pattern string) *Select {
	t.Helper()
	s, err := NewSelect(env, pattern)
	require.NoError(t, err)
	return s
}

func gt(name string, n int64) expr.Node {
	return &expr.Binary{Op: ">", Left: &expr.Attribute{Name: name}, Right: &expr.Constant{Value: value.Int(n)}}
}

func TestSelect(t *testing.T) {
	fs := fsys.NewMem().
		AddFile("lib/a/1.jpg").
		AddFile("lib/a/2.JPEG").
		AddFile("lib/a/notes.txt").
		AddFile("lib/a/.secret.jpg", fsys.AttrHidden).
		AddDir("lib/a/sub").
		AddDir("lib/a/.cache", fsys.AttrHidden).
		AddFile("lib/b/3.jpg")
	env := newEnv(fs, memLoader{})

	s := mustSelect(t, env, "lib/a")
	require.Equal(t, []string{"lib/a/1.jpg", "lib/a/2.JPEG", "lib/a/sub"}, paths(t, s))
	require.Equal(t, `select "lib/a"`, s.Text())

	require.True(t, s.Match(entity.NewFile("lib/a/1.jpg", nil)))
	require.True(t, s.Match(entity.NewDirectory("lib/a/sub")))
	require.False(t, s.Match(entity.NewFile("lib/a/notes.txt", nil)))
	require.False(t, s.Match(entity.NewFile("lib/a/.secret.jpg", nil)))
	require.False(t, s.Match(entity.NewFile("lib/b/3.jpg", nil)))

	all := mustSelect(t, env, "lib/*")
	require.Equal(t, []string{"lib/a/1.jpg", "lib/a/2.JPEG", "lib/a/sub", "lib/b/3.jpg"}, paths(t, all))
}

func TestSelectMatchIgnoresHiddenAncestors(t *testing.T) {
	fs := fsys.NewMem().
		AddDir("lib/.h", fsys.AttrHidden).
		AddFile("lib/.h/x.jpg").
		AddFile("lib/a/1.jpg")
	env := newEnv(fs, memLoader{})

	all := mustSelect(t, env, "lib/**")
	require.Equal(t, []string{"lib/a", "lib/a/1.jpg"}, paths(t, all))

	// only the entry itself is checked for the hidden flag
	hidden := entity.NewFile("lib/.h/x.jpg", nil)
	require.True(t, all.Match(hidden))

	explicit := mustSelect(t, env, "lib/.h")
	require.Equal(t, []string{"lib/.h/x.jpg"}, paths(t, explicit))

	except, err := NewExcept(explicit, all)
	require.NoError(t, err)
	require.Empty(t, paths(t, except))
}

func TestSelectRejectsBadArguments(t *testing.T) {
	env := newEnv(fsys.NewMem(), memLoader{})

	_, err := NewSelect(env, "a/<b>")
	require.ErrorIs(t, err, glob.ErrInvalidPattern)

	_, err = NewSelect(nil, "a")
	require.Error(t, err)

	_, err = NewSelect(&Environment{FS: fsys.NewMem()}, "a")
	require.Error(t, err)
}

func TestSelectSkipsUnloadableFiles(t *testing.T) {
	fs := fsys.NewMem().AddFile("dir/a.jpg").AddFile("dir/b.jpg").AddFile("dir/c.jpg")
	env := newEnv(fs, memLoader{fail: map[string]bool{"dir/b.jpg": true}})
	require.Equal(t, []string{"dir/a.jpg", "dir/c.jpg"}, paths(t, mustSelect(t, env, "dir")))
}

func TestWhereThreeValued(t *testing.T) {
	fs := fsys.NewMem().AddFile("dir/a.jpg").AddFile("dir/b.jpg")
	loader := memLoader{attrs: map[string]map[string]value.Value{
		"dir/a.jpg": {"x": value.Int(1)},
	}}
	env := newEnv(fs, loader)
	src := mustSelect(t, env, "dir")

	w, err := NewWhere(env, src, gt("x", 0))
	require.NoError(t, err)
	require.Equal(t, []string{"dir/a.jpg"}, paths(t, w))
	require.Equal(t, `select "dir" where x > 0`, w.Text())

	not, err := NewWhere(env, src, &expr.Not{Operand: gt("x", 0)})
	require.NoError(t, err)
	require.Empty(t, paths(t, not))
	require.False(t, not.Match(entity.NewFile("dir/b.jpg", nil)))
}

func TestWhereExcludesEvaluationErrors(t *testing.T) {
	fs := fsys.NewMem().AddFile("dir/a.jpg").AddFile("dir/b.jpg")
	loader := memLoader{attrs: map[string]map[string]value.Value{
		"dir/a.jpg": {"x": value.Int(1)},
		"dir/b.jpg": {"x": value.String("one")},
	}}
	env := newEnv(fs, loader)
	w, err := NewWhere(env, mustSelect(t, env, "dir"), gt("x", 0))
	require.NoError(t, err)
	require.Equal(t, []string{"dir/a.jpg"}, paths(t, w))
}

func setFixture(t *testing.T) (*Environment, Query, Query) {
	t.Helper()
	fs := fsys.NewMem()
	attrs := map[string]map[string]value.Value{}
	for i := 0; i < 6; i++ {
		p := fmt.Sprintf("lib/%d.jpg", i)
		fs.AddFile(p)
		attrs[p] = map[string]value.Value{"n": value.Int(int64(i))}
	}
	env := newEnv(fs, memLoader{attrs: attrs})
	src := mustSelect(t, env, "lib")

	// a: n > 1, b: n < 4
	a, err := NewWhere(env, src, gt("n", 1))
	require.NoError(t, err)
	b, err := NewWhere(env, src, &expr.Binary{Op: "<", Left: &expr.Attribute{Name: "n"}, Right: &expr.Constant{Value: value.Int(4)}})
	require.NoError(t, err)
	return env, a, b
}

func TestSetOperators(t *testing.T) {
	_, a, b := setFixture(t)

	union, err := NewUnion(a, b)
	require.NoError(t, err)
	except, err := NewExcept(a, b)
	require.NoError(t, err)
	intersect, err := NewIntersect(a, b)
	require.NoError(t, err)

	sorted := func(q Query) []string {
		out := paths(t, q)
		slices.Sort(out)
		return out
	}

	require.Equal(t, []string{"lib/0.jpg", "lib/1.jpg", "lib/2.jpg", "lib/3.jpg", "lib/4.jpg", "lib/5.jpg"}, sorted(union))
	require.Equal(t, []string{"lib/4.jpg", "lib/5.jpg"}, sorted(except))
	require.Equal(t, []string{"lib/2.jpg", "lib/3.jpg"}, sorted(intersect))

	// each identity exactly once
	for _, q := range []Query{union, except, intersect} {
		out := paths(t, q)
		require.Len(t, slices.Compact(sorted(q)), len(out))
	}

	for i := 0; i < 6; i++ {
		e := entity.NewFile(fmt.Sprintf("lib/%d.jpg", i), []entity.Attribute{{Name: "n", Value: value.Int(int64(i))}})
		require.Equal(t, a.Match(e) || b.Match(e), union.Match(e))
		require.Equal(t, a.Match(e) && !b.Match(e), except.Match(e))
		require.Equal(t, a.Match(e) && b.Match(e), intersect.Match(e))
	}

	require.Equal(t, `select "lib" where n > 1 union select "lib" where n < 4`, union.Text())

	nested, err := NewExcept(a, union)
	require.NoError(t, err)
	require.Equal(t, `select "lib" where n > 1 except select (select "lib" where n > 1 union select "lib" where n < 4)`, nested.Text())
}

func TestOrdered(t *testing.T) {
	env, a, _ := setFixture(t)

	o, err := NewOrdered(env, a, []OrderKey{{Expr: &expr.Attribute{Name: "n"}, Desc: true}})
	require.NoError(t, err)
	require.Equal(t, `select "lib" where n > 1 order by n desc`, o.Text())

	results, err := Collect(o.Execute(context.Background(), nil))
	require.NoError(t, err)
	Sort(results, o.Comparer())

	var got []string
	for _, e := range results {
		got = append(got, e.Path())
	}
	require.Equal(t, []string{"lib/5.jpg", "lib/4.jpg", "lib/3.jpg", "lib/2.jpg"}, got)
}

func TestView(t *testing.T) {
	_, a, _ := setFixture(t)
	v, err := NewView("big", a)
	require.NoError(t, err)
	require.Equal(t, "big", v.Text())
	require.Equal(t, paths(t, a), paths(t, v))

	keyword, err := NewView("select", a)
	require.NoError(t, err)
	require.Equal(t, "`select`", keyword.Text())
}

// treeFixture is a directory tree where x is only set deep in one branch.
func treeFixture() (*fsys.Mem, memLoader) {
	fs := fsys.NewMem()
	attrs := map[string]map[string]value.Value{}
	for _, d := range []string{"a", "b", "c"} {
		for _, sub := range []string{"1", "2"} {
			for i := 0; i < 3; i++ {
				p := fmt.Sprintf("lib/%s/%s/%d.jpg", d, sub, i)
				fs.AddFile(p)
				if d == "c" || i == 0 {
					attrs[p] = map[string]value.Value{"x": value.Int(int64(i + 1))}
				}
			}
		}
	}
	return fs, memLoader{attrs: attrs}
}

func TestWhereResultSetIndependentOfOrder(t *testing.T) {
	fs, loader := treeFixture()
	env := newEnv(fs, loader)
	w, err := NewWhere(env, mustSelect(t, env, "lib/**"), gt("x", 1))
	require.NoError(t, err)

	want := paths(t, w)
	slices.Sort(want)
	require.Len(t, want, 4)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		random := func(a, b string) int { return rnd.Intn(3) - 1 }
		results, err := Collect(w.ExecuteDirected(context.Background(), nil, random))
		require.NoError(t, err)
		var got []string
		for _, e := range results {
			got = append(got, e.Path())
		}
		slices.Sort(got)
		require.Equal(t, want, got)
	}
}

// statsSource derives statistics from the loader fixture.
type statsSource struct {
	loader memLoader
	files  []string
}

func (s statsSource) DirectoryFileCounts(_ context.Context, root string) (map[string]int, error) {
	counts := map[string]int{}
	for _, f := range s.files {
		if strings.HasPrefix(f, root+"/") {
			counts[fsys.Dir(f)]++
		}
	}
	return counts, nil
}

func (s statsSource) FileAttributeNames(_ context.Context, root string, names []string, fn func(string, []string) error) error {
	for _, f := range s.files {
		if !strings.HasPrefix(f, root+"/") {
			continue
		}
		var present []string
		for _, n := range names {
			if _, ok := s.loader.attrs[f][n]; ok {
				present = append(present, n)
			}
		}
		if len(present) > 0 {
			if err := fn(f, present); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestWhereVisitsPromisingDirectoriesFirst(t *testing.T) {
	fs, loader := treeFixture()
	var files []string
	for p := range loader.attrs {
		files = append(files, p)
	}
	for _, d := range []string{"a", "b", "c"} {
		for _, sub := range []string{"1", "2"} {
			for i := 1; i < 3; i++ {
				if d != "c" {
					files = append(files, fmt.Sprintf("lib/%s/%s/%d.jpg", d, sub, i))
				}
			}
		}
	}
	slices.Sort(files)

	env := newEnv(fs, loader)
	env.Stats = statsSource{loader: loader, files: files}

	w, err := NewWhere(env, mustSelect(t, env, "lib/*/*"), gt("x", 1))
	require.NoError(t, err)

	got := paths(t, w)
	require.Len(t, got, 4)
	// lib/c has x on every file, so it is searched first
	require.True(t, strings.HasPrefix(got[0], "lib/c/"), got[0])
}

func TestExecuteReportsProgress(t *testing.T) {
	fs := fsys.NewMem().AddFile("dir/a.jpg").AddFile("dir/b.txt")
	env := newEnv(fs, memLoader{})
	rec := &recorder{}

	_, err := Collect(Execute(context.Background(), mustSelect(t, env, "dir"), rec))
	require.NoError(t, err)
	require.Equal(t, []string{"begin", "folder dir", "load dir/a.jpg", "loaded dir/a.jpg", "end"}, rec.events)
}

func TestCancellation(t *testing.T) {
	fs := fsys.NewMem()
	for i := 0; i < 10; i++ {
		fs.AddFile(fmt.Sprintf("lib/d%d/a.jpg", i))
	}
	env := newEnv(fs, memLoader{})
	s := mustSelect(t, env, "lib/*")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []entity.Entity
	var final error
	for e, err := range s.Execute(ctx, NopProgress{}) {
		if err != nil {
			final = err
			break
		}
		got = append(got, e)
		if len(got) == 2 {
			cancel()
		}
	}
	require.ErrorIs(t, final, context.Canceled)
	require.Len(t, got, 2)
}

func TestCommonRoot(t *testing.T) {
	tests := []struct {
		patterns []string
		want     string
	}{
		{[]string{"lib/a/*"}, "lib/a"},
		{[]string{"lib/a/*", "lib/b"}, "lib"},
		{[]string{"lib/a/**", "lib/a/b/*"}, "lib/a"},
		{[]string{"lib/a", "other"}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		var ps []*glob.Pattern
		for _, p := range tt.patterns {
			ps = append(ps, glob.MustParse(p))
		}
		require.Equal(t, tt.want, commonRoot(ps), tt.patterns)
	}
}
