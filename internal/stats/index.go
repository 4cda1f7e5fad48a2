package stats

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/armon/go-radix"
	"github.com/rs/zerolog"

	"github.com/trylock/viewer-sub003/internal/expr"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/logging"
)

// Source provides the attribute statistics an Index is built from.
// cache.Store implements it.
type Source interface {
	// DirectoryFileCounts returns the number of files directly in each
	// directory at or below root.
	DirectoryFileCounts(ctx context.Context, root string) (map[string]int, error)

	// FileAttributeNames calls fn for every file at or below root that
	// carries at least one of names, passing the subset of names it has.
	FileAttributeNames(ctx context.Context, root string, names []string, fn func(path string, names []string) error) error
}

// Index holds per-directory counts of interned attribute subsets. Counts
// are cumulative: a directory counts every file below it.
type Index struct {
	root  string
	table *SubsetTable
	tree  *radix.Tree // directory -> []int64, one count per subset
}

type observation struct {
	dir    string
	subset int
}

// Build reads statistics for the attribute names a predicate uses from
// every file at or below root.
func Build(ctx context.Context, src Source, root string, names []string) (*Index, error) {
	root = fsys.Normalize(root)
	table := NewSubsetTable()

	var seen []observation
	if len(names) > 0 {
		err := src.FileAttributeNames(ctx, root, names, func(path string, present []string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(present) == 0 {
				return nil
			}
			seen = append(seen, observation{
				dir:    fsys.Dir(fsys.Normalize(path)),
				subset: table.Intern(present),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read attribute names: %w", err)
		}
	}

	direct, err := src.DirectoryFileCounts(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("read file counts: %w", err)
	}

	// The table is complete at this point so every vector has its final size.
	size := table.Len()
	vectors := map[string][]int64{}
	vector := func(dir string) []int64 {
		v, ok := vectors[dir]
		if !ok {
			v = make([]int64, size)
			vectors[dir] = v
		}
		return v
	}

	totals := map[string]int64{}
	for dir, n := range direct {
		for _, a := range ancestors(fsys.Normalize(dir), root) {
			totals[a] += int64(n)
		}
	}
	for _, o := range seen {
		for _, a := range ancestors(o.dir, root) {
			vector(a)[o.subset]++
		}
	}

	tree := radix.New()
	for dir, total := range totals {
		v := vector(dir)
		var known int64
		for _, n := range v[1:] {
			known += n
		}
		v[0] = max(total-known, 0)
	}
	for dir, v := range vectors {
		tree.Insert(dir, v)
	}

	log := logging.GetLogger()
	log.Debug().
		Str("root", root).
		Int("subsets", size).
		Int("directories", tree.Len()).
		Msg("built search statistics")

	return &Index{root: root, table: table, tree: tree}, nil
}

// ancestors returns dir and its parents up to and including root. It
// returns nil if dir is outside root.
func ancestors(dir, root string) []string {
	if !within(dir, root) {
		return nil
	}
	var out []string
	for {
		out = append(out, dir)
		if dir == root {
			return out
		}
		parent := fsys.Dir(dir)
		if parent == dir || parent == "" {
			return out
		}
		dir = parent
	}
}

func within(p, root string) bool {
	switch {
	case root == "":
		return true
	case p == root:
		return true
	case strings.HasSuffix(root, "/"):
		return strings.HasPrefix(p, root)
	default:
		return strings.HasPrefix(p, root+"/")
	}
}

// Root returns the directory the index was built for.
func (idx *Index) Root() string { return idx.root }

// Table returns the interning table.
func (idx *Index) Table() *SubsetTable { return idx.table }

// Counts returns the count vector of dir, or nil if there are no
// statistics for it.
func (idx *Index) Counts(dir string) []int64 {
	v, ok := idx.tree.Get(fsys.Normalize(dir))
	if !ok {
		return nil
	}
	return slices.Clone(v.([]int64))
}

// Score estimates the share of files below dir for which n is non-null.
// The result is in [0, 1]; directories without statistics score 0.
func (idx *Index) Score(n expr.Node, dir string) float64 {
	return idx.score(Vector(n, idx.table), dir)
}

func (idx *Index) score(bits *roaring.Bitmap, dir string) float64 {
	v, ok := idx.tree.Get(fsys.Normalize(dir))
	if !ok {
		return 0
	}
	counts := v.([]int64)
	var total, hits int64
	for i, c := range counts {
		total += c
		if bits.Contains(uint32(i)) {
			hits += c
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Order returns a directory order that visits directories with a higher
// score for n first. Ties go to the shallower directory, then to the
// alphabetically smaller path.
func (idx *Index) Order(n expr.Node) glob.DirectoryOrder {
	bits := Vector(n, idx.table)
	scores := map[string]float64{}
	score := func(dir string) float64 {
		s, ok := scores[dir]
		if !ok {
			s = idx.score(bits, dir)
			scores[dir] = s
		}
		return s
	}
	return func(a, b string) int {
		sa, sb := score(a), score(b)
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		if c := fsys.Depth(a) - fsys.Depth(b); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}
}

// Subtree yields dir and every directory below it that has statistics,
// in lexical order, with a copy of its count vector.
func (idx *Index) Subtree(dir string) iter.Seq2[string, []int64] {
	dir = fsys.Normalize(dir)
	return func(yield func(string, []int64) bool) {
		idx.tree.WalkPrefix(dir, func(p string, v interface{}) bool {
			// "lib/a" is a key prefix of "lib/ab" too
			if !within(p, dir) {
				return false
			}
			return !yield(p, slices.Clone(v.([]int64)))
		})
	}
}

// Log writes the count vector of every directory below the index root at
// debug level.
func (idx *Index) Log(l zerolog.Logger) {
	if l.GetLevel() > zerolog.DebugLevel {
		return
	}
	for dir, counts := range idx.Subtree(idx.root) {
		l.Debug().Str("dir", dir).Ints64("counts", counts).Msg("directory statistics")
	}
}
