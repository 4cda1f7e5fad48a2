// Package stats ranks directories by how likely they are to contain files
// satisfying a predicate, using attribute frequencies from the cache.
package stats

import (
	"slices"
	"strings"
)

// SubsetTable interns canonical attribute-name subsets. Index 0 is always
// the empty subset. Indices are stable for the lifetime of the table.
type SubsetTable struct {
	ids     map[string]int
	subsets [][]string
}

// NewSubsetTable returns a table holding only the empty subset.
func NewSubsetTable() *SubsetTable {
	return &SubsetTable{
		ids:     map[string]int{"": 0},
		subsets: [][]string{nil},
	}
}

// Intern returns the index of the subset made of names, adding it if it is
// new. Order and duplicates in names do not matter.
func (t *SubsetTable) Intern(names []string) int {
	canonical := canonicalize(names)
	key := strings.Join(canonical, "\x00")
	if id, ok := t.ids[key]; ok {
		return id
	}
	id := len(t.subsets)
	t.ids[key] = id
	t.subsets = append(t.subsets, canonical)
	return id
}

// Lookup returns the index of an already interned subset.
func (t *SubsetTable) Lookup(names []string) (int, bool) {
	id, ok := t.ids[strings.Join(canonicalize(names), "\x00")]
	return id, ok
}

// Len returns the number of interned subsets, including the empty one.
func (t *SubsetTable) Len() int { return len(t.subsets) }

// Subset returns the sorted names of subset id.
func (t *SubsetTable) Subset(id int) []string {
	return slices.Clone(t.subsets[id])
}

// containing returns the ids of every subset that includes name.
func (t *SubsetTable) containing(name string) []uint32 {
	var ids []uint32
	for id, subset := range t.subsets {
		if _, ok := slices.BinarySearch(subset, name); ok {
			ids = append(ids, uint32(id))
		}
	}
	return ids
}

func canonicalize(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}
