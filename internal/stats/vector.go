package stats

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/trylock/viewer-sub003/internal/expr"
)

// Vector computes the priority bit-vector of n: bit i is set when n is
// plausibly non-null for files whose relevant attributes are exactly
// subset i of table.
//
// And, Or and Not map to intersection, union and complement. Every other
// node is assumed to be null iff one of its arguments is null, so it takes
// the intersection of its children. That assumption is an approximation.
func Vector(n expr.Node, table *SubsetTable) *roaring.Bitmap {
	size := uint64(table.Len())
	switch n := n.(type) {
	case *expr.Constant:
		return full(size)

	case *expr.Attribute:
		return roaring.BitmapOf(table.containing(n.Name)...)

	case *expr.And:
		return roaring.And(Vector(n.Left, table), Vector(n.Right, table))

	case *expr.Or:
		return roaring.Or(Vector(n.Left, table), Vector(n.Right, table))

	case *expr.Not:
		return roaring.Flip(Vector(n.Operand, table), 0, size)

	case *expr.Call, *expr.Binary, *expr.Unary:
		bits := full(size)
		for _, c := range expr.Children(n) {
			bits.And(Vector(c, table))
		}
		return bits
	}
	panic(fmt.Sprintf("stats: unknown node type %T", n))
}

func full(size uint64) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, size)
	return bm
}
