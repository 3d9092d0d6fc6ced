// Package cellset implements the visible-cell-set abstraction: a small
// interface with a sparse (hash set) and a dense (bitset) backing, so
// the Coverage Selector can treat either uniformly. The choice is
// explicit because the selector needs random-access set algebra
// (difference size, union) across thousands of candidates at once.
package cellset

// Index addresses one cell of the frame by its flattened (row, col).
type Index int64

// Pack combines a (row, col) pair into a single Index given the frame's
// column count.
func Pack(row, col, cols int) Index { return Index(int64(row)*int64(cols) + int64(col)) }

// Unpack recovers (row, col) from an Index.
func Unpack(idx Index, cols int) (row, col int) {
	return int(int64(idx) / int64(cols)), int(int64(idx) % int64(cols))
}

// Set is the uniform interface the Coverage Selector and Polygon Builder
// use regardless of backing representation.
type Set interface {
	Contains(Index) bool
	Add(Index)
	Len() int
	// DifferenceSize returns |s \ other| without allocating the
	// difference, the Coverage Selector's hot-path operation.
	DifferenceSize(other Set) int
	// UnionInto adds every member of s into dst.
	UnionInto(dst Set)
	// Each calls fn once per member index. Iteration order is
	// unspecified.
	Each(fn func(Index))
}

// DenseThreshold is the default cell-count threshold below which New
// picks a sparse set and above which it picks a dense bitset backed to
// frameSize bits.
const DenseThreshold = 4096

// New picks a sparse or dense Set for an expected cardinality `hint`
// over a universe of `frameSize` cells.
func New(hint, frameSize int) Set {
	if hint > 0 && hint < DenseThreshold {
		return NewSparse(hint)
	}
	return NewDense(frameSize)
}

// Sparse is a hash-set backed implementation, efficient for small
// visible-cell sets (distant or heavily occluded candidates).
type Sparse struct {
	m map[Index]struct{}
}

func NewSparse(hint int) *Sparse {
	return &Sparse{m: make(map[Index]struct{}, hint)}
}

func (s *Sparse) Contains(i Index) bool { _, ok := s.m[i]; return ok }
func (s *Sparse) Add(i Index)           { s.m[i] = struct{}{} }
func (s *Sparse) Len() int              { return len(s.m) }

func (s *Sparse) DifferenceSize(other Set) int {
	n := 0
	for i := range s.m {
		if !other.Contains(i) {
			n++
		}
	}
	return n
}

func (s *Sparse) UnionInto(dst Set) {
	for i := range s.m {
		dst.Add(i)
	}
}

func (s *Sparse) Each(fn func(Index)) {
	for i := range s.m {
		fn(i)
	}
}

// Dense is a bitset backed implementation over a fixed universe of
// frameSize cells, efficient for large visible-cell sets once the frame
// is large enough that a map's per-entry overhead would dominate memory
// over the candidates*(rows*cols/8) bytes a bitset costs.
type Dense struct {
	bits []uint64
	n    int // cached popcount, maintained incrementally
}

func NewDense(frameSize int) *Dense {
	words := (frameSize + 63) / 64
	if words == 0 {
		words = 1
	}
	return &Dense{bits: make([]uint64, words)}
}

func (d *Dense) Contains(i Index) bool {
	w, b := i/64, uint(i%64)
	if int(w) >= len(d.bits) {
		return false
	}
	return d.bits[w]&(1<<b) != 0
}

func (d *Dense) Add(i Index) {
	w, b := i/64, uint(i%64)
	if int(w) >= len(d.bits) {
		return
	}
	mask := uint64(1) << b
	if d.bits[w]&mask == 0 {
		d.bits[w] |= mask
		d.n++
	}
}

func (d *Dense) Len() int { return d.n }

func (d *Dense) DifferenceSize(other Set) int {
	if od, ok := other.(*Dense); ok && len(od.bits) == len(d.bits) {
		n := 0
		for i, w := range d.bits {
			n += popcount(w &^ od.bits[i])
		}
		return n
	}
	n := 0
	d.Each(func(i Index) {
		if !other.Contains(i) {
			n++
		}
	})
	return n
}

func (d *Dense) UnionInto(dst Set) {
	if od, ok := dst.(*Dense); ok && len(od.bits) == len(d.bits) {
		for i, w := range d.bits {
			merged := od.bits[i] | w
			od.n += popcount(merged &^ od.bits[i])
			od.bits[i] = merged
		}
		return
	}
	d.Each(dst.Add)
}

func (d *Dense) Each(fn func(Index)) {
	for wi, w := range d.bits {
		for w != 0 {
			b := trailingZeros64(w)
			fn(Index(wi)*64 + Index(b))
			w &= w - 1
		}
	}
}

func popcount(x uint64) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}

func trailingZeros64(x uint64) int {
	if x == 0 {
		return 64
	}
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}
