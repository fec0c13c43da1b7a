// Package spatial provides the uniform grid hash used as the broad phase of
// neighbour queries.
package spatial

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Key identifies a bucket: each coordinate floored and shifted right by the
// cell exponent, so a bucket is a cube of edge 2^shift.
type Key struct {
	X, Y, Z int
}

// Cell is the bucket registration an item carries around.
type Cell struct {
	Key     Key
	Indexed bool
}

// Item is anything the grid can index. The grid stores the bucket key on the
// item itself through GridCell.
type Item interface {
	comparable
	Position() geometry.Vector3D
	GridCell() *Cell
}

// Grid maps buckets to the items currently inside them.
// It is not safe for concurrent mutation.
type Grid[T Item] struct {
	shift   uint
	buckets map[Key][]T
	count   int

	// bounding box of every allocated bucket key
	min, max Key
}

// maxCoord bounds the coordinates fed to the key computation so that
// non-finite or huge values still map to a defined bucket.
const maxCoord = 1 << 52

// NewGrid creates a grid with buckets of edge 2^shift and pre-populates the
// buckets covering the cube origin ± extent. Buckets outside are created on
// demand.
func NewGrid[T Item](shift uint, origin geometry.Vector3D, extent float64) *Grid[T] {
	g := &Grid[T]{
		shift:   shift,
		buckets: make(map[Key][]T),
	}
	if extent > 0 {
		lo, hi := g.keyRange(origin, extent)
		forKeys(lo, hi, func(k Key) {
			g.allocate(k)
		})
	}
	return g
}

// CellSize returns the edge length of a bucket.
func (g *Grid[T]) CellSize() float64 {
	return float64(int(1) << g.shift)
}

// Len returns the number of indexed items.
func (g *Grid[T]) Len() int {
	return g.count
}

// Buckets returns the number of allocated buckets, empty ones included.
func (g *Grid[T]) Buckets() int {
	return len(g.buckets)
}

// KeyOf returns the bucket key of a point.
func (g *Grid[T]) KeyOf(p geometry.Vector3D) Key {
	return Key{X: g.coord(p.X), Y: g.coord(p.Y), Z: g.coord(p.Z)}
}

func (g *Grid[T]) coord(v float64) int {
	switch {
	case math.IsNaN(v):
		v = 0
	case v > maxCoord:
		v = maxCoord
	case v < -maxCoord:
		v = -maxCoord
	}
	return int(math.Floor(v)) >> g.shift
}

func (g *Grid[T]) allocate(k Key) {
	if len(g.buckets) == 0 {
		g.min, g.max = k, k
	} else {
		g.min = Key{X: min(g.min.X, k.X), Y: min(g.min.Y, k.Y), Z: min(g.min.Z, k.Z)}
		g.max = Key{X: max(g.max.X, k.X), Y: max(g.max.Y, k.Y), Z: max(g.max.Z, k.Z)}
	}
	g.buckets[k] = make([]T, 0, 4)
}

// Insert registers item under the bucket of its current position.
// Inserting an item that is already indexed moves it.
func (g *Grid[T]) Insert(item T) {
	if item.GridCell().Indexed {
		g.Remove(item)
	}
	g.insertAt(item, g.KeyOf(item.Position()))
}

func (g *Grid[T]) insertAt(item T, k Key) {
	c := item.GridCell()
	c.Key = k
	c.Indexed = true
	if _, ok := g.buckets[k]; !ok {
		g.allocate(k)
	}
	g.buckets[k] = append(g.buckets[k], item)
	g.count++
}

// Remove deletes item from the bucket of its stored key.
// It returns false, and does nothing, when the item is not indexed.
func (g *Grid[T]) Remove(item T) bool {
	c := item.GridCell()
	if !c.Indexed {
		return false
	}
	bucket := g.buckets[c.Key]
	for i, other := range bucket {
		if other != item {
			continue
		}
		last := len(bucket) - 1
		bucket[i] = bucket[last]
		var zero T
		bucket[last] = zero
		g.buckets[c.Key] = bucket[:last]
		c.Indexed = false
		g.count--
		return true
	}
	c.Indexed = false
	return false
}

// Update moves item to the bucket of its current position.
// It returns true only when the item changed bucket. Items that are not
// indexed are left alone.
func (g *Grid[T]) Update(item T) bool {
	c := item.GridCell()
	if !c.Indexed {
		return false
	}
	k := g.KeyOf(item.Position())
	if k == c.Key {
		return false
	}
	g.Remove(item)
	g.insertAt(item, k)
	return true
}

// Retrieve returns the items of every bucket touched by the cube
// [point - radius, point + radius]. It is a broad phase: items may be up to
// about radius*sqrt(3) plus a cell diagonal away.
func (g *Grid[T]) Retrieve(point geometry.Vector3D, radius float64) []T {
	return g.RetrieveInto(nil, point, radius)
}

// RetrieveInto appends the broad phase candidates to dst and returns it.
// Reuse dst across calls to avoid allocations. The key range visited is
// clipped to the buckets allocated so far, so a huge radius costs no more
// than a scan of the whole grid.
func (g *Grid[T]) RetrieveInto(dst []T, point geometry.Vector3D, radius float64) []T {
	if len(g.buckets) == 0 {
		return dst
	}
	lo, hi := g.keyRange(point, radius)
	lo = Key{X: max(lo.X, g.min.X), Y: max(lo.Y, g.min.Y), Z: max(lo.Z, g.min.Z)}
	hi = Key{X: min(hi.X, g.max.X), Y: min(hi.Y, g.max.Y), Z: min(hi.Z, g.max.Z)}
	forKeys(lo, hi, func(k Key) {
		dst = append(dst, g.buckets[k]...)
	})
	return dst
}

// keyRange returns the corner keys of the cube point ± offset.
func (g *Grid[T]) keyRange(point geometry.Vector3D, offset float64) (lo, hi Key) {
	d := geometry.Vector3D{X: offset, Y: offset, Z: offset}
	return g.KeyOf(point.Sub(d)), g.KeyOf(point.Add(d))
}

// forKeys visits the keys from lo to hi inclusive, x fastest.
func forKeys(lo, hi Key, fn func(Key)) {
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				fn(Key{X: x, Y: y, Z: z})
			}
		}
	}
}
