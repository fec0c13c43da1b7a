package obstacle

import (
	"sort"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Layers is a bit mask of the layers an object belongs to.
type Layers uint32

const (
	// LayerDefault holds decorative geometry.
	LayerDefault Layers = 1 << iota
	// LayerObstacle holds the geometry boids avoid.
	LayerObstacle
	// LayerFlock holds the boids themselves, so rays never hit the flock.
	LayerFlock
)

// Test reports whether l and other share at least one layer.
func (l Layers) Test(other Layers) bool {
	return l&other != 0
}

type object struct {
	shape  Shape
	layers Layers
}

// Hit is one ray intersection.
type Hit struct {
	Distance float64
	Point    geometry.Vector3D
	Shape    Shape
}

// Scene is the static, in-memory set of surfaces of the world.
// It is read-only while a tick runs and safe for concurrent queries.
type Scene struct {
	objects []object
	mask    Layers
}

// NewScene returns an empty scene whose queries see the obstacle layer.
func NewScene() *Scene {
	return &Scene{mask: LayerObstacle}
}

// SetMask changes the layers seen by queries.
func (s *Scene) SetMask(mask Layers) {
	s.mask = mask
}

// Add registers a shape on the given layers.
func (s *Scene) Add(shape Shape, layers Layers) {
	s.objects = append(s.objects, object{shape: shape, layers: layers})
}

// AddObstacle registers a shape on the obstacle layer.
func (s *Scene) AddObstacle(shape Shape) {
	s.Add(shape, LayerObstacle)
}

// Len returns the number of shapes, all layers included.
func (s *Scene) Len() int {
	return len(s.objects)
}

func (s *Scene) ray(origin, direction geometry.Vector3D) (Ray, bool) {
	if direction.IsZero() {
		return Ray{}, false
	}
	return Ray{Origin: origin, Dir: direction.Normalize()}, true
}

// Intersects reports whether the ray from origin along direction hits any
// visible shape at a distance in [near, far]. A zero direction never hits.
func (s *Scene) Intersects(origin, direction geometry.Vector3D, near, far float64) bool {
	r, ok := s.ray(origin, direction)
	if !ok {
		return false
	}
	for _, o := range s.objects {
		if !o.layers.Test(s.mask) {
			continue
		}
		if _, hit := o.shape.Intersect(r, near, far); hit {
			return true
		}
	}
	return false
}

// Hits returns the nearest hit of every visible shape, closest first.
func (s *Scene) Hits(origin, direction geometry.Vector3D, near, far float64) []Hit {
	r, ok := s.ray(origin, direction)
	if !ok {
		return nil
	}
	var hits []Hit
	for _, o := range s.objects {
		if !o.layers.Test(s.mask) {
			continue
		}
		if t, hit := o.shape.Intersect(r, near, far); hit {
			hits = append(hits, Hit{Distance: t, Point: r.At(t), Shape: o.shape})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}
