// Package obstacle implements the static scene that boids cast rays against.
//
// Shapes are two-sided: a ray leaving the inside of a box or a sphere hits its
// walls, which is how the bounding volume of the flock keeps boids in.
package obstacle

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Ray is a half line. Dir is expected to be a unit vector so that the
// distances returned by shapes are world distances.
type Ray struct {
	Origin geometry.Vector3D
	Dir    geometry.Vector3D
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) geometry.Vector3D {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Shape is a static surface a ray can hit.
type Shape interface {
	// Intersect returns the nearest hit distance within [near, far].
	Intersect(r Ray, near, far float64) (t float64, ok bool)
}

func inRange(t, near, far float64) bool {
	return t >= near && t <= far
}

// Plane is an infinite plane through Point with the given Normal.
type Plane struct {
	Point  geometry.Vector3D
	Normal geometry.Vector3D
}

// Intersect returns the distance to the plane, if crossed within [near, far].
func (p Plane) Intersect(r Ray, near, far float64) (float64, bool) {
	denom := r.Dir.Dot(p.Normal)
	if math.Abs(denom) < geometry.Epsilon {
		return 0, false
	}
	t := p.Point.Sub(r.Origin).Dot(p.Normal) / denom
	return t, inRange(t, near, far)
}

// Sphere is the surface of a ball.
type Sphere struct {
	Center geometry.Vector3D
	Radius float64
}

// Intersect returns the nearest crossing of the sphere surface within
// [near, far].
func (s Sphere) Intersect(r Ray, near, far float64) (float64, bool) {
	oc := r.Origin.Sub(s.Center)
	b := oc.Dot(r.Dir)
	c := oc.LenSqr() - s.Radius*s.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	for _, t := range [2]float64{-b - sq, -b + sq} {
		if inRange(t, near, far) {
			return t, true
		}
	}
	return 0, false
}

// Box is the surface of an axis-aligned box.
type Box struct {
	Min geometry.Vector3D
	Max geometry.Vector3D
}

// NewBoundary returns the cube of the given edge length centred on center.
func NewBoundary(center geometry.Vector3D, size float64) Box {
	h := geometry.Vector3D{X: size / 2, Y: size / 2, Z: size / 2}
	return Box{Min: center.Sub(h), Max: center.Add(h)}
}

// Intersect uses the slab method. Both the entry and the exit faces count.
func (b Box) Intersect(r Ray, near, far float64) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	o := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float64{r.Dir.X, r.Dir.Y, r.Dir.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < geometry.Epsilon {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	for _, t := range [2]float64{tmin, tmax} {
		if inRange(t, near, far) {
			return t, true
		}
	}
	return 0, false
}

// Triangle is a single face, hit from both sides.
type Triangle struct {
	A, B, C geometry.Vector3D
}

// Intersect implements the Möller–Trumbore test.
func (tr Triangle) Intersect(r Ray, near, far float64) (float64, bool) {
	e1 := tr.B.Sub(tr.A)
	e2 := tr.C.Sub(tr.A)
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < geometry.Epsilon {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(tr.A)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	return t, inRange(t, near, far)
}
