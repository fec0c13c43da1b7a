package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon Precision constant.
// Lengths below Epsilon are treated as zero by Normalize and IsZero.
const (
	Epsilon = 1e-9
)

// Unit axes of the world frame. Z is "up", like the viewport of the flock.
var (
	AxisX = Vector3D{X: 1}
	AxisY = Vector3D{Y: 1}
	AxisZ = Vector3D{Z: 1}
)

// Vector3D represents a 3D vector or point in cartesian space.
// It has the same layout as gonum's r3.Vec, so the heavy lifting is delegated there
// while the simulation keeps a small value type with method syntax.
type Vector3D struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
	Z float64 `json:"z" yaml:"z" toml:"z"`
}

// NewVector creates a new Vector3D.
func NewVector(x, y, z float64) Vector3D {
	return Vector3D{X: x, Y: y, Z: z}
}

func (v Vector3D) vec() r3.Vec { return r3.Vec(v) }

// String implements the fmt.Stringer interface.
func (v Vector3D) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// ---------------------------------------------------------------------
// Arithmetic Operations
// Value receivers returning new values, like Vector2D.
// ---------------------------------------------------------------------

// Add adds two vectors and returns the result.
func (v Vector3D) Add(other Vector3D) Vector3D {
	return Vector3D(r3.Add(v.vec(), other.vec()))
}

// Sub subtracts the other vector from the current vector.
func (v Vector3D) Sub(other Vector3D) Vector3D {
	return Vector3D(r3.Sub(v.vec(), other.vec()))
}

// Mul scales the vector by a scalar value.
func (v Vector3D) Mul(scalar float64) Vector3D {
	return Vector3D(r3.Scale(scalar, v.vec()))
}

// Div scales the vector by 1/scalar.
// Dividing by zero returns an infinite vector together with an error.
func (v Vector3D) Div(scalar float64) (Vector3D, error) {
	if scalar == 0 {
		return Vector3D{math.Inf(1), math.Inf(1), math.Inf(1)}, errors.New("vector cannot be divided by zero")
	}
	return v.Mul(1 / scalar), nil
}

// Dot calculates the dot product of two vectors.
func (v Vector3D) Dot(other Vector3D) float64 {
	return r3.Dot(v.vec(), other.vec())
}

// Cross calculates the cross product v × other.
func (v Vector3D) Cross(other Vector3D) Vector3D {
	return Vector3D(r3.Cross(v.vec(), other.vec()))
}

// ---------------------------------------------------------------------
// Magnitude and Normalization
// ---------------------------------------------------------------------

// LenSqr calculates the squared magnitude of the vector. Use it for comparisons.
func (v Vector3D) LenSqr() float64 {
	return r3.Norm2(v.vec())
}

// Len calculates the magnitude (length) of the vector.
func (v Vector3D) Len() float64 {
	return r3.Norm(v.vec())
}

// IsZero reports whether the vector is shorter than Epsilon.
func (v Vector3D) IsZero() bool {
	return v.Len() < Epsilon
}

// Normalize returns a unit vector in the same direction.
// Returns a zero vector if the length is effectively zero: r3.Unit would return NaNs.
func (v Vector3D) Normalize() Vector3D {
	l := v.Len()
	if l < Epsilon {
		return Vector3D{}
	}
	return v.Mul(1 / l)
}

// WithLen returns a vector with the direction of v and the given length.
// A zero vector stays zero.
func (v Vector3D) WithLen(length float64) Vector3D {
	return v.Normalize().Mul(length)
}

// ---------------------------------------------------------------------
// Geometric Utilities
// ---------------------------------------------------------------------

// DistanceTo calculates the Euclidean distance to another vector.
func (v Vector3D) DistanceTo(other Vector3D) float64 {
	return v.Sub(other).Len()
}

// DistanceSquaredTo calculates the squared Euclidean distance to another vector.
func (v Vector3D) DistanceSquaredTo(other Vector3D) float64 {
	return v.Sub(other).LenSqr()
}

// Rotate rotates the vector by angle (radians) around axis, right-hand rule.
func (v Vector3D) Rotate(axis Vector3D, angle float64) Vector3D {
	if angle == 0 || axis.IsZero() {
		return v
	}
	return Vector3D(r3.NewRotation(angle, axis.vec()).Rotate(v.vec()))
}

// CosAngleTo returns the cosine of the angle between v and other.
// ok is false when either vector is zero and the angle is undefined.
func (v Vector3D) CosAngleTo(other Vector3D) (cos float64, ok bool) {
	lv, lo := v.Len(), other.Len()
	if lv < Epsilon || lo < Epsilon {
		return 0, false
	}
	return v.Dot(other) / (lv * lo), true
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3D) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------

// Eq checks if two vectors are approximately equal using the Epsilon constant.
func (v Vector3D) Eq(other Vector3D) bool {
	return math.Abs(v.X-other.X) <= Epsilon &&
		math.Abs(v.Y-other.Y) <= Epsilon &&
		math.Abs(v.Z-other.Z) <= Epsilon
}
