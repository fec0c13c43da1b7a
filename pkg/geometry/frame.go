package geometry

import "math"

// Frame is an orthonormal basis. X, Y and Z are the images of the local axes
// in world space, i.e. the columns of a rotation matrix.
type Frame struct {
	X, Y, Z Vector3D
}

// pitch is the fixed correction applied after LookAt so that the local +Y
// axis, and not -Z, points along the heading.
const pitch = -math.Pi / 2

// LookAt builds the frame of an observer at the origin looking along forward,
// with up as the preferred vertical. Like a right-handed look-at matrix, the
// local -Z axis points at the target.
// ok is false when forward is zero and no heading exists.
// When forward is parallel to up another vertical is picked.
func LookAt(forward, up Vector3D) (f Frame, ok bool) {
	if forward.IsZero() {
		return Frame{}, false
	}
	z := forward.Normalize().Mul(-1)
	x := up.Cross(z)
	if x.IsZero() {
		alt := AxisX
		if math.Abs(up.Normalize().X) > 0.9 {
			alt = AxisY
		}
		x = alt.Cross(z)
	}
	x = x.Normalize()
	return Frame{X: x, Y: z.Cross(x), Z: z}, true
}

// Heading returns the frame for a heading: LookAt(forward, up) composed with
// the -90° pitch, so its local +Y maps to forward.
func Heading(forward, up Vector3D) (Frame, bool) {
	f, ok := LookAt(forward, up)
	if !ok {
		return Frame{}, false
	}
	return Frame{
		X: f.Apply(AxisX.Rotate(AxisX, pitch)),
		Y: f.Apply(AxisY.Rotate(AxisX, pitch)),
		Z: f.Apply(AxisZ.Rotate(AxisX, pitch)),
	}, true
}

// Apply maps a local vector to world space.
func (f Frame) Apply(local Vector3D) Vector3D {
	return f.X.Mul(local.X).Add(f.Y.Mul(local.Y)).Add(f.Z.Mul(local.Z))
}

// Forward is the direction the frame looks at for a LookAt frame.
func (f Frame) Forward() Vector3D {
	return f.Z.Mul(-1)
}

// Spherical returns the local unit direction obtained by tilting +Y by theta
// around X and then turning it by phi around Y. theta is the polar angle
// from +Y, phi the azimuth.
func Spherical(theta, phi float64) Vector3D {
	return AxisY.Rotate(AxisX, theta).Rotate(AxisY, phi)
}
