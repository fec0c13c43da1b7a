package geometry

import (
	"math"
	"testing"
)

func TestLookAt(t *testing.T) {
	tests := []struct {
		name    string
		forward Vector3D
	}{
		{"along x", Vector3D{1, 0, 0}},
		{"along -y", Vector3D{0, -2, 0}},
		{"diagonal", Vector3D{1, 1, 1}},
		{"parallel to up", Vector3D{0, 0, 3}},
		{"anti-parallel to up", Vector3D{0, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := LookAt(tt.forward, AxisZ)
			if !ok {
				t.Fatal("LookAt() not ok for a non-zero forward")
			}
			if got := f.Forward(); !got.Eq(tt.forward.Normalize()) {
				t.Errorf("Forward() = %v; want %v", got, tt.forward.Normalize())
			}
			for _, axis := range []Vector3D{f.X, f.Y, f.Z} {
				if !floatEquals(axis.Len(), 1) {
					t.Errorf("axis %v is not unit length", axis)
				}
			}
			if !floatEquals(f.X.Dot(f.Y), 0) || !floatEquals(f.Y.Dot(f.Z), 0) || !floatEquals(f.X.Dot(f.Z), 0) {
				t.Errorf("frame %+v is not orthogonal", f)
			}
			if !f.X.Cross(f.Y).Eq(f.Z) {
				t.Errorf("frame %+v is not right-handed", f)
			}
		})
	}
}

func TestLookAt_ZeroForward(t *testing.T) {
	if _, ok := LookAt(Vector3D{}, AxisZ); ok {
		t.Error("LookAt() with zero forward should not be ok")
	}
	if _, ok := Heading(Vector3D{}, AxisZ); ok {
		t.Error("Heading() with zero forward should not be ok")
	}
}

func TestHeading_PolarAxisIsForward(t *testing.T) {
	forward := Vector3D{0.3, -1, 0.2}
	f, ok := Heading(forward, AxisZ)
	if !ok {
		t.Fatal("Heading() not ok")
	}
	if got := f.Apply(AxisY); !got.Eq(forward.Normalize()) {
		t.Errorf("local +Y maps to %v; want %v", got, forward.Normalize())
	}
}

func TestSpherical(t *testing.T) {
	if got := Spherical(0, 1.3); !got.Eq(AxisY) {
		t.Errorf("Spherical(0, φ) = %v; want +Y", got)
	}
	if got := Spherical(math.Pi/2, 0); !got.Eq(AxisZ) {
		t.Errorf("Spherical(π/2, 0) = %v; want +Z", got)
	}
	if got := Spherical(math.Pi/2, math.Pi/2); !got.Eq(AxisX) {
		t.Errorf("Spherical(π/2, π/2) = %v; want +X", got)
	}

	forward := Vector3D{1, 2, -0.5}
	f, _ := Heading(forward, AxisZ)
	for _, theta := range []float64{math.Pi / 6, math.Pi / 3, math.Pi / 2, 5 * math.Pi / 6} {
		for _, phi := range []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
			d := f.Apply(Spherical(theta, phi))
			if !floatEquals(d.Len(), 1) {
				t.Errorf("direction (%v, %v) has length %v", theta, phi, d.Len())
			}
			if c := d.Dot(forward.Normalize()); !floatEquals(c, math.Cos(theta)) {
				t.Errorf("direction (%v, %v): cos to forward = %v; want %v", theta, phi, c, math.Cos(theta))
			}
		}
	}
}
