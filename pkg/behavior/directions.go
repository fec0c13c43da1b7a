package behavior

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// WorldUp is the vertical used to orient the avoidance scan.
var WorldUp = geometry.AxisZ

// AvoidanceDirections returns, in scan order, the unit headings tried when
// the way ahead is blocked. The pattern is a grid over the polar angle θ,
// measured from heading, and the azimuth φ around it: θ takes thetaSteps-1
// values in (0, π) (straight ahead is never resampled), φ takes phiSteps
// values starting at index phiOffset. The slice is freshly built on every
// call, so the scan is restartable and has no side effects.
// A zero heading yields no direction.
func AvoidanceDirections(heading geometry.Vector3D, thetaSteps, phiSteps, phiOffset int) []geometry.Vector3D {
	frame, ok := geometry.Heading(heading, WorldUp)
	if !ok || thetaSteps < 2 || phiSteps < 1 {
		return nil
	}
	phiOffset %= phiSteps
	if phiOffset < 0 {
		phiOffset += phiSteps
	}
	thetaStep := math.Pi / float64(thetaSteps)
	phiStep := 2 * math.Pi / float64(phiSteps)

	dirs := make([]geometry.Vector3D, 0, (thetaSteps-1)*phiSteps)
	for i := 1; i < thetaSteps; i++ {
		for j := 0; j < phiSteps; j++ {
			phi := float64((j+phiOffset)%phiSteps) * phiStep
			dirs = append(dirs, frame.Apply(geometry.Spherical(float64(i)*thetaStep, phi)))
		}
	}
	return dirs
}
