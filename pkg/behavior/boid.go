package behavior

import (
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

// Boid represents a single entity in the flock.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds, and related group motion.
// The name "boid" corresponds to a shortened version of "bird-oid object".
// https://en.wikipedia.org/wiki/Boids
// Pos and Vel are exported so the renderer can read them.
type Boid struct {
	Pos geometry.Vector3D
	Vel geometry.Vector3D

	params *Params
	cell   spatial.Cell
	nearby []*Boid // per boid scratch for neighbour queries
}

// Neighborhood is the broad phase the boid queries for candidates.
// *spatial.Grid[*Boid] implements it.
type Neighborhood interface {
	RetrieveInto(dst []*Boid, point geometry.Vector3D, radius float64) []*Boid
}

// ObstacleQuery tells whether a bounded ray hits obstacle geometry.
// *obstacle.Scene implements it.
type ObstacleQuery interface {
	Intersects(origin, direction geometry.Vector3D, near, far float64) bool
}

// Environment is what a boid perceives while steering.
type Environment struct {
	Index     Neighborhood
	Obstacles ObstacleQuery // nil means open space

	// PhiOffset returns the azimuth index the avoidance scan starts at, in
	// [0, phiSteps). nil always starts at 0, which makes scans reproducible.
	PhiOffset func(phiSteps int) int
}

// SteerReport tells what happened during one steer phase.
type SteerReport struct {
	Neighbors int  // boids in the attention cone
	Blocked   bool // the heading was on a collision course
	Avoided   bool // a clear heading was found
	Exhausted bool // no clear heading, the boid keeps going
}

// New creates a boid sharing params with the rest of its flock.
func New(pos, vel geometry.Vector3D, params *Params) *Boid {
	return &Boid{Pos: pos, Vel: vel, params: params}
}

// NewRandom creates a boid with position and velocity components drawn
// uniformly in [-0.5, 0.5).
func NewRandom(rng *rand.Rand, params *Params) *Boid {
	r := func() geometry.Vector3D {
		return geometry.Vector3D{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5, Z: rng.Float64() - 0.5}
	}
	return New(r(), r(), params)
}

// Position implements spatial.Item.
func (b *Boid) Position() geometry.Vector3D { return b.Pos }

// GridCell implements spatial.Item.
func (b *Boid) GridCell() *spatial.Cell { return &b.cell }

// Params returns the shared rules of the boid.
func (b *Boid) Params() *Params { return b.params }

// Forward returns the unit heading, or zero for a boid at rest.
func (b *Boid) Forward() geometry.Vector3D { return b.Vel.Normalize() }

// Steer runs the steer phase and writes the new velocity.
func (b *Boid) Steer(env Environment, dt float64) SteerReport {
	vel, report := b.Plan(env, dt)
	b.Vel = vel
	return report
}

// Plan computes the velocity the boid would steer to, without changing any
// boid. The flock plans every boid before committing, so that nobody reacts
// to a neighbour that already turned during the same tick.
func (b *Boid) Plan(env Environment, dt float64) (geometry.Vector3D, SteerReport) {
	var report SteerReport
	vel := b.Vel

	if env.Index != nil {
		b.nearby = b.NearbyBoids(env.Index, b.nearby[:0])
		report.Neighbors = len(b.nearby)
		if len(b.nearby) > 0 {
			vel = vel.Add(b.SocialForce(b.nearby).Mul(dt))
		}
	}

	if env.Obstacles != nil && b.collides(env.Obstacles, vel) {
		report.Blocked = true
		offset := 0
		if env.PhiOffset != nil {
			offset = env.PhiOffset(b.params.phiSteps)
		}
		if dir, ok := b.clearHeading(env.Obstacles, vel, offset); ok {
			vel = dir
			report.Avoided = true
		} else {
			report.Exhausted = true
		}
	}

	return b.renormalize(vel), report
}

// renormalize pins the speed to the target velocity. A velocity cancelled
// to zero falls back on the previous heading; a boid already at rest stays
// at rest instead of producing NaN.
func (b *Boid) renormalize(vel geometry.Vector3D) geometry.Vector3D {
	if vel.IsZero() {
		vel = b.Vel
	}
	return vel.WithLen(b.params.targetVelocity)
}

// Move integrates the position.
func (b *Boid) Move(dt float64) {
	b.Pos = b.Pos.Add(b.Vel.Mul(dt))
}

// ---------------------------------------------------------------------
// Perception
// ---------------------------------------------------------------------

// NearbyBoids appends to dst the boids inside the attention cone.
func (b *Boid) NearbyBoids(index Neighborhood, dst []*Boid) []*Boid {
	start := len(dst)
	dst = index.RetrieveInto(dst, b.Pos, b.params.attentionDistance)
	kept := dst[:start]
	for _, other := range dst[start:] {
		if b.InAttention(other) {
			kept = append(kept, other)
		}
	}
	return kept
}

// InAttention reports whether other is perceived: strictly closer than the
// attention distance and strictly inside the vision cone around the heading.
// A boid at rest has no heading and sees all around; a neighbour at the very
// same spot has no direction and is seen.
func (b *Boid) InAttention(other *Boid) bool {
	if other == b {
		return false
	}
	toOther := other.Pos.Sub(b.Pos)
	if toOther.LenSqr() >= b.params.attentionDistanceSquared {
		return false
	}
	cos, ok := toOther.CosAngleTo(b.Vel)
	if !ok {
		return true
	}
	return cos > b.params.cosAttentionAngle
}

// ---------------------------------------------------------------------
// Flocking rules
// ---------------------------------------------------------------------

// SocialForce combines the three rules with their weights.
// neighbors must not be empty.
func (b *Boid) SocialForce(neighbors []*Boid) geometry.Vector3D {
	p := b.params
	return b.Alignment(neighbors).Mul(p.alignmentWeight).
		Add(b.Cohesion(neighbors).Mul(p.cohesionWeight)).
		Add(b.Separation(neighbors).Mul(p.separationWeight))
}

// Alignment steers towards the mean velocity of the neighbours.
func (b *Boid) Alignment(neighbors []*Boid) geometry.Vector3D {
	var sum geometry.Vector3D
	for _, n := range neighbors {
		sum = sum.Add(n.Vel)
	}
	return sum.Mul(1 / float64(len(neighbors))).Sub(b.Vel)
}

// Cohesion steers towards the centre of the neighbours.
func (b *Boid) Cohesion(neighbors []*Boid) geometry.Vector3D {
	var sum geometry.Vector3D
	for _, n := range neighbors {
		sum = sum.Add(n.Pos)
	}
	return sum.Mul(1 / float64(len(neighbors))).Sub(b.Pos)
}

// Separation pushes away from neighbours closer than the separation
// distance, with a weight falling linearly from 1 at contact to 0 at the
// threshold. The sum is averaged over all neighbours.
func (b *Boid) Separation(neighbors []*Boid) geometry.Vector3D {
	p := b.params
	var sum geometry.Vector3D
	for _, n := range neighbors {
		away := b.Pos.Sub(n.Pos)
		dSq := away.LenSqr()
		if dSq >= p.separationDistanceSquared {
			continue
		}
		sum = sum.Add(away.Mul(1 - away.Len()/p.separationDistance))
	}
	return sum.Mul(1 / float64(len(neighbors)))
}

// ---------------------------------------------------------------------
// Obstacle avoidance
// ---------------------------------------------------------------------

// IsOnCollisionCourse reports whether an obstacle lies ahead within the
// avoidance distance.
func (b *Boid) IsOnCollisionCourse(q ObstacleQuery) bool {
	return b.collides(q, b.Vel)
}

func (b *Boid) collides(q ObstacleQuery, dir geometry.Vector3D) bool {
	if dir.IsZero() {
		return false
	}
	return q.Intersects(b.Pos, dir, 0, b.params.avoidObstacleDistance)
}

// AvoidObstacles scans the avoidance directions and adopts the first clear
// one as velocity. It returns false, leaving the velocity unchanged, when
// every direction is blocked.
func (b *Boid) AvoidObstacles(q ObstacleQuery, phiOffset int) bool {
	dir, ok := b.clearHeading(q, b.Vel, phiOffset)
	if ok {
		b.Vel = dir
	}
	return ok
}

func (b *Boid) clearHeading(q ObstacleQuery, heading geometry.Vector3D, phiOffset int) (geometry.Vector3D, bool) {
	p := b.params
	for _, dir := range AvoidanceDirections(heading, p.thetaSteps, p.phiSteps, phiOffset) {
		if !q.Intersects(b.Pos, dir, 0, p.avoidObstacleDistance) {
			return dir, true
		}
	}
	return geometry.Vector3D{}, false
}
