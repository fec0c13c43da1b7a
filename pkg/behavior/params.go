package behavior

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidParam is returned when a parameter value is rejected.
var ErrInvalidParam = errors.New("invalid boid parameter")

// Params holds the rules shared by every boid of a flock.
// One instance is passed by pointer to all boids, so editing it changes the
// behaviour of the whole flock from the next tick on. Derived values (squared
// distances, cosine of the attention angle) are recomputed by the setters and
// are never stale.
type Params struct {
	targetVelocity float64

	separationWeight float64
	alignmentWeight  float64
	cohesionWeight   float64

	separationDistance        float64
	separationDistanceSquared float64

	attentionAngle    float64 // half angle of the vision cone, radians
	cosAttentionAngle float64

	attentionDistance        float64
	attentionDistanceSquared float64

	avoidObstacleDistance float64

	thetaSteps int
	phiSteps   int
}

// DefaultParams returns the stock flocking rules.
func DefaultParams() *Params {
	p := &Params{}
	p.targetVelocity = 1
	p.separationWeight = 0.5
	p.alignmentWeight = 1
	p.cohesionWeight = 0.5
	p.setSeparationDistance(1)
	p.setAttentionAngle(0.65 * math.Pi)
	p.setAttentionDistance(2)
	p.avoidObstacleDistance = 5
	p.thetaSteps = 6
	p.phiSteps = 4
	return p
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := *p
	return &c
}

// TargetVelocity is the speed every boid is renormalized to.
func (p *Params) TargetVelocity() float64 { return p.targetVelocity }

// SeparationWeight is the weight of the separation rule.
func (p *Params) SeparationWeight() float64 { return p.separationWeight }

// AlignmentWeight is the weight of the alignment rule.
func (p *Params) AlignmentWeight() float64 { return p.alignmentWeight }

// CohesionWeight is the weight of the cohesion rule.
func (p *Params) CohesionWeight() float64 { return p.cohesionWeight }

// SeparationDistance is the distance under which neighbours repel.
func (p *Params) SeparationDistance() float64 { return p.separationDistance }

// SeparationDistanceSquared is SeparationDistance squared.
func (p *Params) SeparationDistanceSquared() float64 { return p.separationDistanceSquared }

// AttentionAngle is the half angle of the vision cone, in radians.
func (p *Params) AttentionAngle() float64 { return p.attentionAngle }

// CosAttentionAngle is the cosine of AttentionAngle.
func (p *Params) CosAttentionAngle() float64 { return p.cosAttentionAngle }

// AttentionDistance is how far a boid sees.
func (p *Params) AttentionDistance() float64 { return p.attentionDistance }

// AttentionDistanceSquared is AttentionDistance squared.
func (p *Params) AttentionDistanceSquared() float64 { return p.attentionDistanceSquared }

// AvoidObstacleDistance is the length of the obstacle probing rays.
func (p *Params) AvoidObstacleDistance() float64 { return p.avoidObstacleDistance }

// ThetaSteps is the number of polar steps of the avoidance scan.
func (p *Params) ThetaSteps() int { return p.thetaSteps }

// PhiSteps is the number of azimuthal steps of the avoidance scan.
func (p *Params) PhiSteps() int { return p.phiSteps }

func nonNegative(name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite value >= 0, got %v", ErrInvalidParam, name, v)
	}
	return nil
}

// SetTargetVelocity sets the speed every boid is pinned to after steering.
func (p *Params) SetTargetVelocity(v float64) error {
	if err := nonNegative("targetVelocity", v); err != nil {
		return err
	}
	p.targetVelocity = v
	return nil
}

// SetSeparationWeight sets the weight of the separation rule.
// Weights may be negative, which turns a rule into its opposite.
func (p *Params) SetSeparationWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: separationWeight must be finite", ErrInvalidParam)
	}
	p.separationWeight = w
	return nil
}

// SetAlignmentWeight sets the weight of the alignment rule.
func (p *Params) SetAlignmentWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: alignmentWeight must be finite", ErrInvalidParam)
	}
	p.alignmentWeight = w
	return nil
}

// SetCohesionWeight sets the weight of the cohesion rule.
func (p *Params) SetCohesionWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: cohesionWeight must be finite", ErrInvalidParam)
	}
	p.cohesionWeight = w
	return nil
}

// SetSeparationDistance sets the distance under which neighbours repel.
func (p *Params) SetSeparationDistance(d float64) error {
	if err := nonNegative("separationDistance", d); err != nil {
		return err
	}
	p.setSeparationDistance(d)
	return nil
}

func (p *Params) setSeparationDistance(d float64) {
	p.separationDistance = d
	p.separationDistanceSquared = d * d
}

// SetAttentionAngle sets the half angle of the vision cone, in [0, π].
func (p *Params) SetAttentionAngle(a float64) error {
	if a < 0 || a > math.Pi || math.IsNaN(a) {
		return fmt.Errorf("%w: attentionAngle must be in [0, π], got %v", ErrInvalidParam, a)
	}
	p.setAttentionAngle(a)
	return nil
}

func (p *Params) setAttentionAngle(a float64) {
	p.attentionAngle = a
	p.cosAttentionAngle = math.Cos(a)
}

// SetAttentionDistance sets how far a boid sees.
func (p *Params) SetAttentionDistance(d float64) error {
	if err := nonNegative("attentionDistance", d); err != nil {
		return err
	}
	p.setAttentionDistance(d)
	return nil
}

func (p *Params) setAttentionDistance(d float64) {
	p.attentionDistance = d
	p.attentionDistanceSquared = d * d
}

// SetAvoidObstacleDistance sets the length of the obstacle probing rays.
func (p *Params) SetAvoidObstacleDistance(d float64) error {
	if err := nonNegative("avoidObstacleDistance", d); err != nil {
		return err
	}
	p.avoidObstacleDistance = d
	return nil
}

// SetAvoidanceResolution sets the number of polar and azimuthal steps of the
// avoidance scan. theta needs at least 2 steps since the pole is skipped.
func (p *Params) SetAvoidanceResolution(thetaSteps, phiSteps int) error {
	if thetaSteps < 2 || phiSteps < 1 {
		return fmt.Errorf("%w: avoidance resolution %dx%d, need theta >= 2 and phi >= 1", ErrInvalidParam, thetaSteps, phiSteps)
	}
	p.thetaSteps = thetaSteps
	p.phiSteps = phiSteps
	return nil
}

// setters maps the editable parameter names to their setters.
var setters = map[string]func(p *Params, v float64) error{
	"targetVelocity":        (*Params).SetTargetVelocity,
	"maxVelocity":           (*Params).SetTargetVelocity,
	"separationWeight":      (*Params).SetSeparationWeight,
	"alignmentWeight":       (*Params).SetAlignmentWeight,
	"cohesionWeight":        (*Params).SetCohesionWeight,
	"separationDistance":    (*Params).SetSeparationDistance,
	"attentionAngle":        (*Params).SetAttentionAngle,
	"attentionDistance":     (*Params).SetAttentionDistance,
	"avoidObstacleDistance": (*Params).SetAvoidObstacleDistance,
}

// aliases maps alternate parameter names to the one they stand for.
var aliases = map[string]string{
	"maxVelocity": "targetVelocity",
}

// Names returns the parameter names accepted by Apply, sorted.
func Names() []string {
	names := make([]string, 0, len(setters))
	for n := range setters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply sets several parameters by name, in Names order. Either every value
// is applied or, on the first error, none is. Naming a parameter twice
// through an alias is an error.
func (p *Params) Apply(values map[string]float64) error {
	names := make([]string, 0, len(values))
	for name := range values {
		if _, ok := setters[name]; !ok {
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParam, name)
		}
		if canonical, ok := aliases[name]; ok {
			if _, dup := values[canonical]; dup {
				return fmt.Errorf("%w: %q and %q set the same parameter", ErrInvalidParam, name, canonical)
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	next := p.Clone()
	for _, name := range names {
		if err := setters[name](next, values[name]); err != nil {
			return err
		}
	}
	*p = *next
	return nil
}
