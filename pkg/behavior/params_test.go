package behavior

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.TargetVelocity() != 1 {
		t.Errorf("TargetVelocity() = %v; want 1", p.TargetVelocity())
	}
	if got := p.AttentionDistanceSquared(); got != 4 {
		t.Errorf("AttentionDistanceSquared() = %v; want 4", got)
	}
	if got, want := p.CosAttentionAngle(), math.Cos(0.65*math.Pi); got != want {
		t.Errorf("CosAttentionAngle() = %v; want %v", got, want)
	}
	if p.ThetaSteps() != 6 || p.PhiSteps() != 4 {
		t.Errorf("resolution = %dx%d; want 6x4", p.ThetaSteps(), p.PhiSteps())
	}
}

func TestParams_DerivedValuesFollowSetters(t *testing.T) {
	p := DefaultParams()
	if err := p.SetAttentionDistance(3); err != nil {
		t.Fatal(err)
	}
	if err := p.SetSeparationDistance(0.5); err != nil {
		t.Fatal(err)
	}
	if err := p.SetAttentionAngle(math.Pi / 3); err != nil {
		t.Fatal(err)
	}
	if p.AttentionDistanceSquared() != 9 {
		t.Errorf("AttentionDistanceSquared() = %v; want 9", p.AttentionDistanceSquared())
	}
	if p.SeparationDistanceSquared() != 0.25 {
		t.Errorf("SeparationDistanceSquared() = %v; want 0.25", p.SeparationDistanceSquared())
	}
	if math.Abs(p.CosAttentionAngle()-0.5) > 1e-12 {
		t.Errorf("CosAttentionAngle() = %v; want 0.5", p.CosAttentionAngle())
	}
}

func TestParams_Rejects(t *testing.T) {
	tests := []struct {
		name string
		set  func(p *Params) error
	}{
		{"negative velocity", func(p *Params) error { return p.SetTargetVelocity(-1) }},
		{"NaN weight", func(p *Params) error { return p.SetCohesionWeight(math.NaN()) }},
		{"infinite weight", func(p *Params) error { return p.SetAlignmentWeight(math.Inf(1)) }},
		{"negative separation", func(p *Params) error { return p.SetSeparationDistance(-0.1) }},
		{"angle above pi", func(p *Params) error { return p.SetAttentionAngle(4) }},
		{"negative angle", func(p *Params) error { return p.SetAttentionAngle(-0.1) }},
		{"negative attention", func(p *Params) error { return p.SetAttentionDistance(-2) }},
		{"negative avoidance", func(p *Params) error { return p.SetAvoidObstacleDistance(-2) }},
		{"single theta step", func(p *Params) error { return p.SetAvoidanceResolution(1, 4) }},
		{"no phi step", func(p *Params) error { return p.SetAvoidanceResolution(6, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			before := *p
			err := tt.set(p)
			if !errors.Is(err, ErrInvalidParam) {
				t.Errorf("error = %v; want ErrInvalidParam", err)
			}
			if *p != before {
				t.Error("a rejected value must leave the params unchanged")
			}
		})
	}
}

func TestParams_Apply(t *testing.T) {
	p := DefaultParams()
	err := p.Apply(map[string]float64{
		"maxVelocity":       2,
		"cohesionWeight":    0,
		"attentionDistance": 5,
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if p.TargetVelocity() != 2 || p.CohesionWeight() != 0 || p.AttentionDistanceSquared() != 25 {
		t.Errorf("Apply() did not set the values: %+v", p)
	}
}

func TestParams_ApplyIsAllOrNothing(t *testing.T) {
	p := DefaultParams()
	before := *p
	err := p.Apply(map[string]float64{
		"alignmentWeight": 3,
		"attentionAngle":  10,
	})
	if !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("Apply() error = %v; want ErrInvalidParam", err)
	}
	if *p != before {
		t.Error("a failed Apply() must not change anything")
	}

	if err := p.Apply(map[string]float64{"wingSpan": 1}); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("unknown name error = %v; want ErrInvalidParam", err)
	}
}

func TestParams_ApplyRejectsAliasConflict(t *testing.T) {
	p := DefaultParams()
	before := *p
	err := p.Apply(map[string]float64{"targetVelocity": 2, "maxVelocity": 3})
	if !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("Apply() error = %v; want ErrInvalidParam", err)
	}
	if *p != before {
		t.Error("a conflicting Apply() must not change anything")
	}
}

func TestParams_Clone(t *testing.T) {
	p := DefaultParams()
	c := p.Clone()
	if c == p || *c != *p {
		t.Fatal("Clone() must return an equal, distinct value")
	}
	if err := c.SetAttentionDistance(7); err != nil {
		t.Fatal(err)
	}
	if p.AttentionDistance() != 2 {
		t.Errorf("editing the clone changed the original: %v", p.AttentionDistance())
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(setters) {
		t.Fatalf("Names() returned %d names; want %d", len(names), len(setters))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Names() not sorted: %v", names)
		}
	}
}
