package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/spatial"
)

// ErrInvalidCount is returned when a boid count is out of range.
var ErrInvalidCount = errors.New("invalid boid count")

// State is the initial kinematic state of one boid.
type State struct {
	Pos geometry.Vector3D `json:"pos" yaml:"pos" toml:"pos"`
	Vel geometry.Vector3D `json:"vel" yaml:"vel" toml:"vel"`
}

// FlockOptions configures NewFlock.
type FlockOptions struct {
	Count  int
	States []State // optional, len must equal Count; random when empty

	// Grid layout: buckets of edge 2^CellExponent, pre-populated over
	// Origin ± Extent.
	CellExponent uint
	Origin       geometry.Vector3D
	Extent       float64

	Seed      uint64
	Params    *behavior.Params // DefaultParams when nil
	Obstacles behavior.ObstacleQuery
	// PhiOffset overrides the random azimuth start of the avoidance scan.
	PhiOffset func(phiSteps int) int
	Sink      RenderSink
	Logger    *slog.Logger
}

// TickReport summarizes one Update.
type TickReport struct {
	Tick      uint64
	Active    int
	Neighbors int // sum over active boids
	Blocked   int
	Avoided   int
	Exhausted int

	MeanSpeed    float64
	Polarization float64 // |mean heading|, 1 when every boid flies the same way
}

// LogValue implements slog.LogValuer.
func (r TickReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("tick", r.Tick),
		slog.Int("active", r.Active),
		slog.Int("neighbors", r.Neighbors),
		slog.Int("blocked", r.Blocked),
		slog.Int("avoided", r.Avoided),
		slog.Int("exhausted", r.Exhausted),
		slog.Float64("mean_speed", r.MeanSpeed),
		slog.Float64("polarization", r.Polarization),
	)
}

// Flock owns the boids, their spatial index and the shared rules.
// The first ActiveCount boids take part in the simulation; the others keep
// their last state and are left out of the index.
// A Flock is not safe for concurrent use: FlockActor serializes access.
type Flock struct {
	boids  []*behavior.Boid
	active int

	grid      *spatial.Grid[*behavior.Boid]
	obstacles behavior.ObstacleQuery
	params    *behavior.Params
	env       behavior.Environment

	rng     *rand.Rand
	sink    RenderSink
	logger  *slog.Logger
	tick    uint64
	planned []geometry.Vector3D
	reports []behavior.SteerReport
}

// NewFlock creates a flock where every boid is active.
func NewFlock(opts FlockOptions) (*Flock, error) {
	if opts.Count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, opts.Count)
	}
	if len(opts.States) > 0 && len(opts.States) != opts.Count {
		return nil, fmt.Errorf("%w: %d initial states for %d boids", ErrInvalidCount, len(opts.States), opts.Count)
	}
	params := opts.Params
	if params == nil {
		params = behavior.DefaultParams()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &Flock{
		boids:     make([]*behavior.Boid, opts.Count),
		grid:      spatial.NewGrid[*behavior.Boid](opts.CellExponent, opts.Origin, opts.Extent),
		obstacles: opts.Obstacles,
		params:    params,
		rng:       rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		sink:      opts.Sink,
		logger:    logger,
		planned:   make([]geometry.Vector3D, opts.Count),
		reports:   make([]behavior.SteerReport, opts.Count),
	}
	for i := range f.boids {
		if len(opts.States) > 0 {
			f.boids[i] = behavior.New(opts.States[i].Pos, opts.States[i].Vel, params)
		} else {
			f.boids[i] = behavior.NewRandom(f.rng, params)
		}
		f.grid.Insert(f.boids[i])
	}
	f.active = opts.Count

	phiOffset := opts.PhiOffset
	if phiOffset == nil {
		phiOffset = f.rng.IntN
	}
	f.env = behavior.Environment{
		Index:     f.grid,
		Obstacles: f.obstacles,
		PhiOffset: phiOffset,
	}

	logger.Debug("flock created",
		"boids", opts.Count,
		"cell_size", f.grid.CellSize(),
		"buckets", f.grid.Buckets())
	return f, nil
}

// Update advances the flock by dt. Every active boid first plans its new
// velocity from the state at the start of the tick, then all boids commit,
// move and are re-indexed.
func (f *Flock) Update(dt float64) TickReport {
	f.tick++
	report := TickReport{Tick: f.tick, Active: f.active}
	active := f.boids[:f.active]

	for i, b := range active {
		f.planned[i], f.reports[i] = b.Plan(f.env, dt)
	}

	if f.sink != nil {
		f.sink.BeginFrame(f.tick, f.active)
	}
	var heading geometry.Vector3D
	var speed float64
	for i, b := range active {
		b.Vel = f.planned[i]
		b.Move(dt)
		f.grid.Update(b)

		r := f.reports[i]
		report.Neighbors += r.Neighbors
		if r.Blocked {
			report.Blocked++
		}
		if r.Avoided {
			report.Avoided++
		}
		if r.Exhausted {
			report.Exhausted++
			f.logger.Debug("avoidance scan exhausted", "tick", f.tick, "boid", i, "pos", b.Pos.String())
		}

		forward := b.Forward()
		heading = heading.Add(forward)
		speed += b.Vel.Len()
		if f.sink != nil {
			f.sink.Publish(i, b.Pos, forward)
		}
	}
	if f.sink != nil {
		f.sink.EndFrame()
	}

	if n := float64(f.active); n > 0 {
		report.MeanSpeed = speed / n
		report.Polarization = heading.Len() / n
	}
	return report
}

// SetActiveCount changes how many boids take part in the simulation.
// Deactivated boids leave the index and keep their state; reactivated ones
// come back where they stopped.
func (f *Flock) SetActiveCount(n int) error {
	if n < 0 || n > len(f.boids) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidCount, n, len(f.boids))
	}
	for i := n; i < f.active; i++ {
		f.grid.Remove(f.boids[i])
	}
	for i := f.active; i < n; i++ {
		f.grid.Insert(f.boids[i])
	}
	f.logger.Debug("active count changed", "from", f.active, "to", n)
	f.active = n
	return nil
}

// ActiveCount returns the number of simulated boids.
func (f *Flock) ActiveCount() int { return f.active }

// Total returns the number of boids, active or not.
func (f *Flock) Total() int { return len(f.boids) }

// Boids returns the active boids. The slice is owned by the flock.
func (f *Flock) Boids() []*behavior.Boid { return f.boids[:f.active] }

// Params returns the rules shared by every boid.
func (f *Flock) Params() *behavior.Params { return f.params }

// Tick returns the number of updates so far.
func (f *Flock) Tick() uint64 { return f.tick }

// Indexed returns the number of boids in the spatial index.
func (f *Flock) Indexed() int { return f.grid.Len() }
