package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/behavior"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/obstacle"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchema string

// ErrInvalidConfig is returned when a configuration cannot be loaded or
// describes an impossible simulation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config describes one simulation run.
type Config struct {
	// Population
	Boids       int `json:"boids" yaml:"boids" toml:"boids"`
	ActiveBoids int `json:"activeBoids" yaml:"activeBoids" toml:"activeBoids"` // -1 keeps every boid active

	// Run
	Dt    float64 `json:"dt" yaml:"dt" toml:"dt"`
	Seed  uint64  `json:"seed" yaml:"seed" toml:"seed"`
	Ticks int     `json:"ticks" yaml:"ticks" toml:"ticks"`

	Params    ParamsConfig    `json:"params" yaml:"params" toml:"params"`
	Grid      GridConfig      `json:"grid" yaml:"grid" toml:"grid"`
	Scene     SceneConfig     `json:"scene" yaml:"scene" toml:"scene"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry" toml:"telemetry"`
}

// ParamsConfig mirrors behavior.Params.
type ParamsConfig struct {
	TargetVelocity        float64 `json:"targetVelocity" yaml:"targetVelocity" toml:"targetVelocity"`
	SeparationWeight      float64 `json:"separationWeight" yaml:"separationWeight" toml:"separationWeight"`
	AlignmentWeight       float64 `json:"alignmentWeight" yaml:"alignmentWeight" toml:"alignmentWeight"`
	CohesionWeight        float64 `json:"cohesionWeight" yaml:"cohesionWeight" toml:"cohesionWeight"`
	SeparationDistance    float64 `json:"separationDistance" yaml:"separationDistance" toml:"separationDistance"`
	AttentionAngle        float64 `json:"attentionAngle" yaml:"attentionAngle" toml:"attentionAngle"` // radians
	AttentionDistance     float64 `json:"attentionDistance" yaml:"attentionDistance" toml:"attentionDistance"`
	AvoidObstacleDistance float64 `json:"avoidObstacleDistance" yaml:"avoidObstacleDistance" toml:"avoidObstacleDistance"`
	ThetaSteps            int     `json:"thetaSteps" yaml:"thetaSteps" toml:"thetaSteps"`
	PhiSteps              int     `json:"phiSteps" yaml:"phiSteps" toml:"phiSteps"`
	RandomScanOffset      bool    `json:"randomScanOffset" yaml:"randomScanOffset" toml:"randomScanOffset"`
}

// GridConfig sizes the spatial index.
type GridConfig struct {
	CellExponent uint              `json:"cellExponent" yaml:"cellExponent" toml:"cellExponent"`
	Origin       geometry.Vector3D `json:"origin" yaml:"origin" toml:"origin"`
	Extent       float64           `json:"extent" yaml:"extent" toml:"extent"`
}

// SceneConfig lists the static obstacles. Boundary is the edge of a hollow
// cube around BoundaryCenter, 0 for none.
type SceneConfig struct {
	Boundary       float64           `json:"boundary" yaml:"boundary" toml:"boundary"`
	BoundaryCenter geometry.Vector3D `json:"boundaryCenter" yaml:"boundaryCenter" toml:"boundaryCenter"`

	Planes    []PlaneConfig    `json:"planes,omitempty" yaml:"planes,omitempty" toml:"planes,omitempty"`
	Spheres   []SphereConfig   `json:"spheres,omitempty" yaml:"spheres,omitempty" toml:"spheres,omitempty"`
	Boxes     []BoxConfig      `json:"boxes,omitempty" yaml:"boxes,omitempty" toml:"boxes,omitempty"`
	Triangles []TriangleConfig `json:"triangles,omitempty" yaml:"triangles,omitempty" toml:"triangles,omitempty"`
}

// PlaneConfig is an infinite plane obstacle.
type PlaneConfig struct {
	Point  geometry.Vector3D `json:"point" yaml:"point" toml:"point"`
	Normal geometry.Vector3D `json:"normal" yaml:"normal" toml:"normal"`
}

// SphereConfig is a sphere obstacle.
type SphereConfig struct {
	Center geometry.Vector3D `json:"center" yaml:"center" toml:"center"`
	Radius float64           `json:"radius" yaml:"radius" toml:"radius"`
}

// BoxConfig is an axis-aligned box obstacle.
type BoxConfig struct {
	Min geometry.Vector3D `json:"min" yaml:"min" toml:"min"`
	Max geometry.Vector3D `json:"max" yaml:"max" toml:"max"`
}

// TriangleConfig is a single triangle obstacle.
type TriangleConfig struct {
	A geometry.Vector3D `json:"a" yaml:"a" toml:"a"`
	B geometry.Vector3D `json:"b" yaml:"b" toml:"b"`
	C geometry.Vector3D `json:"c" yaml:"c" toml:"c"`
}

// TelemetryConfig controls the stats windows and the output files.
type TelemetryConfig struct {
	Window    int    `json:"window" yaml:"window" toml:"window"` // ticks per stats window
	OutputDir string `json:"outputDir" yaml:"outputDir" toml:"outputDir"`
	LogEvery  int    `json:"logEvery" yaml:"logEvery" toml:"logEvery"` // windows between log lines, 0 silences
}

// DefaultConfig returns the stock run: 500 boids in a 20 unit box.
func DefaultConfig() *Config {
	p := behavior.DefaultParams()
	return &Config{
		Boids:       500,
		ActiveBoids: -1,
		Dt:          0.1,
		Seed:        1,
		Ticks:       1000,
		Params: ParamsConfig{
			TargetVelocity:        p.TargetVelocity(),
			SeparationWeight:      p.SeparationWeight(),
			AlignmentWeight:       p.AlignmentWeight(),
			CohesionWeight:        p.CohesionWeight(),
			SeparationDistance:    p.SeparationDistance(),
			AttentionAngle:        p.AttentionAngle(),
			AttentionDistance:     p.AttentionDistance(),
			AvoidObstacleDistance: p.AvoidObstacleDistance(),
			ThetaSteps:            p.ThetaSteps(),
			PhiSteps:              p.PhiSteps(),
			RandomScanOffset:      true,
		},
		Grid: GridConfig{
			CellExponent: 3,
			Extent:       30,
		},
		Scene: SceneConfig{
			Boundary: 20,
		},
		Telemetry: TelemetryConfig{
			Window:   100,
			LogEvery: 1,
		},
	}
}

// LoadConfig reads a JSON, YAML or TOML file, picked by extension, validates
// it against the embedded schema and applies it over DefaultConfig.
func LoadConfig(configFile string) (*Config, error) {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(b, strings.TrimPrefix(strings.ToLower(filepath.Ext(configFile)), "."))
}

// ParseConfig is LoadConfig on an in-memory document. format is one of
// json, yaml, yml or toml.
func ParseConfig(data []byte, format string) (*Config, error) {
	// 1. Decode whatever the format is into a generic document
	var doc interface{}
	switch format {
	case "json":
		doc = json.RawMessage(data)
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode config yaml: %v", ErrInvalidConfig, err)
		}
	case "toml":
		var m map[string]interface{}
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("%w: failed to decode config toml: %v", ErrInvalidConfig, err)
		}
		doc = m
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, format)
	}

	// 2. Normalize to JSON, the schema speaks JSON types only
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to normalize config: %v", ErrInvalidConfig, err)
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config json: %v", ErrInvalidConfig, err)
	}

	// 3. Validate
	sch, err := jsonschema.CompileString("config.schema.json", configSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: config validation failed: %v", ErrInvalidConfig, err)
	}

	// 4. Unmarshal over the defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(normalized, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks what the schema cannot express.
func (c *Config) Validate() error {
	if c.Boids < 0 {
		return fmt.Errorf("%w: boids must be >= 0, got %d", ErrInvalidConfig, c.Boids)
	}
	if c.ActiveBoids < -1 || c.ActiveBoids > c.Boids {
		return fmt.Errorf("%w: activeBoids %d not in [-1, %d]", ErrInvalidConfig, c.ActiveBoids, c.Boids)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be > 0, got %v", ErrInvalidConfig, c.Dt)
	}
	if _, err := c.Params.Build(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, p := range c.Scene.Planes {
		if p.Normal.IsZero() {
			return fmt.Errorf("%w: plane %d has a zero normal", ErrInvalidConfig, i)
		}
	}
	for i, b := range c.Scene.Boxes {
		if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
			return fmt.Errorf("%w: box %d has min %s above max %s", ErrInvalidConfig, i, b.Min, b.Max)
		}
	}
	return nil
}

// Build returns validated flocking rules.
func (p ParamsConfig) Build() (*behavior.Params, error) {
	params := behavior.DefaultParams()
	err := params.Apply(map[string]float64{
		"targetVelocity":        p.TargetVelocity,
		"separationWeight":      p.SeparationWeight,
		"alignmentWeight":       p.AlignmentWeight,
		"cohesionWeight":        p.CohesionWeight,
		"separationDistance":    p.SeparationDistance,
		"attentionAngle":        p.AttentionAngle,
		"attentionDistance":     p.AttentionDistance,
		"avoidObstacleDistance": p.AvoidObstacleDistance,
	})
	if err != nil {
		return nil, err
	}
	if err := params.SetAvoidanceResolution(p.ThetaSteps, p.PhiSteps); err != nil {
		return nil, err
	}
	return params, nil
}

// Build builds the obstacle scene.
func (s SceneConfig) Build() *obstacle.Scene {
	scene := obstacle.NewScene()
	if s.Boundary > 0 {
		scene.AddObstacle(obstacle.NewBoundary(s.BoundaryCenter, s.Boundary))
	}
	for _, p := range s.Planes {
		scene.AddObstacle(obstacle.Plane{Point: p.Point, Normal: p.Normal})
	}
	for _, sp := range s.Spheres {
		scene.AddObstacle(obstacle.Sphere{Center: sp.Center, Radius: sp.Radius})
	}
	for _, b := range s.Boxes {
		scene.AddObstacle(obstacle.Box{Min: b.Min, Max: b.Max})
	}
	for _, t := range s.Triangles {
		scene.AddObstacle(obstacle.Triangle{A: t.A, B: t.B, C: t.C})
	}
	return scene
}

// FlockOptions turns the configuration into options for NewFlock.
func (c *Config) FlockOptions(sink RenderSink, logger *slog.Logger) (FlockOptions, error) {
	params, err := c.Params.Build()
	if err != nil {
		return FlockOptions{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts := FlockOptions{
		Count:        c.Boids,
		CellExponent: c.Grid.CellExponent,
		Origin:       c.Grid.Origin,
		Extent:       c.Grid.Extent,
		Seed:         c.Seed,
		Params:       params,
		Sink:         sink,
		Logger:       logger,
	}
	if scene := c.Scene.Build(); scene.Len() > 0 {
		opts.Obstacles = scene
	}
	if !c.Params.RandomScanOffset {
		opts.PhiOffset = func(int) int { return 0 }
	}
	return opts, nil
}

// WriteYAML saves the configuration as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
