package simulation

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const jsonConfig = `{
  "boids": 40,
  "activeBoids": 30,
  "dt": 0.05,
  "seed": 7,
  "params": { "cohesionWeight": 0.25, "thetaSteps": 8, "randomScanOffset": false },
  "grid": { "cellExponent": 2, "extent": 16 },
  "scene": {
    "boundary": 12,
    "spheres": [ { "center": { "x": 1, "y": 0, "z": 0 }, "radius": 2 } ],
    "planes": [ { "point": { "z": -3 }, "normal": { "z": 1 } } ]
  },
  "telemetry": { "window": 10, "outputDir": "out" }
}`

const yamlConfig = `
boids: 40
activeBoids: 30
dt: 0.05
seed: 7
params:
  cohesionWeight: 0.25
  thetaSteps: 8
  randomScanOffset: false
grid:
  cellExponent: 2
  extent: 16
scene:
  boundary: 12
  spheres:
    - center: {x: 1, y: 0, z: 0}
      radius: 2
  planes:
    - point: {z: -3}
      normal: {z: 1}
telemetry:
  window: 10
  outputDir: out
`

const tomlConfig = `
boids = 40
activeBoids = 30
dt = 0.05
seed = 7

[params]
cohesionWeight = 0.25
thetaSteps = 8
randomScanOffset = false

[grid]
cellExponent = 2
extent = 16

[scene]
boundary = 12

[[scene.spheres]]
radius = 2
center = { x = 1, y = 0, z = 0 }

[[scene.planes]]
point = { z = -3 }
normal = { z = 1 }

[telemetry]
window = 10
outputDir = "out"
`

func TestParseConfig_Formats(t *testing.T) {
	for _, tt := range []struct{ format, doc string }{
		{"json", jsonConfig},
		{"yaml", yamlConfig},
		{"toml", tomlConfig},
	} {
		t.Run(tt.format, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.doc), tt.format)
			if err != nil {
				t.Fatalf("ParseConfig() error = %v", err)
			}
			if cfg.Boids != 40 || cfg.ActiveBoids != 30 || cfg.Dt != 0.05 || cfg.Seed != 7 {
				t.Errorf("Expected the run section to be read, got %+v", cfg)
			}
			if cfg.Params.CohesionWeight != 0.25 || cfg.Params.ThetaSteps != 8 || cfg.Params.RandomScanOffset {
				t.Errorf("Expected the params section to be read, got %+v", cfg.Params)
			}
			// Missing fields keep their defaults.
			def := DefaultConfig()
			if cfg.Params.AlignmentWeight != def.Params.AlignmentWeight || cfg.Params.PhiSteps != def.Params.PhiSteps {
				t.Errorf("Expected defaults for missing params, got %+v", cfg.Params)
			}
			if cfg.Ticks != def.Ticks {
				t.Errorf("Expected default ticks %d, got %d", def.Ticks, cfg.Ticks)
			}
			if cfg.Grid.CellExponent != 2 || cfg.Grid.Extent != 16 {
				t.Errorf("Expected the grid section to be read, got %+v", cfg.Grid)
			}
			if len(cfg.Scene.Spheres) != 1 || cfg.Scene.Spheres[0].Center.X != 1 || cfg.Scene.Spheres[0].Radius != 2 {
				t.Errorf("Expected one sphere, got %+v", cfg.Scene.Spheres)
			}
			if len(cfg.Scene.Planes) != 1 || cfg.Scene.Planes[0].Point.Z != -3 || cfg.Scene.Planes[0].Normal.Z != 1 {
				t.Errorf("Expected one plane, got %+v", cfg.Scene.Planes)
			}
			if cfg.Telemetry.Window != 10 || cfg.Telemetry.OutputDir != "out" || cfg.Telemetry.LogEvery != def.Telemetry.LogEvery {
				t.Errorf("Expected the telemetry section to be read, got %+v", cfg.Telemetry)
			}
		})
	}
}

func TestParseConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		format string
	}{
		{"unknown field", `{"wingSpan": 3}`, "json"},
		{"negative boids", `{"boids": -1}`, "json"},
		{"wrong type", `{"dt": "fast"}`, "json"},
		{"zero dt", `{"dt": 0}`, "json"},
		{"angle above pi", "params:\n  attentionAngle: 4\n", "yaml"},
		{"single theta step", "[params]\nthetaSteps = 1\n", "toml"},
		{"too many active", `{"boids": 5, "activeBoids": 6}`, "json"},
		{"zero plane normal", `{"scene": {"planes": [{"normal": {}}]}}`, "json"},
		{"inverted box", `{"scene": {"boxes": [{"min": {"x": 1}, "max": {"x": 0}}]}}`, "json"},
		{"broken json", `{"boids": `, "json"},
		{"broken toml", "boids = = 3", "toml"},
		{"unknown format", `boids = 3`, "ini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.doc), tt.format); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flock.YML")
	if err := os.WriteFile(path, []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Boids != 40 {
		t.Errorf("Expected 40 boids, got %d", cfg.Boids)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestConfig_WriteYAMLRoundTrip(t *testing.T) {
	cfg, err := ParseConfig([]byte(jsonConfig), "json")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if again.Boids != cfg.Boids || again.Params != cfg.Params || len(again.Scene.Spheres) != 1 {
		t.Errorf("Expected the snapshot to load back, got %+v", again)
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	params, err := cfg.Params.Build()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(params.AttentionAngle()-0.65*math.Pi) > 1e-15 {
		t.Errorf("Expected the default attention angle, got %v", params.AttentionAngle())
	}
	if n := cfg.Scene.Build().Len(); n != 1 {
		t.Errorf("Expected the boundary box only, got %d shapes", n)
	}
}

func TestConfig_FlockOptions(t *testing.T) {
	cfg, err := ParseConfig([]byte(jsonConfig), "json")
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.FlockOptions(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Count != 40 || opts.CellExponent != 2 || opts.Extent != 16 || opts.Seed != 7 {
		t.Errorf("Expected options from the config, got %+v", opts)
	}
	if opts.Params.CohesionWeight() != 0.25 || opts.Params.ThetaSteps() != 8 {
		t.Errorf("Expected params from the config")
	}
	if opts.PhiOffset == nil || opts.PhiOffset(4) != 0 {
		t.Error("Expected a fixed scan offset")
	}
	if opts.Obstacles == nil {
		t.Fatal("Expected obstacles")
	}
	// The sphere sits right ahead of the origin along +X.
	if !opts.Obstacles.Intersects(v(-5, 0, 0), v(1, 0, 0), 0, 5) {
		t.Error("Expected the sphere to be hit")
	}

	cfg.Scene = SceneConfig{}
	opts, err = cfg.FlockOptions(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Obstacles != nil {
		t.Error("Expected open space without obstacles")
	}
}
