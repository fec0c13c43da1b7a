package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteConfig(simulation.DefaultConfig()); err != nil {
		t.Error(err)
	}
	if err := om.WriteFrame("frame.pb", simulation.Frame{}); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" || om.Close() != nil {
		t.Error("nil manager should be inert")
	}
}

func TestOutputManager_Files(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := uint64(1); i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: i * 10, Active: 7}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteConfig(simulation.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	frame := simulation.Frame{Tick: 30, Boids: []simulation.BoidPose{{Index: 1}}}
	if err := om.WriteFrame("final_frame.pb", frame); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,sim_time,active,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Contains(lines[0], "WindowStartTick") {
		t.Error("csv:\"-\" field leaked into the header")
	}
	if !strings.HasPrefix(lines[3], "30,") {
		t.Errorf("last row = %q, want window_end 30", lines[3])
	}

	if _, err := simulation.LoadConfig(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml does not load back: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "final_frame.pb"))
	if err != nil {
		t.Fatal(err)
	}
	var got simulation.Frame
	if err := got.UnmarshalBinary(raw); err != nil || got.Tick != 30 || len(got.Boids) != 1 {
		t.Errorf("final_frame.pb = %+v, %v", got, err)
	}
}
