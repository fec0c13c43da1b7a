// Command flocksim runs the 3D flocking simulation headless, driven through
// an actor system, and writes telemetry for later analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/telemetry"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
)

const askTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a json, yaml or toml config (empty = use defaults)")
	ticks := flag.Int("ticks", -1, "Number of ticks to run (-1 = use config)")
	dt := flag.Float64("dt", 0, "Seconds per tick (0 = use config)")
	boids := flag.Int("boids", -1, "Number of boids (-1 = use config)")
	var seed optionalUint64
	flag.Var(&seed, "seed", "RNG seed, any uint64 (unset = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV telemetry and config snapshot")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := simulation.DefaultConfig()
	if *configPath != "" {
		loaded, err := simulation.LoadConfig(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *ticks >= 0 {
		cfg.Ticks = *ticks
	}
	if *dt > 0 {
		cfg.Dt = *dt
	}
	if *boids >= 0 {
		cfg.Boids = *boids
		if cfg.ActiveBoids > cfg.Boids {
			cfg.ActiveBoids = -1
		}
	}
	if seed.set {
		cfg.Seed = seed.value
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *statsWindow > 0 {
		cfg.Telemetry.Window = *statsWindow
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

// optionalUint64 is a uint64 flag that remembers whether it was given, so
// that 0 is a valid value.
type optionalUint64 struct {
	value uint64
	set   bool
}

func (o *optionalUint64) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.FormatUint(o.value, 10)
}

func (o *optionalUint64) Set(s string) error {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

func run(ctx context.Context, cfg *simulation.Config, logger *slog.Logger) error {
	runID := uuid.NewString()
	logger = logger.With("run", runID)

	out, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	recorder := simulation.NewFrameRecorder()
	opts, err := cfg.FlockOptions(recorder, logger)
	if err != nil {
		return err
	}
	flock, err := simulation.NewFlock(opts)
	if err != nil {
		return err
	}

	// The actor system only hosts the flock; keep its own chatter quiet
	// unless debugging.
	var sysLogger golog.Logger = golog.DiscardLogger
	if logger.Enabled(ctx, slog.LevelDebug) {
		sysLogger = golog.DefaultLogger
	}
	system, err := actor.NewActorSystem("FlockSim",
		actor.WithLogger(sysLogger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return fmt.Errorf("creating actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("starting actor system: %w", err)
	}
	defer func() {
		if err := system.Stop(context.Background()); err != nil {
			logger.Warn("actor system stop", "error", err)
		}
	}()

	pid, err := system.Spawn(ctx, "flock", simulation.NewFlockActor(flock, recorder))
	if err != nil {
		return fmt.Errorf("spawning flock: %w", err)
	}
	if cfg.ActiveBoids >= 0 {
		if _, err := simulation.Resize(ctx, pid, cfg.ActiveBoids, askTimeout); err != nil {
			return err
		}
	}

	logger.Info("simulation starting",
		"boids", cfg.Boids,
		"active", flock.ActiveCount(),
		"ticks", cfg.Ticks,
		"dt", cfg.Dt,
		"seed", cfg.Seed,
		"output", out.Dir())

	collector := telemetry.NewCollector(cfg.Telemetry.Window, cfg.Dt)
	var (
		last     simulation.TickReport
		windows  int
		blocked  int
		avoided  int
		started  = time.Now()
		executed int
	)
	for executed < cfg.Ticks {
		if ctx.Err() != nil {
			logger.Warn("interrupted", "tick", executed)
			break
		}
		last, err = simulation.Step(ctx, pid, cfg.Dt, askTimeout)
		if err != nil {
			return fmt.Errorf("tick %d: %w", executed+1, err)
		}
		executed++
		blocked += last.Blocked
		avoided += last.Avoided

		if stats, done := collector.Record(last); done {
			windows++
			if err := out.WriteTelemetry(stats); err != nil {
				return err
			}
			if cfg.Telemetry.LogEvery > 0 && windows%cfg.Telemetry.LogEvery == 0 {
				logger.Info("stats", "window", stats)
			}
		}
	}
	if collector.Pending() {
		if err := out.WriteTelemetry(collector.Flush(last)); err != nil {
			return err
		}
	}

	frame, err := simulation.LatestFrame(ctx, pid, askTimeout)
	if err != nil {
		return fmt.Errorf("fetching final frame: %w", err)
	}
	if err := out.WriteFrame("final_frame.pb", frame); err != nil {
		return err
	}

	elapsed := time.Since(started)
	boidTicks := int64(executed) * int64(last.Active)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(boidTicks) / elapsed.Seconds()
	}
	logger.Info("simulation finished",
		"ticks", humanize.Comma(int64(executed)),
		"boid_updates", humanize.Comma(boidTicks),
		"updates_per_sec", humanize.SIWithDigits(rate, 2, ""),
		"sim_time", humanize.Ftoa(float64(executed)*cfg.Dt)+"s",
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"blocked", humanize.Comma(int64(blocked)),
		"avoided", humanize.Comma(int64(avoided)),
		"polarization", fmt.Sprintf("%.3f", last.Polarization),
		"frame_boids", len(frame.Boids))
	if dir := out.Dir(); dir != "" {
		logger.Info("output written", "files", strings.Join([]string{"config.yaml", "telemetry.csv", "final_frame.pb"}, ", "), "dir", dir)
	}
	return nil
}
