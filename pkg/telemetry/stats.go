// Package telemetry aggregates tick reports into windows and writes them out.
package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Active int `csv:"active"`

	// Means over the window
	MeanNeighbors   float64 `csv:"mean_neighbors"` // per boid and tick
	MeanSpeed       float64 `csv:"mean_speed"`
	Polarization    float64 `csv:"polarization"`
	PolarizationP10 float64 `csv:"polarization_p10"`
	PolarizationP90 float64 `csv:"polarization_p90"`

	// Obstacle avoidance events during the window
	Blocked   int     `csv:"blocked"`
	Avoided   int     `csv:"avoided"`
	Exhausted int     `csv:"exhausted"`
	AvoidRate float64 `csv:"avoid_rate"` // avoided / blocked
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// spread returns the 10th and 90th percentiles of values.
func spread(values []float64) (p10, p90 float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return Percentile(sorted, 0.10), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("active", s.Active),
		slog.Float64("mean_neighbors", s.MeanNeighbors),
		slog.Float64("mean_speed", s.MeanSpeed),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("polarization_p10", s.PolarizationP10),
		slog.Float64("polarization_p90", s.PolarizationP90),
		slog.Int("blocked", s.Blocked),
		slog.Int("avoided", s.Avoided),
		slog.Int("exhausted", s.Exhausted),
		slog.Float64("avoid_rate", s.AvoidRate),
	)
}
