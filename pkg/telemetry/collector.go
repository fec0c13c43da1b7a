package telemetry

import "github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"

// Collector accumulates tick reports within windows and produces WindowStats.
type Collector struct {
	windowTicks int
	dt          float64

	// Current window tracking
	windowStartTick uint64
	ticks           int

	neighbors    int
	boidTicks    int
	speedSum     float64
	polarization []float64
	blocked      int
	avoided      int
	exhausted    int
}

// NewCollector creates a new stats collector.
// windowTicks: how many ticks each stats window lasts
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowTicks int, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks:  windowTicks,
		dt:           dt,
		polarization: make([]float64, 0, windowTicks),
	}
}

// WindowTicks returns the window length in ticks.
func (c *Collector) WindowTicks() int {
	return c.windowTicks
}

// Record adds one tick. When the tick closes a window it returns the window
// stats and true, and starts a new window.
func (c *Collector) Record(r simulation.TickReport) (WindowStats, bool) {
	if c.ticks == 0 {
		c.windowStartTick = r.Tick
	}
	c.ticks++
	c.neighbors += r.Neighbors
	c.boidTicks += r.Active
	c.speedSum += r.MeanSpeed
	c.polarization = append(c.polarization, r.Polarization)
	c.blocked += r.Blocked
	c.avoided += r.Avoided
	c.exhausted += r.Exhausted

	if c.ticks < c.windowTicks {
		return WindowStats{}, false
	}
	return c.Flush(r), true
}

// Flush closes the current window at the last recorded tick. It returns zero
// stats when nothing was recorded.
func (c *Collector) Flush(last simulation.TickReport) WindowStats {
	if c.ticks == 0 {
		return WindowStats{}
	}
	s := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   last.Tick,
		SimTimeSec:      float64(last.Tick) * c.dt,
		Active:          last.Active,
		MeanSpeed:       c.speedSum / float64(c.ticks),
		Blocked:         c.blocked,
		Avoided:         c.avoided,
		Exhausted:       c.exhausted,
	}
	if c.boidTicks > 0 {
		s.MeanNeighbors = float64(c.neighbors) / float64(c.boidTicks)
	}
	var sum float64
	for _, p := range c.polarization {
		sum += p
	}
	s.Polarization = sum / float64(len(c.polarization))
	s.PolarizationP10, s.PolarizationP90 = spread(c.polarization)
	if c.blocked > 0 {
		s.AvoidRate = float64(c.avoided) / float64(c.blocked)
	}

	c.reset()
	return s
}

// Pending reports whether ticks were recorded since the last window closed.
func (c *Collector) Pending() bool {
	return c.ticks > 0
}

func (c *Collector) reset() {
	c.ticks = 0
	c.neighbors = 0
	c.boidTicks = 0
	c.speedSum = 0
	c.polarization = c.polarization[:0]
	c.blocked = 0
	c.avoided = 0
	c.exhausted = 0
}
