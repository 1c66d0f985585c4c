package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LoopCollector exposes metrics for the frame loop that drives the world:
// how long frames take, how many fixed steps each one releases, and how
// much simulation time the backlog cap had to throw away.
type LoopCollector struct {
	gatherer prometheus.Gatherer

	FrameDuration     prometheus.Histogram
	StepsPerFrame     prometheus.Histogram
	FramesTotal       prometheus.Counter
	DroppedSimSeconds prometheus.Counter
}

// NewLoopCollector registers frame-loop metrics against the provided
// registerer.
func NewLoopCollector(reg prometheus.Registerer) (*LoopCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frameDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_frame_duration_seconds",
		Help:    "Wall-clock duration of one frame of the simulation loop.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
	frameDuration, err := registerHistogram(reg, frameDuration, "sim_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	stepsPerFrame := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_steps_per_frame",
		Help:    "Fixed physics steps released per frame; saturation at the substep cap shows up as mass in the top bucket.",
		Buckets: prometheus.LinearBuckets(0, 1, 8),
	})
	stepsPerFrame, err = registerHistogram(reg, stepsPerFrame, "sim_steps_per_frame")
	if err != nil {
		return nil, err
	}

	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_frames_total",
		Help: "Cumulative number of frames executed by the simulation loop.",
	})
	frames, err = registerCounter(reg, frames, "sim_frames_total")
	if err != nil {
		return nil, err
	}

	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_dropped_sim_seconds_total",
		Help: "Simulation seconds discarded because the frame hit the substep cap.",
	})
	dropped, err = registerCounter(reg, dropped, "sim_dropped_sim_seconds_total")
	if err != nil {
		return nil, err
	}

	return &LoopCollector{
		gatherer:          gatherer,
		FrameDuration:     frameDuration,
		StepsPerFrame:     stepsPerFrame,
		FramesTotal:       frames,
		DroppedSimSeconds: dropped,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *LoopCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrame records one executed frame and the steps it released.
func (c *LoopCollector) ObserveFrame(d time.Duration, steps int) {
	if c == nil {
		return
	}
	if c.FrameDuration != nil {
		c.FrameDuration.Observe(d.Seconds())
	}
	if c.StepsPerFrame != nil {
		c.StepsPerFrame.Observe(float64(steps))
	}
	if c.FramesTotal != nil {
		c.FramesTotal.Inc()
	}
}

// AddDroppedSimTime accumulates discarded simulation seconds.
func (c *LoopCollector) AddDroppedSimTime(seconds float64) {
	if c == nil || c.DroppedSimSeconds == nil {
		return
	}
	if seconds <= 0 {
		return
	}
	c.DroppedSimSeconds.Add(seconds)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
