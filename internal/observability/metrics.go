package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation world and
// provides the recorder the world pushes its measurements through.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Bodies       prometheus.Gauge
	SimTime      prometheus.Gauge
	StepsTotal   prometheus.Counter
	SpawnsTotal  prometheus.Counter
	MergesTotal  prometheus.Counter
	CullsTotal   prometheus.Counter
	StepDuration prometheus.Histogram
	EventsTotal  *prometheus.CounterVec
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	bodies, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_bodies",
		Help: "Current number of live bodies in the world.",
	}), "sim_bodies")
	if err != nil {
		return nil, err
	}
	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_time_seconds",
		Help: "Accumulated simulation time in seconds.",
	}), "sim_time_seconds")
	if err != nil {
		return nil, err
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steps_total",
		Help: "Cumulative number of completed physics steps.",
	}), "sim_steps_total")
	if err != nil {
		return nil, err
	}
	spawns, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_spawns_total",
		Help: "Cumulative number of bodies spawned after world construction.",
	}), "sim_spawns_total")
	if err != nil {
		return nil, err
	}
	merges, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_merges_total",
		Help: "Cumulative number of collision merges.",
	}), "sim_merges_total")
	if err != nil {
		return nil, err
	}
	culls, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_culls_total",
		Help: "Cumulative number of bodies removed by the escape-radius cull.",
	}), "sim_culls_total")
	if err != nil {
		return nil, err
	}

	stepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock cost of one physics step.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	stepDuration, err = registerHistogram(reg, stepDuration, "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_events_total",
		Help: "World events delivered to subscribers, labeled by event kind.",
	}, []string{"kind"})
	events, err = registerCounterVec(reg, events, "sim_events_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:     gatherer,
		Bodies:       bodies,
		SimTime:      simTime,
		StepsTotal:   steps,
		SpawnsTotal:  spawns,
		MergesTotal:  merges,
		CullsTotal:   culls,
		StepDuration: stepDuration,
		EventsTotal:  events,
	}, nil
}

// SetBodyCount updates the live-body gauge. Together with SetSimTime,
// ObserveStep and IncSpawns it satisfies the world's metrics recorder
// interface, so the world can drive these values directly from its
// mutators.
func (c *SimCollector) SetBodyCount(n int) {
	if c == nil || c.Bodies == nil {
		return
	}
	c.Bodies.Set(float64(n))
}

// SetSimTime updates the simulation clock gauge.
func (c *SimCollector) SetSimTime(seconds float64) {
	if c == nil || c.SimTime == nil {
		return
	}
	c.SimTime.Set(seconds)
}

// ObserveStep records one completed physics step.
func (c *SimCollector) ObserveStep(d time.Duration, merges, removals int) {
	if c == nil {
		return
	}
	if c.StepDuration != nil {
		c.StepDuration.Observe(d.Seconds())
	}
	if c.StepsTotal != nil {
		c.StepsTotal.Inc()
	}
	if c.MergesTotal != nil && merges > 0 {
		c.MergesTotal.Add(float64(merges))
	}
	if c.CullsTotal != nil && removals > 0 {
		c.CullsTotal.Add(float64(removals))
	}
}

// IncSpawns counts one successful spawn.
func (c *SimCollector) IncSpawns() {
	if c == nil || c.SpawnsTotal == nil {
		return
	}
	c.SpawnsTotal.Inc()
}

// IncEvent counts one delivered world event of the given kind.
func (c *SimCollector) IncEvent(kind string) {
	if c == nil || c.EventsTotal == nil {
		return
	}
	c.EventsTotal.WithLabelValues(kind).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
