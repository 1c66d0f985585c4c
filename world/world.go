package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/core"
	"github.com/miki-przygoda/World-Sim/internal/logging"
	"github.com/miki-przygoda/World-Sim/model"
)

var (
	// ErrInvalidMass indicates a spawn spec with a non-positive or
	// non-finite mass.
	ErrInvalidMass = errors.New("body mass must be positive and finite")
	// ErrBodyNotFound indicates a requested body ID is not in the world.
	ErrBodyNotFound = errors.New("body not found")
	// ErrNonFinite indicates a NaN or Inf in a spawn spec or in the body
	// state after a step. A step that trips it pauses the world.
	ErrNonFinite = errors.New("non-finite numeric state")
	// ErrInvalidConfig indicates a rejected configuration value.
	ErrInvalidConfig = errors.New("invalid world configuration")
)

// World owns the simulated body collection and advances it through
// fixed-dt steps. It is the single writer of body state; everything
// callers get back is a value copy.
type World struct {
	// mu is the coarse world-level lock. All body mutation happens under
	// the write lock; snapshots and accessors take the read lock.
	mu sync.RWMutex

	// cfg is immutable after construction.
	cfg Config

	// initial holds the body specs the world was constructed with, so
	// Reset can restore them.
	initial []model.BodySpec

	// bodies is kept sorted by ascending ID. IDs are allocated
	// monotonically, so appends preserve the order.
	bodies []*model.Body
	nextID model.BodyID

	paused    bool
	simTime   float64
	stepCount uint64

	accel      core.Accelerator
	integrator core.Integrator
	resolver   *core.CollisionResolver

	subs      []subscriber
	nextSubID uint64

	// log is an optional structured logger for world-level events.
	log logging.Logger

	// metrics is an optional recorder for Prometheus-friendly gauges.
	metrics MetricsRecorder
}

// MetricsRecorder receives simulation measurements from the world.
type MetricsRecorder interface {
	SetBodyCount(n int)
	SetSimTime(seconds float64)
	ObserveStep(d time.Duration, merges, removals int)
	IncSpawns()
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Option customises World construction.
type Option func(*World)

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(w *World) {
		w.metrics = m
	}
}

// New builds a world from the config and spawns the initial bodies. The
// initial specs are retained so Reset can restore them. The world starts
// paused or running per cfg.StartPaused.
func New(cfg Config, initial []model.BodySpec, log logging.Logger, opts ...Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Noop()
	}

	accel := cfg.accelerator()
	w := &World{
		cfg:        cfg,
		initial:    append([]model.BodySpec(nil), initial...),
		nextID:     1,
		paused:     cfg.StartPaused,
		accel:      accel,
		integrator: cfg.integrator(accel),
		log:        log,
	}
	w.resolver = &core.CollisionResolver{
		Policy:      cfg.Collision,
		RadiusScale: cfg.RadiusScale,
		AllocID:     w.allocIDLocked,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	for i, spec := range w.initial {
		if _, err := w.spawnLocked(spec); err != nil {
			return nil, fmt.Errorf("initial body %d: %w", i, err)
		}
	}
	w.updateMetricsLocked()
	return w, nil
}

// SpawnBody validates the spec, adds the body and returns its fresh ID.
// On rejection the body collection is unchanged.
func (w *World) SpawnBody(ctx context.Context, spec model.BodySpec) (model.BodyID, error) {
	ctx, reqLog := logging.WithRequestLogger(ctx, w.log)

	w.mu.Lock()
	b, err := w.spawnLocked(spec)
	if err != nil {
		w.mu.Unlock()
		return 0, err
	}
	w.updateMetricsLocked()
	if w.metrics != nil {
		w.metrics.IncSpawns()
	}
	event := Event{Type: EventBodySpawned, SimTime: w.simTime, Body: b.Clone()}
	subs := w.subscribersLocked()
	w.mu.Unlock()

	reqLog.Debug(ctx, "body spawned",
		logging.String("entity_type", "body"),
		logging.String("operation", "spawn"),
		logging.Uint64("body_id", uint64(b.ID)),
		logging.String("name", b.Name),
		logging.Float64("mass", b.Mass),
	)
	w.notify(subs, event)
	return b.ID, nil
}

// SpawnDefault is the interactive-spawn convenience: a zero mass in the
// spec is replaced by the configured default spawn mass before the usual
// validation. Negative masses are still rejected.
func (w *World) SpawnDefault(ctx context.Context, spec model.BodySpec) (model.BodyID, error) {
	if spec.Mass == 0 {
		spec.Mass = w.cfg.DefaultSpawnMass
	}
	return w.SpawnBody(ctx, spec)
}

// RemoveBody removes the body with the given ID and reports whether it
// was present. Removing an unknown ID is a no-op.
func (w *World) RemoveBody(ctx context.Context, id model.BodyID) bool {
	ctx, reqLog := logging.WithRequestLogger(ctx, w.log)

	w.mu.Lock()
	i := w.indexOfLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return false
	}
	removed := w.bodies[i].Clone()
	w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
	w.updateMetricsLocked()
	event := Event{Type: EventBodyRemoved, SimTime: w.simTime, Body: removed}
	subs := w.subscribersLocked()
	w.mu.Unlock()

	reqLog.Debug(ctx, "body removed",
		logging.String("entity_type", "body"),
		logging.String("operation", "remove"),
		logging.Uint64("body_id", uint64(id)),
	)
	w.notify(subs, event)
	return true
}

// Pause stops stepping. Pausing an already paused world does nothing.
func (w *World) Pause() {
	w.mu.Lock()
	if w.paused {
		w.mu.Unlock()
		return
	}
	w.paused = true
	event := Event{Type: EventPaused, SimTime: w.simTime}
	subs := w.subscribersLocked()
	w.mu.Unlock()

	w.notify(subs, event)
}

// Resume restarts stepping. Resuming a running world does nothing.
func (w *World) Resume() {
	w.mu.Lock()
	if !w.paused {
		w.mu.Unlock()
		return
	}
	w.paused = false
	event := Event{Type: EventResumed, SimTime: w.simTime}
	subs := w.subscribersLocked()
	w.mu.Unlock()

	w.notify(subs, event)
}

// Paused reports whether the world is paused.
func (w *World) Paused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paused
}

// SimTime returns the accumulated simulation time in seconds.
func (w *World) SimTime() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.simTime
}

// Steps returns the number of completed steps.
func (w *World) Steps() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stepCount
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bodies)
}

// Body returns a value copy of the body with the given ID.
func (w *World) Body(id model.BodyID) (model.Body, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	i := w.indexOfLocked(id)
	if i < 0 {
		return model.Body{}, false
	}
	return w.bodies[i].Clone(), true
}

// Snapshot returns value copies of all bodies ordered by ascending ID,
// trails included. The result is safe to read while the world keeps
// stepping.
func (w *World) Snapshot() []model.Body {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]model.Body, len(w.bodies))
	for i, b := range w.bodies {
		out[i] = b.Clone()
	}
	return out
}

// OrbitalPeriod estimates the Kepler period of the body's orbit around
// the reference body from their current relative state. With more than
// two significant masses the result is an osculating approximation; see
// core.OrbitalPeriod. Unknown IDs yield ErrBodyNotFound.
func (w *World) OrbitalPeriod(id, refID model.BodyID) (float64, error) {
	w.mu.RLock()
	bi, ri := w.indexOfLocked(id), w.indexOfLocked(refID)
	var b, ref model.Body
	if bi >= 0 {
		b = *w.bodies[bi]
	}
	if ri >= 0 {
		ref = *w.bodies[ri]
	}
	g := w.cfg.G
	w.mu.RUnlock()

	if bi < 0 {
		return 0, fmt.Errorf("%w: %d", ErrBodyNotFound, id)
	}
	if ri < 0 {
		return 0, fmt.Errorf("%w: %d", ErrBodyNotFound, refID)
	}
	return core.OrbitalPeriod(g, b.Mass, ref.Mass,
		b.Position.Sub(ref.Position), b.Velocity.Sub(ref.Velocity))
}

// Reset restores the initial body specs, zeroes the clock and step
// counter and returns the pause state to the configured start state.
// IDs are reallocated from 1, matching a freshly constructed world.
func (w *World) Reset(ctx context.Context) {
	ctx, reqLog := logging.WithRequestLogger(ctx, w.log)

	w.mu.Lock()
	w.bodies = nil
	w.nextID = 1
	w.simTime = 0
	w.stepCount = 0
	w.paused = w.cfg.StartPaused
	for _, spec := range w.initial {
		// Specs were validated when the world was built.
		_, _ = w.spawnLocked(spec)
	}
	w.updateMetricsLocked()
	event := Event{Type: EventReset}
	subs := w.subscribersLocked()
	bodies := len(w.bodies)
	w.mu.Unlock()

	reqLog.Info(ctx, "world reset",
		logging.String("entity_type", "world"),
		logging.String("operation", "reset"),
		logging.Int("bodies", bodies),
	)
	w.notify(subs, event)
}

// Subscribe registers a callback for world events. Events are delivered
// outside the world lock, in order, from whichever goroutine triggered
// them. It returns an unsubscribe function.
func (w *World) Subscribe(fn func(Event)) (unsubscribe func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextSubID++
	id := w.nextSubID
	w.subs = append(w.subs, subscriber{id: id, fn: fn})

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, s := range w.subs {
			if s.id == id {
				w.subs = append(w.subs[:i], w.subs[i+1:]...)
				return
			}
		}
	}
}

// spawnLocked validates a spec and appends the resulting body. Caller
// must hold w.mu.
func (w *World) spawnLocked(spec model.BodySpec) (*model.Body, error) {
	if !isFinite(spec.Mass) || spec.Mass <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidMass, spec.Mass)
	}
	if !finiteVec(spec.Position) {
		return nil, fmt.Errorf("%w: spawn position %+v", ErrNonFinite, spec.Position)
	}
	if !finiteVec(spec.Velocity) {
		return nil, fmt.Errorf("%w: spawn velocity %+v", ErrNonFinite, spec.Velocity)
	}

	b := &model.Body{
		ID:       w.allocIDLocked(),
		Name:     spec.Name,
		Mass:     spec.Mass,
		Position: spec.Position,
		Velocity: spec.Velocity,
		Radius:   model.RadiusFromMass(spec.Mass, w.cfg.RadiusScale),
	}
	w.bodies = append(w.bodies, b)
	return b, nil
}

// allocIDLocked hands out the next body ID. IDs are never reused, so a
// freed ID stays dead for the lifetime of the world. Caller must hold
// w.mu; the collision resolver calls this from inside Step.
func (w *World) allocIDLocked() model.BodyID {
	id := w.nextID
	w.nextID++
	return id
}

// indexOfLocked finds a body by ID in the sorted slice, or -1. Caller
// must hold w.mu.
func (w *World) indexOfLocked(id model.BodyID) int {
	i := sort.Search(len(w.bodies), func(i int) bool { return w.bodies[i].ID >= id })
	if i < len(w.bodies) && w.bodies[i].ID == id {
		return i
	}
	return -1
}

// updateMetricsLocked pushes current gauge values into the metrics
// recorder. Caller must hold w.mu.
func (w *World) updateMetricsLocked() {
	if w.metrics == nil {
		return
	}
	w.metrics.SetBodyCount(len(w.bodies))
	w.metrics.SetSimTime(w.simTime)
}

// subscribersLocked copies the subscriber callbacks so they can be
// invoked after the lock is released. Caller must hold w.mu.
func (w *World) subscribersLocked() []func(Event) {
	if len(w.subs) == 0 {
		return nil
	}
	fns := make([]func(Event), len(w.subs))
	for i, s := range w.subs {
		fns[i] = s.fn
	}
	return fns
}

// notify delivers an event to the given callbacks. Call without holding
// w.mu to keep subscribers free to call back into the world.
func (w *World) notify(fns []func(Event), event Event) {
	for _, fn := range fns {
		fn(event)
	}
}

func finiteVec(v r3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}
