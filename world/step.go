package world

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/internal/logging"
	"github.com/miki-przygoda/World-Sim/model"
)

// Step advances the simulation by dt seconds: accelerations over the
// current state, integration, collision resolution, trail recording,
// escape culls, then the non-finite guard. While paused it is a no-op.
//
// All accelerations are computed from the pre-step state before any body
// moves, so update order within the slice cannot leak into the physics.
// If integration produced a NaN or Inf the world pauses itself and Step
// returns ErrNonFinite; simulation time does not advance in that case.
func (w *World) Step(dt float64) error {
	if !isFinite(dt) || dt <= 0 {
		return fmt.Errorf("%w: step dt must be positive and finite, got %v", ErrInvalidConfig, dt)
	}
	start := time.Now()

	w.mu.Lock()
	if w.paused {
		w.mu.Unlock()
		return nil
	}

	accels := w.accel.Accelerations(w.bodies)
	w.integrator.Advance(w.bodies, accels, dt)

	bodies, merges := w.resolver.Resolve(w.bodies)
	w.bodies = bodies

	w.recordTrailsLocked()
	escaped := w.applyEscapesLocked()

	if err := w.checkFiniteLocked(); err != nil {
		w.paused = true
		w.updateMetricsLocked()
		event := Event{Type: EventPaused, SimTime: w.simTime}
		subs := w.subscribersLocked()
		w.mu.Unlock()

		w.log.Error(context.Background(), "step produced non-finite state, pausing",
			logging.String("entity_type", "world"),
			logging.String("operation", "step"),
			logging.Err(err),
		)
		w.notify(subs, event)
		return err
	}

	w.simTime += dt
	w.stepCount++
	w.updateMetricsLocked()

	events := make([]Event, 0, len(merges)+len(escaped)+1)
	for _, m := range merges {
		events = append(events, Event{Type: EventBodiesMerged, SimTime: w.simTime, Merge: m})
	}
	for i := range escaped {
		events = append(events, Event{Type: EventBodyRemoved, SimTime: w.simTime, Body: escaped[i]})
	}
	events = append(events, Event{Type: EventStepped, SimTime: w.simTime})
	subs := w.subscribersLocked()
	simTime := w.simTime
	w.mu.Unlock()

	if len(merges) > 0 || len(escaped) > 0 {
		w.log.Debug(context.Background(), "step resolved bodies",
			logging.String("entity_type", "world"),
			logging.String("operation", "step"),
			logging.Float64("sim_time", simTime),
			logging.Int("merges", len(merges)),
			logging.Int("escaped", len(escaped)),
		)
	}
	if w.metrics != nil {
		w.metrics.ObserveStep(time.Since(start), len(merges), len(escaped))
	}
	for _, event := range events {
		w.notify(subs, event)
	}
	return nil
}

// recordTrailsLocked appends each body's position to its trail, bounded
// by the configured length. Caller must hold w.mu.
func (w *World) recordTrailsLocked() {
	if w.cfg.TrailLength <= 0 {
		return
	}
	for _, b := range w.bodies {
		b.Trail = append(b.Trail, b.Position)
		if n := len(b.Trail); n > w.cfg.TrailLength {
			b.Trail = b.Trail[n-w.cfg.TrailLength:]
		}
	}
}

// applyEscapesLocked removes bodies farther from the origin than the
// configured escape radius and returns copies of the removed bodies.
// Caller must hold w.mu.
func (w *World) applyEscapesLocked() []model.Body {
	if w.cfg.EscapeRadius <= 0 {
		return nil
	}
	limit := w.cfg.EscapeRadius * w.cfg.EscapeRadius

	var escaped []model.Body
	kept := w.bodies[:0]
	for _, b := range w.bodies {
		if r3.Norm2(b.Position) > limit {
			escaped = append(escaped, b.Clone())
			continue
		}
		kept = append(kept, b)
	}
	w.bodies = kept
	return escaped
}

// checkFiniteLocked returns ErrNonFinite naming the first body whose
// position or velocity went NaN or Inf. Caller must hold w.mu.
func (w *World) checkFiniteLocked() error {
	for _, b := range w.bodies {
		if !finiteVec(b.Position) || !finiteVec(b.Velocity) {
			return fmt.Errorf("%w: body %d", ErrNonFinite, b.ID)
		}
	}
	return nil
}
