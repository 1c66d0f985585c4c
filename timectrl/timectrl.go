package timectrl

import (
	"sync"
	"time"
)

// SimClock is an interface for reading simulation time. Components that
// only need to know "when is it in the simulation" depend on this rather
// than on the concrete controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Mode describes how the TimeController converts wall time into
// simulation time.
type Mode int

const (
	// RealTime advances simulation time one second per wall second.
	RealTime Mode = iota
	// Accelerated advances Scale simulation seconds per wall second.
	Accelerated
	// Manual never advances on its own; time moves only through
	// explicit Advance or SetTime calls.
	Manual
)

// TimeController owns the simulation clock and notifies registered
// listeners whenever it moves. StartTime, Scale and Mode are fixed after
// construction.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Scale     float64
	Mode      Mode

	currentTime time.Time

	listeners []func(time.Time)
}

// NewTimeController constructs a controller starting at start. A
// non-positive or NaN scale falls back to 1.
func NewTimeController(start time.Time, scale float64, mode Mode) *TimeController {
	if !(scale > 0) {
		scale = 1
	}
	return &TimeController{
		StartTime:   start,
		Scale:       scale,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime jumps the simulation clock to the given instant and notifies
// listeners. Jumps move the clock without simulating the span in
// between; world state is not touched.
func (tc *TimeController) SetTime(now time.Time) {
	tc.mu.Lock()
	tc.currentTime = now
	fns := tc.listenersLocked()
	tc.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
}

// Advance moves the simulation clock forward by the given number of
// simulated seconds and notifies listeners. It returns the new time.
func (tc *TimeController) Advance(simSeconds float64) time.Time {
	d := time.Duration(simSeconds * float64(time.Second))

	tc.mu.Lock()
	tc.currentTime = tc.currentTime.Add(d)
	now := tc.currentTime
	fns := tc.listenersLocked()
	tc.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
	return now
}

// SimDelta converts an elapsed wall duration into simulation seconds
// according to the mode: one-to-one for RealTime, scaled for
// Accelerated, zero for Manual.
func (tc *TimeController) SimDelta(wall time.Duration) float64 {
	switch tc.Mode {
	case Accelerated:
		return wall.Seconds() * tc.Scale
	case Manual:
		return 0
	default:
		return wall.Seconds()
	}
}

// ScaleFactor returns the effective simulation-seconds-per-wall-second
// rate of the current mode.
func (tc *TimeController) ScaleFactor() float64 {
	switch tc.Mode {
	case Accelerated:
		return tc.Scale
	case Manual:
		return 0
	default:
		return 1
	}
}

// AddListener registers a callback invoked with the new simulation time
// on every clock movement.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// listenersLocked copies the callbacks so they can run after the lock is
// released. Caller must hold tc.mu.
func (tc *TimeController) listenersLocked() []func(time.Time) {
	if len(tc.listeners) == 0 {
		return nil
	}
	fns := make([]func(time.Time), len(tc.listeners))
	copy(fns, tc.listeners)
	return fns
}
