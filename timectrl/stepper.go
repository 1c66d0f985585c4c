package timectrl

import "fmt"

// DefaultMaxSteps caps the physics steps a single frame may run when the
// stepper is built with MaxSteps zero.
const DefaultMaxSteps = 5

// FixedStepper decouples the frame cadence from the physics timestep. It
// accumulates elapsed simulation seconds and releases them in fixed DT
// chunks, so the physics sees identical timesteps no matter how uneven
// the frames are. Not safe for concurrent use; it belongs to the loop
// that drives it.
type FixedStepper struct {
	// DT is the fixed timestep handed to the step function.
	DT float64
	// MaxSteps bounds the steps per Advance call; zero means
	// DefaultMaxSteps.
	MaxSteps int

	acc float64
}

// Advance adds elapsed simulation seconds to the backlog and runs fn
// once per full DT, at most MaxSteps times. If the backlog still holds a
// full DT after that, the whole backlog is discarded and reported in
// dropped, so a slow frame cannot snowball into an ever-growing debt.
// Negative or NaN elapsed values are ignored.
//
// If fn fails, Advance stops the frame and returns the error; the
// failing step's time stays pending.
func (s *FixedStepper) Advance(elapsed float64, fn func(dt float64) error) (steps int, dropped float64, err error) {
	if !(s.DT > 0) {
		return 0, 0, fmt.Errorf("fixed stepper: dt must be positive, got %v", s.DT)
	}
	maxSteps := s.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	if elapsed > 0 {
		s.acc += elapsed
	}
	for s.acc >= s.DT && steps < maxSteps {
		if err := fn(s.DT); err != nil {
			return steps, 0, err
		}
		s.acc -= s.DT
		steps++
	}
	if s.acc >= s.DT {
		dropped = s.acc
		s.acc = 0
	}
	return steps, dropped, nil
}

// Pending returns the backlog of accumulated but not yet simulated
// seconds. It is always smaller than DT after a successful Advance.
func (s *FixedStepper) Pending() float64 {
	return s.acc
}

// Reset clears the backlog. Call it alongside a world reset so stale
// frame debt is not simulated against the fresh state.
func (s *FixedStepper) Reset() {
	s.acc = 0
}
