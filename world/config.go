package world

import (
	"fmt"
	"math"
	"strings"

	"github.com/miki-przygoda/World-Sim/core"
)

// IntegratorKind selects the time-stepping scheme.
type IntegratorKind int

const (
	// IntegratorSemiImplicitEuler is the baseline symplectic scheme:
	// velocity first, then position with the updated velocity.
	IntegratorSemiImplicitEuler IntegratorKind = iota
	// IntegratorVelocityVerlet trades a second force evaluation per step
	// for better energy behavior on orbits.
	IntegratorVelocityVerlet
)

// String returns the configuration-file name of the integrator.
func (k IntegratorKind) String() string {
	switch k {
	case IntegratorSemiImplicitEuler:
		return "euler"
	case IntegratorVelocityVerlet:
		return "verlet"
	default:
		return fmt.Sprintf("IntegratorKind(%d)", int(k))
	}
}

// ParseIntegratorKind maps a configuration string onto an integrator.
func ParseIntegratorKind(s string) (IntegratorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euler", "semi-implicit-euler", "":
		return IntegratorSemiImplicitEuler, nil
	case "verlet", "velocity-verlet":
		return IntegratorVelocityVerlet, nil
	default:
		return IntegratorSemiImplicitEuler, fmt.Errorf("%w: unknown integrator %q", ErrInvalidConfig, s)
	}
}

// ForceModelKind selects how net gravitational accelerations are computed.
type ForceModelKind int

const (
	// ForcePairwise is the exact O(n²) pair sum.
	ForcePairwise ForceModelKind = iota
	// ForceBarnesHut approximates distant groups through an octree.
	ForceBarnesHut
)

// String returns the configuration-file name of the force model.
func (k ForceModelKind) String() string {
	switch k {
	case ForcePairwise:
		return "pairwise"
	case ForceBarnesHut:
		return "barneshut"
	default:
		return fmt.Sprintf("ForceModelKind(%d)", int(k))
	}
}

// ParseForceModelKind maps a configuration string onto a force model.
func ParseForceModelKind(s string) (ForceModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pairwise", "direct", "":
		return ForcePairwise, nil
	case "barneshut", "barnes-hut", "tree":
		return ForceBarnesHut, nil
	default:
		return ForcePairwise, fmt.Errorf("%w: unknown force model %q", ErrInvalidConfig, s)
	}
}

// Config fixes the physics of a World at construction time. None of the
// fields may change once the World exists; build a new World to change
// them.
type Config struct {
	// G is the gravitational constant in the scenario's unit system.
	G float64
	// Softening is the Plummer softening length ε: forces follow
	// G·m1·m2/(d²+ε²). Zero is legal and gives exact Newtonian forces.
	Softening float64
	// DT is the fixed simulation timestep handed to the step scheduler.
	DT float64
	// MaxSubsteps caps how many steps a single frame may execute before
	// the scheduler discards backlog.
	MaxSubsteps int

	Collision  core.CollisionPolicy
	Integrator IntegratorKind
	ForceModel ForceModelKind

	// Theta is the Barnes-Hut opening angle; ignored by ForcePairwise.
	Theta float64
	// ForceWorkers parallelizes the pairwise sum when > 1; ignored by
	// ForceBarnesHut.
	ForceWorkers int

	// RadiusScale converts mass to collision radius via scale·mass^(1/3).
	RadiusScale float64
	// TrailLength bounds the per-body position history; 0 disables trails.
	TrailLength int
	// EscapeRadius removes bodies farther than this from the origin after
	// each step; 0 disables the cull.
	EscapeRadius float64

	// StartPaused leaves a fresh (or Reset) World in the Paused state.
	StartPaused bool
	// DefaultSpawnMass substitutes for a zero mass passed to SpawnDefault.
	DefaultSpawnMass float64
}

// DefaultConfig returns the demo-scenario tuning: unit G, mild softening,
// merge collisions and trails on.
func DefaultConfig() Config {
	return Config{
		G:                1,
		Softening:        1,
		DT:               0.1,
		MaxSubsteps:      5,
		Collision:        core.PolicyMerge,
		Integrator:       IntegratorSemiImplicitEuler,
		ForceModel:       ForcePairwise,
		Theta:            0.5,
		RadiusScale:      3,
		TrailLength:      500,
		StartPaused:      true,
		DefaultSpawnMass: 10,
	}
}

// Validate reports the first configuration problem found, wrapped in
// ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case !isFinite(c.G) || c.G <= 0:
		return fmt.Errorf("%w: G must be positive and finite, got %v", ErrInvalidConfig, c.G)
	case !isFinite(c.Softening) || c.Softening < 0:
		return fmt.Errorf("%w: softening must be non-negative and finite, got %v", ErrInvalidConfig, c.Softening)
	case !isFinite(c.DT) || c.DT <= 0:
		return fmt.Errorf("%w: dt must be positive and finite, got %v", ErrInvalidConfig, c.DT)
	case c.MaxSubsteps < 1:
		return fmt.Errorf("%w: max substeps must be at least 1, got %d", ErrInvalidConfig, c.MaxSubsteps)
	case !isFinite(c.Theta) || c.Theta < 0:
		return fmt.Errorf("%w: theta must be non-negative and finite, got %v", ErrInvalidConfig, c.Theta)
	case c.ForceWorkers < 0:
		return fmt.Errorf("%w: force workers must be non-negative, got %d", ErrInvalidConfig, c.ForceWorkers)
	case !isFinite(c.RadiusScale) || c.RadiusScale <= 0:
		return fmt.Errorf("%w: radius scale must be positive and finite, got %v", ErrInvalidConfig, c.RadiusScale)
	case c.TrailLength < 0:
		return fmt.Errorf("%w: trail length must be non-negative, got %d", ErrInvalidConfig, c.TrailLength)
	case !isFinite(c.EscapeRadius) || c.EscapeRadius < 0:
		return fmt.Errorf("%w: escape radius must be non-negative and finite, got %v", ErrInvalidConfig, c.EscapeRadius)
	case !isFinite(c.DefaultSpawnMass) || c.DefaultSpawnMass <= 0:
		return fmt.Errorf("%w: default spawn mass must be positive and finite, got %v", ErrInvalidConfig, c.DefaultSpawnMass)
	}
	return nil
}

// accelerator builds the force model the config names.
func (c Config) accelerator() core.Accelerator {
	if c.ForceModel == ForceBarnesHut {
		return &core.BarnesHutGravity{G: c.G, Softening: c.Softening, Theta: c.Theta}
	}
	return &core.PairwiseGravity{G: c.G, Softening: c.Softening, Workers: c.ForceWorkers}
}

// integrator builds the stepping scheme the config names. The Verlet
// scheme needs the accelerator for its second force evaluation.
func (c Config) integrator(accel core.Accelerator) core.Integrator {
	if c.Integrator == IntegratorVelocityVerlet {
		return &core.VelocityVerlet{Accel: accel}
	}
	return core.SemiImplicitEuler{}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
