package core

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/model"
)

// Integrator advances body velocities and positions over a fixed
// timestep, given accelerations computed against the pre-step state. The
// caller guarantees accels[i] belongs to bodies[i] and that every
// acceleration was computed before any body was mutated.
type Integrator interface {
	Advance(bodies []*model.Body, accels []r3.Vec, dt float64)
}

// SemiImplicitEuler is the baseline symplectic scheme: the velocity is
// updated first and the updated velocity moves the position.
type SemiImplicitEuler struct{}

// Advance implements Integrator.
func (SemiImplicitEuler) Advance(bodies []*model.Body, accels []r3.Vec, dt float64) {
	for i, b := range bodies {
		b.Velocity = r3.Add(b.Velocity, r3.Scale(dt, accels[i]))
		b.Position = r3.Add(b.Position, r3.Scale(dt, b.Velocity))
	}
}

// VelocityVerlet is a second-order symplectic scheme. It moves positions
// with the half-step acceleration term, recomputes accelerations at the
// new positions through Accel, and finishes the velocity update with the
// average of the two.
type VelocityVerlet struct {
	Accel Accelerator
}

// Advance implements Integrator.
func (vv *VelocityVerlet) Advance(bodies []*model.Body, accels []r3.Vec, dt float64) {
	half := 0.5 * dt
	for i, b := range bodies {
		b.Position = r3.Add(r3.Add(b.Position, r3.Scale(dt, b.Velocity)), r3.Scale(half*dt, accels[i]))
	}
	next := vv.Accel.Accelerations(bodies)
	for i, b := range bodies {
		b.Velocity = r3.Add(b.Velocity, r3.Scale(half, r3.Add(accels[i], next[i])))
	}
}
