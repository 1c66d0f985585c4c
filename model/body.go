package model

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BodyID identifies a body within one World. IDs are allocated from a
// monotonically increasing counter starting at 1, so an ID is never
// reused within the same World. Zero is never a valid ID.
type BodyID uint64

// Body is a point mass tracked by the simulation. The World owns every
// live Body exclusively; everything else sees value copies via snapshots.
type Body struct {
	ID   BodyID
	Name string

	Mass     float64 // strictly positive for every live body
	Position r3.Vec
	Velocity r3.Vec

	// Radius is derived from Mass via RadiusFromMass. It drives collision
	// detection and is a rendering hint; the force computation never
	// reads it.
	Radius float64

	// Trail holds recent positions, oldest first, capped by the world's
	// trail length setting. Purely diagnostic.
	Trail []r3.Vec
}

// Clone returns a value copy whose trail has its own backing array, so
// the copy stays valid while the original keeps moving.
func (b *Body) Clone() Body {
	out := *b
	if len(b.Trail) > 0 {
		out.Trail = append([]r3.Vec(nil), b.Trail...)
	} else {
		out.Trail = nil
	}
	return out
}

// BodySpec describes a body to spawn: the caller supplies mass, position,
// and velocity; the World assigns the ID and derives the radius.
type BodySpec struct {
	Name     string
	Mass     float64
	Position r3.Vec
	Velocity r3.Vec
}

// RadiusFromMass derives a radius from a mass using a cube-root law,
// radius = scale * cbrt(mass). Cubes add under this law, so merging two
// bodies conserves their combined volume.
func RadiusFromMass(mass, scale float64) float64 {
	if mass <= 0 || scale <= 0 {
		return 0
	}
	return scale * math.Cbrt(mass)
}
