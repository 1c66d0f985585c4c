package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/model"
)

// CenterOfMass returns the mass-weighted mean position of the bodies.
// An empty set yields the origin.
func CenterOfMass(bodies []*model.Body) r3.Vec {
	var weighted r3.Vec
	total := 0.0
	for _, b := range bodies {
		weighted = r3.Add(weighted, r3.Scale(b.Mass, b.Position))
		total += b.Mass
	}
	if total == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/total, weighted)
}

// TotalMomentum returns the vector sum of mass times velocity over the
// bodies. With symmetric pairwise forces this is conserved up to
// floating-point rounding, which makes it a useful integration check.
func TotalMomentum(bodies []*model.Body) r3.Vec {
	var p r3.Vec
	for _, b := range bodies {
		p = r3.Add(p, r3.Scale(b.Mass, b.Velocity))
	}
	return p
}

// CircularOrbitVelocity returns the velocity that puts a body at relative
// position rel onto a circular orbit around a central mass: speed
// sqrt(G*M/r) perpendicular to the radius vector. Positions in the xy
// plane orbit counter-clockwise within that plane; a position on the z
// axis has no preferred in-plane direction and falls back to +x.
//
// The result is the velocity relative to the central body; callers add
// the central body's own velocity for the absolute value.
func CircularOrbitVelocity(g, centralMass float64, rel r3.Vec) r3.Vec {
	r := r3.Norm(rel)
	if r == 0 || g <= 0 || centralMass <= 0 {
		return r3.Vec{}
	}
	speed := math.Sqrt(g * centralMass / r)

	tangent := r3.Vec{X: -rel.Y, Y: rel.X}
	if n := r3.Norm(tangent); n > 0 {
		return r3.Scale(speed/n, tangent)
	}
	return r3.Vec{X: speed}
}
