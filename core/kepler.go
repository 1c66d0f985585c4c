package core

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnboundOrbit indicates the relative state does not describe a bound
// ellipse, so no orbital period exists.
var ErrUnboundOrbit = errors.New("orbit is not bound")

// OrbitalPeriod estimates the period of the two-body orbit described by
// the relative position and velocity of a body with respect to a
// reference body, via the vis-viva energy and Kepler's third law:
//
//	μ = G(m1+m2)
//	e = v²/2 - μ/r        (specific orbital energy; bound requires e < 0)
//	a = -μ/(2e)
//	T = 2π sqrt(a³/μ)
//
// The estimate treats the pair as isolated, so with more than two
// significant masses it is an osculating approximation of the instant's
// state, useful as a diagnostic rather than a guarantee.
func OrbitalPeriod(g, m1, m2 float64, relPos, relVel r3.Vec) (float64, error) {
	mu := g * (m1 + m2)
	if mu <= 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return 0, fmt.Errorf("orbital period: non-physical gravitational parameter %v", mu)
	}

	r := r3.Norm(relPos)
	if r == 0 {
		return 0, fmt.Errorf("%w: zero separation", ErrUnboundOrbit)
	}

	energy := r3.Norm2(relVel)/2 - mu/r
	if energy >= 0 {
		return 0, fmt.Errorf("%w: specific orbital energy %v", ErrUnboundOrbit, energy)
	}

	a := -mu / (2 * energy)
	return 2 * math.Pi * math.Sqrt(a*a*a/mu), nil
}
