package core

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestOrbitalPeriodCircular(t *testing.T) {
	const (
		g  = 1.0
		m1 = 1000.0
		m2 = 1.0
		r  = 100.0
	)
	mu := g * (m1 + m2)
	relPos := r3.Vec{X: r}
	relVel := r3.Vec{Y: math.Sqrt(mu / r)}

	got, err := OrbitalPeriod(g, m1, m2, relPos, relVel)
	if err != nil {
		t.Fatalf("OrbitalPeriod error = %v", err)
	}
	want := 2 * math.Pi * math.Sqrt(r*r*r/mu)
	if !scalar.EqualWithinAbsOrRel(got, want, 1e-9, 1e-9) {
		t.Fatalf("OrbitalPeriod = %v, want %v", got, want)
	}
}

func TestOrbitalPeriodEllipticalFromApoapsis(t *testing.T) {
	// Apoapsis of an a=100, e=0.5 ellipse: r = 150, v = sqrt(mu*(2/r - 1/a)).
	const (
		g  = 1.0
		m1 = 999.0
		m2 = 1.0
		a  = 100.0
		r  = 150.0
	)
	mu := g * (m1 + m2)
	relPos := r3.Vec{X: r}
	relVel := r3.Vec{Y: math.Sqrt(mu * (2/r - 1/a))}

	got, err := OrbitalPeriod(g, m1, m2, relPos, relVel)
	if err != nil {
		t.Fatalf("OrbitalPeriod error = %v", err)
	}
	want := 2 * math.Pi * math.Sqrt(a*a*a/mu)
	if !scalar.EqualWithinAbsOrRel(got, want, 1e-9, 1e-9) {
		t.Fatalf("OrbitalPeriod = %v, want %v", got, want)
	}
}

func TestOrbitalPeriodUnbound(t *testing.T) {
	mu := 1000.0
	relPos := r3.Vec{X: 100}
	// Twice escape speed, clearly positive energy.
	relVel := r3.Vec{Y: 2 * math.Sqrt(2*mu/100)}

	_, err := OrbitalPeriod(1, 999, 1, relPos, relVel)
	if !errors.Is(err, ErrUnboundOrbit) {
		t.Fatalf("OrbitalPeriod error = %v, want ErrUnboundOrbit", err)
	}
}

func TestOrbitalPeriodZeroSeparation(t *testing.T) {
	_, err := OrbitalPeriod(1, 10, 10, r3.Vec{}, r3.Vec{X: 1})
	if !errors.Is(err, ErrUnboundOrbit) {
		t.Fatalf("OrbitalPeriod error = %v, want ErrUnboundOrbit", err)
	}
}

func TestOrbitalPeriodNonPhysicalMu(t *testing.T) {
	_, err := OrbitalPeriod(0, 10, 10, r3.Vec{X: 1}, r3.Vec{Y: 1})
	if err == nil {
		t.Fatal("OrbitalPeriod with G=0 returned nil error")
	}
	if errors.Is(err, ErrUnboundOrbit) {
		t.Fatalf("OrbitalPeriod with G=0 reported unbound orbit: %v", err)
	}
}
