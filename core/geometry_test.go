package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/model"
)

func TestCenterOfMass(t *testing.T) {
	bodies := []*model.Body{
		testBody(1, 3, r3.Vec{}, r3.Vec{}),
		testBody(2, 1, r3.Vec{X: 4}, r3.Vec{}),
	}
	if got := CenterOfMass(bodies); got != (r3.Vec{X: 1}) {
		t.Fatalf("CenterOfMass = %+v, want {1 0 0}", got)
	}
}

func TestCenterOfMassEmpty(t *testing.T) {
	if got := CenterOfMass(nil); got != (r3.Vec{}) {
		t.Fatalf("CenterOfMass(nil) = %+v, want origin", got)
	}
}

func TestTotalMomentum(t *testing.T) {
	bodies := []*model.Body{
		testBody(1, 2, r3.Vec{}, r3.Vec{X: 3, Y: 1}),
		testBody(2, 4, r3.Vec{X: 9}, r3.Vec{X: -1.5, Y: 0.5}),
	}
	want := r3.Vec{X: 0, Y: 4}
	if got := TotalMomentum(bodies); !vecsAlmostEqual(got, want, 1e-12) {
		t.Fatalf("TotalMomentum = %+v, want %+v", got, want)
	}
}

func TestCircularOrbitVelocityPerpendicular(t *testing.T) {
	const (
		g       = 1.0
		central = 1000.0
		radius  = 150.0
	)
	rel := r3.Vec{X: radius}

	v := CircularOrbitVelocity(g, central, rel)

	if dot := v.Dot(rel); math.Abs(dot) > 1e-9 {
		t.Fatalf("v·r = %v, want perpendicular", dot)
	}
	if got, want := r3.Norm2(v), g*central/radius; !scalar.EqualWithinAbsOrRel(got, want, 1e-9, 1e-9) {
		t.Fatalf("|v|² = %v, want G*M/r = %v", got, want)
	}
}

func TestCircularOrbitVelocityAxisAligned(t *testing.T) {
	// A separation along z has no in-plane tangent, so the fallback
	// direction is +x.
	v := CircularOrbitVelocity(1, 1000, r3.Vec{Z: 50})
	want := math.Sqrt(1000.0 / 50)
	if v.Y != 0 || v.Z != 0 || !scalar.EqualWithinAbsOrRel(v.X, want, 1e-12, 1e-12) {
		t.Fatalf("velocity = %+v, want {%v 0 0}", v, want)
	}
}

func TestCircularOrbitVelocityDegenerateInputs(t *testing.T) {
	cases := []struct {
		name    string
		g, mass float64
		rel     r3.Vec
	}{
		{"zero separation", 1, 1000, r3.Vec{}},
		{"zero gravity", 0, 1000, r3.Vec{X: 1}},
		{"zero central mass", 1, 0, r3.Vec{X: 1}},
	}
	for _, tc := range cases {
		if got := CircularOrbitVelocity(tc.g, tc.mass, tc.rel); got != (r3.Vec{}) {
			t.Fatalf("%s: CircularOrbitVelocity = %+v, want zero", tc.name, got)
		}
	}
}
