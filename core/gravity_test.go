package core

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/model"
)

func testBody(id model.BodyID, mass float64, pos, vel r3.Vec) *model.Body {
	return &model.Body{
		ID:       id,
		Mass:     mass,
		Position: pos,
		Velocity: vel,
		Radius:   model.RadiusFromMass(mass, 1),
	}
}

func vecsAlmostEqual(a, b r3.Vec, tol float64) bool {
	return scalar.EqualWithinAbsOrRel(a.X, b.X, tol, tol) &&
		scalar.EqualWithinAbsOrRel(a.Y, b.Y, tol, tol) &&
		scalar.EqualWithinAbsOrRel(a.Z, b.Z, tol, tol)
}

// testCluster returns n bodies spread deterministically around two
// clumps, with distinct positions and a spread of masses.
func testCluster(n int) []*model.Body {
	bodies := make([]*model.Body, 0, n)
	for i := 0; i < n; i++ {
		center := r3.Vec{}
		if i%2 == 1 {
			center = r3.Vec{X: 200, Y: 120, Z: -60}
		}
		offset := r3.Vec{
			X: float64(3 * i),
			Y: float64(5 * ((i * 7) % 11)),
			Z: float64(2 * ((i * 3) % 5)),
		}
		vel := r3.Vec{X: float64(i%3) - 1, Y: float64(i%5) * 0.25}
		bodies = append(bodies, testBody(model.BodyID(i+1), 1+float64(i%7), center.Add(offset), vel))
	}
	return bodies
}

func TestPairwiseGravityTwoBodies(t *testing.T) {
	pg := &PairwiseGravity{G: 1}
	bodies := []*model.Body{
		testBody(1, 2, r3.Vec{}, r3.Vec{}),
		testBody(2, 8, r3.Vec{X: 10}, r3.Vec{}),
	}

	acc := pg.Accelerations(bodies)

	// a1 = G*m2/d² toward +x, a2 = G*m1/d² toward -x.
	if !vecsAlmostEqual(acc[0], r3.Vec{X: 0.08}, 1e-12) {
		t.Fatalf("acc[0] = %+v, want {0.08 0 0}", acc[0])
	}
	if !vecsAlmostEqual(acc[1], r3.Vec{X: -0.02}, 1e-12) {
		t.Fatalf("acc[1] = %+v, want {-0.02 0 0}", acc[1])
	}
}

func TestPairwiseGravityMomentumRateCancels(t *testing.T) {
	pg := &PairwiseGravity{G: 1, Softening: 0.5}
	bodies := testCluster(9)

	acc := pg.Accelerations(bodies)

	var rate r3.Vec
	for i, b := range bodies {
		rate = rate.Add(acc[i].Scale(b.Mass))
	}
	if r3.Norm(rate) > 1e-9 {
		t.Fatalf("net momentum rate = %+v, want ~0", rate)
	}
}

func TestPairwiseGravitySofteningKeepsAccelerationFinite(t *testing.T) {
	pg := &PairwiseGravity{G: 1, Softening: 1}
	bodies := []*model.Body{
		testBody(1, 5, r3.Vec{}, r3.Vec{}),
		testBody(2, 5, r3.Vec{X: 1e-9}, r3.Vec{}),
	}

	acc := pg.Accelerations(bodies)
	for i, a := range acc {
		for _, c := range []float64{a.X, a.Y, a.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				t.Fatalf("acc[%d] = %+v, want finite components", i, a)
			}
		}
		if got := r3.Norm(a); got > pg.G*5 {
			t.Fatalf("|acc[%d]| = %v, want bounded by G*m/ε² = %v", i, got, pg.G*5)
		}
	}
}

func TestPairwiseGravityCoincidentUnsoftened(t *testing.T) {
	pg := &PairwiseGravity{G: 1}
	bodies := []*model.Body{
		testBody(1, 5, r3.Vec{X: 3}, r3.Vec{}),
		testBody(2, 5, r3.Vec{X: 3}, r3.Vec{}),
	}

	acc := pg.Accelerations(bodies)
	if acc[0] != (r3.Vec{}) || acc[1] != (r3.Vec{}) {
		t.Fatalf("coincident bodies produced acc %+v / %+v, want zero", acc[0], acc[1])
	}
}

func TestPairwiseGravityParallelMatchesSerial(t *testing.T) {
	bodies := testCluster(24)

	serial := (&PairwiseGravity{G: 2, Softening: 1}).Accelerations(bodies)
	parallel := (&PairwiseGravity{G: 2, Softening: 1, Workers: 4}).Accelerations(bodies)

	if len(serial) != len(parallel) {
		t.Fatalf("result lengths differ: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		if !vecsAlmostEqual(serial[i], parallel[i], 1e-12) {
			t.Fatalf("acc[%d]: serial %+v vs parallel %+v", i, serial[i], parallel[i])
		}
	}
}

func TestPairwiseGravityParallelDeterministic(t *testing.T) {
	pg := &PairwiseGravity{G: 1, Softening: 0.25, Workers: 3}
	bodies := testCluster(17)

	first := pg.Accelerations(bodies)
	second := pg.Accelerations(bodies)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated parallel runs differ:\n%v\n%v", first, second)
	}
}

func TestBarnesHutExactWhenThetaZero(t *testing.T) {
	bodies := testCluster(16)

	exact := (&PairwiseGravity{G: 1, Softening: 0.5}).Accelerations(bodies)
	bh := (&BarnesHutGravity{G: 1, Softening: 0.5, Theta: 0}).Accelerations(bodies)

	for i := range exact {
		if !vecsAlmostEqual(exact[i], bh[i], 1e-9) {
			t.Fatalf("acc[%d]: pairwise %+v vs barnes-hut %+v", i, exact[i], bh[i])
		}
	}
}

func TestBarnesHutApproximatesPairwise(t *testing.T) {
	bodies := testCluster(32)

	exact := (&PairwiseGravity{G: 1, Softening: 0.5}).Accelerations(bodies)
	bh := (&BarnesHutGravity{G: 1, Softening: 0.5, Theta: 0.5}).Accelerations(bodies)

	for i := range exact {
		diff := r3.Norm(exact[i].Sub(bh[i]))
		limit := 0.1*r3.Norm(exact[i]) + 1e-6
		if diff > limit {
			t.Fatalf("acc[%d] diverges: |pairwise-bh| = %v, limit %v", i, diff, limit)
		}
	}
}

func TestBarnesHutDeterministic(t *testing.T) {
	bh := &BarnesHutGravity{G: 1, Softening: 0.5, Theta: 0.7}
	bodies := testCluster(20)

	first := bh.Accelerations(bodies)
	second := bh.Accelerations(bodies)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated barnes-hut runs differ:\n%v\n%v", first, second)
	}
}

func TestAcceleratorsDoNotMutateBodies(t *testing.T) {
	for _, accel := range []Accelerator{
		&PairwiseGravity{G: 1, Softening: 0.5, Workers: 2},
		&BarnesHutGravity{G: 1, Softening: 0.5, Theta: 0.5},
	} {
		bodies := testCluster(8)
		before := make([]model.Body, len(bodies))
		for i, b := range bodies {
			before[i] = *b
		}

		accel.Accelerations(bodies)

		for i, b := range bodies {
			if !reflect.DeepEqual(*b, before[i]) {
				t.Fatalf("%T mutated body %d: %+v -> %+v", accel, b.ID, before[i], *b)
			}
		}
	}
}
