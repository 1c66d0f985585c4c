package world

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/internal/logging"
	"github.com/miki-przygoda/World-Sim/model"
)

// testConfig is the default test tuning: running from the start, no
// trails, no escape cull, serial forces.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StartPaused = false
	cfg.TrailLength = 0
	return cfg
}

func newTestWorld(t *testing.T, cfg Config, specs ...model.BodySpec) *World {
	t.Helper()
	w, err := New(cfg, specs, logging.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return w
}

func stepN(t *testing.T, w *World, n int, dt float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := w.Step(dt); err != nil {
			t.Fatalf("Step(%v) error = %v on step %d", dt, err, i)
		}
	}
}

// twoBodyOrbitSpecs returns a heavy central body plus an orbiter on a
// circular orbit at the given radius, with zero total momentum.
func twoBodyOrbitSpecs(g, central, orbiter, radius float64) []model.BodySpec {
	mu := g * (central + orbiter)
	speed := math.Sqrt(mu / radius)
	vOrbiter := speed * central / (central + orbiter)
	vCentral := speed * orbiter / (central + orbiter)
	return []model.BodySpec{
		{Name: "central", Mass: central, Velocity: r3.Vec{Y: -vCentral}},
		{Name: "orbiter", Mass: orbiter, Position: r3.Vec{X: radius}, Velocity: r3.Vec{Y: vOrbiter}},
	}
}

func almostEqualVec(a, b r3.Vec, tol float64) bool {
	return scalar.EqualWithinAbsOrRel(a.X, b.X, tol, tol) &&
		scalar.EqualWithinAbsOrRel(a.Y, b.Y, tol, tol) &&
		scalar.EqualWithinAbsOrRel(a.Z, b.Z, tol, tol)
}

// totalMomentum sums mass·velocity over a snapshot.
func totalMomentum(bodies []model.Body) r3.Vec {
	var p r3.Vec
	for _, b := range bodies {
		p = p.Add(b.Velocity.Scale(b.Mass))
	}
	return p
}
