package main

import (
	"context"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/internal/logging"
	"github.com/miki-przygoda/World-Sim/timectrl"
	"github.com/miki-przygoda/World-Sim/world"
)

// TestIntegration_TwoBodyDemo wires the built-in scenario to a manual time
// controller and a fixed stepper, then drives a thousand frames by hand the
// way the run loop would.
func TestIntegration_TwoBodyDemo(t *testing.T) {
	scenario := world.DefaultScenario()
	scenario.Config.StartPaused = false
	w, err := scenario.Build(logging.Noop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	tc := timectrl.NewTimeController(start, 1, timectrl.Manual)
	stepper := &timectrl.FixedStepper{DT: scenario.Config.DT, MaxSteps: scenario.Config.MaxSubsteps}

	for frame := 0; frame < 1000; frame++ {
		steps, dropped, err := stepper.Advance(scenario.Config.DT, w.Step)
		if err != nil {
			t.Fatalf("frame %d: step: %v", frame, err)
		}
		if steps != 1 {
			t.Fatalf("frame %d: got %d steps, want exactly 1", frame, steps)
		}
		if dropped != 0 {
			t.Fatalf("frame %d: dropped %v sim seconds", frame, dropped)
		}
		tc.Advance(float64(steps) * stepper.DT)
	}

	if got := w.Steps(); got != 1000 {
		t.Fatalf("Steps() = %d, want 1000", got)
	}
	wantSim := 1000 * scenario.Config.DT
	if got := w.SimTime(); math.Abs(got-wantSim) > 1e-9 {
		t.Fatalf("SimTime() = %v, want about %v", got, wantSim)
	}
	if want := start.Add(100 * time.Second); !tc.Now().Equal(want) {
		t.Fatalf("sim clock = %v, want %v", tc.Now(), want)
	}

	snap := w.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("got %d bodies after the run, want 2", len(snap))
	}
	// The planet starts on a near-circular orbit at radius 150 and must
	// neither fall in nor escape over a quarter of its period.
	sep := r3.Norm(snap[1].Position.Sub(snap[0].Position))
	if sep < 100 || sep > 200 {
		t.Fatalf("planet separation drifted to %v", sep)
	}
	if snap[1].Position == (r3.Vec{X: 150}) {
		t.Fatal("planet never moved")
	}
}

// TestLoadScenario_FallsBackToDemo covers the empty -scenario path.
func TestLoadScenario_FallsBackToDemo(t *testing.T) {
	scenario := loadScenario(context.Background(), logging.Noop(), "")
	if scenario.Name != world.DefaultScenario().Name {
		t.Fatalf("scenario name = %q, want the built-in demo", scenario.Name)
	}
	if len(scenario.Bodies) == 0 {
		t.Fatal("built-in demo has no bodies")
	}
}

// TestExampleScenarios_LoadAndStep keeps the shipped scenario files in sync
// with the loader schema.
func TestExampleScenarios_LoadAndStep(t *testing.T) {
	cases := []struct {
		path   string
		bodies int
	}{
		{"../../examples/scenarios/solar_system.json", 5},
		{"../../examples/scenarios/leo_constellation.json", 5},
	}
	for _, tc := range cases {
		scenario, err := world.LoadScenarioFile(tc.path)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if len(scenario.Bodies) != tc.bodies {
			t.Errorf("%s: got %d bodies, want %d", tc.path, len(scenario.Bodies), tc.bodies)
		}

		w, err := scenario.Build(logging.Noop())
		if err != nil {
			t.Fatalf("%s: Build: %v", tc.path, err)
		}
		w.Resume()
		for i := 0; i < 10; i++ {
			if err := w.Step(scenario.Config.DT); err != nil {
				t.Fatalf("%s: step %d: %v", tc.path, i, err)
			}
		}
		if got := w.BodyCount(); got != tc.bodies {
			t.Errorf("%s: lost bodies within ten steps: %d of %d left", tc.path, got, tc.bodies)
		}
	}
}
