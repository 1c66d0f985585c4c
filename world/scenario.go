package world

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/core"
	"github.com/miki-przygoda/World-Sim/internal/logging"
	"github.com/miki-przygoda/World-Sim/model"
)

// Scenario is a fully resolved initial condition: the physics config plus
// the body specs to seed the world with. Auto-orbit and TLE entries have
// already been turned into explicit positions and velocities by the time
// a Scenario exists.
type Scenario struct {
	Name   string
	Config Config
	Bodies []model.BodySpec
}

// Build constructs a World from the scenario.
func (s *Scenario) Build(log logging.Logger, opts ...Option) (*World, error) {
	return New(s.Config, s.Bodies, log, opts...)
}

// scenarioJSON is the on-disk document shape.
type scenarioJSON struct {
	Name    string       `json:"name"`
	Physics *physicsJSON `json:"physics"`
	Bodies  []bodyJSON   `json:"bodies"`
}

type physicsJSON struct {
	G                *float64 `json:"g"`
	Softening        *float64 `json:"softening"`
	DT               *float64 `json:"dt"`
	MaxSubsteps      *int     `json:"max_substeps"`
	CollisionPolicy  string   `json:"collision_policy"` // "merge" | "elastic" | "none"
	Integrator       string   `json:"integrator"`       // "euler" | "verlet"
	ForceModel       string   `json:"force_model"`      // "pairwise" | "barneshut"
	Theta            *float64 `json:"theta"`
	ForceWorkers     *int     `json:"force_workers"`
	RadiusScale      *float64 `json:"radius_scale"`
	TrailLength      *int     `json:"trail_length"`
	EscapeRadius     *float64 `json:"escape_radius"`
	StartPaused      *bool    `json:"start_paused"`
	DefaultSpawnMass *float64 `json:"default_spawn_mass"`
}

type bodyJSON struct {
	Name     string    `json:"name"`
	Mass     float64   `json:"mass"`
	Position []float64 `json:"position"` // [x,y] or [x,y,z]
	Velocity []float64 `json:"velocity"` // same shape as position

	// AutoOrbit names an earlier body in the list; the velocity becomes
	// the circular-orbit velocity around it at this body's position.
	AutoOrbit string `json:"auto_orbit"`

	// TLE is a two-line element set; Epoch (RFC 3339) selects the instant
	// it is propagated to for the initial state.
	TLE   []string `json:"tle"`
	Epoch string   `json:"epoch"`
}

// LoadScenarioFile reads a scenario document from disk.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	defer f.Close()
	return LoadScenario(f)
}

// LoadScenario reads a JSON scenario from r: a physics block overlaying
// DefaultConfig, plus a body list. Each body carries either explicit
// state, an auto_orbit reference, or a TLE with an epoch. Seeding math
// (circular-orbit velocities, SGP4 propagation) happens here so the
// returned Scenario holds plain positions and velocities.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var payload scenarioJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("load scenario: decode failed: %w", err)
	}

	cfg, err := configFromJSON(payload.Physics)
	if err != nil {
		return nil, err
	}

	scenario := &Scenario{
		Name:   payload.Name,
		Config: cfg,
		Bodies: make([]model.BodySpec, 0, len(payload.Bodies)),
	}

	byName := make(map[string]model.BodySpec, len(payload.Bodies))
	for i, jb := range payload.Bodies {
		spec, err := resolveBody(cfg, jb, byName)
		if err != nil {
			return nil, fmt.Errorf("load scenario: body %d (%q): %w", i, jb.Name, err)
		}
		scenario.Bodies = append(scenario.Bodies, spec)
		if spec.Name != "" {
			byName[spec.Name] = spec
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	return scenario, nil
}

func configFromJSON(p *physicsJSON) (Config, error) {
	cfg := DefaultConfig()
	if p == nil {
		return cfg, nil
	}

	if p.G != nil {
		cfg.G = *p.G
	}
	if p.Softening != nil {
		cfg.Softening = *p.Softening
	}
	if p.DT != nil {
		cfg.DT = *p.DT
	}
	if p.MaxSubsteps != nil {
		cfg.MaxSubsteps = *p.MaxSubsteps
	}
	if p.Theta != nil {
		cfg.Theta = *p.Theta
	}
	if p.ForceWorkers != nil {
		cfg.ForceWorkers = *p.ForceWorkers
	}
	if p.RadiusScale != nil {
		cfg.RadiusScale = *p.RadiusScale
	}
	if p.TrailLength != nil {
		cfg.TrailLength = *p.TrailLength
	}
	if p.EscapeRadius != nil {
		cfg.EscapeRadius = *p.EscapeRadius
	}
	if p.StartPaused != nil {
		cfg.StartPaused = *p.StartPaused
	}
	if p.DefaultSpawnMass != nil {
		cfg.DefaultSpawnMass = *p.DefaultSpawnMass
	}

	var err error
	if cfg.Collision, err = core.ParseCollisionPolicy(p.CollisionPolicy); err != nil {
		return cfg, fmt.Errorf("load scenario: %w", err)
	}
	if cfg.Integrator, err = ParseIntegratorKind(p.Integrator); err != nil {
		return cfg, fmt.Errorf("load scenario: %w", err)
	}
	if cfg.ForceModel, err = ParseForceModelKind(p.ForceModel); err != nil {
		return cfg, fmt.Errorf("load scenario: %w", err)
	}
	return cfg, nil
}

// resolveBody turns one JSON body entry into an explicit spec. byName
// holds the already resolved bodies, so auto_orbit can only reference
// earlier entries.
func resolveBody(cfg Config, jb bodyJSON, byName map[string]model.BodySpec) (model.BodySpec, error) {
	spec := model.BodySpec{Name: jb.Name, Mass: jb.Mass}

	switch {
	case len(jb.TLE) > 0:
		if jb.AutoOrbit != "" || jb.Position != nil || jb.Velocity != nil {
			return spec, fmt.Errorf("tle excludes position, velocity and auto_orbit")
		}
		if len(jb.TLE) != 2 {
			return spec, fmt.Errorf("tle must hold exactly two element lines, got %d", len(jb.TLE))
		}
		if jb.Epoch == "" {
			return spec, fmt.Errorf("tle requires an epoch")
		}
		epoch, err := time.Parse(time.RFC3339, jb.Epoch)
		if err != nil {
			return spec, fmt.Errorf("parse epoch: %w", err)
		}
		pos, vel, err := core.InitialStateFromTLE(jb.TLE[0], jb.TLE[1], epoch)
		if err != nil {
			return spec, err
		}
		spec.Position, spec.Velocity = pos, vel

	case jb.AutoOrbit != "":
		if jb.Velocity != nil {
			return spec, fmt.Errorf("auto_orbit excludes an explicit velocity")
		}
		ref, ok := byName[jb.AutoOrbit]
		if !ok {
			return spec, fmt.Errorf("auto_orbit references %q, which is not defined earlier in the list", jb.AutoOrbit)
		}
		pos, err := vecFromSlice(jb.Position)
		if err != nil {
			return spec, err
		}
		rel := pos.Sub(ref.Position)
		if r3.Norm2(rel) == 0 {
			return spec, fmt.Errorf("auto_orbit body sits on top of %q", jb.AutoOrbit)
		}
		spec.Position = pos
		spec.Velocity = core.CircularOrbitVelocity(cfg.G, ref.Mass, rel).Add(ref.Velocity)

	default:
		pos, err := vecFromSlice(jb.Position)
		if err != nil {
			return spec, err
		}
		vel, err := vecFromSlice(jb.Velocity)
		if err != nil {
			return spec, err
		}
		spec.Position, spec.Velocity = pos, vel
	}

	return spec, nil
}

// vecFromSlice accepts [x,y] or [x,y,z]; nil means the zero vector.
func vecFromSlice(v []float64) (r3.Vec, error) {
	switch len(v) {
	case 0:
		return r3.Vec{}, nil
	case 2:
		return r3.Vec{X: v[0], Y: v[1]}, nil
	case 3:
		return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return r3.Vec{}, fmt.Errorf("vector needs 2 or 3 components, got %d", len(v))
	}
}

// DefaultScenario is the demo the simulator falls back to without a
// scenario file: a heavy central body and one light orbiter on a
// circular orbit, on the default physics config.
func DefaultScenario() *Scenario {
	cfg := DefaultConfig()
	sunPos := r3.Vec{}
	orbiterPos := r3.Vec{X: 150}
	return &Scenario{
		Name:   "two-body-demo",
		Config: cfg,
		Bodies: []model.BodySpec{
			{Name: "Sun", Mass: 1000, Position: sunPos},
			{
				Name:     "Planet",
				Mass:     10,
				Position: orbiterPos,
				Velocity: core.CircularOrbitVelocity(cfg.G, 1000, orbiterPos.Sub(sunPos)),
			},
		},
	}
}
