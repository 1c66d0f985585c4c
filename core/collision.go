package core

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/model"
)

// CollisionPolicy selects how overlapping bodies are resolved. The policy
// is fixed at configuration time, not chosen per pair.
type CollisionPolicy int

const (
	// PolicyMerge combines overlapping bodies into one, conserving mass
	// and momentum. This is the default.
	PolicyMerge CollisionPolicy = iota
	// PolicyElastic bounces overlapping bodies off each other with an
	// impulse along the line of centers, conserving momentum and kinetic
	// energy.
	PolicyElastic
	// PolicyNone lets bodies pass through each other.
	PolicyNone
)

// String returns the configuration-file name of the policy.
func (p CollisionPolicy) String() string {
	switch p {
	case PolicyMerge:
		return "merge"
	case PolicyElastic:
		return "elastic"
	case PolicyNone:
		return "none"
	default:
		return fmt.Sprintf("CollisionPolicy(%d)", int(p))
	}
}

// ParseCollisionPolicy maps a configuration string onto a policy.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "merge", "":
		return PolicyMerge, nil
	case "elastic", "bounce":
		return PolicyElastic, nil
	case "none", "passthrough":
		return PolicyNone, nil
	default:
		return PolicyMerge, fmt.Errorf("unknown collision policy %q", s)
	}
}

// Merge records one inelastic merge performed during collision
// resolution: the two absorbed IDs in ascending order and the ID of the
// body that replaced them.
type Merge struct {
	Absorbed [2]model.BodyID
	Into     model.BodyID
}

// CollisionResolver detects bodies whose separation is below the sum of
// their radii and resolves the overlap per the configured policy.
//
// Pairs are scanned in ascending (ID, ID) order over the ID-sorted body
// slice, so resolution is reproducible for identical input state. Under
// PolicyMerge a body consumed by an earlier pair is skipped for the rest
// of the scan, and merge products receive fresh IDs from AllocID and are
// appended after the scan, so they never collide within the step that
// created them.
type CollisionResolver struct {
	Policy      CollisionPolicy
	RadiusScale float64

	// AllocID supplies IDs for merge products. IDs must exceed every live
	// body's ID so the appended products keep the slice sorted.
	AllocID func() model.BodyID
}

// Resolve applies the policy and returns the surviving bodies plus a
// record of any merges. The input slice must be sorted by ascending ID;
// the result preserves that order. Under PolicyElastic and PolicyNone
// the input slice is returned as-is (elastic resolution mutates
// velocities in place).
func (cr *CollisionResolver) Resolve(bodies []*model.Body) ([]*model.Body, []Merge) {
	switch cr.Policy {
	case PolicyElastic:
		cr.resolveElastic(bodies)
		return bodies, nil
	case PolicyNone:
		return bodies, nil
	default:
		return cr.resolveMerges(bodies)
	}
}

func (cr *CollisionResolver) resolveMerges(bodies []*model.Body) ([]*model.Body, []Merge) {
	var (
		consumed []bool
		created  []*model.Body
		merges   []Merge
	)

	for i := 0; i < len(bodies); i++ {
		if consumed != nil && consumed[i] {
			continue
		}
		for j := i + 1; j < len(bodies); j++ {
			if consumed != nil && consumed[j] {
				continue
			}
			if !overlaps(bodies[i], bodies[j]) {
				continue
			}
			if consumed == nil {
				consumed = make([]bool, len(bodies))
			}
			consumed[i] = true
			consumed[j] = true

			product := cr.merge(bodies[i], bodies[j])
			created = append(created, product)
			merges = append(merges, Merge{
				Absorbed: [2]model.BodyID{bodies[i].ID, bodies[j].ID},
				Into:     product.ID,
			})
			break
		}
	}

	if len(merges) == 0 {
		return bodies, nil
	}

	survivors := make([]*model.Body, 0, len(bodies)-len(merges))
	for i, b := range bodies {
		if !consumed[i] {
			survivors = append(survivors, b)
		}
	}
	return append(survivors, created...), merges
}

// merge combines two bodies: mass is summed, velocity is the
// momentum-weighted average, position is the center of mass, and the
// radius is recomputed from the new mass. The name follows the heavier
// parent.
func (cr *CollisionResolver) merge(a, b *model.Body) *model.Body {
	mass := a.Mass + b.Mass
	name := a.Name
	if b.Mass > a.Mass {
		name = b.Name
	}
	return &model.Body{
		ID:       cr.AllocID(),
		Name:     name,
		Mass:     mass,
		Position: r3.Scale(1/mass, r3.Add(r3.Scale(a.Mass, a.Position), r3.Scale(b.Mass, b.Position))),
		Velocity: r3.Scale(1/mass, r3.Add(r3.Scale(a.Mass, a.Velocity), r3.Scale(b.Mass, b.Velocity))),
		Radius:   model.RadiusFromMass(mass, cr.RadiusScale),
	}
}

// resolveElastic applies an equal-and-opposite impulse along the line of
// centers to every overlapping pair, with restitution 1. Pairs that are
// already separating are left alone so a lingering overlap does not gain
// energy on consecutive steps.
func (cr *CollisionResolver) resolveElastic(bodies []*model.Body) {
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			if !overlaps(a, b) {
				continue
			}
			delta := r3.Sub(b.Position, a.Position)
			if r3.Norm2(delta) == 0 {
				// Coincident centers give no line of action.
				continue
			}
			normal := r3.Unit(delta)
			approach := r3.Dot(r3.Sub(b.Velocity, a.Velocity), normal)
			if approach >= 0 {
				continue
			}
			impulse := -2 * approach / (1/a.Mass + 1/b.Mass)
			a.Velocity = r3.Sub(a.Velocity, r3.Scale(impulse/a.Mass, normal))
			b.Velocity = r3.Add(b.Velocity, r3.Scale(impulse/b.Mass, normal))
		}
	}
}

func overlaps(a, b *model.Body) bool {
	sum := a.Radius + b.Radius
	return r3.Norm2(r3.Sub(b.Position, a.Position)) < sum*sum
}
