package core

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/miki-przygoda/World-Sim/model"
)

// Accelerator computes the net gravitational acceleration on every body
// from all others. Implementations are pure over the slice they are
// given: bodies are read, never written, and the result is a fresh slice
// parallel to the input.
type Accelerator interface {
	Accelerations(bodies []*model.Body) []r3.Vec
}

// PairwiseGravity is the exact O(n²) force model. Each unordered pair is
// evaluated once and applied with opposite signs to both sides, halving
// the work of a naive double loop and conserving momentum by
// construction.
//
// The pair separation is softened in Plummer form: the acceleration on i
// from j is G*mj*(pj-pi)/(d²+ε²)^(3/2), finite for every separation when
// ε > 0.
type PairwiseGravity struct {
	G         float64
	Softening float64

	// Workers > 1 spreads the outer pair loop over that many goroutines.
	// Each worker owns an interleaved stride of outer indices and its own
	// accumulator slice; the slices are reduced in fixed worker order, so
	// identical inputs and worker counts give identical results.
	Workers int
}

// Accelerations implements Accelerator.
func (pg *PairwiseGravity) Accelerations(bodies []*model.Body) []r3.Vec {
	acc := make([]r3.Vec, len(bodies))
	if len(bodies) < 2 {
		return acc
	}
	if pg.Workers > 1 {
		pg.accumulateParallel(bodies, acc)
		return acc
	}
	pg.accumulatePairs(bodies, acc, 0, 1)
	return acc
}

// accumulatePairs adds pair contributions for outer indices i = start,
// start+stride, ... into acc. With start 0 and stride 1 it covers every
// unordered pair exactly once.
func (pg *PairwiseGravity) accumulatePairs(bodies []*model.Body, acc []r3.Vec, start, stride int) {
	eps2 := pg.Softening * pg.Softening
	for i := start; i < len(bodies); i += stride {
		bi := bodies[i]
		for j := i + 1; j < len(bodies); j++ {
			bj := bodies[j]
			delta := r3.Sub(bj.Position, bi.Position)
			d2 := r3.Norm2(delta) + eps2
			if d2 == 0 {
				continue
			}
			inv := pg.G / (d2 * math.Sqrt(d2))
			acc[i] = r3.Add(acc[i], r3.Scale(inv*bj.Mass, delta))
			acc[j] = r3.Sub(acc[j], r3.Scale(inv*bi.Mass, delta))
		}
	}
}

func (pg *PairwiseGravity) accumulateParallel(bodies []*model.Body, acc []r3.Vec) {
	workers := pg.Workers
	if workers > len(bodies) {
		workers = len(bodies)
	}

	partial := make([][]r3.Vec, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		partial[w] = make([]r3.Vec, len(bodies))
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			pg.accumulatePairs(bodies, partial[w], w, workers)
		}(w)
	}
	wg.Wait()

	// Reduce in worker order so the floating-point summation order is
	// fixed for a given worker count.
	for w := 0; w < workers; w++ {
		for i := range acc {
			acc[i] = r3.Add(acc[i], partial[w][i])
		}
	}
}

// BarnesHutGravity approximates the net force with an octree, trading
// exactness for O(n log n) cost on large body sets. Theta is the opening
// angle: 0 degenerates to the exact pairwise sum, larger values are
// cheaper and coarser. The same Plummer softening as PairwiseGravity is
// applied inside the force kernel.
type BarnesHutGravity struct {
	G         float64
	Softening float64
	Theta     float64
}

type bhParticle struct {
	pos  r3.Vec
	mass float64
}

func (p *bhParticle) Coord3() r3.Vec { return p.pos }
func (p *bhParticle) Mass() float64  { return p.mass }

// Accelerations implements Accelerator.
func (bh *BarnesHutGravity) Accelerations(bodies []*model.Body) []r3.Vec {
	acc := make([]r3.Vec, len(bodies))
	if len(bodies) < 2 {
		return acc
	}

	parts := make([]bhParticle, len(bodies))
	particles := make([]barneshut.Particle3, len(bodies))
	for i, b := range bodies {
		parts[i] = bhParticle{pos: b.Position, mass: b.Mass}
		particles[i] = &parts[i]
	}

	volume := barneshut.Volume{Particles: particles}
	volume.Reset()

	eps2 := bh.Softening * bh.Softening
	force := func(_, _ barneshut.Particle3, m1, m2 float64, v r3.Vec) r3.Vec {
		d2 := r3.Norm2(v) + eps2
		if d2 == 0 {
			return r3.Vec{}
		}
		return r3.Scale(m1*m2/(d2*math.Sqrt(d2)), v)
	}

	for i := range parts {
		f := r3.Scale(bh.G, volume.ForceOn(&parts[i], bh.Theta, force))
		acc[i] = r3.Scale(1/parts[i].mass, f)
	}
	return acc
}
