package probes

import (
	"context"
	"sort"

	"github.com/spatialaudio/core/effects"
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/reflection"
)

// ProgressFunc reports baking progress in [0,1] and is polled for
// cancellation: baking stops as soon as it returns false.
type ProgressFunc func(fraction float64) (keepGoing bool)

// ReflectionBaker bakes a reflections EnergyField at every probe in a
// batch for a given listener/source variation, parallelized over a
// reflection.ThreadPool.
type ReflectionBaker struct {
	scene     geom.Queryable
	simulator *reflection.Simulator
	pool      *reflection.ThreadPool
	params    reflection.Params
}

// NewReflectionBaker builds a baker tracing against scene with params,
// fanning probe jobs out over pool.
func NewReflectionBaker(scene geom.Queryable, pool *reflection.ThreadPool, params reflection.Params) *ReflectionBaker {
	return &ReflectionBaker{
		scene:     scene,
		simulator: reflection.NewSimulator(scene, pool),
		pool:      pool,
		params:    params,
	}
}

// Bake runs one reflections simulation per probe in batch (probe
// position as both source and listener, the standard "reverb at this
// point" baking scenario) and stores each result under id. progress is
// called after each probe completes; baking stops early if it returns
// false.
func (rb *ReflectionBaker) Bake(ctx context.Context, batch *ProbeBatch, id BakedDataIdentifier, progress ProgressFunc) error {
	probes := batch.Probes()
	omni := func(geom.Vector3) float64 { return 1 }

	for i, p := range probes {
		field, err := rb.simulator.Simulate(ctx, p.Center(), p.Center(), omni, rb.params)
		if err != nil {
			return err
		}
		batch.SetPayload(id, i, field)

		if progress != nil {
			if !progress(float64(i+1) / float64(len(probes))) {
				return nil
			}
		}
	}
	return nil
}

// PathEdge is one directed edge of a baked path graph: an acoustic
// path from probe From to probe To, with its aggregated per-band EQ
// and arrival direction.
type PathEdge struct {
	From, To      int
	Sound         effects.PathSound
	DistanceRatio float64 // path length / straight-line distance
}

// PathGraph is a directed graph over a ProbeBatch's probes.
type PathGraph struct {
	Edges []PathEdge
}

// PathBaker bakes a directed path graph over a probe batch: for every
// probe pair with an unobstructed line of sight, a direct edge; for
// obstructed pairs, no edge (this repo's path search visits direct
// line-of-sight neighbors only, leaving multi-hop path discovery to the
// runtime PathSimulator's alternate-path search over the baked graph).
type PathBaker struct {
	scene             geom.Queryable
	airAbsorptionPerM [3]float64
}

// NewPathBaker builds a baker tracing line-of-sight against scene,
// attenuating each edge's bands by airAbsorptionPerM per meter of path
// length.
func NewPathBaker(scene geom.Queryable, airAbsorptionPerM [3]float64) *PathBaker {
	return &PathBaker{scene: scene, airAbsorptionPerM: airAbsorptionPerM}
}

// Bake computes the direct-visibility path graph over batch's probes
// and stores it under id.
func (pb *PathBaker) Bake(batch *ProbeBatch, id BakedDataIdentifier, progress ProgressFunc) PathGraph {
	probes := batch.Probes()
	var graph PathGraph

	for i, from := range probes {
		for j, to := range probes {
			if i == j {
				continue
			}
			toVec := to.Center().Sub(from.Center())
			dist := toVec.Norm()
			if dist < 1e-9 {
				continue
			}
			dir := toVec.Mul(1 / dist)
			if pb.scene.AnyHit(geom.Ray{Origin: from.Center(), Direction: dir}, 1e-4, dist-1e-4) {
				continue
			}

			var absorb [3]float64
			for b := 0; b < 3; b++ {
				absorb[b] = pb.airAbsorptionPerM[b] * dist
			}
			graph.Edges = append(graph.Edges, PathEdge{
				From: i,
				To:   j,
				Sound: effects.PathSound{
					AirAbsorption: absorb,
					Direction:     dir,
				},
				DistanceRatio: 1,
			})
		}
		if progress != nil {
			if !progress(float64(i+1) / float64(len(probes))) {
				return graph
			}
		}
	}

	sort.Slice(graph.Edges, func(i, j int) bool {
		if graph.Edges[i].From != graph.Edges[j].From {
			return graph.Edges[i].From < graph.Edges[j].From
		}
		return graph.Edges[i].To < graph.Edges[j].To
	})
	batch.SetPayload(id, -1, graph)
	return graph
}
