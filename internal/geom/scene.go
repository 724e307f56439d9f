package geom

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Queryable is the capability surface the reflection and pathing
// simulators need from a scene: closest-hit and any-hit ray queries plus
// bulk batch variants. The software BVH-backed Scene below is the only
// implementation in this repo; hardware ray-tracer or host-supplied
// callback back-ends are plug-in replacements exposing the same
// interface but are not implemented here.
type Queryable interface {
	ClosestHit(ray Ray, tMin, tMax float64) Hit
	AnyHit(ray Ray, tMin, tMax float64) bool
	ClosestHitBatch(rays []Ray, tMin, tMax float64) []Hit
	AnyHitBatch(rays []Ray, tMin, tMax float64) []bool
}

// Scene is a set of static and instanced meshes queried as a single
// acceleration structure. Mutating a Scene (add/remove mesh, move an
// instance transform) is only safe between simulation runs; callers must
// invoke Commit afterward so any cached derived state is rebuilt before
// the next query.
type Scene struct {
	statics   []*StaticMesh
	instances []*InstancedMesh
}

// NewScene returns an empty scene.
func NewScene() *Scene { return &Scene{} }

// AddStaticMesh adds a static mesh to the scene.
func (s *Scene) AddStaticMesh(m *StaticMesh) { s.statics = append(s.statics, m) }

// AddInstancedMesh adds an instanced sub-scene reference.
func (s *Scene) AddInstancedMesh(m *InstancedMesh) { s.instances = append(s.instances, m) }

// StaticMeshes returns the scene's static meshes, for traversal by
// callers outside this package (e.g. scene serialization).
func (s *Scene) StaticMeshes() []*StaticMesh { return s.statics }

// Instances returns the scene's instanced sub-scene placements.
func (s *Scene) Instances() []*InstancedMesh { return s.instances }

// RemoveStaticMesh removes m from the scene, if present.
func (s *Scene) RemoveStaticMesh(m *StaticMesh) {
	for i, sm := range s.statics {
		if sm == m {
			s.statics = append(s.statics[:i], s.statics[i+1:]...)
			return
		}
	}
}

// Commit is a no-op placeholder for back-ends that need to rebuild
// top-level structures after mutation; the software BVH scene queries
// its sub-structures directly and needs no top-level rebuild, but callers
// should still call Commit after mutating so the call site is agnostic to
// back-end.
func (s *Scene) Commit() {}

// ClosestHit finds the nearest intersection across every static mesh and
// every instanced sub-scene (transforming the ray into instance-local
// space and the resulting hit normal back to parent space).
func (s *Scene) ClosestHit(ray Ray, tMin, tMax float64) Hit {
	best := Hit{}
	bestT := tMax

	for _, m := range s.statics {
		if h := m.bvh.ClosestHit(ray, tMin, bestT); h.Valid {
			bestT = h.T
			best = h
		}
	}

	for _, inst := range s.instances {
		localRay := Ray{
			Origin:    inst.inverse.TransformPoint(ray.Origin),
			Direction: inst.inverse.TransformDirection(ray.Direction),
		}
		if h := inst.Scene.ClosestHit(localRay, tMin, bestT); h.Valid {
			bestT = h.T
			h.Normal = NormalizeOrZero(inst.Transform.TransformDirection(h.Normal))
			best = h
		}
	}
	return best
}

// AnyHit short-circuits on the first positive test across static meshes
// and instanced sub-scenes.
func (s *Scene) AnyHit(ray Ray, tMin, tMax float64) bool {
	for _, m := range s.statics {
		if m.bvh.AnyHit(ray, tMin, tMax) {
			return true
		}
	}
	for _, inst := range s.instances {
		localRay := Ray{
			Origin:    inst.inverse.TransformPoint(ray.Origin),
			Direction: inst.inverse.TransformDirection(ray.Direction),
		}
		if inst.Scene.AnyHit(localRay, tMin, tMax) {
			return true
		}
	}
	return false
}

// batchWorkers returns the worker count bulk ray routines fan out across:
// GOMAXPROCS, capped so tiny batches don't pay goroutine overhead.
func batchWorkers(n int) int {
	w := runtime.GOMAXPROCS(0)
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// ClosestHitBatch partitions rays into per-worker batches and fans out
// over an errgroup-backed pool.
func (s *Scene) ClosestHitBatch(rays []Ray, tMin, tMax float64) []Hit {
	hits := make([]Hit, len(rays))
	workers := batchWorkers(len(rays))
	if workers <= 1 {
		for i, r := range rays {
			hits[i] = s.ClosestHit(r, tMin, tMax)
		}
		return hits
	}

	var g errgroup.Group
	chunk := (len(rays) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= len(rays) {
			break
		}
		if end > len(rays) {
			end = len(rays)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				hits[i] = s.ClosestHit(rays[i], tMin, tMax)
			}
			return nil
		})
	}
	_ = g.Wait()
	return hits
}

// AnyHitBatch is the any-hit analogue of ClosestHitBatch.
func (s *Scene) AnyHitBatch(rays []Ray, tMin, tMax float64) []bool {
	out := make([]bool, len(rays))
	workers := batchWorkers(len(rays))
	if workers <= 1 {
		for i, r := range rays {
			out[i] = s.AnyHit(r, tMin, tMax)
		}
		return out
	}

	var g errgroup.Group
	chunk := (len(rays) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= len(rays) {
			break
		}
		if end > len(rays) {
			end = len(rays)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = s.AnyHit(rays[i], tMin, tMax)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
