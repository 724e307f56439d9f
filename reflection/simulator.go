package reflection

import (
	"context"

	"github.com/spatialaudio/core/internal/dsp"
	"github.com/spatialaudio/core/internal/geom"
)

// speedOfSoundMPerS is the propagation speed used to convert a traced
// segment's length into elapsed time.
const speedOfSoundMPerS = 343.0

// selfIntersectEpsilon nudges a bounce's new ray origin off the hit
// surface so the next trace doesn't immediately re-hit the same
// triangle due to floating-point error.
const selfIntersectEpsilon = 1e-4

// Directivity evaluates a source's (or listener's) radiation pattern
// for a unit direction in the emitter's local frame.
type Directivity func(dir geom.Vector3) float64

// Params configures one reflections simulation run.
type Params struct {
	NumRays               int
	NumBounces            int
	Duration              float64
	Order                 int
	IrradianceMinDistance float64
	BinWidth              float64 // seconds per EnergyField time bin
}

// Simulator runs the Monte-Carlo reflections algorithm against a scene.
type Simulator struct {
	scene geom.Queryable
	pool  *ThreadPool
}

// NewSimulator builds a reflections simulator tracing against scene,
// fanning batches of rays out over pool.
func NewSimulator(scene geom.Queryable, pool *ThreadPool) *Simulator {
	return &Simulator{scene: scene, pool: pool}
}

// Simulate runs one source-listener pair's reflections and returns the
// resulting EnergyField. Ray batches (one job per batch of rays, sized
// so each job does a meaningful chunk of tracing without starving the
// pool) are distributed across s.pool; each batch writes into its own
// scratch field and results are summed, so the run is bitwise
// deterministic regardless of how work happened to be scheduled across
// threads: every ray's contribution depends only on its own
// pre-assigned index, never on scheduling order.
func (s *Simulator) Simulate(ctx context.Context, source, listener geom.Vector3, sourceDirectivity Directivity, p Params) (*EnergyField, error) {
	const batchSize = 2048
	numBatches := (p.NumRays + batchSize - 1) / batchSize
	if numBatches == 0 {
		return NewEnergyField(p.Duration, p.BinWidth, p.Order), nil
	}

	partials := make([]*EnergyField, numBatches)
	graph := NewJobGraph()
	for b := 0; b < numBatches; b++ {
		b := b
		start := b * batchSize
		end := start + batchSize
		if end > p.NumRays {
			end = p.NumRays
		}
		graph.Add(func() error {
			field := NewEnergyField(p.Duration, p.BinWidth, p.Order)
			for i := start; i < end; i++ {
				s.traceSample(field, i, p.NumRays, source, listener, sourceDirectivity, p)
			}
			partials[b] = field
			return nil
		})
	}

	if err := s.pool.Process(ctx, graph); err != nil {
		return nil, err
	}

	result := NewEnergyField(p.Duration, p.BinWidth, p.Order)
	for _, partial := range partials {
		result.Add(partial)
	}
	return result, nil
}

// traceSample traces one outgoing ray (sample index i of n total) from
// source through up to NumBounces reflections, accumulating its
// contribution into field.
func (s *Simulator) traceSample(field *EnergyField, i, n int, source, listener geom.Vector3, directivity Directivity, p Params) {
	dir := geom.FibonacciSphereSample(i, n)
	energy := [NumBands]float64{}
	for b := range energy {
		energy[b] = directivity(dir)
	}

	origin := source
	rayDir := dir
	var tAccumulated float64

	for bounce := 0; bounce < p.NumBounces; bounce++ {
		ray := geom.Ray{Origin: origin, Direction: rayDir}
		hit := s.scene.ClosestHit(ray, 1e-6, 1e6)
		if !hit.Valid {
			return
		}

		hitPoint := origin.Add(rayDir.Mul(hit.T))
		tAccumulated += hit.T / speedOfSoundMPerS

		vis := s.listenerVisibility(hitPoint, hit.Normal, listener, p.IrradianceMinDistance)
		weight := hit.Normal.Dot(rayDir.Mul(-1))
		if weight < 0 {
			weight = 0
		}

		bin := int(tAccumulated / field.BinDuration)
		if bin >= field.TimeBins {
			return
		}
		if vis > 0 && weight > 0 {
			arrivalDir := geom.NormalizeOrZero(rayDir.Mul(-1))
			shBuf := make([]float64, field.Channels())
			for band := 0; band < NumBands; band++ {
				contribution := energy[band] * vis * weight
				if contribution == 0 {
					continue
				}
				for c := range shBuf {
					shBuf[c] = 0
				}
				dsp.Project(shBuf, field.Order, dsp.Direction{X: arrivalDir.X, Y: arrivalDir.Y, Z: arrivalDir.Z}, contribution)
				for c := range shBuf {
					field.Accumulate(c, band, bin, shBuf[c])
				}
			}
		}

		seedBase := (i*p.NumBounces + bounce) * 4
		u := geom.Halton(seedBase+1, 2)
		v := geom.Halton(seedBase+2, 3)
		coin := geom.Halton(seedBase+3, 5)

		mat := hit.Material
		var nextDir geom.Vector3
		if coin < mat.Scattering {
			nextDir = geom.CosineWeightedHemisphereSample(hit.Normal, u, v)
		} else {
			nextDir = geom.ReflectSpecular(rayDir, hit.Normal)
		}

		for b := 0; b < NumBands; b++ {
			energy[b] *= 1 - mat.Absorption[b]
		}

		origin = hitPoint.Add(hit.Normal.Mul(selfIntersectEpsilon))
		rayDir = nextDir
	}
}

// listenerVisibility computes the irradiance contribution of a hit
// point toward the listener: an any-hit shadow ray toward the listener,
// zero if occluded, else cos(theta)/max(r^2, irradianceMinDistance^2).
func (s *Simulator) listenerVisibility(hitPoint, hitNormal, listener geom.Vector3, irradianceMinDistance float64) float64 {
	toListener := listener.Sub(hitPoint)
	dist2 := toListener.Norm2()
	dist := toListener.Norm()
	if dist < 1e-9 {
		return 0
	}
	toListenerDir := toListener.Mul(1 / dist)

	if s.scene.AnyHit(geom.Ray{Origin: hitPoint, Direction: toListenerDir}, selfIntersectEpsilon, dist-selfIntersectEpsilon) {
		return 0
	}

	cosTheta := hitNormal.Dot(toListenerDir)
	if cosTheta < 0 {
		cosTheta = 0
	}
	minDist2 := irradianceMinDistance * irradianceMinDistance
	denom := dist2
	if denom < minDist2 {
		denom = minDist2
	}
	return cosTheta / denom
}
