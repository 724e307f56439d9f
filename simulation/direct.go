// Package simulation orchestrates the per-source simulation subsystems
// (direct path, reflections, pathing) against a shared scene and
// publishes their results through triple-buffered SimulationData for
// the audio thread to read without blocking.
package simulation

import (
	"math"

	"github.com/spatialaudio/core/effects"
	"github.com/spatialaudio/core/internal/geom"
)

// OcclusionType selects how DirectSimulator estimates occlusion.
type OcclusionType int

const (
	// Raycast casts a single shadow ray from source to listener:
	// occlusion is 0 or 1.
	Raycast OcclusionType = iota
	// Volumetric samples OcclusionSamples rays, parallel to the
	// source-listener segment, across a disc of OcclusionRadius centered
	// on the source, producing a fractional occlusion in [0,1].
	Volumetric
)

// AttenuationModel maps a source-listener distance (meters) to a
// linear gain.
type AttenuationModel func(distance float64) float64

// InverseDistanceAttenuation returns the standard 1/max(distance,
// minDistance) falloff.
func InverseDistanceAttenuation(minDistance float64) AttenuationModel {
	return func(distance float64) float64 {
		if distance < minDistance {
			distance = minDistance
		}
		if distance <= 0 {
			return 1
		}
		return 1 / distance
	}
}

// AirAbsorptionModel maps a distance to a 3-band linear gain curve.
type AirAbsorptionModel func(distance float64) [3]float64

// ExponentialAirAbsorption returns a per-band exponential decay model
// exp(-coeff[b]*distance), coeff in nepers/meter.
func ExponentialAirAbsorption(coeff [3]float64) AirAbsorptionModel {
	return func(distance float64) [3]float64 {
		var out [3]float64
		for b := range out {
			out[b] = math.Exp(-coeff[b] * distance)
		}
		return out
	}
}

// DirectivityModel maps a direction (in the source's local frame,
// pointing from source toward listener) to a linear gain.
type DirectivityModel func(localDir geom.Vector3) float64

// OmnidirectionalDirectivity is the trivial constant-gain model.
func OmnidirectionalDirectivity(geom.Vector3) float64 { return 1 }

// DirectSimulator computes a DirectSoundPath for a source-listener
// pair against a scene.
type DirectSimulator struct {
	scene            geom.Queryable
	occlusionType    OcclusionType
	occlusionRadius  float64
	occlusionSamples int
}

// NewDirectSimulator builds a direct-path simulator tracing occlusion
// against scene.
func NewDirectSimulator(scene geom.Queryable, occlusionType OcclusionType, occlusionRadius float64, occlusionSamples int) *DirectSimulator {
	if occlusionSamples <= 0 {
		occlusionSamples = 16
	}
	return &DirectSimulator{
		scene:            scene,
		occlusionType:    occlusionType,
		occlusionRadius:  occlusionRadius,
		occlusionSamples: occlusionSamples,
	}
}

// Simulate computes the DirectSoundPath from source to listener.
// sourceOrientation transforms a world-space direction into the
// source's local frame, the frame directivity is evaluated in.
func (d *DirectSimulator) Simulate(source, listener geom.Vector3, sourceOrientation geom.Matrix4, attenuation AttenuationModel, airAbsorption AirAbsorptionModel, directivity DirectivityModel) effects.DirectSoundPath {
	toListener := listener.Sub(source)
	distance := toListener.Norm()

	var worldDir geom.Vector3
	if distance > geom.NearlyZeroLength {
		worldDir = toListener.Mul(1 / distance)
	}
	localDir := sourceOrientation.TransformDirection(worldDir)

	path := effects.DirectSoundPath{
		DistanceAttenuation: attenuation(distance),
		AirAbsorption:       airAbsorption(distance),
		Directivity:         directivity(localDir),
		Occlusion:           d.estimateOcclusion(source, listener, distance, worldDir),
	}
	return path
}

// estimateOcclusion runs the configured occlusion model between source
// and listener, distance meters apart along the unit direction worldDir.
func (d *DirectSimulator) estimateOcclusion(source, listener geom.Vector3, distance float64, worldDir geom.Vector3) float64 {
	if d.scene == nil || distance < geom.NearlyZeroLength {
		return 0
	}

	switch d.occlusionType {
	case Volumetric:
		return d.volumetricOcclusion(source, listener, distance, worldDir)
	default:
		if d.scene.AnyHit(geom.Ray{Origin: source, Direction: worldDir}, 1e-4, distance-1e-4) {
			return 1
		}
		return 0
	}
}

// volumetricOcclusion samples rays across a disc of occlusionRadius
// perpendicular to worldDir, centered on source, reporting the
// fraction blocked — an approximation of a finite-size source's
// partial occlusion by a thin obstacle.
func (d *DirectSimulator) volumetricOcclusion(source, listener geom.Vector3, distance float64, worldDir geom.Vector3) float64 {
	t, b := orthonormalBasis(worldDir)
	var blocked int
	n := d.occlusionSamples
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		radius := d.occlusionRadius * math.Sqrt(float64(i%4+1)/4)
		offset := t.Mul(radius * math.Cos(angle)).Add(b.Mul(radius * math.Sin(angle)))
		origin := source.Add(offset)
		ray := geom.Ray{Origin: origin, Direction: worldDir}
		if d.scene.AnyHit(ray, 1e-4, distance-1e-4) {
			blocked++
		}
	}
	return float64(blocked) / float64(n)
}

// orthonormalBasis builds a tangent/bitangent pair for unit vector n,
// used to spread volumetric occlusion samples across a disc.
func orthonormalBasis(n geom.Vector3) (t, b geom.Vector3) {
	up := geom.Vector3{X: 0, Y: 1, Z: 0}
	if math.Abs(n.Dot(up)) > 0.99 {
		up = geom.Vector3{X: 1, Y: 0, Z: 0}
	}
	t = geom.NormalizeOrZero(n.Cross(up))
	b = n.Cross(t)
	return t, b
}
