// Package probes implements spatial caching of baked simulation
// results: probes placed through a scene, batched with a spatial
// index, and looked up at runtime by K-nearest-neighborhood with
// occlusion and smooth-falloff weighting.
package probes

import "github.com/spatialaudio/core/internal/geom"

// Probe is a point in world space with an influence radius.
type Probe struct {
	Influence geom.Sphere
}

// Center returns the probe's world-space position.
func (p Probe) Center() geom.Vector3 { return p.Influence.Center }

// ProbeArray is an unordered set of probes produced by one generation
// pass.
type ProbeArray struct {
	Probes []Probe
}

// Box is an axis-aligned world-space bounding box, the extent a
// ProbeGenerator samples within.
type Box struct {
	Min, Max geom.Vector3
}

// Center returns the box's geometric center.
func (b Box) Center() geom.Vector3 {
	return b.Min.Add(b.Max).Mul(0.5)
}
