package probes

import "github.com/spatialaudio/core/internal/geom"

// Mode selects a ProbeGenerator's sampling strategy.
type Mode int

const (
	// Centroid places a single probe at the sampling box's center.
	Centroid Mode = iota
	// UniformFloor drops a regular grid of probes inside the box, each
	// snapped downward onto the scene's floor (possibly landing several
	// probes per grid column, one per floor level, in a multi-story
	// box).
	UniformFloor
)

// downwardSearchOffset nudges the search origin past a found floor hit
// before continuing downward, so the next ray in the same column
// doesn't immediately re-hit the same surface.
const downwardSearchOffset = 0.01

// UniformFloorParams configures the UniformFloor mode.
type UniformFloorParams struct {
	// GridSpacing is the horizontal distance between grid points and
	// also the influence radius assigned to each resulting probe.
	GridSpacing float64
	// PlacementHeightTolerance is both the minimum ray clearance above
	// a candidate floor (rays search no closer than this) and how far
	// above the found floor a probe is placed, keeping probes off the
	// floor surface itself.
	PlacementHeightTolerance float64
	// MaxSnapRayDistance bounds how far downward the snap search
	// continues before giving up on a grid column.
	MaxSnapRayDistance float64
}

// DefaultUniformFloorParams returns spacing/tolerance/search-distance
// defaults reasonable for room-scale scenes.
func DefaultUniformFloorParams(gridSpacing float64) UniformFloorParams {
	return UniformFloorParams{
		GridSpacing:              gridSpacing,
		PlacementHeightTolerance: gridSpacing * 0.1,
		MaxSnapRayDistance:       gridSpacing * 20,
	}
}

// Generator produces a ProbeArray over a sampling Box.
type Generator struct {
	scene geom.Queryable
	mode  Mode
	ufp   UniformFloorParams
}

// NewCentroidGenerator returns a generator that places one probe at
// each box's center, with influence radius equal to the box's smallest
// half-extent.
func NewCentroidGenerator() *Generator {
	return &Generator{mode: Centroid}
}

// NewUniformFloorGenerator returns a generator that drops a grid of
// floor-snapped probes inside each box, tracing snap rays against
// scene.
func NewUniformFloorGenerator(scene geom.Queryable, params UniformFloorParams) *Generator {
	return &Generator{scene: scene, mode: UniformFloor, ufp: params}
}

// Generate samples box according to g's mode.
func (g *Generator) Generate(box Box) ProbeArray {
	switch g.mode {
	case UniformFloor:
		return g.generateUniformFloor(box)
	default:
		return g.generateCentroid(box)
	}
}

func (g *Generator) generateCentroid(box Box) ProbeArray {
	extent := box.Max.Sub(box.Min).Mul(0.5)
	radius := extent.X
	if extent.Y < radius {
		radius = extent.Y
	}
	if extent.Z < radius {
		radius = extent.Z
	}
	return ProbeArray{Probes: []Probe{{Influence: geom.Sphere{Center: box.Center(), Radius: radius}}}}
}

func (g *Generator) generateUniformFloor(box Box) ProbeArray {
	spacing := g.ufp.GridSpacing
	if spacing <= 0 || g.scene == nil {
		return ProbeArray{}
	}

	var result []Probe
	for x := box.Min.X; x <= box.Max.X; x += spacing {
		for z := box.Min.Z; z <= box.Max.Z; z += spacing {
			top := geom.Vector3{X: x, Y: box.Max.Y, Z: z}
			result = append(result, g.probesBelow(top, box.Max.Y-box.Min.Y)...)
		}
	}
	return ProbeArray{Probes: result}
}

// probesBelow repeatedly traces a downward ray from origin, placing one
// probe per floor it finds (raised PlacementHeightTolerance above the
// hit) until it runs out of remaining clearance or MaxSnapRayDistance.
func (g *Generator) probesBelow(origin geom.Vector3, clearance float64) []Probe {
	down := geom.Vector3{X: 0, Y: -1, Z: 0}
	tol := g.ufp.PlacementHeightTolerance
	remaining := clearance
	if g.ufp.MaxSnapRayDistance > 0 && remaining > g.ufp.MaxSnapRayDistance {
		remaining = g.ufp.MaxSnapRayDistance
	}

	var probes []Probe
	current := origin
	for remaining > 0 {
		ray := geom.Ray{Origin: current, Direction: down}
		hit := g.scene.ClosestHit(ray, tol, remaining+tol)
		if !hit.Valid {
			break
		}

		raised := current.Add(down.Mul(hit.T - tol))
		probes = append(probes, Probe{Influence: geom.Sphere{Center: raised, Radius: g.ufp.GridSpacing}})

		step := hit.T + downwardSearchOffset
		current = current.Add(down.Mul(step))
		remaining -= step
	}
	return probes
}
