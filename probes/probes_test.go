package probes

import (
	"context"
	"testing"

	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/reflection"
)

func flatFloorScene() *geom.Scene {
	material := geom.Material{Absorption: [3]float64{0.3, 0.3, 0.3}, Scattering: 0.5}
	materials := []geom.Material{material}

	// A single large upward-facing quad at y=0 spanning [-50,50]^2 in x/z.
	vertices := []geom.Vector3{
		{X: -50, Y: 0, Z: -50},
		{X: 50, Y: 0, Z: -50},
		{X: 50, Y: 0, Z: 50},
		{X: -50, Y: 0, Z: 50},
	}
	indices := [][3]int32{{0, 1, 2}, {0, 2, 3}}
	matIdx := []int32{0, 0}

	mesh := geom.NewStaticMesh(vertices, indices, matIdx, materials)
	scene := geom.NewScene()
	scene.AddStaticMesh(mesh)
	return scene
}

func TestCentroidGeneratorPlacesOneProbeAtBoxCenter(t *testing.T) {
	g := NewCentroidGenerator()
	box := Box{Min: geom.Vector3{X: -2, Y: -1, Z: -3}, Max: geom.Vector3{X: 2, Y: 1, Z: 3}}
	arr := g.Generate(box)

	if len(arr.Probes) != 1 {
		t.Fatalf("got %d probes, want 1", len(arr.Probes))
	}
	center := arr.Probes[0].Center()
	want := box.Center()
	if center != want {
		t.Fatalf("got center %v, want %v", center, want)
	}
	if arr.Probes[0].Influence.Radius != 1 {
		t.Fatalf("got radius %v, want 1 (smallest half-extent)", arr.Probes[0].Influence.Radius)
	}
}

func TestUniformFloorGeneratorSnapsOntoFloor(t *testing.T) {
	scene := flatFloorScene()
	params := DefaultUniformFloorParams(2.0)
	g := NewUniformFloorGenerator(scene, params)

	box := Box{Min: geom.Vector3{X: -4, Y: 0, Z: -4}, Max: geom.Vector3{X: 4, Y: 3, Z: 4}}
	arr := g.Generate(box)

	if len(arr.Probes) == 0 {
		t.Fatalf("expected at least one snapped probe")
	}
	for _, p := range arr.Probes {
		c := p.Center()
		if c.Y < params.PlacementHeightTolerance-1e-6 || c.Y > params.PlacementHeightTolerance+1e-6 {
			t.Errorf("probe at %v: height %v not near tolerance %v", c, c.Y, params.PlacementHeightTolerance)
		}
	}
}

func TestProbeBatchGetInfluencingProbesFindsContainingProbes(t *testing.T) {
	arr := ProbeArray{Probes: []Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 0, Z: 0}, Radius: 1}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 5, Y: 0, Z: 0}, Radius: 1}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0.5, Y: 0, Z: 0}, Radius: 1}},
	}}
	batch := NewProbeBatch(arr, 16)

	n := batch.GetInfluencingProbes(geom.Vector3{X: 0.2, Y: 0, Z: 0})
	if len(n.Indices) != 2 {
		t.Fatalf("got %d influencing probes, want 2 (indices 0 and 2 contain the point)", len(n.Indices))
	}
	for _, idx := range n.Indices {
		if idx != 0 && idx != 2 {
			t.Errorf("unexpected probe index %d in neighborhood", idx)
		}
	}
}

func TestProbeBatchCalcWeightsSumsToOneAcrossValidNeighbors(t *testing.T) {
	arr := ProbeArray{Probes: []Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 0, Z: 0}, Radius: 2}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 1, Y: 0, Z: 0}, Radius: 2}},
	}}
	batch := NewProbeBatch(arr, 16)
	point := geom.Vector3{X: 0.5, Y: 0, Z: 0}
	n := batch.GetInfluencingProbes(point)
	for i := range n.Valid {
		n.Valid[i] = true
	}
	batch.CalcWeights(point, &n)

	var sum float64
	for _, w := range n.Weights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("weights sum to %v, want 1", sum)
	}
}

func TestProbeBatchCheckOcclusionMarksBlockedNeighborsInvalid(t *testing.T) {
	material := geom.Material{Absorption: [3]float64{0.1, 0.1, 0.1}, Scattering: 0.5}
	wall := geom.NewStaticMesh(
		[]geom.Vector3{
			{X: 0.4, Y: -5, Z: -5}, {X: 0.4, Y: -5, Z: 5}, {X: 0.4, Y: 5, Z: 5}, {X: 0.4, Y: 5, Z: -5},
		},
		[][3]int32{{0, 1, 2}, {0, 2, 3}},
		[]int32{0, 0},
		[]geom.Material{material},
	)
	scene := geom.NewScene()
	scene.AddStaticMesh(wall)

	arr := ProbeArray{Probes: []Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 1, Y: 0, Z: 0}, Radius: 2}},
	}}
	batch := NewProbeBatch(arr, 16)
	point := geom.Vector3{X: -1, Y: 0, Z: 0}
	n := batch.GetInfluencingProbes(point)
	if len(n.Indices) != 1 {
		t.Fatalf("expected the probe's sphere to contain the query point")
	}
	batch.CheckOcclusion(scene, point, &n)
	if n.Valid[0] {
		t.Fatalf("expected neighbor behind wall to be occluded")
	}
}

func TestReflectionBakerStoresAPayloadPerProbe(t *testing.T) {
	scene := flatFloorScene()
	pool := reflection.NewThreadPool(2)
	params := reflection.Params{
		NumRays:               64,
		NumBounces:            3,
		Duration:              0.2,
		Order:                 0,
		IrradianceMinDistance: 0.1,
		BinWidth:              0.02,
	}
	baker := NewReflectionBaker(scene, pool, params)

	arr := ProbeArray{Probes: []Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 1, Z: 0}, Radius: 1}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 2, Y: 1, Z: 0}, Radius: 1}},
	}}
	batch := NewProbeBatch(arr, 16)
	id := BakedDataIdentifier{Kind: Reflections, Variation: Reverb}

	if err := baker.Bake(context.Background(), batch, id, nil); err != nil {
		t.Fatalf("bake: %v", err)
	}

	for i := range arr.Probes {
		if _, ok := batch.Payload(id, i); !ok {
			t.Errorf("probe %d: missing baked payload", i)
		}
	}
}

func TestPathBakerConnectsUnobstructedProbes(t *testing.T) {
	scene := geom.NewScene() // empty scene: nothing occludes
	arr := ProbeArray{Probes: []Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 0, Z: 0}, Radius: 1}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 3, Y: 0, Z: 0}, Radius: 1}},
	}}
	batch := NewProbeBatch(arr, 16)
	baker := NewPathBaker(scene, [3]float64{0.001, 0.002, 0.004})
	id := BakedDataIdentifier{Kind: Pathing, Variation: StaticSource}

	graph := baker.Bake(batch, id, nil)
	if len(graph.Edges) != 2 {
		t.Fatalf("got %d edges, want 2 (both directions unobstructed)", len(graph.Edges))
	}
}
