package simulation

import (
	"context"
	"testing"

	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/probes"
	"github.com/spatialaudio/core/reflection"
)

func openBoxScene() *geom.Scene {
	material := geom.Material{Absorption: [3]float64{0.3, 0.3, 0.3}, Scattering: 0.5}
	materials := []geom.Material{material}

	const s = 10.0
	v := []geom.Vector3{
		{X: -s, Y: -s, Z: -s}, {X: s, Y: -s, Z: -s}, {X: s, Y: s, Z: -s}, {X: -s, Y: s, Z: -s},
		{X: -s, Y: -s, Z: s}, {X: s, Y: -s, Z: s}, {X: s, Y: s, Z: s}, {X: -s, Y: s, Z: s},
	}
	quad := func(a, b, c, d int32) [][3]int32 {
		return [][3]int32{{a, b, c}, {a, c, d}}
	}
	var indices [][3]int32
	indices = append(indices, quad(0, 1, 2, 3)...)
	indices = append(indices, quad(4, 7, 6, 5)...)
	indices = append(indices, quad(0, 4, 5, 1)...)
	indices = append(indices, quad(3, 2, 6, 7)...)
	indices = append(indices, quad(0, 3, 7, 4)...)
	indices = append(indices, quad(1, 5, 6, 2)...)

	matIdx := make([]int32, len(indices))
	mesh := geom.NewStaticMesh(v, indices, matIdx, materials)
	scene := geom.NewScene()
	scene.AddStaticMesh(mesh)
	return scene
}

func wallBetween(scene *geom.Scene) {
	material := geom.Material{Absorption: [3]float64{0.1, 0.1, 0.1}, Scattering: 0.5}
	wall := geom.NewStaticMesh(
		[]geom.Vector3{
			{X: 0, Y: -9, Z: -9}, {X: 0, Y: -9, Z: 9}, {X: 0, Y: 9, Z: 9}, {X: 0, Y: 9, Z: -9},
		},
		[][3]int32{{0, 1, 2}, {0, 2, 3}},
		[]int32{0, 0},
		[]geom.Material{material},
	)
	scene.AddStaticMesh(wall)
}

func TestManagerSimulateDirectPublishesAttenuatedOcclusionFreePath(t *testing.T) {
	scene := openBoxScene()
	pool := reflection.NewThreadPool(1)
	mgr := NewManager(scene, pool)

	src := mgr.AddSource()
	src.Position = geom.Vector3{X: -2, Y: 0, Z: 0}
	src.Listener = geom.Vector3{X: 2, Y: 0, Z: 0}
	src.Inputs.Direct = DirectInputs{
		Enabled:       true,
		SourceSpace:   geom.Identity4(),
		OcclusionType: Raycast,
	}

	mgr.Commit()
	if err := mgr.SimulateDirect(context.Background()); err != nil {
		t.Fatalf("SimulateDirect: %v", err)
	}

	src.AcquireReadBuffers()
	out := src.DirectOutput()
	if out.Generation != mgr.Generation() {
		t.Fatalf("got generation %d, want %d", out.Generation, mgr.Generation())
	}
	if out.Path.Occlusion != 0 {
		t.Fatalf("got occlusion %v, want 0 (open scene)", out.Path.Occlusion)
	}
	if out.Path.DistanceAttenuation <= 0 || out.Path.DistanceAttenuation >= 1 {
		t.Fatalf("got attenuation %v, want in (0,1) for a 4m path", out.Path.DistanceAttenuation)
	}
}

func TestManagerSimulateDirectDetectsOcclusionBehindWall(t *testing.T) {
	scene := openBoxScene()
	wallBetween(scene)
	pool := reflection.NewThreadPool(1)
	mgr := NewManager(scene, pool)

	src := mgr.AddSource()
	src.Position = geom.Vector3{X: -2, Y: 0, Z: 0}
	src.Listener = geom.Vector3{X: 2, Y: 0, Z: 0}
	src.Inputs.Direct = DirectInputs{
		Enabled:       true,
		SourceSpace:   geom.Identity4(),
		OcclusionType: Raycast,
	}

	mgr.Commit()
	if err := mgr.SimulateDirect(context.Background()); err != nil {
		t.Fatalf("SimulateDirect: %v", err)
	}
	src.AcquireReadBuffers()
	if src.DirectOutput().Path.Occlusion != 1 {
		t.Fatalf("got occlusion %v, want 1 (wall blocks line of sight)", src.DirectOutput().Path.Occlusion)
	}
}

func TestManagerSimulateIndirectLiveTracesWhenNotBaked(t *testing.T) {
	scene := openBoxScene()
	pool := reflection.NewThreadPool(2)
	mgr := NewManager(scene, pool)
	mgr.SetSharedInputs(SharedInputs{
		NumRays:               256,
		NumBounces:            4,
		Duration:              0.3,
		Order:                 0,
		IrradianceMinDistance: 0.1,
	})

	src := mgr.AddSource()
	src.Position = geom.Vector3{X: -1, Y: 0, Z: 0}
	src.Listener = geom.Vector3{X: 1, Y: 0, Z: 0}
	src.Inputs.Reflections = ReflectionsInputs{
		Enabled:     true,
		ReverbScale: [3]float64{1, 1, 1},
	}

	mgr.Commit()
	if err := mgr.SimulateIndirect(context.Background()); err != nil {
		t.Fatalf("SimulateIndirect: %v", err)
	}
	src.AcquireReadBuffers()
	out := src.ReflectionsOutput()
	for b, t60 := range out.ReverbTimes {
		if t60 <= 0 {
			// A closed box with absorption < 1 should always ring for some
			// measurable time; zero signals a broken live trace.
			t.Errorf("band %d: got T60 %v, want > 0", b, t60)
		}
	}
}

func TestManagerSimulateIndirectUsesBakedField(t *testing.T) {
	scene := openBoxScene()
	pool := reflection.NewThreadPool(2)
	mgr := NewManager(scene, pool)

	arr := probes.ProbeArray{Probes: []probes.Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 0, Z: 0}, Radius: 5}},
	}}
	batch := probes.NewProbeBatch(arr, 16)
	id := probes.BakedDataIdentifier{Kind: probes.Reflections, Variation: probes.Reverb}

	baker := probes.NewReflectionBaker(scene, pool, reflection.Params{
		NumRays:               256,
		NumBounces:            4,
		Duration:              0.3,
		Order:                 0,
		IrradianceMinDistance: 0.1,
		BinWidth:              0.01,
	})
	if err := baker.Bake(context.Background(), batch, id, nil); err != nil {
		t.Fatalf("bake: %v", err)
	}

	src := mgr.AddSource()
	src.Position = geom.Vector3{X: 0.5, Y: 0, Z: 0}
	src.Listener = geom.Vector3{X: -0.5, Y: 0, Z: 0}
	src.Inputs.Reflections = ReflectionsInputs{
		Enabled:         true,
		ReverbScale:     [3]float64{1, 1, 1},
		Baked:           true,
		BakedBatch:      batch,
		BakedIdentifier: id,
	}

	mgr.Commit()
	if err := mgr.SimulateIndirect(context.Background()); err != nil {
		t.Fatalf("SimulateIndirect: %v", err)
	}
	src.AcquireReadBuffers()
	sum := 0.0
	for _, t60 := range src.ReflectionsOutput().ReverbTimes {
		sum += t60
	}
	if sum <= 0 {
		t.Fatalf("got zero total T60 from baked field")
	}
}

func TestManagerSimulatePathingFindsDirectPath(t *testing.T) {
	scene := geom.NewScene()
	pool := reflection.NewThreadPool(1)
	mgr := NewManager(scene, pool)

	arr := probes.ProbeArray{Probes: []probes.Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 0, Z: 0}, Radius: 2}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 4, Y: 0, Z: 0}, Radius: 2}},
	}}
	batch := probes.NewProbeBatch(arr, 16)
	id := probes.BakedDataIdentifier{Kind: probes.Pathing, Variation: probes.StaticSource}
	pathBaker := probes.NewPathBaker(scene, [3]float64{0.001, 0.002, 0.004})
	pathBaker.Bake(batch, id, nil)

	src := mgr.AddSource()
	src.Listener = geom.Vector3{X: 3.5, Y: 0, Z: 0}
	src.Inputs.Pathing = PathingInputs{
		Enabled:           true,
		SourcePosition:    geom.Vector3{X: 0.5, Y: 0, Z: 0},
		Batch:             batch,
		PathingIdentifier: id,
		Order:             1,
	}

	mgr.Commit()
	if err := mgr.SimulatePathing(context.Background()); err != nil {
		t.Fatalf("SimulatePathing: %v", err)
	}
	src.AcquireReadBuffers()
	out := src.PathingOutput()
	if !out.Valid {
		t.Fatalf("expected a valid path between unobstructed probe neighborhoods")
	}
	if len(out.SH) == 0 {
		t.Fatalf("expected non-empty SH coefficients")
	}
}

func TestManagerCommitAdvancesGeneration(t *testing.T) {
	mgr := NewManager(geom.NewScene(), reflection.NewThreadPool(1))
	if mgr.Generation() != 0 {
		t.Fatalf("got initial generation %d, want 0", mgr.Generation())
	}
	mgr.Commit()
	mgr.Commit()
	if mgr.Generation() != 2 {
		t.Fatalf("got generation %d, want 2", mgr.Generation())
	}
}

func TestSourceTripleBufferNeverMixesFieldsAcrossSubsystems(t *testing.T) {
	scene := openBoxScene()
	pool := reflection.NewThreadPool(1)
	mgr := NewManager(scene, pool)

	src := mgr.AddSource()
	src.Position = geom.Vector3{X: -1, Y: 0, Z: 0}
	src.Listener = geom.Vector3{X: 1, Y: 0, Z: 0}
	src.Inputs.Direct = DirectInputs{Enabled: true, SourceSpace: geom.Identity4()}

	mgr.Commit()
	if err := mgr.SimulateDirect(context.Background()); err != nil {
		t.Fatalf("SimulateDirect: %v", err)
	}
	src.AcquireReadBuffers()
	before := src.ReflectionsOutput()

	// A second commit that only touches the direct subsystem must never
	// perturb the reflections buffer's most recently published value.
	mgr.Commit()
	if err := mgr.SimulateDirect(context.Background()); err != nil {
		t.Fatalf("SimulateDirect: %v", err)
	}
	src.AcquireReadBuffers()
	after := src.ReflectionsOutput()
	if before != after {
		t.Fatalf("reflections output pointer changed after an unrelated direct-only commit")
	}
}
