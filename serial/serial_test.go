package serial

import (
	"bytes"
	"testing"

	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/probes"
	"github.com/spatialaudio/core/reflection"
)

func TestWriteReadSceneRoundTrips(t *testing.T) {
	material := geom.Material{Absorption: [3]float64{0.2, 0.3, 0.4}, Scattering: 0.6}
	mesh := geom.NewStaticMesh(
		[]geom.Vector3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[][3]int32{{0, 1, 2}},
		[]int32{0},
		[]geom.Material{material},
	)
	scene := geom.NewScene()
	scene.AddStaticMesh(mesh)

	var buf bytes.Buffer
	if err := WriteScene(&buf, scene); err != nil {
		t.Fatalf("WriteScene: %v", err)
	}

	got, err := ReadScene(&buf)
	if err != nil {
		t.Fatalf("ReadScene: %v", err)
	}
	if len(got.StaticMeshes()) != 1 {
		t.Fatalf("got %d static meshes, want 1", len(got.StaticMeshes()))
	}
	gm := got.StaticMeshes()[0]
	if gm.TriangleCount() != 1 {
		t.Fatalf("got %d triangles, want 1", gm.TriangleCount())
	}
	if gm.MaterialAt(0) != material {
		t.Fatalf("got material %+v, want %+v", gm.MaterialAt(0), material)
	}
}

func TestReadSceneRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 64))
	if _, err := ReadScene(buf); err == nil {
		t.Fatalf("expected an error reading a zeroed buffer")
	}
}

func TestReadSceneRejectsFutureMajorVersion(t *testing.T) {
	scene := geom.NewScene()
	scene.AddStaticMesh(geom.NewStaticMesh(
		[]geom.Vector3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[][3]int32{{0, 1, 2}},
		[]int32{0},
		[]geom.Material{{}},
	))
	var buf bytes.Buffer
	if err := WriteScene(&buf, scene); err != nil {
		t.Fatalf("WriteScene: %v", err)
	}
	raw := buf.Bytes()
	raw[4] = VersionMajor + 1 // corrupt the major version byte

	if _, err := ReadScene(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected Read to refuse a newer major version")
	}
}

func TestReadSceneDetectsCorruption(t *testing.T) {
	scene := geom.NewScene()
	scene.AddStaticMesh(geom.NewStaticMesh(
		[]geom.Vector3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[][3]int32{{0, 1, 2}},
		[]int32{0},
		[]geom.Material{{}},
	))
	var buf bytes.Buffer
	if err := WriteScene(&buf, scene); err != nil {
		t.Fatalf("WriteScene: %v", err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF // flip a byte in the compressed body

	if _, err := ReadScene(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected Read to detect CRC mismatch or decompress failure")
	}
}

func TestWriteReadProbeBatchRoundTripsReflectionsPayload(t *testing.T) {
	arr := probes.ProbeArray{Probes: []probes.Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 0, Z: 0}, Radius: 1}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 2, Y: 0, Z: 0}, Radius: 1}},
	}}
	batch := probes.NewProbeBatch(arr, 16)
	id := probes.BakedDataIdentifier{Kind: probes.Reflections, Variation: probes.Reverb}

	field := reflection.NewEnergyField(0.1, 0.02, 1)
	field.Accumulate(0, 0, 0, 1.5)
	field.Accumulate(3, 2, 4, 0.25)
	batch.SetPayload(id, 0, field)

	var buf bytes.Buffer
	if err := WriteProbeBatch(&buf, batch, []probes.BakedDataIdentifier{id}); err != nil {
		t.Fatalf("WriteProbeBatch: %v", err)
	}

	got, err := ReadProbeBatch(&buf, 16)
	if err != nil {
		t.Fatalf("ReadProbeBatch: %v", err)
	}
	if len(got.Probes()) != 2 {
		t.Fatalf("got %d probes, want 2", len(got.Probes()))
	}
	payload, ok := got.Payload(id, 0)
	if !ok {
		t.Fatalf("expected a restored payload at probe 0")
	}
	gotField := payload.(*reflection.EnergyField)
	if gotField.At(0, 0, 0) != 1.5 || gotField.At(3, 2, 4) != 0.25 {
		t.Fatalf("restored field values don't match: %v, %v", gotField.At(0, 0, 0), gotField.At(3, 2, 4))
	}
}

func TestWriteReadProbeBatchRoundTripsPathGraph(t *testing.T) {
	scene := geom.NewScene()
	arr := probes.ProbeArray{Probes: []probes.Probe{
		{Influence: geom.Sphere{Center: geom.Vector3{X: 0, Y: 0, Z: 0}, Radius: 1}},
		{Influence: geom.Sphere{Center: geom.Vector3{X: 3, Y: 0, Z: 0}, Radius: 1}},
	}}
	batch := probes.NewProbeBatch(arr, 16)
	id := probes.BakedDataIdentifier{Kind: probes.Pathing, Variation: probes.StaticSource}
	baker := probes.NewPathBaker(scene, [3]float64{0.001, 0.002, 0.004})
	baker.Bake(batch, id, nil)

	var buf bytes.Buffer
	if err := WriteProbeBatch(&buf, batch, []probes.BakedDataIdentifier{id}); err != nil {
		t.Fatalf("WriteProbeBatch: %v", err)
	}

	got, err := ReadProbeBatch(&buf, 16)
	if err != nil {
		t.Fatalf("ReadProbeBatch: %v", err)
	}
	payload, ok := got.Payload(id, -1)
	if !ok {
		t.Fatalf("expected a restored path graph")
	}
	graph := payload.(probes.PathGraph)
	if len(graph.Edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(graph.Edges))
	}
}
