package geom

import (
	"math"
	"testing"
)

func singleTriangleMesh() *StaticMesh {
	verts := []Vector3{
		{X: -1, Y: -1, Z: 0},
		{X: 1, Y: -1, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}
	indices := [][3]int32{{0, 1, 2}}
	materials := []Material{{Absorption: [3]float64{0.1, 0.1, 0.1}, Scattering: 0.5, Transmission: [3]float64{0, 0, 0}}}
	return NewStaticMesh(verts, indices, []int32{0}, materials)
}

func TestBVHClosestHitAndAnyHit(t *testing.T) {
	mesh := singleTriangleMesh()
	scene := NewScene()
	scene.AddStaticMesh(mesh)

	ray := Ray{Origin: Vector3{X: 0, Y: 0, Z: -5}, Direction: Vector3{X: 0, Y: 0, Z: 1}}
	hit := scene.ClosestHit(ray, 0, 100)
	if !hit.Valid {
		t.Fatalf("expected a hit")
	}
	if math.Abs(hit.T-5) > 1e-9 {
		t.Errorf("t = %v, want 5", hit.T)
	}
	if !scene.AnyHit(ray, 0, 100) {
		t.Errorf("AnyHit should also report a hit")
	}

	miss := Ray{Origin: Vector3{X: 10, Y: 10, Z: -5}, Direction: Vector3{X: 0, Y: 0, Z: 1}}
	if h := scene.ClosestHit(miss, 0, 100); h.Valid {
		t.Errorf("expected a miss, got t=%v", h.T)
	}
	if scene.AnyHit(miss, 0, 100) {
		t.Errorf("expected AnyHit miss")
	}
}

func TestBVHBatchMatchesScalar(t *testing.T) {
	mesh := singleTriangleMesh()
	scene := NewScene()
	scene.AddStaticMesh(mesh)

	rays := make([]Ray, 64)
	for i := range rays {
		x := float64(i)/32 - 1
		rays[i] = Ray{Origin: Vector3{X: x, Y: 0, Z: -5}, Direction: Vector3{X: 0, Y: 0, Z: 1}}
	}

	batch := scene.ClosestHitBatch(rays, 0, 100)
	for i, r := range rays {
		want := scene.ClosestHit(r, 0, 100)
		if batch[i].Valid != want.Valid {
			t.Fatalf("ray %d: batch valid=%v scalar valid=%v", i, batch[i].Valid, want.Valid)
		}
		if want.Valid && math.Abs(batch[i].T-want.T) > 1e-12 {
			t.Errorf("ray %d: batch t=%v scalar t=%v", i, batch[i].T, want.T)
		}
	}
}

func TestInstancedMeshTransformDoesNotRebuildBVH(t *testing.T) {
	sub := NewScene()
	sub.AddStaticMesh(singleTriangleMesh())
	bvhBefore := sub.statics[0].bvh

	inst := NewInstancedMesh(sub, Identity4())
	parent := NewScene()
	parent.AddInstancedMesh(inst)

	inst.SetTransform(Matrix4{
		{1, 0, 0, 5},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})

	if sub.statics[0].bvh != bvhBefore {
		t.Fatalf("moving an instance transform must not rebuild the sub-scene's BVH")
	}

	ray := Ray{Origin: Vector3{X: 5, Y: 0, Z: -5}, Direction: Vector3{X: 0, Y: 0, Z: 1}}
	if h := parent.ClosestHit(ray, 0, 100); !h.Valid {
		t.Errorf("expected hit against translated instance")
	}
	if h := parent.ClosestHit(Ray{Origin: Vector3{X: 0, Y: 0, Z: -5}, Direction: Vector3{X: 0, Y: 0, Z: 1}}, 0, 100); h.Valid {
		t.Errorf("expected miss at original (untranslated) position")
	}
}

func TestMatrix4Inverse(t *testing.T) {
	m := Matrix4{
		{2, 0, 0, 3},
		{0, 1, 0, -1},
		{0, 0, 4, 2},
		{0, 0, 0, 1},
	}
	inv := m.Inverse()
	p := Vector3{X: 1, Y: 1, Z: 1}
	roundTrip := inv.TransformPoint(m.TransformPoint(p))
	if math.Abs(roundTrip.X-p.X) > 1e-9 || math.Abs(roundTrip.Y-p.Y) > 1e-9 || math.Abs(roundTrip.Z-p.Z) > 1e-9 {
		t.Errorf("round trip = %v, want %v", roundTrip, p)
	}
}
