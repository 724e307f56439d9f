package geom

// Material is a per-triangle acoustic material: 3-band absorption and
// transmission, and a scalar scattering coefficient in [0,1].
type Material struct {
	Absorption   [3]float64
	Scattering   float64
	Transmission [3]float64
}

// StaticMesh owns vertices, triangle indices, a per-triangle material
// index, and the material palette they index into.
type StaticMesh struct {
	Vertices       []Vector3
	Indices        [][3]int32 // one triple per triangle
	MaterialIndex  []int32    // len(MaterialIndex) == len(Indices)
	Materials      []Material
	bvh            *BVH
}

// NewStaticMesh builds a StaticMesh and its acceleration structure. The
// three slices must have one entry per logical element as documented on
// the struct fields.
func NewStaticMesh(vertices []Vector3, indices [][3]int32, materialIndex []int32, materials []Material) *StaticMesh {
	m := &StaticMesh{
		Vertices:      vertices,
		Indices:       indices,
		MaterialIndex: materialIndex,
		Materials:     materials,
	}
	m.bvh = BuildBVH(m)
	return m
}

// TriangleCount returns the number of triangles in the mesh.
func (m *StaticMesh) TriangleCount() int { return len(m.Indices) }

// Triangle returns the three world-space vertices of triangle i.
func (m *StaticMesh) Triangle(i int) (Vector3, Vector3, Vector3) {
	idx := m.Indices[i]
	return m.Vertices[idx[0]], m.Vertices[idx[1]], m.Vertices[idx[2]]
}

// MaterialAt returns the material bound to triangle i.
func (m *StaticMesh) MaterialAt(i int) Material {
	return m.Materials[m.MaterialIndex[i]]
}

// InstancedMesh references a sub-scene and places it in the parent scene
// via a 4x4 transform. Updating Transform is a first-class operation and
// must never rebuild Scene's BVH (only the instance's transform and its
// cached inverse change).
type InstancedMesh struct {
	Scene     *Scene
	Transform Matrix4
	inverse   Matrix4
}

// NewInstancedMesh places sub-scene s at transform t.
func NewInstancedMesh(s *Scene, t Matrix4) *InstancedMesh {
	return &InstancedMesh{Scene: s, Transform: t, inverse: t.Inverse()}
}

// SetTransform updates the placement transform without touching the
// referenced sub-scene's BVH.
func (im *InstancedMesh) SetTransform(t Matrix4) {
	im.Transform = t
	im.inverse = t.Inverse()
}
