package serial

import (
	"io"

	"github.com/spatialaudio/core/internal/geom"
)

// staticMeshDoc is the wire shape of one geom.StaticMesh: its BVH is
// rebuilt on load rather than serialized.
type staticMeshDoc struct {
	Vertices      []geom.Vector3  `msgpack:"vertices"`
	Indices       [][3]int32      `msgpack:"indices"`
	MaterialIndex []int32         `msgpack:"material_index"`
	Materials     []geom.Material `msgpack:"materials"`
}

// sceneDoc is the wire shape of a geom.Scene. Instanced sub-scenes are
// out of scope for this codec: a scene with instances is flattened by
// the caller (resolve each instance into world-space static geometry)
// before encoding, matching how probes and baking already only ever see
// resolved world-space triangles.
type sceneDoc struct {
	Statics []staticMeshDoc `msgpack:"statics"`
}

// WriteScene frames and writes scene's static meshes.
func WriteScene(w io.Writer, scene *geom.Scene) error {
	doc := sceneDoc{}
	for _, m := range scene.StaticMeshes() {
		doc.Statics = append(doc.Statics, staticMeshDoc{
			Vertices:      m.Vertices,
			Indices:       m.Indices,
			MaterialIndex: m.MaterialIndex,
			Materials:     m.Materials,
		})
	}
	return Write(w, KindScene, doc)
}

// ReadScene reads a framed scene and rebuilds its BVH-backed meshes.
func ReadScene(r io.Reader) (*geom.Scene, error) {
	var doc sceneDoc
	if err := Read(r, KindScene, &doc); err != nil {
		return nil, err
	}
	scene := geom.NewScene()
	for _, m := range doc.Statics {
		scene.AddStaticMesh(geom.NewStaticMesh(m.Vertices, m.Indices, m.MaterialIndex, m.Materials))
	}
	return scene, nil
}
