// Command spatialaudio-demo builds a small shoebox room, optionally
// (with -bake) bakes reflections at a single centroid probe, then runs a
// single source/listener direct and reflections simulation pass and
// prints the resulting reverb times and direct-path attenuation. No path
// graph is baked.
//
// Usage:
//
//	go run . -rays 2048 -bounces 8
//	go run . -bake -grid 1.5
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/probes"
	"github.com/spatialaudio/core/reflection"
	"github.com/spatialaudio/core/simulation"
)

func main() {
	rays := flag.Int("rays", 2048, "reflection rays per simulation")
	bounces := flag.Int("bounces", 8, "maximum bounce depth")
	duration := flag.Float64("duration", 1.5, "energy field duration in seconds")
	bake := flag.Bool("bake", false, "bake a probe grid and use it instead of a live trace")
	gridSpacing := flag.Float64("grid", 2.0, "probe grid spacing in meters (ignored: -bake places one centroid probe)")
	flag.Parse()

	scene := shoeboxRoom(8, 3, 6)
	pool := reflection.NewThreadPool(0)
	mgr := simulation.NewManager(scene, pool)
	mgr.SetSharedInputs(simulation.SharedInputs{
		ListenerSpace:         geom.Identity4(),
		NumRays:               *rays,
		NumBounces:            *bounces,
		Duration:              *duration,
		Order:                 1,
		IrradianceMinDistance: 0.1,
	})

	src := mgr.AddSource()
	src.Position = geom.Vector3{X: -2, Y: 0, Z: 0}
	src.Listener = geom.Vector3{X: 2.5, Y: 0, Z: 1}
	src.Inputs.Direct = simulation.DirectInputs{
		Enabled:       true,
		SourceSpace:   geom.Identity4(),
		OcclusionType: simulation.Raycast,
	}
	src.Inputs.Reflections = simulation.ReflectionsInputs{
		Enabled:     true,
		ReverbScale: [3]float64{1, 1, 1},
	}

	if *bake {
		batch := bakeProbes(scene, pool, *gridSpacing, *rays, *bounces, *duration)
		src.Inputs.Reflections.Baked = true
		src.Inputs.Reflections.BakedBatch = batch
		src.Inputs.Reflections.BakedIdentifier = reverbIdentifier
	}

	mgr.Commit()
	ctx := context.Background()

	start := time.Now()
	if err := mgr.SimulateDirect(ctx); err != nil {
		log.Fatalf("simulate direct: %v", err)
	}
	if err := mgr.SimulateIndirect(ctx); err != nil {
		log.Fatalf("simulate indirect: %v", err)
	}
	elapsed := time.Since(start)

	src.AcquireReadBuffers()
	direct := src.DirectOutput()
	indirect := src.ReflectionsOutput()

	fmt.Printf("simulated in %v (baked=%v)\n", elapsed, *bake)
	fmt.Printf("direct: attenuation=%.4f occlusion=%.2f airAbsorption=%v\n",
		direct.Path.DistanceAttenuation, direct.Path.Occlusion, direct.Path.AirAbsorption)
	fmt.Printf("reverb T60 (low/mid/high): %.3fs %.3fs %.3fs\n",
		indirect.ReverbTimes[0], indirect.ReverbTimes[1], indirect.ReverbTimes[2])
	fmt.Printf("hybrid transition: %.3fs, eq: %v\n", indirect.HybridDelay, indirect.HybridEQ)
}

var reverbIdentifier = probes.BakedDataIdentifier{Kind: probes.Reflections, Variation: probes.Reverb}

// shoeboxRoom builds an axis-aligned box of width w, height h and depth
// d centered on the origin, walls facing inward.
func shoeboxRoom(w, h, d float64) *geom.Scene {
	material := geom.Material{Absorption: [3]float64{0.15, 0.2, 0.25}, Scattering: 0.4}
	materials := []geom.Material{material}

	hw, hh, hd := w/2, h/2, d/2
	v := []geom.Vector3{
		{X: -hw, Y: -hh, Z: -hd}, {X: hw, Y: -hh, Z: -hd}, {X: hw, Y: hh, Z: -hd}, {X: -hw, Y: hh, Z: -hd},
		{X: -hw, Y: -hh, Z: hd}, {X: hw, Y: -hh, Z: hd}, {X: hw, Y: hh, Z: hd}, {X: -hw, Y: hh, Z: hd},
	}
	quad := func(a, b, c, e int32) [][3]int32 {
		return [][3]int32{{a, b, c}, {a, c, e}}
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

// bakeProbes places a centroid probe in the room and bakes a single
// reflections EnergyField at it, standing in for a full uniform-floor
// bake across a larger scene.
func bakeProbes(scene *geom.Scene, pool *reflection.ThreadPool, gridSpacing float64, rays, bounces int, duration float64) *probes.ProbeBatch {
	gen := probes.NewCentroidGenerator()
	arr := gen.Generate(probes.Box{
		Min: geom.Vector3{X: -4, Y: -1.5, Z: -3},
		Max: geom.Vector3{X: 4, Y: 1.5, Z: 3},
	})
	batch := probes.NewProbeBatch(arr, 64)

	baker := probes.NewReflectionBaker(scene, pool, reflection.Params{
		NumRays:               rays,
		NumBounces:            bounces,
		Duration:              duration,
		Order:                 1,
		IrradianceMinDistance: 0.1,
		BinWidth:              duration / 150,
	})
	if err := baker.Bake(context.Background(), batch, reverbIdentifier, nil); err != nil {
		log.Fatalf("bake reflections: %v", err)
	}
	return batch
}
