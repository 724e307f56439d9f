package reflection

import (
	"context"
	"math"
	"testing"

	"github.com/spatialaudio/core/effects"
	"github.com/spatialaudio/core/internal/geom"
)

func boxRoomScene() *geom.Scene {
	material := geom.Material{Absorption: [3]float64{0.2, 0.2, 0.2}, Scattering: 0.7}
	materials := []geom.Material{material}

	// An axis-aligned 10x10x10 box, inward-facing, built from two
	// triangles per wall/floor/ceiling.
	const s = 5.0
	v := []geom.Vector3{
		{X: -s, Y: -s, Z: -s}, {X: s, Y: -s, Z: -s}, {X: s, Y: s, Z: -s}, {X: -s, Y: s, Z: -s},
		{X: -s, Y: -s, Z: s}, {X: s, Y: -s, Z: s}, {X: s, Y: s, Z: s}, {X: -s, Y: s, Z: s},
	}
	quad := func(a, b, c, d int32) [][3]int32 {
		return [][3]int32{{a, b, c}, {a, c, d}}
	}
	// Each quad's winding is chosen so the triangle normal points inward,
	// toward the room's center, matching an acoustic enclosure's
	// reflecting surfaces.
	var indices [][3]int32
	indices = append(indices, quad(0, 1, 2, 3)...) // -Z
	indices = append(indices, quad(4, 7, 6, 5)...) // +Z
	indices = append(indices, quad(0, 4, 5, 1)...) // -Y
	indices = append(indices, quad(3, 2, 6, 7)...) // +Y
	indices = append(indices, quad(0, 3, 7, 4)...) // -X
	indices = append(indices, quad(1, 5, 6, 2)...) // +X

	matIdx := make([]int32, len(indices))

	mesh := geom.NewStaticMesh(v, indices, matIdx, materials)
	scene := geom.NewScene()
	scene.AddStaticMesh(mesh)
	return scene
}

func omniDirectivity(geom.Vector3) float64 { return 1 }

func TestSimulatorIsDeterministicOnOneThread(t *testing.T) {
	scene := boxRoomScene()
	pool := NewThreadPool(1)
	sim := NewSimulator(scene, pool)

	source := geom.Vector3{X: -1, Y: 0, Z: 0}
	listener := geom.Vector3{X: 1, Y: 0, Z: 0}
	params := Params{
		NumRays:               512,
		NumBounces:            6,
		Duration:              0.5,
		Order:                 1,
		IrradianceMinDistance: 0.1,
		BinWidth:              0.01,
	}

	a, err := sim.Simulate(context.Background(), source, listener, omniDirectivity, params)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := sim.Simulate(context.Background(), source, listener, omniDirectivity, params)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	for c := 0; c < a.Channels(); c++ {
		for band := 0; band < NumBands; band++ {
			for bin := 0; bin < a.TimeBins; bin++ {
				av, bv := a.At(c, band, bin), b.At(c, band, bin)
				if av != bv {
					t.Fatalf("c=%d band=%d bin=%d: run1=%v run2=%v, expected bitwise-identical", c, band, bin, av, bv)
				}
			}
		}
	}
}

func TestSimulatorProducesNonzeroEnergy(t *testing.T) {
	scene := boxRoomScene()
	pool := NewThreadPool(2)
	sim := NewSimulator(scene, pool)

	source := geom.Vector3{X: -1, Y: 0, Z: 0}
	listener := geom.Vector3{X: 1, Y: 0, Z: 0}
	params := Params{
		NumRays:               1024,
		NumBounces:            8,
		Duration:              1.0,
		Order:                 1,
		IrradianceMinDistance: 0.1,
		BinWidth:              0.01,
	}

	field, err := sim.Simulate(context.Background(), source, listener, omniDirectivity, params)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	var total float64
	for c := 0; c < field.Channels(); c++ {
		for band := 0; band < NumBands; band++ {
			for bin := 0; bin < field.TimeBins; bin++ {
				total += field.At(c, band, bin)
			}
		}
	}
	if total <= 0 {
		t.Fatalf("expected nonzero accumulated energy inside a closed room, got %v", total)
	}
}

func TestReverbEstimatorRecoversSyntheticEDC(t *testing.T) {
	const binDuration = 0.01
	const bins = 300
	const wantT60 = 1.5

	field := NewEnergyField(float64(bins)*binDuration, binDuration, 0)
	slopeDBPerSec := -60 / wantT60
	for bin := 0; bin < bins; bin++ {
		t := float64(bin) * binDuration
		db := slopeDBPerSec * t
		energy := math.Pow(10, db/10)
		field.Accumulate(0, 0, bin, energy)
	}

	est := NewReverbEstimator()
	t60 := est.EstimateT60(field)

	if math.Abs(t60[0]-wantT60) > 0.05*wantT60 {
		t.Fatalf("band 0: got T60=%v, want %v +/-5%%", t60[0], wantT60)
	}
}

func TestReverbEstimatorRecoversReverbEffectImpulseResponse(t *testing.T) {
	const sampleRate = 48000.0
	wantT60 := [3]float64{2.0, 1.5, 1.0}

	reverb := effects.NewReverbEffect(sampleRate)
	reverb.SetReverbTimes(wantT60, 0)

	numSamples := int(4 * sampleRate)
	in := make([]float64, numSamples)
	in[0] = 1
	out := make([]float64, numSamples)
	reverb.Apply(in, out)

	const binDuration = 0.02
	bins := int(float64(numSamples)/sampleRate/binDuration) + 1
	field := NewEnergyField(float64(bins)*binDuration, binDuration, 0)
	for i, v := range out {
		bin := int(float64(i) / sampleRate / binDuration)
		if bin >= bins {
			break
		}
		field.Accumulate(0, 0, bin, v*v)
		field.Accumulate(0, 1, bin, v*v)
		field.Accumulate(0, 2, bin, v*v)
	}

	est := NewReverbEstimator()
	got := est.EstimateT60(field)
	for band := 0; band < NumBands; band++ {
		avg := (wantT60[0] + wantT60[1] + wantT60[2]) / 3
		if math.Abs(got[band]-avg) > 0.15*avg {
			t.Errorf("band %d: got T60=%v, want ~%v (FDN is tuned to the averaged T60 across bands)", band, got[band], avg)
		}
	}
}

func TestReconstructorProducesFiniteNonzeroSignal(t *testing.T) {
	field := NewEnergyField(0.5, 0.01, 1)
	for bin := 0; bin < 10; bin++ {
		field.Accumulate(0, 0, bin, 1.0)
		field.Accumulate(0, 1, bin, 1.0)
		field.Accumulate(0, 2, bin, 1.0)
	}

	r := NewReconstructor(48000, Linear)
	ir := r.Reconstruct(field, 7)

	if len(ir.Channels) != field.Channels() {
		t.Fatalf("got %d channels, want %d", len(ir.Channels), field.Channels())
	}
	var energy float64
	for _, ch := range ir.Channels {
		for _, v := range ch {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("non-finite sample in reconstructed IR: %v", v)
			}
			energy += v * v
		}
	}
	if energy <= 0 {
		t.Fatalf("expected nonzero energy in reconstructed IR")
	}
}

func TestHybridReverbEstimatorTransitionWithinDuration(t *testing.T) {
	field := NewEnergyField(1.0, 0.01, 0)
	for bin := 0; bin < field.TimeBins; bin++ {
		field.Accumulate(0, 0, bin, math.Exp(-float64(bin)*0.05))
	}

	est := NewHybridReverbEstimator()
	p := est.Estimate(field, 0.1)

	totalDuration := float64(field.TimeBins) * field.BinDuration
	if p.TransitionTime <= 0 || p.TransitionTime > totalDuration {
		t.Fatalf("transition time %v out of [0, %v]", p.TransitionTime, totalDuration)
	}
}
