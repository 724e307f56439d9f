package effects

import (
	"math"
	"math/rand"
	"testing"

	"github.com/spatialaudio/core/internal/geom"
)

func TestInterleaveDeinterleaveRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	buf := NewAudioBuffer(3, 16)
	for c := range buf {
		for s := range buf[c] {
			buf[c][s] = rng.Float64()*2 - 1
		}
	}

	back := Deinterleave(Interleave(buf), 3)
	for c := range buf {
		for s := range buf[c] {
			if back[c][s] != buf[c][s] {
				t.Fatalf("channel %d sample %d: got %v want %v", c, s, back[c][s], buf[c][s])
			}
		}
	}
}

func TestDownmixUpmixRoundTripOnIdenticalChannels(t *testing.T) {
	mono := []float64{0.1, -0.2, 0.3, -0.4}
	up := Upmix(mono, 4)
	down := Downmix(up)
	for i := range mono {
		if math.Abs(down[i]-mono[i]) > 1e-12 {
			t.Fatalf("sample %d: got %v want %v", i, down[i], mono[i])
		}
	}
}

func TestGainEffectResetYieldsZeroOutputOnZeroInput(t *testing.T) {
	g := NewGainEffect()
	g.SetGain(2.5)
	in := NewAudioBuffer(1, 16)
	out := NewAudioBuffer(1, 16)
	for s := range in[0] {
		in[0][s] = 1
	}
	g.Apply(in, out)
	g.Reset()

	in.Clear()
	g.Apply(in, out)
	for s, v := range out[0] {
		if v != 0 {
			t.Fatalf("sample %d after reset: got %v, want 0", s, v)
		}
	}
}

func TestGainEffectCrossfadesAcrossBlockBoundary(t *testing.T) {
	g := NewGainEffect()
	in := NewAudioBuffer(1, 8)
	out := NewAudioBuffer(1, 8)
	for s := range in[0] {
		in[0][s] = 1
	}
	g.SetGain(0)
	g.Apply(in, out)

	// first sample of the block should be close to the previous gain (1),
	// last sample close to the new target (0).
	if out[0][0] < 0.8 {
		t.Errorf("first sample = %v, want close to previous gain 1", out[0][0])
	}
	if out[0][len(out[0])-1] > 0.2 {
		t.Errorf("last sample = %v, want close to target gain 0", out[0][len(out[0])-1])
	}
}

func TestPanningEffectConservesPowerAcrossSpeakers(t *testing.T) {
	p := NewPanningEffect(32, LayoutQuad)
	in := make([]float64, 32)
	for i := range in {
		in[i] = math.Sin(float64(i) * 0.2)
	}
	out := NewAudioBuffer(p.NumSpeakers(), 32)
	p.Apply(geom.Vector3{X: 1, Y: 0, Z: 1}, in, out)
	p.Apply(geom.Vector3{X: 1, Y: 0, Z: 1}, in, out) // second block: no longer crossfading from a stale previous direction

	for s := 0; s < 32; s++ {
		var sumSq float64
		for c := 0; c < p.NumSpeakers(); c++ {
			sumSq += out[c][s] * out[c][s]
		}
		want := in[s] * in[s]
		if math.Abs(sumSq-want) > 1e-6 {
			t.Errorf("sample %d: power %v, want %v", s, sumSq, want)
		}
	}
}

func TestDelayEffectProducesExactIntegerDelay(t *testing.T) {
	d := NewDelayEffect(1, 64)
	d.SetDelay(4)
	d.Apply(NewAudioBuffer(1, 8), NewAudioBuffer(1, 8)) // flush initial crossfade from delay 0 to delay 4

	in := NewAudioBuffer(1, 8)
	in[0] = []float64{1, 2, 3, 4, 5, 6, 7, 8}
	out := NewAudioBuffer(1, 8)
	d.Apply(in, out)

	want := []float64{0, 0, 0, 0, 1, 2, 3, 4}
	for i, w := range want {
		if math.Abs(out[0][i]-w) > 1e-9 {
			t.Errorf("sample %d: got %v want %v", i, out[0][i], w)
		}
	}
}

func TestDelayEffectResetClearsHistory(t *testing.T) {
	d := NewDelayEffect(1, 16)
	d.SetDelay(2)
	in := NewAudioBuffer(1, 4)
	in[0] = []float64{1, 1, 1, 1}
	out := NewAudioBuffer(1, 4)
	d.Apply(in, out)
	d.Reset()

	in.Clear()
	d.Apply(in, out)
	for s, v := range out[0] {
		if v != 0 {
			t.Fatalf("sample %d after reset: got %v, want 0", s, v)
		}
	}
}

func TestEQEffectZeroGainIsNearIdentity(t *testing.T) {
	eq := NewEQEffect(48000, 400, 4000, 16)
	eq.SetBandGains(0, 0, 0)
	// run a few blocks so the crossfade settles onto the (no-op) target.
	in := NewAudioBuffer(1, 64)
	out := NewAudioBuffer(1, 64)
	for i := range in[0] {
		in[0][i] = math.Sin(float64(i) * 0.3)
	}
	for i := 0; i < 4; i++ {
		eq.Apply(in, out)
	}
	for i := range in[0] {
		if math.Abs(out[0][i]-in[0][i]) > 0.05 {
			t.Errorf("sample %d: got %v want close to %v", i, out[0][i], in[0][i])
		}
	}
}

func TestReverbEffectZeroT60DecaysToSilence(t *testing.T) {
	r := NewReverbEffect(48000)
	r.SetReverbTimes([3]float64{0, 0, 0}, 1)
	in := make([]float64, 32)
	in[0] = 1
	out := make([]float64, 32)
	r.Apply(in, out)
	r.Apply(make([]float64, 32), out)
	for i, v := range out {
		if math.Abs(v) > 1e-6 {
			t.Errorf("sample %d: got %v, want near 0 with T60=0", i, v)
		}
	}
}

func TestAmbisonicsEncodeEffectZerothOrderChannelIsOmnidirectional(t *testing.T) {
	e := NewAmbisonicsEncodeEffect(16, 1)
	in := make([]float64, 16)
	for i := range in {
		in[i] = 1
	}
	out := NewAudioBuffer(4, 16)

	dirs := []geom.Vector3{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}}
	for _, d := range dirs {
		e.Reset()
		e.Apply(d, 1, in, out)
		want := 1 / math.Sqrt(4*math.Pi) // the 0th-order basis function is direction-independent, equal to 1/sqrt(4pi)
		for s, v := range out[0] {
			if math.Abs(v-want) > 1e-9 {
				t.Fatalf("dir %v sample %d: W channel = %v, want %v", d, s, v, want)
			}
		}
	}
}

func TestAmbisonicsRotateEffectIdentityIsNoOp(t *testing.T) {
	r := NewAmbisonicsRotateEffect(16, 1)
	in := NewAudioBuffer(4, 16)
	rng := rand.New(rand.NewSource(2))
	for c := range in {
		for s := range in[c] {
			in[c][s] = rng.Float64()*2 - 1
		}
	}
	out := NewAudioBuffer(4, 16)
	r.Apply(in, out)

	for c := range in {
		for s := range in[c] {
			if math.Abs(out[c][s]-in[c][s]) > 1e-9 {
				t.Errorf("channel %d sample %d: got %v want %v (identity rotation)", c, s, out[c][s], in[c][s])
			}
		}
	}
}

func TestAmbisonicsPanningEffectSumsToOmniAcrossSpeakers(t *testing.T) {
	speakers := speakerDirections(LayoutQuad)
	p := NewAmbisonicsPanningEffect(speakers, 0)
	in := NewAudioBuffer(1, 8)
	for s := range in[0] {
		in[0][s] = 1
	}
	out := NewAudioBuffer(len(speakers), 8)
	p.Apply(in, out)

	w0 := 1 / math.Sqrt(4*math.Pi) // the 0th-order SH basis function is direction-independent, equal to 1/sqrt(4pi)
	for _, row := range out {
		for s, v := range row {
			if math.Abs(v-w0) > 1e-9 {
				t.Errorf("sample %d: got %v want %v", s, v, w0)
			}
		}
	}
}

func TestDirectEffectOcclusionModelsDiffer(t *testing.T) {
	path := DirectSoundPath{
		DistanceAttenuation: 1,
		AirAbsorption:       [3]float64{1, 1, 1},
		Directivity:         1,
		Occlusion:           0.5,
		Transmission:        [3]float64{0.1, 0.5, 0.9},
	}

	broadband := occlusionTerm(path, 0)
	if math.Abs(broadband-0.5) > 1e-9 {
		t.Errorf("frequency-independent occlusion term = %v, want 0.5", broadband)
	}

	path.FrequencyDependentTransmission = true
	lowBand := occlusionTerm(path, 0)
	want := 0.5 + 0.5*0.1
	if math.Abs(lowBand-want) > 1e-9 {
		t.Errorf("frequency-dependent occlusion term = %v, want %v", lowBand, want)
	}
}

func TestDelayEffectTailDrainsToZero(t *testing.T) {
	d := NewDelayEffect(1, 32)
	d.SetDelay(8)
	in := NewAudioBuffer(1, 8)
	for s := range in[0] {
		in[0][s] = 1
	}
	d.Apply(in, NewAudioBuffer(1, 8))

	out := NewAudioBuffer(1, 8)
	state := TailRemaining
	for i := 0; i < 8 && state == TailRemaining; i++ {
		state = d.Tail(out)
	}
	if state != TailComplete {
		t.Fatalf("delay tail never reached TailComplete after draining NumTailSamplesRemaining worth of blocks")
	}
}
