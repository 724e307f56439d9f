package effects

import "math"

// DirectFlags selects which components of a DirectSoundPath an
// Apply call actually uses; bits can be combined.
type DirectFlags uint8

const (
	DirectApplyDistanceAttenuation DirectFlags = 1 << iota
	DirectApplyAirAbsorption
	DirectApplyDirectivity
	DirectApplyOcclusion
)

// DirectSoundPath is the per-source output of the direct-path
// simulator: a scalar distance attenuation, a 3-band air-absorption
// curve, a scalar directivity term, a scalar occlusion in [0,1], and a
// 3-band transmission curve used when occlusion is frequency-dependent.
type DirectSoundPath struct {
	DistanceAttenuation float64
	AirAbsorption       [3]float64
	Directivity         float64
	Occlusion           float64
	Transmission        [3]float64
	// FrequencyDependentTransmission selects between the two occlusion
	// models: when false, occlusionTerm[b] = (1-occlusion) for every
	// band (frequency-independent transmission); when true,
	// occlusionTerm[b] = (1-occlusion) + occlusion*transmission[b].
	FrequencyDependentTransmission bool
}

// DirectEffect scales the input by distance attenuation and
// directivity (broadband), then runs a three-band EQ whose gains are
// airAbsorption[b] * occlusionTerm[b], with per-sample crossfade
// between the previous and current block's coefficients whenever the
// path changes.
type DirectEffect struct {
	flags      DirectFlags
	eq         *EQEffect
	sampleRate float64
}

// NewDirectEffect builds a direct-sound effect with the given component
// flags, splitting its EQ at lowFreq/highFreq (Hz) into 3 bands.
func NewDirectEffect(sampleRate, lowFreq, highFreq float64, flags DirectFlags, crossfadeSamples int) *DirectEffect {
	return &DirectEffect{
		flags:      flags,
		eq:         NewEQEffect(sampleRate, lowFreq, highFreq, crossfadeSamples),
		sampleRate: sampleRate,
	}
}

func occlusionTerm(path DirectSoundPath, band int) float64 {
	if !path.FrequencyDependentTransmission {
		return 1 - path.Occlusion
	}
	return (1 - path.Occlusion) + path.Occlusion*path.Transmission[band]
}

// Apply scales in by distance attenuation/directivity and EQs by
// air-absorption*occlusion per band, writing the result to out.
func (d *DirectEffect) Apply(path DirectSoundPath, in, out []float64) TailState {
	broadband := 1.0
	if d.flags&DirectApplyDistanceAttenuation != 0 {
		broadband *= path.DistanceAttenuation
	}
	if d.flags&DirectApplyDirectivity != 0 {
		broadband *= path.Directivity
	}

	var gainsDB [3]float64
	for b := 0; b < 3; b++ {
		gain := 1.0
		if d.flags&DirectApplyAirAbsorption != 0 {
			gain *= path.AirAbsorption[b]
		}
		if d.flags&DirectApplyOcclusion != 0 {
			gain *= occlusionTerm(path, b)
		}
		gainsDB[b] = linearToDB(gain)
	}
	d.eq.SetBandGains(gainsDB[0], gainsDB[1], gainsDB[2])

	scratch := make([]float64, len(in))
	for i, x := range in {
		scratch[i] = x * broadband
	}
	buf := AudioBuffer{scratch}
	outBuf := AudioBuffer{out}
	d.eq.Apply(buf, outBuf)
	return TailRemaining
}

func linearToDB(g float64) float64 {
	if g <= 0 {
		return -120
	}
	return 20 * math.Log10(g)
}

// Reset clears the internal EQ's filter state.
func (d *DirectEffect) Reset() { d.eq.Reset() }

// Tail drains the internal EQ with silent input.
func (d *DirectEffect) Tail(out AudioBuffer) TailState { return d.eq.Tail(out) }

// NumTailSamplesRemaining delegates to the internal EQ.
func (d *DirectEffect) NumTailSamplesRemaining() int { return d.eq.NumTailSamplesRemaining() }
