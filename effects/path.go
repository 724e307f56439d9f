package effects

import (
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/internal/hrtf"
)

// PathSound is the per-source output of the indirect-path simulator: a
// 3-band air-absorption curve describing the cumulative attenuation
// along the dominant reflection path, and the aggregated direction that
// energy appears to arrive from at the listener.
type PathSound struct {
	AirAbsorption [3]float64
	Direction     geom.Vector3
}

// PathEffect applies a per-band EQ derived from the path simulation's
// air-absorption curve, then projects the resulting mono signal onto
// the ambisonics SH basis at the path's aggregated arrival direction.
// When constructed with an HRTF database it additionally decodes that
// SH signal straight to binaural, so a caller that only wants a
// finished stereo path contribution never has to manage an
// intermediate ambisonics bus itself.
type PathEffect struct {
	eq        *EQEffect
	encode    *AmbisonicsEncodeEffect
	order     int
	shBuf     AudioBuffer
	binaural  *AmbisonicsBinauralEffect
}

// NewPathEffect builds a path-sound effect at sampleRate, projecting
// onto SH order, splitting its EQ at lowFreq/highFreq into 3 bands. If
// db is non-nil, Apply also spatializes the SH signal straight to
// binaural via an internal AmbisonicsBinauralEffect built from db.
func NewPathEffect(sampleRate, lowFreq, highFreq float64, frameSize, order, crossfadeSamples int, db *hrtf.Database) *PathEffect {
	p := &PathEffect{
		eq:     NewEQEffect(sampleRate, lowFreq, highFreq, crossfadeSamples),
		encode: NewAmbisonicsEncodeEffect(frameSize, order),
		order:  order,
		shBuf:  NewAudioBuffer(numSHChannels(order), frameSize),
	}
	if db != nil {
		p.binaural = NewAmbisonicsBinauralEffect(db, frameSize, order)
	}
	return p
}

func numSHChannels(order int) int { return (order + 1) * (order + 1) }

// Spatializes reports whether this effect was built with an HRTF
// database and therefore produces a binaural output in Apply.
func (p *PathEffect) Spatializes() bool { return p.binaural != nil }

// Apply EQs in by path's air-absorption curve, encodes the result onto
// shOut (which must have (order+1)^2 channels), and, if the effect was
// built with an HRTF database, also decodes shOut to binauralOut (which
// must have 2 channels). binauralOut may be nil when Spatializes()
// is false.
func (p *PathEffect) Apply(path PathSound, in []float64, shOut AudioBuffer, binauralOut AudioBuffer) TailState {
	var gainsDB [3]float64
	for b := 0; b < 3; b++ {
		gainsDB[b] = linearToDB(path.AirAbsorption[b])
	}
	p.eq.SetBandGains(gainsDB[0], gainsDB[1], gainsDB[2])

	eqOut := make([]float64, len(in))
	p.eq.Apply(AudioBuffer{in}, AudioBuffer{eqOut})

	p.encode.Apply(path.Direction, p.order, eqOut, shOut)

	if p.binaural != nil && binauralOut != nil {
		p.binaural.Apply(shOut, binauralOut)
	}
	return TailRemaining
}

// Reset clears the EQ, encoder, and (if present) binaural decoder state.
func (p *PathEffect) Reset() {
	p.eq.Reset()
	p.encode.Reset()
	if p.binaural != nil {
		p.binaural.Reset()
	}
}

// Tail drains the EQ and, if present, the binaural decoder; the SH
// encoder itself carries no tail state.
func (p *PathEffect) Tail(shOut AudioBuffer, binauralOut AudioBuffer) TailState {
	state := p.eq.Tail(shOut)
	if p.binaural != nil && binauralOut != nil {
		p.binaural.Tail(binauralOut)
	}
	return state
}

// NumTailSamplesRemaining reports the longer of the EQ's and (if
// present) the binaural decoder's remaining tail length.
func (p *PathEffect) NumTailSamplesRemaining() int {
	n := p.eq.NumTailSamplesRemaining()
	if p.binaural != nil && p.binaural.NumTailSamplesRemaining() > n {
		n = p.binaural.NumTailSamplesRemaining()
	}
	return n
}
