package effects

import "github.com/spatialaudio/core/internal/dsp"

// EQEffect is a 3-band parametric EQ: a low shelf, a peaking mid band,
// and a high shelf, each an online-retunable IIR biquad crossfaded
// internally (via dsp.IIR) whenever its gain changes.
type EQEffect struct {
	sampleRate             float64
	lowFreq, highFreq       float64
	low, mid, high          *dsp.IIR
	crossfadeSamples        int
}

// NewEQEffect builds a 3-band EQ split at lowFreq/highFreq (Hz).
func NewEQEffect(sampleRate, lowFreq, highFreq float64, crossfadeSamples int) *EQEffect {
	return &EQEffect{
		sampleRate:       sampleRate,
		lowFreq:          lowFreq,
		highFreq:         highFreq,
		low:              dsp.NewIIR(dsp.Design(dsp.FilterLowShelf, sampleRate, lowFreq, 0.707, 0)),
		mid:              dsp.NewIIR(dsp.Design(dsp.FilterPeaking, sampleRate, (lowFreq+highFreq)/2, 0.707, 0)),
		high:             dsp.NewIIR(dsp.Design(dsp.FilterHighShelf, sampleRate, highFreq, 0.707, 0)),
		crossfadeSamples: crossfadeSamples,
	}
}

// SetBandGains retunes all three bands to new gains in dB, crossfading
// over the effect's configured crossfade length.
func (e *EQEffect) SetBandGains(lowDB, midDB, highDB float64) {
	e.low.Retune(dsp.Design(dsp.FilterLowShelf, e.sampleRate, e.lowFreq, 0.707, lowDB), e.crossfadeSamples)
	e.mid.Retune(dsp.Design(dsp.FilterPeaking, e.sampleRate, (e.lowFreq+e.highFreq)/2, 0.707, midDB), e.crossfadeSamples)
	e.high.Retune(dsp.Design(dsp.FilterHighShelf, e.sampleRate, e.highFreq, 0.707, highDB), e.crossfadeSamples)
}

// Apply cascades the three bands in series, channel by channel.
func (e *EQEffect) Apply(in, out AudioBuffer) TailState {
	for c := range in {
		copy(out[c], in[c])
		e.low.Process(out[c])
		e.mid.Process(out[c])
		e.high.Process(out[c])
	}
	return TailRemaining
}

// Reset clears all three bands' filter state.
func (e *EQEffect) Reset() {
	e.low.Reset()
	e.mid.Reset()
	e.high.Reset()
}

// Tail drains the cascade with silent input.
func (e *EQEffect) Tail(out AudioBuffer) TailState {
	silence := make([]float64, out.FrameSize())
	for c := range out {
		copy(out[c], silence)
		e.low.Process(out[c])
		e.mid.Process(out[c])
		e.high.Process(out[c])
	}
	return TailComplete
}

// NumTailSamplesRemaining is a small fixed advisory count: biquad
// impulse response decay is effectively inaudible within a handful of
// blocks rather than carrying a long explicit tail.
func (e *EQEffect) NumTailSamplesRemaining() int { return 0 }
