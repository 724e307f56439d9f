package effects

import "github.com/spatialaudio/core/internal/dsp"

// HybridReverbEffect splices a short convolutional early part (a
// measured/simulated impulse response, played out for its first
// transitionTime seconds) with a parametric ReverbEffect tail, the two
// matched in level per band by a precomputed EQ so the handoff is
// inaudible, and the tail delayed by an integer sample count so it
// starts exactly where the convolutional part's energy would have
// continued.
type HybridReverbEffect struct {
	conv           *dsp.OverlapSaveFIR
	tail           *ReverbEffect
	tailDelay      *DelayEffect
	hybridEQ       *EQEffect
	transitionDone bool
	samplesPlayed  int
	transitionLen  int
}

// NewHybridReverbEffect builds a hybrid reverb for a single channel at
// sampleRate. The early part and the parametric tail (delayed by
// tailDelaySamples to align energy) are summed throughout, as Apply
// describes; transitionSamples is the length of the early part.
func NewHybridReverbEffect(sampleRate float64, frameSize, transitionSamples, tailDelaySamples, maxTailDelay int) *HybridReverbEffect {
	h := &HybridReverbEffect{
		conv:          dsp.NewOverlapSaveFIR(frameSize),
		tail:          NewReverbEffect(sampleRate),
		tailDelay:     NewDelayEffect(1, maxTailDelay),
		hybridEQ:      NewEQEffect(sampleRate, 400, 4000, frameSize),
		transitionLen: transitionSamples,
	}
	h.tailDelay.SetDelay(tailDelaySamples)
	return h
}

// SetEarlyIR commits the measured/simulated early-reflections impulse
// response to the convolutional part.
func (h *HybridReverbEffect) SetEarlyIR(ir []float64) {
	h.conv.SetIR(ir)
}

// SetTailDelay sets the integer sample delay applied to the parametric
// tail so its onset lines up with where the convolutional part's energy
// trails off.
func (h *HybridReverbEffect) SetTailDelay(samples int) {
	h.tailDelay.SetDelay(samples)
}

// SetHybridEQ sets the per-band gain (in dB, low/mid/high) applied to
// the parametric tail so its level matches the convolutional part's
// energy at the crossover, avoiding an audible level jump at the splice.
func (h *HybridReverbEffect) SetHybridEQ(lowDB, midDB, highDB float64) {
	h.hybridEQ.SetBandGains(lowDB, midDB, highDB)
}

// SetReverbTimes retunes the parametric tail from three per-band T60s;
// the tail uses their mean as one broadband decay (see
// ReverbEffect.SetReverbTimes).
func (h *HybridReverbEffect) SetReverbTimes(t60 [3]float64, crossfadeSamples int) {
	h.tail.SetReverbTimes(t60, crossfadeSamples)
}

// Apply processes one block: the convolutional early part runs at full
// level throughout (its committed IR naturally decays to silence), while
// the parametric tail is EQ-matched, delayed, and summed in continuously
// so the splice has no discontinuity, only a crossover in which band
// carries the audible energy.
func (h *HybridReverbEffect) Apply(in, out []float64) TailState {
	h.conv.AcquireReadBuffer()
	earlyOut := make([]float64, len(in))
	h.conv.Apply(in, earlyOut)

	tailRaw := make([]float64, len(in))
	h.tail.Apply(in, tailRaw)

	eqBuf := AudioBuffer{tailRaw}
	eqOut := AudioBuffer{make([]float64, len(in))}
	h.hybridEQ.Apply(eqBuf, eqOut)

	delayIn := AudioBuffer{eqOut[0]}
	delayOut := AudioBuffer{make([]float64, len(in))}
	h.tailDelay.Apply(delayIn, delayOut)

	for i := range out {
		out[i] = earlyOut[i] + delayOut[0][i]
	}

	h.samplesPlayed += len(in)
	if h.samplesPlayed >= h.transitionLen {
		h.transitionDone = true
	}
	return TailRemaining
}

// Reset clears both the convolutional and parametric paths.
func (h *HybridReverbEffect) Reset() {
	h.conv.Reset()
	h.tail.Reset()
	h.tailDelay.Reset()
	h.hybridEQ.Reset()
	h.samplesPlayed = 0
	h.transitionDone = false
}

// Tail drains the parametric tail (the convolutional part has no tail
// beyond the IR length already folded into its committed partitions).
func (h *HybridReverbEffect) Tail(out AudioBuffer) TailState {
	return h.tail.Tail(out[0])
}

// NumTailSamplesRemaining reports the parametric tail's remaining length.
func (h *HybridReverbEffect) NumTailSamplesRemaining() int {
	return h.tail.NumTailSamplesRemaining()
}
