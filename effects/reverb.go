package effects

import (
	"math"

	"github.com/spatialaudio/core/internal/dsp"
)

// reverbDelayLinesPerChannel is the feedback-delay-network's line
// count: enough to smear a single impulse into a dense, diffuse tail
// without the per-line comb-filter coloration a smaller network shows.
const reverbDelayLinesPerChannel = 4

// primeDelayLengths are coprime-ish delay lengths (in samples at 48kHz,
// scaled to other rates) chosen to minimize common-factor resonances
// between feedback-delay-network lines.
var primeDelayLengths = [reverbDelayLinesPerChannel]int{1051, 1327, 1657, 2003}

// ReverbEffect is a feedback-delay-network parametric reverb set from a
// 3-band T60 (reverberation time) vector whose mean gives a single
// broadband decay: the bands do not decay at different rates. Delay-line
// feedback gains are recomputed whenever the reverb times change and
// crossfaded so a parameter change never pops.
type ReverbEffect struct {
	sampleRate float64

	lines      [reverbDelayLinesPerChannel][]float64
	writeAt    [reverbDelayLinesPerChannel]int
	delayLen   [reverbDelayLinesPerChannel]int

	bandFilter [reverbDelayLinesPerChannel]*dsp.IIR8

	prevFeedback, curFeedback [reverbDelayLinesPerChannel]float64
	crossfadeRemaining, crossfadeTotal int
}

// NewReverbEffect builds an FDN reverb for a single channel at sampleRate.
func NewReverbEffect(sampleRate float64) *ReverbEffect {
	r := &ReverbEffect{sampleRate: sampleRate}
	for i := range r.lines {
		length := int(float64(primeDelayLengths[i]) * sampleRate / 48000)
		if length < 1 {
			length = 1
		}
		r.lines[i] = make([]float64, length)
		r.delayLen[i] = length
		r.bandFilter[i] = dsp.NewIIR8BandPass(sampleRate, 20, sampleRate/2-1)
		r.prevFeedback[i] = 0.5
		r.curFeedback[i] = 0.5
	}
	return r
}

// feedbackGain converts a T60 (seconds) and a delay-line length (samples)
// into the per-pass feedback gain g such that g^(sampleRate*T60/length) == 1e-3
// (a -60 dB decay after T60 seconds of recirculation through a line of
// this length).
func feedbackGain(t60, sampleRate float64, delaySamples int) float64 {
	if t60 <= 0 {
		return 0
	}
	passes := t60 * sampleRate / float64(delaySamples)
	if passes < 1e-6 {
		return 0
	}
	return math.Pow(1e-3, 1/passes)
}

// SetReverbTimes retunes the network from three per-band T60s (seconds),
// using their mean for every delay line, and crossfades the feedback gain
// change over crossfadeSamples.
func (r *ReverbEffect) SetReverbTimes(t60 [3]float64, crossfadeSamples int) {
	avg := (t60[0] + t60[1] + t60[2]) / 3
	for i := range r.lines {
		r.prevFeedback[i] = r.curFeedback[i]
		r.curFeedback[i] = feedbackGain(avg, r.sampleRate, r.delayLen[i])
	}
	r.crossfadeRemaining = crossfadeSamples
	r.crossfadeTotal = crossfadeSamples
	if r.crossfadeTotal == 0 {
		r.crossfadeTotal = 1
	}
}

// hadamardMix applies a 4x4 Hadamard feedback matrix to decorrelate the
// four delay-line outputs before feeding them back, the standard FDN
// technique for avoiding audible comb-filtering between lines.
func hadamardMix(x [reverbDelayLinesPerChannel]float64) [reverbDelayLinesPerChannel]float64 {
	const half = 0.5
	return [reverbDelayLinesPerChannel]float64{
		half * (x[0] + x[1] + x[2] + x[3]),
		half * (x[0] - x[1] + x[2] - x[3]),
		half * (x[0] + x[1] - x[2] - x[3]),
		half * (x[0] - x[1] - x[2] + x[3]),
	}
}

// Apply runs one channel of input through the network.
func (r *ReverbEffect) Apply(in, out []float64) TailState {
	for s, x := range in {
		var taps [reverbDelayLinesPerChannel]float64
		for i := range r.lines {
			taps[i] = r.lines[i][r.writeAt[i]]
		}
		mixed := hadamardMix(taps)

		var alpha float64 = 1
		if r.crossfadeTotal > 0 && r.crossfadeRemaining > 0 {
			alpha = 1 - float64(r.crossfadeRemaining)/float64(r.crossfadeTotal)
			r.crossfadeRemaining--
		}

		var sum float64
		for i := range r.lines {
			gain := r.prevFeedback[i]*(1-alpha) + r.curFeedback[i]*alpha
			fed := r.bandFilter[i].ProcessSample(mixed[i]*gain + x*0.25)
			r.lines[i][r.writeAt[i]] = fed
			r.writeAt[i] = (r.writeAt[i] + 1) % r.delayLen[i]
			sum += taps[i]
		}
		out[s] = sum * 0.5
	}
	return TailRemaining
}

// Reset clears all delay lines and band filters.
func (r *ReverbEffect) Reset() {
	for i := range r.lines {
		for j := range r.lines[i] {
			r.lines[i][j] = 0
		}
		r.writeAt[i] = 0
		r.bandFilter[i].Reset()
	}
}

// Tail drains the network with silent input.
func (r *ReverbEffect) Tail(out []float64) TailState {
	silence := make([]float64, len(out))
	r.Apply(silence, out)
	if r.NumTailSamplesRemaining() <= 0 {
		return TailComplete
	}
	return TailRemaining
}

// NumTailSamplesRemaining is a fixed conservative estimate: the longest
// delay line's length times a handful of recirculations.
func (r *ReverbEffect) NumTailSamplesRemaining() int {
	longest := 0
	for _, l := range r.delayLen {
		if l > longest {
			longest = l
		}
	}
	return longest * 8
}
