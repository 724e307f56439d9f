package dsp

// IIR8 cascades 4 biquads into an 8th-order (band-pass, typically)
// filter, used by the reconstructor to band-filter a synthesized noise
// signal into one of the energy field's frequency bands.
type IIR8 struct {
	stages [4]*IIR
}

// NewIIR8BandPass builds an 8th-order band-pass filter covering
// [lowHz, highHz] as two cascaded 2nd-order band-pass sections tuned to
// the band's center frequency and a Q chosen from the band's width,
// repeated twice to steepen the rolloff (a common cascade trick since a
// single RBJ band-pass section only gives a 2nd-order response).
func NewIIR8BandPass(sampleRate, lowHz, highHz float64) *IIR8 {
	center := (lowHz + highHz) / 2
	bandwidth := highHz - lowHz
	if bandwidth <= 0 {
		bandwidth = center * 0.5
	}
	q := center / bandwidth
	coeffs := Design(FilterBandPass, sampleRate, center, q, 0)

	f := &IIR8{}
	for i := range f.stages {
		f.stages[i] = NewIIR(coeffs)
	}
	return f
}

// Reset clears all four cascaded stages.
func (f *IIR8) Reset() {
	for _, s := range f.stages {
		s.Reset()
	}
}

// ProcessSample runs x through all four cascaded stages.
func (f *IIR8) ProcessSample(x float64) float64 {
	y := x
	for _, s := range f.stages {
		y = s.ProcessSample(y)
	}
	return y
}

// Process filters an entire block in place.
func (f *IIR8) Process(buf []float64) {
	for i := range buf {
		buf[i] = f.ProcessSample(buf[i])
	}
}
