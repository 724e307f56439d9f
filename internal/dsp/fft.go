// Package dsp provides the shared digital-signal-processing primitives
// every effect and the HRTF model build on: a real FFT, partitioned
// overlap-save FIR convolution, second-order and cascaded-eighth-order
// IIR filters, real spherical harmonics, and window functions.
package dsp

import "gonum.org/v1/gonum/dsp/fourier"

// RealFFT wraps gonum's real-input FFT (gonum.org/v1/gonum/dsp/fourier),
// exposing the forward/inverse pair the overlap-save FIR and the HRTF
// database need: an N-sample real signal maps to N/2+1 complex bins.
type RealFFT struct {
	fft *fourier.FFT
	n   int
}

// NewRealFFT returns a RealFFT transforming real sequences of length n.
func NewRealFFT(n int) *RealFFT {
	return &RealFFT{fft: fourier.NewFFT(n), n: n}
}

// Len returns the transform size N.
func (r *RealFFT) Len() int { return r.n }

// NumBins returns N/2+1, the number of complex bins a forward transform
// produces (the conjugate-symmetric upper half is implicit).
func (r *RealFFT) NumBins() int { return r.n/2 + 1 }

// Forward computes the forward real-to-complex transform of seq, which
// must have length N, into dst, which must be nil (a new slice is
// allocated) or have length N/2+1.
func (r *RealFFT) Forward(dst []complex128, seq []float64) []complex128 {
	return r.fft.Coefficients(dst, seq)
}

// Inverse computes the inverse complex-to-real transform of coeff
// (N/2+1 bins) into dst, which must be nil (a new slice is allocated) or
// have length N. The result is unnormalized: a Forward/Inverse round trip
// returns N times the original, so callers divide by N themselves — see
// InverseNormalized.
func (r *RealFFT) Inverse(dst []float64, coeff []complex128) []float64 {
	return r.fft.Sequence(dst, coeff)
}

// InverseNormalized is Inverse followed by a 1/N scale, giving back the
// original amplitude for a Forward/InverseNormalized round trip.
func (r *RealFFT) InverseNormalized(dst []float64, coeff []complex128) []float64 {
	out := r.Inverse(dst, coeff)
	scale := 1.0 / float64(r.n)
	for i := range out {
		out[i] *= scale
	}
	return out
}

// MultiplyAccumulate adds the element-wise product of a and b into dst,
// used by the overlap-save FIR to multiply an input spectrum against one
// IR partition and accumulate into a running frequency-domain sum.
func MultiplyAccumulate(dst, a, b []complex128) {
	n := len(dst)
	for i := 0; i < n; i++ {
		dst[i] += a[i] * b[i]
	}
}
