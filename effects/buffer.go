package effects

import (
	"math"

	"github.com/spatialaudio/core/internal/dsp"
)

// AudioBuffer is a non-interleaved, N-channel block of S samples: each
// channel is a contiguous row, and the buffer's contract is that
// whatever wrote it filled every row to length S. This mirrors the
// audio block format described in the external-interfaces section: a
// channel count, a sample count, and pointer-to-row layout.
type AudioBuffer [][]float64

// NewAudioBuffer allocates a zeroed buffer of channels rows by frameSize
// samples.
func NewAudioBuffer(channels, frameSize int) AudioBuffer {
	buf := make(AudioBuffer, channels)
	for i := range buf {
		buf[i] = make([]float64, frameSize)
	}
	return buf
}

// Channels returns the channel count.
func (b AudioBuffer) Channels() int { return len(b) }

// FrameSize returns the per-channel sample count, or 0 for an empty buffer.
func (b AudioBuffer) FrameSize() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Clear zeroes every sample in place.
func (b AudioBuffer) Clear() {
	for _, row := range b {
		for i := range row {
			row[i] = 0
		}
	}
}

// Interleave packs b's channels into a single row-major stream:
// out[s*channels+c] = b[c][s].
func Interleave(b AudioBuffer) []float64 {
	channels := b.Channels()
	frames := b.FrameSize()
	out := make([]float64, channels*frames)
	for c, row := range b {
		for s, v := range row {
			out[s*channels+c] = v
		}
	}
	return out
}

// Deinterleave is Interleave's inverse: it unpacks a channels-major
// interleaved stream into an AudioBuffer of the given channel count.
func Deinterleave(interleaved []float64, channels int) AudioBuffer {
	frames := len(interleaved) / channels
	out := NewAudioBuffer(channels, frames)
	for s := 0; s < frames; s++ {
		for c := 0; c < channels; c++ {
			out[c][s] = interleaved[s*channels+c]
		}
	}
	return out
}

// Mix accumulates src into dst in place: dst[c][s] += src[c][s]. Both
// buffers must have identical shape.
func Mix(dst, src AudioBuffer) {
	for c := range dst {
		for s := range dst[c] {
			dst[c][s] += src[c][s]
		}
	}
}

// Downmix averages all channels of src down to a single mono row.
func Downmix(src AudioBuffer) []float64 {
	frames := src.FrameSize()
	out := make([]float64, frames)
	if len(src) == 0 {
		return out
	}
	scale := 1.0 / float64(len(src))
	for _, row := range src {
		for s, v := range row {
			out[s] += v * scale
		}
	}
	return out
}

// Upmix replicates a mono row to every channel of a channels-wide buffer.
func Upmix(mono []float64, channels int) AudioBuffer {
	out := NewAudioBuffer(channels, len(mono))
	for c := range out {
		copy(out[c], mono)
	}
	return out
}

// AmbisonicsNormalization selects the per-channel scale convention an
// ambisonics-domain buffer is expressed in. N3D is this package's
// internal canonical form (matching dsp.Evaluate/Project); SN3D and FuMa
// are conversion targets at the external boundary.
type AmbisonicsNormalization int

const (
	NormalizationN3D AmbisonicsNormalization = iota
	NormalizationSN3D
	NormalizationFuMa
)

// ambisonicsScale returns the multiplicative factor converting an N3D
// coefficient at ACN index for degree l into the requested convention.
// FuMa reuses the SN3D per-degree scale (its channel weighting, not its
// WXYZ channel reordering, which is a convention this package does not
// reproduce since every internal consumer works in ACN order).
func ambisonicsScale(norm AmbisonicsNormalization, l int) float64 {
	switch norm {
	case NormalizationSN3D, NormalizationFuMa:
		return 1 / math.Sqrt(float64(2*l+1))
	default:
		return 1
	}
}

// ConvertAmbisonics re-weights an ACN-ordered ambisonics buffer from one
// normalization convention to another, leaving channel order unchanged.
func ConvertAmbisonics(buf AudioBuffer, order int, from, to AmbisonicsNormalization) {
	for l := 0; l <= order; l++ {
		scale := ambisonicsScale(to, l) / ambisonicsScale(from, l)
		if scale == 1 {
			continue
		}
		for m := -l; m <= l; m++ {
			idx := dsp.ACNIndex(l, m)
			if idx >= len(buf) {
				continue
			}
			row := buf[idx]
			for s := range row {
				row[s] *= scale
			}
		}
	}
}
