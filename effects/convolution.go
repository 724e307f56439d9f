package effects

import "github.com/spatialaudio/core/internal/dsp"

// OverlapSaveConvolutionEffect drives one dsp.OverlapSaveFIR per
// channel, used for per-ambisonics-channel or per-output-channel
// convolution against a long impulse response (e.g. a reflections
// reconstruction) published from the simulation thread.
type OverlapSaveConvolutionEffect struct {
	frameSize int
	firs      []*dsp.OverlapSaveFIR
}

// NewOverlapSaveConvolutionEffect builds a convolver for the given
// channel count and block size.
func NewOverlapSaveConvolutionEffect(channels, frameSize int) *OverlapSaveConvolutionEffect {
	c := &OverlapSaveConvolutionEffect{
		frameSize: frameSize,
		firs:      make([]*dsp.OverlapSaveFIR, channels),
	}
	for i := range c.firs {
		c.firs[i] = dsp.NewOverlapSaveFIR(frameSize)
	}
	return c
}

// FIR returns the per-channel convolver, for the simulation thread to
// commit new impulse-response partitions onto.
func (c *OverlapSaveConvolutionEffect) FIR(channel int) *dsp.OverlapSaveFIR { return c.firs[channel] }

// Apply convolves each channel of in against its committed IR.
func (c *OverlapSaveConvolutionEffect) Apply(in, out AudioBuffer) TailState {
	for i := range c.firs {
		c.firs[i].AcquireReadBuffer()
		c.firs[i].Apply(in[i], out[i])
	}
	return TailRemaining
}

// Reset clears every channel's convolution history.
func (c *OverlapSaveConvolutionEffect) Reset() {
	for _, f := range c.firs {
		f.Reset()
	}
}

// Tail drains every channel's convolver with silent input.
func (c *OverlapSaveConvolutionEffect) Tail(out AudioBuffer) TailState {
	silence := make([]float64, c.frameSize)
	for i := range c.firs {
		c.firs[i].Apply(silence, out[i])
	}
	return TailComplete
}

// NumTailSamplesRemaining is advisory only; callers drive Tail to TailComplete.
func (c *OverlapSaveConvolutionEffect) NumTailSamplesRemaining() int { return c.frameSize }
