package effects

import (
	"github.com/spatialaudio/core/internal/dsp"
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/internal/hrtf"
)

// VirtualSurroundEffect binauralizes a multichannel PanningEffect output
// by convolving each speaker channel with that speaker's fixed HRTF
// (its direction never changes, so no per-block filter crossfade is
// needed beyond the convolver's own delay-line continuity) and summing
// all speakers into a stereo pair.
type VirtualSurroundEffect struct {
	frameSize int
	left      []*dsp.OverlapSaveFIR
	right     []*dsp.OverlapSaveFIR
	scratch   []float64
}

// NewVirtualSurroundEffect builds a binauralizer for a fixed set of
// speaker directions, resolving each speaker's HRIR pair once at
// construction.
func NewVirtualSurroundEffect(db *hrtf.Database, frameSize int, speakers []geom.Vector3) *VirtualSurroundEffect {
	v := &VirtualSurroundEffect{
		frameSize: frameSize,
		left:      make([]*dsp.OverlapSaveFIR, len(speakers)),
		right:     make([]*dsp.OverlapSaveFIR, len(speakers)),
		scratch:   make([]float64, frameSize),
	}
	for i, spk := range speakers {
		pair := db.Lookup(toHRTFDirection(spk))
		v.left[i] = dsp.NewOverlapSaveFIR(frameSize)
		v.left[i].SetIR(pair.Left)
		v.right[i] = dsp.NewOverlapSaveFIR(frameSize)
		v.right[i].SetIR(pair.Right)
	}
	return v
}

// Apply convolves each speaker's row of in against its fixed HRIR pair
// and sums into out's two channels.
func (v *VirtualSurroundEffect) Apply(in AudioBuffer, out AudioBuffer) TailState {
	out.Clear()
	for i := range v.left {
		v.left[i].Apply(in[i], v.scratch)
		for s, x := range v.scratch {
			out[0][s] += x
		}
		v.right[i].Apply(in[i], v.scratch)
		for s, x := range v.scratch {
			out[1][s] += x
		}
	}
	return TailRemaining
}

// Reset clears every speaker convolver's delay line.
func (v *VirtualSurroundEffect) Reset() {
	for i := range v.left {
		v.left[i].Reset()
		v.right[i].Reset()
	}
}

// Tail drains all speaker convolvers with silent input and sums them.
func (v *VirtualSurroundEffect) Tail(out AudioBuffer) TailState {
	out.Clear()
	silence := make([]float64, v.frameSize)
	for i := range v.left {
		v.left[i].Apply(silence, v.scratch)
		for s, x := range v.scratch {
			out[0][s] += x
		}
		v.right[i].Apply(silence, v.scratch)
		for s, x := range v.scratch {
			out[1][s] += x
		}
	}
	return TailComplete
}

// NumTailSamplesRemaining is advisory only; callers drive Tail until it
// reports TailComplete.
func (v *VirtualSurroundEffect) NumTailSamplesRemaining() int { return v.frameSize }
