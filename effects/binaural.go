package effects

import (
	"github.com/spatialaudio/core/internal/dsp"
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/internal/hrtf"
)

// HRTFInterpolation selects how BinauralEffect resolves an HRIR pair
// for an arbitrary query direction.
type HRTFInterpolation int

const (
	InterpolationNearest HRTFInterpolation = iota
	InterpolationBilinear
)

// BinauralEffect renders a mono input to stereo by convolving it with a
// direction-dependent HRIR pair, crossfading between the previous and
// current block's filters via two overlap-save convolvers so a moving
// source never clicks.
type BinauralEffect struct {
	db            *hrtf.Database
	interpolation HRTFInterpolation
	frameSize     int

	left, leftPrev   *dsp.OverlapSaveFIR
	right, rightPrev *dsp.OverlapSaveFIR

	prevDir    geom.Vector3
	hasPrevDir bool

	spatialBlend float64

	// lastLeftIR/lastRightIR cache the most recently committed filter so
	// the *Prev convolvers can be seeded with it at the start of the
	// next Apply, before the new direction's IR overwrites left/right.
	lastLeftIR, lastRightIR []float64

	scratchA, scratchB []float64
}

// NewBinauralEffect builds a binaural renderer bound to db and a fixed
// block size.
func NewBinauralEffect(db *hrtf.Database, frameSize int, interp HRTFInterpolation) *BinauralEffect {
	return &BinauralEffect{
		db:            db,
		interpolation: interp,
		frameSize:     frameSize,
		left:          dsp.NewOverlapSaveFIR(frameSize),
		leftPrev:      dsp.NewOverlapSaveFIR(frameSize),
		right:         dsp.NewOverlapSaveFIR(frameSize),
		rightPrev:     dsp.NewOverlapSaveFIR(frameSize),
		spatialBlend:  1,
		lastLeftIR:    []float64{0},
		lastRightIR:   []float64{0},
		scratchA:      make([]float64, frameSize),
		scratchB:      make([]float64, frameSize),
	}
}

// SetSpatialBlend sets how much of the direction-specific HRTF is used,
// in [0,1]; 0 crossfades all the way to the flat, 0th-order response
// (no directional cue), used for distant or diffuse sources.
func (b *BinauralEffect) SetSpatialBlend(blend float64) {
	if blend < 0 {
		blend = 0
	}
	if blend > 1 {
		blend = 1
	}
	b.spatialBlend = blend
}

// resolveDirection falls back to the previous direction when dir is
// near-zero (a degenerate or not-yet-set source direction).
func (b *BinauralEffect) resolveDirection(dir geom.Vector3) geom.Vector3 {
	if !b.hasPrevDir {
		b.prevDir = dir
		b.hasPrevDir = true
	}
	resolved := geom.NormalizeOrZero(dir)
	if resolved == geom.Zero {
		resolved = b.prevDir
	}
	return resolved
}

func toHRTFDirection(v geom.Vector3) hrtf.Direction {
	return hrtf.Direction{X: v.X, Y: v.Y, Z: v.Z}
}

// Apply renders in (mono) to out (2 channels, stereo) for the given
// source direction in listener-local coordinates.
func (b *BinauralEffect) Apply(dir geom.Vector3, in []float64, out AudioBuffer) TailState {
	resolved := b.resolveDirection(dir)

	var pair hrtf.Pair
	if b.interpolation == InterpolationNearest {
		pair = b.db.LookupNearest(toHRTFDirection(resolved))
	} else {
		pair = b.db.Lookup(toHRTFDirection(resolved))
	}
	if b.spatialBlend < 1 {
		flat := b.db.Lookup(hrtf.Direction{X: 0, Y: 0, Z: 0})
		blendPair(pair, flat, b.spatialBlend)
	}

	// Swap the "current" convolver's IR into the "previous" convolver's
	// filter before committing the new one, so this block can crossfade
	// between the filter that rendered last block and the one for this
	// block.
	b.leftPrev.CommitIR(b.currentLeftIR())
	b.leftPrev.AcquireReadBuffer()
	b.rightPrev.CommitIR(b.currentRightIR())
	b.rightPrev.AcquireReadBuffer()

	b.left.CommitIR(pair.Left)
	b.left.AcquireReadBuffer()
	b.right.CommitIR(pair.Right)
	b.right.AcquireReadBuffer()

	b.left.Apply(in, b.scratchA)
	b.leftPrev.Apply(in, out[0])
	crossfadeInto(out[0], b.scratchA)

	b.right.Apply(in, b.scratchB)
	b.rightPrev.Apply(in, out[1])
	crossfadeInto(out[1], b.scratchB)

	b.lastLeftIR = pair.Left
	b.lastRightIR = pair.Right
	b.prevDir = resolved
	return TailRemaining
}

func (b *BinauralEffect) currentLeftIR() []float64  { return b.lastLeftIR }
func (b *BinauralEffect) currentRightIR() []float64 { return b.lastRightIR }

// blendPair crossfades pair toward flat in place by (1-blend).
func blendPair(pair, flat hrtf.Pair, blend float64) {
	for i := range pair.Left {
		pair.Left[i] = pair.Left[i]*blend + flat.Left[i]*(1-blend)
	}
	for i := range pair.Right {
		pair.Right[i] = pair.Right[i]*blend + flat.Right[i]*(1-blend)
	}
}

// crossfadeInto linearly ramps dst (the previous filter's output, read
// in place) toward cur (the current filter's output) across the block.
func crossfadeInto(dst, cur []float64) {
	n := len(dst)
	for i := 0; i < n; i++ {
		alpha := float64(i) / float64(n)
		dst[i] = dst[i]*(1-alpha) + cur[i]*alpha
	}
}

// Reset clears both convolvers' delay-line history.
func (b *BinauralEffect) Reset() {
	b.left.Reset()
	b.leftPrev.Reset()
	b.right.Reset()
	b.rightPrev.Reset()
	b.hasPrevDir = false
}

// Tail drains the convolution delay lines with silent input.
func (b *BinauralEffect) Tail(out AudioBuffer) TailState {
	silence := make([]float64, b.frameSize)
	b.left.Apply(silence, out[0])
	b.right.Apply(silence, out[1])
	return TailComplete
}

// NumTailSamplesRemaining is conservatively the HRIR length, since the
// convolution history needs one full IR length to drain to silence.
func (b *BinauralEffect) NumTailSamplesRemaining() int {
	return b.db.IRLength()
}
