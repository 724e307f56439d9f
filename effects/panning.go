package effects

import (
	"math"

	"github.com/spatialaudio/core/internal/geom"
)

// SpeakerLayout names a built-in loudspeaker arrangement, or signals
// that Custom speaker directions were supplied directly.
type SpeakerLayout int

const (
	LayoutMono SpeakerLayout = iota
	LayoutStereo
	LayoutQuad
	Layout5_1
	Layout7_1
	LayoutCustom
)

// speakerDirections returns the built-in azimuthal unit directions (in
// the listener's local XZ plane, +Z forward) for a named layout.
// Angles follow the common convention of 0 degrees ahead, positive
// clockwise.
func speakerDirections(layout SpeakerLayout) []geom.Vector3 {
	deg := func(a float64) geom.Vector3 {
		r := a * math.Pi / 180
		return geom.Vector3{X: math.Sin(r), Y: 0, Z: math.Cos(r)}
	}
	switch layout {
	case LayoutMono:
		return []geom.Vector3{{X: 0, Y: 0, Z: 1}}
	case LayoutStereo:
		return []geom.Vector3{deg(-30), deg(30)}
	case LayoutQuad:
		return []geom.Vector3{deg(-45), deg(45), deg(-135), deg(135)}
	case Layout5_1:
		return []geom.Vector3{deg(-30), deg(30), deg(0), deg(0), deg(-110), deg(110)}
	case Layout7_1:
		return []geom.Vector3{deg(-30), deg(30), deg(0), deg(0), deg(-110), deg(110), deg(-150), deg(150)}
	default:
		return nil
	}
}

// PanningEffect maps one mono input channel onto S speakers from a
// source direction, using the same law for every layout (see
// weightsForDirection): there is no separate pairwise law for stereo-like
// layouts and no spherical-harmonic weighting for speaker rings. Direction
// changes are crossfaded per sample against the previous frame's weight
// vector so a moving source never clicks.
type PanningEffect struct {
	frameSize int
	speakers  []geom.Vector3

	prevWeights, curWeights []float64
	prevDir                 geom.Vector3
	hasPrevDir              bool
}

// NewPanningEffect builds a panner for a built-in layout.
func NewPanningEffect(frameSize int, layout SpeakerLayout) *PanningEffect {
	return NewPanningEffectCustom(frameSize, speakerDirections(layout))
}

// NewPanningEffectCustom builds a panner for an explicit set of speaker
// unit directions.
func NewPanningEffectCustom(frameSize int, speakers []geom.Vector3) *PanningEffect {
	p := &PanningEffect{
		frameSize: frameSize,
		speakers:  speakers,
	}
	p.prevWeights = make([]float64, len(speakers))
	p.curWeights = make([]float64, len(speakers))
	return p
}

// weightsForDirection computes constant-power-normalized per-speaker
// gains for a source direction: each speaker's weight is the
// half-wave-rectified cosine of the angle to the source, raised to the
// fixed power 1.5 whatever the speaker count, then normalized so the
// weight vector has unit power.
func (p *PanningEffect) weightsForDirection(dir geom.Vector3, out []float64) {
	var sumSq float64
	for i, spk := range p.speakers {
		c := math.Max(0, spk.Dot(dir))
		w := math.Pow(c, 1.5)
		out[i] = w
		sumSq += w * w
	}
	if sumSq < 1e-12 {
		// No speaker faces the source: spread evenly rather than mute.
		even := 1 / math.Sqrt(float64(len(out)))
		for i := range out {
			out[i] = even
		}
		return
	}
	norm := 1 / math.Sqrt(sumSq)
	for i := range out {
		out[i] *= norm
	}
}

// Apply pans in (a single mono row; every sample of it is read) to out, which
// must have len(speakers) channels of frameSize samples, crossfading
// per sample from the previous frame's weights to this frame's.
func (p *PanningEffect) Apply(dir geom.Vector3, in []float64, out AudioBuffer) TailState {
	if !p.hasPrevDir {
		p.prevDir = dir
		p.hasPrevDir = true
	}
	copy(p.prevWeights, p.curWeights)
	if n := dir.Norm(); n > 1e-9 {
		p.weightsForDirection(dir.Mul(1/n), p.curWeights)
	} else {
		p.weightsForDirection(p.prevDir, p.curWeights)
	}

	n := len(in)
	for s := 0; s < n; s++ {
		alpha := float64(s) / float64(n)
		x := in[s]
		for c := range p.speakers {
			w := p.prevWeights[c]*(1-alpha) + p.curWeights[c]*alpha
			out[c][s] = x * w
		}
	}
	p.prevDir = dir
	return TailComplete
}

// Reset clears crossfade history by zeroing both weight sets; the next
// Apply therefore fades in from silence to the current direction's weights
// rather than crossfading from a stale previous weight set.
func (p *PanningEffect) Reset() {
	for i := range p.prevWeights {
		p.prevWeights[i] = 0
		p.curWeights[i] = 0
	}
	p.hasPrevDir = false
}

// Tail: PanningEffect has no internal state beyond the crossfade cache,
// so its tail is immediately silent and complete.
func (p *PanningEffect) Tail(out AudioBuffer) TailState {
	out.Clear()
	return TailComplete
}

// NumTailSamplesRemaining is always 0: panning carries no delay-line state.
func (p *PanningEffect) NumTailSamplesRemaining() int { return 0 }

// NumSpeakers returns the speaker count this panner was built for.
func (p *PanningEffect) NumSpeakers() int { return len(p.speakers) }
