package effects

import (
	"github.com/spatialaudio/core/internal/dsp"
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/internal/hrtf"
	"gonum.org/v1/gonum/mat"
)

// AmbisonicsEncodeEffect projects a mono input onto the ACN/N3D real SH
// basis at a source direction, producing (order+1)^2 channels.
//
// Its per-block direction blend is a direct port of the reference
// effect's actual behavior rather than the more obviously "correct"
// per-sample crossfade every other effect in this package uses: alpha
// advances once per output SH *channel* (alpha = channelIndex /
// frameSize), not once per audio sample, so within a single block every
// sample of a given channel shares one blended direction. The blended
// direction is recomputed per channel from the previous and current
// block's source directions; the stored "previous" direction is always
// the current block's (normalized) direction, updated once per block
// regardless of how many samples it contained.
type AmbisonicsEncodeEffect struct {
	order     int
	frameSize int

	prevDir    geom.Vector3
	curDir     geom.Vector3
	hasPrevDir bool
}

// NewAmbisonicsEncodeEffect builds an encoder for SH order up to
// maxOrder (clamped per call).
func NewAmbisonicsEncodeEffect(frameSize, maxOrder int) *AmbisonicsEncodeEffect {
	return &AmbisonicsEncodeEffect{order: maxOrder, frameSize: frameSize}
}

// Apply encodes in (mono) onto out's (order+1)^2 channels for direction
// dir, clamping order to the effect's configured maxOrder.
func (e *AmbisonicsEncodeEffect) Apply(dir geom.Vector3, order int, in []float64, out AudioBuffer) TailState {
	if order > e.order {
		order = e.order
	}
	if !e.hasPrevDir {
		e.prevDir = geom.NormalizeOrZero(dir)
		e.hasPrevDir = true
	}
	e.curDir = geom.NormalizeOrZero(dir)
	if e.curDir == geom.Zero {
		e.curDir = e.prevDir
	}

	numChannels := dsp.NumCoeffsForOrder(order)
	n := len(in)
	for c := 0; c < numChannels; c++ {
		alpha := float64(c) / float64(e.frameSize)
		blended := geom.NormalizeOrZero(e.prevDir.Mul(1 - alpha).Add(e.curDir.Mul(alpha)))
		if blended == geom.Zero {
			blended = e.curDir
		}
		l, m := lmFromACN(c)
		y := dsp.Evaluate(l, m, dsp.Direction{X: blended.X, Y: blended.Y, Z: blended.Z})
		row := out[c]
		for s := 0; s < n; s++ {
			row[s] = in[s] * y
		}
	}
	e.prevDir = e.curDir
	return TailComplete
}

// lmFromACN inverts dsp.ACNIndex for the small orders this package
// supports, by scanning forward from degree 0.
func lmFromACN(acn int) (int, int) {
	for l := 0; ; l++ {
		base := l * l
		if acn < base+2*l+1 {
			return l, acn - base - l
		}
	}
}

// Reset clears the stored previous direction so the next Apply starts
// fresh rather than crossfading from stale state.
func (e *AmbisonicsEncodeEffect) Reset() { e.hasPrevDir = false }

// Tail: encoding has no internal delay-line state.
func (e *AmbisonicsEncodeEffect) Tail(out AudioBuffer) TailState {
	out.Clear()
	return TailComplete
}

// NumTailSamplesRemaining is always 0.
func (e *AmbisonicsEncodeEffect) NumTailSamplesRemaining() int { return 0 }

// AmbisonicsRotateEffect rotates SH-domain channels by a rotation
// derived from the listener coordinate frame, recomputing per-degree
// block rotation matrices (Ivanic-Ruedenberg) whenever the frame
// changes and crossfading per sample between the previous and current
// rotation's output.
type AmbisonicsRotateEffect struct {
	order     int
	frameSize int

	prevRot, curRot *dsp.BandRotations
	prevBuf, curBuf []float64
}

// NewAmbisonicsRotateEffect builds a rotator for SH order.
func NewAmbisonicsRotateEffect(frameSize, order int) *AmbisonicsRotateEffect {
	identity := dsp.BuildBandRotations(dsp.RotationMatrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, order)
	n := dsp.NumCoeffsForOrder(order)
	return &AmbisonicsRotateEffect{
		order:     order,
		frameSize: frameSize,
		prevRot:   identity,
		curRot:    identity,
		prevBuf:   make([]float64, n),
		curBuf:    make([]float64, n),
	}
}

// SetRotation installs a new listener-frame rotation to crossfade
// toward over the next Apply call.
func (r *AmbisonicsRotateEffect) SetRotation(rot dsp.RotationMatrix3) {
	r.prevRot = r.curRot
	r.curRot = dsp.BuildBandRotations(rot, r.order)
}

// Apply rotates each sample of in (one sample's worth of (order+1)^2
// channel values per call index s) into out, crossfading per sample
// from prevRot's rotation to curRot's.
func (r *AmbisonicsRotateEffect) Apply(in, out AudioBuffer) TailState {
	n := in.FrameSize()
	numChannels := len(in)
	src := make([]float64, numChannels)
	for s := 0; s < n; s++ {
		for c := 0; c < numChannels; c++ {
			src[c] = in[c][s]
		}
		dsp.RotateCoeffs(r.prevBuf, src, r.prevRot, r.order)
		dsp.RotateCoeffs(r.curBuf, src, r.curRot, r.order)
		alpha := float64(s) / float64(n)
		for c := 0; c < numChannels; c++ {
			out[c][s] = r.prevBuf[c]*(1-alpha) + r.curBuf[c]*alpha
		}
	}
	r.prevRot = r.curRot
	return TailComplete
}

// Reset re-seeds both rotation slots to identity.
func (r *AmbisonicsRotateEffect) Reset() {
	identity := dsp.BuildBandRotations(dsp.RotationMatrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, r.order)
	r.prevRot = identity
	r.curRot = identity
}

// Tail: rotation has no internal delay-line state.
func (r *AmbisonicsRotateEffect) Tail(out AudioBuffer) TailState {
	out.Clear()
	return TailComplete
}

// NumTailSamplesRemaining is always 0.
func (r *AmbisonicsRotateEffect) NumTailSamplesRemaining() int { return 0 }

// decodeMatrix holds, for a speaker layout, the pseudo-inverse of the
// layout's SH-sampling matrix (rows: speakers, cols: SH channels) used
// to mode-match decode an ambisonics signal to that layout.
type decodeMatrix struct {
	weights [][]float64 // weights[speaker][channel]
}

func buildDecodeMatrix(speakers []geom.Vector3, order int) *decodeMatrix {
	numChannels := dsp.NumCoeffsForOrder(order)
	numSpeakers := len(speakers)

	sampling := mat.NewDense(numSpeakers, numChannels, nil)
	for i, spk := range speakers {
		for c := 0; c < numChannels; c++ {
			l, m := lmFromACN(c)
			y := dsp.Evaluate(l, m, dsp.Direction{X: spk.X, Y: spk.Y, Z: spk.Z})
			sampling.Set(i, c, y)
		}
	}

	var svd mat.SVD
	svd.Factorize(sampling, mat.SVDThin)
	var pinv mat.Dense
	// mat has no direct pseudo-inverse helper in the thin API used
	// elsewhere in this repo, so compose it from the SVD factors:
	// pinv = V * Sigma^+ * U^T.
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	sigmaPlus := mat.NewDense(numChannels, numSpeakers, nil)
	for i, sv := range values {
		if sv > 1e-9 {
			sigmaPlus.Set(i, i, 1/sv)
		}
	}

	var tmp mat.Dense
	tmp.Mul(&v, sigmaPlus)
	pinv.Mul(&tmp, u.T())

	dm := &decodeMatrix{weights: make([][]float64, numSpeakers)}
	for i := 0; i < numSpeakers; i++ {
		dm.weights[i] = make([]float64, numChannels)
		for c := 0; c < numChannels; c++ {
			dm.weights[i][c] = pinv.At(c, i)
		}
	}
	return dm
}

// AmbisonicsDecodeEffect decodes an SH-domain signal to a speaker
// layout by mode-matching: each speaker's output is a fixed linear
// combination of SH channels from the pseudo-inverse of the layout's
// sampling matrix.
type AmbisonicsDecodeEffect struct {
	dm *decodeMatrix
}

// NewAmbisonicsDecodeEffect builds a decoder for a speaker layout and SH order.
func NewAmbisonicsDecodeEffect(speakers []geom.Vector3, order int) *AmbisonicsDecodeEffect {
	return &AmbisonicsDecodeEffect{dm: buildDecodeMatrix(speakers, order)}
}

// Apply decodes in's SH channels to out's speaker channels.
func (d *AmbisonicsDecodeEffect) Apply(in, out AudioBuffer) TailState {
	n := in.FrameSize()
	for spk, w := range d.dm.weights {
		row := out[spk]
		for s := 0; s < n; s++ {
			var sum float64
			for c, wc := range w {
				sum += wc * in[c][s]
			}
			row[s] = sum
		}
	}
	return TailComplete
}

func (d *AmbisonicsDecodeEffect) Reset()                         {}
func (d *AmbisonicsDecodeEffect) Tail(out AudioBuffer) TailState { out.Clear(); return TailComplete }
func (d *AmbisonicsDecodeEffect) NumTailSamplesRemaining() int   { return 0 }

// AmbisonicsPanningEffect decodes to a speaker layout by direct basis
// sampling (each speaker's weight is simply the SH basis evaluated at
// that speaker's direction, with no further normalization), a cheaper and less
// accurate alternative to AmbisonicsDecodeEffect's mode-matching
// pseudo-inverse — the same "sampling decoder vs. mode-matching
// decoder" tradeoff found throughout ambisonics engineering practice.
type AmbisonicsPanningEffect struct {
	weights [][]float64 // weights[speaker][channel]
}

// NewAmbisonicsPanningEffect builds a sampling decoder for a speaker
// layout and SH order.
func NewAmbisonicsPanningEffect(speakers []geom.Vector3, order int) *AmbisonicsPanningEffect {
	numChannels := dsp.NumCoeffsForOrder(order)
	p := &AmbisonicsPanningEffect{weights: make([][]float64, len(speakers))}
	for i, spk := range speakers {
		row := make([]float64, numChannels)
		for c := 0; c < numChannels; c++ {
			l, m := lmFromACN(c)
			row[c] = dsp.Evaluate(l, m, dsp.Direction{X: spk.X, Y: spk.Y, Z: spk.Z})
		}
		p.weights[i] = row
	}
	return p
}

// Apply decodes in's SH channels to out's speaker channels.
func (p *AmbisonicsPanningEffect) Apply(in, out AudioBuffer) TailState {
	n := in.FrameSize()
	for spk, w := range p.weights {
		row := out[spk]
		for s := 0; s < n; s++ {
			var sum float64
			for c, wc := range w {
				sum += wc * in[c][s]
			}
			row[s] = sum
		}
	}
	return TailComplete
}

func (p *AmbisonicsPanningEffect) Reset()                         {}
func (p *AmbisonicsPanningEffect) Tail(out AudioBuffer) TailState { out.Clear(); return TailComplete }
func (p *AmbisonicsPanningEffect) NumTailSamplesRemaining() int   { return 0 }

// AmbisonicsBinauralEffect decodes an SH-domain signal directly to
// binaural by convolving each ambisonics channel with a direction-
// independent HRIR projection onto that SH channel, precomputed once at
// construction by a discrete spherical quadrature over the HRTF
// database's measurement directions (equal weight per direction,
// scaled by 4*pi/M).
type AmbisonicsBinauralEffect struct {
	frameSize int
	left      []*dsp.OverlapSaveFIR
	right     []*dsp.OverlapSaveFIR
	scratch   []float64
}

// NewAmbisonicsBinauralEffect builds a per-channel HRIR projection for
// every SH channel up to order, from db's measurement set.
func NewAmbisonicsBinauralEffect(db *hrtf.Database, frameSize, order int) *AmbisonicsBinauralEffect {
	numChannels := dsp.NumCoeffsForOrder(order)
	b := &AmbisonicsBinauralEffect{
		frameSize: frameSize,
		left:      make([]*dsp.OverlapSaveFIR, numChannels),
		right:     make([]*dsp.OverlapSaveFIR, numChannels),
		scratch:   make([]float64, frameSize),
	}

	n := db.NumDirections()
	quadratureWeight := 4 * 3.141592653589793 / float64(n)

	irLen := db.IRLength()
	for c := 0; c < numChannels; c++ {
		l, m := lmFromACN(c)
		projLeft := make([]float64, irLen)
		projRight := make([]float64, irLen)
		for i := 0; i < n; i++ {
			dir := db.SampleDirection(i)
			y := dsp.Evaluate(l, m, dsp.Direction{X: dir.X, Y: dir.Y, Z: dir.Z})
			pair := db.LookupNearest(dir)
			w := y * quadratureWeight
			for s := 0; s < irLen; s++ {
				projLeft[s] += pair.Left[s] * w
				projRight[s] += pair.Right[s] * w
			}
		}
		b.left[c] = dsp.NewOverlapSaveFIR(frameSize)
		b.left[c].SetIR(projLeft)
		b.right[c] = dsp.NewOverlapSaveFIR(frameSize)
		b.right[c].SetIR(projRight)
	}
	return b
}

// Apply convolves each SH channel of in against its precomputed HRIR
// projection and sums into out's stereo pair.
func (b *AmbisonicsBinauralEffect) Apply(in AudioBuffer, out AudioBuffer) TailState {
	out.Clear()
	for c := range b.left {
		b.left[c].Apply(in[c], b.scratch)
		for s, x := range b.scratch {
			out[0][s] += x
		}
		b.right[c].Apply(in[c], b.scratch)
		for s, x := range b.scratch {
			out[1][s] += x
		}
	}
	return TailRemaining
}

// Reset clears every channel convolver's delay line.
func (b *AmbisonicsBinauralEffect) Reset() {
	for c := range b.left {
		b.left[c].Reset()
		b.right[c].Reset()
	}
}

// Tail drains all channel convolvers with silent input.
func (b *AmbisonicsBinauralEffect) Tail(out AudioBuffer) TailState {
	out.Clear()
	silence := make([]float64, b.frameSize)
	for c := range b.left {
		b.left[c].Apply(silence, b.scratch)
		for s, x := range b.scratch {
			out[0][s] += x
		}
		b.right[c].Apply(silence, b.scratch)
		for s, x := range b.scratch {
			out[1][s] += x
		}
	}
	return TailComplete
}

// NumTailSamplesRemaining is advisory; callers drive Tail to TailComplete.
func (b *AmbisonicsBinauralEffect) NumTailSamplesRemaining() int { return b.frameSize }
