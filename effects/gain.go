package effects

// GainEffect applies a scalar gain to every channel, crossfading per
// sample between the previous and current gain so a parameter change
// never clicks.
type GainEffect struct {
	prevGain, curGain float64
}

// NewGainEffect builds a gain stage starting at unity gain.
func NewGainEffect() *GainEffect {
	return &GainEffect{prevGain: 1, curGain: 1}
}

// SetGain installs a new target gain to crossfade toward over the next Apply.
func (g *GainEffect) SetGain(gain float64) {
	g.prevGain = g.curGain
	g.curGain = gain
}

// Apply scales in into out, crossfading from the previous gain to the current.
func (g *GainEffect) Apply(in, out AudioBuffer) TailState {
	n := in.FrameSize()
	for c := range in {
		for s := 0; s < n; s++ {
			alpha := float64(s) / float64(n)
			gain := g.prevGain*(1-alpha) + g.curGain*alpha
			out[c][s] = in[c][s] * gain
		}
	}
	g.prevGain = g.curGain
	return TailComplete
}

// Reset snaps both gain slots to unity.
func (g *GainEffect) Reset() { g.prevGain, g.curGain = 1, 1 }

// Tail: gain has no internal delay-line state.
func (g *GainEffect) Tail(out AudioBuffer) TailState { out.Clear(); return TailComplete }

// NumTailSamplesRemaining is always 0.
func (g *GainEffect) NumTailSamplesRemaining() int { return 0 }
