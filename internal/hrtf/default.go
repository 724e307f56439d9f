package hrtf

import "math"

// DefaultGrid builds a small synthesized HRIR database covering the
// full sphere, for hosts that have not supplied a measured SOFA
// dataset. Each direction's pair is built from a rigid-sphere ITD model
// plus a one-pole low-pass approximating head shadowing on the far ear;
// it is a reasonable stand-in for spatialization testing and demos, not
// a substitute for a measured HRTF set.
func DefaultGrid(opts Options) (*Database, error) {
	const numDirections = 64
	const irLength = 256

	dirs := make([]Direction, numDirections)
	for i := range dirs {
		dirs[i] = fibonacciSphere(i, numDirections)
	}

	left := make([][]float64, numDirections)
	right := make([][]float64, numDirections)
	for i, d := range dirs {
		left[i], right[i] = syntheticPair(d, opts.SampleRate, opts.HeadRadiusMeters, irLength)
	}

	return New(dirs, left, right, opts)
}

func fibonacciSphere(i, n int) Direction {
	if n <= 1 {
		return Direction{X: 0, Y: 0, Z: 1}
	}
	const goldenAngle = math.Pi * (3 - 1.6180339887498949)
	y := 1 - 2*float64(i)/float64(n-1)
	radius := math.Sqrt(math.Max(0, 1-y*y))
	theta := goldenAngle * float64(i)
	return Direction{X: math.Cos(theta) * radius, Y: y, Z: math.Sin(theta) * radius}
}

// syntheticPair produces a minimum-phase-ish click response per ear,
// delayed by the rigid-sphere ITD and attenuated/low-passed on the ear
// facing away from the source to stand in for head-shadow diffraction.
func syntheticPair(d Direction, sampleRate int, headRadius float64, irLength int) ([]float64, []float64) {
	const speedOfSound = 343.0
	theta := math.Asin(clamp(d.X, -1, 1))
	itdSeconds := (headRadius / speedOfSound) * (theta + math.Sin(theta))
	itdSamples := itdSeconds * float64(sampleRate)

	left := make([]float64, irLength)
	right := make([]float64, irLength)

	leftDelay, rightDelay := 0.0, 0.0
	if itdSamples > 0 {
		leftDelay = itdSamples
	} else {
		rightDelay = -itdSamples
	}

	placeClick(left, leftDelay)
	placeClick(right, rightDelay)

	// Crude head-shadow: low-pass the ear facing away from the source by
	// a simple exponential smoothing proportional to how far the source
	// has swung to the opposite side.
	shadow := clamp(-d.X, 0, 1)
	onePoleLowPass(right, shadow*0.6)
	onePoleLowPass(left, clamp(d.X, 0, 1)*0.6)

	return left, right
}

func placeClick(buf []float64, delaySamples float64) {
	whole := int(delaySamples)
	frac := delaySamples - float64(whole)
	if whole >= 0 && whole < len(buf) {
		buf[whole] += 1 - frac
	}
	if whole+1 >= 0 && whole+1 < len(buf) {
		buf[whole+1] += frac
	}
}

func onePoleLowPass(buf []float64, amount float64) {
	if amount <= 0 {
		return
	}
	var prev float64
	for i, s := range buf {
		y := prev + amount*(s-prev)
		buf[i] = y
		prev = y
	}
}
