package reflection

import (
	"math"

	"github.com/spatialaudio/core/internal/dsp"
	"github.com/spatialaudio/core/internal/geom"
)

// EnvelopeMode selects how a time bin's energy is spread across its
// underlying samples when synthesizing a time-domain tail.
type EnvelopeMode int

const (
	// Linear holds each bin's energy constant across its samples, a
	// piecewise-constant staircase matching the EnergyField's own
	// binning exactly.
	Linear EnvelopeMode = iota
	// Gaussian smooths the staircase with a Gaussian kernel spanning a
	// few neighboring bins, trading binning artifacts for a slight
	// blur of fast energy transitions.
	Gaussian
)

// bandRanges are the 3-band crossover edges (Hz) used to band-filter
// synthesized noise into an EnergyField's NumBands frequency bands.
var bandRanges = [NumBands][2]float64{
	{20, 500},
	{500, 4000},
	{4000, 20000},
}

// Reconstructor turns an EnergyField into a time-domain ImpulseResponse
// by synthesizing per-band noise, shaping its envelope to match each
// time bin's energy, and summing the bands of each SH channel into that
// channel's impulse response.
type Reconstructor struct {
	sampleRate float64
	envelope   EnvelopeMode
	gaussSpan  int // number of neighboring bins each side the Gaussian kernel reaches
}

// NewReconstructor builds a reconstructor at sampleRate using envelope
// for amplitude shaping.
func NewReconstructor(sampleRate float64, envelope EnvelopeMode) *Reconstructor {
	return &Reconstructor{sampleRate: sampleRate, envelope: envelope, gaussSpan: 2}
}

// ImpulseResponse is a non-interleaved multichannel (one row per SH
// channel) time-domain signal.
type ImpulseResponse struct {
	Channels [][]float64
}

// Reconstruct synthesizes an ImpulseResponse from field. seed varies
// the sign-randomization pattern per channel so repeated calls with the
// same field but different seeds decorrelate their noise floors (used
// when baking several probes from the same field shape).
func (r *Reconstructor) Reconstruct(field *EnergyField, seed int) *ImpulseResponse {
	numSamples := int(float64(field.TimeBins) * field.BinDuration * r.sampleRate)
	ir := &ImpulseResponse{Channels: make([][]float64, field.Channels())}

	for c := 0; c < field.Channels(); c++ {
		channel := make([]float64, numSamples)
		for band := 0; band < NumBands; band++ {
			filt := dsp.NewIIR8BandPass(r.sampleRate, bandRanges[band][0], bandRanges[band][1])
			noise := r.synthesizeBandNoise(field, c, band, numSamples, seed+c*NumBands+band)
			filt.Process(noise)
			for i, v := range noise {
				channel[i] += v
			}
		}
		ir.Channels[c] = channel
	}
	return ir
}

// synthesizeBandNoise produces numSamples of sign-randomized noise
// whose envelope follows field's per-bin energy for (channel, band),
// shaped according to r.envelope.
func (r *Reconstructor) synthesizeBandNoise(field *EnergyField, channel, band, numSamples, seed int) []float64 {
	samplesPerBin := field.BinDuration * r.sampleRate
	out := make([]float64, numSamples)
	for i := 0; i < numSamples; i++ {
		bin := int(float64(i) / samplesPerBin)
		var energy float64
		switch r.envelope {
		case Gaussian:
			energy = r.gaussianEnergy(field, channel, band, bin)
		default:
			energy = field.At(channel, band, clampBin(bin, field.TimeBins))
		}
		if energy <= 0 {
			continue
		}
		amplitude := math.Sqrt(energy)
		sign := 1.0
		if geom.Halton(seed*numSamples+i, 7) > 0.5 {
			sign = -1.0
		}
		noiseSample := geom.Halton(seed*numSamples+i, 11)*2 - 1
		out[i] = sign * amplitude * noiseSample
	}
	return out
}

// gaussianEnergy blends bin's energy with its r.gaussSpan neighbors on
// each side using a Gaussian kernel, smoothing the staircase the raw
// per-bin energy would otherwise produce.
func (r *Reconstructor) gaussianEnergy(field *EnergyField, channel, band, bin int) float64 {
	const sigma = 1.0
	var weighted, weightSum float64
	for d := -r.gaussSpan; d <= r.gaussSpan; d++ {
		b := clampBin(bin+d, field.TimeBins)
		w := math.Exp(-float64(d*d) / (2 * sigma * sigma))
		weighted += field.At(channel, band, b) * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return weighted / weightSum
}

func clampBin(bin, timeBins int) int {
	if bin < 0 {
		return 0
	}
	if bin >= timeBins {
		return timeBins - 1
	}
	return bin
}
