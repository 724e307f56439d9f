// Package config holds process-wide state for the spatial-audio core:
// feature toggles, the SIMD level detected at startup, and the hooks a
// host installs before constructing its first Simulator.
//
// Everything here must be set before worker threads are spawned (Context
// construction in the API layer, or Manager construction in this repo).
// None of it is safe to mutate afterward — readers across the audio,
// simulation, and worker-pool lanes assume these values are frozen.
package config

import "golang.org/x/sys/cpu"

// SIMDLevel describes the widest vector instruction set the current CPU
// supports, used by DSP code to pick block sizes and loop strides.
type SIMDLevel int

const (
	SIMDLevelScalar SIMDLevel = iota
	SIMDLevelSSE
	SIMDLevelAVX
	SIMDLevelAVX2
)

func (l SIMDLevel) String() string {
	switch l {
	case SIMDLevelSSE:
		return "sse"
	case SIMDLevelAVX:
		return "avx"
	case SIMDLevelAVX2:
		return "avx2"
	default:
		return "scalar"
	}
}

// detectedSIMDLevel is computed once at process start, mirroring the
// teacher's own amd64 feature-gated kernel selection
// (golang.org/x/sys/cpu.X86.HasAVX2/.HasAVX), generalized to a single
// ordinal instead of per-kernel function pointers.
var detectedSIMDLevel = detectSIMDLevel()

func detectSIMDLevel() SIMDLevel {
	switch {
	case cpu.X86.HasAVX2:
		return SIMDLevelAVX2
	case cpu.X86.HasAVX:
		return SIMDLevelAVX
	case cpu.X86.HasSSE2:
		return SIMDLevelSSE
	default:
		return SIMDLevelScalar
	}
}

// CurrentSIMDLevel returns the SIMD level detected for this process. It
// never changes after process start.
func CurrentSIMDLevel() SIMDLevel { return detectedSIMDLevel }

// Toggles holds the three documented host-configurable booleans/limits
// (a small, explicit configuration surface). No Manager or simulator in
// this module reads a Toggles value; PathSimulator takes
// EnablePathsFromAllSourceProbes from its PathingInputs instead.
type Toggles struct {
	// EnableDCCorrectionForPhaseInterpolation forces the DC bin of an
	// HRTF-interpolated spectrum to be real (and, by convention,
	// non-negative) after phase interpolation. Default true.
	EnableDCCorrectionForPhaseInterpolation bool

	// EnablePathsFromAllSourceProbes aggregates PathSimulator output over
	// every probe in the source-side neighborhood rather than only the
	// nearest one. Default false, matching the reference behavior.
	EnablePathsFromAllSourceProbes bool

	// MaxHRTFNormalizationVolumeGainDB hard-caps the gain an HRTFDatabase
	// loudness-normalization pass may apply. Default ~12.0 dB.
	MaxHRTFNormalizationVolumeGainDB float64
}

// DefaultToggles returns the documented defaults.
func DefaultToggles() Toggles {
	return Toggles{
		EnableDCCorrectionForPhaseInterpolation: true,
		EnablePathsFromAllSourceProbes:          false,
		MaxHRTFNormalizationVolumeGainDB:        12.0,
	}
}
