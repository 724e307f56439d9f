// Package effects implements the real-time audio-effect pipeline: a set
// of composable effects that each consume one fixed-size block of audio
// and produce a block of audio, crossfading time-varying parameters per
// sample and supporting a defined "tail" phase once input stops.
package effects

// TailState reports whether an effect's internal state (delay lines,
// convolution history, reverb feedback) still has energy left to drain
// after the last input block.
type TailState int

const (
	// TailRemaining means further calls to Tail will still produce
	// non-silent output.
	TailRemaining TailState = iota
	// TailComplete means the effect's internal state has fully decayed;
	// further Tail calls would produce silence.
	TailComplete
)

// Effect is the contract every effect in this package implements.
// Implementations are single-owner, single-threaded: calling Apply or
// Tail on the same Effect from two goroutines concurrently is undefined.
type Effect interface {
	// Reset clears all internal state (delay lines, previous-parameter
	// cache, crossfade history) back to silence.
	Reset()
	// Tail continues producing output after the last input block,
	// writing frameSize samples per channel into out and reporting
	// whether state remains.
	Tail(out AudioBuffer) TailState
	// NumTailSamplesRemaining is an advisory count of how many more
	// samples of non-silent tail output remain.
	NumTailSamplesRemaining() int
}

// FrameSize is embedded by every effect constructor to bind apply/tail
// calls to a fixed block size; passing a buffer of a different frame
// size is a construction-time contract violation, not a runtime check
// on the hot path.
type FrameSize int
