package dsp

import "sync/atomic"

// Partition is one frameSize-long block of an impulse response,
// transformed to the frequency domain.
type Partition = []complex128

// partitionIR splits ir into ceil(len(ir)/frameSize) blocks of frameSize
// samples (zero-padded on the last block), each zero-padded to
// fftSize = 2*frameSize before transforming, and returns their forward
// transforms.
func partitionIR(fft *RealFFT, ir []float64, frameSize, fftSize int) []Partition {
	numPartitions := (len(ir) + frameSize - 1) / frameSize
	if numPartitions == 0 {
		numPartitions = 1
	}
	partitions := make([]Partition, numPartitions)
	scratch := make([]float64, fftSize)
	for p := 0; p < numPartitions; p++ {
		for i := range scratch {
			scratch[i] = 0
		}
		start := p * frameSize
		end := start + frameSize
		if end > len(ir) {
			end = len(ir)
		}
		if start < end {
			copy(scratch[:end-start], ir[start:end])
		}
		partitions[p] = fft.Forward(nil, scratch)
	}
	return partitions
}

// irBuffer is one committed set of IR partitions plus the fftSize/frameSize
// they were built for.
type irBuffer struct {
	partitions []Partition
}

// OverlapSaveFIR is a partitioned overlap-save FIR convolver. An
// arbitrary-length impulse response is split into frameSize-long
// partitions, each transformed once; per block, the input is transformed
// once and frequency-multiplied against every partition, with a circular
// delay line of past input spectra standing in for the convolution's
// shift-and-sum. The impulse response is triple-buffered (reader/writer/
// pending) so the simulation thread can publish a new IR without the
// audio thread ever blocking.
type OverlapSaveFIR struct {
	frameSize int
	fftSize   int
	fft       *RealFFT

	// triple buffer: index 0/1/2 are read/write/pending in some rotation;
	// readIdx/pendingIdx are swapped atomically.
	slots      [3]atomic.Pointer[irBuffer]
	readIdx    atomic.Int32
	pendingIdx atomic.Int32

	history   []Partition // circular buffer of past input spectra, one per IR partition currently active
	historyAt int
	accum     []complex128
	freqBuf   []complex128
	timeBuf   []float64
	tail      []float64 // second half of the previous call's linear-convolution result, carried into this call's first half
}

// NewOverlapSaveFIR returns a convolver processing blocks of frameSize
// samples against an (initially silent) impulse response.
func NewOverlapSaveFIR(frameSize int) *OverlapSaveFIR {
	fftSize := 2 * frameSize
	f := &OverlapSaveFIR{
		frameSize: frameSize,
		fftSize:   fftSize,
		fft:       NewRealFFT(fftSize),
	}
	empty := &irBuffer{partitions: []Partition{make(Partition, fftSize/2+1)}}
	for i := range f.slots {
		f.slots[i].Store(empty)
	}
	f.resizeHistory(1)
	f.accum = make([]complex128, fftSize/2+1)
	f.freqBuf = make([]complex128, fftSize/2+1)
	f.timeBuf = make([]float64, fftSize)
	f.tail = make([]float64, frameSize)
	return f
}

func (f *OverlapSaveFIR) resizeHistory(numPartitions int) {
	f.history = make([]Partition, numPartitions)
	for i := range f.history {
		f.history[i] = make(Partition, f.fftSize/2+1)
	}
	f.historyAt = 0
}

// SetIR synchronously sets the impulse response partitions, for use
// before the triple-buffer handoff is wired to a simulation thread (e.g.
// unit tests, or an effect driven directly by a baked, static IR).
func (f *OverlapSaveFIR) SetIR(ir []float64) {
	f.CommitIR(ir)
	f.AcquireReadBuffer()
}

// CommitIR transforms ir into partitions and publishes it to the pending
// slot, to be picked up by the next AcquireReadBuffer call. This is the
// method the simulation thread calls; it never blocks the audio thread.
func (f *OverlapSaveFIR) CommitIR(ir []float64) {
	partitions := partitionIR(f.fft, ir, f.frameSize, f.fftSize)
	buf := &irBuffer{partitions: partitions}

	// Slots: readIdx is in use by the audio thread; writeIdx and
	// pendingIdx rotate among the other two. We always write into
	// whichever slot is not the current read slot, then atomically
	// advance a "pending" marker by writing into slot (readIdx+1)%3 and
	// letting AcquireReadBuffer pick the freshest non-read slot.
	writeIdx := (f.readIdx.Load() + 1) % 3
	f.slots[writeIdx].Store(buf)
	f.pendingIdx.Store(writeIdx)
}

// AcquireReadBuffer swaps in the most recently committed IR at a block
// boundary; between two calls, apply() always sees exactly one IR,
// never an interleaving of old and new partitions.
func (f *OverlapSaveFIR) AcquireReadBuffer() {
	pending := f.pendingIdx.Load()
	if pending == f.readIdx.Load() {
		return
	}
	f.readIdx.Store(pending)
	buf := f.slots[pending].Load()
	if len(buf.partitions) != len(f.history) {
		f.resizeHistory(len(buf.partitions))
	}
}

// Apply convolves one frameSize-long input block against the current
// read-side IR, writing frameSize output samples to out (which must be
// preallocated to frameSize).
func (f *OverlapSaveFIR) Apply(in, out []float64) {
	buf := f.slots[f.readIdx.Load()].Load()

	copy(f.timeBuf, in)
	for i := len(in); i < f.fftSize; i++ {
		f.timeBuf[i] = 0
	}
	inputSpectrum := f.fft.Forward(nil, f.timeBuf)

	f.history[f.historyAt] = append(f.history[f.historyAt][:0], inputSpectrum...)

	for i := range f.accum {
		f.accum[i] = 0
	}
	numPartitions := len(buf.partitions)
	for p := 0; p < numPartitions; p++ {
		histIdx := (f.historyAt - p + numPartitions) % numPartitions
		if histIdx < 0 || histIdx >= len(f.history) || len(f.history[histIdx]) == 0 {
			continue
		}
		MultiplyAccumulate(f.accum, f.history[histIdx], buf.partitions[p])
	}
	f.historyAt = (f.historyAt + 1) % numPartitions

	timeDomain := f.fft.InverseNormalized(f.timeBuf, f.accum)
	// Each zero-padded block convolves to a 2*frameSize-long linear result:
	// the first half belongs to this output block, the second half spills
	// into the next one. Add the tail carried from the previous call to
	// this call's first half, then carry this call's second half forward.
	for i := 0; i < f.frameSize; i++ {
		out[i] = timeDomain[i] + f.tail[i]
		f.tail[i] = timeDomain[f.frameSize+i]
	}
}

// Reset clears input history (delay-line state) without touching the
// committed IR.
func (f *OverlapSaveFIR) Reset() {
	for i := range f.history {
		for j := range f.history[i] {
			f.history[i][j] = 0
		}
	}
	f.historyAt = 0
	for i := range f.tail {
		f.tail[i] = 0
	}
}

// FrameSize returns the block size this convolver was constructed for.
func (f *OverlapSaveFIR) FrameSize() int { return f.frameSize }
