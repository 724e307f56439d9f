package hrtf

import (
	"math"
	"testing"
)

func TestDefaultGridLookupNearestDirectionIsExact(t *testing.T) {
	opts := DefaultOptions()
	opts.Phase = PhaseNone
	db, err := DefaultGrid(opts)
	if err != nil {
		t.Fatal(err)
	}

	for _, idx := range []int{0, 5, 30} {
		target := db.records[idx].dir
		pair := db.Lookup(target)
		if len(pair.Left) != db.IRLength() || len(pair.Right) != db.IRLength() {
			t.Fatalf("direction %d: unexpected IR length", idx)
		}
		var errSum float64
		for i := range pair.Left {
			d := pair.Left[i] - db.records[idx].left[i]
			errSum += d * d
		}
		rmsErr := math.Sqrt(errSum / float64(len(pair.Left)))
		if rmsErr > 1e-6 {
			t.Errorf("direction %d: lookup at a measured direction should reproduce it, rms err = %v", idx, rmsErr)
		}
	}
}

func TestLookupInterpolatesBetweenNeighbors(t *testing.T) {
	opts := DefaultOptions()
	opts.Phase = PhaseNone
	db, err := DefaultGrid(opts)
	if err != nil {
		t.Fatal(err)
	}

	pair := db.Lookup(Direction{X: 1, Y: 0, Z: 0})
	if len(pair.Left) == 0 || len(pair.Right) == 0 {
		t.Fatal("expected non-empty interpolated pair")
	}
	for _, s := range pair.Left {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Fatal("interpolated left IR contains NaN/Inf")
		}
	}
}

func TestSphereITDDelaysContralateralEar(t *testing.T) {
	opts := DefaultOptions()
	opts.Phase = PhaseSphereITD
	db, err := DefaultGrid(opts)
	if err != nil {
		t.Fatal(err)
	}

	// A source directly to the right should delay the left ear's peak
	// relative to a direction straight ahead.
	ahead := db.Lookup(Direction{X: 0, Y: 0, Z: 1})
	right := db.Lookup(Direction{X: 1, Y: 0, Z: 0})

	aheadPeak := peakIndex(ahead.Left)
	rightPeak := peakIndex(right.Left)
	if rightPeak < aheadPeak {
		t.Errorf("expected left-ear peak to shift later for a rightward source: ahead=%d right=%d", aheadPeak, rightPeak)
	}
}

func TestDecodeBytesRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	// Build a tiny manual buffer: 3 directions, 4-sample IRs.
	buf := encodeTestBuffer(t, opts.SampleRate)
	db, err := DecodeBytes(buf, opts)
	if err != nil {
		t.Fatal(err)
	}
	if db.NumDirections() != 3 {
		t.Fatalf("got %d directions, want 3", db.NumDirections())
	}
}

func TestDecodeBytesTruncatedReturnsError(t *testing.T) {
	_, err := DecodeBytes([]byte{1, 2, 3}, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error decoding a truncated buffer")
	}
}

func encodeTestBuffer(t *testing.T, sampleRate int) []byte {
	t.Helper()
	const n = 3
	const irLen = 4
	buf := make([]byte, 0, 12+n*(12+2*irLen*4))
	putU32 := func(v uint32) {
		buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	putF32 := func(v float32) {
		putU32(math.Float32bits(v))
	}
	putU32(uint32(sampleRate))
	putU32(n)
	putU32(irLen)
	dirs := []Direction{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	for _, d := range dirs {
		putF32(float32(d.X))
		putF32(float32(d.Y))
		putF32(float32(d.Z))
		for i := 0; i < irLen; i++ {
			putF32(0)
		}
		for i := 0; i < irLen; i++ {
			putF32(0)
		}
	}
	return buf
}
