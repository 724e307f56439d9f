// Package hrtf holds a measured or synthesized head-related transfer
// function database: a set of measurement directions, one left/right
// impulse-response pair per direction, and the interpolation machinery a
// BinauralEffect needs to evaluate an HRIR pair for an arbitrary query
// direction.
package hrtf

import (
	"errors"
	"math"

	"github.com/spatialaudio/core/internal/dsp"
)

// Direction is a unit 3-vector in the listener's local coordinate frame.
type Direction struct{ X, Y, Z float64 }

func (d Direction) normalized() Direction {
	n := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
	if n < 1e-12 {
		return Direction{X: 0, Y: 0, Z: 1}
	}
	return Direction{X: d.X / n, Y: d.Y / n, Z: d.Z / n}
}

func dot(a, b Direction) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

// NormalizationMode selects how per-direction loudness is evened out
// across the database so that no measurement direction is perceptually
// louder than another purely as an artifact of the recording setup.
type NormalizationMode int

const (
	// NormalizationNone leaves IRs exactly as provided.
	NormalizationNone NormalizationMode = iota
	// NormalizationRMS scales every direction's pair to a common
	// broadband RMS level computed across the whole database.
	NormalizationRMS
)

// PhaseModel selects how (or whether) interaural time difference is
// reintroduced into interpolated HRIRs.
type PhaseModel int

const (
	// PhaseNone interpolates HRIRs with no explicit ITD correction,
	// relying on whatever phase the measured/synthesized pairs carry.
	PhaseNone PhaseModel = iota
	// PhaseSphereITD models the head as a rigid sphere and adds a
	// Woodworth-formula time delay to the far ear. The interpolation
	// itself blends the complex spectra, so any delay already present in
	// the measured pairs is kept and the modelled delay adds to it.
	PhaseSphereITD
	// PhaseFull interpolates the measured phase directly (via the
	// complex spectra) in addition to magnitude.
	PhaseFull
)

// record is one measurement direction's data: time-domain HRIRs for
// each ear, their forward FFTs (computed once when the database is
// built), and a coarse peak-delay estimate per ear, which is stored but
// not read by the sphere-ITD model.
type record struct {
	dir               Direction
	left, right       []float64
	leftFFT, rightFFT []complex128
	peakDelayLeft     int
	peakDelayRight    int
}

// Database is an interpolatable set of HRIR measurements plus the
// precomputed triangulation needed for barycentric interpolation between
// neighboring directions.
type Database struct {
	sampleRate int
	irLength   int
	fft        *dsp.RealFFT
	fftSize    int

	records []record
	proj    []point2
	tris    []triangle

	gainDB        float64
	normalization NormalizationMode
	phase         PhaseModel

	headRadiusMeters float64
}

// Options configures a Database beyond its raw measurement data.
type Options struct {
	SampleRate       int
	VolumeGainDB     float64
	Normalization    NormalizationMode
	Phase            PhaseModel
	HeadRadiusMeters float64
}

// DefaultOptions returns the Options a freshly constructed Database uses
// when none are supplied explicitly.
func DefaultOptions() Options {
	return Options{
		SampleRate:       48000,
		VolumeGainDB:     0,
		Normalization:    NormalizationRMS,
		Phase:            PhaseSphereITD,
		HeadRadiusMeters: 0.0875, // a representative average adult head radius
	}
}

var (
	// ErrEmptyDatabase is returned when a database is built with no
	// measurement directions.
	ErrEmptyDatabase = errors.New("hrtf: database has no measurement directions")
	// ErrMismatchedIRLength is returned when directions carry
	// differently-sized impulse responses.
	ErrMismatchedIRLength = errors.New("hrtf: impulse responses have mismatched lengths")
	// ErrTooFewDirections is returned when fewer than 3 directions are
	// supplied, which is too few to triangulate.
	ErrTooFewDirections = errors.New("hrtf: need at least 3 measurement directions to triangulate")
)

// New builds a Database from raw per-direction left/right impulse
// responses. All IRs must share the same length.
func New(directions []Direction, left, right [][]float64, opts Options) (*Database, error) {
	if len(directions) == 0 {
		return nil, ErrEmptyDatabase
	}
	if len(directions) < 3 {
		return nil, ErrTooFewDirections
	}
	if len(left) != len(directions) || len(right) != len(directions) {
		return nil, ErrMismatchedIRLength
	}
	irLen := len(left[0])
	for i := range left {
		if len(left[i]) != irLen || len(right[i]) != irLen {
			return nil, ErrMismatchedIRLength
		}
	}

	fftSize := 1
	for fftSize < 2*irLen {
		fftSize *= 2
	}
	fft := dsp.NewRealFFT(fftSize)

	db := &Database{
		sampleRate:       opts.SampleRate,
		irLength:         irLen,
		fft:              fft,
		fftSize:          fftSize,
		gainDB:           opts.VolumeGainDB,
		normalization:    opts.Normalization,
		phase:            opts.Phase,
		headRadiusMeters: opts.HeadRadiusMeters,
	}

	db.records = make([]record, len(directions))
	for i, d := range directions {
		db.records[i] = record{
			dir:   d.normalized(),
			left:  append([]float64(nil), left[i]...),
			right: append([]float64(nil), right[i]...),
		}
	}

	if db.normalization == NormalizationRMS {
		db.normalizeRMS()
	}
	db.applyGain()

	for i := range db.records {
		db.rebuildSpectrumAndPeak(&db.records[i])
	}

	db.proj = stereographicProject(directions)
	db.tris = delaunay(db.proj)

	return db, nil
}

func (db *Database) normalizeRMS() {
	var sum, count float64
	for _, r := range db.records {
		for _, s := range r.left {
			sum += s * s
			count++
		}
		for _, s := range r.right {
			sum += s * s
			count++
		}
	}
	if count == 0 {
		return
	}
	target := math.Sqrt(sum / count)
	if target < 1e-12 {
		return
	}
	for i := range db.records {
		r := &db.records[i]
		var rs float64
		for _, s := range r.left {
			rs += s * s
		}
		for _, s := range r.right {
			rs += s * s
		}
		rms := math.Sqrt(rs / float64(len(r.left)+len(r.right)))
		if rms < 1e-12 {
			continue
		}
		scale := target / rms
		for i := range r.left {
			r.left[i] *= scale
		}
		for i := range r.right {
			r.right[i] *= scale
		}
	}
}

func (db *Database) applyGain() {
	if db.gainDB == 0 {
		return
	}
	g := math.Pow(10, db.gainDB/20)
	for i := range db.records {
		r := &db.records[i]
		for j := range r.left {
			r.left[j] *= g
		}
		for j := range r.right {
			r.right[j] *= g
		}
	}
}

func (db *Database) rebuildSpectrumAndPeak(r *record) {
	scratchL := make([]float64, db.fftSize)
	scratchR := make([]float64, db.fftSize)
	copy(scratchL, r.left)
	copy(scratchR, r.right)
	r.leftFFT = db.fft.Forward(nil, scratchL)
	r.rightFFT = db.fft.Forward(nil, scratchR)
	r.peakDelayLeft = peakIndex(r.left)
	r.peakDelayRight = peakIndex(r.right)
}

func peakIndex(samples []float64) int {
	best := 0
	bestVal := math.Abs(samples[0])
	for i, s := range samples {
		if a := math.Abs(s); a > bestVal {
			bestVal = a
			best = i
		}
	}
	return best
}

// SampleRate returns the sample rate the database's IRs were
// constructed for.
func (db *Database) SampleRate() int { return db.sampleRate }

// IRLength returns the length, in samples, of each ear's impulse
// response.
func (db *Database) IRLength() int { return db.irLength }

// NumDirections returns the number of measurement directions.
func (db *Database) NumDirections() int { return len(db.records) }

// SampleDirection returns the i-th measurement direction, for callers
// that need to iterate the database's raw grid (e.g. projecting HRIRs
// onto an SH basis via quadrature).
func (db *Database) SampleDirection(i int) Direction { return db.records[i].dir }
