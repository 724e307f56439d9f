package hrtf

import (
	"math"
)

// Pair is a resolved, query-direction-specific HRIR: one impulse
// response per ear, already time-aligned for whatever phase model the
// database was built with.
type Pair struct {
	Left, Right []float64
}

// Lookup resolves the interpolated HRIR pair for a query direction,
// blending the two or three nearest measurement directions found in the
// precomputed triangulation (falling back to nearest-neighbor if the
// query projects outside every triangle, which can happen right at the
// stereographic projection's antipodal seam).
func (db *Database) Lookup(query Direction) Pair {
	q := query.normalized()
	weights, indices := db.interpolationWeights(q)

	leftSpec := make([]complex128, len(db.records[0].leftFFT))
	rightSpec := make([]complex128, len(db.records[0].rightFFT))
	for i, idx := range indices {
		w := weights[i]
		if w == 0 {
			continue
		}
		r := &db.records[idx]
		for k := range leftSpec {
			leftSpec[k] += complex(w, 0) * r.leftFFT[k]
			rightSpec[k] += complex(w, 0) * r.rightFFT[k]
		}
	}

	correctDCAndNyquist(leftSpec)
	correctDCAndNyquist(rightSpec)

	left := db.fft.InverseNormalized(nil, leftSpec)[:db.irLength]
	right := db.fft.InverseNormalized(nil, rightSpec)[:db.irLength]
	leftOut := append([]float64(nil), left...)
	rightOut := append([]float64(nil), right...)

	if db.phase == PhaseSphereITD {
		db.applySphereITD(q, leftOut, rightOut)
	}

	return Pair{Left: leftOut, Right: rightOut}
}

// LookupNearest resolves the HRIR pair of the single measurement
// direction nearest the query, with no interpolation — the cheaper mode
// a host can select over the default barycentric blend.
func (db *Database) LookupNearest(query Direction) Pair {
	q := query.normalized()
	idx := db.nearestIndex(q)
	r := &db.records[idx]
	return Pair{
		Left:  append([]float64(nil), r.left...),
		Right: append([]float64(nil), r.right...),
	}
}

func (db *Database) nearestIndex(q Direction) int {
	best := 0
	bestDot := math.Inf(-1)
	for i, r := range db.records {
		if d := dot(r.dir, q); d > bestDot {
			bestDot = d
			best = i
		}
	}
	return best
}

// interpolationWeights returns up to 3 (index, weight) pairs summing to
// 1 for barycentric blending, or a single weight-1 entry when falling
// back to nearest-neighbor.
func (db *Database) interpolationWeights(q Direction) ([]float64, []int) {
	p := projectQuery(db, q)

	for _, tr := range db.tris {
		u, v, w, inside := barycentric(db.proj[tr.a], db.proj[tr.b], db.proj[tr.c], p)
		if inside {
			return []float64{u, v, w}, []int{tr.a, tr.b, tr.c}
		}
	}

	// No containing triangle (projection seam, or a database too sparse
	// to triangulate around the query): fall back to nearest neighbor by
	// angular distance on the sphere, which is always well-defined.
	return []float64{1}, []int{db.nearestIndex(q)}
}

// projectQuery stereographically projects a single query direction
// using the same pole the database's measurement directions were
// projected with, recovered implicitly by re-deriving it from the
// stored projections is not possible, so the query is projected afresh
// against the directions list the records already carry.
func projectQuery(db *Database, q Direction) point2 {
	dirs := make([]Direction, len(db.records))
	for i, r := range db.records {
		dirs[i] = r.dir
	}
	all := stereographicProject(append(dirs, q))
	return all[len(all)-1]
}

// applySphereITD adds a rigid-sphere interaural time delay on top of the
// interpolated pair, using the Woodworth formula: for a head of radius a
// and a source at lateral angle theta from the median plane, the ear
// facing away from the source is delayed by a/c*(theta + sin(theta)),
// where c is the speed of sound; the near ear is left as it is.
func (db *Database) applySphereITD(q Direction, left, right []float64) {
	const speedOfSound = 343.0
	// Interaural axis is +X (to the right); theta = asin(x) is the angle
	// between the source direction and the median (Y/Z) plane.
	theta := math.Asin(clamp(q.X, -1, 1))
	delaySeconds := (db.headRadiusMeters / speedOfSound) * (theta + math.Sin(theta))
	delaySamples := delaySeconds * float64(db.sampleRate)

	if delaySamples > 0 {
		fractionalDelay(left, delaySamples)
	} else if delaySamples < 0 {
		fractionalDelay(right, -delaySamples)
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// fractionalDelay shifts buf later in time by delaySamples (which may be
// fractional) via linear interpolation, in place.
func fractionalDelay(buf []float64, delaySamples float64) {
	whole := int(delaySamples)
	frac := delaySamples - float64(whole)
	n := len(buf)
	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		srcIdx := i - whole
		var a, b float64
		if srcIdx >= 0 && srcIdx < n {
			a = buf[srcIdx]
		}
		if srcIdx-1 >= 0 && srcIdx-1 < n {
			b = buf[srcIdx-1]
		}
		out[i] = a*(1-frac) + b*frac
	}
	copy(buf, out)
}

// correctDCAndNyquist zeroes the imaginary residue the real FFT
// sometimes leaves on the DC and Nyquist bins after complex-weighted
// blending, which would otherwise show up as a small constant offset or
// a full-rate alias in the interpolated time-domain IR.
func correctDCAndNyquist(spec []complex128) {
	if len(spec) == 0 {
		return
	}
	spec[0] = complex(real(spec[0]), 0)
	last := len(spec) - 1
	spec[last] = complex(real(spec[last]), 0)
}
