package dsp

import "math"

// SH evaluates, projects, and rotates real spherical harmonics up to a
// fixed maximum order, using ACN channel ordering with N3D normalization.

// NumCoeffsForOrder returns (l+1)^2, the number of SH coefficients for
// maximum degree l.
func NumCoeffsForOrder(order int) int {
	return (order + 1) * (order + 1)
}

// ACNIndex returns the ACN channel index for degree l, order m (-l <= m <= l).
func ACNIndex(l, m int) int {
	return l*l + l + m
}

// Direction is a unit 3-vector, kept local to dsp to avoid a dependency
// on the geom package (SH evaluation is a pure numerical routine shared
// by effects that never otherwise touch scene geometry).
type Direction struct{ X, Y, Z float64 }

// Evaluate computes the real, N3D-normalized spherical harmonic Y(l,m) at
// direction d. d need not be normalized to exactly unit length; Evaluate
// normalizes defensively to stay well-defined for the Vector3.kZero
// fallback used when an effect's source direction degenerates.
func Evaluate(l, m int, d Direction) float64 {
	n := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
	if n < 1e-9 {
		// Matches the reference: the zero vector evaluates to the 0th
		// order (DC) basis function and zero everywhere else, so
		// encoding with a degenerate direction degrades to a flat,
		// non-directional signal rather than NaN.
		if l == 0 {
			return legendreSH(0, 0, 1)
		}
		return 0
	}
	x, y, z := d.X/n, d.Y/n, d.Z/n

	switch {
	case m > 0:
		return math.Sqrt2 * kVal(l, m) * legendreP(l, m, z) * cosMPhi(m, x, y, n2(x, y))
	case m < 0:
		return math.Sqrt2 * kVal(l, -m) * legendreP(l, -m, z) * sinMPhi(-m, x, y, n2(x, y))
	default:
		return kVal(l, 0) * legendreP(l, 0, z)
	}
}

func n2(x, y float64) float64 { return math.Hypot(x, y) }

// legendreSH is a convenience wrapper used only for the degenerate-vector
// 0th order case above (P_0^0(1) == 1, k(0,0) == sqrt(1/4pi)).
func legendreSH(l, m int, z float64) float64 {
	return kVal(l, m) * legendreP(l, m, z)
}

// cosMPhi/sinMPhi compute cos(m*phi) and sin(m*phi) from the Cartesian
// projection onto the xy-plane via the Chebyshev recurrence, avoiding a
// call to atan2 per coefficient.
func cosMPhi(m int, x, y, rho float64) float64 {
	if rho < 1e-12 {
		return 0
	}
	cosPhi, sinPhi := x/rho, y/rho
	c, s := 1.0, 0.0
	for i := 0; i < m; i++ {
		c, s = c*cosPhi-s*sinPhi, s*cosPhi+c*sinPhi
	}
	return c
}

func sinMPhi(m int, x, y, rho float64) float64 {
	if rho < 1e-12 {
		return 0
	}
	cosPhi, sinPhi := x/rho, y/rho
	c, s := 1.0, 0.0
	for i := 0; i < m; i++ {
		c, s = c*cosPhi-s*sinPhi, s*cosPhi+c*sinPhi
	}
	return s
}

// kVal returns the normalization constant for associated Legendre
// degree l, order m>=0:
//
//	k(l,m) = sqrt( (2l+1)/(4pi) * (l-m)! / (l+m)! )
func kVal(l, m int) float64 {
	return math.Sqrt(float64(2*l+1) / (4 * math.Pi) * factorialRatio(l-m, l+m))
}

// factorialRatio returns (a)! / (b)! for a <= b without overflowing for
// the small orders (l <= ~8) this package supports, by cancelling the
// common factorial prefix.
func factorialRatio(a, b int) float64 {
	if a == b {
		return 1
	}
	result := 1.0
	for i := a + 1; i <= b; i++ {
		result /= float64(i)
	}
	return result
}

// legendreP evaluates the associated Legendre polynomial P_l^m(z) via
// the standard three-term recurrences, for m >= 0.
func legendreP(l, m int, z float64) float64 {
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt(math.Max(0, (1-z)*(1+z)))
		fact := 1.0
		for i := 1; i <= m; i++ {
			pmm *= -fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}
	pmm1 := z * float64(2*m+1) * pmm
	if l == m+1 {
		return pmm1
	}
	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (z*float64(2*ll-1)*pmm1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm = pmm1
		pmm1 = pll
	}
	return pll
}

// Project accumulates the SH projection Y(l,m,d)*scale into dst[ACNIndex(l,m)]
// for every (l,m) up to order, used when encoding a sample onto the SH
// basis (AmbisonicsEncodeEffect) or accumulating an energy-field sample's
// directional weight (ReflectionSimulator).
func Project(dst []float64, order int, d Direction, scale float64) {
	for l := 0; l <= order; l++ {
		for m := -l; m <= l; m++ {
			dst[ACNIndex(l, m)] += Evaluate(l, m, d) * scale
		}
	}
}

// RotationMatrix3 is a row-major 3x3 rotation matrix, decoupled from the
// geom package's Matrix4 so this file has no geometry dependency.
type RotationMatrix3 [3][3]float64

// BandRotations holds, for each degree l in [0, maxOrder], the
// (2l+1)x(2l+1) rotation matrix that rotates that band's SH coefficients,
// built by the Ivanic-Ruedenberg recursion from a 3x3 rotation matrix.
type BandRotations struct {
	bands [][][]float64 // bands[l][m+l][n+l]
}

// At returns the rotation matrix entry for band l mapping input order n
// to output order m.
func (r *BandRotations) At(l, m, n int) float64 {
	return r.bands[l][m+l][n+l]
}

// BuildBandRotations computes band rotation matrices for degrees 0..maxOrder
// from 3x3 rotation rot, using the Ivanic-Ruedenberg recursion: each
// band's (2l+1)^2 matrix is derived from the band-1 matrix (itself built
// directly from rot) and the band-(l-1) matrix.
func BuildBandRotations(rot RotationMatrix3, maxOrder int) *BandRotations {
	br := &BandRotations{bands: make([][][]float64, maxOrder+1)}

	// Band 0 is the trivial 1x1 identity: the DC term is rotation
	// invariant.
	br.bands[0] = [][]float64{{1}}
	if maxOrder == 0 {
		return br
	}

	// Band 1 operates on ACN order (y, z, x) in that row/column order,
	// which is the standard mapping between Cartesian rotation and
	// first-order real SH.
	m1 := [][]float64{
		{rot[1][1], -rot[1][2], rot[1][0]},
		{-rot[2][1], rot[2][2], -rot[2][0]},
		{rot[0][1], -rot[0][2], rot[0][0]},
	}
	br.bands[1] = m1

	for l := 2; l <= maxOrder; l++ {
		br.bands[l] = buildBand(br.bands, l)
	}
	return br
}

func buildBand(bands [][][]float64, l int) [][]float64 {
	size := 2*l + 1
	out := make([][]float64, size)
	for i := range out {
		out[i] = make([]float64, size)
	}

	get := func(bandIdx, m, n int) float64 {
		band := bands[bandIdx]
		half := (len(band) - 1) / 2
		return band[m+half][n+half]
	}

	p := func(i, a, b int) float64 {
		switch {
		case b == l:
			return get(1, i, 1)*get(l-1, a, l-1) - get(1, i, -1)*get(l-1, a, -(l-1))
		case b == -l:
			return get(1, i, 1)*get(l-1, a, -(l-1)) + get(1, i, -1)*get(l-1, a, l-1)
		default:
			return get(1, i, 0) * get(l-1, a, b)
		}
	}

	for m := -l; m <= l; m++ {
		for n := -l; n <= l; n++ {
			var u, v, w, uVal, vVal, wVal float64
			d := 0.0
			if m == 0 {
				d = 1
			}

			denom := func(nAbs int) float64 {
				if nAbs == l {
					return float64(2*l) * float64(2*l-1)
				}
				return float64((l+nAbs)*(l-nAbs))
			}

			u = math.Sqrt(float64((l+m)*(l-m)) / denom(absInt(n)))
			if absInt(n) < l {
				v = 0.5 * math.Sqrt(float64((1+d))*float64((l+absInt(m)-1)*(l+absInt(m)))/denom(absInt(n))) * (1 - 2*d)
			} else {
				v = 0.5 * math.Sqrt(float64((1+d))*float64((l+absInt(m)-1)*(l+absInt(m)))/denom(absInt(n))) * (1 - 2*d)
			}
			w = -0.5 * math.Sqrt(float64((l-absInt(m)-1)*(l-absInt(m)))/denom(absInt(n))) * (1 - d)

			if u != 0 {
				uVal = uTerm(p, m, n, l)
			}
			if v != 0 {
				vVal = vTerm(p, m, n, l)
			}
			if w != 0 {
				wVal = wTerm(p, m, n, l)
			}

			out[m+l][n+l] = u*uVal + v*vVal + w*wVal
		}
	}
	return out
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func uTerm(p func(i, a, b int) float64, m, n, l int) float64 {
	return p(0, m, n)
}

func vTerm(p func(i, a, b int) float64, m, n, l int) float64 {
	switch {
	case m == 0:
		return p(1, 1, n) + p(-1, -1, n)
	case m > 0:
		d := 0.0
		if m == 1 {
			d = 1
		}
		return p(1, m-1, n)*math.Sqrt(1+d) - p(-1, -(m-1), n)*(1-d)
	default:
		d := 0.0
		if m == -1 {
			d = 1
		}
		return p(1, m+1, n)*(1-d) + p(-1, -(m+1), n)*math.Sqrt(1+d)
	}
}

func wTerm(p func(i, a, b int) float64, m, n, l int) float64 {
	switch {
	case m > 0:
		return p(1, m+1, n) + p(-1, -(m+1), n)
	default:
		return p(1, m-1, n) - p(-1, -(m-1), n)
	}
}

// RotateCoeffs applies band rotations to an SH-domain channel buffer
// src[ACNIndex(l,m)] -> dst[ACNIndex(l,m)], for degrees 0..maxOrder.
func RotateCoeffs(dst, src []float64, br *BandRotations, maxOrder int) {
	for l := 0; l <= maxOrder; l++ {
		for m := -l; m <= l; m++ {
			var sum float64
			for n := -l; n <= l; n++ {
				sum += br.At(l, m, n) * src[ACNIndex(l, n)]
			}
			dst[ACNIndex(l, m)] = sum
		}
	}
}
