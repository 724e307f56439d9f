package geom

import "math"

// FibonacciSphereSample returns the i-th of n points from a Fibonacci
// lattice on the unit sphere: a low-discrepancy, deterministic
// distribution that gives the reflection simulator's ray tracer identical
// directions for identical (i, n), which bitwise-deterministic simulation
// runs depend on.
func FibonacciSphereSample(i, n int) Vector3 {
	if n <= 1 {
		return Vector3{X: 0, Y: 0, Z: 1}
	}
	const goldenAngle = math.Pi * (3 - 1.6180339887498949) // pi*(3-sqrt(5))
	y := 1 - 2*float64(i)/float64(n-1)
	radius := math.Sqrt(math.Max(0, 1-y*y))
	theta := goldenAngle * float64(i)
	return Vector3{X: math.Cos(theta) * radius, Y: y, Z: math.Sin(theta) * radius}
}

// CosineWeightedHemisphereSample maps the low-discrepancy 2-D point (u, v)
// in [0,1)^2 onto a hemisphere around normal n, weighted by a cosine lobe
// (Lambertian reflection). u, v are expected to come from a deterministic
// per-sample sequence (e.g. a scrambled Halton or Sobol pair) seeded by
// the sample index, preserving single-thread determinism.
func CosineWeightedHemisphereSample(n Vector3, u, v float64) Vector3 {
	r := math.Sqrt(u)
	theta := 2 * math.Pi * v
	x := r * math.Cos(theta)
	y := r * math.Sin(theta)
	z := math.Sqrt(math.Max(0, 1-u))

	t, b := orthonormalBasis(n)
	return t.Mul(x).Add(b.Mul(y)).Add(n.Mul(z))
}

// ReflectSpecular reflects incoming direction d about normal n (both unit
// length); d is the incident direction, travelling toward the surface,
// and the result travels away from it — the usual "reflect the incident
// direction" formula used by rendering code.
func ReflectSpecular(d, n Vector3) Vector3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// orthonormalBasis builds an orthonormal tangent/bitangent pair for unit
// vector n using Duff et al.'s branchless construction.
func orthonormalBasis(n Vector3) (t, b Vector3) {
	sign := math.Copysign(1, n.Z)
	a := -1 / (sign + n.Z)
	c := n.X * n.Y * a
	t = Vector3{X: 1 + sign*n.X*n.X*a, Y: sign * c, Z: -sign * n.X}
	b = Vector3{X: c, Y: sign + n.Y*n.Y*a, Z: -n.Y}
	return t, b
}

// Halton returns the i-th element (1-indexed) of the Halton sequence in
// the given prime base, used to derive deterministic per-ray (u, v) pairs
// from a sample index.
func Halton(i int, base int) float64 {
	f := 1.0
	r := 0.0
	for i > 0 {
		f /= float64(base)
		r += f * float64(i%base)
		i /= base
	}
	return r
}
