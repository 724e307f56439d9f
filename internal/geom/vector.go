// Package geom provides the vector, ray, triangle-mesh, and BVH scene
// types the reflection and pathing simulators trace rays against.
//
// Vector arithmetic is built on github.com/golang/geo's r3.Vector rather
// than a hand-rolled Vector3, following the rest of the retrieval pack's
// use of golang/geo for 3-D geometry.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
)

// Vector3 is a point or direction in world space.
type Vector3 = r3.Vector

// Zero is the zero vector.
var Zero = Vector3{X: 0, Y: 0, Z: 0}

// NearlyZeroLength is the threshold below which a direction vector is
// treated as degenerate (matches the reference's kNearlyZero guard used
// before normalizing a possibly-zero source/listener direction).
const NearlyZeroLength = 1e-9

// NormalizeOrZero returns v normalized, or Zero if v's length is below
// NearlyZeroLength. Several effects (ambisonics encode, panning, binaural)
// fall back to the zero vector rather than propagating a NaN when a host
// passes in a degenerate direction.
func NormalizeOrZero(v Vector3) Vector3 {
	n := v.Norm()
	if n < NearlyZeroLength {
		return Zero
	}
	return v.Mul(1.0 / n)
}

// Matrix4 is a 4x4 row-major affine transform, used by InstancedMesh to
// place a sub-scene in its parent's coordinate space.
type Matrix4 [4][4]float64

// Identity4 returns the identity transform.
func Identity4() Matrix4 {
	var m Matrix4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// TransformPoint applies m to a point (implicit w=1).
func (m Matrix4) TransformPoint(p Vector3) Vector3 {
	return Vector3{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// TransformDirection applies only the linear part of m to a direction.
func (m Matrix4) TransformDirection(d Vector3) Vector3 {
	return Vector3{
		X: m[0][0]*d.X + m[0][1]*d.Y + m[0][2]*d.Z,
		Y: m[1][0]*d.X + m[1][1]*d.Y + m[1][2]*d.Z,
		Z: m[2][0]*d.X + m[2][1]*d.Y + m[2][2]*d.Z,
	}
}

// Inverse returns the inverse of an affine transform built only from
// rotation, uniform/non-uniform scale, and translation (no projective
// part), which is all InstancedMesh ever carries. It is computed by
// Gauss-Jordan elimination on the augmented 4x4 matrix.
func (m Matrix4) Inverse() Matrix4 {
	a := m
	var inv Matrix4 = Identity4()

	for col := 0; col < 4; col++ {
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for r := col + 1; r < 4; r++ {
			if v := math.Abs(a[r][col]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			inv[col], inv[pivot] = inv[pivot], inv[col]
		}
		d := a[col][col]
		if d == 0 {
			continue
		}
		for k := 0; k < 4; k++ {
			a[col][k] /= d
			inv[col][k] /= d
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			for k := 0; k < 4; k++ {
				a[r][k] -= f * a[col][k]
				inv[r][k] -= f * inv[col][k]
			}
		}
	}
	return inv
}

// Mul composes two transforms: (m.Mul(n)).TransformPoint(p) == m.TransformPoint(n.TransformPoint(p)).
func (m Matrix4) Mul(n Matrix4) Matrix4 {
	var out Matrix4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i][k] * n[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}
