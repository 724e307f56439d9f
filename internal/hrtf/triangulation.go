package hrtf

import "math"

// point2 is a 2-D stereographic projection of a measurement direction.
type point2 struct{ x, y float64 }

// triangle is a triple of vertex indices into the projected point set.
type triangle struct{ a, b, c int }

// stereographicProject projects unit directions onto the plane
// perpendicular to a projection pole, giving a 2-D point set whose
// Delaunay triangulation approximates the spherical Delaunay
// triangulation needed for barycentric HRTF interpolation.
func stereographicProject(dirs []Direction) []point2 {
	// Pick the projection pole among +-Y and +-X as the candidate whose
	// largest dot-product with any data direction is smallest (i.e. the
	// one farthest from its nearest point), so no measurement direction
	// sits exactly at the pole (which would be a projective singularity).
	pole := Direction{X: 0, Y: -1, Z: 0}
	best := math.Inf(1)
	for _, cand := range []Direction{{X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0}} {
		var maxDot float64 = math.Inf(-1)
		for _, d := range dirs {
			dot := cand.X*d.X + cand.Y*d.Y + cand.Z*d.Z
			if dot > maxDot {
				maxDot = dot
			}
		}
		if maxDot < best {
			best = maxDot
			pole = cand
		}
	}

	pts := make([]point2, len(dirs))
	for i, d := range dirs {
		denom := 1 - (d.X*pole.X + d.Y*pole.Y + d.Z*pole.Z)
		if denom < 1e-6 {
			denom = 1e-6
		}
		// Build an orthonormal (u, v) basis perpendicular to pole to
		// project into.
		u, v := orthonormalPair(pole)
		pu := d.X*u.X + d.Y*u.Y + d.Z*u.Z
		pv := d.X*v.X + d.Y*v.Y + d.Z*v.Z
		pts[i] = point2{x: pu / denom, y: pv / denom}
	}
	return pts
}

func orthonormalPair(n Direction) (Direction, Direction) {
	var a Direction
	if math.Abs(n.X) < 0.9 {
		a = Direction{X: 1, Y: 0, Z: 0}
	} else {
		a = Direction{X: 0, Y: 1, Z: 0}
	}
	// u = normalize(a - (a.n)n)
	dot := a.X*n.X + a.Y*n.Y + a.Z*n.Z
	u := Direction{X: a.X - dot*n.X, Y: a.Y - dot*n.Y, Z: a.Z - dot*n.Z}
	ul := math.Sqrt(u.X*u.X + u.Y*u.Y + u.Z*u.Z)
	u = Direction{X: u.X / ul, Y: u.Y / ul, Z: u.Z / ul}
	// v = n x u
	v := Direction{X: n.Y*u.Z - n.Z*u.Y, Y: n.Z*u.X - n.X*u.Z, Z: n.X*u.Y - n.Y*u.X}
	return u, v
}

// delaunay computes a 2-D Delaunay triangulation of pts via the
// Bowyer-Watson incremental algorithm.
func delaunay(pts []point2) []triangle {
	n := len(pts)
	if n < 3 {
		return nil
	}

	// Super-triangle enclosing all points.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, minY = math.Min(minX, p.x), math.Min(minY, p.y)
		maxX, maxY = math.Max(maxX, p.x), math.Max(maxY, p.y)
	}
	dx, dy := maxX-minX, maxY-minY
	deltaMax := math.Max(dx, dy) * 20
	if deltaMax == 0 {
		deltaMax = 20
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	work := make([]point2, n+3)
	copy(work, pts)
	work[n] = point2{midX - deltaMax, midY - deltaMax}
	work[n+1] = point2{midX, midY + deltaMax}
	work[n+2] = point2{midX + deltaMax, midY - deltaMax}

	tris := []triangle{{n, n + 1, n + 2}}

	for i := 0; i < n; i++ {
		var bad []int
		for ti, tr := range tris {
			if inCircumcircle(work, tr, work[i]) {
				bad = append(bad, ti)
			}
		}

		type edge struct{ a, b int }
		edgeCount := map[edge]int{}
		addEdge := func(a, b int) {
			if a > b {
				a, b = b, a
			}
			edgeCount[edge{a, b}]++
		}
		for _, ti := range bad {
			tr := tris[ti]
			addEdge(tr.a, tr.b)
			addEdge(tr.b, tr.c)
			addEdge(tr.c, tr.a)
		}

		keep := make([]triangle, 0, len(tris))
		badSet := map[int]bool{}
		for _, ti := range bad {
			badSet[ti] = true
		}
		for ti, tr := range tris {
			if !badSet[ti] {
				keep = append(keep, tr)
			}
		}
		tris = keep

		for e, count := range edgeCount {
			if count == 1 {
				tris = append(tris, triangle{e.a, e.b, i})
			}
		}
	}

	out := make([]triangle, 0, len(tris))
	for _, tr := range tris {
		if tr.a < n && tr.b < n && tr.c < n {
			out = append(out, tr)
		}
	}
	return out
}

func inCircumcircle(pts []point2, tr triangle, p point2) bool {
	ax, ay := pts[tr.a].x-p.x, pts[tr.a].y-p.y
	bx, by := pts[tr.b].x-p.x, pts[tr.b].y-p.y
	cx, cy := pts[tr.c].x-p.x, pts[tr.c].y-p.y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)

	// Orientation-dependent sign: normalize by triangle winding so this
	// works regardless of CW/CCW input order.
	orient := (pts[tr.b].x-pts[tr.a].x)*(pts[tr.c].y-pts[tr.a].y) -
		(pts[tr.c].x-pts[tr.a].x)*(pts[tr.b].y-pts[tr.a].y)
	if orient < 0 {
		det = -det
	}
	return det > 0
}

// barycentric returns the barycentric coordinates of p within triangle
// (a, b, c), and whether p lies inside (all weights in [0,1]).
func barycentric(a, b, c, p point2) (u, v, w float64, inside bool) {
	v0 := point2{b.x - a.x, b.y - a.y}
	v1 := point2{c.x - a.x, c.y - a.y}
	v2 := point2{p.x - a.x, p.y - a.y}
	d00 := v0.x*v0.x + v0.y*v0.y
	d01 := v0.x*v1.x + v0.y*v1.y
	d11 := v1.x*v1.x + v1.y*v1.y
	d20 := v2.x*v0.x + v2.y*v0.y
	d21 := v2.x*v1.x + v2.y*v1.y
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-15 {
		return 0, 0, 0, false
	}
	vv := (d11*d20 - d01*d21) / denom
	ww := (d00*d21 - d01*d20) / denom
	uu := 1 - vv - ww
	const eps = 1e-6
	inside = uu >= -eps && vv >= -eps && ww >= -eps
	return uu, vv, ww, inside
}
