package geom

import (
	"math"
	"sort"
)

// aabb is an axis-aligned bounding box.
type aabb struct {
	min, max Vector3
}

func emptyAABB() aabb {
	inf := math.Inf(1)
	return aabb{min: Vector3{X: inf, Y: inf, Z: inf}, max: Vector3{X: -inf, Y: -inf, Z: -inf}}
}

func (b aabb) extend(p Vector3) aabb {
	return aabb{
		min: Vector3{X: math.Min(b.min.X, p.X), Y: math.Min(b.min.Y, p.Y), Z: math.Min(b.min.Z, p.Z)},
		max: Vector3{X: math.Max(b.max.X, p.X), Y: math.Max(b.max.Y, p.Y), Z: math.Max(b.max.Z, p.Z)},
	}
}

func (b aabb) union(o aabb) aabb {
	return b.extend(o.min).extend(o.max)
}

func (b aabb) centroid() Vector3 {
	return b.min.Add(b.max).Mul(0.5)
}

// intersects reports whether ray overlaps the box anywhere within
// [tMin, tMax]; it does not return the overlap interval itself.
func (b aabb) intersects(ray Ray, tMin, tMax float64) (ok bool) {
	tNear, tFar := tMin, tMax
	dir := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}
	org := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	bmin := [3]float64{b.min.X, b.min.Y, b.min.Z}
	bmax := [3]float64{b.max.X, b.max.Y, b.max.Z}

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if org[axis] < bmin[axis] || org[axis] > bmax[axis] {
				return false
			}
			continue
		}
		invD := 1.0 / dir[axis]
		t0 := (bmin[axis] - org[axis]) * invD
		t1 := (bmax[axis] - org[axis]) * invD
		if invD < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return false
		}
	}
	return true
}

// bvhNode is either a leaf (triStart/triEnd index into BVH.leafTris) or
// an interior node (left/right index into BVH.nodes).
type bvhNode struct {
	box              aabb
	left, right      int32 // node indices, -1 if leaf
	triStart, triEnd int32 // leaf triangle range in leafTris, when left == -1
}

// BVH is a median-split bounding volume hierarchy over a mesh's triangle
// centroids, with an optional surface-area-heuristic split (see
// BuildBVHOptions). Leaf triangles store their index into the owning
// mesh for fast ray-triangle tests.
type BVH struct {
	mesh     *StaticMesh
	nodes    []bvhNode
	leafTris []int32 // permutation of triangle indices
}

// BuildBVHOptions configures construction. LeafSize caps the number of
// triangles per leaf; UseSAH switches the split heuristic from median
// split (fast to build) to surface-area heuristic (slower to build,
// tighter tree).
type BuildBVHOptions struct {
	LeafSize int
	UseSAH   bool
}

// DefaultBuildOptions returns the median-split, 4-triangle-leaf defaults.
func DefaultBuildOptions() BuildBVHOptions {
	return BuildBVHOptions{LeafSize: 4, UseSAH: false}
}

// BuildBVH builds a BVH over mesh using the default options.
func BuildBVH(mesh *StaticMesh) *BVH {
	return BuildBVHWithOptions(mesh, DefaultBuildOptions())
}

// BuildBVHWithOptions builds a BVH over mesh's triangles.
func BuildBVHWithOptions(mesh *StaticMesh, opts BuildBVHOptions) *BVH {
	n := mesh.TriangleCount()
	b := &BVH{mesh: mesh, leafTris: make([]int32, n)}
	boxes := make([]aabb, n)
	centroids := make([]Vector3, n)
	for i := 0; i < n; i++ {
		b.leafTris[i] = int32(i)
		v0, v1, v2 := mesh.Triangle(i)
		box := emptyAABB().extend(v0).extend(v1).extend(v2)
		boxes[i] = box
		centroids[i] = box.centroid()
	}
	if opts.LeafSize <= 0 {
		opts.LeafSize = 4
	}
	if n == 0 {
		return b
	}
	b.nodes = make([]bvhNode, 0, 2*n)
	b.build(boxes, centroids, 0, int32(n), opts)
	return b
}

// build recursively partitions leafTris[start:end] by the longest axis of
// their bounding box's centroid extent, splitting at the median centroid
// (or, with UseSAH, at the split minimizing the surface-area heuristic
// cost among a handful of candidate planes).
func (b *BVH) build(boxes []aabb, centroids []Vector3, start, end int32, opts BuildBVHOptions) int32 {
	nodeBox := emptyAABB()
	for i := start; i < end; i++ {
		nodeBox = nodeBox.union(boxes[b.leafTris[i]])
	}

	nodeIdx := int32(len(b.nodes))
	b.nodes = append(b.nodes, bvhNode{box: nodeBox})

	if end-start <= int32(opts.LeafSize) {
		b.nodes[nodeIdx].left = -1
		b.nodes[nodeIdx].triStart = start
		b.nodes[nodeIdx].triEnd = end
		return nodeIdx
	}

	centroidBox := emptyAABB()
	for i := start; i < end; i++ {
		centroidBox = centroidBox.extend(centroids[b.leafTris[i]])
	}
	extent := centroidBox.max.Sub(centroidBox.min)
	axis := 0
	if extent.Y > extent.X {
		axis = 1
	}
	if extent.Z >= extent.X && extent.Z >= extent.Y {
		axis = 2
	}

	slice := b.leafTris[start:end]
	var mid int32
	if opts.UseSAH {
		mid = sahSplit(slice, boxes, centroids, axis) + start
	} else {
		sort.Slice(slice, func(i, j int) bool {
			return axisOf(centroids[slice[i]], axis) < axisOf(centroids[slice[j]], axis)
		})
		mid = start + (end-start)/2
	}
	if mid == start || mid == end {
		mid = start + (end-start)/2
	}

	left := b.build(boxes, centroids, start, mid, opts)
	right := b.build(boxes, centroids, mid, end, opts)
	b.nodes[nodeIdx].left = left
	b.nodes[nodeIdx].right = right
	return nodeIdx
}

func axisOf(v Vector3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// sahSplit picks among a fixed set of candidate planes along axis the one
// minimizing surface-area-heuristic cost, and partitions slice in place
// (Hoare-style) around it, returning the split offset relative to slice's
// start.
func sahSplit(slice []int32, boxes []aabb, centroids []Vector3, axis int) int32 {
	const buckets = 12
	if len(slice) < 2 {
		return int32(len(slice) / 2)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, tri := range slice {
		c := axisOf(centroids[tri], axis)
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	if hi <= lo {
		return int32(len(slice) / 2)
	}

	type bucket struct {
		box   aabb
		count int
	}
	bs := make([]bucket, buckets)
	for i := range bs {
		bs[i].box = emptyAABB()
	}
	bucketOf := func(tri int32) int {
		t := (axisOf(centroids[tri], axis) - lo) / (hi - lo)
		idx := int(t * buckets)
		if idx >= buckets {
			idx = buckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		return idx
	}
	for _, tri := range slice {
		bi := bucketOf(tri)
		bs[bi].box = bs[bi].box.union(boxes[tri])
		bs[bi].count++
	}

	bestCost := math.Inf(1)
	bestSplit := buckets / 2
	for split := 1; split < buckets; split++ {
		var leftBox, rightBox = emptyAABB(), emptyAABB()
		var leftCount, rightCount int
		for i := 0; i < split; i++ {
			leftBox = leftBox.union(bs[i].box)
			leftCount += bs[i].count
		}
		for i := split; i < buckets; i++ {
			rightBox = rightBox.union(bs[i].box)
			rightCount += bs[i].count
		}
		if leftCount == 0 || rightCount == 0 {
			continue
		}
		cost := surfaceArea(leftBox)*float64(leftCount) + surfaceArea(rightBox)*float64(rightCount)
		if cost < bestCost {
			bestCost = cost
			bestSplit = split
		}
	}

	i, j := 0, len(slice)-1
	for i <= j {
		for i <= j && bucketOf(slice[i]) < bestSplit {
			i++
		}
		for i <= j && bucketOf(slice[j]) >= bestSplit {
			j--
		}
		if i < j {
			slice[i], slice[j] = slice[j], slice[i]
			i++
			j--
		}
	}
	if i == 0 || i == len(slice) {
		return int32(len(slice) / 2)
	}
	return int32(i)
}

func surfaceArea(b aabb) float64 {
	d := b.max.Sub(b.min)
	if d.X < 0 {
		return 0
	}
	return 2 * (d.X*d.Y + d.Y*d.Z + d.Z*d.X)
}

// ClosestHit walks the BVH front-to-back, returning the nearest
// intersection in [tMin, tMax].
func (b *BVH) ClosestHit(ray Ray, tMin, tMax float64) Hit {
	if len(b.nodes) == 0 {
		return Hit{}
	}
	best := Hit{}
	bestT := tMax
	var visit func(nodeIdx int32)
	visit = func(nodeIdx int32) {
		node := &b.nodes[nodeIdx]
		if !node.box.intersects(ray, tMin, bestT) {
			return
		}
		if node.left == -1 {
			for i := node.triStart; i < node.triEnd; i++ {
				tri := b.leafTris[i]
				v0, v1, v2 := b.mesh.Triangle(int(tri))
				if t, ok := rayTriangle(ray, v0, v1, v2, tMin, bestT); ok {
					bestT = t
					best = Hit{
						T:        t,
						Normal:   triangleNormal(v0, v1, v2),
						Material: b.mesh.MaterialAt(int(tri)),
						Valid:    true,
					}
				}
			}
			return
		}
		first, second := node.left, node.right
		if b.nodes[second].box.centroid().Sub(ray.Origin).Dot(ray.Direction) <
			b.nodes[first].box.centroid().Sub(ray.Origin).Dot(ray.Direction) {
			first, second = second, first
		}
		visit(first)
		visit(second)
	}
	visit(0)
	return best
}

// AnyHit returns true as soon as any triangle in [tMin, tMax] is hit,
// without searching for the closest one.
func (b *BVH) AnyHit(ray Ray, tMin, tMax float64) bool {
	if len(b.nodes) == 0 {
		return false
	}
	var visit func(nodeIdx int32) bool
	visit = func(nodeIdx int32) bool {
		node := &b.nodes[nodeIdx]
		if !node.box.intersects(ray, tMin, tMax) {
			return false
		}
		if node.left == -1 {
			for i := node.triStart; i < node.triEnd; i++ {
				tri := b.leafTris[i]
				v0, v1, v2 := b.mesh.Triangle(int(tri))
				if _, ok := rayTriangle(ray, v0, v1, v2, tMin, tMax); ok {
					return true
				}
			}
			return false
		}
		return visit(node.left) || visit(node.right)
	}
	return visit(0)
}
