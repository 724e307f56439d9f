package simulation

import (
	"math"

	"github.com/spatialaudio/core/internal/dsp"
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/probes"
)

// PathResult is PathSimulator's aggregated output, ready to feed
// effects.PathEffect: three band gains and (order+1)^2 SH coefficients
// encoding the arrival direction.
type PathResult struct {
	EQ            [3]float64
	SH            []float64
	AvgDirection  geom.Vector3
	DistanceRatio float64
}

// PathSimulator finds an acoustic path between a source and listener
// through a baked ProbeBatch path graph at runtime.
type PathSimulator struct {
	batch     *probes.ProbeBatch
	scene     geom.Queryable
	pathingID probes.BakedDataIdentifier
	order     int

	// EnableValidation re-tests each graph edge along the chosen path
	// against the live scene before accepting it.
	EnableValidation bool
	// FindAlternatePaths re-routes around edges validation found
	// blocked, rather than simply failing the lookup.
	FindAlternatePaths bool
	// SimplifyPaths removes intermediate probes whose line of sight to
	// the next-next probe is clear, shortcutting the path.
	SimplifyPaths bool
	// EnablePathsFromAllSourceProbes aggregates over every probe in the
	// source-side neighborhood rather than only the nearest one.
	EnablePathsFromAllSourceProbes bool
}

// NewPathSimulator builds a runtime path simulator reading graph edges
// from batch under pathingID, with live-scene validation against
// scene.
func NewPathSimulator(batch *probes.ProbeBatch, scene geom.Queryable, pathingID probes.BakedDataIdentifier, order int) *PathSimulator {
	return &PathSimulator{batch: batch, scene: scene, pathingID: pathingID, order: order}
}

// graphEdge is an adjacency-list entry: a neighbor node and the
// distance to it.
type graphEdge struct {
	to        int
	distance  float64
	airAbsorb [3]float64
}

func (s *PathSimulator) adjacency() (map[int][]graphEdge, bool) {
	payload, ok := s.batch.Payload(s.pathingID, -1)
	if !ok {
		return nil, false
	}
	graph, ok := payload.(probes.PathGraph)
	if !ok {
		return nil, false
	}

	probeList := s.batch.Probes()
	adj := make(map[int][]graphEdge)
	for _, e := range graph.Edges {
		dist := probeList[e.To].Center().Sub(probeList[e.From].Center()).Norm()
		adj[e.From] = append(adj[e.From], graphEdge{to: e.To, distance: dist, airAbsorb: e.Sound.AirAbsorption})
	}
	return adj, true
}

// dijkstraPath finds the shortest node path from start to goal in adj,
// skipping any edge whose (from, to) pair appears in blocked.
func dijkstraPath(adj map[int][]graphEdge, start, goal int, blocked map[[2]int]bool) []int {
	const inf = math.MaxFloat64
	dist := map[int]float64{start: 0}
	prev := map[int]int{}
	visited := map[int]bool{}

	for {
		u, best := -1, inf
		for node, d := range dist {
			if !visited[node] && d < best {
				u, best = node, d
			}
		}
		if u == -1 {
			break
		}
		if u == goal {
			break
		}
		visited[u] = true
		for _, e := range adj[u] {
			if blocked[[2]int{u, e.to}] {
				continue
			}
			nd := dist[u] + e.distance
			if cur, ok := dist[e.to]; !ok || nd < cur {
				dist[e.to] = nd
				prev[e.to] = u
			}
		}
	}

	if _, ok := dist[goal]; !ok {
		return nil
	}
	var path []int
	for n := goal; ; {
		path = append([]int{n}, path...)
		if n == start {
			break
		}
		p, ok := prev[n]
		if !ok {
			return nil
		}
		n = p
	}
	return path
}

// validatePath re-tests every edge of path against the live scene,
// returning the blocked (from,to) pairs found.
func (s *PathSimulator) validatePath(path []int) map[[2]int]bool {
	blocked := make(map[[2]int]bool)
	probeList := s.batch.Probes()
	for i := 0; i+1 < len(path); i++ {
		a, b := probeList[path[i]].Center(), probeList[path[i+1]].Center()
		toB := b.Sub(a)
		dist := toB.Norm()
		if dist < 1e-9 {
			continue
		}
		dir := toB.Mul(1 / dist)
		if s.scene.AnyHit(geom.Ray{Origin: a, Direction: dir}, 1e-4, dist-1e-4) {
			blocked[[2]int{path[i], path[i+1]}] = true
		}
	}
	return blocked
}

// simplify removes node i+1 from path whenever node i has an
// unobstructed line of sight to node i+2, shortcutting the route.
func (s *PathSimulator) simplify(path []int) []int {
	if len(path) < 3 {
		return path
	}
	probeList := s.batch.Probes()
	out := []int{path[0]}
	i := 0
	for i < len(path)-1 {
		j := i + 1
		for j+1 < len(path) {
			a, b := probeList[path[i]].Center(), probeList[path[j+1]].Center()
			toB := b.Sub(a)
			dist := toB.Norm()
			if dist < 1e-9 {
				break
			}
			dir := toB.Mul(1 / dist)
			if s.scene.AnyHit(geom.Ray{Origin: a, Direction: dir}, 1e-4, dist-1e-4) {
				break
			}
			j++
		}
		out = append(out, path[j])
		i = j
	}
	return out
}

// pathGainAndLength walks path's edges in adj, returning the total
// path length and the per-band linear gain product exp(-sum
// airAbsorb[b]).
func pathGainAndLength(adj map[int][]graphEdge, path []int) (length float64, gain [3]float64) {
	gain = [3]float64{1, 1, 1}
	var sumAbsorb [3]float64
	for i := 0; i+1 < len(path); i++ {
		for _, e := range adj[path[i]] {
			if e.to == path[i+1] {
				length += e.distance
				for b := range sumAbsorb {
					sumAbsorb[b] += e.airAbsorb[b]
				}
				break
			}
		}
	}
	for b := range gain {
		gain[b] = math.Exp(-sumAbsorb[b])
	}
	return length, gain
}

// Simulate finds an acoustic path from source to listener and
// aggregates it into a PathResult. ok is false if no path graph is
// baked or no candidate path connects the two neighborhoods.
func (s *PathSimulator) Simulate(source, listener geom.Vector3) (result PathResult, ok bool) {
	adj, hasGraph := s.adjacency()
	if !hasGraph {
		return PathResult{}, false
	}

	sourceN := s.batch.GetInfluencingProbes(source)
	s.batch.CheckOcclusion(s.scene, source, &sourceN)
	s.batch.CalcWeights(source, &sourceN)

	listenerN := s.batch.GetInfluencingProbes(listener)
	s.batch.CheckOcclusion(s.scene, listener, &listenerN)
	s.batch.CalcWeights(listener, &listenerN)

	sourceIndices, sourceWeights := sourceN.Indices, sourceN.Weights
	if !s.EnablePathsFromAllSourceProbes && len(sourceIndices) > 0 {
		sourceIndices = sourceIndices[:1]
		sourceWeights = []float64{1}
	}

	var shAccum []float64
	var eqAccum [3]float64
	var dirAccum geom.Vector3
	var ratioAccum, totalWeight float64
	probeList := s.batch.Probes()
	numCoeffs := dsp.NumCoeffsForOrder(s.order)
	shAccum = make([]float64, numCoeffs)

	straight := listener.Sub(source).Norm()

	for si, srcIdx := range sourceIndices {
		if si >= len(sourceN.Valid) || !sourceN.Valid[si] {
			continue
		}
		for li, dstIdx := range listenerN.Indices {
			if !listenerN.Valid[li] {
				continue
			}
			w := sourceWeights[si] * listenerN.Weights[li]
			if w <= 0 {
				continue
			}

			path := dijkstraPath(adj, srcIdx, dstIdx, nil)
			if path == nil {
				continue
			}
			if s.EnableValidation {
				if blocked := s.validatePath(path); len(blocked) > 0 {
					if !s.FindAlternatePaths {
						continue
					}
					path = dijkstraPath(adj, srcIdx, dstIdx, blocked)
					if path == nil {
						continue
					}
				}
			}
			if s.SimplifyPaths {
				path = s.simplify(path)
			}

			length, gain := pathGainAndLength(adj, path)
			if length <= 0 {
				continue
			}

			arrival := probeList[dstIdx].Center().Sub(probeList[srcIdx].Center())
			dir := geom.NormalizeOrZero(arrival)

			for b := range eqAccum {
				eqAccum[b] += gain[b] * w
			}
			dsp.Project(shAccum, s.order, dsp.Direction{X: dir.X, Y: dir.Y, Z: dir.Z}, w)
			dirAccum = dirAccum.Add(dir.Mul(w))
			if length > 0 {
				ratioAccum += (straight / length) * w
			}
			totalWeight += w
		}
	}

	if totalWeight <= 0 {
		return PathResult{}, false
	}
	for b := range eqAccum {
		eqAccum[b] /= totalWeight
	}
	for i := range shAccum {
		shAccum[i] /= totalWeight
	}
	avgDir := geom.NormalizeOrZero(dirAccum.Mul(1 / totalWeight))

	return PathResult{
		EQ:            eqAccum,
		SH:            shAccum,
		AvgDirection:  avgDir,
		DistanceRatio: ratioAccum / totalWeight,
	}, true
}
