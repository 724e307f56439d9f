package probes

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/spatialaudio/core/internal/geom"
)

// BakedDataKind distinguishes the two baked simulation products a
// ProbeBatch can carry per probe.
type BakedDataKind int

const (
	// Reflections identifies baked reflection energy fields / IR
	// coefficients.
	Reflections BakedDataKind = iota
	// Pathing identifies a baked path adjacency graph.
	Pathing
)

// Variation distinguishes which scenario a baked payload was computed
// for.
type Variation int

const (
	Reverb Variation = iota
	StaticSource
	StaticListener
	Dynamic
)

// BakedDataIdentifier names one baked payload slot on a probe.
type BakedDataIdentifier struct {
	Kind      BakedDataKind
	Variation Variation
	Endpoint  geom.Sphere
}

// K is the fixed neighborhood size ProbeBatch.GetInfluencingProbes
// returns at most.
const K = 8

// ProbeNeighborhood is an ordered list of up to K probes found to
// influence a query point.
type ProbeNeighborhood struct {
	Indices []int
	Valid   []bool
	Weights []float64
}

// ProbeBatch holds a set of probes, a spatial index over their
// influence spheres, and per-(probe, identifier) baked payloads.
type ProbeBatch struct {
	probes  []Probe
	payload map[BakedDataIdentifier]map[int]any

	neighborCache *lru.Cache[geom.Vector3, ProbeNeighborhood]
}

// NewProbeBatch wraps arr's probes into a batch with an empty payload
// map and a bounded LRU cache over recent neighborhood lookups (the
// lookup cost is dominated by the occlusion raycasts, which are worth
// memoizing when the same query point — e.g. a mostly-static listener —
// recurs across audio blocks).
func NewProbeBatch(arr ProbeArray, neighborCacheSize int) *ProbeBatch {
	if neighborCacheSize <= 0 {
		neighborCacheSize = 256
	}
	cache, _ := lru.New[geom.Vector3, ProbeNeighborhood](neighborCacheSize)
	return &ProbeBatch{
		probes:        arr.Probes,
		payload:       make(map[BakedDataIdentifier]map[int]any),
		neighborCache: cache,
	}
}

// Probes returns the batch's probe set.
func (b *ProbeBatch) Probes() []Probe { return b.probes }

// SetPayload stores the baked payload for probe index i under id.
func (b *ProbeBatch) SetPayload(id BakedDataIdentifier, probeIndex int, payload any) {
	m, ok := b.payload[id]
	if !ok {
		m = make(map[int]any)
		b.payload[id] = m
	}
	m[probeIndex] = payload
}

// Payload retrieves the baked payload for probe index i under id, if
// present.
func (b *ProbeBatch) Payload(id BakedDataIdentifier, probeIndex int) (any, bool) {
	m, ok := b.payload[id]
	if !ok {
		return nil, false
	}
	v, ok := m[probeIndex]
	return v, ok
}

// candidate is a probe index paired with its distance to a query
// point, used to select the K nearest influencing probes.
type candidate struct {
	index int
	dist2 float64
}

// GetInfluencingProbes returns up to K probes whose influence spheres
// contain point, nearest first. Results for a repeated point (ignoring
// occlusion, which is scene-state-dependent and checked separately via
// CheckOcclusion) are served from the neighbor cache.
func (b *ProbeBatch) GetInfluencingProbes(point geom.Vector3) ProbeNeighborhood {
	if cached, ok := b.neighborCache.Get(point); ok {
		return cached
	}

	var candidates []candidate
	for i, p := range b.probes {
		if p.Influence.Contains(point) {
			candidates = append(candidates, candidate{index: i, dist2: point.Sub(p.Center()).Norm2()})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist2 < candidates[j].dist2 })
	if len(candidates) > K {
		candidates = candidates[:K]
	}

	n := ProbeNeighborhood{
		Indices: make([]int, len(candidates)),
		Valid:   make([]bool, len(candidates)),
		Weights: make([]float64, len(candidates)),
	}
	for i, c := range candidates {
		n.Indices[i] = c.index
	}

	b.neighborCache.Add(point, n)
	return n
}

// CheckOcclusion traces a line-of-sight ray from point to each
// neighbor's center against scene, marking Valid false for any
// neighbor whose line of sight is blocked.
func (b *ProbeBatch) CheckOcclusion(scene geom.Queryable, point geom.Vector3, n *ProbeNeighborhood) {
	for i, idx := range n.Indices {
		center := b.probes[idx].Center()
		toProbe := center.Sub(point)
		dist := toProbe.Norm()
		if dist < 1e-9 {
			n.Valid[i] = true
			continue
		}
		dir := toProbe.Mul(1 / dist)
		n.Valid[i] = !scene.AnyHit(geom.Ray{Origin: point, Direction: dir}, 1e-4, dist-1e-4)
	}
}

// CalcWeights computes smooth-falloff weights for n's probes relative
// to point, normalized to sum to 1 across valid neighbors (invalid,
// occluded neighbors get weight 0).
func (b *ProbeBatch) CalcWeights(point geom.Vector3, n *ProbeNeighborhood) {
	var total float64
	for i, idx := range n.Indices {
		if !n.Valid[i] {
			n.Weights[i] = 0
			continue
		}
		probe := b.probes[idx]
		d := point.Sub(probe.Center()).Norm()
		r := probe.Influence.Radius
		if r <= 0 {
			n.Weights[i] = 0
			continue
		}
		t := d / r
		if t >= 1 {
			n.Weights[i] = 0
			continue
		}
		// Smoothstep falloff: 1 at the probe center, 0 at the
		// influence radius, with a continuous derivative at both ends.
		w := 1 - t*t*(3-2*t)
		n.Weights[i] = w
		total += w
	}
	if total <= 0 {
		return
	}
	for i := range n.Weights {
		n.Weights[i] /= total
	}
}
