package simulation

import (
	"context"
	"sync/atomic"

	"github.com/spatialaudio/core/effects"
	"github.com/spatialaudio/core/internal/geom"
	"github.com/spatialaudio/core/probes"
	"github.com/spatialaudio/core/reflection"
)

// SharedInputs are the settings common to every source's simulation,
// committed once per Manager.
type SharedInputs struct {
	ListenerSpace         geom.Matrix4
	NumRays               int
	NumBounces            int
	Duration              float64
	Order                 int
	IrradianceMinDistance float64
	ReconstructionType    reflection.EnvelopeMode
}

// DirectInputs configures one source's direct-path subsystem.
type DirectInputs struct {
	Enabled          bool
	SourceSpace      geom.Matrix4
	Attenuation      AttenuationModel
	AirAbsorption    AirAbsorptionModel
	Directivity      DirectivityModel
	OcclusionType    OcclusionType
	OcclusionRadius  float64
	OcclusionSamples int
}

// ReflectionsInputs configures one source's reflections subsystem.
type ReflectionsInputs struct {
	Enabled               bool
	SourceSpace           geom.Matrix4
	ReverbScale           [3]float64
	HybridTransitionTime  float64
	HybridOverlapFraction float64
	Baked                 bool
	BakedBatch            *probes.ProbeBatch
	BakedIdentifier       probes.BakedDataIdentifier
}

// PathingInputs configures one source's pathing subsystem.
type PathingInputs struct {
	Enabled                        bool
	SourcePosition                 geom.Vector3
	Batch                          *probes.ProbeBatch
	PathingIdentifier              probes.BakedDataIdentifier
	Order                          int
	EnableValidation               bool
	FindAlternatePaths             bool
	SimplifyPaths                  bool
	EnablePathsFromAllSourceProbes bool
}

// SourceInputs bundles one source's per-subsystem configuration.
type SourceInputs struct {
	Direct      DirectInputs
	Reflections ReflectionsInputs
	Pathing     PathingInputs
}

// DirectOutputs is the direct-path subsystem's published result.
type DirectOutputs struct {
	Generation uint64
	Path       effects.DirectSoundPath
}

// ReflectionsOutputs is the reflections subsystem's published result.
type ReflectionsOutputs struct {
	Generation  uint64
	ReverbTimes [3]float64
	HybridEQ    [3]float64
	HybridDelay float64
}

// PathingOutputs is the pathing subsystem's published result.
type PathingOutputs struct {
	Generation   uint64
	Valid        bool
	EQ           [3]float64
	SH           []float64
	AvgDirection geom.Vector3
}

// tripleBuffer[T] is a reader/writer/pending rotation following the
// same scheme internal/dsp.OverlapSaveFIR uses for impulse-response
// handoff, generalized here to an arbitrary small value type so each
// simulation subsystem can publish independently of the others without
// one overwriting another's slot.
type tripleBuffer[T any] struct {
	slots      [3]atomic.Pointer[T]
	readIdx    atomic.Int32
	pendingIdx atomic.Int32
}

func newTripleBuffer[T any]() *tripleBuffer[T] {
	tb := &tripleBuffer[T]{}
	empty := new(T)
	for i := range tb.slots {
		tb.slots[i].Store(empty)
	}
	return tb
}

func (tb *tripleBuffer[T]) publish(v *T) {
	writeIdx := (tb.readIdx.Load() + 1) % 3
	tb.slots[writeIdx].Store(v)
	tb.pendingIdx.Store(writeIdx)
}

// AcquireReadBuffer swaps in the most recently published value; the
// audio thread calls this once per block before reading Output().
func (tb *tripleBuffer[T]) AcquireReadBuffer() {
	pending := tb.pendingIdx.Load()
	if pending != tb.readIdx.Load() {
		tb.readIdx.Store(pending)
	}
}

// Output returns the currently acquired read-side value.
func (tb *tripleBuffer[T]) Output() *T {
	return tb.slots[tb.readIdx.Load()].Load()
}

// Source is one simulated sound source: its position/listener inputs,
// per-subsystem configuration, and the three independent triple
// buffers its outputs publish through — independent so direct,
// reflections and pathing simulation can run concurrently on distinct
// goroutines without contending over a shared slot.
type Source struct {
	Listener geom.Vector3
	Position geom.Vector3
	Inputs   SourceInputs

	direct      *tripleBuffer[DirectOutputs]
	reflections *tripleBuffer[ReflectionsOutputs]
	pathing     *tripleBuffer[PathingOutputs]
}

// NewSource returns a source with zeroed outputs on all three
// subsystem buffers.
func NewSource() *Source {
	return &Source{
		direct:      newTripleBuffer[DirectOutputs](),
		reflections: newTripleBuffer[ReflectionsOutputs](),
		pathing:     newTripleBuffer[PathingOutputs](),
	}
}

// AcquireReadBuffers swaps in the most recently published value on all
// three subsystem buffers; the audio thread calls this once per block.
func (s *Source) AcquireReadBuffers() {
	s.direct.AcquireReadBuffer()
	s.reflections.AcquireReadBuffer()
	s.pathing.AcquireReadBuffer()
}

// DirectOutput returns the currently acquired direct-path result.
func (s *Source) DirectOutput() *DirectOutputs { return s.direct.Output() }

// ReflectionsOutput returns the currently acquired reflections result.
func (s *Source) ReflectionsOutput() *ReflectionsOutputs { return s.reflections.Output() }

// PathingOutput returns the currently acquired pathing result.
func (s *Source) PathingOutput() *PathingOutputs { return s.pathing.Output() }

// Manager orchestrates the direct, reflections and pathing subsystems
// for a set of sources against a shared scene, publishing results
// through each Source's triple buffer. commit() and the three
// simulateX() methods are safe to call concurrently from distinct
// goroutines; each source's own triple buffer makes that safe without
// a shared lock.
type Manager struct {
	scene geom.Queryable
	pool  *reflection.ThreadPool

	shared  SharedInputs
	sources []*Source

	generation atomic.Uint64

	cancelBakeReflections atomic.Bool
	cancelBakePaths       atomic.Bool
}

// NewManager builds a simulation manager tracing against scene, using
// pool for any work it fans out (reflections simulation).
func NewManager(scene geom.Queryable, pool *reflection.ThreadPool) *Manager {
	return &Manager{scene: scene, pool: pool}
}

// SetSharedInputs replaces the shared simulation settings, effective
// on the next commit().
func (m *Manager) SetSharedInputs(in SharedInputs) { m.shared = in }

// AddSource registers a new source and returns it; the caller stores
// the returned handle and mutates its Inputs/Position/Listener fields
// directly before the next commit().
func (m *Manager) AddSource() *Source {
	src := NewSource()
	m.sources = append(m.sources, src)
	return src
}

// Sources returns the manager's registered sources.
func (m *Manager) Sources() []*Source { return m.sources }

// Generation returns the monotonic counter bumped by the most recent
// commit(), letting a consumer detect whether a given subsystem output
// predates its last commit.
func (m *Manager) Generation() uint64 { return m.generation.Load() }

// Commit advances the generation counter and does nothing else: it does
// not rebind sources or probe batches into internal indices. The
// software scene needs no top-level index rebuild (mirroring
// geom.Scene.Commit's no-op), but every simulate call after this point
// is considered to belong to the new generation.
func (m *Manager) Commit() {
	m.generation.Add(1)
}

// CancelBakeReflections sets the Manager's reflection-bake cancel flag.
// Nothing in this module reads that flag and the Manager runs no bake
// itself; the probes bakers stop only through their ProgressFunc.
func (m *Manager) CancelBakeReflections() { m.cancelBakeReflections.Store(true) }

// CancelBakePaths sets the Manager's path-bake cancel flag. Nothing in
// this module reads that flag and the Manager runs no bake itself; the
// probes bakers stop only through their ProgressFunc.
func (m *Manager) CancelBakePaths() { m.cancelBakePaths.Store(true) }

// SimulateDirect runs the direct-path subsystem for every enabled
// source and publishes DirectSoundPath results.
func (m *Manager) SimulateDirect(ctx context.Context) error {
	for _, src := range m.sources {
		if !src.Inputs.Direct.Enabled {
			continue
		}
		di := src.Inputs.Direct
		sim := NewDirectSimulator(m.scene, di.OcclusionType, di.OcclusionRadius, di.OcclusionSamples)

		attenuation := di.Attenuation
		if attenuation == nil {
			attenuation = InverseDistanceAttenuation(1.0)
		}
		airAbsorption := di.AirAbsorption
		if airAbsorption == nil {
			airAbsorption = ExponentialAirAbsorption([3]float64{0, 0, 0})
		}
		directivity := di.Directivity
		if directivity == nil {
			directivity = OmnidirectionalDirectivity
		}

		path := sim.Simulate(src.Position, src.Listener, di.SourceSpace, attenuation, airAbsorption, directivity)

		src.direct.publish(&DirectOutputs{
			Generation: m.generation.Load(),
			Path:       path,
		})

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// SimulateIndirect runs the reflections subsystem for every enabled
// source: either reading a baked EnergyField from its probe batch, or
// tracing a fresh one against the live scene, then fitting reverb
// parameters from it.
func (m *Manager) SimulateIndirect(ctx context.Context) error {
	estimator := reflection.NewReverbEstimator()
	hybrid := reflection.NewHybridReverbEstimator()

	for _, src := range m.sources {
		ri := src.Inputs.Reflections
		if !ri.Enabled {
			continue
		}

		var field *reflection.EnergyField
		if ri.Baked && ri.BakedBatch != nil {
			field = nearestBakedField(ri.BakedBatch, ri.BakedIdentifier, src.Position)
		} else {
			params := reflection.Params{
				NumRays:               m.shared.NumRays,
				NumBounces:            m.shared.NumBounces,
				Duration:              m.shared.Duration,
				Order:                 m.shared.Order,
				IrradianceMinDistance: m.shared.IrradianceMinDistance,
				BinWidth:              m.shared.Duration / 100,
			}
			if params.BinWidth <= 0 {
				params.BinWidth = 0.01
			}
			sim := reflection.NewSimulator(m.scene, m.pool)
			omni := func(geom.Vector3) float64 { return 1 }
			var err error
			field, err = sim.Simulate(ctx, src.Position, src.Listener, omni, params)
			if err != nil {
				return err
			}
		}
		if field == nil {
			continue
		}

		t60 := estimator.EstimateT60(field)
		for b := range t60 {
			t60[b] *= ri.ReverbScale[b]
		}
		hp := hybrid.Estimate(field, ri.HybridOverlapFraction)

		src.reflections.publish(&ReflectionsOutputs{
			Generation:  m.generation.Load(),
			ReverbTimes: t60,
			HybridEQ:    hp.HybridEQ,
			HybridDelay: hp.TransitionTime,
		})

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// SimulatePathing runs the pathing subsystem for every enabled source.
func (m *Manager) SimulatePathing(ctx context.Context) error {
	for _, src := range m.sources {
		pi := src.Inputs.Pathing
		if !pi.Enabled || pi.Batch == nil {
			continue
		}

		sim := NewPathSimulator(pi.Batch, m.scene, pi.PathingIdentifier, pi.Order)
		sim.EnableValidation = pi.EnableValidation
		sim.FindAlternatePaths = pi.FindAlternatePaths
		sim.SimplifyPaths = pi.SimplifyPaths
		sim.EnablePathsFromAllSourceProbes = pi.EnablePathsFromAllSourceProbes

		result, ok := sim.Simulate(pi.SourcePosition, src.Listener)

		out := &PathingOutputs{Generation: m.generation.Load(), Valid: ok}
		if ok {
			out.EQ = result.EQ
			out.SH = result.SH
			out.AvgDirection = result.AvgDirection
		}
		src.pathing.publish(out)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// nearestBakedField returns the reflections EnergyField payload of
// batch's probe nearest to point under id, or nil if none is baked.
func nearestBakedField(batch *probes.ProbeBatch, id probes.BakedDataIdentifier, point geom.Vector3) *reflection.EnergyField {
	n := batch.GetInfluencingProbes(point)
	if len(n.Indices) == 0 {
		return nil
	}
	payload, ok := batch.Payload(id, n.Indices[0])
	if !ok {
		return nil
	}
	field, ok := payload.(*reflection.EnergyField)
	if !ok {
		return nil
	}
	return field
}
