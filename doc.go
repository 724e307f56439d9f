// Package core implements the signal-processing and simulation core of a
// real-time spatial-audio engine.
//
// Given mono or multichannel source streams, the positions and orientations
// of sources and a listener, an optional triangle-mesh description of the
// acoustic environment, and a bank of head-related transfer functions
// (HRTFs), the core produces binaural or multichannel output carrying
// direction, distance, occlusion, reflection, and diffraction cues.
//
// # Layers
//
// The module is organized leaf-first:
//
//   - internal/dsp: FFT, overlap-save FIR, IIR/cascaded-IIR filters,
//     spherical harmonics, window functions.
//   - internal/geom: vectors, rays, triangle meshes, and a BVH scene.
//   - internal/hrtf: HRTF database loading, interpolation, and loudness
//     normalization.
//   - effects: the composable real-time audio effects (panning, binaural,
//     ambisonics, direct sound, delay/EQ/gain, reverb, convolution, hybrid
//     reverb, path rendering).
//   - reflection: stochastic ray-traced reflection simulation, energy-field
//     reconstruction, and reverb estimation.
//   - probes: probe generation, baking, and probe-batch runtime lookup.
//   - simulation: the Simulator orchestration layer tying the above
//     together with a triple-buffered audio/simulation-thread handoff.
//
// Apart from the serial package's framing of scenes and probe batches,
// this module does not implement file or wire formats (no SOFA parsing),
// nor a public C ABI, a GPU back-end, or host application glue
// (allocator, profiler, benchmark harness). Those are left to the host
// application.
package core
