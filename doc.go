// Package aerod3d9 implements the translation core of a legacy Direct3D 9
// style user-mode driver: it collapses fixed-function pipeline state into
// synthesized shader programs and a compact, versioned binary command stream
// consumed by a separate GPU execution backend.
//
// The module is organized as a small set of focused packages:
//
//   - cmdstream: the append-only binary command-stream encoder and a
//     packet decoder for the versioned wire format.
//   - fvf: resolution of legacy packed vertex-format descriptors and
//     explicit vertex declarations into canonical input layouts.
//   - shader: deterministic synthesis of fixed-function vertex and pixel
//     token-stream programs, with WGSL mirrors compiled through naga.
//   - pipeline: per-device state tracking, fixed-function variant
//     selection and caching, instancing emulation, and software vertex
//     processing.
//
// Host-ABI plumbing, presentation, and resource backing I/O are external
// collaborators and intentionally out of scope.
package aerod3d9
