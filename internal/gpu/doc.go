//go:build !nogpu

// Package gpu implements the compensated fill pipeline on a wgpu HAL
// device.
//
// This is an internal package used by the public ggmap/gpu package. It
// runs on any device gogpu/wgpu can open (Vulkan, Metal, DX12 or the noop
// device used in tests).
//
// # Architecture Overview
//
//	DrawBatch -> FillDraw bytes -> FillResources -> FillTarget pass -> readback
//
// Key components:
//
//   - FillPipeline: render pipeline, bind group layouts and sampler for the
//     fill_pattern.wgsl shader
//   - FillResources: per-batch vertex, index and uniform buffers with the
//     uniform bind group (group 0)
//   - PatternTexture: an uploaded pattern tile with its texture bind group
//     (group 1)
//   - FillTarget: offscreen color target, optionally multisampled, with a
//     fenced CPU readback
//
// # Shader
//
// The vertex stage rebuilds each transform row as a double-float sum of
// high and low parts, with error-free sums and Veltkamp products written
// so the compiler cannot fuse them into FMA. The world position is taken
// relative to the batch origin before any float32 rounding of large
// values, and the pattern coordinate is derived from that local position
// plus a host-computed phase.
//
// # Error Handling
//
// Common errors returned by this package:
//
//   - ErrNilPipeline: method called on a nil pipeline
//   - ErrPipelineNotInitialized: draw recorded before Init
//   - ErrEmptyVertexData: batch without vertices or indices
//   - ErrUniformSize: uniform block of the wrong size
//   - ErrInvalidPatternData: pattern pixels do not match the size
//   - ErrTargetSize: readback buffer does not match the target
//   - ErrGPUTimeout: the render fence was not signaled in time
package gpu
