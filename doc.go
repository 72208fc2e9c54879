// Package ggmap draws 2D map geometry at extreme zoom levels on GPUs that
// only offer single-precision arithmetic.
//
// # Overview
//
// Projected map coordinates reach 10^8 to 10^11 pixel-equivalent units at
// high zoom, far beyond the seven significant digits of a float32. Uploading
// them directly makes polygon edges jitter and repeating fill patterns
// dissolve into noise. ggmap keeps every large quantity as a compensated
// pair of float32 values (see package dekker) from the host all the way
// through the vertex stage:
//
//   - world positions are split once when a [DrawBatch] is built
//   - the model, view and projection matrices are composed in float64 and
//     split once per frame by [DrawBatch.Prepare]
//   - the vertex stage multiplies the split matrix by the split position
//     with error-free float32 arithmetic
//   - fill patterns are sampled from a small batch-local position so their
//     phase never depends on the absolute world magnitude
//
// # Quick Start
//
//	vp := transform.Viewport{
//	    Center:     [2]float64{1113195, 6446275},
//	    Resolution: transform.ResolutionForZoom(23),
//	    Width:      256,
//	    Height:     256,
//	}
//	frame, _ := ggmap.NewFrame(vp)
//
//	batch, _ := ggmap.NewBatch(square, ggmap.DefaultStyle())
//	u, _ := batch.Prepare(frame)
//
//	// GPU: gpu.Renderer uploads batch.VertexBytes() and u.Bytes().
//	// CPU: render the same pipeline into an image.
//	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
//	_ = batch.RenderCPU(img, u)
//
// # Architecture
//
//   - dekker: split, two-sum and two-product primitives
//   - transform: matrix composition, viewport helper, transform cache
//   - vertex: interleaved vertex packing and layout
//   - eval: host model of the compensated vertex stage
//   - pattern: local-frame pattern coordinates and test textures
//   - gpu: hal render pipeline running the same arithmetic in WGSL
//   - geodata: GeoJSON polygon input
package ggmap
