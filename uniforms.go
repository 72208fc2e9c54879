package ggmap

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/ggmap/dekker"
	"github.com/gogpu/ggmap/eval"
	"github.com/gogpu/ggmap/pattern"
)

// UniformSize is the size of the fill uniform block in bytes.
//
// Layout (std140 compatible):
//
//	transform_hi:  mat4x4<f32>  offset 0
//	transform_lo:  mat4x4<f32>  offset 64
//	origin:        vec2<f32>    offset 128
//	pattern_phase: vec2<f32>    offset 136
//	pattern_scale: vec2<f32>    offset 144
//	viewport:      vec2<f32>    offset 152
//	params:        vec4<f32>    offset 160  (pattern enabled, opacity, keep lo*lo, unused)
const UniformSize = 176

// Uniforms is the per-frame state of one batch.
type Uniforms struct {
	// Transform is the split projection * view * model matrix.
	Transform dekker.Mat4

	// Origin is the batch local origin.
	Origin [2]float32

	// PatternPhase and PatternScale are set when PatternEnabled is true.
	PatternPhase [2]float32
	PatternScale [2]float32

	// Viewport is the target size in pixels.
	Viewport [2]float32

	PatternEnabled bool
	Opacity        float32
	Precision      dekker.Precision
}

// PatternParams returns the sampler parameters carried by u.
func (u *Uniforms) PatternParams() pattern.Params {
	return pattern.Params{Phase: u.PatternPhase, Scale: u.PatternScale}
}

// EvalTransform returns the vertex stage transform carried by u.
func (u *Uniforms) EvalTransform() eval.Transform {
	return eval.Transform{Matrix: u.Transform, Origin: u.Origin, Viewport: u.Viewport}
}

// Bytes encodes u in the shader's uniform layout, little-endian.
func (u *Uniforms) Bytes() []byte {
	buf := make([]byte, UniformSize)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}

	hi, lo := u.Transform.High(), u.Transform.Low()
	for i := range 16 {
		put(i*4, hi[i])
		put(64+i*4, lo[i])
	}
	put(128, u.Origin[0])
	put(132, u.Origin[1])
	put(136, u.PatternPhase[0])
	put(140, u.PatternPhase[1])
	put(144, u.PatternScale[0])
	put(148, u.PatternScale[1])
	put(152, u.Viewport[0])
	put(156, u.Viewport[1])
	put(160, boolFloat(u.PatternEnabled))
	put(164, u.Opacity)
	put(168, boolFloat(u.Precision == dekker.PrecisionFull))
	return buf
}

func boolFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
