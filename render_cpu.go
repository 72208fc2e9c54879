package ggmap

import (
	"image"
	"image/color"

	"github.com/gogpu/ggmap/eval"
	"github.com/gogpu/ggmap/internal/raster"
	"github.com/gogpu/ggmap/pattern"
)

// RenderCPU draws the batch into dst with the compensated vertex stage.
// It follows the GPU pipeline step for step and serves as a fallback and a
// reference image source. dst is composited over with premultiplied alpha.
func (b *DrawBatch) RenderCPU(dst *image.RGBA, u Uniforms) error {
	if b == nil {
		return ErrNilBatch
	}
	out := b.Evaluate(u)
	params := u.PatternParams()
	verts := make([]raster.Vertex, len(out))
	for i := range out {
		verts[i] = b.rasterVertex(&out[i], i, u, params.Coord(out[i].Local, b.vertices[i].PatternOffset))
	}
	b.draw(dst, verts, u)
	return nil
}

// RenderCPUNaive draws the batch the way an uncompensated shader would:
// float32 positions through the high part of the transform and a pattern
// anchored at the float32 world position.
func (b *DrawBatch) RenderCPUNaive(dst *image.RGBA, u Uniforms) error {
	if b == nil {
		return ErrNilBatch
	}
	out := b.EvaluateNaive(u)
	world := pattern.Params{Scale: u.PatternScale}
	verts := make([]raster.Vertex, len(out))
	for i := range out {
		v := &b.vertices[i]
		verts[i] = b.rasterVertex(&out[i], i, u, world.Coord(v.PositionHigh, v.PatternOffset))
	}
	b.draw(dst, verts, u)
	return nil
}

func (b *DrawBatch) rasterVertex(o *eval.Output, i int, u Uniforms, uv [2]float32) raster.Vertex {
	w := o.Clip[3]
	return raster.Vertex{
		X:     (o.Clip[0]/w + 1) * 0.5 * u.Viewport[0],
		Y:     (1 - o.Clip[1]/w) * 0.5 * u.Viewport[1],
		U:     uv[0],
		V:     uv[1],
		Color: b.vertices[i].Color,
	}
}

func (b *DrawBatch) draw(dst *image.RGBA, verts []raster.Vertex, u Uniforms) {
	var tex *pattern.Texture
	if u.PatternEnabled && b.style.Pattern != nil {
		tex = b.style.Pattern.Texture
	}
	opacity := u.Opacity

	shade := func(f raster.Fragment) color.Color {
		c := f.Color
		if tex != nil {
			t := tex.Sample([2]float32{f.U, f.V})
			c[0] *= float32(t.R) / 255
			c[1] *= float32(t.G) / 255
			c[2] *= float32(t.B) / 255
			c[3] *= float32(t.A) / 255
		}
		return color.RGBA64{
			R: unit16(c[0] * opacity),
			G: unit16(c[1] * opacity),
			B: unit16(c[2] * opacity),
			A: unit16(c[3] * opacity),
		}
	}

	size := dst.Bounds().Size()
	raster.NewTriangleRasterizer(size.X, size.Y).DrawTriangles(dst, verts, b.indices, shade)
}

func unit16(v float32) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}
