// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package raster fills indexed triangle meshes on the CPU. Coverage comes
// from golang.org/x/image/vector and vertex attributes are interpolated at
// pixel centers, so the result matches what the GPU pipeline draws.
package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Vertex is a screen-space vertex after the vertex stage.
type Vertex struct {
	// X and Y are pixel coordinates, y pointing down.
	X, Y float32

	// U and V are interpolated attributes, typically pattern coordinates.
	U, V float32

	// Color is a premultiplied RGBA color.
	Color [4]float32
}

// Fragment is the interpolated vertex data at a pixel center.
type Fragment struct {
	U, V  float32
	Color [4]float32
}

// Shader computes the premultiplied color of a fragment.
type Shader func(Fragment) color.Color

// TriangleRasterizer fills indexed triangle meshes into an image with
// anti-aliased coverage, interpolating vertex attributes linearly in
// screen space.
//
// All triangles of one call are accumulated into a single coverage mask, so
// edges shared between triangles of the mesh leave no seams.
type TriangleRasterizer struct {
	w, h int
	z    *vector.Rasterizer
}

// NewTriangleRasterizer creates a rasterizer for a w x h target.
func NewTriangleRasterizer(w, h int) *TriangleRasterizer {
	return &TriangleRasterizer{w: w, h: h, z: vector.NewRasterizer(w, h)}
}

// DrawTriangles composites the mesh described by verts and idx over dst.
// Triangles with zero area are skipped. idx must already be validated
// against verts. Overlapping triangles are not supported; the mesh is
// treated as one filled region.
func (r *TriangleRasterizer) DrawTriangles(dst draw.Image, verts []Vertex, idx []uint32, shade Shader) {
	src := &meshSource{shade: shade}
	for i := 0; i+2 < len(idx); i += 3 {
		src.add(verts[idx[i]], verts[idx[i+1]], verts[idx[i+2]])
	}
	if len(src.tris) == 0 {
		return
	}

	rect := src.bounds.Intersect(image.Rect(0, 0, r.w, r.h)).Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}

	r.z.Reset(r.w, r.h)
	r.z.DrawOp = draw.Over
	for _, t := range src.tris {
		// every triangle is wound the same way so coverage adds up across
		// shared edges instead of cancelling
		r.z.MoveTo(t.a.X, t.a.Y)
		r.z.LineTo(t.b.X, t.b.Y)
		r.z.LineTo(t.c.X, t.c.Y)
		r.z.ClosePath()
	}
	r.z.Draw(dst, rect, src, rect.Min)
}

type triangle struct {
	a, b, c Vertex
	invArea float32
	bounds  image.Rectangle
}

// edge is twice the signed area of (p, q, (x, y)).
func edge(p, q Vertex, x, y float32) float32 {
	return (q.X-p.X)*(y-p.Y) - (q.Y-p.Y)*(x-p.X)
}

// weights returns the barycentric coordinates of (x, y).
func (t *triangle) weights(x, y float32) (wa, wb, wc float32) {
	wa = edge(t.b, t.c, x, y) * t.invArea
	wb = edge(t.c, t.a, x, y) * t.invArea
	return wa, wb, 1 - wa - wb
}

// meshSource is an unbounded image whose color at each pixel is the shaded
// attributes of the triangle under that pixel center. The rasterizer uses
// it as the source beneath its coverage mask.
type meshSource struct {
	tris   []triangle
	bounds image.Rectangle
	shade  Shader
}

func (s *meshSource) add(a, b, c Vertex) {
	area := edge(a, b, c.X, c.Y)
	if area == 0 {
		return
	}
	if area < 0 {
		b, c = c, b
		area = -area
	}
	bounds := image.Rect(
		int(min(a.X, b.X, c.X))-1, int(min(a.Y, b.Y, c.Y))-1,
		int(max(a.X, b.X, c.X))+2, int(max(a.Y, b.Y, c.Y))+2,
	)
	s.tris = append(s.tris, triangle{a: a, b: b, c: c, invArea: 1 / area, bounds: bounds})
	s.bounds = s.bounds.Union(bounds)
}

func (s *meshSource) ColorModel() color.Model { return color.RGBA64Model }

func (s *meshSource) Bounds() image.Rectangle {
	return image.Rect(-1<<30, -1<<30, 1<<30, 1<<30)
}

// At shades the pixel center. Anti-aliased edge pixels whose center lies
// just outside every triangle take the triangle they are closest to.
func (s *meshSource) At(x, y int) color.Color {
	px, py := float32(x)+0.5, float32(y)+0.5
	p := image.Pt(x, y)

	best, bestScore := -1, float32(0)
	var bw [3]float32
	for i := range s.tris {
		t := &s.tris[i]
		if !p.In(t.bounds) {
			continue
		}
		wa, wb, wc := t.weights(px, py)
		score := min(wa, wb, wc)
		if best < 0 || score > bestScore {
			best, bestScore, bw = i, score, [3]float32{wa, wb, wc}
		}
		if score >= 0 {
			break
		}
	}
	if best < 0 {
		return color.Transparent
	}

	t := &s.tris[best]
	f := Fragment{
		U: bw[0]*t.a.U + bw[1]*t.b.U + bw[2]*t.c.U,
		V: bw[0]*t.a.V + bw[1]*t.b.V + bw[2]*t.c.V,
	}
	for i := range f.Color {
		f.Color[i] = bw[0]*t.a.Color[i] + bw[1]*t.b.Color[i] + bw[2]*t.c.Color[i]
	}
	return s.shade(f)
}
