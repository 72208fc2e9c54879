package ggmap

import "github.com/gogpu/ggmap/pattern"

// Style describes how a batch is filled and outlined.
type Style struct {
	// Color is the fill color in straight (non-premultiplied) RGBA. With a
	// pattern it tints the texture.
	Color [4]float32

	// Opacity scales the final fragment, including its alpha.
	Opacity float32

	// Pattern is an optional repeating fill.
	Pattern *Pattern

	// Stroke is an optional outline, drawn by batches from NewStrokeBatch.
	Stroke *Stroke
}

// Stroke is a constant-width outline.
type Stroke struct {
	// Color is the line color in straight RGBA.
	Color [4]float32

	// Width is the line width in pixels, independent of zoom.
	Width float32
}

// DefaultStyle returns an opaque white fill without a pattern.
func DefaultStyle() Style {
	return Style{Color: [4]float32{1, 1, 1, 1}, Opacity: 1}
}

// Pattern is a texture repeated over the world plane.
type Pattern struct {
	// TileWidth and TileHeight are the world size of one texture repeat.
	TileWidth, TileHeight float64

	// Texture holds the tile texels.
	Texture *pattern.Texture
}

// premultiplied returns c with its color channels scaled by alpha.
func premultiplied(c [4]float32) [4]float32 {
	return [4]float32{c[0] * c[3], c[1] * c[3], c[2] * c[3], c[3]}
}
