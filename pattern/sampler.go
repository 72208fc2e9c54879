// Package pattern computes repeating fill-pattern texture coordinates from
// batch-local positions.
//
// Sampling the raw world coordinate would require fract(world / tile) on
// values near 10^8, where float32 has no fractional bits left. Instead the
// host computes, in double precision, the phase of the batch origin within
// the tile grid:
//
//	phase = fract(origin / tile)
//
// and the shader adds the small local offset:
//
//	uv = fract(phase + local / tile + offset)
//
// Both terms are small, so the pattern stays stable at any world magnitude
// and continuous across batches with different origins. Texture v grows
// downward, so the y axis is negated relative to world y.
package pattern

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Sampler errors.
var (
	// ErrInvalidTileSize is returned for a tile size that is not a
	// positive finite number.
	ErrInvalidTileSize = errors.New("pattern: invalid tile size")

	// ErrNilTexture is returned when a texture is built from a nil image.
	ErrNilTexture = errors.New("pattern: nil texture")
)

// Sampler holds the world-space size of one pattern tile.
type Sampler struct {
	tile [2]float64
}

// NewSampler creates a sampler for tiles of the given world size.
func NewSampler(tileWidth, tileHeight float64) (*Sampler, error) {
	for _, v := range [2]float64{tileWidth, tileHeight} {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %vx%v", ErrInvalidTileSize, tileWidth, tileHeight)
		}
	}
	return &Sampler{tile: [2]float64{tileWidth, tileHeight}}, nil
}

// NewPixelSampler creates a sampler for tiles measured in screen pixels at
// the given resolution (world units per pixel).
func NewPixelSampler(tileWidthPx, tileHeightPx, resolution float64) (*Sampler, error) {
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("%w: resolution %v", ErrInvalidTileSize, resolution)
	}
	if !(tileWidthPx > 0) || !(tileHeightPx > 0) {
		return nil, fmt.Errorf("%w: %vx%v px", ErrInvalidTileSize, tileWidthPx, tileHeightPx)
	}
	return NewSampler(tileWidthPx*resolution, tileHeightPx*resolution)
}

// TileSize returns the tile size in world units.
func (s *Sampler) TileSize() [2]float64 {
	return s.tile
}

// Params are the per-draw values the shader needs to sample the pattern.
type Params struct {
	// Phase is the position of the batch origin within its tile, in [0, 1).
	Phase [2]float32

	// Scale converts local world units to tiles.
	Scale [2]float32
}

// Params computes the phase and scale for a batch origin.
func (s *Sampler) Params(origin [2]float32) Params {
	return Params{
		Phase: [2]float32{
			float32(frac64(float64(origin[0]) / s.tile[0])),
			float32(frac64(-float64(origin[1]) / s.tile[1])),
		},
		Scale: [2]float32{
			float32(1 / s.tile[0]),
			float32(1 / s.tile[1]),
		},
	}
}

// Coord returns the unwrapped pattern coordinate, in tiles, of a local
// position. This is the value the vertex stage interpolates.
func (p Params) Coord(local, offset [2]float32) [2]float32 {
	return [2]float32{
		p.Phase[0] + float32(local[0]*p.Scale[0]) + offset[0],
		p.Phase[1] + float32(-local[1]*p.Scale[1]) + offset[1],
	}
}

// TexCoord returns the wrapped texture coordinate in [0, 1).
func (p Params) TexCoord(local, offset [2]float32) [2]float32 {
	return Wrap(p.Coord(local, offset))
}

// Wrap maps a pattern coordinate into [0, 1), like WGSL fract.
func Wrap(c [2]float32) [2]float32 {
	return [2]float32{frac32(c[0]), frac32(c[1])}
}

func frac32(v float32) float32 {
	f := v - math32.Floor(v)
	// v slightly below an integer can round up to exactly 1
	if f >= 1 {
		return 0
	}
	return f
}

func frac64(v float64) float64 {
	f := v - math.Floor(v)
	if f >= 1 {
		return 0
	}
	return f
}
