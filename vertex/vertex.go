// Package vertex packs double-precision world positions into the
// interleaved GPU vertex format used by the fill pipeline.
//
// Each vertex carries its position as a compensated pair (high and low
// float32 parts) next to its color, pattern offset and stroke extrusion:
//
//	offset  size  attribute        location
//	0       8     position_high    0
//	8       8     position_low     1
//	16      16    color            2
//	32      8     pattern_offset   3
//	40      8     extrude          4
//
// The in-memory [Vertex] struct has exactly this layout, so a packed slice
// can be handed to the GPU without re-encoding.
package vertex

import (
	"errors"
	"structs"

	"github.com/gogpu/ggmap/dekker"
)

// Stride is the byte size of one packed vertex.
const Stride = 48

// Packing errors.
var (
	// ErrEmptyGeometry is returned when there is nothing to pack.
	ErrEmptyGeometry = errors.New("vertex: empty geometry")

	// ErrIndexOutOfRange is returned when an index references a vertex
	// past the end of the batch.
	ErrIndexOutOfRange = errors.New("vertex: index out of range")

	// ErrLayoutMismatch is returned when a vertex layout disagrees with the
	// one the shader was written against.
	ErrLayoutMismatch = errors.New("vertex: layout mismatch")

	// ErrInvalidStrokeWidth is returned for a stroke width that is not
	// finite or lies outside (0, MaxStrokeWidth].
	ErrInvalidStrokeWidth = errors.New("vertex: invalid stroke width")
)

// Vertex is one packed vertex. The field order and sizes match the shader
// input; see the package documentation.
type Vertex struct {
	_ structs.HostLayout

	PositionHigh  [2]float32
	PositionLow   [2]float32
	Color         [4]float32
	PatternOffset [2]float32

	// Extrude is a screen offset applied after the clip transform. Its
	// direction is given in world axes and its length in pixels. Fill
	// vertices leave it zero.
	Extrude [2]float32
}

// Position returns the compensated position.
func (v *Vertex) Position() dekker.Vec2 {
	return dekker.Vec2{
		X: dekker.Pair{Hi: v.PositionHigh[0], Lo: v.PositionLow[0]},
		Y: dekker.Pair{Hi: v.PositionHigh[1], Lo: v.PositionLow[1]},
	}
}

// World reconstructs the world position in double precision.
func (v *Vertex) World() [2]float64 {
	return v.Position().Float64()
}

// Options are the per-vertex attributes applied to every packed vertex.
type Options struct {
	// Color is the premultiplied RGBA fill color.
	Color [4]float32

	// PatternOffset shifts the fill pattern, in tiles.
	PatternOffset [2]float32
}

// DefaultOptions returns opaque white with no pattern offset.
func DefaultOptions() Options {
	return Options{Color: [4]float32{1, 1, 1, 1}}
}

func packOne(dst *Vertex, p [2]float64, opts *Options) error {
	pos, err := dekker.SplitVec2Checked(p[0], p[1])
	if err != nil {
		return err
	}
	*dst = Vertex{
		PositionHigh:  pos.High(),
		PositionLow:   pos.Low(),
		Color:         opts.Color,
		PatternOffset: opts.PatternOffset,
	}
	return nil
}
