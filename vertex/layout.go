package vertex

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"honnef.co/go/safeish"
)

// Layout returns the vertex buffer layout matching [Vertex].
func Layout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: Stride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position_high
			{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // position_low
			{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2}, // color
			{Format: gputypes.VertexFormatFloat32x2, Offset: 32, ShaderLocation: 3}, // pattern_offset
			{Format: gputypes.VertexFormatFloat32x2, Offset: 40, ShaderLocation: 4}, // extrude
		},
	}
}

// ValidateLayout checks that got describes the same buffer as want:
// stride, step mode and every attribute's format, offset and location.
func ValidateLayout(got, want gputypes.VertexBufferLayout) error {
	if got.ArrayStride != want.ArrayStride {
		return fmt.Errorf("%w: stride %d, want %d", ErrLayoutMismatch, got.ArrayStride, want.ArrayStride)
	}
	if got.StepMode != want.StepMode {
		return fmt.Errorf("%w: step mode %v, want %v", ErrLayoutMismatch, got.StepMode, want.StepMode)
	}
	if len(got.Attributes) != len(want.Attributes) {
		return fmt.Errorf("%w: %d attributes, want %d", ErrLayoutMismatch, len(got.Attributes), len(want.Attributes))
	}
	for i, a := range got.Attributes {
		if a != want.Attributes[i] {
			return fmt.Errorf("%w: attribute %d is %+v, want %+v", ErrLayoutMismatch, i, a, want.Attributes[i])
		}
	}
	return nil
}

// Bytes reinterprets the vertices as raw bytes without copying. The result
// aliases vs and uses host byte order, which is little-endian on every
// platform the GPU backends support. Use [Encode] for a portable copy.
func Bytes(vs []Vertex) []byte {
	if len(vs) == 0 {
		return nil
	}
	return safeish.SliceCast[[]byte](vs)
}

// Encode serializes the vertices in little-endian order.
func Encode(vs []Vertex) []byte {
	if len(vs) == 0 {
		return nil
	}
	data := make([]byte, len(vs)*Stride)
	for i := range vs {
		writeVertex(data[i*Stride:], &vs[i])
	}
	return data
}

func writeVertex(buf []byte, v *Vertex) {
	off := 0
	put := func(f float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
		off += 4
	}
	for _, f := range v.PositionHigh {
		put(f)
	}
	for _, f := range v.PositionLow {
		put(f)
	}
	for _, f := range v.Color {
		put(f)
	}
	for _, f := range v.PatternOffset {
		put(f)
	}
	for _, f := range v.Extrude {
		put(f)
	}
}

// FanIndices returns triangle-list indices for a convex polygon with n
// vertices, fanning out from vertex 0.
func FanIndices(n int) []uint32 {
	if n < 3 {
		return nil
	}
	idx := make([]uint32, 0, (n-2)*3)
	for i := 1; i < n-1; i++ {
		idx = append(idx, 0, uint32(i), uint32(i+1)) //nolint:gosec // i < n fits uint32
	}
	return idx
}

// ValidateIndices checks that idx forms whole triangles over n vertices.
func ValidateIndices(idx []uint32, n int) error {
	if len(idx) == 0 || len(idx)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a whole number of triangles", ErrEmptyGeometry, len(idx))
	}
	for i, v := range idx {
		if int(v) >= n {
			return fmt.Errorf("%w: index %d references vertex %d of %d", ErrIndexOutOfRange, i, v, n)
		}
	}
	return nil
}

// IndexBytes serializes indices as little-endian uint32 values.
func IndexBytes(idx []uint32) []byte {
	data := make([]byte, len(idx)*4)
	for i, v := range idx {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	return data
}
