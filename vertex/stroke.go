package vertex

import (
	"fmt"
	"math"

	"github.com/gogpu/ggmap/dekker"
)

// MaxStrokeWidth is the widest accepted stroke, in pixels.
const MaxStrokeWidth = 256

// StrokeOptions are the attributes of a packed stroke.
type StrokeOptions struct {
	// Color is the premultiplied RGBA stroke color.
	Color [4]float32

	// Width is the line width in pixels.
	Width float32

	// Closed adds the edge from the last point back to the first.
	Closed bool
}

// PackStroke builds a triangle list outlining the polyline through points.
//
// Every edge becomes a quad of four vertices. All four sit on the edge
// endpoints in world space and carry an extrusion of half the width across
// the edge and half the width along it, so neighbouring quads overlap at
// corners. Zero-length edges are skipped.
func PackStroke(points [][2]float64, opts StrokeOptions) ([]Vertex, []uint32, error) {
	w := opts.Width
	if !(w > 0) || w > MaxStrokeWidth {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidStrokeWidth, w)
	}
	if len(points) < 2 {
		return nil, nil, fmt.Errorf("%w: stroke needs 2 points, got %d", ErrEmptyGeometry, len(points))
	}

	split := make([]dekker.Vec2, len(points))
	for i, p := range points {
		v, err := dekker.SplitVec2Checked(p[0], p[1])
		if err != nil {
			return nil, nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		split[i] = v
	}

	edges := len(points) - 1
	if opts.Closed && len(points) > 2 {
		edges++
	}
	vs := make([]Vertex, 0, edges*4)
	idx := make([]uint32, 0, edges*6)
	h := float64(w) / 2
	for e := range edges {
		i, j := e, (e+1)%len(points)
		dx, dy := points[j][0]-points[i][0], points[j][1]-points[i][1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		ux, uy := dx/l*h, dy/l*h
		nx, ny := -uy, ux

		base := uint32(len(vs)) //nolint:gosec // bounded by 4*len(points)
		vs = append(vs,
			strokeVertex(split[i], nx-ux, ny-uy, &opts),
			strokeVertex(split[i], -nx-ux, -ny-uy, &opts),
			strokeVertex(split[j], nx+ux, ny+uy, &opts),
			strokeVertex(split[j], -nx+ux, -ny+uy, &opts),
		)
		idx = append(idx, base, base+1, base+2, base+2, base+1, base+3)
	}
	if len(vs) == 0 {
		return nil, nil, fmt.Errorf("%w: every stroke edge has zero length", ErrEmptyGeometry)
	}
	return vs, idx, nil
}

func strokeVertex(pos dekker.Vec2, ex, ey float64, opts *StrokeOptions) Vertex {
	return Vertex{
		PositionHigh: pos.High(),
		PositionLow:  pos.Low(),
		Color:        opts.Color,
		Extrude:      [2]float32{float32(ex), float32(ey)},
	}
}
