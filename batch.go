package ggmap

import (
	"fmt"
	"math"

	"github.com/gogpu/ggmap/dekker"
	"github.com/gogpu/ggmap/eval"
	"github.com/gogpu/ggmap/pattern"
	"github.com/gogpu/ggmap/transform"
	"github.com/gogpu/ggmap/vertex"
)

// maxLocalExtent is the batch half-extent, in world units, above which local
// positions stop resolving a centimetre in float32.
const maxLocalExtent = 1 << 17

// DrawBatch is a set of triangles sharing one style and one local origin.
//
// A batch is immutable after creation and may be prepared for any number of
// frames. Vertex and index data are packed once.
type DrawBatch struct {
	vertices []vertex.Vertex
	indices  []uint32
	origin   [2]float32
	style    Style
	sampler  *pattern.Sampler
	stroke   bool

	precision dekker.Precision
	cache     *transform.Cache
	workers   int
}

// NewBatch packs world positions into a batch.
func NewBatch(positions [][2]float64, style Style, opts ...BatchOption) (*DrawBatch, error) {
	o := defaultBatchOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := &DrawBatch{
		style:     style,
		precision: o.precision,
		cache:     o.cache,
		workers:   o.workers,
	}

	vopts := vertex.Options{
		Color:         premultiplied(style.Color),
		PatternOffset: o.patternOffset,
	}
	var err error
	if o.workers > 1 {
		p := vertex.NewPacker(vopts, o.workers)
		b.vertices, err = p.Pack(positions)
		p.Close()
	} else {
		b.vertices, err = vertex.PackWith(positions, vopts)
	}
	if err != nil {
		return nil, fmt.Errorf("ggmap: %w", err)
	}

	b.indices = o.indices
	if b.indices == nil {
		if len(positions) < 3 {
			return nil, ErrNoTriangles
		}
		b.indices = vertex.FanIndices(len(positions))
	}
	if err := vertex.ValidateIndices(b.indices, len(b.vertices)); err != nil {
		return nil, fmt.Errorf("ggmap: %w", err)
	}

	if p := style.Pattern; p != nil {
		if p.Texture == nil {
			return nil, fmt.Errorf("ggmap: %w", pattern.ErrNilTexture)
		}
		if b.sampler, err = pattern.NewSampler(p.TileWidth, p.TileHeight); err != nil {
			return nil, fmt.Errorf("ggmap: %w", err)
		}
	}
	if err := b.placeOrigin(positions); err != nil {
		return nil, err
	}
	return b, nil
}

// NewStrokeBatch packs the outline of a ring drawn with style.Stroke. Each
// edge becomes a quad whose width is fixed in pixels; the fill color and
// pattern of the style are not used.
func NewStrokeBatch(positions [][2]float64, style Style, opts ...BatchOption) (*DrawBatch, error) {
	if style.Stroke == nil {
		return nil, ErrNoStroke
	}
	o := defaultBatchOptions()
	for _, opt := range opts {
		opt(&o)
	}

	vs, idx, err := vertex.PackStroke(positions, vertex.StrokeOptions{
		Color:  premultiplied(style.Stroke.Color),
		Width:  style.Stroke.Width,
		Closed: !o.openStroke,
	})
	if err != nil {
		return nil, fmt.Errorf("ggmap: %w", err)
	}
	b := &DrawBatch{
		vertices:  vs,
		indices:   idx,
		style:     style,
		stroke:    true,
		precision: o.precision,
		cache:     o.cache,
		workers:   o.workers,
	}
	if err := b.placeOrigin(positions); err != nil {
		return nil, err
	}
	return b, nil
}

// placeOrigin sets the local origin from the batch bounds.
func (b *DrawBatch) placeOrigin(positions [][2]float64) error {
	var err error
	if b.origin, err = vertex.Origin(positions); err != nil {
		return fmt.Errorf("ggmap: %w", err)
	}

	lo, hi := vertex.Bounds(positions)
	if ext := max(hi[0]-lo[0], hi[1]-lo[1]) / 2; ext > maxLocalExtent {
		Logger().Warn("ggmap: batch extent exceeds local frame precision",
			"halfExtent", ext, "limit", maxLocalExtent)
	}
	Logger().Debug("ggmap: batch packed",
		"vertices", len(b.vertices),
		"triangles", len(b.indices)/3,
		"stroke", b.stroke,
		"originX", b.origin[0],
		"originY", b.origin[1])
	return nil
}

// Prepare computes the uniform block for one frame. The model, view and
// projection matrices are composed in double precision and split once.
func (b *DrawBatch) Prepare(f Frame) (Uniforms, error) {
	if b == nil {
		return Uniforms{}, ErrNilBatch
	}
	if err := f.validate(); err != nil {
		return Uniforms{}, err
	}

	var (
		m   dekker.Mat4
		err error
	)
	if b.cache != nil {
		m, err = b.cache.Build(f.Model, f.View, f.Projection)
	} else {
		m, err = transform.Build(f.Model, f.View, f.Projection)
	}
	if err != nil {
		return Uniforms{}, fmt.Errorf("ggmap: %w", err)
	}

	u := Uniforms{
		Transform: m,
		Origin:    b.origin,
		Viewport:  [2]float32{float32(f.Width), float32(f.Height)},
		Opacity:   b.style.Opacity,
		Precision: b.precision,
	}
	if b.sampler != nil {
		params := b.sampler.Params(b.origin)
		u.PatternEnabled = true
		u.PatternPhase = params.Phase
		u.PatternScale = params.Scale
	}
	return u, nil
}

// Vertices returns the packed vertices. The slice must not be modified.
func (b *DrawBatch) Vertices() []vertex.Vertex { return b.vertices }

// Indices returns the triangle list.
func (b *DrawBatch) Indices() []uint32 { return b.indices }

// Origin returns the batch local origin.
func (b *DrawBatch) Origin() [2]float32 { return b.origin }

// Style returns the batch style.
func (b *DrawBatch) Style() Style { return b.style }

// IsStroke reports whether the batch outlines geometry instead of filling it.
func (b *DrawBatch) IsStroke() bool { return b.stroke }

// Pattern returns the fill pattern the batch samples, or nil.
func (b *DrawBatch) Pattern() *Pattern {
	if b.sampler == nil {
		return nil
	}
	return b.style.Pattern
}

// VertexBytes returns the vertex buffer contents.
func (b *DrawBatch) VertexBytes() []byte { return vertex.Bytes(b.vertices) }

// IndexBytes returns the index buffer contents.
func (b *DrawBatch) IndexBytes() []byte { return vertex.IndexBytes(b.indices) }

// Evaluate runs the compensated vertex stage on the host. A nil batch
// yields nil.
func (b *DrawBatch) Evaluate(u Uniforms) []eval.Output {
	if b == nil {
		return nil
	}
	opts := []eval.Option{eval.WithPrecision(u.Precision)}
	if b.workers > 1 && len(b.vertices) > 1024 {
		opts = append(opts, eval.WithWorkers(b.workers))
	}
	e := eval.New(opts...)
	defer e.Close()

	t := u.EvalTransform()
	return e.ApplyAll(&t, b.vertices)
}

// EvaluateNaive runs the uncompensated vertex stage, which uses only the
// high parts of the transform and positions. A nil batch yields nil.
func (b *DrawBatch) EvaluateNaive(u Uniforms) []eval.Output {
	if b == nil {
		return nil
	}
	t := u.EvalTransform()
	return eval.NaiveAll(&t, b.vertices)
}

// MaxPixelError returns the largest pixel distance between the evaluated
// clip positions and the double-precision reference, stroke extrusion
// included. Outputs past the batch's vertex count are ignored.
func (b *DrawBatch) MaxPixelError(f Frame, out []eval.Output) float64 {
	if b == nil {
		return 0
	}
	m := transform.Compose(f.Model, f.View, f.Projection)
	viewport := [2]float64{float64(f.Width), float64(f.Height)}
	var worst float64
	for i := range min(len(out), len(b.vertices)) {
		v := &b.vertices[i]
		w := v.World()
		ref := eval.Reference(m, w[0], w[1])
		ref = eval.ReferenceExtrude(m, viewport, ref, [2]float64{float64(v.Extrude[0]), float64(v.Extrude[1])})
		got := eval.Widen(out[i].Clip)
		px, py := clipToPixel(ref, f.Width, f.Height)
		gx, gy := clipToPixel(got, f.Width, f.Height)
		worst = max(worst, math.Abs(px-gx), math.Abs(py-gy))
	}
	return worst
}

func clipToPixel(c [4]float64, w, h int) (x, y float64) {
	return (c[0]/c[3] + 1) * float64(w) / 2, (1 - c[1]/c[3]) * float64(h) / 2
}
