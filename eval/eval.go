// Package eval is the host-side model of the fill vertex stage. It applies a
// split transform to split positions using only float32 operations, in the
// same order as the shader, so results can be checked without a GPU.
package eval

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"

	"github.com/gogpu/ggmap/dekker"
	"github.com/gogpu/ggmap/internal/parallel"
	"github.com/gogpu/ggmap/vertex"
)

// Transform is the per-draw state the vertex stage reads from its uniforms.
type Transform struct {
	// Matrix is the split combined transform.
	Matrix dekker.Mat4

	// Origin is the batch local origin, a float32-exact world position.
	Origin [2]float32

	// Viewport is the target size in pixels. Stroke extrusion needs it.
	Viewport [2]float32
}

// Output is what the vertex stage produces for one vertex.
type Output struct {
	// Clip is the clip-space position.
	Clip [4]float32

	// Local is the vertex position relative to the batch origin.
	Local [2]float32
}

// Evaluator runs the compensated transform.
type Evaluator struct {
	precision dekker.Precision
	pool      *parallel.WorkerPool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPrecision selects whether the lo*lo product term is kept.
func WithPrecision(p dekker.Precision) Option {
	return func(e *Evaluator) { e.precision = p }
}

// WithWorkers evaluates large batches on n goroutines.
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.pool = parallel.NewWorkerPool(n) }
}

// New creates an Evaluator. The default keeps every product term and runs
// on the calling goroutine.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{precision: dekker.PrecisionFull}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close releases the worker pool, if any.
func (e *Evaluator) Close() {
	e.pool.Close()
}

// Precision returns the configured precision.
func (e *Evaluator) Precision() dekker.Precision {
	return e.precision
}

// Apply transforms one position.
//
// Each clip component is the dot product of a matrix row with (x, y, 0, 1)
// carried out in compensated arithmetic:
//
//	c = (m0*x + m1*y) + m3
//
// and collapsed to a single float32 only at the end. The local position is
// (pos.hi - origin) + pos.lo; the subtraction is exact when the position is
// near the origin.
func (e *Evaluator) Apply(t *Transform, pos dekker.Vec2) Output {
	var out Output
	for row := range 4 {
		out.Clip[row] = e.row(&t.Matrix, row, pos)
	}
	out.Local = [2]float32{
		(pos.X.Hi - t.Origin[0]) + pos.X.Lo,
		(pos.Y.Hi - t.Origin[1]) + pos.Y.Lo,
	}
	return out
}

func (e *Evaluator) row(m *dekker.Mat4, row int, pos dekker.Vec2) float32 {
	acc := dekker.Add(
		dekker.MulPrec(m.At(row, 0), pos.X, e.precision),
		dekker.MulPrec(m.At(row, 1), pos.Y, e.precision),
	)
	acc = dekker.Add(acc, m.At(row, 3))
	return acc.Float32()
}

// ApplyVertex transforms a packed vertex, including its stroke extrusion.
func (e *Evaluator) ApplyVertex(t *Transform, v *vertex.Vertex) Output {
	out := e.Apply(t, v.Position())
	out.Clip = Extrude(t, out.Clip, v.Extrude)
	return out
}

// ApplyAll transforms every vertex. Large batches are split across the
// evaluator's workers when it has any.
func (e *Evaluator) ApplyAll(t *Transform, vs []vertex.Vertex) []Output {
	out := make([]Output, len(vs))
	e.pool.For(len(vs), 0, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = e.ApplyVertex(t, &vs[i])
		}
	})
	return out
}

// Naive transforms the high parts only, in plain float32. This is what an
// uncompensated shader computes and is kept for comparison.
func Naive(t *Transform, pos dekker.Vec2) Output {
	m := t.Matrix.High()
	c := m.Mul4x1(mgl32.Vec4{pos.X.Hi, pos.Y.Hi, 0, 1})
	return Output{
		Clip:  [4]float32(c),
		Local: [2]float32{pos.X.Hi - t.Origin[0], pos.Y.Hi - t.Origin[1]},
	}
}

// NaiveAll applies [Naive] to every vertex.
func NaiveAll(t *Transform, vs []vertex.Vertex) []Output {
	out := make([]Output, len(vs))
	for i := range vs {
		out[i] = Naive(t, vs[i].Position())
		out[i].Clip = Extrude(t, out[i].Clip, vs[i].Extrude)
	}
	return out
}

// Reference transforms a world position in double precision. It is the
// ground truth the compensated path is measured against.
func Reference(m mgl64.Mat4, x, y float64) [4]float64 {
	return [4]float64(m.Mul4x1(mgl64.Vec4{x, y, 0, 1}))
}

// Extrude offsets a clip position by ext, a vector in world axes whose
// length is in pixels. The direction reaches the screen through the linear
// part of the transform and the length is restored in pixel space, so a
// stroke keeps its width at any zoom. The offset is small, so the high
// parts of the matrix are enough.
func Extrude(t *Transform, clip [4]float32, ext [2]float32) [4]float32 {
	m := &t.Matrix
	l := [4]float32{m.At(0, 0).Hi, m.At(0, 1).Hi, m.At(1, 0).Hi, m.At(1, 1).Hi}
	return extrude(l, t.Viewport, clip, ext)
}

// ReferenceExtrude is [Extrude] in double precision.
func ReferenceExtrude(m mgl64.Mat4, viewport [2]float64, clip [4]float64, ext [2]float64) [4]float64 {
	l := [4]float64{m.At(0, 0), m.At(0, 1), m.At(1, 0), m.At(1, 1)}
	return extrude(l, viewport, clip, ext)
}

func extrude[T constraints.Float](l [4]T, viewport [2]T, clip [4]T, ext [2]T) [4]T {
	if ext[0] == 0 && ext[1] == 0 {
		return clip
	}
	px := (l[0]*ext[0] + l[1]*ext[1]) * viewport[0] * 0.5
	py := (l[2]*ext[0] + l[3]*ext[1]) * viewport[1] * 0.5
	d := T(math.Sqrt(float64(px*px + py*py)))
	if d == 0 {
		return clip
	}
	s := T(math.Sqrt(float64(ext[0]*ext[0]+ext[1]*ext[1]))) / d
	clip[0] += px * s * 2 / viewport[0] * clip[3]
	clip[1] += py * s * 2 / viewport[1] * clip[3]
	return clip
}

// Widen converts a float32 clip position for comparison with [Reference].
func Widen(c [4]float32) [4]float64 {
	return [4]float64{float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3])}
}
