package vertex

import (
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/ggmap/dekker"
	"github.com/gogpu/ggmap/internal/parallel"
)

// parallelThreshold is the vertex count below which packing stays on the
// calling goroutine.
const parallelThreshold = 4096

// Pack splits every position with [DefaultOptions]. Errors identify the
// offending vertex by index.
func Pack(points [][2]float64) ([]Vertex, error) {
	return PackWith(points, DefaultOptions())
}

// PackWith splits every position and applies opts to each vertex.
func PackWith(points [][2]float64, opts Options) ([]Vertex, error) {
	if len(points) == 0 {
		return nil, ErrEmptyGeometry
	}
	out := make([]Vertex, len(points))
	for i, p := range points {
		if err := packOne(&out[i], p, &opts); err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return out, nil
}

// Packer packs large batches across a worker pool.
//
// A Packer must be closed when no longer needed.
type Packer struct {
	opts Options
	pool *parallel.WorkerPool
}

// NewPacker creates a packer using the given number of workers.
// workers <= 0 uses GOMAXPROCS.
func NewPacker(opts Options, workers int) *Packer {
	return &Packer{
		opts: opts,
		pool: parallel.NewWorkerPool(workers),
	}
}

// Pack is the parallel equivalent of [PackWith]. When several vertices are
// invalid the error reports the lowest index, matching the sequential path.
func (p *Packer) Pack(points [][2]float64) ([]Vertex, error) {
	if len(points) < parallelThreshold {
		return PackWith(points, p.opts)
	}

	out := make([]Vertex, len(points))
	var (
		mu       sync.Mutex
		firstIdx = len(points)
		firstErr error
	)
	p.pool.For(len(points), parallelThreshold, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if err := packOne(&out[i], points[i], &p.opts); err != nil {
				mu.Lock()
				if i < firstIdx {
					firstIdx, firstErr = i, err
				}
				mu.Unlock()
				return
			}
		}
	})
	if firstErr != nil {
		return nil, fmt.Errorf("vertex %d: %w", firstIdx, firstErr)
	}
	return out, nil
}

// PackBatches packs each batch independently.
func (p *Packer) PackBatches(batches [][][2]float64) ([][]Vertex, error) {
	out := make([][]Vertex, len(batches))
	for i, b := range batches {
		vs, err := p.Pack(b)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		out[i] = vs
	}
	return out, nil
}

// Close releases the packer's workers.
func (p *Packer) Close() {
	p.pool.Close()
}

// Bounds returns the axis-aligned bounding box of the points.
func Bounds(points [][2]float64) (lo, hi [2]float64) {
	lo = [2]float64{math.Inf(1), math.Inf(1)}
	hi = [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		lo[0], lo[1] = min(lo[0], p[0]), min(lo[1], p[1])
		hi[0], hi[1] = max(hi[0], p[0]), max(hi[1], p[1])
	}
	return lo, hi
}

// Origin picks the local origin for a batch: the high part of the split
// center of its bounding box. Because it is itself a float32 the shader
// can subtract it from position_high without rounding.
func Origin(points [][2]float64) ([2]float32, error) {
	if len(points) == 0 {
		return [2]float32{}, ErrEmptyGeometry
	}
	lo, hi := Bounds(points)
	c, err := dekker.SplitVec2Checked(lo[0]/2+hi[0]/2, lo[1]/2+hi[1]/2)
	if err != nil {
		return [2]float32{}, fmt.Errorf("origin: %w", err)
	}
	return c.High(), nil
}
