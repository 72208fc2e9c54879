package ggmap

import (
	"github.com/gogpu/ggmap/dekker"
	"github.com/gogpu/ggmap/transform"
)

// BatchOption configures a DrawBatch during creation.
//
// Example:
//
//	b, err := ggmap.NewBatch(ring, style,
//	    ggmap.WithIndices(tris),
//	    ggmap.WithTransformCache(cache),
//	)
type BatchOption func(*batchOptions)

type batchOptions struct {
	indices       []uint32
	patternOffset [2]float32
	precision     dekker.Precision
	cache         *transform.Cache
	workers       int
	openStroke    bool
}

func defaultBatchOptions() batchOptions {
	return batchOptions{precision: dekker.PrecisionFull}
}

// WithIndices sets the triangle list. Without it the positions are treated
// as a convex ring and fanned from the first vertex.
func WithIndices(idx []uint32) BatchOption {
	return func(o *batchOptions) {
		o.indices = idx
	}
}

// WithPatternOffset shifts the pattern of every vertex by offset tiles.
func WithPatternOffset(offset [2]float32) BatchOption {
	return func(o *batchOptions) {
		o.patternOffset = offset
	}
}

// WithPrecision selects whether the vertex stage keeps the low x low
// product term. The default is [dekker.PrecisionFull].
func WithPrecision(p dekker.Precision) BatchOption {
	return func(o *batchOptions) {
		o.precision = p
	}
}

// WithTransformCache shares split matrices between batches drawn with the
// same frame.
func WithTransformCache(c *transform.Cache) BatchOption {
	return func(o *batchOptions) {
		o.cache = c
	}
}

// WithWorkers packs and evaluates large batches on n goroutines.
func WithWorkers(n int) BatchOption {
	return func(o *batchOptions) {
		o.workers = n
	}
}

// WithOpenStroke strokes the positions as an open line. By default
// NewStrokeBatch closes the ring.
func WithOpenStroke() BatchOption {
	return func(o *batchOptions) {
		o.openStroke = true
	}
}
