package ggmap

import "errors"

// Batch errors.
var (
	// ErrNilBatch is returned when a method is called on a nil batch.
	ErrNilBatch = errors.New("ggmap: nil batch")

	// ErrNoTriangles is returned when a batch has fewer than three vertices
	// and no explicit indices.
	ErrNoTriangles = errors.New("ggmap: batch has no triangles")

	// ErrNoStroke is returned by NewStrokeBatch for a style without a
	// stroke.
	ErrNoStroke = errors.New("ggmap: style has no stroke")

	// ErrInvalidFrame is returned for a frame with a non-positive size.
	ErrInvalidFrame = errors.New("ggmap: invalid frame")
)
