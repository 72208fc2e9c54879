// Package transform composes model, view and projection matrices in double
// precision and splits the result for single-precision GPU evaluation.
//
// The composition happens once per draw on the host:
//
//	combined = projection * view * model
//
// Each element of combined is then split with [dekker.Split], yielding the
// transform_hi and transform_lo matrices consumed by the vertex stage. The
// split happens after the product because multiplying already-split matrices
// would reintroduce float32 rounding in every intermediate term.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/ggmap/dekker"
)

// ErrMalformedMatrix is returned when a matrix contains NaN or infinite
// elements, or when the composed transform overflows float32.
var ErrMalformedMatrix = errors.New("transform: malformed matrix")

// Compose returns projection * view * model in double precision.
func Compose(model, view, projection mgl64.Mat4) mgl64.Mat4 {
	return projection.Mul4(view).Mul4(model)
}

// Build composes the three matrices and splits the product.
func Build(model, view, projection mgl64.Mat4) (dekker.Mat4, error) {
	for _, in := range []struct {
		name string
		m    mgl64.Mat4
	}{{"model", model}, {"view", view}, {"projection", projection}} {
		if err := finite(in.m[:]); err != nil {
			return dekker.Mat4{}, fmt.Errorf("%w: %s %w", ErrMalformedMatrix, in.name, err)
		}
	}
	combined, err := dekker.SplitMat4Checked(Compose(model, view, projection))
	if err != nil {
		return dekker.Mat4{}, fmt.Errorf("%w: combined %w", ErrMalformedMatrix, err)
	}
	return combined, nil
}

// BuildAffine is the 2D variant of [Build] for pipelines that carry a 3x3
// affine transform instead of a full 4x4 projection.
func BuildAffine(model, view, projection mgl64.Mat3) (dekker.Mat3, error) {
	for _, in := range []struct {
		name string
		m    mgl64.Mat3
	}{{"model", model}, {"view", view}, {"projection", projection}} {
		if err := finite(in.m[:]); err != nil {
			return dekker.Mat3{}, fmt.Errorf("%w: %s %w", ErrMalformedMatrix, in.name, err)
		}
	}
	combined, err := dekker.SplitMat3Checked(projection.Mul3(view).Mul3(model))
	if err != nil {
		return dekker.Mat3{}, fmt.Errorf("%w: combined %w", ErrMalformedMatrix, err)
	}
	return combined, nil
}

// finite rejects NaN and infinite elements. Input matrices may legitimately
// hold values beyond float32 range; only the composed product must fit.
func finite(elems []float64) error {
	for i, v := range elems {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("element %d is %v", i, v)
		}
	}
	return nil
}
