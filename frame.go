package ggmap

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/ggmap/transform"
)

// Frame holds the double-precision matrices for one rendered frame.
type Frame struct {
	Model      mgl64.Mat4
	View       mgl64.Mat4
	Projection mgl64.Mat4

	// Width and Height are the target size in pixels.
	Width, Height int
}

// NewFrame builds a frame from a viewport with an identity model matrix.
func NewFrame(vp transform.Viewport) (Frame, error) {
	if err := vp.Validate(); err != nil {
		return Frame{}, err
	}
	view, proj := vp.Matrices()
	return Frame{
		Model:      mgl64.Ident4(),
		View:       view,
		Projection: proj,
		Width:      vp.Width,
		Height:     vp.Height,
	}, nil
}

func (f *Frame) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	return nil
}
