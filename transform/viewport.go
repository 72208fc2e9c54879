package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/ggmap/dekker"
)

// MercatorResolution0 is the web mercator ground resolution at zoom 0 for
// 256 px tiles, in meters per pixel: 2*pi*6378137/256.
const MercatorResolution0 = 156543.03392804097

// ErrInvalidViewport is returned by [Viewport.Validate].
var ErrInvalidViewport = errors.New("transform: invalid viewport")

// ResolutionForZoom returns the web mercator resolution for a zoom level.
func ResolutionForZoom(zoom float64) float64 {
	return MercatorResolution0 / math.Exp2(zoom)
}

// ZoomForResolution is the inverse of [ResolutionForZoom].
func ZoomForResolution(resolution float64) float64 {
	return math.Log2(MercatorResolution0 / resolution)
}

// Viewport describes a 2D map view: which world coordinate sits at the
// center of the output, at what resolution, and how the map is rotated.
type Viewport struct {
	// Center is the world coordinate at the middle of the output.
	Center [2]float64

	// Resolution is world units per pixel.
	Resolution float64

	// Rotation of the view in radians. Positive values turn the map
	// clockwise on screen.
	Rotation float64

	// Width and Height of the output in pixels.
	Width, Height int
}

// Validate reports whether the viewport can produce finite matrices.
func (v Viewport) Validate() error {
	switch {
	case v.Width <= 0 || v.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidViewport, v.Width, v.Height)
	case !(v.Resolution > 0) || math.IsInf(v.Resolution, 0):
		return fmt.Errorf("%w: resolution %v", ErrInvalidViewport, v.Resolution)
	case math.IsNaN(v.Center[0]) || math.IsNaN(v.Center[1]) ||
		math.IsInf(v.Center[0], 0) || math.IsInf(v.Center[1], 0):
		return fmt.Errorf("%w: center %v", ErrInvalidViewport, v.Center)
	}
	return nil
}

// View maps world coordinates to pixel offsets from the viewport center,
// y pointing up.
func (v Viewport) View() mgl64.Mat4 {
	s := 1 / v.Resolution
	return mgl64.Scale3D(s, s, 1).
		Mul4(mgl64.HomogRotate3DZ(-v.Rotation)).
		Mul4(mgl64.Translate3D(-v.Center[0], -v.Center[1], 0))
}

// Projection maps pixel offsets from the center to clip space.
func (v Viewport) Projection() mgl64.Mat4 {
	return mgl64.Scale3D(2/float64(v.Width), 2/float64(v.Height), 1)
}

// Matrices returns the view and projection matrices.
func (v Viewport) Matrices() (view, projection mgl64.Mat4) {
	return v.View(), v.Projection()
}

// Build composes and splits the transform for geometry drawn with model.
func (v Viewport) Build(model mgl64.Mat4) (dekker.Mat4, error) {
	if err := v.Validate(); err != nil {
		return dekker.Mat4{}, err
	}
	view, proj := v.Matrices()
	return Build(model, view, proj)
}

// ClipToPixel converts a clip-space position to pixel coordinates with the
// origin at the top-left corner and y pointing down.
func (v Viewport) ClipToPixel(clip [4]float64) [2]float64 {
	w := clip[3]
	if w == 0 {
		w = 1
	}
	return [2]float64{
		(clip[0]/w + 1) * float64(v.Width) / 2,
		(1 - clip[1]/w) * float64(v.Height) / 2,
	}
}

// ClipErrorToPixels scales a clip-space error to pixels along each axis.
func (v Viewport) ClipErrorToPixels(dx, dy float64) (px, py float64) {
	return dx * float64(v.Width) / 2, dy * float64(v.Height) / 2
}

// PixelPosition is the distance of the center from the world origin,
// measured in output pixels. float32 runs out of precision once this
// exceeds about 2^24.
func (v Viewport) PixelPosition() float64 {
	return math.Hypot(v.Center[0], v.Center[1]) / v.Resolution
}

// MercatorRadius is the sphere radius of web mercator, in meters.
const MercatorRadius = 6378137

// FromLonLat projects a longitude and latitude in degrees to web mercator
// meters.
func FromLonLat(lon, lat float64) [2]float64 {
	return [2]float64{
		MercatorRadius * lon * math.Pi / 180,
		MercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360)),
	}
}
