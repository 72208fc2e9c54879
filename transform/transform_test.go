package transform

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func scenarioViewport() Viewport {
	return Viewport{
		Center:     [2]float64{1113195, 6446275},
		Resolution: ResolutionForZoom(23),
		Width:      256,
		Height:     256,
	}
}

func TestResolutionForZoom(t *testing.T) {
	tests := []struct {
		zoom float64
		want float64
	}{
		{0, 156543.03392804097},
		{1, 78271.51696402048},
		{23, 0.01866138385868561},
	}
	for _, tt := range tests {
		got := ResolutionForZoom(tt.zoom)
		if math.Abs(got-tt.want) > tt.want*1e-12 {
			t.Errorf("ResolutionForZoom(%v) = %v, want %v", tt.zoom, got, tt.want)
		}
		if z := ZoomForResolution(got); math.Abs(z-tt.zoom) > 1e-9 {
			t.Errorf("ZoomForResolution(%v) = %v, want %v", got, z, tt.zoom)
		}
	}
}

func TestBuildIdentity(t *testing.T) {
	m, err := Build(mgl64.Ident4(), mgl64.Ident4(), mgl64.Ident4())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i, p := range m {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if p.Hi != want || p.Lo != 0 {
			t.Errorf("element %d = %+v, want {%v 0}", i, p, want)
		}
	}
}

func TestBuildComposesInDoublePrecision(t *testing.T) {
	vp := scenarioViewport()
	view, proj := vp.Matrices()
	model := mgl64.Translate3D(12.5, -3.25, 0)

	m, err := Build(model, view, proj)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := Compose(model, view, proj)
	got := m.Float64()
	for i := range want {
		if math.Abs(got[i]-want[i]) > math.Abs(want[i])*math.Ldexp(1, -46) {
			t.Errorf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
	// translation must keep sub-unit detail that float32 alone drops
	tx := want.At(0, 3)
	if float64(float32(tx)) == tx {
		t.Skip("translation happens to be float32-exact")
	}
	if m.At(0, 3).Lo == 0 {
		t.Error("translation low part is zero, precision was lost")
	}
}

func TestBuildMalformed(t *testing.T) {
	bad := mgl64.Ident4()
	bad[12] = math.NaN()

	tests := []struct {
		name                    string
		model, view, projection mgl64.Mat4
	}{
		{"nan model", bad, mgl64.Ident4(), mgl64.Ident4()},
		{"nan view", mgl64.Ident4(), bad, mgl64.Ident4()},
		{"inf projection", mgl64.Ident4(), mgl64.Ident4(), mgl64.Scale3D(math.Inf(1), 1, 1)},
		{"overflowing product", mgl64.Scale3D(1e30, 1, 1), mgl64.Scale3D(1e30, 1, 1), mgl64.Ident4()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.model, tt.view, tt.projection)
			if !errors.Is(err, ErrMalformedMatrix) {
				t.Errorf("Build error = %v, want ErrMalformedMatrix", err)
			}
		})
	}
}

func TestBuildLargeInputsAllowed(t *testing.T) {
	// elements beyond float32 range are fine as long as the product fits
	model := mgl64.Scale3D(1e40, 1e40, 1)
	view := mgl64.Scale3D(1e-40, 1e-40, 1)
	if _, err := Build(model, view, mgl64.Ident4()); err != nil {
		t.Errorf("Build: %v", err)
	}
}

func TestBuildAffine(t *testing.T) {
	model := mgl64.Translate2D(1113195, 6446275)
	view := mgl64.Scale2D(2, 2).Mul3(mgl64.Translate2D(-1113195, -6446275))
	m, err := BuildAffine(model, view, mgl64.Ident3())
	if err != nil {
		t.Fatalf("BuildAffine: %v", err)
	}
	if got := m.At(0, 0).Float64(); got != 2 {
		t.Errorf("scale = %v, want 2", got)
	}
	if got := m.At(0, 2).Float64(); got != 0 {
		t.Errorf("translation = %v, want 0", got)
	}

	bad := mgl64.Ident3()
	bad[0] = math.Inf(-1)
	if _, err := BuildAffine(bad, view, mgl64.Ident3()); !errors.Is(err, ErrMalformedMatrix) {
		t.Errorf("BuildAffine error = %v, want ErrMalformedMatrix", err)
	}
}

func TestViewportCenterMapsToMiddle(t *testing.T) {
	vp := scenarioViewport()
	vp.Rotation = 0.3
	view, proj := vp.Matrices()
	clip := Compose(mgl64.Ident4(), view, proj).Mul4x1(mgl64.Vec4{vp.Center[0], vp.Center[1], 0, 1})
	px := vp.ClipToPixel([4]float64(clip))
	if math.Abs(px[0]-128) > 1e-6 || math.Abs(px[1]-128) > 1e-6 {
		t.Errorf("center maps to %v, want (128, 128)", px)
	}
}

func TestViewportPixelScale(t *testing.T) {
	vp := scenarioViewport()
	view, proj := vp.Matrices()
	m := Compose(mgl64.Ident4(), view, proj)

	// one resolution step to the right and up is one pixel right and up
	p := mgl64.Vec4{vp.Center[0] + vp.Resolution, vp.Center[1] + vp.Resolution, 0, 1}
	px := vp.ClipToPixel([4]float64(m.Mul4x1(p)))
	if math.Abs(px[0]-129) > 1e-6 || math.Abs(px[1]-127) > 1e-6 {
		t.Errorf("offset point maps to %v, want (129, 127)", px)
	}
}

func TestViewportValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Viewport)
	}{
		{"zero width", func(v *Viewport) { v.Width = 0 }},
		{"negative height", func(v *Viewport) { v.Height = -1 }},
		{"zero resolution", func(v *Viewport) { v.Resolution = 0 }},
		{"nan resolution", func(v *Viewport) { v.Resolution = math.NaN() }},
		{"inf center", func(v *Viewport) { v.Center[1] = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := scenarioViewport()
			tt.mod(&vp)
			if err := vp.Validate(); !errors.Is(err, ErrInvalidViewport) {
				t.Errorf("Validate() = %v, want ErrInvalidViewport", err)
			}
			if _, err := vp.Build(mgl64.Ident4()); err == nil {
				t.Error("Build accepted an invalid viewport")
			}
		})
	}
	if err := scenarioViewport().Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestViewportPixelPosition(t *testing.T) {
	vp := scenarioViewport()
	got := vp.PixelPosition()
	want := math.Hypot(1113195, 6446275) / ResolutionForZoom(23)
	if got != want {
		t.Errorf("PixelPosition() = %v, want %v", got, want)
	}
	if got < 1<<24 {
		t.Errorf("scenario should sit beyond float32 pixel precision, got %v", got)
	}
}

func TestClipErrorToPixels(t *testing.T) {
	vp := scenarioViewport()
	px, py := vp.ClipErrorToPixels(0.01, -0.02)
	if px != 1.28 || py != -2.56 {
		t.Errorf("ClipErrorToPixels = (%v, %v), want (1.28, -2.56)", px, py)
	}
}

func TestFromLonLat(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		want     [2]float64
	}{
		{"origin", 0, 0, [2]float64{0, 0}},
		{"antimeridian", 180, 0, [2]float64{20037508.342789244, 0}},
		{"amsterdam", 4.9, 52.37, [2]float64{545465.5049, 6867304.6868}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromLonLat(tt.lon, tt.lat)
			if math.Abs(got[0]-tt.want[0]) > 1e-3 || math.Abs(got[1]-tt.want[1]) > 1e-3 {
				t.Errorf("FromLonLat(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
			}
		})
	}
}
