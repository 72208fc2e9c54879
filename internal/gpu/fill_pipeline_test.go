//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/ggmap"
	"github.com/gogpu/ggmap/pattern"
	"github.com/gogpu/ggmap/transform"
	"github.com/gogpu/ggmap/vertex"
)

// openNoopDevice creates a noop HAL device and queue for pipeline tests.
func openNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func TestFillShaderCompilation(t *testing.T) {
	src := FillShaderSource()
	if src == "" {
		t.Fatal("fill shader source is empty")
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("failed to compile fill shader: %v", err)
	}
	if len(spirv) < 4 || spirv[0] != 0x03 || spirv[1] != 0x02 || spirv[2] != 0x23 || spirv[3] != 0x07 {
		t.Error("output does not start with the SPIR-V magic number")
	}
}

func TestFillShaderInterface(t *testing.T) {
	src := FillShaderSource()
	// uniform fields must appear in the order the host encodes them
	fields := []string{
		"transform_hi: mat4x4<f32>",
		"transform_lo: mat4x4<f32>",
		"origin: vec2<f32>",
		"pattern_phase: vec2<f32>",
		"pattern_scale: vec2<f32>",
		"viewport: vec2<f32>",
		"params: vec4<f32>",
	}
	last := -1
	for _, f := range fields {
		i := strings.Index(src, f)
		if i < 0 {
			t.Fatalf("shader is missing uniform field %q", f)
		}
		if i < last {
			t.Errorf("uniform field %q is out of order", f)
		}
		last = i
	}
	for _, attr := range vertex.Layout().Attributes {
		loc := fmt.Sprintf("@location(%d)", attr.ShaderLocation)
		if !strings.Contains(src, loc) {
			t.Errorf("shader has no vertex input at %s", loc)
		}
	}
	if !strings.Contains(src, "fn extrude(") {
		t.Error("shader has no stroke extrusion")
	}
	if fillUniformSize != ggmap.UniformSize {
		t.Errorf("fillUniformSize = %d, ggmap.UniformSize = %d", fillUniformSize, ggmap.UniformSize)
	}
}

func TestFillPipelineInit(t *testing.T) {
	device, queue, cleanup := openNoopDevice(t)
	defer cleanup()

	p := NewFillPipeline(device, queue, FillPipelineConfig{})
	defer p.Destroy()

	cfg := p.Config()
	if cfg.SampleCount != defaultSampleCount || cfg.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if p.IsInitialized() {
		t.Fatal("pipeline initialized before Init")
	}
	if err := p.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	if !p.IsInitialized() || p.PatternLayout() == nil {
		t.Fatal("pipeline objects missing after Init")
	}
	if err := p.Init(); err != nil {
		t.Fatalf("second Init() = %v", err)
	}

	p.Destroy()
	if p.IsInitialized() {
		t.Error("pipeline still initialized after Destroy")
	}
	p.Destroy()
}

func TestFillPipelineLayoutMismatch(t *testing.T) {
	device, queue, cleanup := openNoopDevice(t)
	defer cleanup()

	layout := vertex.Layout()
	layout.Attributes = layout.Attributes[:3]
	p := NewFillPipeline(device, queue, FillPipelineConfig{VertexLayout: layout})
	defer p.Destroy()

	if err := p.Init(); !errors.Is(err, vertex.ErrLayoutMismatch) {
		t.Errorf("Init() = %v, want ErrLayoutMismatch", err)
	}
	if p.IsInitialized() {
		t.Error("pipeline created despite layout mismatch")
	}
}

func TestNilFillPipeline(t *testing.T) {
	var p *FillPipeline
	if err := p.Init(); !errors.Is(err, ErrNilPipeline) {
		t.Errorf("Init() = %v", err)
	}
	if _, err := p.BuildResources(FillDraw{}); !errors.Is(err, ErrNilPipeline) {
		t.Errorf("BuildResources() = %v", err)
	}
	p.Destroy()
}

func TestBuildResourcesErrors(t *testing.T) {
	device, queue, cleanup := openNoopDevice(t)
	defer cleanup()

	p := NewFillPipeline(device, queue, DefaultFillPipelineConfig())
	defer p.Destroy()

	tests := []struct {
		name string
		draw FillDraw
		want error
	}{
		{"empty", FillDraw{}, ErrEmptyVertexData},
		{"no indices", FillDraw{Vertices: make([]byte, 120), Uniforms: make([]byte, 176)}, ErrEmptyVertexData},
		{"short uniforms", FillDraw{
			Vertices: make([]byte, 120), Indices: make([]byte, 12), IndexCount: 3,
			Uniforms: make([]byte, 96),
		}, ErrUniformSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.BuildResources(tt.draw); !errors.Is(err, tt.want) {
				t.Errorf("BuildResources() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUploadPatternErrors(t *testing.T) {
	device, queue, cleanup := openNoopDevice(t)
	defer cleanup()

	p := NewFillPipeline(device, queue, DefaultFillPipelineConfig())
	defer p.Destroy()

	if _, err := p.UploadPattern(make([]byte, 10), 2, 2); !errors.Is(err, ErrInvalidPatternData) {
		t.Errorf("short data = %v", err)
	}
	if _, err := p.UploadPattern(nil, 0, 0); !errors.Is(err, ErrInvalidPatternData) {
		t.Errorf("zero size = %v", err)
	}
}

func TestFillTargetRenderScenario(t *testing.T) {
	device, queue, cleanup := openNoopDevice(t)
	defer cleanup()

	tex, err := pattern.NewTexture(pattern.Checkerboard(16,
		color.RGBA{255, 0, 0, 255}, color.RGBA{0, 0, 255, 255}))
	if err != nil {
		t.Fatal(err)
	}
	style := ggmap.DefaultStyle()
	style.Pattern = &ggmap.Pattern{TileWidth: 2, TileHeight: 2, Texture: tex}

	cx, cy := 1113195.0, 6446275.0
	b, err := ggmap.NewBatch([][2]float64{
		{cx - 2, cy - 2}, {cx + 2, cy - 2}, {cx + 2, cy + 2}, {cx - 2, cy + 2},
	}, style)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := ggmap.NewFrame(transform.Viewport{
		Center:     [2]float64{cx, cy},
		Resolution: transform.ResolutionForZoom(23),
		Width:      64,
		Height:     64,
	})
	if err != nil {
		t.Fatal(err)
	}
	u, err := b.Prepare(frame)
	if err != nil {
		t.Fatal(err)
	}

	p := NewFillPipeline(device, queue, DefaultFillPipelineConfig())
	defer p.Destroy()

	res, err := p.BuildResources(FillDraw{
		Vertices:   b.VertexBytes(),
		Indices:    b.IndexBytes(),
		IndexCount: uint32(len(b.Indices())),
		Uniforms:   u.Bytes(),
	})
	if err != nil {
		t.Fatalf("BuildResources() = %v", err)
	}
	defer p.DestroyResources(res)
	if res.IndexCount() != 6 {
		t.Errorf("IndexCount() = %d, want 6", res.IndexCount())
	}
	if err := p.UpdateUniforms(res, u.Bytes()); err != nil {
		t.Errorf("UpdateUniforms() = %v", err)
	}

	rgba := tex.RGBA()
	pt, err := p.UploadPattern(rgba.Pix, uint32(rgba.Rect.Dx()), uint32(rgba.Rect.Dy()))
	if err != nil {
		t.Fatalf("UploadPattern() = %v", err)
	}
	defer p.DestroyPattern(pt)
	if w, h := pt.Size(); w != 16 || h != 16 {
		t.Errorf("pattern size = %dx%d", w, h)
	}

	target := NewFillTarget(device, queue, p.Config().SampleCount)
	defer target.Destroy()
	if err := target.EnsureTextures(64, 64); err != nil {
		t.Fatalf("EnsureTextures() = %v", err)
	}
	if err := target.Render(p, []TargetDraw{{Resources: res, Pattern: pt.BindGroup()}}, make([]byte, 64*64*4)); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if err := target.Render(p, nil, make([]byte, 10)); !errors.Is(err, ErrTargetSize) {
		t.Errorf("Render() with short buffer = %v", err)
	}
}

func TestFillTargetResize(t *testing.T) {
	device, queue, cleanup := openNoopDevice(t)
	defer cleanup()

	for _, samples := range []uint32{1, 4} {
		target := NewFillTarget(device, queue, samples)
		if err := target.EnsureTextures(32, 16); err != nil {
			t.Fatal(err)
		}
		if err := target.EnsureTextures(32, 16); err != nil {
			t.Fatal(err)
		}
		if err := target.EnsureTextures(8, 8); err != nil {
			t.Fatal(err)
		}
		if w, h := target.Size(); w != 8 || h != 8 {
			t.Errorf("samples %d: Size() = %dx%d", samples, w, h)
		}
		if (target.msaaTex != nil) != (samples > 1) {
			t.Errorf("samples %d: msaa texture presence wrong", samples)
		}
		target.Destroy()
		target.Destroy()
	}
}

func TestBGRAToRGBA(t *testing.T) {
	src := []byte{1, 2, 3, 4, 10, 20, 30, 40}
	dst := make([]byte, len(src))
	bgraToRGBA(dst, src)
	want := []byte{3, 2, 1, 4, 30, 20, 10, 40}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("bgraToRGBA() = %v, want %v", dst, want)
		}
	}
}

func TestWaitResult(t *testing.T) {
	lost := errors.New("device lost")
	tests := []struct {
		name     string
		signaled bool
		err      error
		want     error
	}{
		{"signaled", true, nil, nil},
		{"timeout", false, nil, ErrGPUTimeout},
		{"device error", false, lost, lost},
		{"error wins", true, lost, lost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := waitResult(tt.signaled, tt.err)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("waitResult() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("waitResult() = %v, want %v", err, tt.want)
			}
			if tt.err != nil && errors.Is(err, ErrGPUTimeout) {
				t.Errorf("waitResult() = %v reports a timeout for a device error", err)
			}
		})
	}
}
