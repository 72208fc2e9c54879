//go:build !nogpu

// Package gpu draws ggmap batches with the compensated fill pipeline on a
// wgpu HAL device.
//
// The device is either shared from a host application through a
// gpucontext.DeviceProvider that also exposes HAL types, or passed in
// directly:
//
//	r, err := gpu.NewRenderer(provider, gpu.DefaultConfig())
//	if err != nil {
//	    // no HAL device available; use DrawBatch.RenderCPU instead
//	}
//	defer r.Destroy()
//	err = r.Render(img, frame, batch)
package gpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ggmap"
	gpuimpl "github.com/gogpu/ggmap/internal/gpu"
	"github.com/gogpu/ggmap/pattern"
)

// Renderer errors.
var (
	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL device and queue.
	ErrNoHALProvider = errors.New("gpu: provider does not expose HAL types")

	// ErrRendererClosed is returned after Destroy.
	ErrRendererClosed = errors.New("gpu: renderer destroyed")

	// ErrTargetMismatch is returned when the destination image does not
	// match the frame size.
	ErrTargetMismatch = errors.New("gpu: destination does not match frame")
)

// Config configures a Renderer.
type Config struct {
	// SampleCount is the MSAA sample count.
	// Default: 4
	SampleCount uint32
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{SampleCount: gpuimpl.DefaultFillPipelineConfig().SampleCount}
}

// Renderer draws batches into RGBA images on the GPU.
//
// Renderer is safe for concurrent use; draws are serialized.
type Renderer struct {
	mu sync.Mutex

	pipeline *gpuimpl.FillPipeline
	target   *gpuimpl.FillTarget

	// white is bound for batches without a pattern.
	white    *gpuimpl.PatternTexture
	patterns map[*pattern.Texture]*gpuimpl.PatternTexture

	closed bool
}

// NewRenderer creates a renderer on a shared device. The provider must
// implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue.
func NewRenderer(provider gpucontext.DeviceProvider, config Config) (*Renderer, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return NewRendererWithDevice(device, queue, config)
}

// NewRendererWithDevice creates a renderer on the given device and queue.
// The renderer does not own them.
func NewRendererWithDevice(device hal.Device, queue hal.Queue, config Config) (*Renderer, error) {
	gpuimpl.SetLogger(ggmap.Logger())

	cfg := gpuimpl.DefaultFillPipelineConfig()
	if config.SampleCount != 0 {
		cfg.SampleCount = config.SampleCount
	}
	p := gpuimpl.NewFillPipeline(device, queue, cfg)
	if err := p.Init(); err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}
	white, err := p.UploadPattern([]byte{0xff, 0xff, 0xff, 0xff}, 1, 1)
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("gpu: %w", err)
	}
	return &Renderer{
		pipeline: p,
		target:   gpuimpl.NewFillTarget(device, queue, cfg.SampleCount),
		white:    white,
		patterns: make(map[*pattern.Texture]*gpuimpl.PatternTexture),
	}, nil
}

// SetLogger sets the logger used by the GPU pipeline. ggmap.SetLogger does
// not reach renderers that already exist; call this as well.
func SetLogger(l *slog.Logger) {
	gpuimpl.SetLogger(l)
}

// CompileShader validates the fill shader and returns its SPIR-V.
func CompileShader() ([]byte, error) {
	return naga.Compile(gpuimpl.FillShaderSource())
}

// Render clears dst and draws the batches into it in order. dst must have
// the frame's size.
func (r *Renderer) Render(dst *image.RGBA, frame ggmap.Frame, batches ...*ggmap.DrawBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	size := dst.Rect.Size()
	if size.X != frame.Width || size.Y != frame.Height {
		return fmt.Errorf("%w: image %v, frame %dx%d", ErrTargetMismatch, size, frame.Width, frame.Height)
	}
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("gpu: %w: size %v", ggmap.ErrInvalidFrame, size)
	}
	w, h := uint32(size.X), uint32(size.Y) //nolint:gosec // checked positive above
	if err := r.target.EnsureTextures(w, h); err != nil {
		return fmt.Errorf("gpu: %w", err)
	}

	draws := make([]gpuimpl.TargetDraw, 0, len(batches))
	defer func() {
		for _, d := range draws {
			r.pipeline.DestroyResources(d.Resources)
		}
	}()
	for i, b := range batches {
		u, err := b.Prepare(frame)
		if err != nil {
			return fmt.Errorf("gpu: batch %d: %w", i, err)
		}
		res, err := r.pipeline.BuildResources(gpuimpl.FillDraw{
			Vertices:   b.VertexBytes(),
			Indices:    b.IndexBytes(),
			IndexCount: uint32(len(b.Indices())), //nolint:gosec // index count fits uint32
			Uniforms:   u.Bytes(),
		})
		if err != nil {
			return fmt.Errorf("gpu: batch %d: %w", i, err)
		}
		draws = append(draws, gpuimpl.TargetDraw{Resources: res})

		pt, err := r.patternFor(b.Pattern())
		if err != nil {
			return fmt.Errorf("gpu: batch %d: %w", i, err)
		}
		draws[len(draws)-1].Pattern = pt.BindGroup()
	}

	buf := dst.Pix
	tight := dst.Stride == size.X*4 && len(dst.Pix) == size.X*size.Y*4
	if !tight {
		buf = make([]byte, size.X*size.Y*4)
	}
	if err := r.target.Render(r.pipeline, draws, buf); err != nil {
		return fmt.Errorf("gpu: %w", err)
	}
	if !tight {
		for y := range size.Y {
			copy(dst.Pix[y*dst.Stride:], buf[y*size.X*4:(y+1)*size.X*4])
		}
	}
	return nil
}

// patternFor returns the uploaded texture of p, uploading it on first use.
func (r *Renderer) patternFor(p *ggmap.Pattern) (*gpuimpl.PatternTexture, error) {
	if p == nil || p.Texture == nil {
		return r.white, nil
	}
	if pt, ok := r.patterns[p.Texture]; ok {
		return pt, nil
	}
	img := p.Texture.RGBA()
	w, h := p.Texture.Size()
	pt, err := r.pipeline.UploadPattern(img.Pix, uint32(w), uint32(h)) //nolint:gosec // texture sizes are small
	if err != nil {
		return nil, err
	}
	r.patterns[p.Texture] = pt
	ggmap.Logger().Debug("gpu: pattern uploaded", "width", w, "height", h)
	return pt, nil
}

// Destroy releases all GPU resources. Safe to call multiple times.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	for _, pt := range r.patterns {
		r.pipeline.DestroyPattern(pt)
	}
	r.patterns = nil
	r.pipeline.DestroyPattern(r.white)
	r.target.Destroy()
	r.pipeline.Destroy()
	r.closed = true
}
