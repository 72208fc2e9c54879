//go:build !nogpu

package gpu

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ggmap/vertex"
)

// Embedded compensated fill shader source.
//
//go:embed shaders/fill_pattern.wgsl
var fillShaderSource string

// FillShaderSource returns the WGSL source of the compensated fill shader.
func FillShaderSource() string {
	return fillShaderSource
}

// Fill pipeline errors.
var (
	// ErrNilPipeline is returned when operating on a nil pipeline.
	ErrNilPipeline = errors.New("gpu: fill pipeline is nil")

	// ErrPipelineNotInitialized is returned when drawing before the
	// pipeline objects exist.
	ErrPipelineNotInitialized = errors.New("gpu: fill pipeline not initialized")

	// ErrEmptyVertexData is returned for a draw without vertices or indices.
	ErrEmptyVertexData = errors.New("gpu: empty vertex data")

	// ErrUniformSize is returned when the uniform block has the wrong size.
	ErrUniformSize = errors.New("gpu: wrong uniform block size")
)

// fillUniformSize is the byte size of FillUniforms in fill_pattern.wgsl.
const fillUniformSize = 176

// defaultSampleCount is the MSAA sample count for map fills.
const defaultSampleCount = 4

// FillPipelineConfig holds configuration for the fill pipeline.
type FillPipelineConfig struct {
	// Format is the color target format.
	// Default: BGRA8Unorm
	Format gputypes.TextureFormat

	// SampleCount is the MSAA sample count of the color target.
	// Default: 4
	SampleCount uint32

	// VertexLayout is the layout of the vertex buffers that will be bound.
	// It is checked against the shader inputs once, when the pipeline is
	// created. Default: vertex.Layout()
	VertexLayout gputypes.VertexBufferLayout
}

// DefaultFillPipelineConfig returns default configuration.
func DefaultFillPipelineConfig() FillPipelineConfig {
	return FillPipelineConfig{
		Format:       gputypes.TextureFormatBGRA8Unorm,
		SampleCount:  defaultSampleCount,
		VertexLayout: vertex.Layout(),
	}
}

// FillPipeline draws compensated map geometry with an optional repeating
// pattern.
//
// Architecture:
//
//	FillPipeline owns shader, layouts, pipeline, sampler
//	FillResources own per-batch vertex, index and uniform buffers
//	pattern bind groups are created per PatternTexture (texture + sampler)
type FillPipeline struct {
	device hal.Device
	queue  hal.Queue
	config FillPipelineConfig

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	patternLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline

	// sampler repeats nothing itself; the shader wraps coordinates with
	// fract before sampling.
	sampler hal.Sampler
}

// NewFillPipeline creates a fill pipeline. GPU objects are created lazily
// by Init or the first BuildResources call.
func NewFillPipeline(device hal.Device, queue hal.Queue, config FillPipelineConfig) *FillPipeline {
	def := DefaultFillPipelineConfig()
	if config.Format == gputypes.TextureFormatUndefined {
		config.Format = def.Format
	}
	if config.SampleCount == 0 {
		config.SampleCount = def.SampleCount
	}
	if config.VertexLayout.ArrayStride == 0 {
		config.VertexLayout = def.VertexLayout
	}
	return &FillPipeline{device: device, queue: queue, config: config}
}

// Config returns the pipeline configuration.
func (p *FillPipeline) Config() FillPipelineConfig {
	return p.config
}

// Init creates the shader, layouts, sampler and render pipeline. It is a
// no-op when they already exist.
func (p *FillPipeline) Init() error {
	if p == nil {
		return ErrNilPipeline
	}
	if p.pipeline != nil {
		return nil
	}
	if err := vertex.ValidateLayout(p.config.VertexLayout, vertex.Layout()); err != nil {
		return fmt.Errorf("fill pipeline: %w", err)
	}
	if err := p.createPipeline(); err != nil {
		p.destroyPipeline()
		return err
	}
	slogger().Info("gpu: fill pipeline created",
		"samples", p.config.SampleCount,
		"format", p.config.Format)
	return nil
}

// IsInitialized reports whether Init has succeeded.
func (p *FillPipeline) IsInitialized() bool {
	return p != nil && p.pipeline != nil
}

func (p *FillPipeline) createPipeline() error {
	if fillShaderSource == "" {
		return fmt.Errorf("fill_pattern shader source is empty")
	}

	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "fill_pattern_shader",
		Source: hal.ShaderSource{WGSL: fillShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile fill_pattern shader: %w", err)
	}
	p.shader = shader

	// Group 0: FillUniforms (vertex + fragment).
	uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fill_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create fill uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	// Group 1: pattern texture and sampler (fragment).
	patternLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fill_pattern_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create fill pattern layout: %w", err)
	}
	p.patternLayout = patternLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fill_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout, p.patternLayout},
	})
	if err != nil {
		return fmt.Errorf("create fill pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "fill_pattern_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create fill pattern sampler: %w", err)
	}
	p.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "fill_pattern_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{p.config.VertexLayout},
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.config.Format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: p.config.SampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create fill pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// PatternLayout returns the layout of bind group 1.
func (p *FillPipeline) PatternLayout() hal.BindGroupLayout {
	return p.patternLayout
}

// CreatePatternGroup binds a pattern texture view with the pipeline's
// sampler as group 1.
func (p *FillPipeline) CreatePatternGroup(view hal.TextureView) (hal.BindGroup, error) {
	if !p.IsInitialized() {
		return nil, ErrPipelineNotInitialized
	}
	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fill_pattern_bind",
		Layout: p.patternLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create pattern bind group: %w", err)
	}
	return bg, nil
}

// FillDraw is the host data of one batch draw.
type FillDraw struct {
	Vertices   []byte
	Indices    []byte
	IndexCount uint32
	Uniforms   []byte
}

// FillResources holds the GPU buffers and uniform bind group of one batch.
type FillResources struct {
	vertBuf    hal.Buffer
	idxBuf     hal.Buffer
	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup
	indexCount uint32
}

// IndexCount returns the number of indices drawn.
func (r *FillResources) IndexCount() uint32 {
	return r.indexCount
}

// BuildResources uploads a batch and creates its uniform bind group.
// Partially created buffers are released on error.
func (p *FillPipeline) BuildResources(d FillDraw) (*FillResources, error) {
	if p == nil {
		return nil, ErrNilPipeline
	}
	if len(d.Vertices) == 0 || len(d.Indices) == 0 || d.IndexCount == 0 {
		return nil, ErrEmptyVertexData
	}
	if len(d.Uniforms) != fillUniformSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrUniformSize, len(d.Uniforms), fillUniformSize)
	}
	if err := p.Init(); err != nil {
		return nil, err
	}

	vertBuf, err := p.createAndUploadBuffer("fill_vertices", d.Vertices,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	idxBuf, err := p.createAndUploadBuffer("fill_indices", d.Indices,
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		p.device.DestroyBuffer(vertBuf)
		return nil, err
	}
	uniformBuf, err := p.createAndUploadBuffer("fill_uniforms", d.Uniforms,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		p.device.DestroyBuffer(idxBuf)
		p.device.DestroyBuffer(vertBuf)
		return nil, err
	}

	bindGroup, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fill_uniform_bind",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: fillUniformSize,
			}},
		},
	})
	if err != nil {
		p.device.DestroyBuffer(uniformBuf)
		p.device.DestroyBuffer(idxBuf)
		p.device.DestroyBuffer(vertBuf)
		return nil, fmt.Errorf("create fill bind group: %w", err)
	}

	slogger().Debug("gpu: fill resources built",
		"vertexBytes", len(d.Vertices),
		"indices", d.IndexCount)

	return &FillResources{
		vertBuf:    vertBuf,
		idxBuf:     idxBuf,
		uniformBuf: uniformBuf,
		bindGroup:  bindGroup,
		indexCount: d.IndexCount,
	}, nil
}

// UpdateUniforms rewrites the uniform buffer of res, for a new frame.
func (p *FillPipeline) UpdateUniforms(res *FillResources, uniforms []byte) error {
	if len(uniforms) != fillUniformSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrUniformSize, len(uniforms), fillUniformSize)
	}
	p.queue.WriteBuffer(res.uniformBuf, 0, uniforms)
	return nil
}

// RecordDraws records the draw of one batch into an existing render pass.
// pattern is bind group 1; the shader only samples it when the batch
// enables its pattern, but a group must always be bound.
func (p *FillPipeline) RecordDraws(rp hal.RenderPassEncoder, res *FillResources, pattern hal.BindGroup) {
	if res == nil || res.indexCount == 0 {
		return
	}
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, res.bindGroup, nil)
	rp.SetBindGroup(1, pattern, nil)
	rp.SetVertexBuffer(0, res.vertBuf, 0)
	rp.SetIndexBuffer(res.idxBuf, gputypes.IndexFormatUint32, 0)
	rp.DrawIndexed(res.indexCount, 1, 0, 0, 0)
}

// DestroyResources releases the buffers of one batch.
func (p *FillPipeline) DestroyResources(res *FillResources) {
	if res == nil {
		return
	}
	if res.bindGroup != nil {
		p.device.DestroyBindGroup(res.bindGroup)
		res.bindGroup = nil
	}
	for _, b := range []*hal.Buffer{&res.uniformBuf, &res.idxBuf, &res.vertBuf} {
		if *b != nil {
			p.device.DestroyBuffer(*b)
			*b = nil
		}
	}
	res.indexCount = 0
}

// Destroy releases all GPU objects of the pipeline. Safe to call multiple
// times.
func (p *FillPipeline) Destroy() {
	if p == nil {
		return
	}
	p.destroyPipeline()
}

func (p *FillPipeline) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	p.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// destroyPipeline releases pipeline objects in reverse creation order.
func (p *FillPipeline) destroyPipeline() {
	if p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.patternLayout != nil {
		p.device.DestroyBindGroupLayout(p.patternLayout)
		p.patternLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
