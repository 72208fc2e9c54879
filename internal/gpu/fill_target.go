//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

var (
	// ErrTargetSize is returned when the readback buffer does not match the
	// target size.
	ErrTargetSize = errors.New("gpu: readback buffer size mismatch")

	// ErrGPUTimeout is returned when the render fence is not signaled
	// within the wait timeout.
	ErrGPUTimeout = errors.New("gpu: timed out waiting for the render")
)

// gpuWaitTimeout bounds the fence wait of an offscreen render.
const gpuWaitTimeout = 5 * time.Second

// TargetDraw is one batch recorded into a FillTarget pass.
type TargetDraw struct {
	Resources *FillResources
	Pattern   hal.BindGroup
}

// FillTarget is an offscreen BGRA8 color target with CPU readback.
//
// With a sample count above one it renders into an MSAA texture resolved
// into a single-sample texture; otherwise it renders into the resolve
// texture directly.
type FillTarget struct {
	device      hal.Device
	queue       hal.Queue
	sampleCount uint32

	msaaTex     hal.Texture
	msaaView    hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView

	width, height uint32
}

// NewFillTarget creates a target. Textures are created by EnsureTextures.
func NewFillTarget(device hal.Device, queue hal.Queue, sampleCount uint32) *FillTarget {
	if sampleCount == 0 {
		sampleCount = defaultSampleCount
	}
	return &FillTarget{device: device, queue: queue, sampleCount: sampleCount}
}

// Size returns the current texture size.
func (t *FillTarget) Size() (width, height uint32) {
	return t.width, t.height
}

// EnsureTextures creates or recreates the color textures when the size
// changes. Partially created textures are released on error.
func (t *FillTarget) EnsureTextures(width, height uint32) error {
	if t.width == width && t.height == height && t.resolveTex != nil {
		return nil
	}
	t.destroyTextures()

	size := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	if t.sampleCount > 1 {
		msaaTex, err := t.device.CreateTexture(&hal.TextureDescriptor{
			Label:         "fill_msaa_color",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   t.sampleCount,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatBGRA8Unorm,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create MSAA color texture: %w", err)
		}
		t.msaaTex = msaaTex

		msaaView, err := t.device.CreateTextureView(msaaTex, &hal.TextureViewDescriptor{
			Label: "fill_msaa_color_view",
		})
		if err != nil {
			t.destroyTextures()
			return fmt.Errorf("create MSAA color texture view: %w", err)
		}
		t.msaaView = msaaView
	}

	resolveTex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "fill_resolve",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.destroyTextures()
		return fmt.Errorf("create resolve texture: %w", err)
	}
	t.resolveTex = resolveTex

	resolveView, err := t.device.CreateTextureView(resolveTex, &hal.TextureViewDescriptor{
		Label: "fill_resolve_view",
	})
	if err != nil {
		t.destroyTextures()
		return fmt.Errorf("create resolve texture view: %w", err)
	}
	t.resolveView = resolveView

	t.width, t.height = width, height
	return nil
}

// Render records every draw into one cleared render pass, submits it, waits
// for the GPU and copies the result into dst as tightly packed RGBA.
func (t *FillTarget) Render(p *FillPipeline, draws []TargetDraw, dst []byte) error {
	if !p.IsInitialized() {
		return ErrPipelineNotInitialized
	}
	w, h := t.width, t.height
	if t.resolveTex == nil {
		return fmt.Errorf("%w: target has no textures", ErrTargetSize)
	}
	if uint64(len(dst)) != uint64(w)*uint64(h)*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrTargetSize, len(dst), w, h)
	}

	encoder, err := t.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "fill_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fill_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	color := hal.RenderPassColorAttachment{
		View:       t.resolveView,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
	}
	if t.msaaView != nil {
		color.View = t.msaaView
		color.ResolveTarget = t.resolveView
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            "fill_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	})
	for _, d := range draws {
		p.RecordDraws(rp, d.Resources, d.Pattern)
	}
	rp.End()

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	// Buffer rows must be 256-byte aligned.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fill_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer t.device.DestroyBuffer(staging)

	encoder.CopyTextureToBuffer(t.resolveTex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.resolveTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer t.device.FreeCommandBuffer(cmdBuf)

	fence, err := t.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer t.device.DestroyFence(fence)

	if err := t.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := waitResult(t.device.Wait(fence, 1, gpuWaitTimeout)); err != nil {
		return err
	}

	readback := make([]byte, stagingSize)
	if err := t.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	for row := range h {
		src := readback[uint64(row)*uint64(alignedBytesPerRow):][:bytesPerRow]
		bgraToRGBA(dst[uint64(row)*uint64(bytesPerRow):][:bytesPerRow], src)
	}

	slogger().Debug("gpu: fill target rendered", "draws", len(draws), "width", w, "height", h)
	return nil
}

// bgraToRGBA swaps the red and blue channels of src into dst.
func bgraToRGBA(dst, src []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}

// Destroy releases the target textures. Safe to call multiple times.
func (t *FillTarget) Destroy() {
	t.destroyTextures()
}

func (t *FillTarget) destroyTextures() {
	if t.resolveView != nil {
		t.device.DestroyTextureView(t.resolveView)
		t.resolveView = nil
	}
	if t.resolveTex != nil {
		t.device.DestroyTexture(t.resolveTex)
		t.resolveTex = nil
	}
	if t.msaaView != nil {
		t.device.DestroyTextureView(t.msaaView)
		t.msaaView = nil
	}
	if t.msaaTex != nil {
		t.device.DestroyTexture(t.msaaTex)
		t.msaaTex = nil
	}
	t.width, t.height = 0, 0
}

// waitResult turns the result of a fence wait into an error.
func waitResult(signaled bool, err error) error {
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !signaled {
		return fmt.Errorf("%w after %v", ErrGPUTimeout, gpuWaitTimeout)
	}
	return nil
}
