//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrInvalidPatternData is returned when texel data does not match the
// texture size.
var ErrInvalidPatternData = errors.New("gpu: invalid pattern texel data")

// PatternTexture is an uploaded pattern tile with its bind group.
type PatternTexture struct {
	texture   hal.Texture
	view      hal.TextureView
	bindGroup hal.BindGroup

	width, height uint32
}

// Size returns the texture size in texels.
func (t *PatternTexture) Size() (width, height uint32) {
	return t.width, t.height
}

// BindGroup returns the group 1 bind group for this texture.
func (t *PatternTexture) BindGroup() hal.BindGroup {
	return t.bindGroup
}

// UploadPattern creates an RGBA8 texture from tightly packed RGBA texels and
// binds it for use with p.
func (p *FillPipeline) UploadPattern(rgba []byte, width, height uint32) (*PatternTexture, error) {
	if width == 0 || height == 0 || uint64(len(rgba)) != uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidPatternData, len(rgba), width, height)
	}
	if err := p.Init(); err != nil {
		return nil, err
	}

	t := &PatternTexture{width: width, height: height}
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "fill_pattern_texture",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create pattern texture: %w", err)
	}
	t.texture = tex

	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "fill_pattern_texture_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		p.DestroyPattern(t)
		return nil, fmt.Errorf("create pattern texture view: %w", err)
	}
	t.view = view

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		rgba,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: width * 4, RowsPerImage: height},
		&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)

	if t.bindGroup, err = p.CreatePatternGroup(view); err != nil {
		p.DestroyPattern(t)
		return nil, err
	}
	return t, nil
}

// DestroyPattern releases an uploaded pattern.
func (p *FillPipeline) DestroyPattern(t *PatternTexture) {
	if t == nil {
		return
	}
	if t.bindGroup != nil {
		p.device.DestroyBindGroup(t.bindGroup)
		t.bindGroup = nil
	}
	if t.view != nil {
		p.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		p.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}
