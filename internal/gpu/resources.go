// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameproc"
)

// sourceTexture holds the uploaded frame.
type sourceTexture struct {
	size    frameproc.FrameSize
	texture hal.Texture
	view    hal.TextureView
}

// sizedResources are the output-resolution dependent buffers. They are
// always rebuilt as a whole when the target size changes.
type sizedResources struct {
	size        frameproc.FrameSize
	positioned  hal.Buffer
	final       hal.Buffer
	staging     hal.Buffer
	grid        hal.Buffer
	effectsBind hal.BindGroup
}

func (s *sizedResources) byteSize() uint64 { return s.size.ByteSize() }

// resources owns every GPU object whose lifetime is shorter than the
// device: uniforms, the sampler, the source texture and the sized set.
type resources struct {
	dev   hal.Device
	queue hal.Queue

	positioningLayout hal.BindGroupLayout
	effectsLayout     hal.BindGroupLayout

	sampler         hal.Sampler
	positionUniform hal.Buffer
	effectsUniform  hal.Buffer

	source *sourceTexture
	sized  *sizedResources

	// positioningBind references the source view and the positioned
	// buffer, so it is dropped when either changes.
	positioningBind hal.BindGroup
}

func newResources(dev hal.Device, queue hal.Queue, positioning, effects *computePipeline) (*resources, error) {
	r := &resources{
		dev:               dev,
		queue:             queue,
		positioningLayout: positioning.bindLayout,
		effectsLayout:     effects.bindLayout,
	}
	var err error
	r.sampler, err = dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "source_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create sampler: %w", err)
	}
	r.positionUniform, err = r.uniform("position_uniform", frameproc.PositionUniformSize)
	if err != nil {
		r.destroy()
		return nil, err
	}
	r.effectsUniform, err = r.uniform("effects_uniform", frameproc.EffectsUniformSize)
	if err != nil {
		r.destroy()
		return nil, err
	}
	return r, nil
}

func (r *resources) uniform(label string, size uint64) (hal.Buffer, error) {
	buf, err := r.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s: %w", label, err)
	}
	return buf, nil
}

func (r *resources) storage(label string, size uint64, extra gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageStorage | extra,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s buffer: %w", label, err)
	}
	return buf, nil
}

// ensureSource makes sure the source texture matches size. It reports
// whether the texture was reallocated.
func (r *resources) ensureSource(size frameproc.FrameSize) (bool, error) {
	if r.source != nil && r.source.size == size {
		return false, nil
	}
	r.dropPositioningBind()
	r.destroySource()

	tex, err := r.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "source_frame",
		Size:          hal.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return false, fmt.Errorf("gpu: create source texture %s: %w", size, err)
	}
	view, err := r.dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "source_frame_view",
		Format:          gputypes.TextureFormatRGBA8Unorm,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		r.dev.DestroyTexture(tex)
		return false, fmt.Errorf("gpu: create source view: %w", err)
	}
	r.source = &sourceTexture{size: size, texture: tex, view: view}
	slogger().Debug("gpu: source texture allocated", "size", size.String())
	return true, nil
}

// writeSource uploads tightly packed RGBA8 pixels into the source texture.
func (r *resources) writeSource(pix []byte) error {
	s := r.source.size
	err := r.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: r.source.texture, Aspect: gputypes.TextureAspectAll},
		pix,
		&hal.ImageDataLayout{BytesPerRow: s.Width * 4, RowsPerImage: s.Height},
		&hal.Extent3D{Width: s.Width, Height: s.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("gpu: write source texture: %w", err)
	}
	return nil
}

// ensureSized moves the sized state machine to size, rebuilding every
// sized object when the size differs. It reports whether a rebuild
// happened.
func (r *resources) ensureSized(size frameproc.FrameSize) (bool, error) {
	if r.sized != nil && r.sized.size == size {
		return false, nil
	}
	r.dropPositioningBind()
	r.destroySized()

	s, err := r.buildSized(size)
	if err != nil {
		return false, err
	}
	r.sized = s
	slogger().Debug("gpu: output buffers allocated", "size", size.String())
	return true, nil
}

func (r *resources) buildSized(size frameproc.FrameSize) (s *sizedResources, err error) {
	s = &sizedResources{size: size}
	defer func() {
		if err != nil {
			r.releaseSized(s)
			s = nil
		}
	}()

	n := s.byteSize()
	if s.positioned, err = r.storage("positioned", n, gputypes.BufferUsageCopySrc); err != nil {
		return nil, err
	}
	if s.final, err = r.storage("final", n, gputypes.BufferUsageCopySrc); err != nil {
		return nil, err
	}
	s.staging, err = r.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "staging",
		Size:  n,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	if s.grid, err = r.uniform("grid_uniform", 16); err != nil {
		return nil, err
	}
	if err = r.queue.WriteBuffer(s.grid, 0, gridBytes(size)); err != nil {
		return nil, fmt.Errorf("gpu: write grid uniform: %w", err)
	}

	s.effectsBind, err = r.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "effects_bind",
		Layout: r.effectsLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: bufferBinding(r.effectsUniform, frameproc.EffectsUniformSize)},
			{Binding: 1, Resource: bufferBinding(s.grid, 16)},
			{Binding: 2, Resource: bufferBinding(s.positioned, n)},
			{Binding: 3, Resource: bufferBinding(s.final, n)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create effects bind group: %w", err)
	}
	return s, nil
}

// positioningGroup returns the positioning bind group, creating it for the
// current source and sized set.
func (r *resources) positioningGroup() (hal.BindGroup, error) {
	if r.positioningBind != nil {
		return r.positioningBind, nil
	}
	bg, err := r.dev.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "positioning_bind",
		Layout: r.positioningLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: r.source.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
			{Binding: 2, Resource: bufferBinding(r.positionUniform, frameproc.PositionUniformSize)},
			{Binding: 3, Resource: bufferBinding(r.sized.positioned, r.sized.byteSize())},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create positioning bind group: %w", err)
	}
	r.positioningBind = bg
	return bg, nil
}

func bufferBinding(buf hal.Buffer, size uint64) gputypes.BufferBinding {
	return gputypes.BufferBinding{Buffer: buf.NativeHandle(), Size: size}
}

// gridBytes encodes the effects grid uniform: width, height and padding.
func gridBytes(size frameproc.FrameSize) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], size.Width)
	binary.LittleEndian.PutUint32(b[4:], size.Height)
	return b
}

func (r *resources) dropPositioningBind() {
	if r.positioningBind != nil {
		r.dev.DestroyBindGroup(r.positioningBind)
		r.positioningBind = nil
	}
}

func (r *resources) destroySource() {
	if r.source == nil {
		return
	}
	r.dev.DestroyTextureView(r.source.view)
	r.dev.DestroyTexture(r.source.texture)
	r.source = nil
}

func (r *resources) destroySized() {
	if r.sized != nil {
		r.releaseSized(r.sized)
		r.sized = nil
	}
}

func (r *resources) releaseSized(s *sizedResources) {
	if s.effectsBind != nil {
		r.dev.DestroyBindGroup(s.effectsBind)
	}
	for _, b := range []hal.Buffer{s.grid, s.staging, s.final, s.positioned} {
		if b != nil {
			r.dev.DestroyBuffer(b)
		}
	}
}

func (r *resources) destroy() {
	r.dropPositioningBind()
	r.destroySized()
	r.destroySource()
	if r.effectsUniform != nil {
		r.dev.DestroyBuffer(r.effectsUniform)
		r.effectsUniform = nil
	}
	if r.positionUniform != nil {
		r.dev.DestroyBuffer(r.positionUniform)
		r.positionUniform = nil
	}
	if r.sampler != nil {
		r.dev.DestroySampler(r.sampler)
		r.sampler = nil
	}
}
