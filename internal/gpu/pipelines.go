// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// layoutConfig describes one compute pipeline and the resources its
// shader binds in group 0.
type layoutConfig struct {
	label   string
	source  string
	entries []gputypes.BindGroupLayoutEntry
}

func uniformEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}

func storageEntry(binding uint32, readOnly bool) gputypes.BindGroupLayoutEntry {
	typ := gputypes.BufferBindingTypeStorage
	if readOnly {
		typ = gputypes.BufferBindingTypeReadOnlyStorage
	}
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: typ},
	}
}

// positioningLayout matches shaders/positioning.wgsl.
func positioningLayout() layoutConfig {
	return layoutConfig{
		label:  "positioning",
		source: positioningShaderSource,
		entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			uniformEntry(2),
			storageEntry(3, false),
		},
	}
}

// effectsLayout matches shaders/effects.wgsl.
func effectsLayout() layoutConfig {
	return layoutConfig{
		label:  "effects",
		source: effectsShaderSource,
		entries: []gputypes.BindGroupLayoutEntry{
			uniformEntry(0),
			uniformEntry(1),
			storageEntry(2, true),
			storageEntry(3, false),
		},
	}
}

// computePipeline owns the HAL objects of one compute stage.
type computePipeline struct {
	label      string
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// newComputePipeline validates the shader and creates its module, layouts
// and pipeline. Partially created objects are released on error.
func newComputePipeline(dev hal.Device, cfg layoutConfig) (p *computePipeline, err error) {
	if err := validateShader(cfg.label, cfg.source); err != nil {
		return nil, err
	}

	p = &computePipeline{label: cfg.label}
	defer func() {
		if err != nil {
			p.destroy(dev)
			p = nil
		}
	}()

	p.shader, err = dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  cfg.label,
		Source: hal.ShaderSource{WGSL: cfg.source},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s shader module: %w", cfg.label, err)
	}

	p.bindLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   cfg.label + "_bind_layout",
		Entries: cfg.entries,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s bind group layout: %w", cfg.label, err)
	}

	p.pipeLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            cfg.label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s pipeline layout: %w", cfg.label, err)
	}

	p.pipeline, err = dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   cfg.label,
		Layout:  p.pipeLayout,
		Compute: hal.ComputeState{Module: p.shader, EntryPoint: "main"},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s pipeline: %w", cfg.label, err)
	}

	slogger().Debug("gpu: pipeline created", "pipeline", cfg.label)
	return p, nil
}

func (p *computePipeline) destroy(dev hal.Device) {
	if p.pipeline != nil {
		dev.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		dev.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		dev.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		dev.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
