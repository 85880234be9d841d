// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu provides the hardware frameproc.Renderer.
//
// Importing the package registers the platform HAL backends and forwards the
// frameproc logger to the GPU implementation:
//
//	r, err := gpu.NewRenderer(gpu.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	s := frameproc.NewScheduler(r, frameproc.MostRecentFrame, frameproc.WithOwnedRenderer())
//
// When no adapter is available, NewRendererOrSoftware falls back to
// frameproc.SoftwareRenderer.
package gpu

import (
	"log/slog"

	"github.com/gogpu/gpucontext"
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/frameproc"
	gpuimpl "github.com/gogpu/frameproc/internal/gpu"
)

func init() {
	frameproc.RegisterLoggerHook(func(l *slog.Logger) { gpuimpl.SetLogger(l) })
}

// Config configures a GPU renderer.
type Config = gpuimpl.Config

// Renderer is the GPU implementation of frameproc.Renderer.
type Renderer = gpuimpl.Renderer

// AdapterInfo describes an adapter exposed by a backend.
type AdapterInfo = gpuimpl.AdapterInfo

// Errors returned by the GPU renderer.
var (
	ErrNoAdapter         = gpuimpl.ErrNoAdapter
	ErrDeviceRequired    = gpuimpl.ErrDeviceRequired
	ErrSubmissionTimeout = gpuimpl.ErrSubmissionTimeout
)

// DefaultConfig returns the default renderer configuration: Vulkan, a
// discrete adapter when present and GPU pass timing.
func DefaultConfig() Config { return gpuimpl.DefaultConfig() }

// NewRenderer opens its own device and returns a GPU renderer.
func NewRenderer(cfg Config) (*Renderer, error) { return gpuimpl.New(cfg) }

// NewRendererFromProvider builds a renderer on a device shared by the host
// application (for example a gogpu window). The provider must also expose
// HalDevice() and HalQueue().
func NewRendererFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Renderer, error) {
	return gpuimpl.NewFromProvider(provider, cfg)
}

// NewRendererOrSoftware returns a GPU renderer, or a software renderer
// with the same output resolution when the GPU cannot be initialized.
func NewRendererOrSoftware(cfg Config) frameproc.Renderer {
	r, err := gpuimpl.New(cfg)
	if err == nil {
		return r
	}
	frameproc.Logger().Warn("gpu: falling back to software renderer", "backend", cfg.Backend.String(), "err", err)
	return frameproc.NewSoftwareRenderer(cfg.Width, cfg.Height)
}

// Adapters lists the adapters of the configured backend.
func Adapters(cfg Config) ([]AdapterInfo, error) { return gpuimpl.Adapters(cfg.Backend) }

// ParseBackend maps "vulkan", "metal", "dx12", "gles" or "noop" to a backend.
var ParseBackend = gpuimpl.ParseBackend

// ParseAdapterPreference maps "discrete", "integrated" or "any" to a
// preference.
var ParseAdapterPreference = gpuimpl.ParseAdapterPreference
