// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package frameproc schedules and renders decoded video frames for a
// preview surface.
//
// # Overview
//
// A Scheduler owns a Renderer and a mailbox of commands. Producers push
// samples and geometry or color updates with Send; rendered images come out
// of Images in submission order.
//
//	r := gpu.NewRendererOrSoftware(gpu.DefaultConfig())
//	s := frameproc.NewScheduler(r, frameproc.MostRecentFrame,
//	    frameproc.WithOwnedRenderer(),
//	)
//	defer s.Close()
//
//	s.Send(frameproc.UpdateOutputResolution{Width: 1280, Height: 720})
//	s.Send(frameproc.RenderSample{Frame: f})
//	img := <-s.Images()
//
// # Render modes
//
// MostRecentFrame keeps only the newest sample while a render is in flight,
// which suits scrubbing. AllFrames renders every sample in order, which
// suits export.
//
// Updates that arrive during a render are coalesced: the last value of each
// kind wins, and a re-render of the current frame is issued once the
// in-flight render completes.
//
// # Renderers
//
// Each render runs a positioning pass (rotation, mirroring, crop and scale)
// followed by an effects pass (contrast, brightness, hue, saturation). The
// effects pass is skipped while every parameter is neutral.
//
// The gpu package provides the compute shader implementation on
// gogpu/wgpu. SoftwareRenderer is the CPU equivalent.
//
// # Logging
//
// The package is silent by default. SetLogger installs a *slog.Logger for
// this package and the GPU backend.
package frameproc
