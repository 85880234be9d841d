// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu implements the frame renderer on gogpu/wgpu compute shaders.
//
// # Pipeline
//
// Every frame goes through up to two compute dispatches recorded into one
// command buffer:
//
//	source texture -> positioning.wgsl -> positioned buffer
//	positioned buffer -> effects.wgsl -> final buffer -> staging -> image.RGBA
//
// The positioning shader samples the source texture with a bilinear
// sampler. It applies the crop, rotation, mirroring and scale held in a
// uniform buffer. The effects shader reads the positioned buffer and writes
// contrast, brightness, saturation and hue into the final buffer. When
// every effect parameter is neutral the second dispatch is omitted and the
// positioned buffer is copied to staging directly.
//
// # Resources
//
// The source texture follows the uploaded sample size. The positioned,
// final and staging buffers follow the output target size and are rebuilt
// only when it changes. Both shaders are validated with naga before the
// pipelines are created.
//
// # Timing
//
// When the adapter exposes timestamp queries, each pass writes a begin and
// end timestamp into a query set. Results are resolved after submission and
// averaged over a rolling window. Without the feature the Timer records
// nothing and Timings reports zero samples.
//
// # Build tags
//
// Building with the nogpu tag excludes this package.
package gpu
