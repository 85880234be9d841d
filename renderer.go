// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"context"
	"image"

	"github.com/gogpu/frameproc/internal/profile"
)

// PassTiming is the rolling average execution time of one pipeline pass.
type PassTiming = profile.Pass

// Renderer turns uploaded samples into output images.
//
// A Renderer is not safe for concurrent use. The Scheduler guarantees that
// at most one method runs at a time and that RenderFrame calls never
// overlap.
type Renderer interface {
	// UploadSample replaces the source frame. A change of source size
	// resets the timing history.
	UploadSample(f *Frame) error

	// UpdateEffects replaces the color adjustments. Default parameters
	// disable the effects pass.
	UpdateEffects(p EffectParameters) error

	// UpdateOutputResolution changes the output size without re-uploading
	// the source frame.
	UpdateOutputResolution(w, h uint32) error

	// Orient changes rotation and mirroring.
	Orient(o Orientation) error

	// Crop changes the crop rectangle.
	Crop(c Crop) error

	// RenderFrame renders the current source frame with the current state.
	// It returns ErrNoFrame if no sample was uploaded yet.
	RenderFrame(ctx context.Context) (*image.RGBA, error)

	// Timings returns the rolling averages of the measured passes.
	Timings() []PassTiming

	// Close releases all resources.
	Close() error
}
