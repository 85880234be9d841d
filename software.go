// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/frameproc/internal/parallel"
	"github.com/gogpu/frameproc/internal/profile"
)

// Pass names reported by Timings.
const (
	PassPositioning = "positioning"
	PassEffects     = "effects"
)

// SoftwareRenderer is the CPU implementation of Renderer. It produces the
// same geometry as the GPU positioning shader using bilinear resampling and
// applies the same color math as the effects shader.
//
// It is used when no GPU adapter is available and as a deterministic
// reference in tests. Both passes run in row bands on a shared worker pool.
type SoftwareRenderer struct {
	pool    *parallel.Pool
	src     *image.RGBA
	pos     FramePosition
	effects EffectParameters
	timings *profile.Set
	closed  bool
}

var _ Renderer = (*SoftwareRenderer)(nil)

// NewSoftwareRenderer creates a software renderer with the given output
// resolution. A zero size renders at source resolution.
func NewSoftwareRenderer(width, height uint32) *SoftwareRenderer {
	return &SoftwareRenderer{
		pool:    parallel.Shared(),
		pos:     FramePosition{Output: Size(width, height)},
		effects: DefaultEffects(),
		timings: profile.NewSet(profile.DefaultWindow, PassPositioning, PassEffects),
	}
}

// Position returns the current geometry.
func (r *SoftwareRenderer) Position() FramePosition { return r.pos }

// UploadSample implements Renderer.
func (r *SoftwareRenderer) UploadSample(f *Frame) error {
	if r.closed {
		return ErrClosed
	}
	pix, err := f.RGBA()
	if err != nil {
		return err
	}
	if f.Size != r.pos.Source || r.src == nil {
		w, h := int(f.Size.Width), int(f.Size.Height)
		r.src = image.NewRGBA(image.Rect(0, 0, w, h))
		r.pos.Source = f.Size
		r.timings.Reset()
		Logger().Debug("software: source reallocated", "size", f.Size.String())
	}
	copy(r.src.Pix, pix)
	return nil
}

// UpdateEffects implements Renderer.
func (r *SoftwareRenderer) UpdateEffects(p EffectParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.effects = p
	return nil
}

// UpdateOutputResolution implements Renderer.
func (r *SoftwareRenderer) UpdateOutputResolution(w, h uint32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, w, h)
	}
	next := r.pos
	next.Output = Size(w, h)
	r.setPosition(next)
	return nil
}

// Orient implements Renderer.
func (r *SoftwareRenderer) Orient(o Orientation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	next := r.pos
	next.Orientation = o
	r.setPosition(next)
	return nil
}

// Crop implements Renderer.
func (r *SoftwareRenderer) Crop(c Crop) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.pos.Crop = c
	return nil
}

func (r *SoftwareRenderer) setPosition(next FramePosition) {
	if next.Target() != r.pos.Target() {
		r.timings.Reset()
	}
	r.pos = next
}

// RenderFrame implements Renderer.
func (r *SoftwareRenderer) RenderFrame(ctx context.Context) (*image.RGBA, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.src == nil {
		return nil, ErrNoFrame
	}

	t := r.pos.Target()
	dst := image.NewRGBA(image.Rect(0, 0, int(t.Width), int(t.Height)))

	m, sr := r.pos.SourceToOutput(), r.pos.SourceRect()
	start := time.Now()
	r.pool.Rows(dst.Rect.Dy(), func(y0, y1 int) {
		band := dst.SubImage(image.Rect(0, y0, dst.Rect.Dx(), y1)).(*image.RGBA)
		draw.BiLinear.Transform(band, m, r.src, sr, draw.Src, nil)
	})
	r.timings.Add(PassPositioning, time.Since(start))

	if !r.effects.IsDefault() {
		start = time.Now()
		r.pool.Rows(dst.Rect.Dy(), func(y0, y1 int) {
			r.effects.Apply(dst.Pix[y0*dst.Stride : y1*dst.Stride])
		})
		r.timings.Add(PassEffects, time.Since(start))
	}
	return dst, nil
}

// Timings implements Renderer.
func (r *SoftwareRenderer) Timings() []PassTiming { return r.timings.Snapshot() }

// Close implements Renderer.
func (r *SoftwareRenderer) Close() error {
	r.closed = true
	r.src = nil
	return nil
}
