// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameproc"
)

// Renderer runs the positioning and effects compute passes on a HAL device
// and reads the result back into an image.
//
// Renderer is not safe for concurrent use; the frameproc.Scheduler owns it.
type Renderer struct {
	cfg Config
	dev *device

	positioning *computePipeline
	effects     *computePipeline
	res         *resources
	timer       *Timer
	encoder     hal.CommandEncoder

	// pending is the command buffer of a submission that was not waited
	// for; the encoder cannot be reused until it is reset.
	pending hal.CommandBuffer

	pos       frameproc.FramePosition
	fx        frameproc.EffectParameters
	posStale  bool
	submitted uint64
	closed    bool
}

var _ frameproc.Renderer = (*Renderer)(nil)

// New opens a device on cfg.Backend and builds a renderer on it.
func New(cfg Config) (*Renderer, error) {
	d, err := openDevice(cfg)
	if err != nil {
		return nil, err
	}
	r, err := newRenderer(d, cfg)
	if err != nil {
		d.destroy()
		return nil, err
	}
	return r, nil
}

// NewFromProvider builds a renderer on a device shared by the host
// application. The device is not destroyed on Close.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Renderer, error) {
	if provider == nil {
		return nil, ErrDeviceRequired
	}
	d, err := deviceFromProvider(provider, cfg.Timestamps)
	if err != nil {
		return nil, err
	}
	return newRenderer(d, cfg)
}

func newRenderer(d *device, cfg Config) (*Renderer, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	r := &Renderer{
		cfg:      cfg,
		dev:      d,
		pos:      frameproc.FramePosition{Output: frameproc.Size(cfg.Width, cfg.Height)},
		fx:       frameproc.DefaultEffects(),
		posStale: true,
	}

	var err error
	if r.positioning, err = newComputePipeline(d.device, positioningLayout()); err != nil {
		return nil, err
	}
	if r.effects, err = newComputePipeline(d.device, effectsLayout()); err != nil {
		r.release()
		return nil, err
	}
	if r.res, err = newResources(d.device, d.queue, r.positioning, r.effects); err != nil {
		r.release()
		return nil, err
	}
	if err := d.queue.WriteBuffer(r.res.effectsUniform, 0, r.fx.Bytes()); err != nil {
		r.release()
		return nil, fmt.Errorf("gpu: write effects uniform: %w", err)
	}

	r.encoder, err = d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "frame"})
	if err != nil {
		r.release()
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}

	r.timer = newTimer(d, cfg.Timestamps, frameproc.PassPositioning, frameproc.PassEffects)
	r.timer.Enable(frameproc.PassEffects, false)
	return r, nil
}

// AdapterName returns the name of the adapter the renderer runs on.
func (r *Renderer) AdapterName() string { return r.dev.info.Name }

// Position returns the current geometry.
func (r *Renderer) Position() frameproc.FramePosition { return r.pos }

// UploadSample implements frameproc.Renderer.
func (r *Renderer) UploadSample(f *frameproc.Frame) error {
	if r.closed {
		return frameproc.ErrClosed
	}
	pix, err := f.RGBA()
	if err != nil {
		return err
	}
	realloc, err := r.res.ensureSource(f.Size)
	if err != nil {
		return err
	}
	if realloc {
		r.pos.Source = f.Size
		r.posStale = true
		r.timer.Reset()
	}
	return r.res.writeSource(pix)
}

// UpdateEffects implements frameproc.Renderer.
func (r *Renderer) UpdateEffects(p frameproc.EffectParameters) error {
	if r.closed {
		return frameproc.ErrClosed
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.dev.queue.WriteBuffer(r.res.effectsUniform, 0, p.Bytes()); err != nil {
		return fmt.Errorf("gpu: write effects uniform: %w", err)
	}
	r.fx = p
	r.timer.Enable(frameproc.PassEffects, !p.IsDefault())
	return nil
}

// UpdateOutputResolution implements frameproc.Renderer.
func (r *Renderer) UpdateOutputResolution(w, h uint32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: %dx%d", frameproc.ErrInvalidResolution, w, h)
	}
	next := r.pos
	next.Output = frameproc.Size(w, h)
	r.setPosition(next)
	return nil
}

// Orient implements frameproc.Renderer.
func (r *Renderer) Orient(o frameproc.Orientation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	next := r.pos
	next.Orientation = o
	r.setPosition(next)
	return nil
}

// Crop implements frameproc.Renderer.
func (r *Renderer) Crop(c frameproc.Crop) error {
	if err := c.Validate(); err != nil {
		return err
	}
	next := r.pos
	next.Crop = c
	r.setPosition(next)
	return nil
}

// setPosition stores the geometry. Sized buffers follow on the next render.
func (r *Renderer) setPosition(next frameproc.FramePosition) {
	if next.Target() != r.pos.Target() {
		r.timer.Reset()
	}
	r.pos = next
	r.posStale = true
}

// RenderFrame implements frameproc.Renderer.
func (r *Renderer) RenderFrame(ctx context.Context) (*image.RGBA, error) {
	if r.closed {
		return nil, frameproc.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.res.source == nil {
		return nil, frameproc.ErrNoFrame
	}

	target := r.pos.Target()
	if _, err := r.res.ensureSized(target); err != nil {
		return nil, err
	}
	if r.posStale {
		if err := r.dev.queue.WriteBuffer(r.res.positionUniform, 0, r.pos.Uniform().Bytes()); err != nil {
			return nil, fmt.Errorf("gpu: write position uniform: %w", err)
		}
		r.posStale = false
	}
	posGroup, err := r.res.positioningGroup()
	if err != nil {
		return nil, err
	}

	cmd, err := r.encode(target, posGroup)
	if err != nil {
		return nil, err
	}

	idx, err := r.dev.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		r.encoder.ResetAll([]hal.CommandBuffer{cmd})
		return nil, fmt.Errorf("gpu: submit: %w", err)
	}
	r.submitted = idx
	if err := r.wait(ctx, idx); err != nil {
		r.pending = cmd
		return nil, err
	}
	r.encoder.ResetAll([]hal.CommandBuffer{cmd})

	img, err := r.readback(target)
	if err != nil {
		return nil, err
	}
	if err := r.timer.collect(); err != nil {
		return nil, err
	}
	return img, nil
}

// encode records both passes, the staging copy and the timestamp resolve.
func (r *Renderer) encode(target frameproc.FrameSize, posGroup hal.BindGroup) (hal.CommandBuffer, error) {
	if r.pending != nil {
		if err := r.dev.device.WaitIdle(); err != nil {
			return nil, fmt.Errorf("gpu: wait idle: %w", err)
		}
		r.encoder.ResetAll([]hal.CommandBuffer{r.pending})
		r.pending = nil
	}

	enc := r.encoder
	if err := enc.BeginEncoding("frame"); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}

	r.timer.begin()
	x, y, z := dispatchSize(target.Width, target.Height)

	pass := enc.BeginComputePass(&hal.ComputePassDescriptor{
		Label:           frameproc.PassPositioning,
		TimestampWrites: r.timer.writes(frameproc.PassPositioning),
	})
	pass.SetPipeline(r.positioning.pipeline)
	pass.SetBindGroup(0, posGroup, nil)
	pass.Dispatch(x, y, z)
	pass.End()

	out := r.res.sized.positioned
	if !r.fx.IsDefault() {
		pass = enc.BeginComputePass(&hal.ComputePassDescriptor{
			Label:           frameproc.PassEffects,
			TimestampWrites: r.timer.writes(frameproc.PassEffects),
		})
		pass.SetPipeline(r.effects.pipeline)
		pass.SetBindGroup(0, r.res.sized.effectsBind, nil)
		pass.Dispatch(x, y, z)
		pass.End()
		out = r.res.sized.final
	}

	enc.CopyBufferToBuffer(out, r.res.sized.staging, []hal.BufferCopy{{Size: r.res.sized.byteSize()}})
	r.timer.encodeResolve(enc)

	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	slogger().Debug("gpu: frame encoded",
		"target", target.String(), "workgroups_x", x, "workgroups_y", y, "effects", !r.fx.IsDefault())
	return cmd, nil
}

// wait polls the queue until submission idx completed, the context is done
// or the submit timeout elapsed.
func (r *Renderer) wait(ctx context.Context, idx uint64) error {
	if r.dev.queue.PollCompleted() >= idx {
		return nil
	}
	var timeout <-chan time.Time
	if r.cfg.SubmitTimeout > 0 {
		t := time.NewTimer(r.cfg.SubmitTimeout)
		defer t.Stop()
		timeout = t.C
	}
	tick := time.NewTicker(r.cfg.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: index %d after %v", ErrSubmissionTimeout, idx, r.cfg.SubmitTimeout)
		case <-tick.C:
			if r.dev.queue.PollCompleted() >= idx {
				return nil
			}
		}
	}
}

// readback maps the staging buffer and copies it into a new image. The
// packed pixel layout matches image.RGBA byte order.
func (r *Renderer) readback(target frameproc.FrameSize) (*image.RGBA, error) {
	n := r.res.sized.byteSize()
	m, err := r.dev.device.MapBuffer(r.res.sized.staging, 0, n)
	if err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(target.Width), int(target.Height)))
	copy(img.Pix, unsafe.Slice((*byte)(m.Ptr), n))
	if err := r.dev.device.UnmapBuffer(r.res.sized.staging); err != nil {
		return nil, fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}
	return img, nil
}

// Timings implements frameproc.Renderer.
func (r *Renderer) Timings() []frameproc.PassTiming { return r.timer.Snapshot() }

// TimestampsSupported reports whether GPU pass timing is active.
func (r *Renderer) TimestampsSupported() bool { return r.timer.Supported() }

// Close implements frameproc.Renderer. It waits for the device to go idle
// before releasing resources.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	if r.submitted > 0 || r.pending != nil {
		if werr := r.dev.device.WaitIdle(); werr != nil {
			err = fmt.Errorf("gpu: wait idle: %w", werr)
		}
	}
	r.release()
	r.dev.destroy()
	return err
}

func (r *Renderer) release() {
	if r.encoder != nil {
		r.encoder.Destroy()
		r.encoder = nil
	}
	if r.timer != nil {
		r.timer.destroy()
	}
	if r.res != nil {
		r.res.destroy()
	}
	if r.effects != nil {
		r.effects.destroy(r.dev.device)
	}
	if r.positioning != nil {
		r.positioning.destroy(r.dev.device)
	}
}
