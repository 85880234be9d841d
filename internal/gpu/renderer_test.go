// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/frameproc"
)

func noopConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = gputypes.BackendEmpty
	cfg.SubmitTimeout = time.Second
	return cfg
}

func newNoopRenderer(t *testing.T, w, h uint32) *Renderer {
	t.Helper()
	cfg := noopConfig()
	cfg.Width, cfg.Height = w, h
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func testFrame(w, h int) *frameproc.Frame {
	return frameproc.FrameFromImage(image.NewRGBA(image.Rect(0, 0, w, h)))
}

func render(t *testing.T, r *Renderer) *image.RGBA {
	t.Helper()
	img, err := r.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	return img
}

func TestRendererNoFrame(t *testing.T) {
	r := newNoopRenderer(t, 64, 64)
	if _, err := r.RenderFrame(context.Background()); !errors.Is(err, frameproc.ErrNoFrame) {
		t.Fatalf("RenderFrame() = %v, want ErrNoFrame", err)
	}
	if r.AdapterName() == "" {
		t.Error("AdapterName() is empty")
	}
}

func TestRendererOutputSize(t *testing.T) {
	tests := []struct {
		name   string
		w, h   uint32
		orient frameproc.Orientation
		want   image.Rectangle
	}{
		{"source size", 0, 0, frameproc.Orientation{}, image.Rect(0, 0, 64, 36)},
		{"scaled", 32, 18, frameproc.Orientation{}, image.Rect(0, 0, 32, 18)},
		{"rotated", 32, 18, frameproc.Orientation{Angle: 90}, image.Rect(0, 0, 18, 32)},
		{"base rotation", 0, 0, frameproc.Orientation{BaseAngle: 270}, image.Rect(0, 0, 36, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newNoopRenderer(t, tt.w, tt.h)
			if err := r.UploadSample(testFrame(64, 36)); err != nil {
				t.Fatal(err)
			}
			if err := r.Orient(tt.orient); err != nil {
				t.Fatal(err)
			}
			if got := render(t, r).Bounds(); got != tt.want {
				t.Errorf("bounds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRendererSizedResourcesRebuildOnTargetChange(t *testing.T) {
	r := newNoopRenderer(t, 320, 180)
	if err := r.UploadSample(testFrame(64, 36)); err != nil {
		t.Fatal(err)
	}
	render(t, r)
	sized, source := r.res.sized, r.res.source
	if sized == nil || sized.size != frameproc.Size(320, 180) {
		t.Fatalf("sized = %+v, want 320x180", sized)
	}

	// Same target, crop only: nothing is rebuilt.
	if err := r.Crop(frameproc.Crop{Left: 0.1, Top: 0.1, Right: 0.9, Bottom: 0.9}); err != nil {
		t.Fatal(err)
	}
	render(t, r)
	if r.res.sized != sized {
		t.Error("sized resources rebuilt without a target change")
	}

	// New resolution: full rebuild, source texture preserved.
	if err := r.UpdateOutputResolution(200, 100); err != nil {
		t.Fatal(err)
	}
	img := render(t, r)
	if r.res.sized == sized || r.res.sized.size != frameproc.Size(200, 100) {
		t.Errorf("sized = %+v, want a rebuilt 200x100 set", r.res.sized)
	}
	if r.res.source != source {
		t.Error("source texture reallocated on output resize")
	}
	if img.Bounds() != image.Rect(0, 0, 200, 100) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestRendererSourceChangeReallocatesTexture(t *testing.T) {
	r := newNoopRenderer(t, 16, 16)
	if err := r.UploadSample(testFrame(8, 8)); err != nil {
		t.Fatal(err)
	}
	render(t, r)
	source := r.res.source
	if r.res.positioningBind == nil {
		t.Fatal("positioning bind group not created")
	}

	if err := r.UploadSample(testFrame(8, 8)); err != nil {
		t.Fatal(err)
	}
	if r.res.source != source {
		t.Error("same-size upload reallocated the texture")
	}

	if err := r.UploadSample(testFrame(4, 8)); err != nil {
		t.Fatal(err)
	}
	if r.res.source == source || r.res.source.size != frameproc.Size(4, 8) {
		t.Errorf("source = %+v, want a new 4x8 texture", r.res.source)
	}
	if r.res.positioningBind != nil {
		t.Error("positioning bind group kept across a source change")
	}
	if r.Position().Source != frameproc.Size(4, 8) {
		t.Errorf("Position().Source = %v", r.Position().Source)
	}
	render(t, r)
}

func TestRendererEffectsToggleTimerSlot(t *testing.T) {
	r := newNoopRenderer(t, 8, 8)
	if r.timer.Enabled(frameproc.PassEffects) {
		t.Fatal("effects timed with default parameters")
	}
	if err := r.UpdateEffects(frameproc.EffectParameters{Contrast: 1.5}); err != nil {
		t.Fatal(err)
	}
	if !r.timer.Enabled(frameproc.PassEffects) {
		t.Error("effects not timed after a non-default update")
	}
	if err := r.UploadSample(testFrame(8, 8)); err != nil {
		t.Fatal(err)
	}
	render(t, r)

	if err := r.UpdateEffects(frameproc.DefaultEffects()); err != nil {
		t.Fatal(err)
	}
	if r.timer.Enabled(frameproc.PassEffects) {
		t.Error("effects still timed after reset to defaults")
	}
	if err := r.UpdateEffects(frameproc.EffectParameters{Contrast: -1}); !errors.Is(err, frameproc.ErrInvalidEffects) {
		t.Errorf("UpdateEffects(invalid) = %v", err)
	}
}

func TestRendererNoopBackendHasNoTimestamps(t *testing.T) {
	r := newNoopRenderer(t, 8, 8)
	if r.TimestampsSupported() {
		t.Fatal("noop adapter reported timestamp support")
	}
	if err := r.UploadSample(testFrame(8, 8)); err != nil {
		t.Fatal(err)
	}
	render(t, r)
	timings := r.Timings()
	if len(timings) != 2 || timings[0].Name != frameproc.PassPositioning || timings[1].Name != frameproc.PassEffects {
		t.Fatalf("Timings() = %+v", timings)
	}
}

func TestRendererInvalidInput(t *testing.T) {
	r := newNoopRenderer(t, 8, 8)
	if err := r.UpdateOutputResolution(0, 4); !errors.Is(err, frameproc.ErrInvalidResolution) {
		t.Errorf("UpdateOutputResolution(0, 4) = %v", err)
	}
	if err := r.UploadSample(&frameproc.Frame{}); !errors.Is(err, frameproc.ErrInvalidFrame) {
		t.Errorf("UploadSample(empty) = %v", err)
	}
	if err := r.Crop(frameproc.Crop{Left: 0.8, Right: 0.2, Bottom: 1}); !errors.Is(err, frameproc.ErrInvalidCrop) {
		t.Errorf("Crop(inverted) = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.UploadSample(testFrame(8, 8)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RenderFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RenderFrame(cancelled) = %v", err)
	}
}

func TestRendererClose(t *testing.T) {
	r, err := New(noopConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if _, err := r.RenderFrame(context.Background()); !errors.Is(err, frameproc.ErrClosed) {
		t.Errorf("RenderFrame() after Close = %v", err)
	}
	if err := r.UploadSample(testFrame(2, 2)); !errors.Is(err, frameproc.ErrClosed) {
		t.Errorf("UploadSample() after Close = %v", err)
	}
}

func TestRendererDrivenByScheduler(t *testing.T) {
	r := newNoopRenderer(t, 0, 0)
	s := frameproc.NewScheduler(r, frameproc.AllFrames, frameproc.WithImageBuffer(4))
	defer s.Close()

	err := s.Send(
		frameproc.UpdateOutputResolution{Width: 40, Height: 20},
		frameproc.RenderSample{Frame: testFrame(80, 40)},
		frameproc.RenderSample{Frame: testFrame(80, 40)},
		frameproc.RenderSample{Frame: testFrame(80, 40)},
	)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		select {
		case img, ok := <-s.Images():
			if !ok {
				t.Fatalf("images closed after %d frames: %v", i, s.Err())
			}
			if img.Bounds() != image.Rect(0, 0, 40, 20) {
				t.Errorf("image %d bounds = %v", i, img.Bounds())
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for image %d", i)
		}
	}
}

// halDeviceProvider shares a noop device the way a host application would.
type halDeviceProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *halDeviceProvider) Device() gpucontext.Device             { return p.device }
func (p *halDeviceProvider) Queue() gpucontext.Queue               { return p.queue }
func (p *halDeviceProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (p *halDeviceProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *halDeviceProvider) HalDevice() any                        { return p.device }
func (p *halDeviceProvider) HalQueue() any                         { return p.queue }
func (p *halDeviceProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "host", Type: gpucontext.AdapterTypeSoftware}
}

// plainProvider does not expose HAL handles.
type plainProvider struct{ halDeviceProvider }

func (plainProvider) HalDevice() {}

func TestNewFromProvider(t *testing.T) {
	d, err := openDevice(noopConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer d.destroy()

	r, err := NewFromProvider(&halDeviceProvider{device: d.device, queue: d.queue}, noopConfig())
	if err != nil {
		t.Fatalf("NewFromProvider() = %v", err)
	}
	if !r.dev.external || r.AdapterName() != "host" {
		t.Errorf("device = %+v, want the external host device", r.dev)
	}
	if r.TimestampsSupported() {
		t.Error("noop device cannot create query sets")
	}
	if err := r.UploadSample(testFrame(4, 4)); err != nil {
		t.Fatal(err)
	}
	render(t, r)
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFromProvider(nil, noopConfig()); !errors.Is(err, ErrDeviceRequired) {
		t.Errorf("NewFromProvider(nil) = %v", err)
	}
	if _, err := NewFromProvider(&plainProvider{}, noopConfig()); !errors.Is(err, ErrDeviceRequired) {
		t.Errorf("NewFromProvider(plain) = %v", err)
	}
}

func TestSelectAdapter(t *testing.T) {
	adapters := []hal.ExposedAdapter{
		{Info: gputypes.AdapterInfo{Name: "cpu", DeviceType: gputypes.DeviceTypeCPU}},
		{Info: gputypes.AdapterInfo{Name: "igpu", DeviceType: gputypes.DeviceTypeIntegratedGPU}},
		{Info: gputypes.AdapterInfo{Name: "dgpu", DeviceType: gputypes.DeviceTypeDiscreteGPU}},
	}
	tests := []struct {
		pref AdapterPreference
		want string
	}{
		{PreferDiscrete, "dgpu"},
		{PreferIntegrated, "igpu"},
		{PreferAny, "cpu"},
	}
	for _, tt := range tests {
		if got := adapters[selectAdapter(adapters, tt.pref)].Info.Name; got != tt.want {
			t.Errorf("selectAdapter(%d) = %s, want %s", tt.pref, got, tt.want)
		}
	}
	if got := selectAdapter(adapters[:1], PreferDiscrete); got != 0 {
		t.Errorf("fallback = %d, want 0", got)
	}
}

func TestParseBackendAndPreference(t *testing.T) {
	for in, want := range map[string]gputypes.Backend{
		"":       gputypes.BackendVulkan,
		"vulkan": gputypes.BackendVulkan,
		"Metal":  gputypes.BackendMetal,
		"dx12":   gputypes.BackendDX12,
		"gles":   gputypes.BackendGL,
		"noop":   gputypes.BackendEmpty,
	} {
		got, err := ParseBackend(in)
		if err != nil || got != want {
			t.Errorf("ParseBackend(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseBackend("directx9"); err == nil {
		t.Error("ParseBackend accepted an unknown backend")
	}
	if p, err := ParseAdapterPreference("integrated"); err != nil || p != PreferIntegrated {
		t.Errorf("ParseAdapterPreference(integrated) = %v, %v", p, err)
	}
	if _, err := ParseAdapterPreference("fastest"); err == nil {
		t.Error("ParseAdapterPreference accepted an unknown value")
	}
}

func TestAdaptersListsNoopAdapter(t *testing.T) {
	list, err := Adapters(gputypes.BackendEmpty)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) == 0 {
		t.Fatal("no adapters")
	}
	if list[0].Timestamps {
		t.Error("noop adapter reports timestamps")
	}
}
