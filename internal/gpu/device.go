// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Errors returned while acquiring or driving the device.
var (
	// ErrNoAdapter is returned when the backend exposes no adapter.
	ErrNoAdapter = errors.New("gpu: no adapter available")

	// ErrDeviceRequired is returned when a provider does not expose HAL
	// device and queue handles.
	ErrDeviceRequired = errors.New("gpu: provider does not expose a hal device")

	// ErrSubmissionTimeout is returned when a submission does not complete
	// within Config.SubmitTimeout.
	ErrSubmissionTimeout = errors.New("gpu: submission timed out")
)

// AdapterPreference selects the adapter when several are exposed.
type AdapterPreference int

const (
	// PreferDiscrete picks a discrete GPU, then an integrated one.
	PreferDiscrete AdapterPreference = iota
	// PreferIntegrated picks an integrated GPU, then a discrete one.
	PreferIntegrated
	// PreferAny takes the first adapter.
	PreferAny
)

// ParseAdapterPreference parses "discrete", "integrated" or "any".
func ParseAdapterPreference(s string) (AdapterPreference, error) {
	switch strings.ToLower(s) {
	case "", "discrete":
		return PreferDiscrete, nil
	case "integrated":
		return PreferIntegrated, nil
	case "any":
		return PreferAny, nil
	}
	return 0, fmt.Errorf("gpu: unknown adapter preference %q", s)
}

// ParseBackend maps a backend name to its gputypes value.
func ParseBackend(s string) (gputypes.Backend, error) {
	switch strings.ToLower(s) {
	case "", "vulkan":
		return gputypes.BackendVulkan, nil
	case "metal":
		return gputypes.BackendMetal, nil
	case "dx12":
		return gputypes.BackendDX12, nil
	case "gl", "gles":
		return gputypes.BackendGL, nil
	case "empty", "noop":
		return gputypes.BackendEmpty, nil
	}
	return 0, fmt.Errorf("gpu: unknown backend %q", s)
}

// Config configures a Renderer.
type Config struct {
	// Backend is the HAL backend used when the renderer opens its own device.
	Backend gputypes.Backend

	// Adapter selects among the exposed adapters.
	Adapter AdapterPreference

	// Timestamps enables per-pass GPU timing when the device supports it.
	Timestamps bool

	// SubmitTimeout bounds the wait for a submission. Zero waits until the
	// context is done.
	SubmitTimeout time.Duration

	// PollInterval is the sleep between completion polls.
	PollInterval time.Duration

	// Width and Height set the initial output resolution. Zero renders at
	// source resolution.
	Width, Height uint32
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		Backend:       gputypes.BackendVulkan,
		Adapter:       PreferDiscrete,
		Timestamps:    true,
		SubmitTimeout: 2 * time.Second,
		PollInterval:  200 * time.Microsecond,
	}
}

// device bundles the HAL handles a renderer draws on.
type device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     gputypes.AdapterInfo
	features gputypes.Features

	// external is true when the device belongs to a host application and
	// must not be destroyed on Close.
	external bool
}

func (d *device) timestamps() bool {
	return d.features.Contains(gputypes.FeatureTimestampQuery)
}

func (d *device) destroy() {
	if d.device != nil && !d.external {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	d.device, d.queue, d.instance = nil, nil, nil
}

// AdapterInfo describes an adapter exposed by a backend.
type AdapterInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
	Backend    gputypes.Backend
	Timestamps bool
}

// Adapters lists the adapters exposed by backend.
func Adapters(backend gputypes.Backend) ([]AdapterInfo, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("gpu: backend %s not registered", backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	defer instance.Destroy()

	exposed := instance.EnumerateAdapters(nil)
	out := make([]AdapterInfo, 0, len(exposed))
	for _, a := range exposed {
		out = append(out, AdapterInfo{
			Name:       a.Info.Name,
			DeviceType: a.Info.DeviceType,
			Backend:    backend,
			Timestamps: a.Features.Contains(gputypes.FeatureTimestampQuery),
		})
	}
	return out, nil
}

// selectAdapter returns the index of the adapter matching pref.
func selectAdapter(adapters []hal.ExposedAdapter, pref AdapterPreference) int {
	order := []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU}
	switch pref {
	case PreferIntegrated:
		order[0], order[1] = order[1], order[0]
	case PreferAny:
		return 0
	}
	for _, want := range order {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return i
			}
		}
	}
	return 0
}

// openDevice creates an instance on cfg.Backend and opens the preferred
// adapter, requesting timestamp queries when exposed.
func openDevice(cfg Config) (*device, error) {
	backend, ok := hal.GetBackend(cfg.Backend)
	if !ok {
		return nil, fmt.Errorf("gpu: backend %s not registered", cfg.Backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[selectAdapter(adapters, cfg.Adapter)]

	var features gputypes.Features
	if cfg.Timestamps && selected.Features.Contains(gputypes.FeatureTimestampQuery) {
		features = gputypes.Features(gputypes.FeatureTimestampQuery)
	}
	open, err := selected.Adapter.Open(features, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device %q: %w", selected.Info.Name, err)
	}

	slogger().Info("gpu: adapter selected",
		"name", selected.Info.Name,
		"type", selected.Info.DeviceType.String(),
		"backend", cfg.Backend.String(),
		"timestamps", features.Contains(gputypes.FeatureTimestampQuery))

	return &device{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		info:     selected.Info,
		features: features,
	}, nil
}

// deviceFromProvider borrows the device of a host application. The provider
// must expose HalDevice() and HalQueue() returning hal.Device and hal.Queue.
// Timestamp support is unknown for borrowed devices, so it is assumed when
// requested; the timer falls back to a no-op if query set creation fails.
func deviceFromProvider(provider gpucontext.DeviceProvider, timestamps bool) (*device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrDeviceRequired
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrDeviceRequired)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrDeviceRequired)
	}

	info := provider.AdapterInfo()
	d := &device{
		device:   dev,
		queue:    queue,
		info:     gputypes.AdapterInfo{Name: info.Name, DeviceType: deviceType(info.Type)},
		external: true,
	}
	if timestamps {
		d.features = gputypes.Features(gputypes.FeatureTimestampQuery)
	}
	slogger().Info("gpu: using shared device", "name", info.Name, "type", info.Type.String())
	return d, nil
}

func deviceType(t gpucontext.AdapterType) gputypes.DeviceType {
	switch t {
	case gpucontext.AdapterTypeDiscrete:
		return gputypes.DeviceTypeDiscreteGPU
	case gpucontext.AdapterTypeIntegrated:
		return gputypes.DeviceTypeIntegratedGPU
	case gpucontext.AdapterTypeSoftware:
		return gputypes.DeviceTypeCPU
	}
	return gputypes.DeviceTypeOther
}
