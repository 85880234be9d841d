// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frameproc/internal/profile"
)

// timerPass is one named begin/end pair.
type timerPass struct {
	name    string
	enabled bool
}

// Timer measures GPU execution time of compute passes with timestamp
// queries. Each enabled pass owns two consecutive query slots; enabled
// passes are packed from slot 0 so disabled passes are neither written nor
// resolved.
//
// Without timestamp support the Timer keeps its bookkeeping but never
// records a sample.
type Timer struct {
	dev      hal.Device
	querySet hal.QuerySet
	resolve  hal.Buffer
	readback hal.Buffer
	period   float64 // nanoseconds per tick

	passes   []timerPass
	inFlight []string // enabled pass names at encode time, in slot order
	averages *profile.Set
}

// newTimer creates a timer for the named passes, all enabled. It degrades
// to a no-op when the device cannot create timestamp query sets.
func newTimer(d *device, enabled bool, names ...string) *Timer {
	t := &Timer{
		averages: profile.NewSet(profile.DefaultWindow, names...),
	}
	for _, n := range names {
		t.passes = append(t.passes, timerPass{name: n, enabled: true})
	}
	if !enabled || d == nil || !d.timestamps() {
		if enabled && d != nil {
			slogger().Warn("gpu: timestamp queries unavailable, pass timing disabled", "adapter", d.info.Name)
		}
		return t
	}
	if err := t.init(d); err != nil {
		slogger().Warn("gpu: timestamp queries unavailable, pass timing disabled", "err", err)
		t.destroy()
		t.dev = nil
	}
	return t
}

func (t *Timer) init(d *device) error {
	t.dev = d.device
	count := uint32(2 * len(t.passes))
	size := uint64(count) * 8

	qs, err := d.device.CreateQuerySet(&hal.QuerySetDescriptor{
		Label: "pass_timestamps",
		Type:  hal.QueryTypeTimestamp,
		Count: count,
	})
	if err != nil {
		return fmt.Errorf("create query set: %w", err)
	}
	t.querySet = qs

	t.resolve, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "timestamp_resolve",
		Size:  size,
		Usage: gputypes.BufferUsageQueryResolve | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create resolve buffer: %w", err)
	}
	t.readback, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "timestamp_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create readback buffer: %w", err)
	}
	t.period = float64(d.queue.GetTimestampPeriod())
	return nil
}

// Supported reports whether the timer records samples.
func (t *Timer) Supported() bool { return t.querySet != nil }

// Enable turns timing of the named pass on or off.
func (t *Timer) Enable(name string, on bool) {
	for i := range t.passes {
		if t.passes[i].name == name {
			t.passes[i].enabled = on
		}
	}
}

// Enabled reports whether the named pass is timed.
func (t *Timer) Enabled(name string) bool {
	for _, p := range t.passes {
		if p.name == name {
			return p.enabled
		}
	}
	return false
}

// begin fixes the timed passes of the next submission and reports whether
// timestamps are written. Slots, the resolved range and the readback all
// derive from this list until the next begin.
func (t *Timer) begin() bool {
	t.inFlight = t.inFlight[:0]
	for _, p := range t.passes {
		if p.enabled {
			t.inFlight = append(t.inFlight, p.name)
		}
	}
	return t.Supported() && len(t.inFlight) > 0
}

// slots returns the begin and end query indices of the named pass in the
// current submission.
func (t *Timer) slots(name string) (begin, end uint32, ok bool) {
	for i, n := range t.inFlight {
		if n == name {
			return uint32(2 * i), uint32(2*i + 1), true
		}
	}
	return 0, 0, false
}

// resolveCount is the number of queries written by the current submission,
// all of them in [0, resolveCount).
func (t *Timer) resolveCount() uint32 {
	return uint32(2 * len(t.inFlight))
}

// writes returns the timestamp writes for a compute pass, or nil when the
// pass is not timed.
func (t *Timer) writes(name string) *hal.ComputePassTimestampWrites {
	if !t.Supported() {
		return nil
	}
	b, e, ok := t.slots(name)
	if !ok {
		return nil
	}
	return &hal.ComputePassTimestampWrites{
		QuerySet:                  t.querySet,
		BeginningOfPassWriteIndex: &b,
		EndOfPassWriteIndex:       &e,
	}
}

// encodeResolve resolves the in-flight range into the readback buffer.
func (t *Timer) encodeResolve(enc hal.CommandEncoder) {
	count := t.resolveCount()
	if !t.Supported() || count == 0 {
		return
	}
	enc.ResolveQuerySet(t.querySet, 0, count, t.resolve, 0)
	enc.CopyBufferToBuffer(t.resolve, t.readback, []hal.BufferCopy{{Size: uint64(count) * 8}})
}

// collect reads back the resolved timestamps of the completed submission
// and feeds the rolling averages.
func (t *Timer) collect() error {
	count := t.resolveCount()
	if !t.Supported() || count == 0 {
		return nil
	}
	size := uint64(count) * 8
	m, err := t.dev.MapBuffer(t.readback, 0, size)
	if err != nil {
		return fmt.Errorf("gpu: map timestamp readback: %w", err)
	}
	raw := unsafe.Slice((*byte)(m.Ptr), size)
	durations := decodeTimestamps(raw, t.period)
	if err := t.dev.UnmapBuffer(t.readback); err != nil {
		return fmt.Errorf("gpu: unmap timestamp readback: %w", err)
	}
	for i, d := range durations {
		if d >= 0 {
			t.averages.Add(t.inFlight[i], d)
		}
	}
	return nil
}

// decodeTimestamps converts little-endian begin/end tick pairs into
// durations. Pairs whose end precedes the begin yield -1.
func decodeTimestamps(raw []byte, period float64) []time.Duration {
	out := make([]time.Duration, len(raw)/16)
	for i := range out {
		b := binary.LittleEndian.Uint64(raw[i*16:])
		e := binary.LittleEndian.Uint64(raw[i*16+8:])
		if e < b {
			out[i] = -1
			continue
		}
		out[i] = time.Duration(float64(e-b) * period)
	}
	return out
}

// Reset clears the rolling averages.
func (t *Timer) Reset() { t.averages.Reset() }

// Snapshot returns the per-pass averages.
func (t *Timer) Snapshot() []profile.Pass { return t.averages.Snapshot() }

func (t *Timer) destroy() {
	if t.dev == nil {
		return
	}
	if t.readback != nil {
		t.dev.DestroyBuffer(t.readback)
		t.readback = nil
	}
	if t.resolve != nil {
		t.dev.DestroyBuffer(t.resolve)
		t.resolve = nil
	}
	if t.querySet != nil {
		t.dev.DestroyQuerySet(t.querySet)
		t.querySet = nil
	}
}
