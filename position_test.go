// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"testing"
)

func TestOrientationRotation(t *testing.T) {
	tests := []struct {
		o       Orientation
		want    int
		swapped bool
	}{
		{Orientation{}, 0, false},
		{Orientation{Angle: 90}, 1, true},
		{Orientation{Angle: 180}, 2, false},
		{Orientation{Angle: 270}, 3, true},
		{Orientation{Angle: 360}, 0, false},
		{Orientation{Angle: -90}, 3, true},
		{Orientation{Angle: 180, BaseAngle: 90}, 3, true},
		{Orientation{Angle: 90, BaseAngle: 270}, 0, false},
	}
	for _, tt := range tests {
		if got := tt.o.Rotation(); got != tt.want {
			t.Errorf("%+v.Rotation() = %d, want %d", tt.o, got, tt.want)
		}
		if got := tt.o.Swapped(); got != tt.swapped {
			t.Errorf("%+v.Swapped() = %v, want %v", tt.o, got, tt.swapped)
		}
	}
	if err := (Orientation{Angle: 45}).Validate(); err == nil {
		t.Error("Validate() accepted a 45 degree angle")
	}
}

func TestCropValidate(t *testing.T) {
	tests := []struct {
		name string
		c    Crop
		ok   bool
	}{
		{"zero", Crop{}, true},
		{"full", FullCrop(), true},
		{"center", Crop{0.25, 0.25, 0.75, 0.75}, true},
		{"inverted", Crop{0.6, 0, 0.4, 1}, false},
		{"empty", Crop{0.5, 0, 0.5, 1}, false},
		{"out of range", Crop{-0.1, 0, 1, 1}, false},
		{"nan", Crop{0, 0, math.NaN(), 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidCrop) {
				t.Fatalf("Validate() = %v, want ErrInvalidCrop", err)
			}
		})
	}
}

func TestFramePositionTarget(t *testing.T) {
	p := FramePosition{Source: Size(1920, 1080), Output: Size(512, 288)}
	if got := p.Target(); got != Size(512, 288) {
		t.Errorf("Target() = %v", got)
	}
	p.Orientation.Angle = 90
	if got := p.Target(); got != Size(288, 512) {
		t.Errorf("rotated Target() = %v, want 288x512", got)
	}
	if got := p.Rotated(); got != Size(1080, 1920) {
		t.Errorf("Rotated() = %v, want 1080x1920", got)
	}
	p.Output = FrameSize{}
	if got := p.Target(); got != Size(1080, 1920) {
		t.Errorf("Target() without output = %v, want source rotated", got)
	}
}

func TestFramePositionCropRect(t *testing.T) {
	p := FramePosition{
		Source: Size(1920, 1080),
		Crop:   Crop{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75},
	}
	x, y, w, h := p.CropRect()
	if x != 480 || y != 270 || w != 960 || h != 540 {
		t.Errorf("CropRect() = %d,%d %dx%d, want 480,270 960x540", x, y, w, h)
	}
	if got := p.SourceRect(); got != image.Rect(480, 270, 1440, 810) {
		t.Errorf("SourceRect() = %v", got)
	}

	// Crop fractions refer to the rotated frame.
	p.Orientation.Angle = 90
	p.Crop = Crop{Left: 0, Top: 0, Right: 0.5, Bottom: 1}
	x, y, w, h = p.CropRect()
	if x != 0 || y != 0 || w != 540 || h != 1920 {
		t.Errorf("rotated CropRect() = %d,%d %dx%d, want 0,0 540x1920", x, y, w, h)
	}
	// The left half of the rotated frame is the bottom half of the source.
	if got := p.SourceRect(); got != image.Rect(0, 540, 1920, 1080) {
		t.Errorf("rotated SourceRect() = %v", got)
	}

	// Degenerate crops keep at least one pixel.
	p = FramePosition{Source: Size(10, 10), Crop: Crop{Left: 0.99, Top: 0, Right: 1, Bottom: 1}}
	if _, _, w, _ := p.CropRect(); w != 1 {
		t.Errorf("tiny crop width = %d, want 1", w)
	}
}

func TestSourceToOutputCorners(t *testing.T) {
	apply := func(m [6]float64, x, y float64) (float64, float64) {
		return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
	}
	const w, h = 40, 20
	tests := []struct {
		name   string
		o      Orientation
		wantTL [2]float64 // where the source origin lands
	}{
		{"identity", Orientation{}, [2]float64{0, 0}},
		{"cw90", Orientation{Angle: 90}, [2]float64{h, 0}},
		{"180", Orientation{Angle: 180}, [2]float64{w, h}},
		{"cw270", Orientation{Angle: 270}, [2]float64{0, w}},
		{"mirrored", Orientation{Mirrored: true}, [2]float64{w, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FramePosition{Source: Size(w, h), Orientation: tt.o}
			m := p.SourceToOutput()
			x, y := apply(m, 0, 0)
			if math.Abs(x-tt.wantTL[0]) > 1e-9 || math.Abs(y-tt.wantTL[1]) > 1e-9 {
				t.Errorf("origin maps to (%v,%v), want %v", x, y, tt.wantTL)
			}
			// The far corner must land on the opposite corner of the target.
			tgt := p.Target()
			fx, fy := apply(m, w, h)
			if math.Abs(math.Abs(fx-x)-float64(tgt.Width)) > 1e-9 || math.Abs(math.Abs(fy-y)-float64(tgt.Height)) > 1e-9 {
				t.Errorf("frame spans (%v,%v), want target %v", fx-x, fy-y, tgt)
			}
		})
	}
}

func TestSourceToOutputScalesCrop(t *testing.T) {
	p := FramePosition{
		Source: Size(1920, 1080),
		Output: Size(512, 288),
		Crop:   Crop{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75},
	}
	m := p.SourceToOutput()
	x0 := m[0]*480 + m[1]*270 + m[2]
	y0 := m[3]*480 + m[4]*270 + m[5]
	x1 := m[0]*1440 + m[1]*810 + m[2]
	y1 := m[3]*1440 + m[4]*810 + m[5]
	if math.Abs(x0) > 1e-9 || math.Abs(y0) > 1e-9 || math.Abs(x1-512) > 1e-9 || math.Abs(y1-288) > 1e-9 {
		t.Errorf("crop maps to (%v,%v)-(%v,%v), want (0,0)-(512,288)", x0, y0, x1, y1)
	}
}

func TestPositionUniformBytes(t *testing.T) {
	p := FramePosition{
		Source:      Size(1920, 1080),
		Output:      Size(512, 288),
		Orientation: Orientation{Angle: 90, Mirrored: true},
	}
	u := p.Uniform()
	if u.Cos != 0 || u.Sin != 1 || u.TranslateX != 1080 || u.TranslateY != 0 {
		t.Errorf("rotation fields = %+v", u)
	}
	if u.TargetW != 288 || u.TargetH != 512 || u.Mirrored != 1 {
		t.Errorf("target fields = %+v", u)
	}
	b := u.Bytes()
	if len(b) != PositionUniformSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), PositionUniformSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[4:])); got != 1 {
		t.Errorf("sin = %v, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(b[8:]); got != 1080 {
		t.Errorf("translate.x = %d, want 1080", got)
	}
	if got := binary.LittleEndian.Uint32(b[40:]); got != 288 {
		t.Errorf("target.w = %d, want 288", got)
	}
	if got := binary.LittleEndian.Uint32(b[48:]); got != 1 {
		t.Errorf("mirrored = %d, want 1", got)
	}
}
