// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestEffectParametersIsDefault(t *testing.T) {
	if !DefaultEffects().IsDefault() {
		t.Fatal("DefaultEffects().IsDefault() = false")
	}
	if (EffectParameters{}).IsDefault() {
		t.Error("zero contrast must not be default")
	}
	for _, p := range []EffectParameters{
		{Contrast: 1.01},
		{Contrast: 1, Brightness: 0.1},
		{Contrast: 1, Hue: 10},
		{Contrast: 1, Saturation: -0.5},
	} {
		if p.IsDefault() {
			t.Errorf("%+v.IsDefault() = true", p)
		}
	}
}

func TestEffectParametersValidate(t *testing.T) {
	valid := []EffectParameters{
		DefaultEffects(),
		{Contrast: 0, Brightness: -1, Hue: -180, Saturation: -1},
		{Contrast: 4, Brightness: 1, Hue: 180, Saturation: 1},
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("%+v.Validate() = %v", p, err)
		}
	}
	invalid := []EffectParameters{
		{Contrast: -0.1},
		{Contrast: 1, Brightness: 1.5},
		{Contrast: 1, Hue: 200},
		{Contrast: 1, Saturation: float32(math.NaN())},
		{Contrast: float32(math.Inf(1))},
	}
	for _, p := range invalid {
		if err := p.Validate(); !errors.Is(err, ErrInvalidEffects) {
			t.Errorf("%+v.Validate() = %v, want ErrInvalidEffects", p, err)
		}
	}
}

// Running the color math with neutral parameters must not change a single
// byte, so skipping the pass is only an optimization.
func TestDefaultEffectsAreIdentity(t *testing.T) {
	pix := make([]byte, 0, 64*64*64*4)
	for r := 0; r < 256; r += 4 {
		for g := 0; g < 256; g += 4 {
			for b := 0; b < 256; b += 4 {
				pix = append(pix, byte(r), byte(g), byte(b), byte(r^g))
			}
		}
	}
	// Include the extremes the stride above skips.
	pix = append(pix, 255, 255, 255, 255, 1, 254, 127, 0)

	got := bytes.Clone(pix)
	DefaultEffects().apply(got)
	if !bytes.Equal(got, pix) {
		for i := range pix {
			if got[i] != pix[i] {
				t.Fatalf("byte %d changed from %d to %d", i, pix[i], got[i])
			}
		}
	}
}

func TestEffectsApply(t *testing.T) {
	gray := []byte{100, 100, 100, 200}

	bright := bytes.Clone(gray)
	EffectParameters{Contrast: 1, Brightness: 0.2}.Apply(bright)
	if bright[0] <= 100 || bright[3] != 200 {
		t.Errorf("brightness: %v", bright)
	}

	flat := []byte{0, 255, 0, 255, 255, 0, 0, 255}
	EffectParameters{Contrast: 0}.Apply(flat)
	for i := 0; i < len(flat); i += 4 {
		if flat[i] != 128 || flat[i+1] != 128 || flat[i+2] != 128 {
			t.Errorf("zero contrast pixel %d = %v, want mid gray", i/4, flat[i:i+4])
		}
	}

	red := []byte{255, 0, 0, 255}
	EffectParameters{Contrast: 1, Saturation: -1}.Apply(red)
	if red[0] != red[1] || red[1] != red[2] {
		t.Errorf("desaturated red = %v, want gray", red)
	}

	// Hue rotation keeps gray untouched.
	g := bytes.Clone(gray)
	EffectParameters{Contrast: 1, Hue: 90}.Apply(g)
	if !bytes.Equal(g, gray) {
		t.Errorf("hue changed gray to %v", g)
	}

	// and moves a saturated color.
	c := []byte{255, 0, 0, 255}
	EffectParameters{Contrast: 1, Hue: 120}.Apply(c)
	if c[0] == 255 && c[1] == 0 && c[2] == 0 {
		t.Error("hue rotation did not change red")
	}
}

func TestEffectParametersBytes(t *testing.T) {
	b := EffectParameters{Contrast: 2, Brightness: 0.5, Hue: 180, Saturation: -0.25}.Bytes()
	if len(b) != EffectsUniformSize {
		t.Fatalf("len = %d", len(b))
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	if f(0) != 2 || f(4) != 0.5 || f(8) != -0.25 {
		t.Errorf("fields = %v %v %v", f(0), f(4), f(8))
	}
	if math.Abs(float64(f(12))-math.Pi) > 1e-6 {
		t.Errorf("hue = %v rad, want pi", f(12))
	}
}
