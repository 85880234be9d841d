// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EffectParameters are the color adjustments of the effects pass.
// Hue is in degrees; the other fields are unitless.
type EffectParameters struct {
	Contrast   float32
	Brightness float32
	Hue        float32
	Saturation float32
}

// DefaultEffects returns the neutral parameter set.
func DefaultEffects() EffectParameters {
	return EffectParameters{Contrast: 1}
}

// IsDefault reports whether every field has its neutral value, in which case
// the effects pass is skipped.
func (p EffectParameters) IsDefault() bool {
	return p == DefaultEffects()
}

// Validate checks the parameter ranges.
func (p EffectParameters) Validate() error {
	check := func(name string, v, lo, hi float32) error {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || v < lo || v > hi {
			return fmt.Errorf("%w: %s %v outside [%v,%v]", ErrInvalidEffects, name, v, lo, hi)
		}
		return nil
	}
	if err := check("contrast", p.Contrast, 0, 4); err != nil {
		return err
	}
	if err := check("brightness", p.Brightness, -1, 1); err != nil {
		return err
	}
	if err := check("hue", p.Hue, -180, 180); err != nil {
		return err
	}
	return check("saturation", p.Saturation, -1, 1)
}

// EffectsUniformSize is the byte size of the encoded effects uniform.
const EffectsUniformSize = 16

// Bytes encodes the parameters for the effects shader: contrast,
// brightness, saturation, hue in radians.
func (p EffectParameters) Bytes() []byte {
	b := make([]byte, EffectsUniformSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(p.Contrast))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(p.Brightness))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(p.Saturation))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(p.Hue*math.Pi/180))
	return b
}

// Apply runs the color adjustments over packed RGBA8 pixels in place.
// It mirrors the effects shader; alpha is untouched. Default parameters
// leave the pixels unchanged.
func (p EffectParameters) Apply(pix []byte) {
	if p.IsDefault() {
		return
	}
	p.apply(pix)
}

// apply runs the color math unconditionally.
func (p EffectParameters) apply(pix []byte) {
	hue := p.Hue != 0
	var hc, hs float32
	if hue {
		rad := float64(p.Hue) * math.Pi / 180
		hc, hs = float32(math.Cos(rad)), float32(math.Sin(rad))
	}
	for i := 0; i+3 < len(pix); i += 4 {
		r := float32(pix[i]) / 255
		g := float32(pix[i+1]) / 255
		b := float32(pix[i+2]) / 255

		r = (r-0.5)*p.Contrast + 0.5 + p.Brightness
		g = (g-0.5)*p.Contrast + 0.5 + p.Brightness
		b = (b-0.5)*p.Contrast + 0.5 + p.Brightness

		l := luma(r, g, b)
		k := 1 + p.Saturation
		r, g, b = l+(r-l)*k, l+(g-l)*k, l+(b-l)*k

		if hue {
			y := luma(r, g, b)
			ci := 0.596*r - 0.274*g - 0.322*b
			cq := 0.211*r - 0.523*g + 0.312*b
			ci, cq = ci*hc-cq*hs, ci*hs+cq*hc
			r = y + 0.956*ci + 0.621*cq
			g = y - 0.272*ci - 0.647*cq
			b = y - 1.106*ci + 1.703*cq
		}

		pix[i] = quantize(r)
		pix[i+1] = quantize(g)
		pix[i+2] = quantize(b)
	}
}

// luma is Rec.601 luminance.
func luma(r, g, b float32) float32 { return 0.299*r + 0.587*g + 0.114*b }

// quantize matches WGSL pack4x8unorm: clamp then floor(c*255 + 0.5).
func quantize(c float32) byte {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return byte(c*255 + 0.5)
}
