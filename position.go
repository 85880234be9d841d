// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/math/f64"
)

// Orientation combines the user rotation and mirroring with the base
// rotation found in the container metadata. Angles are in degrees and must
// be multiples of 90; rotation is clockwise on screen.
type Orientation struct {
	Angle     int
	Mirrored  bool
	BaseAngle int
}

// Validate rejects angles that are not quarter turns.
func (o Orientation) Validate() error {
	if o.Angle%90 != 0 || o.BaseAngle%90 != 0 {
		return fmt.Errorf("frameproc: orientation angles must be multiples of 90, got %d+%d", o.Angle, o.BaseAngle)
	}
	return nil
}

// Rotation returns the cumulative number of clockwise quarter turns, 0..3.
func (o Orientation) Rotation() int {
	q := ((o.Angle + o.BaseAngle) / 90) % 4
	if q < 0 {
		q += 4
	}
	return q
}

// Swapped reports whether the cumulative rotation is 90 or 270 degrees.
func (o Orientation) Swapped() bool { return o.Rotation()%2 == 1 }

// Crop is a rectangle in fractions of the rotated frame.
// The zero value means no crop.
type Crop struct {
	Left, Top, Right, Bottom float64
}

// FullCrop covers the whole frame.
func FullCrop() Crop { return Crop{Left: 0, Top: 0, Right: 1, Bottom: 1} }

// IsZero reports whether the crop is unset.
func (c Crop) IsZero() bool { return c == Crop{} }

func (c Crop) normalized() Crop {
	if c.IsZero() {
		return FullCrop()
	}
	return c
}

// Validate requires every edge in [0,1] with Right > Left and Bottom > Top.
// The zero value is valid.
func (c Crop) Validate() error {
	if c.IsZero() {
		return nil
	}
	for _, v := range [...]float64{c.Left, c.Top, c.Right, c.Bottom} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: edge %v outside [0,1]", ErrInvalidCrop, v)
		}
	}
	if c.Right <= c.Left || c.Bottom <= c.Top {
		return fmt.Errorf("%w: empty rectangle %+v", ErrInvalidCrop, c)
	}
	return nil
}

// FramePosition describes where a source frame lands in the output.
// The oriented and cropped source region always covers the whole target.
type FramePosition struct {
	Source      FrameSize
	Output      FrameSize
	Orientation Orientation
	Crop        Crop
}

// Rotated returns the source size after orientation.
func (p FramePosition) Rotated() FrameSize {
	if p.Orientation.Swapped() {
		return p.Source.Swap()
	}
	return p.Source
}

// Target returns the oriented output size: the requested output resolution
// with width and height swapped for 90 and 270 degree rotations. A zero
// output resolution means the source size.
func (p FramePosition) Target() FrameSize {
	out := p.Output
	if out.IsZero() {
		out = p.Source
	}
	if p.Orientation.Swapped() {
		return out.Swap()
	}
	return out
}

// CropRect returns the integer crop origin and size in rotated pixels.
// The size is at least one pixel in each direction.
func (p FramePosition) CropRect() (x, y, w, h uint32) {
	r := p.Rotated()
	c := p.Crop.normalized()
	x0 := uint32(math.Round(c.Left * float64(r.Width)))
	y0 := uint32(math.Round(c.Top * float64(r.Height)))
	x1 := uint32(math.Round(c.Right * float64(r.Width)))
	y1 := uint32(math.Round(c.Bottom * float64(r.Height)))
	w, h = 1, 1
	if x1 > x0 {
		w = x1 - x0
	}
	if y1 > y0 {
		h = y1 - y0
	}
	if x0+w > r.Width && r.Width >= w {
		x0 = r.Width - w
	}
	if y0+h > r.Height && r.Height >= h {
		y0 = r.Height - h
	}
	return x0, y0, w, h
}

// rotation returns cos and sin of the cumulative clockwise rotation and
// the integer translation that brings the rotated frame back into the
// positive quadrant.
func (p FramePosition) rotation() (cos, sin float64, tx, ty uint32) {
	w, h := p.Source.Width, p.Source.Height
	switch p.Orientation.Rotation() {
	case 1:
		return 0, 1, h, 0
	case 2:
		return -1, 0, w, h
	case 3:
		return 0, -1, 0, w
	default:
		return 1, 0, 0, 0
	}
}

// PositionUniform is the GPU layout of the positioning parameters.
// Size is 64 bytes; every vec2 is 8-byte aligned.
type PositionUniform struct {
	Cos, Sin   float32
	TranslateX uint32
	TranslateY uint32
	CropX      uint32
	CropY      uint32
	CropW      uint32
	CropH      uint32
	SourceW    uint32
	SourceH    uint32
	TargetW    uint32
	TargetH    uint32
	Mirrored   uint32
}

// PositionUniformSize is the byte size of an encoded PositionUniform.
const PositionUniformSize = 64

// Uniform derives the GPU parameters of the positioning pass.
func (p FramePosition) Uniform() PositionUniform {
	cos, sin, tx, ty := p.rotation()
	cx, cy, cw, ch := p.CropRect()
	t := p.Target()
	u := PositionUniform{
		Cos: float32(cos), Sin: float32(sin),
		TranslateX: tx, TranslateY: ty,
		CropX: cx, CropY: cy, CropW: cw, CropH: ch,
		SourceW: p.Source.Width, SourceH: p.Source.Height,
		TargetW: t.Width, TargetH: t.Height,
	}
	if p.Orientation.Mirrored {
		u.Mirrored = 1
	}
	return u
}

// Bytes encodes the uniform in little-endian GPU layout.
func (u PositionUniform) Bytes() []byte {
	b := make([]byte, PositionUniformSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(u.Cos))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(u.Sin))
	words := [...]uint32{
		u.TranslateX, u.TranslateY,
		u.CropX, u.CropY, u.CropW, u.CropH,
		u.SourceW, u.SourceH,
		u.TargetW, u.TargetH,
		u.Mirrored,
	}
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[8+4*i:], w)
	}
	return b
}

// SourceToOutput returns the affine transform from source pixel space to
// target pixel space: mirror, rotate, translate, crop, scale.
func (p FramePosition) SourceToOutput() f64.Aff3 {
	cos, sin, tx, ty := p.rotation()
	cx, cy, cw, ch := p.CropRect()
	t := p.Target()

	m := f64.Aff3{1, 0, 0, 0, 1, 0}
	if p.Orientation.Mirrored {
		m = f64.Aff3{-1, 0, float64(p.Source.Width), 0, 1, 0}
	}
	rot := f64.Aff3{cos, -sin, float64(tx), sin, cos, float64(ty)}
	sx := float64(t.Width) / float64(cw)
	sy := float64(t.Height) / float64(ch)
	crop := f64.Aff3{sx, 0, -float64(cx) * sx, 0, sy, -float64(cy) * sy}

	return mulAff3(crop, mulAff3(rot, m))
}

// SourceRect returns the crop region in source pixel coordinates, before
// orientation. Resampling is restricted to it so that no pixel outside the
// crop contributes to the output.
func (p FramePosition) SourceRect() image.Rectangle {
	cos, sin, tx, ty := p.rotation()
	cx, cy, cw, ch := p.CropRect()
	back := func(qx, qy float64) (float64, float64) {
		dx, dy := qx-float64(tx), qy-float64(ty)
		sx, sy := cos*dx+sin*dy, -sin*dx+cos*dy
		if p.Orientation.Mirrored {
			sx = float64(p.Source.Width) - sx
		}
		return sx, sy
	}
	x0, y0 := back(float64(cx), float64(cy))
	x1, y1 := back(float64(cx+cw), float64(cy+ch))
	return image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x1)), int(math.Round(y1)),
	)
}

// mulAff3 returns a∘b, applying b first.
func mulAff3(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}
