// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import (
	"fmt"
	"image"
	"image/draw"
)

// FrameSize is the pixel size of a frame or of the rendered output.
// The zero value means "no frame yet".
type FrameSize struct {
	Width  uint32
	Height uint32
}

// Size is a convenience constructor.
func Size(w, h uint32) FrameSize { return FrameSize{Width: w, Height: h} }

// IsZero reports whether either dimension is zero.
func (s FrameSize) IsZero() bool { return s.Width == 0 || s.Height == 0 }

// ByteSize returns the size of a tightly packed 4-byte RGBA image.
func (s FrameSize) ByteSize() uint64 { return uint64(s.Width) * uint64(s.Height) * 4 }

// Swap returns the size with width and height exchanged.
func (s FrameSize) Swap() FrameSize { return FrameSize{Width: s.Height, Height: s.Width} }

func (s FrameSize) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// PixelFormat describes the layout of Frame.Data.
type PixelFormat uint8

const (
	// PixelFormatRGBA is 4 bytes per pixel, R G B A.
	PixelFormatRGBA PixelFormat = iota
	// PixelFormatBGRA is 4 bytes per pixel, B G R A (common decoder output).
	PixelFormatBGRA
	// PixelFormatRGB is 3 bytes per pixel, alpha is implied opaque.
	PixelFormatRGB
)

// BytesPerPixel returns the packed pixel width, or 0 for unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4
	case PixelFormatRGB:
		return 3
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA:
		return "rgba"
	case PixelFormatBGRA:
		return "bgra"
	case PixelFormatRGB:
		return "rgb"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
}

// Frame is a decoded video frame as handed over by the decoder.
//
// Stride may be larger than Width*BytesPerPixel when the decoder pads rows.
// A zero Stride means tightly packed rows.
type Frame struct {
	Size   FrameSize
	Stride int
	Format PixelFormat
	Data   []byte

	// Seq is an optional caller-assigned sequence number, carried through
	// for logging only.
	Seq uint64
}

func (f *Frame) stride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return int(f.Size.Width) * f.Format.BytesPerPixel()
}

// Validate checks that the frame has a usable size, a known format and
// enough bytes for every row.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Size.IsZero() {
		return fmt.Errorf("%w: zero size %s", ErrInvalidFrame, f.Size)
	}
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("%w: unknown pixel format %s", ErrInvalidFrame, f.Format)
	}
	row := int(f.Size.Width) * bpp
	stride := f.stride()
	if stride < row {
		return fmt.Errorf("%w: stride %d shorter than row %d", ErrInvalidFrame, stride, row)
	}
	need := stride*(int(f.Size.Height)-1) + row
	if len(f.Data) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrInvalidFrame, len(f.Data), need)
	}
	return nil
}

// RGBA returns the frame as tightly packed RGBA8 bytes. Frames that are
// already packed RGBA are returned without copying.
func (f *Frame) RGBA() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	w, h := int(f.Size.Width), int(f.Size.Height)
	stride := f.stride()
	if f.Format == PixelFormatRGBA && stride == w*4 {
		return f.Data[:w*h*4], nil
	}

	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		src := f.Data[y*stride:]
		dst := out[y*w*4 : (y+1)*w*4]
		switch f.Format {
		case PixelFormatRGBA:
			copy(dst, src[:w*4])
		case PixelFormatBGRA:
			for x := 0; x < w; x++ {
				s, d := src[x*4:x*4+4], dst[x*4:x*4+4]
				d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
			}
		case PixelFormatRGB:
			for x := 0; x < w; x++ {
				s, d := src[x*3:x*3+3], dst[x*4:x*4+4]
				d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 0xff
			}
		}
	}
	return out, nil
}

// Image wraps the frame in an *image.RGBA, converting if needed.
func (f *Frame) Image() (*image.RGBA, error) {
	pix, err := f.RGBA()
	if err != nil {
		return nil, err
	}
	w, h := int(f.Size.Width), int(f.Size.Height)
	return &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
}

// FrameFromImage builds an RGBA frame from any image. *image.RGBA sources
// anchored at the origin are shared, others are converted.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &Frame{
		Size:   Size(uint32(b.Dx()), uint32(b.Dy())),
		Stride: rgba.Stride,
		Format: PixelFormatRGBA,
		Data:   rgba.Pix,
	}
}
