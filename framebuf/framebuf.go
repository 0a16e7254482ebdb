// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package framebuf implements a 1 bit per pixel bitmap with horizontal,
// most-significant-bit first packing, as consumed by SSD1680-class e-paper
// controllers.
package framebuf

import (
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Image is a 1 bit image. Each row starts on a byte boundary; the leftmost
// pixel of a byte is its most significant bit.
//
// image1bit.On is stored as a set bit.
type Image struct {
	// Pix holds the image's pixels, Stride bytes per row.
	Pix []byte
	// Stride is the number of bytes per row.
	Stride int
	// Rect is the image's bounds. Its width is a multiple of 8.
	Rect image.Rectangle
}

// New returns an image of w by h pixels, with w rounded up to a multiple of 8.
// All pixels are image1bit.Off.
func New(w, h int) *Image {
	stride := (w + 7) / 8
	return &Image{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   image.Rect(0, 0, stride*8, h),
	}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.BitAt(x, y)
}

// BitAt is the efficient version of At. Points outside the image are Off.
func (i *Image) BitAt(x, y int) image1bit.Bit {
	if !(image.Pt(x, y).In(i.Rect)) {
		return image1bit.Off
	}
	off, mask := i.pixOffset(x, y)
	return image1bit.Bit(i.Pix[off]&mask != 0)
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetBit(x, y, image1bit.BitModel.Convert(c).(image1bit.Bit))
}

// SetBit is the efficient version of Set. Points outside the image are
// ignored.
func (i *Image) SetBit(x, y int, b image1bit.Bit) {
	if !(image.Pt(x, y).In(i.Rect)) {
		return
	}
	off, mask := i.pixOffset(x, y)
	if b {
		i.Pix[off] |= mask
	} else {
		i.Pix[off] &^= mask
	}
}

// Fill sets every pixel to b.
func (i *Image) Fill(b image1bit.Bit) {
	v := byte(0)
	if b {
		v = 0xff
	}
	for n := range i.Pix {
		i.Pix[n] = v
	}
}

// FillRect sets the pixels of r, clipped to the image, to b.
func (i *Image) FillRect(r image.Rectangle, b image1bit.Bit) {
	r = r.Intersect(i.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i.SetBit(x, y, b)
		}
	}
}

// HLine draws a horizontal line of w pixels starting at (x, y).
func (i *Image) HLine(x, y, w int, b image1bit.Bit) {
	i.FillRect(image.Rect(x, y, x+w, y+1), b)
}

// Scroll moves the image content down by dy rows, or up when dy is negative.
// Rows uncovered by the move keep their previous content.
func (i *Image) Scroll(dy int) {
	h := i.Rect.Dy()
	if dy == 0 || dy >= h || -dy >= h {
		return
	}
	n := i.Stride * (h - abs(dy))
	if dy < 0 {
		copy(i.Pix, i.Pix[-dy*i.Stride:][:n])
	} else {
		copy(i.Pix[dy*i.Stride:], i.Pix[:n])
	}
}

// Bytes returns the packed pixel data, Stride bytes per row.
func (i *Image) Bytes() []byte {
	return i.Pix
}

func (i *Image) pixOffset(x, y int) (int, byte) {
	x -= i.Rect.Min.X
	y -= i.Rect.Min.Y
	return y*i.Stride + x/8, 0x80 >> uint(x%8)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var _ draw.Image = &Image{}
