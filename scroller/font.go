// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scroller

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Font draws a single line of text.
type Font interface {
	// DrawString draws s in ink with the top left corner of the line box at
	// (x, y).
	DrawString(dst draw.Image, x, y int, s string, ink image1bit.Bit)
	// Height is the line box height in pixels.
	Height() int
}

// Basic is the 7x13 fixed font of golang.org/x/image.
var Basic Font = basicFont{face: basicfont.Face7x13}

// Tiny is an 8 pixel font, fitting 10 pixel lines.
var Tiny Font = &tinyFont{font: &proggy.TinySZ8pt7b, ascent: 7, height: 9}

// FontByName returns "basic" or "tiny".
func FontByName(name string) (Font, bool) {
	switch name {
	case "basic":
		return Basic, true
	case "tiny":
		return Tiny, true
	}
	return nil, false
}

type basicFont struct {
	face *basicfont.Face
}

func (f basicFont) DrawString(dst draw.Image, x, y int, s string, ink image1bit.Bit) {
	d := font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{ink},
		Face: f.face,
		Dot:  fixed.P(x, y+f.face.Ascent),
	}
	d.DrawString(s)
}

func (f basicFont) Height() int {
	return f.face.Height
}

type tinyFont struct {
	font   tinyfont.Fonter
	ascent int
	height int
}

func (f *tinyFont) DrawString(dst draw.Image, x, y int, s string, ink image1bit.Bit) {
	tinyfont.WriteLine(&bitDisplayer{dst: dst, ink: ink}, f.font, int16(x), int16(y+f.ascent), s, color.RGBA{A: 0xff})
}

func (f *tinyFont) Height() int {
	return f.height
}

// bitDisplayer paints every pixel tinyfont sets with a fixed ink.
type bitDisplayer struct {
	dst draw.Image
	ink image1bit.Bit
}

func (d *bitDisplayer) Size() (x, y int16) {
	b := d.dst.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

func (d *bitDisplayer) SetPixel(x, y int16, c color.RGBA) {
	d.dst.Set(int(x), int(y), d.ink)
}

func (d *bitDisplayer) Display() error {
	return nil
}

var _ drivers.Displayer = &bitDisplayer{}
