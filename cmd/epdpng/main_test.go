// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/GermanBionicSystems/co2log/waveshare2in13bv4"
)

func frame(t *testing.T, black, red byte) waveshare2in13bv4.Frame {
	t.Helper()
	bk := bytes.Repeat([]byte{black}, 2)
	rd := bytes.Repeat([]byte{red}, 2)
	return waveshare2in13bv4.Frame{
		Black: waveshare2in13bv4.Bitmap{Tag: waveshare2in13bv4.TagBlack, Width: 8, Height: 2, Data: bk},
		Red:   waveshare2in13bv4.Bitmap{Tag: waveshare2in13bv4.TagRed, Width: 8, Height: 2, Data: rd},
	}
}

func TestPick(t *testing.T) {
	frames := []waveshare2in13bv4.Frame{frame(t, 0, 0), frame(t, 1, 1), frame(t, 2, 2)}
	for _, tc := range []struct {
		n    int
		want byte
	}{{0, 0}, {2, 2}, {-1, 2}, {-3, 0}} {
		f, err := pick(frames, tc.n)
		if err != nil {
			t.Fatal(err)
		}
		if f.Black.Data[0] != tc.want {
			t.Errorf("pick(%d) = frame %d", tc.n, f.Black.Data[0])
		}
	}
	for _, n := range []int{3, -4} {
		if _, err := pick(frames, n); err == nil {
			t.Errorf("pick(%d) should fail", n)
		}
	}
	if _, err := pick(nil, -1); err == nil {
		t.Error("pick on no frames should fail")
	}
}

func TestRender(t *testing.T) {
	// Black ink in the leftmost column, red in the second one.
	f := frame(t, 0x7f, 0xbf)
	dc, err := render(f, false, "")
	if err != nil {
		t.Fatal(err)
	}
	img := dc.Image()
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	for _, tc := range []struct {
		x    int
		want color.Color
	}{
		{0, color.RGBA{A: 0xff}},
		{1, color.RGBA{R: 0xff, A: 0xff}},
		{2, color.RGBA{}},
	} {
		r, g, b, a := img.At(tc.x, 1).RGBA()
		wr, wg, wb, wa := tc.want.RGBA()
		if r != wr || g != wg || b != wb || a != wa {
			t.Errorf("At(%d, 1) = %v, want %v", tc.x, img.At(tc.x, 1), tc.want)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatal(err)
	}
}

func TestRenderCaption(t *testing.T) {
	dc, err := render(frame(t, 0xff, 0xff), false, "CO2")
	if err != nil {
		t.Fatal(err)
	}
	b := dc.Image().Bounds()
	if b.Dx() != 8 || b.Dy() <= 2+captionSize {
		t.Fatalf("bounds = %v", b)
	}
}
