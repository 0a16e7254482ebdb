// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epdpng converts e-paper frames dumped by co2log in export mode to a PNG.
//
//	co2log | tee test.log
//	epdpng -i test.log -o test.png
//
// Only lines starting with -p are considered. Frames sent to the panel are
// inverted, unless -invert is given: a cleared bit is ink.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/glog"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/co2log/waveshare2in13bv4"
)

var (
	in      = flag.String("i", "-", "input log with exported frames, - for stdin")
	out     = flag.String("o", "-", "PNG file to write, - for stdout")
	prefix  = flag.String("p", waveshare2in13bv4.ExportPrefix, "line prefix of exported frames")
	index   = flag.Int("n", -1, "frame to convert, negative values count from the last one")
	invert  = flag.Bool("invert", false, "do not assume the frames are inverted")
	caption = flag.String("caption", "", "text drawn below the frame")
)

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := mainImpl(); err != nil {
		glog.Exit(err)
	}
}

func mainImpl() error {
	r := io.Reader(os.Stdin)
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	frames, err := waveshare2in13bv4.ParseExport(r, *prefix)
	if err != nil {
		return err
	}
	f, err := pick(frames, *index)
	if err != nil {
		return err
	}
	glog.V(1).Infof("frame %d of %d, %dx%d", *index, len(frames), f.Black.Width, f.Black.Height)
	dc, err := render(f, *invert, *caption)
	if err != nil {
		return err
	}
	if *out == "-" {
		return dc.EncodePNG(os.Stdout)
	}
	tmp := *out + ".new"
	defer os.Remove(tmp)
	if err := dc.SavePNG(tmp); err != nil {
		return err
	}
	return os.Rename(tmp, *out)
}

// pick returns frames[n], with negative n counting from the end.
func pick(frames []waveshare2in13bv4.Frame, n int) (waveshare2in13bv4.Frame, error) {
	if len(frames) == 0 {
		return waveshare2in13bv4.Frame{}, errors.New("no frame found")
	}
	i := n
	if i < 0 {
		i += len(frames)
	}
	if i < 0 || i >= len(frames) {
		return waveshare2in13bv4.Frame{}, fmt.Errorf("frame %d out of range, found %d", n, len(frames))
	}
	return frames[i], nil
}

const captionSize = 12

// render composes the frame, with caption below it when not empty.
func render(f waveshare2in13bv4.Frame, raw bool, caption string) (*gg.Context, error) {
	img := f.Image(raw)
	b := img.Bounds()
	if caption == "" {
		return gg.NewContextForRGBA(toRGBA(img)), nil
	}
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(font, &truetype.Options{Size: captionSize})
	defer face.Close()
	pad := 4.0
	dc := gg.NewContext(b.Dx(), b.Dy()+int(captionSize+2*pad))
	dc.DrawImage(img, 0, 0)
	dc.SetFontFace(face)
	dc.SetColor(waveshare2in13bv4.InkBlack)
	dc.DrawStringAnchored(caption, float64(b.Dx())/2, float64(b.Dy())+pad+captionSize/2, 0.5, 0.5)
	return dc, nil
}

func toRGBA(img image.Image) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}
