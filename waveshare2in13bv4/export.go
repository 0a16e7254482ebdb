// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13bv4

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"
)

// Export format
//
// Each plane is written as a blank line, a header line
// "<prefix><tag> <width> <height> <length>" and the plane bytes as base64,
// ExportLineBytes bytes per prefixed line. A blank line ends the dump. Rows
// are packed most significant bit first and a set bit is a blank pixel.
const (
	ExportPrefix    = "-epd-:"
	ExportLineBytes = 90

	TagBlack = "BK"
	TagRed   = "RD"
)

// Bitmap is one exported plane.
type Bitmap struct {
	Tag    string
	Width  int
	Height int
	Data   []byte
}

// Frame is a black and red plane pair of the same size.
type Frame struct {
	Black, Red Bitmap
}

// Ink colors used by Frame.Image.
var (
	InkBlack = color.NRGBA{A: 0xff}
	InkRed   = color.NRGBA{R: 0xff, A: 0xff}
)

// Image composites the frame on a transparent background, red ink over black
// ink. A cleared bit is ink, unless raw is set.
func (f Frame) Image(raw bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Black.Width, f.Black.Height))
	for _, p := range []struct {
		b Bitmap
		c color.NRGBA
	}{{f.Black, InkBlack}, {f.Red, InkRed}} {
		stride := p.b.Width / 8
		for i, bits := range p.b.Data {
			for n := 0; n < 8; n++ {
				set := bits&(0x80>>uint(n)) != 0
				if set == raw {
					img.SetNRGBA((i%stride)*8+n, i/stride, p.c)
				}
			}
		}
	}
	return img
}

// WriteExport writes bitmaps to w in the export format.
func WriteExport(w io.Writer, bitmaps ...Bitmap) error {
	bw := bufio.NewWriter(w)
	for _, b := range bitmaps {
		fmt.Fprintf(bw, "\n%s%s %d %d %d\n", ExportPrefix, b.Tag, b.Width, b.Height, len(b.Data))
		for n := 0; n < len(b.Data); n += ExportLineBytes {
			end := min(n+ExportLineBytes, len(b.Data))
			bw.WriteString(ExportPrefix)
			bw.WriteString(base64.StdEncoding.EncodeToString(b.Data[n:end]))
			bw.WriteByte('\n')
		}
	}
	bw.WriteByte('\n')
	return bw.Flush()
}

// ParseExport reads all frames from an export dump. Lines not starting with
// prefix are ignored, so the dump may be interleaved with other log output.
func ParseExport(r io.Reader, prefix string) ([]Frame, error) {
	var bitmaps []Bitmap
	var block []string
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		b, err := parseBitmap(block)
		if err != nil {
			return err
		}
		bitmaps = append(bitmaps, b)
		block = block[:0]
		return nil
	}

	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			block = append(block, rest)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(bitmaps)%2 != 0 {
		return nil, fmt.Errorf("waveshare2in13bv4: export has unpaired bitmap %q", bitmaps[len(bitmaps)-1].Tag)
	}
	frames := make([]Frame, 0, len(bitmaps)/2)
	for n := 0; n < len(bitmaps); n += 2 {
		bk, rd := bitmaps[n], bitmaps[n+1]
		if bk.Tag != TagBlack || rd.Tag != TagRed || bk.Width != rd.Width || bk.Height != rd.Height {
			return nil, fmt.Errorf("waveshare2in13bv4: black/red bitmap type/dimensions mismatch: black(%s %d %d) != red(%s %d %d)",
				bk.Tag, bk.Width, bk.Height, rd.Tag, rd.Width, rd.Height)
		}
		frames = append(frames, Frame{Black: bk, Red: rd})
	}
	return frames, nil
}

func parseBitmap(lines []string) (Bitmap, error) {
	hdr := strings.Fields(lines[0])
	if len(hdr) != 4 {
		return Bitmap{}, fmt.Errorf("waveshare2in13bv4: bad bitmap header %q", lines[0])
	}
	var dims [3]int
	for i, f := range hdr[1:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Bitmap{}, fmt.Errorf("waveshare2in13bv4: bad bitmap header %q: %w", lines[0], err)
		}
		dims[i] = v
	}
	b := Bitmap{Tag: hdr[0], Width: dims[0], Height: dims[1]}
	data, err := base64.StdEncoding.DecodeString(strings.Join(lines[1:], ""))
	if err != nil {
		return Bitmap{}, fmt.Errorf("waveshare2in13bv4: bitmap %s: %w", b.Tag, err)
	}
	if len(data) != dims[2] {
		return Bitmap{}, fmt.Errorf("waveshare2in13bv4: buffer size mismatch [%s]: expected=%d actual=%d", b.Tag, dims[2], len(data))
	}
	if b.Width*b.Height/8 != len(data) {
		return Bitmap{}, fmt.Errorf("waveshare2in13bv4: buffer dimensions mismatch [%s]: sz=%d actual=(%d, %d)", b.Tag, len(data), b.Width, b.Height)
	}
	b.Data = data
	return b, nil
}
