// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scroller renders a scrolling log of CO2 readings onto a two plane
// e-paper panel.
//
// The panel shows a header with the date of the oldest visible line and a
// separator, followed by one line per reading. Lines alternate between the
// black and red planes. Once the window is full, both planes are scrolled up
// by one line for every new reading.
package scroller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/golang/glog"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/co2log/framebuf"
	"github.com/GermanBionicSystems/co2log/readings"
	"github.com/GermanBionicSystems/co2log/termview"
	"github.com/GermanBionicSystems/co2log/waveshare2in13bv4"
)

// Panel is the display the log is rendered to.
type Panel interface {
	Black() *framebuf.Image
	Red() *framebuf.Image
	Display(ctx context.Context) error
	Clear(ctx context.Context, c image1bit.Bit) error
	Frame() waveshare2in13bv4.Frame
}

// Source delivers readings in production order.
type Source interface {
	Get(ctx context.Context) (readings.Reading, error)
	IsEmpty() bool
}

// Channel selects a panel plane.
type Channel int

const (
	Black Channel = iota
	Red
)

func (c Channel) String() string {
	if c == Red {
		return "red"
	}
	return "black"
}

func (c Channel) other() Channel {
	return 1 - c
}

// Line is a rendered reading.
type Line struct {
	Channel Channel
	Time    time.Time
	PPM     readings.PPM
	Text    string
}

// Opts configures a Scroller.
type Opts struct {
	// X0 and Y0 are the header text position.
	X0, Y0 int
	// LineHeight defaults to the font height plus one.
	LineHeight int
	// Font defaults to Tiny.
	Font       Font
	Thresholds Thresholds
	// Location readings are displayed in. Defaults to time.Local.
	Location *time.Location
	// Export, when set, receives a dump of both planes on every update
	// instead of refreshing the panel.
	Export io.Writer
	// Preview, when set, gets the composited planes on every update.
	Preview *termview.Dev
}

// Scroller owns the visible window of lines.
type Scroller struct {
	panel Panel
	opts  Opts

	width, height int
	// yh is the top of the first line, yt the top of the last one.
	yh, yt   int
	capacity int
	lines    []Line
}

// New returns a scroller drawing on p.
func New(p Panel, opts *Opts) (*Scroller, error) {
	s := &Scroller{panel: p, opts: *opts}
	if s.opts.Font == nil {
		s.opts.Font = Tiny
	}
	if s.opts.LineHeight <= 0 {
		s.opts.LineHeight = s.opts.Font.Height() + 1
	}
	if s.opts.Thresholds == nil {
		s.opts.Thresholds = DefaultThresholds
	}
	if s.opts.Location == nil {
		s.opts.Location = time.Local
	}
	b := p.Black().Bounds()
	s.width, s.height = b.Dx(), b.Dy()
	ys := s.opts.LineHeight
	s.yh = s.opts.Y0 + ys + 3
	s.capacity = (s.height - s.yh) / ys
	if s.capacity < 1 {
		return nil, fmt.Errorf("scroller: %dpx high panel has no room for %dpx lines below the header", s.height, ys)
	}
	s.yt = s.yh + ys*(s.capacity-1)
	s.lines = make([]Line, 0, s.capacity)
	return s, nil
}

// Capacity is the number of visible lines.
func (s *Scroller) Capacity() int {
	return s.capacity
}

// Lines returns a copy of the visible lines, oldest first.
func (s *Scroller) Lines() []Line {
	return append([]Line(nil), s.lines...)
}

// Text renders a reading as shown on a log line.
func Text(t time.Time, ppm readings.PPM, label string) string {
	txt := fmt.Sprintf("%02d:%02d %4d", t.Hour(), t.Minute(), int(ppm))
	if label != "" {
		txt += " " + label
	}
	return txt
}

// Add renders r into the planes. Nothing is sent to the panel.
func (s *Scroller) Add(r readings.Reading) Line {
	ch := Red
	if n := len(s.lines); n > 0 {
		ch = s.lines[n-1].Channel.other()
	}
	t := r.Time.In(s.opts.Location)
	line := Line{
		Channel: ch,
		Time:    t,
		PPM:     r.PPM,
		Text:    Text(t, r.PPM, s.opts.Thresholds.Classify(r.PPM)),
	}

	planes := [2]*framebuf.Image{s.panel.Black(), s.panel.Red()}
	if len(s.lines) == s.capacity {
		s.lines = append(s.lines[:0], s.lines[1:]...)
		for _, p := range planes {
			p.Scroll(-s.opts.LineHeight)
			p.FillRect(image.Rect(0, s.yt, s.width, s.height), image1bit.On)
		}
	}
	s.lines = append(s.lines, line)

	// Header: date of the oldest line, in the other plane.
	for _, p := range planes {
		p.FillRect(image.Rect(0, 0, s.width, s.yh), image1bit.On)
	}
	first := s.lines[0]
	hdr := fmt.Sprintf("%02d-%02d-%02d CO2ppm", first.Time.Year()%100, int(first.Time.Month()), first.Time.Day())
	s.opts.Font.DrawString(planes[first.Channel.other()], s.opts.X0, s.opts.Y0, hdr, image1bit.Off)
	planes[Black].HLine(0, s.opts.Y0+s.opts.LineHeight, s.width, image1bit.Off)

	y := s.yh + s.opts.LineHeight*(len(s.lines)-1)
	s.opts.Font.DrawString(planes[ch], s.opts.X0, y, line.Text, image1bit.Off)
	if glog.V(2) {
		glog.Infof("scroller: line %d %s %q", len(s.lines), ch, line.Text)
	}
	return line
}

// Flush sends the planes to the panel, or dumps them in export mode.
func (s *Scroller) Flush(ctx context.Context) error {
	if s.opts.Preview != nil {
		if err := s.opts.Preview.Draw(s.opts.Preview.Bounds(), s.panel.Frame().Image(false), image.Point{}); err != nil {
			return fmt.Errorf("scroller: preview: %w", err)
		}
	}
	if s.opts.Export != nil {
		f := s.panel.Frame()
		if err := waveshare2in13bv4.WriteExport(s.opts.Export, f.Black, f.Red); err != nil {
			return fmt.Errorf("scroller: export: %w", err)
		}
		return nil
	}
	start := time.Now()
	if err := s.panel.Display(ctx); err != nil {
		return err
	}
	glog.V(1).Infof("scroller: panel refreshed with %d lines in %s", len(s.lines), time.Since(start).Round(time.Millisecond))
	return nil
}

// Run blanks the panel, then renders every reading from src. The panel is
// only refreshed once src is drained, so a burst of readings costs a single
// refresh. Run returns when ctx is done or the panel fails.
func (s *Scroller) Run(ctx context.Context, src Source) error {
	if s.opts.Export != nil {
		s.panel.Black().Fill(image1bit.On)
		s.panel.Red().Fill(image1bit.On)
	} else if err := s.panel.Clear(ctx, image1bit.On); err != nil {
		return err
	}
	for {
		r, err := src.Get(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		s.Add(r)
		if s.opts.Export == nil && !src.IsEmpty() {
			continue
		}
		if err := s.Flush(ctx); err != nil {
			return err
		}
	}
}
