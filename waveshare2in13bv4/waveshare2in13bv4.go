// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13bv4

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3/rpi"

	"github.com/GermanBionicSystems/co2log/framebuf"
)

// Commands
const (
	driverOutputControl            byte = 0x01
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	swReset                        byte = 0x12
	tempSensorSelect               byte = 0x18
	masterActivation               byte = 0x20
	displayUpdateControl1          byte = 0x21
	writeRAMBW                     byte = 0x24
	writeRAMRed                    byte = 0x26
	borderWaveformControl          byte = 0x3C
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
)

// ErrTimeout is returned when the panel kept the busy line high for longer
// than Opts.Timeout.
var ErrTimeout = errors.New("waveshare2in13bv4: timeout waiting for busy line")

// ErrNoPanel is returned by Init on a Dev made by NewImage.
var ErrNoPanel = errors.New("waveshare2in13bv4: no panel connected")

// State is the driver's view of the panel.
type State int

const (
	// Uninitialized panels are reset and programmed by the next Init.
	Uninitialized State = iota
	Initializing
	Ready
	Busy
	Sleeping
	// Closed panels are reset and programmed by the next Init.
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initializing:
		return "Initializing"
	case Ready:
		return "Ready"
	case Busy:
		return "Busy"
	case Sleeping:
		return "Sleeping"
	case Closed:
		return "Closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Opts defines the structure of the display configuration.
type Opts struct {
	Width  int
	Height int
	// Timeout bounds every wait on the busy line.
	Timeout time.Duration
	// PollInterval is the busy line sampling period.
	PollInterval time.Duration
	// Settle is waited once the busy line went low.
	Settle time.Duration
	// SleepSettle is waited after entering deep sleep, before pulling the
	// reset line low.
	SleepSettle time.Duration
	// ResetPulse is the duration of the high/low/high reset sequence steps.
	ResetPulse [3]time.Duration
}

func (o *Opts) stride() int {
	return (o.Width + 7) / 8
}

// EPD2in13bv4 contains the display configuration for the Waveshare 2in13b V4
// in portrait orientation.
var EPD2in13bv4 = Opts{
	Width:        122,
	Height:       250,
	Timeout:      120 * time.Second,
	PollInterval: 10 * time.Millisecond,
	Settle:       20 * time.Millisecond,
	SleepSettle:  2 * time.Second,
	ResetPulse:   [3]time.Duration{50 * time.Millisecond, 2 * time.Millisecond, 50 * time.Millisecond},
}

// Dev defines the handler which is used to access the display.
//
// Dev is not safe for concurrent use. It owns the SPI connection and the
// control pins.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	black *framebuf.Image
	red   *framebuf.Image
	state State

	opts Opts
}

// New creates new handler which is used to access the display. No panel
// command is sent until Init or Display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}

	return newDev(c, dc, cs, rst, busy, opts), nil
}

// NewHat creates new handler which is used to access the display. Default
// Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// NewImage returns a Dev with planes but no panel. Its planes can be
// exported, while Init and Display fail with ErrNoPanel.
func NewImage(opts *Opts) *Dev {
	return newDev(nil, nil, nil, nil, nil, opts)
}

func newDev(c conn.Conn, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) *Dev {
	d := &Dev{
		c:    c,
		dc:   dc,
		cs:   cs,
		rst:  rst,
		busy: busy,
		opts: *opts,
	}
	if d.opts.Timeout <= 0 {
		d.opts.Timeout = EPD2in13bv4.Timeout
	}
	if d.opts.PollInterval <= 0 {
		d.opts.PollInterval = EPD2in13bv4.PollInterval
	}
	d.black = framebuf.New(d.opts.Width, d.opts.Height)
	d.red = framebuf.New(d.opts.Width, d.opts.Height)
	d.black.Fill(image1bit.On)
	d.red.Fill(image1bit.On)
	return d
}

// Black returns the black/white plane. Changes are uploaded by Display.
func (d *Dev) Black() *framebuf.Image {
	return d.black
}

// Red returns the red plane. Changes are uploaded by Display.
func (d *Dev) Red() *framebuf.Image {
	return d.red
}

// Width returns the width of the planes, a multiple of 8.
func (d *Dev) Width() int {
	return d.black.Rect.Dx()
}

// Height returns the height of the planes.
func (d *Dev) Height() int {
	return d.opts.Height
}

// State returns the current panel state.
func (d *Dev) State() State {
	return d.state
}

// Init resets and programs the panel. It does nothing if the panel is already
// Ready.
func (d *Dev) Init(ctx context.Context) error {
	if d.state == Ready {
		return nil
	}
	if d.c == nil {
		return ErrNoPanel
	}
	d.state = Initializing

	eh := errorHandler{ctx: ctx, d: d}
	d.reset(&eh)
	initDisplay(&eh, &d.opts)
	if eh.err != nil {
		d.state = Uninitialized
		return fmt.Errorf("waveshare2in13bv4: init: %w", eh.err)
	}

	d.state = Ready
	return nil
}

// Display uploads both planes and refreshes the panel, then puts it to sleep.
//
// When the refresh does not complete within Opts.Timeout the panel is reset
// and the whole sequence is retried once. A second timeout returns an error
// wrapping ErrTimeout.
func (d *Dev) Display(ctx context.Context) error {
	return d.display(ctx, false)
}

func (d *Dev) display(ctx context.Context, final bool) error {
	if err := d.Init(ctx); err != nil {
		return err
	}

	d.state = Busy
	eh := errorHandler{ctx: ctx, d: d}
	writeRAM(&eh, d.black.Bytes(), d.red.Bytes())
	activate(&eh)
	if errors.Is(eh.err, ErrTimeout) && !final {
		d.Close()
		return d.display(ctx, true)
	}
	if eh.err != nil {
		d.Close()
		return fmt.Errorf("waveshare2in13bv4: display: %w", eh.err)
	}

	d.state = Ready
	return d.Sleep(ctx)
}

// Clear fills both planes with c and refreshes the panel.
func (d *Dev) Clear(ctx context.Context, c image1bit.Bit) error {
	d.black.Fill(c)
	d.red.Fill(c)
	return d.Display(ctx)
}

// Sleep makes the controller enter deep sleep mode and holds it in reset. It
// is woken up by the next Init.
func (d *Dev) Sleep(ctx context.Context) error {
	eh := errorHandler{ctx: ctx, d: d}

	deepSleep(&eh)
	eh.sleep(d.opts.SleepSettle)
	eh.rstOut(gpio.Low)
	if eh.err != nil {
		d.Close()
		return fmt.Errorf("waveshare2in13bv4: sleep: %w", eh.err)
	}

	d.state = Sleeping
	return nil
}

// Close forgets the panel state, so that the next Init resets and programs
// the panel again.
func (d *Dev) Close() {
	d.state = Closed
}

// Frame returns both planes. The data is shared with the planes.
func (d *Dev) Frame() Frame {
	return Frame{
		Black: Bitmap{Tag: TagBlack, Width: d.Width(), Height: d.Height(), Data: d.black.Bytes()},
		Red:   Bitmap{Tag: TagRed, Width: d.Width(), Height: d.Height(), Data: d.red.Bytes()},
	}
}

// Export writes both planes in the export format to w.
func (d *Dev) Export(w io.Writer) error {
	f := d.Frame()
	return WriteExport(w, f.Black, f.Red)
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	if d.c == nil {
		return fmt.Sprintf("epd.Dev{Width: %d, Height: %d}", d.Width(), d.Height())
	}
	return fmt.Sprintf("epd.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.Width(), d.Height())
}

// reset pulses the reset line.
func (d *Dev) reset(eh *errorHandler) {
	eh.rstOut(gpio.High)
	eh.sleep(d.opts.ResetPulse[0])
	eh.rstOut(gpio.Low)
	eh.sleep(d.opts.ResetPulse[1])
	eh.rstOut(gpio.High)
	eh.sleep(d.opts.ResetPulse[2])
}

func (d *Dev) waitUntilIdle(ctx context.Context) error {
	timeout := time.NewTimer(d.opts.Timeout)
	defer timeout.Stop()
	for d.busy.Read() == gpio.High {
		t := time.NewTimer(d.opts.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-timeout.C:
			t.Stop()
			return ErrTimeout
		case <-t.C:
		}
	}
	return sleep(ctx, d.opts.Settle)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
