// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13bv4

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// panelSim records the bytes sent to the panel. After each of the first hangs
// update activations it holds the busy line high until the next reset.
type panelSim struct {
	dc    *gpiotest.Pin
	hangs int

	stuck       bool
	activations int
	records     []record
}

func (s *panelSim) String() string      { return "panelSim" }
func (s *panelSim) Duplex() conn.Duplex { return conn.Half }

func (s *panelSim) Tx(w, r []byte) error {
	if s.dc.Read() == gpio.High {
		cur := &s.records[len(s.records)-1]
		cur.data = append(cur.data, w...)
		return nil
	}
	s.records = append(s.records, record{cmd: w[0]})
	switch w[0] {
	case masterActivation:
		s.activations++
		s.stuck = s.activations <= s.hangs
	case swReset:
		s.stuck = false
	}
	return nil
}

func (s *panelSim) commands() []byte {
	var cmds []byte
	for _, r := range s.records {
		cmds = append(cmds, r.cmd)
	}
	return cmds
}

type busyPin struct {
	*gpiotest.Pin
	sim *panelSim
}

func (b *busyPin) Read() gpio.Level {
	if b.sim.stuck {
		return gpio.High
	}
	return gpio.Low
}

type rstPin struct {
	*gpiotest.Pin
	sim *panelSim
}

func (p *rstPin) Out(l gpio.Level) error {
	if l == gpio.Low {
		p.sim.stuck = false
	}
	return p.Pin.Out(l)
}

var testOpts = Opts{
	Width:        122,
	Height:       250,
	Timeout:      30 * time.Millisecond,
	PollInterval: time.Millisecond,
}

func newTestDev(hangs int) (*Dev, *panelSim, *rstPin) {
	sim := &panelSim{dc: &gpiotest.Pin{N: "DC"}, hangs: hangs}
	rst := &rstPin{Pin: &gpiotest.Pin{N: "RST"}, sim: sim}
	busy := &busyPin{Pin: &gpiotest.Pin{N: "BUSY"}, sim: sim}
	d := newDev(sim, sim.dc, &gpiotest.Pin{N: "CS"}, rst, busy, &testOpts)
	return d, sim, rst
}

var initCommands = []byte{
	swReset,
	driverOutputControl,
	dataEntryModeSetting,
	setRAMXAddressStartEndPosition,
	setRAMYAddressStartEndPosition,
	setRAMXAddressCounter,
	setRAMYAddressCounter,
	borderWaveformControl,
	tempSensorSelect,
	displayUpdateControl1,
}

var refreshCommands = []byte{writeRAMBW, writeRAMRed, masterActivation}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestNewDev(t *testing.T) {
	d, _, _ := newTestDev(0)
	if d.Width() != 128 || d.Height() != 250 {
		t.Errorf("size = %dx%d, want 128x250", d.Width(), d.Height())
	}
	if d.State() != Uninitialized {
		t.Errorf("State() = %s, want %s", d.State(), Uninitialized)
	}
	if d.Black().BitAt(0, 0) != image1bit.On || d.Red().BitAt(127, 249) != image1bit.On {
		t.Errorf("planes are not blank")
	}
}

func TestNewImage(t *testing.T) {
	d := NewImage(&EPD2in13bv4)
	if err := d.Display(context.Background()); !errors.Is(err, ErrNoPanel) {
		t.Fatalf("Display() = %v, want ErrNoPanel", err)
	}
	if d.State() != Uninitialized {
		t.Errorf("State() = %s", d.State())
	}
	if s := d.String(); s != "epd.Dev{Width: 128, Height: 250}" {
		t.Errorf("String() = %q", s)
	}
	var buf bytes.Buffer
	if err := d.Export(&buf); err != nil {
		t.Fatal(err)
	}
	frames, err := ParseExport(&buf, ExportPrefix)
	if err != nil || len(frames) != 1 {
		t.Fatalf("ParseExport() = %d frames, %v", len(frames), err)
	}
}

func TestInitIdempotent(t *testing.T) {
	d, sim, _ := newTestDev(0)
	ctx := context.Background()
	if err := d.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := d.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if d.State() != Ready {
		t.Errorf("State() = %s, want %s", d.State(), Ready)
	}
	if diff := cmp.Diff(sim.commands(), initCommands); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
}

func TestDisplay(t *testing.T) {
	d, sim, rst := newTestDev(0)
	d.Black().SetBit(0, 0, image1bit.Off)
	d.Red().SetBit(8, 0, image1bit.Off)

	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := concat(initCommands, refreshCommands, []byte{deepSleepMode})
	if diff := cmp.Diff(sim.commands(), want); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
	for _, r := range sim.records {
		switch r.cmd {
		case writeRAMBW:
			if len(r.data) != 4000 || r.data[0] != 0x7f || r.data[1] != 0xff {
				t.Errorf("black plane: len=%d % x", len(r.data), r.data[:2])
			}
		case writeRAMRed:
			if len(r.data) != 4000 || r.data[0] != 0xff || r.data[1] != 0x7f {
				t.Errorf("red plane: len=%d % x", len(r.data), r.data[:2])
			}
		}
	}
	if d.State() != Sleeping {
		t.Errorf("State() = %s, want %s", d.State(), Sleeping)
	}
	if rst.Read() != gpio.Low {
		t.Errorf("reset line is not held low in sleep")
	}

	// Waking up from sleep requires a full init.
	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sim.commands(), concat(want, want)); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
}

func TestDisplayTimeoutRetry(t *testing.T) {
	d, sim, _ := newTestDev(1)

	if err := d.Display(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := concat(initCommands, refreshCommands, initCommands, refreshCommands, []byte{deepSleepMode})
	if diff := cmp.Diff(sim.commands(), want); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
	if sim.activations != 2 {
		t.Errorf("activations = %d, want 2", sim.activations)
	}
	if d.State() != Sleeping {
		t.Errorf("State() = %s, want %s", d.State(), Sleeping)
	}
}

func TestDisplayTimeoutFatal(t *testing.T) {
	d, sim, _ := newTestDev(2)

	err := d.Display(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Display() error = %v, want %v", err, ErrTimeout)
	}

	want := concat(initCommands, refreshCommands, initCommands, refreshCommands)
	if diff := cmp.Diff(sim.commands(), want); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
	if d.State() != Closed {
		t.Errorf("State() = %s, want %s", d.State(), Closed)
	}
}

func TestDisplayCanceled(t *testing.T) {
	d, _, _ := newTestDev(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Display(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Display() error = %v, want %v", err, context.Canceled)
	}
}

func TestClear(t *testing.T) {
	d, sim, _ := newTestDev(0)
	if err := d.Clear(context.Background(), image1bit.Off); err != nil {
		t.Fatal(err)
	}
	for _, r := range sim.records {
		if r.cmd == writeRAMBW || r.cmd == writeRAMRed {
			for _, b := range r.data {
				if b != 0 {
					t.Fatalf("command %#02x: plane not cleared", r.cmd)
				}
			}
		}
	}
}

func TestStateString(t *testing.T) {
	if got := Busy.String(); got != "Busy" {
		t.Errorf("String() = %q", got)
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("String() = %q", got)
	}
}
