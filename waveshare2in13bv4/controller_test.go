// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13bv4

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type record struct {
	cmd  byte
	data []byte
}

type fakeController []record

func (r *fakeController) sendCommand(cmd byte) {
	*r = append(*r, record{
		cmd: cmd,
	})
}

func (r *fakeController) sendData(data []byte) {
	cur := &(*r)[len(*r)-1]
	cur.data = append(cur.data, data...)
}

func (r *fakeController) sendByte(data byte) {
	cur := &(*r)[len(*r)-1]
	cur.data = append(cur.data, data)
}

func (*fakeController) readBusy() {
}

func TestInitDisplay(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts Opts
		want []record
	}{
		{
			name: "epd2in13bv4",
			opts: EPD2in13bv4,
			want: []record{
				{cmd: swReset},
				{cmd: driverOutputControl, data: []byte{0xf9, 0x00, 0x00}},
				{cmd: dataEntryModeSetting, data: []byte{0x03}},
				{cmd: setRAMXAddressStartEndPosition, data: []byte{0x00, 0x0f}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{0x00, 0x00, 0xf9, 0x00}},
				{cmd: setRAMXAddressCounter, data: []byte{0x00}},
				{cmd: setRAMYAddressCounter, data: []byte{0x00, 0x00}},
				{cmd: borderWaveformControl, data: []byte{0x05}},
				{cmd: tempSensorSelect, data: []byte{0x80}},
				{cmd: displayUpdateControl1, data: []byte{0x80, 0x80}},
			},
		},
		{
			name: "tall",
			opts: Opts{Width: 200, Height: 300},
			want: []record{
				{cmd: swReset},
				{cmd: driverOutputControl, data: []byte{0x2b, 0x01, 0x00}},
				{cmd: dataEntryModeSetting, data: []byte{0x03}},
				{cmd: setRAMXAddressStartEndPosition, data: []byte{0x00, 0x18}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{0x00, 0x00, 0x2b, 0x01}},
				{cmd: setRAMXAddressCounter, data: []byte{0x00}},
				{cmd: setRAMYAddressCounter, data: []byte{0x00, 0x00}},
				{cmd: borderWaveformControl, data: []byte{0x05}},
				{cmd: tempSensorSelect, data: []byte{0x80}},
				{cmd: displayUpdateControl1, data: []byte{0x80, 0x80}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			initDisplay(&got, &tc.opts)

			if diff := cmp.Diff([]record(got), tc.want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
				t.Errorf("initDisplay() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestRefreshSequence(t *testing.T) {
	var got fakeController

	writeRAM(&got, []byte{0xff, 0x00}, []byte{0x0f, 0xf0})
	activate(&got)
	deepSleep(&got)

	want := []record{
		{cmd: writeRAMBW, data: []byte{0xff, 0x00}},
		{cmd: writeRAMRed, data: []byte{0x0f, 0xf0}},
		{cmd: masterActivation},
		{cmd: deepSleepMode, data: []byte{0x01}},
	}
	if diff := cmp.Diff([]record(got), want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{})); diff != "" {
		t.Errorf("refresh difference (-got +want):\n%s", diff)
	}
}
