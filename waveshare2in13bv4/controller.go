// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare2in13bv4

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	sendByte(byte)
	readBusy()
}

// initDisplay programs the panel registers after a hardware reset.
func initDisplay(ctrl controller, opts *Opts) {
	ctrl.readBusy()
	ctrl.sendCommand(swReset)
	ctrl.readBusy()

	// Gate lines, scanning order.
	ctrl.sendCommand(driverOutputControl)
	ctrl.sendData([]byte{byte((opts.Height - 1) & 0xFF), byte((opts.Height - 1) >> 8), 0x00})

	// X and Y increment, portrait.
	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendByte(0x03)

	setWindow(ctrl, 0, 0, opts.stride()*8-1, opts.Height-1)
	setCursor(ctrl, 0, 0)

	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendByte(0x05)

	// Internal temperature sensor.
	ctrl.sendCommand(tempSensorSelect)
	ctrl.sendByte(0x80)

	ctrl.sendCommand(displayUpdateControl1)
	ctrl.sendData([]byte{0x80, 0x80})

	ctrl.readBusy()
}

// setWindow sets the RAM area written by writeRAM.
func setWindow(ctrl controller, xStart, yStart, xEnd, yEnd int) {
	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{byte((xStart >> 3) & 0xFF), byte((xEnd >> 3) & 0xFF)})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData([]byte{byte(yStart & 0xFF), byte((yStart >> 8) & 0xFF), byte(yEnd & 0xFF), byte((yEnd >> 8) & 0xFF)})
}

// setCursor positions the RAM address counters. x is truncated to a multiple
// of 8.
func setCursor(ctrl controller, x, y int) {
	ctrl.sendCommand(setRAMXAddressCounter)
	ctrl.sendData([]byte{byte(x & 0xFF)})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData([]byte{byte(y & 0xFF), byte((y >> 8) & 0xFF)})
}

// writeRAM uploads both planes.
func writeRAM(ctrl controller, black, red []byte) {
	ctrl.sendCommand(writeRAMBW)
	ctrl.sendData(black)
	ctrl.sendCommand(writeRAMRed)
	ctrl.sendData(red)
}

// activate starts the refresh sequence and waits for it to complete.
func activate(ctrl controller) {
	ctrl.sendCommand(masterActivation)
	ctrl.readBusy()
}

// deepSleep turns off the DC/DC converter, clock, output load and MCU. RAM
// content is retained but the panel only wakes up on a hardware reset.
func deepSleep(ctrl controller) {
	ctrl.sendCommand(deepSleepMode)
	ctrl.sendByte(0x01)
}
