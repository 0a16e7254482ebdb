// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the checksum of the 9-byte frames exchanged with Winsen gas
// sensors.
package common

// FrameSize is the length of a Winsen serial command or response frame.
const FrameSize = 9

// FrameStart is the first byte of every frame.
const FrameStart byte = 0xff

// Checksum calculates the two's complement checksum of a Winsen frame. The
// start byte and the trailing checksum byte are excluded, so the full frame
// can be passed as-is.
func Checksum(frame []byte) byte {
	if len(frame) < 2 {
		return 0
	}
	var sum byte
	for _, b := range frame[1 : len(frame)-1] {
		sum += b
	}
	// 0xff - sum + 1, wrapping at 256.
	return ^sum + 1
}

// NewFrame returns a command frame for the given opcode and payload, with the
// checksum filled in. At most five payload bytes are used.
func NewFrame(op byte, payload ...byte) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = FrameStart
	frame[1] = 0x01
	frame[2] = op
	copy(frame[3:8], payload)
	frame[8] = Checksum(frame)
	return frame
}
