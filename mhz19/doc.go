// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mhz19 provides a driver for the Winsen MH-Z19 family of NDIR CO2
// sensors, connected over a 9600 baud 8N1 UART.
//
// The sensor speaks a half-duplex protocol of fixed 9-byte frames. Responses
// arrive some time after the command, so reads poll the port along a ladder of
// delays, and whole reads are retried along a second, longer ladder.
//
// Datasheet
//
// https://www.winsen-sensor.com/d/files/infrared-gas-sensor/mh-z19b-co2-ver1_0.pdf
package mhz19
