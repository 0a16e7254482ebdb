// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package co2log is a CO2 data logger for single board computers.
//
// An MH-Z19 sensor on a UART is polled at a fixed interval, readings are
// timestamped by a DS3231 clock on I²C and scrolled on a Waveshare 2.13"
// black/white/red e-paper panel on SPI. The binary lives in cmd/co2log, the
// device drivers in their own packages:
//
//   - mhz19: the CO2 sensor.
//   - ds3231: the real time clock.
//   - waveshare2in13bv4: the e-paper panel.
//
// The remaining packages glue them together: readings queues values from
// the sensor to the screen, scroller renders them, wifi keeps the network
// up and runner supervises it all.
package co2log
