// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds3231 reads and sets the time of a Maxim DS3231 real-time clock
// over I²C.
//
// The seven time registers hold binary-coded decimal values. The clock is
// expected to keep local time, as set by Set.
//
// Datasheet
//
// https://www.analog.com/media/en/technical-documentation/data-sheets/DS3231.pdf
package ds3231
