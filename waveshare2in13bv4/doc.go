// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare2in13bv4 controls Waveshare 2.13 inch (B) V4 three-colour
// e-paper displays in portrait orientation.
//
// The panel holds two 1 bit planes: black/white and red. In both planes a set
// bit leaves the pixel blank, so drawing is done with image1bit.Off on a
// buffer filled with image1bit.On.
//
// A full refresh takes around 15 seconds, during which the busy line is held
// high. The driver bounds that wait, resets the panel and retries the refresh
// once before giving up with ErrTimeout. The panel is put to deep sleep after
// every refresh and woken up with a hardware reset by the next one.
//
// Product page:
// https://www.waveshare.com/wiki/2.13inch_e-Paper_HAT_(B)_Manual
package waveshare2in13bv4
