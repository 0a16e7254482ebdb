// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mhz19

import (
	"math"
	"slices"

	"github.com/GermanBionicSystems/co2log/readings"
)

// Smoother combines several samples taken in sequence into one value.
type Smoother interface {
	Smooth(samples []readings.PPM) readings.PPM
}

// EWMA is an exponentially weighted moving average. Each newer sample gets
// weight Alpha.
type EWMA struct {
	Alpha float64
}

// Smooth implements Smoother.
func (e EWMA) Smooth(samples []readings.PPM) readings.PPM {
	if len(samples) == 0 {
		return 0
	}
	avg := float64(samples[0])
	for _, s := range samples[1:] {
		avg = float64(s)*e.Alpha + (1-e.Alpha)*avg
	}
	return readings.PPM(math.Round(avg))
}

// Median picks the middle sample, averaging the two middle ones for an even
// count.
type Median struct{}

// Smooth implements Smoother.
func (Median) Smooth(samples []readings.PPM) readings.PPM {
	if len(samples) == 0 {
		return 0
	}
	s := slices.Clone(samples)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return readings.PPM(math.Round(float64(s[mid-1]+s[mid]) / 2))
}

// SmootherByName returns the Smoother for "ewma" or "median".
func SmootherByName(name string, alpha float64) (Smoother, bool) {
	switch name {
	case "", "ewma":
		return EWMA{Alpha: alpha}, true
	case "median":
		return Median{}, true
	}
	return nil, false
}
