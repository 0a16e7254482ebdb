// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scroller

import (
	"sort"

	"github.com/GermanBionicSystems/co2log/readings"
)

// Threshold labels readings at or above PPM.
type Threshold struct {
	PPM   readings.PPM
	Label string
}

// Thresholds is sorted by descending PPM.
type Thresholds []Threshold

// DefaultThresholds are the comfort levels commonly used for indoor air.
var DefaultThresholds = NewThresholds(map[readings.PPM]string{
	800:  "hi",
	1500: "BAD",
	2500: "WARN",
	5000: "!!!!",
})

// NewThresholds returns the labels sorted by descending threshold.
func NewThresholds(labels map[readings.PPM]string) Thresholds {
	t := make(Thresholds, 0, len(labels))
	for ppm, l := range labels {
		t = append(t, Threshold{PPM: ppm, Label: l})
	}
	sort.Slice(t, func(i, j int) bool { return t[i].PPM > t[j].PPM })
	return t
}

// Classify returns the label of the highest threshold ppm reaches, or "".
func (t Thresholds) Classify(ppm readings.PPM) string {
	for _, th := range t {
		if ppm >= th.PPM {
			return th.Label
		}
	}
	return ""
}
