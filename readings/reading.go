// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package readings

import (
	"fmt"
	"time"
)

// PPM is a CO2 concentration in parts per million.
type PPM int

func (p PPM) String() string {
	return fmt.Sprintf("%d PPM", int(p))
}

// Reading is a single timestamped sensor value.
type Reading struct {
	Time time.Time
	PPM  PPM
	// Retries is the number of extra sensor read attempts it took to produce
	// this value.
	Retries int
}

func (r Reading) String() string {
	return fmt.Sprintf("%s %s (retries=%d)", r.Time.Format(time.DateTime), r.PPM, r.Retries)
}
