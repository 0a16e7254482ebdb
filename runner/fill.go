// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package runner

import (
	"math/rand/v2"
	"time"

	"github.com/GermanBionicSystems/co2log/readings"
)

// FillCount is the number of readings queued by Fill.
const FillCount = 30

// Fill queues FillCount made up readings spaced interval apart, the last
// one at end. Most values are in the usual indoor range with occasional
// spikes, to exercise every severity label on the screen.
func Fill(q *readings.Queue, end time.Time, interval time.Duration, rnd *rand.Rand) {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(end.UnixNano()), 0))
	}
	between := func(lo, hi int) readings.PPM {
		return readings.PPM(lo + rnd.IntN(hi-lo+1))
	}
	for n := FillCount - 1; n >= 0; n-- {
		var ppm readings.PPM
		switch {
		case rnd.Float64() > 0.6:
			ppm = between(400, 900)
		case rnd.Float64() > 0.4:
			ppm = between(500, 3000)
		default:
			ppm = between(500, 8000)
		}
		q.Put(readings.Reading{Time: end.Add(-time.Duration(n) * interval), PPM: ppm})
	}
}
