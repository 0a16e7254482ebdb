// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package readings holds the CO2 reading type and the bounded queue that
// hands readings from the sensor poller to the display scroller.
//
// The queue is single-consumer. Put never blocks: once the queue is full the
// oldest entry is evicted, since a fresh display matters more than a complete
// one.
package readings
