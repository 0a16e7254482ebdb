// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package readings

import (
	"context"
	"sync"
)

// DefaultCapacity is the queue bound used by the logger.
const DefaultCapacity = 50

// Queue is a bounded FIFO of readings with one consumer.
type Queue struct {
	mu      sync.Mutex
	data    []Reading
	cap     int
	dropped int

	// ready holds a token whenever data is non-empty.
	ready chan struct{}
}

// NewQueue returns an empty queue holding at most capacity readings.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		data:  make([]Reading, 0, capacity),
		cap:   capacity,
		ready: make(chan struct{}, 1),
	}
}

// Put appends r. It returns true when the queue was full and its oldest entry
// had to be evicted to make room.
func (q *Queue) Put(r Reading) (evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.data) == q.cap {
		copy(q.data, q.data[1:])
		q.data = q.data[:len(q.data)-1]
		q.dropped++
		evicted = true
	}
	q.data = append(q.data, r)
	q.signalLocked()
	return evicted
}

// Get waits until a reading is available and removes the oldest one. It
// returns ctx.Err() if the context is done first.
func (q *Queue) Get(ctx context.Context) (Reading, error) {
	for {
		select {
		case <-ctx.Done():
			return Reading{}, ctx.Err()
		case <-q.ready:
		}

		q.mu.Lock()
		if len(q.data) == 0 {
			q.mu.Unlock()
			continue
		}
		r := q.data[0]
		copy(q.data, q.data[1:])
		q.data = q.data[:len(q.data)-1]
		if len(q.data) > 0 {
			q.signalLocked()
		}
		q.mu.Unlock()
		return r, nil
	}
}

// IsEmpty reports whether no reading is pending.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data) == 0
}

// Len returns the number of pending readings.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

// Dropped returns how many readings were evicted because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue) signalLocked() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
