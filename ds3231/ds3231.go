// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

const (
	// DefaultAddress is the fixed I²C address of the DS3231.
	DefaultAddress uint16 = 0x68

	regTime byte = 0x00
)

// ErrEncoding is returned by Set when a time can't be represented in the
// clock registers. It indicates a programming error and is never retried.
var ErrEncoding = errors.New("ds3231: failed to encode time")

// EncodingError describes a time that did not survive an encode/decode round
// trip.
type EncodingError struct {
	Want, Got Calendar
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("ds3231: failed to encode time-tuple:\n    %s\n to %s", e.Want, e.Got)
}

func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}

// DefaultRetryDelays are waited between failed register reads. The read after
// the last delay is final and returns its error.
var DefaultRetryDelays = []time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
	300 * time.Millisecond,
}

// Opts configures a Dev.
type Opts struct {
	Addr uint16
	// Location is the time zone the clock keeps. Defaults to time.Local.
	Location *time.Location
	// RetryDelays defaults to DefaultRetryDelays.
	RetryDelays []time.Duration
}

// Dev is a handle to a DS3231 clock.
type Dev struct {
	d           *i2c.Dev
	loc         *time.Location
	retryDelays []time.Duration
}

// NewI2C returns a handle to a clock on bus b. No bus transfer happens until
// the first Read or Set.
func NewI2C(b i2c.Bus, opts *Opts) *Dev {
	d := &Dev{
		d:           &i2c.Dev{Bus: b, Addr: DefaultAddress},
		loc:         time.Local,
		retryDelays: DefaultRetryDelays,
	}
	if opts != nil {
		if opts.Addr != 0 {
			d.d.Addr = opts.Addr
		}
		if opts.Location != nil {
			d.loc = opts.Location
		}
		if opts.RetryDelays != nil {
			d.retryDelays = opts.RetryDelays
		}
	}
	return d
}

// ReadCalendar reads the time registers, retrying bus errors.
func (d *Dev) ReadCalendar(ctx context.Context) (Calendar, error) {
	var regs [7]byte
	for _, td := range d.retryDelays {
		if err := d.d.Tx([]byte{regTime}, regs[:]); err == nil {
			return Decode(regs), nil
		}
		if err := sleep(ctx, td); err != nil {
			return Calendar{}, err
		}
	}
	if err := d.d.Tx([]byte{regTime}, regs[:]); err != nil {
		return Calendar{}, fmt.Errorf("ds3231: read time: %w", err)
	}
	return Decode(regs), nil
}

// Read returns the current time of the clock.
func (d *Dev) Read(ctx context.Context) (time.Time, error) {
	c, err := d.ReadCalendar(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return c.Time(d.loc), nil
}

// Set writes t, converted to the clock's location, to the clock. The encoded
// registers are decoded again before writing, and any difference aborts with
// an *EncodingError.
func (d *Dev) Set(t time.Time) error {
	want := FromTime(t.In(d.loc))
	regs := Encode(want)
	if got := Decode(regs); got != want {
		return &EncodingError{Want: want, Got: got}
	}
	w := append([]byte{regTime}, regs[:]...)
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("ds3231: write time: %w", err)
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ds3231: %s", d.d)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
