// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mhz19

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/co2log/common"
	"github.com/GermanBionicSystems/co2log/readings"
	"periph.io/x/conn/v3"
)

// Commands
const (
	cmdReadConcentration byte = 0x86
	cmdSelfCalibration   byte = 0x79
	cmdDetectionRange    byte = 0x99
)

const abcOn byte = 0xa0

var (
	// ErrProtocol is returned when no well-formed response frame was
	// received.
	ErrProtocol = errors.New("mhz19: invalid response frame")
	// ErrRetriesExhausted is returned once every read attempt has failed.
	ErrRetriesExhausted = errors.New("mhz19: read retries exhausted")
	// ErrConfig is returned for values the sensor does not accept.
	ErrConfig = errors.New("mhz19: invalid configuration")
)

// RetryError reports a read that failed after all configured attempts. It
// matches both ErrRetriesExhausted and the last underlying error.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("mhz19: CO2 sensor read failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *RetryError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Last}
}

// DetectionRanges lists the measurement ranges accepted by SetDetectionRange.
var DetectionRanges = []int{2000, 5000, 10000}

// Opts holds the timing of sensor reads.
type Opts struct {
	// ReadDelays are waited one after another after sending the read command,
	// polling for a response after each of them.
	ReadDelays []time.Duration
	// RetryDelays separate full read attempts. A read makes
	// len(RetryDelays)+1 attempts in total.
	RetryDelays []time.Duration
	// SampleDelays separate the extra samples combined by Sense. Empty means
	// a single read.
	SampleDelays []time.Duration
	// Smoother combines samples. Defaults to EWMA{Alpha: 0.4}.
	Smoother Smoother
}

// DefaultOpts mirrors the timings the logger ships with.
var DefaultOpts = Opts{
	ReadDelays: []time.Duration{
		100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond,
		200 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond,
		time.Second,
	},
	RetryDelays: []time.Duration{
		100 * time.Millisecond, time.Second, 5 * time.Second, 10 * time.Second,
		20 * time.Second, 40 * time.Second, 80 * time.Second, 120 * time.Second,
		180 * time.Second,
	},
	Smoother: EWMA{Alpha: 0.4},
}

// Dev is a handle to an MH-Z19 sensor. It owns its port exclusively and is not
// safe for concurrent use.
type Dev struct {
	c    conn.Conn
	opts Opts
}

// New returns a handle to a sensor connected through c, which must already be
// configured for 9600 baud, 8 data bits, no parity and one stop bit.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if len(opts.ReadDelays) == 0 {
		return nil, fmt.Errorf("%w: empty read delay ladder", ErrConfig)
	}
	d := &Dev{c: c, opts: *opts}
	if d.opts.Smoother == nil {
		d.opts.Smoother = EWMA{Alpha: 0.4}
	}
	return d, nil
}

// SampleSpan returns the total time Sense spends waiting between samples.
func (d *Dev) SampleSpan() time.Duration {
	var span time.Duration
	for _, td := range d.opts.SampleDelays {
		span += td
	}
	return span
}

// ReadPPM reads the CO2 concentration, retrying failed reads along the retry
// ladder. It also returns the number of failed attempts before the successful
// one.
func (d *Dev) ReadPPM(ctx context.Context) (readings.PPM, int, error) {
	var last error
	attempts := len(d.opts.RetryDelays) + 1
	for n := 0; n < attempts; n++ {
		ppm, err := d.readOnce(ctx)
		if err == nil {
			return ppm, n, nil
		}
		if ctx.Err() != nil {
			return 0, n, ctx.Err()
		}
		last = err
		if n < len(d.opts.RetryDelays) {
			if err := sleep(ctx, d.opts.RetryDelays[n]); err != nil {
				return 0, n, err
			}
		}
	}
	return 0, attempts - 1, &RetryError{Attempts: attempts, Last: last}
}

// Sense takes one sample plus one per SampleDelays entry and combines them
// with the configured Smoother. The returned count is the total number of
// retries spent across all samples.
func (d *Dev) Sense(ctx context.Context) (readings.PPM, int, error) {
	samples := make([]readings.PPM, 0, len(d.opts.SampleDelays)+1)
	retries := 0
	delays := append([]time.Duration{0}, d.opts.SampleDelays...)
	for _, td := range delays {
		if err := sleep(ctx, td); err != nil {
			return 0, retries, err
		}
		ppm, n, err := d.ReadPPM(ctx)
		retries += n
		if err != nil {
			return 0, retries, err
		}
		samples = append(samples, ppm)
	}
	return d.opts.Smoother.Smooth(samples), retries, nil
}

// SetSelfCalibration enables or disables Automatic Baseline Correction.
//
// With ABC disabled the vendor firmware still re-issues the disable command
// every 12 hours to skip the next calibration cycle; callers running
// long-lived loops should do the same.
func (d *Dev) SetSelfCalibration(enabled bool) error {
	var state byte
	if enabled {
		state = abcOn
	}
	return d.send(common.NewFrame(cmdSelfCalibration, state))
}

// SetDetectionRange sets the upper end of the measurement range in ppm. Only
// the values in DetectionRanges are accepted.
func (d *Dev) SetDetectionRange(ppm int) error {
	valid := false
	for _, r := range DetectionRanges {
		if r == ppm {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: detection range %d, must be one of %v", ErrConfig, ppm, DetectionRanges)
	}
	return d.send(common.NewFrame(cmdDetectionRange, 0, 0, 0, byte(ppm>>8), byte(ppm)))
}

func (d *Dev) String() string {
	return fmt.Sprintf("mhz19: %s", d.c)
}

// readOnce sends a single read command and polls for its response.
func (d *Dev) readOnce(ctx context.Context) (readings.PPM, error) {
	if err := d.send(common.NewFrame(cmdReadConcentration)); err != nil {
		return 0, err
	}
	last := ErrProtocol
	r := make([]byte, common.FrameSize)
	for _, td := range d.opts.ReadDelays {
		if err := sleep(ctx, td); err != nil {
			return 0, err
		}
		clear(r)
		if err := d.c.Tx(nil, r); err != nil {
			last = fmt.Errorf("mhz19: read: %w", err)
			continue
		}
		payload, err := parseResponse(cmdReadConcentration, r)
		if err != nil {
			last = err
			continue
		}
		return readings.PPM(int(payload[0])<<8 | int(payload[1])), nil
	}
	return 0, last
}

func (d *Dev) send(frame []byte) error {
	if err := d.c.Tx(frame, nil); err != nil {
		return fmt.Errorf("mhz19 cmd 0x%x: %w", frame[2], err)
	}
	return nil
}

// parseResponse validates a response frame and returns its 6-byte payload.
func parseResponse(cmd byte, frame []byte) ([]byte, error) {
	if len(frame) != common.FrameSize {
		return nil, fmt.Errorf("%w: length %d", ErrProtocol, len(frame))
	}
	if frame[0] != common.FrameStart {
		return nil, fmt.Errorf("%w: start byte 0x%02x", ErrProtocol, frame[0])
	}
	if frame[1] != cmd {
		return nil, fmt.Errorf("%w: command 0x%02x, expected 0x%02x", ErrProtocol, frame[1], cmd)
	}
	if sum := common.Checksum(frame); sum != frame[8] {
		return nil, fmt.Errorf("%w: checksum 0x%02x, expected 0x%02x", ErrProtocol, frame[8], sum)
	}
	return frame[2:8], nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ fmt.Stringer = &Dev{}
