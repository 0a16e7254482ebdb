// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/GermanBionicSystems/co2log/readings"
	"github.com/GermanBionicSystems/co2log/uplink"
)

// Sensor is the CO2 sensor, see mhz19.Dev.
type Sensor interface {
	Sense(ctx context.Context) (readings.PPM, int, error)
	SampleSpan() time.Duration
	SetSelfCalibration(enabled bool) error
	SetDetectionRange(ppm int) error
}

// Clock timestamps readings, see ds3231.Dev.
type Clock interface {
	Read(ctx context.Context) (time.Time, error)
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Read implements Clock.
func (SystemClock) Read(ctx context.Context) (time.Time, error) {
	return time.Now(), ctx.Err()
}

// PollerOpts configures a Poller.
type PollerOpts struct {
	// Start is the process start time. The preheat delay is counted from it.
	Start     time.Time
	InitDelay time.Duration
	Interval  time.Duration
	// SelfCalibration is the ABC state set on start. When disabled, the
	// disable command is sent again every ABCRepeat.
	SelfCalibration bool
	ABCRepeat       time.Duration
	DetectionRange  int
	PPMOffset       int
	// CommandGap separates the configuration commands sent on start.
	CommandGap time.Duration
	// PublishTimeout bounds each uplink publish.
	PublishTimeout time.Duration
}

// DefaultPollerOpts are the timings of the shipped configuration.
var DefaultPollerOpts = PollerOpts{
	InitDelay:      210 * time.Second,
	Interval:       1021 * time.Second,
	ABCRepeat:      12 * 3593 * time.Second,
	DetectionRange: 2000,
	CommandGap:     200 * time.Millisecond,
	PublishTimeout: 10 * time.Second,
}

// Poller reads the sensor at a fixed interval and queues timestamped
// readings.
type Poller struct {
	sensor Sensor
	clock  Clock
	queue  *readings.Queue
	pub    uplink.Publisher
	opts   PollerOpts
}

// NewPoller returns a Poller. clock defaults to SystemClock and pub may be
// nil.
func NewPoller(s Sensor, clock Clock, q *readings.Queue, pub uplink.Publisher, opts *PollerOpts) *Poller {
	if clock == nil {
		clock = SystemClock{}
	}
	p := &Poller{sensor: s, clock: clock, queue: q, pub: pub, opts: *opts}
	if p.opts.ABCRepeat <= 0 {
		p.opts.ABCRepeat = DefaultPollerOpts.ABCRepeat
	}
	if p.opts.PublishTimeout <= 0 {
		p.opts.PublishTimeout = DefaultPollerOpts.PublishTimeout
	}
	if p.opts.Start.IsZero() {
		p.opts.Start = time.Now()
	}
	return p
}

// Task returns the poller as a runner Task.
func (p *Poller) Task() Task {
	return Task{Name: "sensor", Run: p.Run}
}

// Run configures the sensor, waits for it to preheat, then polls it until
// ctx is done or a read fails for good.
func (p *Poller) Run(ctx context.Context) error {
	glog.V(1).Info("sensor: init: configuration")
	if err := sleep(ctx, p.opts.CommandGap); err != nil {
		return err
	}
	if err := p.sensor.SetSelfCalibration(p.opts.SelfCalibration); err != nil {
		return err
	}
	abc := time.Now()
	if err := sleep(ctx, p.opts.CommandGap); err != nil {
		return err
	}
	if err := p.sensor.SetDetectionRange(p.opts.DetectionRange); err != nil {
		return err
	}
	if delay := p.opts.InitDelay - time.Since(p.opts.Start); delay > 0 {
		glog.V(1).Infof("sensor: init: preheat delay [%s]", delay.Round(100*time.Millisecond))
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	} else {
		glog.V(1).Info("sensor: init: skipping preheat delay due to uptime")
	}

	span := p.sensor.SampleSpan()
	glog.V(1).Infof("sensor: starting poller loop (%s interval)", p.opts.Interval)
	for {
		start := time.Now()
		if !p.opts.SelfCalibration && start.Sub(abc) > p.opts.ABCRepeat {
			// Skips the next calibration cycle.
			if err := p.sensor.SetSelfCalibration(false); err != nil {
				return err
			}
			abc = start
		}
		r, err := p.read(ctx)
		if err != nil {
			return err
		}
		glog.V(1).Infof("sensor: datapoint %s", r)
		if p.queue.Put(r) {
			glog.Warningf("sensor: queue full, dropped the oldest reading (%d so far)", p.queue.Dropped())
		}
		p.publish(ctx, r)
		delay := max(0, p.opts.Interval-span-time.Since(start))
		glog.V(2).Infof("sensor: delay: %s", delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (p *Poller) read(ctx context.Context) (readings.Reading, error) {
	ppm, retries, err := p.sensor.Sense(ctx)
	if err != nil {
		return readings.Reading{}, err
	}
	t, err := p.clock.Read(ctx)
	if err != nil {
		return readings.Reading{}, fmt.Errorf("sensor: timestamp: %w", err)
	}
	return readings.Reading{Time: t, PPM: ppm + readings.PPM(p.opts.PPMOffset), Retries: retries}, nil
}

func (p *Poller) publish(ctx context.Context, r readings.Reading) {
	if p.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.PublishTimeout)
	defer cancel()
	if err := p.pub.Publish(ctx, r); err != nil {
		glog.Warningf("sensor: uplink: %v", err)
	}
}
