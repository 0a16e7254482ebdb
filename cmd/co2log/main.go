// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// co2log logs CO2 readings from an MH-Z19 sensor on a tri-color e-paper
// panel, timestamped by a DS3231 clock.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/co2log/config"
	"github.com/GermanBionicSystems/co2log/readings"
	"github.com/GermanBionicSystems/co2log/runner"
)

var started = time.Now()

var (
	confPath = flag.String("config", "config.ini", "configuration file")
	envFile  = flag.String("env", ".env", "optional environment file, loaded before the configuration")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg, warnings, err := config.Load(*confPath, *envFile)
	if err != nil {
		glog.Exit(err)
	}
	for _, w := range warnings {
		glog.Warning(w)
	}
	if cfg.Sensor.Verbose || cfg.Screen.Verbose || cfg.Wifi.Verbose {
		if v := flag.Lookup("v"); v != nil && v.Value.String() == "0" {
			_ = flag.Set("v", "1")
		}
	}
	if _, err := host.Init(); err != nil {
		glog.Exit(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exit(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loc, err := location(cfg.RTC.Timezone)
	if err != nil {
		return err
	}
	device := deviceName(cfg)
	q := readings.NewQueue(readings.DefaultCapacity)

	var e *runner.Emergency
	if cfg.Networked() {
		e = &runner.Emergency{Addr: cfg.WebUI.Addr, Device: device}
	}
	r := runner.New(e)

	if t, err := wifiTask(ctx, cfg); err != nil {
		glog.Errorf("wifi: %v", err)
	} else if t != nil {
		r.Keep(*t)
	}

	var clock runner.Clock = runner.SystemClock{}
	if cfg.Sensor.Enabled {
		sensor, rtc, closer, err := openSensor(cfg, loc)
		if err != nil {
			return err
		}
		defer closer.Close()
		clock = rtc
		pub := openUplink(cfg, device)
		if pub != nil {
			defer pub.Close()
		}
		opts := runner.DefaultPollerOpts
		opts.Start = started
		opts.InitDelay = cfg.Sensor.InitDelay
		opts.Interval = cfg.Sensor.Interval
		opts.SelfCalibration = cfg.Sensor.SelfCalibration
		opts.DetectionRange = cfg.Sensor.DetectionRange
		opts.PPMOffset = cfg.Sensor.PPMOffset
		r.Go(runner.NewPoller(sensor, rtc, q, pub, &opts).Task())
	}

	if cfg.Screen.TestFill {
		end, err := clock.Read(ctx)
		if err != nil {
			return err
		}
		runner.Fill(q, end, cfg.Sensor.Interval, nil)
	}

	t, err := scrollerTask(cfg, loc, q)
	if err != nil {
		return err
	}
	r.Go(t)
	return r.Run(ctx)
}

func location(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
