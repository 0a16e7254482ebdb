// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/GermanBionicSystems/co2log/config"
	"github.com/GermanBionicSystems/co2log/ds3231"
	"github.com/GermanBionicSystems/co2log/mhz19"
	"github.com/GermanBionicSystems/co2log/readings"
	"github.com/GermanBionicSystems/co2log/runner"
	"github.com/GermanBionicSystems/co2log/scroller"
	"github.com/GermanBionicSystems/co2log/serialconn"
	"github.com/GermanBionicSystems/co2log/termview"
	"github.com/GermanBionicSystems/co2log/uplink"
	"github.com/GermanBionicSystems/co2log/waveshare2in13bv4"
	"github.com/GermanBionicSystems/co2log/wifi"
)

type closers []io.Closer

func (c closers) Close() error {
	for _, cl := range c {
		cl.Close()
	}
	return nil
}

// openSensor opens the MH-Z19 and the DS3231 timestamping its readings.
func openSensor(cfg *config.Config, loc *time.Location) (*mhz19.Dev, *ds3231.Dev, io.Closer, error) {
	smoother, ok := mhz19.SmootherByName(cfg.Sensor.Smoothing, cfg.Sensor.EWMAAlpha)
	if !ok {
		return nil, nil, nil, fmt.Errorf("sensor: unknown smoothing %q", cfg.Sensor.Smoothing)
	}
	port, err := serialconn.Open(cfg.Sensor.Device, nil, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	sensor, err := mhz19.New(port, &mhz19.Opts{
		ReadDelays:   cfg.Sensor.ReadDelays,
		RetryDelays:  cfg.Sensor.RetryDelays,
		SampleDelays: cfg.Sensor.SampleDelays,
		Smoother:     smoother,
	})
	if err != nil {
		port.Close()
		return nil, nil, nil, err
	}
	bus, err := i2creg.Open(cfg.RTC.Bus)
	if err != nil {
		port.Close()
		return nil, nil, nil, fmt.Errorf("rtc: %w", err)
	}
	rtc := ds3231.NewI2C(bus, &ds3231.Opts{Addr: cfg.RTC.Addr, Location: loc})
	glog.V(1).Infof("sensor: %s, clock: %s", sensor, rtc)
	return sensor, rtc, closers{port, bus}, nil
}

// openPanel opens the e-paper panel on the configured SPI port and pins, or
// on the Waveshare HAT pinout when no pin is configured.
func openPanel(cfg *config.Screen) (*waveshare2in13bv4.Dev, error) {
	opts := waveshare2in13bv4.EPD2in13bv4
	opts.Timeout = cfg.Timeout
	p, err := spireg.Open(cfg.SPI)
	if err != nil {
		return nil, fmt.Errorf("screen: %w", err)
	}
	if cfg.PinDC == "" && cfg.PinCS == "" && cfg.PinReset == "" && cfg.PinBusy == "" {
		return waveshare2in13bv4.NewHat(p, &opts)
	}
	var pins [4]gpio.PinIO
	for i, name := range []string{cfg.PinDC, cfg.PinCS, cfg.PinReset, cfg.PinBusy} {
		if pins[i] = gpioreg.ByName(name); pins[i] == nil {
			p.Close()
			return nil, fmt.Errorf("screen: unknown pin %q", name)
		}
	}
	return waveshare2in13bv4.New(p, pins[0], pins[1], pins[2], pins[3], &opts)
}

func scrollerTask(cfg *config.Config, loc *time.Location, q *readings.Queue) (runner.Task, error) {
	font, ok := scroller.FontByName(cfg.Screen.Font)
	if !ok {
		return runner.Task{}, fmt.Errorf("screen: unknown font %q", cfg.Screen.Font)
	}
	opts := scroller.Opts{
		X0:         cfg.Screen.X0,
		Y0:         cfg.Screen.Y0,
		LineHeight: cfg.Screen.YLine,
		Font:       font,
		Location:   loc,
	}
	var panel *waveshare2in13bv4.Dev
	if cfg.Screen.TestExport {
		panel = waveshare2in13bv4.NewImage(&waveshare2in13bv4.EPD2in13bv4)
		opts.Export = os.Stdout
	} else {
		var err error
		if panel, err = openPanel(&cfg.Screen); err != nil {
			return runner.Task{}, err
		}
	}
	if cfg.Screen.Preview {
		opts.Preview = termview.New(&termview.Opts{Width: panel.Width(), Height: panel.Height()})
	}
	s, err := scroller.New(panel, &opts)
	if err != nil {
		return runner.Task{}, err
	}
	glog.V(1).Infof("screen: %s, %d lines", panel, s.Capacity())
	return runner.Task{Name: "screen", Run: func(ctx context.Context) error {
		return s.Run(ctx, q)
	}}, nil
}

// wifiTask hosts the configured access point, or returns the client task
// joining the configured networks. It returns nil without wifi config.
func wifiTask(ctx context.Context, cfg *config.Config) (*runner.Task, error) {
	radio := wifi.NewWPACli(cfg.Wifi.Interface, cfg.Wifi.Country)
	if ap := cfg.AccessPoint; ap != nil {
		glog.Infof("wifi: hosting access point %q", ap.SSID)
		return nil, radio.StartAccessPoint(ctx, *ap)
	}
	if len(cfg.Wifi.APs) == 0 {
		return nil, nil
	}
	c := wifi.New(radio, &wifi.Opts{
		APs:           cfg.Wifi.APs,
		ScanInterval:  cfg.Wifi.ScanInterval,
		CheckInterval: cfg.Wifi.CheckInterval,
	})
	return &runner.Task{Name: "wifi", Run: c.Run}, nil
}

// openUplink returns the configured publishers, or nil. Failing ones are
// logged and skipped.
func openUplink(cfg *config.Config, device string) uplink.Publisher {
	var m uplink.Multi
	u := cfg.Uplink
	if u.InfluxURL != "" {
		m = append(m, uplink.NewInflux(u.InfluxURL, u.InfluxToken, u.InfluxOrg, u.InfluxBucket, device))
	}
	if u.MQTTURL != "" {
		p, err := uplink.NewMQTT(u.MQTTURL, device)
		if err != nil {
			glog.Warningf("%v", err)
		} else {
			m = append(m, p)
		}
	}
	if len(m) == 0 {
		return nil
	}
	glog.Infof("uplink: publishing as %q", device)
	return m
}

func deviceName(cfg *config.Config) string {
	if cfg.Uplink.Device != "" {
		return cfg.Uplink.Device
	}
	return uplink.DeviceID()
}
