// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the logger configuration file.
//
// The file is made of "[section]" headers followed by "key = value" lines.
// Lines starting with '#' or ';' are comments. Keys are case insensitive and
// '-' is the same as '_'. A value made of a single "$NAME" or "${NAME}"
// reference is replaced by that environment variable.
//
// Problems with individual lines don't stop parsing: they are returned as
// *KeyError values and the line is skipped.
package config

import (
	"time"

	"github.com/GermanBionicSystems/co2log/wifi"
)

// Config is the complete configuration, see Default for the values used
// when a key is missing.
type Config struct {
	Sensor Sensor
	RTC    RTC
	Screen Screen
	Wifi   Wifi
	// AccessPoint makes the device host its own network instead of joining
	// one of Wifi.APs. Nil when not configured.
	AccessPoint *wifi.AccessPoint
	Uplink      Uplink
	WebUI       WebUI
}

// Sensor is the [sensor] section.
type Sensor struct {
	Enabled bool
	Verbose bool
	// Device is the serial port the MH-Z19 is connected to.
	Device string
	// InitDelay is the sensor preheat time, counted from process start.
	InitDelay time.Duration
	Interval  time.Duration
	// DetectionRange is one of 2000, 5000 or 10000 ppm.
	DetectionRange  int
	SelfCalibration bool
	PPMOffset       int
	// Smoothing is "ewma" or "median".
	Smoothing string
	EWMAAlpha float64
	// SampleDelays spaces the extra samples of one smoothed reading.
	SampleDelays []time.Duration
	ReadDelays   []time.Duration
	RetryDelays  []time.Duration
}

// RTC is the [rtc] section.
type RTC struct {
	// Bus is the I²C bus name, "" for the first one.
	Bus  string
	Addr uint16
	// Timezone is the IANA zone the clock keeps, "" for the local one.
	Timezone string
}

// Screen is the [screen] section.
type Screen struct {
	Verbose bool
	// SPI is the SPI port name, "" for the first one.
	SPI string
	// Pins are gpioreg names. When all are empty the Waveshare HAT pinout is
	// used.
	PinDC, PinCS, PinReset, PinBusy string
	X0, Y0                          int
	YLine                           int
	// Font is "tiny" or "basic".
	Font       string
	TestFill   bool
	TestExport bool
	Preview    bool
	Timeout    time.Duration
}

// Wifi is the [wifi-client] section.
type Wifi struct {
	Country       string
	Verbose       bool
	Interface     string
	ScanInterval  time.Duration
	CheckInterval time.Duration
	// APs in priority order.
	APs []wifi.AccessPoint
}

// Uplink is the [uplink] section.
type Uplink struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	MQTTURL      string
	// Device overrides the machine id derived device name.
	Device string
}

// WebUI is the [webui] section.
type WebUI struct {
	Addr string
	// Emergency serves the failure page even without wifi configured, e.g.
	// on wired networks.
	Emergency bool
}

// Networked reports whether a failure page can be reached.
func (c *Config) Networked() bool {
	return len(c.Wifi.APs) > 0 || c.AccessPoint != nil || c.WebUI.Emergency
}

func seconds(v ...float64) []time.Duration {
	d := make([]time.Duration, len(v))
	for i, s := range v {
		d[i] = time.Duration(s * float64(time.Second))
	}
	return d
}

// Default returns the configuration used for missing keys.
func Default() *Config {
	return &Config{
		Sensor: Sensor{
			Enabled:        true,
			Device:         "/dev/serial0",
			InitDelay:      210 * time.Second,
			Interval:       1021 * time.Second,
			DetectionRange: 2000,
			Smoothing:      "ewma",
			EWMAAlpha:      0.4,
			ReadDelays:     seconds(0.1, 0.1, 0.1, 0.2, 0.3, 0.5, 1.0),
			RetryDelays:    seconds(0.1, 1, 5, 10, 20, 40, 80, 120, 180),
		},
		RTC: RTC{Addr: 0x68},
		Screen: Screen{
			X0:      1,
			Y0:      3,
			YLine:   10,
			Font:    "tiny",
			Timeout: 80 * time.Second,
		},
		Wifi: Wifi{
			Interface:     "wlan0",
			ScanInterval:  20 * time.Second,
			CheckInterval: 10 * time.Second,
		},
		WebUI: WebUI{Addr: ":80"},
	}
}
