// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// co2tool is an interactive shell to bring up the logger hardware.
//
// Devices are opened on first use, using the same configuration file as
// co2log. Arguments after the flags are run as a single command instead of
// starting the shell:
//
//	co2tool rtc-set now
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/co2log/config"
	"github.com/GermanBionicSystems/co2log/ds3231"
	"github.com/GermanBionicSystems/co2log/mhz19"
	"github.com/GermanBionicSystems/co2log/serialconn"
	"github.com/GermanBionicSystems/co2log/waveshare2in13bv4"
)

var confPath = flag.String("config", "config.ini", "configuration file")

// tool holds the devices opened so far.
type tool struct {
	cfg    *config.Config
	rtc    *ds3231.Dev
	sensor *mhz19.Dev
	panel  *waveshare2in13bv4.Dev
}

const toolKey = "$tool"

func toolFrom(c *ishell.Context) *tool {
	return c.Get(toolKey).(*tool)
}

func (t *tool) clock() (*ds3231.Dev, error) {
	if t.rtc == nil {
		bus, err := i2creg.Open(t.cfg.RTC.Bus)
		if err != nil {
			return nil, err
		}
		loc := time.Local
		if tz := t.cfg.RTC.Timezone; tz != "" {
			if loc, err = time.LoadLocation(tz); err != nil {
				return nil, err
			}
		}
		t.rtc = ds3231.NewI2C(bus, &ds3231.Opts{Addr: t.cfg.RTC.Addr, Location: loc})
	}
	return t.rtc, nil
}

func (t *tool) co2() (*mhz19.Dev, error) {
	if t.sensor == nil {
		port, err := serialconn.Open(t.cfg.Sensor.Device, nil, 0)
		if err != nil {
			return nil, err
		}
		if t.sensor, err = mhz19.New(port, &mhz19.Opts{
			ReadDelays:  t.cfg.Sensor.ReadDelays,
			RetryDelays: t.cfg.Sensor.RetryDelays,
		}); err != nil {
			return nil, err
		}
	}
	return t.sensor, nil
}

func (t *tool) epd() (*waveshare2in13bv4.Dev, error) {
	if t.panel == nil {
		p, err := spireg.Open(t.cfg.Screen.SPI)
		if err != nil {
			return nil, err
		}
		opts := waveshare2in13bv4.EPD2in13bv4
		opts.Timeout = t.cfg.Screen.Timeout
		if t.panel, err = waveshare2in13bv4.NewHat(p, &opts); err != nil {
			return nil, err
		}
	}
	return t.panel, nil
}

// run wraps a command with a timeout and error reporting.
func run(timeout time.Duration, fn func(ctx context.Context, c *ishell.Context) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx, c); err != nil {
			c.Err(err)
		}
	}
}

var errUsage = errors.New("invalid arguments, see help")

var commands = []*ishell.Cmd{
	{
		Name: "rtc-read",
		Help: "read the clock",
		Func: run(10*time.Second, func(ctx context.Context, c *ishell.Context) error {
			rtc, err := toolFrom(c).clock()
			if err != nil {
				return err
			}
			cal, err := rtc.ReadCalendar(ctx)
			if err != nil {
				return err
			}
			c.Printf("%s (weekday %d, day %d of the year)\n", cal, cal.Weekday, cal.YearDay)
			return nil
		}),
	},
	{
		Name: "rtc-set",
		Help: "set the clock: rtc-set now|<RFC 3339 time>",
		Func: run(10*time.Second, func(ctx context.Context, c *ishell.Context) error {
			if len(c.Args) != 1 {
				return errUsage
			}
			t := time.Now()
			if c.Args[0] != "now" {
				var err error
				if t, err = time.Parse(time.RFC3339, c.Args[0]); err != nil {
					return err
				}
			}
			rtc, err := toolFrom(c).clock()
			if err != nil {
				return err
			}
			if err := rtc.Set(t); err != nil {
				return err
			}
			got, err := rtc.Read(ctx)
			if err != nil {
				return err
			}
			c.Println("clock set to", got.Format(time.DateTime))
			return nil
		}),
	},
	{
		Name: "ppm",
		Help: "read the CO2 concentration: ppm [count]",
		Func: run(10*time.Minute, func(ctx context.Context, c *ishell.Context) error {
			n := 1
			if len(c.Args) == 1 {
				var err error
				if n, err = strconv.Atoi(c.Args[0]); err != nil || n < 1 {
					return errUsage
				}
			}
			s, err := toolFrom(c).co2()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				ppm, retries, err := s.ReadPPM(ctx)
				if err != nil {
					return err
				}
				c.Printf("%s (retries=%d)\n", ppm, retries)
			}
			return nil
		}),
	},
	{
		Name: "abc",
		Help: "toggle automatic baseline correction: abc on|off",
		Func: run(time.Second, func(ctx context.Context, c *ishell.Context) error {
			if len(c.Args) != 1 {
				return errUsage
			}
			on, err := parseOnOff(c.Args[0])
			if err != nil {
				return err
			}
			s, err := toolFrom(c).co2()
			if err != nil {
				return err
			}
			return s.SetSelfCalibration(on)
		}),
	},
	{
		Name: "range",
		Help: fmt.Sprintf("set the detection range: range %v", mhz19.DetectionRanges),
		Func: run(time.Second, func(ctx context.Context, c *ishell.Context) error {
			if len(c.Args) != 1 {
				return errUsage
			}
			ppm, err := strconv.Atoi(c.Args[0])
			if err != nil {
				return err
			}
			s, err := toolFrom(c).co2()
			if err != nil {
				return err
			}
			return s.SetDetectionRange(ppm)
		}),
	},
	{
		Name: "clear",
		Help: "blank the panel: clear [white|black]",
		Func: run(5*time.Minute, func(ctx context.Context, c *ishell.Context) error {
			b := image1bit.On
			if len(c.Args) == 1 && c.Args[0] == "black" {
				b = image1bit.Off
			}
			d, err := toolFrom(c).epd()
			if err != nil {
				return err
			}
			return d.Clear(ctx, b)
		}),
	},
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "yes":
		return true, nil
	case "off", "0", "no":
		return false, nil
	}
	return false, errUsage
}

func main() {
	flag.Parse()
	defer glog.Flush()
	cfg, warnings, err := config.Load(*confPath)
	if err != nil {
		glog.Exit(err)
	}
	for _, w := range warnings {
		glog.Warning(w)
	}
	if _, err := host.Init(); err != nil {
		glog.Exit(err)
	}

	sh := ishell.New()
	sh.Set(toolKey, &tool{cfg: cfg})
	sh.SetPrompt("co2 > ")
	for _, cmd := range commands {
		sh.AddCmd(cmd)
	}
	if flag.NArg() > 0 {
		if err := sh.Process(flag.Args()...); err != nil {
			glog.Exit(err)
		}
		return
	}
	sh.Run()
}
