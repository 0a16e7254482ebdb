// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"github.com/GermanBionicSystems/co2log/wifi"
)

// KeyError is a configuration line that was skipped.
type KeyError struct {
	Line    int
	Section string
	Key     string
	Err     error
}

func (e *KeyError) Error() string {
	switch {
	case e.Section == "":
		return fmt.Sprintf("config: line %d: %s: %v", e.Line, e.Key, e.Err)
	case e.Key == "":
		return fmt.Sprintf("config: line %d: [%s]: %v", e.Line, e.Section, e.Err)
	}
	return fmt.Sprintf("config: line %d: [%s] %s: %v", e.Line, e.Section, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownKey is wrapped by KeyError for keys and sections that are not
	// recognized.
	ErrUnknownKey = errors.New("unrecognized key")
	// ErrNoSection is wrapped by KeyError for keys before any section header.
	ErrNoSection = errors.New("key before section header")
)

type setter func(c *Config, v string) error

var keys = map[string]map[string]setter{
	"sensor": {
		"enabled":           boolKey(func(c *Config) *bool { return &c.Sensor.Enabled }),
		"verbose":           boolKey(func(c *Config) *bool { return &c.Sensor.Verbose }),
		"device":            stringKey(func(c *Config) *string { return &c.Sensor.Device }),
		"init_delay":        durationKey(func(c *Config) *time.Duration { return &c.Sensor.InitDelay }),
		"interval":          durationKey(func(c *Config) *time.Duration { return &c.Sensor.Interval }),
		"detection_range":   intKey(func(c *Config) *int { return &c.Sensor.DetectionRange }),
		"self_calibration":  boolKey(func(c *Config) *bool { return &c.Sensor.SelfCalibration }),
		"ppm_offset":        intKey(func(c *Config) *int { return &c.Sensor.PPMOffset }),
		"smoothing":         oneOfKey(func(c *Config) *string { return &c.Sensor.Smoothing }, "ewma", "median"),
		"ewma_alpha":        floatKey(func(c *Config) *float64 { return &c.Sensor.EWMAAlpha }),
		"sample_delays":     ladderKey(func(c *Config) *[]time.Duration { return &c.Sensor.SampleDelays }),
		"ewma_read_delays":  ladderKey(func(c *Config) *[]time.Duration { return &c.Sensor.SampleDelays }),
		"read_delays":       ladderKey(func(c *Config) *[]time.Duration { return &c.Sensor.ReadDelays }),
		"read_retry_delays": ladderKey(func(c *Config) *[]time.Duration { return &c.Sensor.RetryDelays }),
	},
	"rtc": {
		"bus":      stringKey(func(c *Config) *string { return &c.RTC.Bus }),
		"addr":     addrKey(func(c *Config) *uint16 { return &c.RTC.Addr }),
		"timezone": stringKey(func(c *Config) *string { return &c.RTC.Timezone }),
	},
	"screen": {
		"verbose":     boolKey(func(c *Config) *bool { return &c.Screen.Verbose }),
		"spi":         stringKey(func(c *Config) *string { return &c.Screen.SPI }),
		"pin_dc":      stringKey(func(c *Config) *string { return &c.Screen.PinDC }),
		"pin_cs":      stringKey(func(c *Config) *string { return &c.Screen.PinCS }),
		"pin_reset":   stringKey(func(c *Config) *string { return &c.Screen.PinReset }),
		"pin_busy":    stringKey(func(c *Config) *string { return &c.Screen.PinBusy }),
		"x0":          intKey(func(c *Config) *int { return &c.Screen.X0 }),
		"y0":          intKey(func(c *Config) *int { return &c.Screen.Y0 }),
		"y_line":      intKey(func(c *Config) *int { return &c.Screen.YLine }),
		"font":        oneOfKey(func(c *Config) *string { return &c.Screen.Font }, "tiny", "basic"),
		"test_fill":   boolKey(func(c *Config) *bool { return &c.Screen.TestFill }),
		"test_export": boolKey(func(c *Config) *bool { return &c.Screen.TestExport }),
		"preview":     boolKey(func(c *Config) *bool { return &c.Screen.Preview }),
		"timeout":     durationKey(func(c *Config) *time.Duration { return &c.Screen.Timeout }),
	},
	"uplink": {
		"influx_url":    stringKey(func(c *Config) *string { return &c.Uplink.InfluxURL }),
		"influx_token":  stringKey(func(c *Config) *string { return &c.Uplink.InfluxToken }),
		"influx_org":    stringKey(func(c *Config) *string { return &c.Uplink.InfluxOrg }),
		"influx_bucket": stringKey(func(c *Config) *string { return &c.Uplink.InfluxBucket }),
		"mqtt_url":      stringKey(func(c *Config) *string { return &c.Uplink.MQTTURL }),
		"device":        stringKey(func(c *Config) *string { return &c.Uplink.Device }),
	},
	"webui": {
		"addr":      stringKey(func(c *Config) *string { return &c.WebUI.Addr }),
		"emergency": boolKey(func(c *Config) *bool { return &c.WebUI.Emergency }),
	},
}

// Global keys of [wifi-client].
var wifiKeys = map[string]setter{
	"country":        stringKey(func(c *Config) *string { return &c.Wifi.Country }),
	"verbose":        boolKey(func(c *Config) *bool { return &c.Wifi.Verbose }),
	"interface":      stringKey(func(c *Config) *string { return &c.Wifi.Interface }),
	"scan_interval":  durationKey(func(c *Config) *time.Duration { return &c.Wifi.ScanInterval }),
	"check_interval": durationKey(func(c *Config) *time.Duration { return &c.Wifi.CheckInterval }),
}

type apSetter func(ap *wifi.AccessPoint, v string) error

// Access point keys of [wifi-client] ssid blocks and [wifi-ap].
var apKeys = map[string]apSetter{
	"ssid": func(ap *wifi.AccessPoint, v string) error { ap.SSID = v; return nil },
	"key":  func(ap *wifi.AccessPoint, v string) error { ap.Key = v; return nil },
	"security": func(ap *wifi.AccessPoint, v string) (err error) {
		ap.Security, err = wifi.ParseSecurity(v)
		return err
	},
	"channel": func(ap *wifi.AccessPoint, v string) (err error) {
		ap.Channel, err = strconv.Atoi(v)
		return err
	},
	"hostname": func(ap *wifi.AccessPoint, v string) error { ap.Hostname = v; return nil },
	"hidden": func(ap *wifi.AccessPoint, v string) (err error) {
		ap.Hidden, err = parseBool(v)
		return err
	},
	"mac": func(ap *wifi.AccessPoint, v string) error { ap.MAC = v; return nil },
	"scan_interval": func(ap *wifi.AccessPoint, v string) (err error) {
		ap.ScanInterval, err = parseSeconds(v)
		return err
	},
	"check_interval": func(ap *wifi.AccessPoint, v string) (err error) {
		ap.CheckInterval, err = parseSeconds(v)
		return err
	},
}

type line struct {
	n        int
	key, val string
}

// Load reads the configuration file at path. envFiles are loaded into the
// environment first, see godotenv.Load; missing ones are skipped. The
// returned []error lists skipped lines.
func Load(path string, envFiles ...string) (*Config, []error, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	c, warnings, err := Parse(f)
	return c, warnings, err
}

// Parse reads a configuration. Only read errors are returned as error; the
// []error lists skipped lines.
func Parse(r io.Reader) (*Config, []error, error) {
	c := Default()
	var warnings []error
	warn := func(n int, sec, key string, err error) {
		warnings = append(warnings, &KeyError{Line: n, Section: sec, Key: key, Err: err})
	}

	var order []string
	sections := map[string][]line{}
	sec := ""
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		b := s.Bytes()
		if n == 1 {
			b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
		}
		if !utf8.Valid(b) {
			warn(n, sec, "", errors.New("invalid utf-8"))
			continue
		}
		txt := strings.TrimSpace(string(b))
		if txt == "" || txt[0] == '#' || txt[0] == ';' {
			continue
		}
		if txt[0] == '[' && txt[len(txt)-1] == ']' {
			sec = strings.ToLower(strings.TrimSpace(txt[1 : len(txt)-1]))
			if _, ok := sections[sec]; !ok {
				order = append(order, sec)
				sections[sec] = []line{}
			}
			continue
		}
		key, val, _ := strings.Cut(txt, "=")
		key = strings.TrimSpace(key)
		if sec == "" {
			warn(n, "", key, ErrNoSection)
			continue
		}
		sections[sec] = append(sections[sec], line{n: n, key: key, val: expand(strings.TrimSpace(val))})
	}
	if err := s.Err(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	for _, sec := range order {
		lines := sections[sec]
		switch sec {
		case "wifi-client":
			parseWifiClient(c, lines, warn)
		case "wifi-ap":
			parseWifiAP(c, lines, warn)
		default:
			table, ok := keys[sec]
			if !ok {
				n := 0
				if len(lines) > 0 {
					n = lines[0].n
				}
				warn(n, sec, "", ErrUnknownKey)
				continue
			}
			for _, l := range lines {
				set, ok := table[normalize(l.key)]
				if !ok {
					warn(l.n, sec, l.key, ErrUnknownKey)
					continue
				}
				if err := set(c, l.val); err != nil {
					warn(l.n, sec, l.key, err)
				}
			}
		}
	}
	return c, warnings, nil
}

// parseWifiClient handles global keys, then one block per "ssid =" line.
// Access point keys before the first ssid are defaults for all blocks.
func parseWifiClient(c *Config, lines []line, warn func(int, string, string, error)) {
	const sec = "wifi-client"
	var base wifi.AccessPoint
	var cur *wifi.AccessPoint
	var curKeys, curLine int
	closeBlock := func() {
		if cur == nil {
			return
		}
		if curKeys == 0 {
			warn(curLine, sec, "ssid", fmt.Errorf("skipping ssid %q without config", cur.SSID))
		} else {
			c.Wifi.APs = append(c.Wifi.APs, *cur)
		}
		cur = nil
	}
	for _, l := range lines {
		key := normalize(l.key)
		if key == "ssid" {
			closeBlock()
			ap := base
			ap.SSID = l.val
			cur, curKeys, curLine = &ap, 0, l.n
			continue
		}
		if set, ok := wifiKeys[key]; ok && (cur == nil || key == "country" || key == "verbose" || key == "interface") {
			if err := set(c, l.val); err != nil {
				warn(l.n, sec, l.key, err)
			}
			continue
		}
		set, ok := apKeys[key]
		if !ok {
			warn(l.n, sec, l.key, ErrUnknownKey)
			continue
		}
		dst := &base
		if cur != nil {
			dst = cur
		}
		if err := set(dst, l.val); err != nil {
			warn(l.n, sec, l.key, err)
			continue
		}
		if cur != nil {
			curKeys++
		}
	}
	closeBlock()
}

func parseWifiAP(c *Config, lines []line, warn func(int, string, string, error)) {
	const sec = "wifi-ap"
	var ap wifi.AccessPoint
	for _, l := range lines {
		set, ok := apKeys[normalize(l.key)]
		if !ok {
			warn(l.n, sec, l.key, ErrUnknownKey)
			continue
		}
		if err := set(&ap, l.val); err != nil {
			warn(l.n, sec, l.key, err)
		}
	}
	if ap.SSID != "" && ap.Key != "" {
		c.AccessPoint = &ap
	}
}

func normalize(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "-", "_"))
}

// expand replaces a value made of a single environment variable reference.
func expand(v string) string {
	if !strings.HasPrefix(v, "$") {
		return v
	}
	name := v[1:]
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") {
		name = name[1 : len(name)-1]
	}
	if name == "" || strings.ContainsAny(name, " ${}") {
		return v
	}
	return os.Getenv(name)
}

var boolMap = map[string]bool{
	"1": true, "yes": true, "y": true, "true": true, "on": true,
	"0": false, "no": false, "n": false, "false": false, "off": false,
}

func parseBool(v string) (bool, error) {
	b, ok := boolMap[strings.ToLower(v)]
	if !ok {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}

func parseSeconds(v string) (time.Duration, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative duration %q", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func boolKey(field func(*Config) *bool) setter {
	return func(c *Config, v string) (err error) {
		b, err := parseBool(v)
		if err == nil {
			*field(c) = b
		}
		return err
	}
}

func stringKey(field func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func oneOfKey(field func(*Config) *string, allowed ...string) setter {
	return func(c *Config, v string) error {
		v = strings.ToLower(v)
		for _, a := range allowed {
			if v == a {
				*field(c) = v
				return nil
			}
		}
		return fmt.Errorf("%q is not one of %s", v, strings.Join(allowed, ", "))
	}
}

func intKey(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		i, err := strconv.Atoi(strings.ReplaceAll(v, "_", ""))
		if err == nil {
			*field(c) = i
		}
		return err
	}
}

func addrKey(field func(*Config) *uint16) setter {
	return func(c *Config, v string) error {
		i, err := strconv.ParseUint(v, 0, 16)
		if err == nil {
			*field(c) = uint16(i)
		}
		return err
	}
}

func floatKey(field func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			*field(c) = f
		}
		return err
	}
}

func durationKey(field func(*Config) *time.Duration) setter {
	return func(c *Config, v string) error {
		d, err := parseSeconds(v)
		if err == nil {
			*field(c) = d
		}
		return err
	}
}

// ladderKey parses space separated seconds.
func ladderKey(field func(*Config) *[]time.Duration) setter {
	return func(c *Config, v string) error {
		var ds []time.Duration
		for _, f := range strings.Fields(v) {
			d, err := parseSeconds(f)
			if err != nil {
				return err
			}
			ds = append(ds, d)
		}
		*field(c) = ds
		return nil
	}
}
