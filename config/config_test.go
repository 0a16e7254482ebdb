// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/GermanBionicSystems/co2log/wifi"
)

func parse(t *testing.T, s string) (*Config, []error) {
	t.Helper()
	c, warnings, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return c, warnings
}

func TestParseEmpty(t *testing.T) {
	c, warnings := parse(t, "")
	require.Empty(t, warnings)
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	require.False(t, c.Networked())
}

func TestParseSections(t *testing.T) {
	const src = "\xef\xbb\xbf# comment\n" +
		"[Sensor]\n" +
		"enabled = no\n" +
		"Init-Delay = 0.5\n" +
		"interval = 60\n" +
		"detection_range = 5_000\n" +
		"self_calibration = on\n" +
		"ppm_offset = -20\n" +
		"smoothing = Median\n" +
		"read_delays = 0.1 0.25  1\n" +
		"; other comment\n" +
		"[rtc]\n" +
		"addr = 0x57\n" +
		"timezone = Europe/Berlin\n" +
		"[screen]\n" +
		"y_line = 12\n" +
		"font = basic\n" +
		"preview = 1\n" +
		"[uplink]\n" +
		"mqtt_url = tcp://broker:1883/co2\n" +
		"[webui]\n" +
		"addr = :8080\n" +
		"emergency = true\n"
	c, warnings := parse(t, src)
	require.Empty(t, warnings)

	want := Default()
	want.Sensor.Enabled = false
	want.Sensor.InitDelay = 500 * time.Millisecond
	want.Sensor.Interval = time.Minute
	want.Sensor.DetectionRange = 5000
	want.Sensor.SelfCalibration = true
	want.Sensor.PPMOffset = -20
	want.Sensor.Smoothing = "median"
	want.Sensor.ReadDelays = []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, time.Second}
	want.RTC.Addr = 0x57
	want.RTC.Timezone = "Europe/Berlin"
	want.Screen.YLine = 12
	want.Screen.Font = "basic"
	want.Screen.Preview = true
	want.Uplink.MQTTURL = "tcp://broker:1883/co2"
	want.WebUI.Addr = ":8080"
	want.WebUI.Emergency = true
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	require.True(t, c.Networked())
}

func TestParseWarnings(t *testing.T) {
	const src = "orphan = 1\n" +
		"[sensor]\n" +
		"interval = soon\n" +
		"colour = red\n" +
		"enabled = maybe\n" +
		"smoothing = kalman\n" +
		"[nope]\n" +
		"a = b\n" +
		"[screen]\n" +
		"x0 = 4\n"
	c, warnings := parse(t, src)
	require.Len(t, warnings, 6)
	lines := make([]int, len(warnings))
	for i, w := range warnings {
		var ke *KeyError
		require.True(t, errors.As(w, &ke), "%v", w)
		lines[i] = ke.Line
	}
	// Global errors first, then per section in file order.
	require.Equal(t, []int{1, 3, 4, 5, 6, 8}, lines)
	require.ErrorIs(t, warnings[0], ErrNoSection)
	require.ErrorIs(t, warnings[2], ErrUnknownKey)
	require.ErrorIs(t, warnings[5], ErrUnknownKey)
	require.Equal(t, "config: line 4: [sensor] colour: unrecognized key", warnings[2].Error())

	// Valid lines still apply, invalid ones keep the default.
	require.Equal(t, 4, c.Screen.X0)
	require.Equal(t, Default().Sensor.Interval, c.Sensor.Interval)
	require.True(t, c.Sensor.Enabled)
}

func TestParseWifiClient(t *testing.T) {
	const src = "[wifi-client]\n" +
		"country = DE\n" +
		"security = wpa2-psk\n" +
		"scan_interval = 30\n" +
		"ssid = home\n" +
		"key = secret\n" +
		"check_interval = 5\n" +
		"ssid = lonely\n" +
		"ssid = office\n" +
		"key = other\n" +
		"security = open\n" +
		"hidden = yes\n" +
		"interface = wlan1\n"
	c, warnings := parse(t, src)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Error(), `"lonely"`)

	require.Equal(t, "DE", c.Wifi.Country)
	require.Equal(t, "wlan1", c.Wifi.Interface)
	require.Equal(t, 30*time.Second, c.Wifi.ScanInterval)
	want := []wifi.AccessPoint{
		{SSID: "home", Key: "secret", Security: wifi.WPA2PSK, CheckInterval: 5 * time.Second},
		{SSID: "office", Key: "other", Security: wifi.Open, Hidden: true},
	}
	if diff := cmp.Diff(want, c.Wifi.APs); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	require.Nil(t, c.AccessPoint)
	require.True(t, c.Networked())
}

func TestParseWifiAP(t *testing.T) {
	c, warnings := parse(t, "[wifi-ap]\nssid = co2log\nkey = letmein1\nchannel = 6\n")
	require.Empty(t, warnings)
	require.Equal(t, &wifi.AccessPoint{SSID: "co2log", Key: "letmein1", Channel: 6}, c.AccessPoint)

	c, warnings = parse(t, "[wifi-ap]\nssid = co2log\nchannel = x\n")
	require.Len(t, warnings, 1)
	require.Nil(t, c.AccessPoint)
}

func TestParseEnv(t *testing.T) {
	t.Setenv("CO2LOG_TEST_TOKEN", "s3cr3t")
	c, warnings := parse(t, "[uplink]\n"+
		"influx_token = $CO2LOG_TEST_TOKEN\n"+
		"influx_org = ${CO2LOG_TEST_TOKEN}\n"+
		"influx_bucket = a$CO2LOG_TEST_TOKEN\n"+
		"device = $CO2LOG_TEST_UNSET\n")
	require.Empty(t, warnings)
	require.Equal(t, "s3cr3t", c.Uplink.InfluxToken)
	require.Equal(t, "s3cr3t", c.Uplink.InfluxOrg)
	require.Equal(t, "a$CO2LOG_TEST_TOKEN", c.Uplink.InfluxBucket)
	require.Equal(t, "", c.Uplink.Device)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "co2log.conf")
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("[uplink]\ninflux_url = ${CO2LOG_TEST_URL}\n"), 0o600))
	require.NoError(t, os.WriteFile(env, []byte("CO2LOG_TEST_URL=http://influx:8086\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CO2LOG_TEST_URL") })

	c, warnings, err := Load(path, filepath.Join(dir, "missing.env"), env)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, "http://influx:8086", c.Uplink.InfluxURL)

	_, _, err = Load(filepath.Join(dir, "nope.conf"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
