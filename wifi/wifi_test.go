// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wifi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRadio struct {
	visible   []string
	connected bool
	addr      string
	err       error

	scans    int
	connects []string
}

func (r *fakeRadio) Scan(ctx context.Context) ([]string, error) {
	r.scans++
	return r.visible, r.err
}

func (r *fakeRadio) Connect(ctx context.Context, ap AccessPoint) error {
	r.connects = append(r.connects, ap.SSID)
	return r.err
}

func (r *fakeRadio) Connected(ctx context.Context) (bool, error) {
	return r.connected, r.err
}

func (r *fakeRadio) Addr(ctx context.Context) (string, error) {
	return r.addr, r.err
}

var testOpts = Opts{
	APs:           []AccessPoint{{SSID: "B"}, {SSID: "A"}},
	ScanInterval:  2 * time.Second,
	CheckInterval: 30 * time.Second,
}

func TestSelect(t *testing.T) {
	ap, ok := Select([]string{"A", "B"}, testOpts.APs)
	require.True(t, ok)
	require.Equal(t, "B", ap.SSID)

	ap, ok = Select([]string{"C", "A"}, testOpts.APs)
	require.True(t, ok)
	require.Equal(t, "A", ap.SSID)

	_, ok = Select([]string{"C"}, testOpts.APs)
	require.False(t, ok)
	_, ok = Select(nil, nil)
	require.False(t, ok)
}

func TestStepReconnectsOnce(t *testing.T) {
	ctx := context.Background()
	r := &fakeRadio{visible: []string{"A", "B"}}
	c := New(r, &testOpts)
	require.Equal(t, Disconnected, c.State())

	delay, err := c.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, Connecting, c.State())
	require.Equal(t, 2*time.Second, delay)
	require.Equal(t, 1, r.scans)
	require.Equal(t, []string{"B"}, r.connects)

	r.connected, r.addr = true, "192.168.1.7"
	delay, err = c.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, Connected, c.State())
	require.Equal(t, 30*time.Second, delay)
	require.Equal(t, "192.168.1.7", c.Addr())

	// Drop: same AP again, without scanning.
	r.connected = false
	_, err = c.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, Connecting, c.State())
	require.Equal(t, 1, r.scans)
	require.Equal(t, []string{"B", "B"}, r.connects)

	// Still down: back to scanning, which now only finds A.
	r.visible = []string{"A"}
	_, err = c.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, r.scans)
	require.Equal(t, []string{"B", "B", "A"}, r.connects)
	require.Equal(t, "192.168.1.7", c.Addr())
}

func TestStepNothingVisible(t *testing.T) {
	r := &fakeRadio{visible: []string{"C"}}
	c := New(r, &testOpts)
	delay, err := c.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, Scanning, c.State())
	require.Equal(t, 2*time.Second, delay)
	require.Empty(t, r.connects)
}

func TestStepAlreadyConnected(t *testing.T) {
	r := &fakeRadio{connected: true, addr: "10.0.0.2"}
	c := New(r, &testOpts)
	delay, err := c.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, Connected, c.State())
	require.Equal(t, 30*time.Second, delay)
	require.Equal(t, 0, r.scans)
	require.Equal(t, "10.0.0.2", c.Addr())
}

func TestStepAccessPointIntervals(t *testing.T) {
	ctx := context.Background()
	r := &fakeRadio{visible: []string{"A"}}
	opts := testOpts
	opts.APs = []AccessPoint{{SSID: "A", ScanInterval: time.Second, CheckInterval: time.Minute}}
	c := New(r, &opts)

	delay, err := c.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, time.Second, delay)

	r.connected = true
	delay, err = c.Step(ctx)
	require.NoError(t, err)
	require.Equal(t, time.Minute, delay)
}

func TestStepError(t *testing.T) {
	boom := errors.New("boom")
	c := New(&fakeRadio{err: boom}, &testOpts)
	_, err := c.Step(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, Disconnected, c.State())
}

func TestRunKeepsGoing(t *testing.T) {
	r := &fakeRadio{err: errors.New("boom")}
	c := New(r, &Opts{ScanInterval: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Run(ctx), context.DeadlineExceeded)
}

func TestDefaults(t *testing.T) {
	c := New(&fakeRadio{}, nil)
	delay, err := c.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, Scanning, c.State())
	require.Equal(t, DefaultOpts.ScanInterval, delay)
}

func TestParseSecurity(t *testing.T) {
	for in, want := range map[string]Security{
		"":             WPA2PSK,
		"WPA2-PSK":     WPA2PSK,
		"wpa/wpa2-psk": WPAWPA2PSK,
		"wpa-psk":      WPAPSK,
		"open":         Open,
	} {
		got, err := ParseSecurity(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := ParseSecurity("wep")
	require.Error(t, err)
}
