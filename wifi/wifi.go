// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wifi keeps a wifi station connected to the first available access
// point out of a priority list.
//
// After a connection drops, the last access point is retried once before
// scanning again, which absorbs short hiccups without a full rescan.
package wifi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

// State is the connection state of a Client.
type State int

const (
	Disconnected State = iota
	Scanning
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Security is the authentication scheme of an access point.
type Security string

const (
	WPA2PSK    Security = "wpa2-psk"
	WPAWPA2PSK Security = "wpa/wpa2-psk"
	WPAPSK     Security = "wpa-psk"
	Open       Security = "open"
)

// ParseSecurity accepts the Security names, case insensitive. An empty
// string is WPA2PSK.
func ParseSecurity(s string) (Security, error) {
	switch sec := Security(strings.ToLower(s)); sec {
	case "":
		return WPA2PSK, nil
	case WPA2PSK, WPAWPA2PSK, WPAPSK, Open:
		return sec, nil
	}
	return "", fmt.Errorf("wifi: unknown security %q", s)
}

// AccessPoint is the configuration used to join or host a network.
type AccessPoint struct {
	SSID     string
	Key      string
	Security Security
	Channel  int
	Hostname string
	Hidden   bool
	// MAC pins the BSSID to connect to.
	MAC string
	// ScanInterval and CheckInterval override Opts when non-zero.
	ScanInterval  time.Duration
	CheckInterval time.Duration
}

// Radio is the station interface driven by a Client.
type Radio interface {
	// Scan returns the SSIDs currently visible.
	Scan(ctx context.Context) ([]string, error)
	// Connect starts joining ap and returns without waiting for the result.
	Connect(ctx context.Context, ap AccessPoint) error
	// Connected reports whether the station is associated and configured.
	Connected(ctx context.Context) (bool, error)
	// Addr returns the current IP address, or "" if none.
	Addr(ctx context.Context) (string, error)
}

// Opts configures a Client.
type Opts struct {
	// APs in priority order.
	APs []AccessPoint
	// ScanInterval is the delay between polls while not connected.
	ScanInterval time.Duration
	// CheckInterval is the delay between polls while connected.
	CheckInterval time.Duration
}

// DefaultOpts has no access point configured.
var DefaultOpts = Opts{
	ScanInterval:  20 * time.Second,
	CheckInterval: 10 * time.Second,
}

// Client runs the connection state machine. State and Addr are safe for
// concurrent use; Step and Run are not.
type Client struct {
	radio Radio
	opts  Opts

	// conn is the access point being joined, reconn the one to retry once
	// after a drop.
	conn, reconn *AccessPoint

	mu    sync.Mutex
	state State
	addr  string
}

// New returns a Client in the Disconnected state.
func New(r Radio, opts *Opts) *Client {
	c := &Client{radio: r, opts: DefaultOpts}
	if opts != nil {
		c.opts.APs = opts.APs
		if opts.ScanInterval > 0 {
			c.opts.ScanInterval = opts.ScanInterval
		}
		if opts.CheckInterval > 0 {
			c.opts.CheckInterval = opts.CheckInterval
		}
	}
	return c
}

// State returns the state reached by the last Step.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Addr returns the last seen IP address, or "".
func (c *Client) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Select returns the first access point of aps whose SSID is in visible.
func Select(visible []string, aps []AccessPoint) (AccessPoint, bool) {
	seen := make(map[string]bool, len(visible))
	for _, ssid := range visible {
		seen[ssid] = true
	}
	for _, ap := range aps {
		if seen[ap.SSID] {
			return ap, true
		}
	}
	return AccessPoint{}, false
}

// Step polls the radio once, starts a connection if needed and returns the
// delay until the next Step.
func (c *Client) Step(ctx context.Context) (time.Duration, error) {
	connected, err := c.radio.Connected(ctx)
	if err != nil {
		return 0, fmt.Errorf("wifi: status: %w", err)
	}
	if !connected {
		c.conn = nil
		if c.reconn != nil {
			glog.V(1).Infof("wifi: reconnecting to %q", c.reconn.SSID)
			c.conn, c.reconn = c.reconn, nil
		}
		if c.conn == nil {
			visible, err := c.radio.Scan(ctx)
			if err != nil {
				return 0, fmt.Errorf("wifi: scan: %w", err)
			}
			glog.V(1).Infof("wifi: scan results [ %s ]", strings.Join(visible, " // "))
			if ap, ok := Select(visible, c.opts.APs); ok {
				c.conn = &ap
			}
		}
		if c.conn != nil {
			glog.V(1).Infof("wifi: connecting to %q", c.conn.SSID)
			if err := c.radio.Connect(ctx, *c.conn); err != nil {
				c.conn = nil
				return 0, fmt.Errorf("wifi: connect: %w", err)
			}
		}
	} else if c.conn != nil {
		c.conn, c.reconn = nil, c.conn
	}

	var state State
	var delay time.Duration
	switch {
	case c.conn != nil:
		state, delay = Connecting, c.interval(c.conn.ScanInterval, c.opts.ScanInterval)
	case c.reconn != nil:
		state, delay = Connected, c.interval(c.reconn.CheckInterval, c.opts.CheckInterval)
	case connected:
		// Joined before this process started.
		state, delay = Connected, c.opts.CheckInterval
	default:
		state, delay = Scanning, c.opts.ScanInterval
	}

	addr, err := c.radio.Addr(ctx)
	if err != nil {
		return 0, fmt.Errorf("wifi: address: %w", err)
	}

	c.mu.Lock()
	c.state = state
	changed := addr != "" && addr != c.addr
	if addr != "" {
		c.addr = addr
	}
	c.mu.Unlock()
	if changed {
		glog.Infof("wifi: current IP address: %s", addr)
	}
	glog.V(2).Infof("wifi: state = %s, delay = %s", state, delay)
	return delay, nil
}

func (c *Client) interval(ap, def time.Duration) time.Duration {
	if ap > 0 {
		return ap
	}
	return def
}

// Run steps the state machine until ctx is done. Radio errors are logged
// and retried after the scan interval.
func (c *Client) Run(ctx context.Context) error {
	for {
		delay, err := c.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Warningf("%v", err)
			delay = c.opts.ScanInterval
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
