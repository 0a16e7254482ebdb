// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wifi

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// WPACli is a Radio driving wpa_supplicant through the wpa_cli tool.
type WPACli struct {
	iface   string
	country string
	run     func(ctx context.Context, args ...string) (string, error)
}

// NewWPACli returns a Radio for network interface iface. country is the ISO
// 3166 regulatory domain, if not empty.
func NewWPACli(iface, country string) *WPACli {
	return &WPACli{iface: iface, country: country, run: runWPACli}
}

func runWPACli(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "wpa_cli", args...).Output()
	return string(out), err
}

func (w *WPACli) String() string {
	return "wpa_cli(" + w.iface + ")"
}

func (w *WPACli) cmd(ctx context.Context, args ...string) (string, error) {
	out, err := w.run(ctx, append([]string{"-i", w.iface}, args...)...)
	if err != nil {
		return "", fmt.Errorf("wpa_cli %s: %w", args[0], err)
	}
	out = strings.TrimSpace(out)
	if strings.HasPrefix(out, "FAIL") {
		return "", fmt.Errorf("wpa_cli %s: %s", strings.Join(args, " "), out)
	}
	return out, nil
}

// Scan implements Radio. It returns the results of the previous scan while
// the new one is still running.
func (w *WPACli) Scan(ctx context.Context) ([]string, error) {
	if _, err := w.cmd(ctx, "scan"); err != nil && !strings.Contains(err.Error(), "FAIL-BUSY") {
		return nil, err
	}
	out, err := w.cmd(ctx, "scan_results")
	if err != nil {
		return nil, err
	}
	var ssids []string
	s := bufio.NewScanner(strings.NewReader(out))
	for first := true; s.Scan(); first = false {
		// bssid / frequency / signal level / flags / ssid
		f := strings.SplitN(s.Text(), "\t", 5)
		if first || len(f) < 5 || f[4] == "" {
			continue
		}
		ssids = append(ssids, f[4])
	}
	return ssids, nil
}

// Connect implements Radio.
func (w *WPACli) Connect(ctx context.Context, ap AccessPoint) error {
	return w.join(ctx, ap, false)
}

// StartAccessPoint hosts ap instead of joining a network.
func (w *WPACli) StartAccessPoint(ctx context.Context, ap AccessPoint) error {
	return w.join(ctx, ap, true)
}

func (w *WPACli) join(ctx context.Context, ap AccessPoint, host bool) error {
	if w.country != "" {
		if _, err := w.cmd(ctx, "set", "country", w.country); err != nil {
			return err
		}
	}
	if _, err := w.cmd(ctx, "remove_network", "all"); err != nil {
		return err
	}
	id, err := w.cmd(ctx, "add_network")
	if err != nil {
		return err
	}
	if _, err := strconv.Atoi(id); err != nil {
		return fmt.Errorf("wpa_cli add_network: unexpected reply %q", id)
	}
	for _, kv := range networkSettings(ap, host) {
		if _, err := w.cmd(ctx, "set_network", id, kv[0], kv[1]); err != nil {
			return err
		}
	}
	_, err = w.cmd(ctx, "select_network", id)
	return err
}

func networkSettings(ap AccessPoint, host bool) [][2]string {
	kv := [][2]string{{"ssid", strconv.Quote(ap.SSID)}}
	if ap.Security == Open || ap.Key == "" {
		kv = append(kv, [2]string{"key_mgmt", "NONE"})
	} else {
		proto := "RSN"
		switch ap.Security {
		case WPAPSK:
			proto = "WPA"
		case WPAWPA2PSK:
			proto = "WPA RSN"
		}
		kv = append(kv,
			[2]string{"key_mgmt", "WPA-PSK"},
			[2]string{"proto", proto},
			[2]string{"psk", strconv.Quote(ap.Key)})
	}
	if ap.Hidden {
		kv = append(kv, [2]string{"scan_ssid", "1"})
	}
	if ap.MAC != "" && !host {
		kv = append(kv, [2]string{"bssid", ap.MAC})
	}
	if host {
		ch := ap.Channel
		if ch == 0 {
			ch = 6
		}
		kv = append(kv,
			[2]string{"mode", "2"},
			[2]string{"frequency", strconv.Itoa(2407 + 5*ch)})
	}
	return kv
}

// Connected implements Radio.
func (w *WPACli) Connected(ctx context.Context) (bool, error) {
	st, err := w.status(ctx)
	if err != nil {
		return false, err
	}
	return st["wpa_state"] == "COMPLETED", nil
}

// Addr implements Radio.
func (w *WPACli) Addr(ctx context.Context) (string, error) {
	st, err := w.status(ctx)
	if err != nil {
		return "", err
	}
	return st["ip_address"], nil
}

func (w *WPACli) status(ctx context.Context) (map[string]string, error) {
	out, err := w.cmd(ctx, "status")
	if err != nil {
		return nil, err
	}
	st := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			st[k] = strings.TrimSpace(v)
		}
	}
	return st, nil
}

var _ Radio = &WPACli{}
