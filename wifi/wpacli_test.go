// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wifi

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeCLI struct {
	replies map[string]string
	calls   []string
}

func (f *fakeCLI) run(ctx context.Context, args ...string) (string, error) {
	call := strings.Join(args, " ")
	f.calls = append(f.calls, call)
	if r, ok := f.replies[call]; ok {
		return r, nil
	}
	return "OK\n", nil
}

func newFakeCLI(replies map[string]string) (*WPACli, *fakeCLI) {
	f := &fakeCLI{replies: replies}
	w := NewWPACli("wlan0", "")
	w.run = f.run
	return w, f
}

func TestWPACliScan(t *testing.T) {
	w, _ := newFakeCLI(map[string]string{
		"-i wlan0 scan": "FAIL-BUSY\n",
		"-i wlan0 scan_results": "bssid / frequency / signal level / flags / ssid\n" +
			"00:11:22:33:44:55\t2437\t-51\t[WPA2-PSK-CCMP][ESS]\thome net\n" +
			"00:11:22:33:44:56\t2412\t-80\t[ESS]\t\n" +
			"00:11:22:33:44:57\t5180\t-60\t[WPA2-PSK-CCMP][ESS]\toffice\n",
	})
	got, err := w.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, []string{"home net", "office"}); diff != "" {
		t.Errorf("Scan() difference (-got +want):\n%s", diff)
	}
}

func TestWPACliStatus(t *testing.T) {
	w, _ := newFakeCLI(map[string]string{
		"-i wlan0 status": "bssid=00:11:22:33:44:55\nssid=home\nwpa_state=COMPLETED\nip_address=192.168.1.7\n",
	})
	ok, err := w.Connected(context.Background())
	if err != nil || !ok {
		t.Fatalf("Connected() = %t, %v", ok, err)
	}
	addr, err := w.Addr(context.Background())
	if err != nil || addr != "192.168.1.7" {
		t.Fatalf("Addr() = %q, %v", addr, err)
	}
}

func TestWPACliConnect(t *testing.T) {
	w, f := newFakeCLI(map[string]string{"-i wlan0 add_network": "3\n"})
	w.country = "DE"
	ap := AccessPoint{SSID: "home", Key: "secret", Security: WPA2PSK, Hidden: true, MAC: "00:11:22:33:44:55"}
	if err := w.Connect(context.Background(), ap); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"-i wlan0 set country DE",
		"-i wlan0 remove_network all",
		"-i wlan0 add_network",
		`-i wlan0 set_network 3 ssid "home"`,
		"-i wlan0 set_network 3 key_mgmt WPA-PSK",
		"-i wlan0 set_network 3 proto RSN",
		`-i wlan0 set_network 3 psk "secret"`,
		"-i wlan0 set_network 3 scan_ssid 1",
		"-i wlan0 set_network 3 bssid 00:11:22:33:44:55",
		"-i wlan0 select_network 3",
	}
	if diff := cmp.Diff(f.calls, want); diff != "" {
		t.Errorf("calls difference (-got +want):\n%s", diff)
	}
}

func TestWPACliStartAccessPoint(t *testing.T) {
	w, f := newFakeCLI(map[string]string{"-i wlan0 add_network": "0\n"})
	if err := w.StartAccessPoint(context.Background(), AccessPoint{SSID: "co2log", Channel: 11}); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"-i wlan0 remove_network all",
		"-i wlan0 add_network",
		`-i wlan0 set_network 0 ssid "co2log"`,
		"-i wlan0 set_network 0 key_mgmt NONE",
		"-i wlan0 set_network 0 mode 2",
		"-i wlan0 set_network 0 frequency 2462",
		"-i wlan0 select_network 0",
	}
	if diff := cmp.Diff(f.calls, want); diff != "" {
		t.Errorf("calls difference (-got +want):\n%s", diff)
	}
}

func TestWPACliFail(t *testing.T) {
	w, _ := newFakeCLI(map[string]string{"-i wlan0 add_network": "FAIL\n"})
	if err := w.Connect(context.Background(), AccessPoint{SSID: "x"}); err == nil {
		t.Fatal("expected error")
	}
}
