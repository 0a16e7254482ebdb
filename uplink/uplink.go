// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package uplink publishes readings to remote collectors.
//
// Publishing is best effort: the logger keeps running when a collector is
// unreachable.
package uplink

import (
	"context"
	"errors"
	"os"

	"github.com/denisbrodbeck/machineid"

	"github.com/GermanBionicSystems/co2log/readings"
)

// Publisher sends readings to a collector.
type Publisher interface {
	Publish(ctx context.Context, r readings.Reading) error
	Close() error
}

// Multi publishes to every Publisher.
type Multi []Publisher

// Publish implements Publisher. All publishers are tried.
func (m Multi) Publish(ctx context.Context, r readings.Reading) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// DeviceID identifies this device towards collectors. It is derived from the
// machine id, falling back to the host name.
func DeviceID() string {
	if id, err := machineid.ProtectedID("co2log"); err == nil {
		return id[:12]
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "co2log"
}
