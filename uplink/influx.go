// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package uplink

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/GermanBionicSystems/co2log/readings"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "co2"

// Influx writes readings to an InfluxDB v2 bucket, one point per reading.
type Influx struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	device string
}

// NewInflux returns a publisher writing to bucket of org on the server at
// url. Points are tagged with device.
func NewInflux(url, token, org, bucket, device string) *Influx {
	c := influxdb2.NewClient(url, token)
	return &Influx{
		client: c,
		write:  c.WriteAPIBlocking(org, bucket),
		device: device,
	}
}

// Publish implements Publisher.
func (i *Influx) Publish(ctx context.Context, r readings.Reading) error {
	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("device", i.device).
		AddField("ppm", int(r.PPM)).
		AddField("retries", r.Retries).
		SetTime(r.Time)
	if err := i.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("uplink: influxdb: %w", err)
	}
	return nil
}

// Close implements Publisher.
func (i *Influx) Close() error {
	i.client.Close()
	return nil
}
