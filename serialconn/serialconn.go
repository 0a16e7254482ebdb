// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package serialconn exposes a serial port as a periph conn.Conn.
//
// Tx writes w, then reads exactly len(r) bytes. A read that stops short
// before the read timeout expires is an error, so frame based drivers can
// poll for responses and retry.
package serialconn

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"periph.io/x/conn/v3"
)

// ErrShortRead is returned when fewer bytes than requested arrived.
var ErrShortRead = errors.New("serialconn: short read")

// DefaultReadTimeout bounds how long Tx waits for response bytes.
const DefaultReadTimeout = 50 * time.Millisecond

// Port is the subset of serial.Port used by Conn.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Mode9600 is 9600 baud, 8 data bits, no parity, one stop bit.
var Mode9600 = serial.Mode{
	BaudRate: 9600,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// Conn is a conn.Conn over a serial port.
type Conn struct {
	name string
	p    Port
}

// Open opens the named serial device in mode, or Mode9600 if nil.
func Open(name string, mode *serial.Mode, readTimeout time.Duration) (*Conn, error) {
	if mode == nil {
		m := Mode9600
		mode = &m
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serialconn: %s: %w", name, err)
	}
	c, err := New(name, p, readTimeout)
	if err != nil {
		p.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an already open port.
func New(name string, p Port, readTimeout time.Duration) (*Conn, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		return nil, fmt.Errorf("serialconn: %s: %w", name, err)
	}
	return &Conn{name: name, p: p}, nil
}

func (c *Conn) String() string {
	return c.name
}

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex {
	return conn.Full
}

// Tx implements conn.Conn. Stale input is discarded before w is written.
func (c *Conn) Tx(w, r []byte) error {
	if len(w) != 0 {
		if err := c.p.ResetInputBuffer(); err != nil {
			return fmt.Errorf("serialconn: %s: %w", c.name, err)
		}
		if _, err := c.p.Write(w); err != nil {
			return fmt.Errorf("serialconn: %s: write: %w", c.name, err)
		}
	}
	for got := 0; got < len(r); {
		n, err := c.p.Read(r[got:])
		if err != nil {
			return fmt.Errorf("serialconn: %s: read: %w", c.name, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s: %d of %d bytes", ErrShortRead, c.name, got, len(r))
		}
		got += n
	}
	return nil
}

// Close closes the port.
func (c *Conn) Close() error {
	return c.p.Close()
}

var _ conn.Conn = &Conn{}
