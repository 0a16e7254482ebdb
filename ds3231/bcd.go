// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import (
	"fmt"
	"time"
)

// Register masks for seconds, minutes, hours, weekday, day, month and year.
var regMasks = [7]byte{0x7f, 0x7f, 0x3f, 0x07, 0x3f, 0x1f, 0xff}

const (
	hour12Mode byte = 0x40
	hourPM     byte = 0x20
)

// Calendar is a broken-down wall clock time, as stored by the clock.
type Calendar struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	// Weekday is 1 (Monday) to 7 (Sunday).
	Weekday int
	// YearDay is derived from the date and not stored by the clock.
	YearDay int
}

func (c Calendar) String() string {
	return fmt.Sprintf("[ Y=%d M=%d D=%d h=%d m=%d s=%d w=%d y=%d ]",
		c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, c.Weekday, c.YearDay)
}

// Time returns c as a time in loc.
func (c Calendar) Time(loc *time.Location) time.Time {
	return time.Date(c.Year, time.Month(c.Month), c.Day, c.Hour, c.Minute, c.Second, 0, loc)
}

// FromTime breaks t down into calendar fields in t's location.
func FromTime(t time.Time) Calendar {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return Calendar{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Weekday: wd,
		YearDay: t.YearDay(),
	}
}

// Decode converts the seven time registers into calendar fields.
func Decode(regs [7]byte) Calendar {
	var v [7]int
	for i, b := range regs {
		v[i] = fromBCD(b & regMasks[i])
	}
	if h := regs[2]; h&hour12Mode != 0 {
		v[2] = fromBCD(h & 0x1f)
		if v[2] == 12 {
			v[2] = 0
		}
		if h&hourPM != 0 {
			v[2] += 12
		}
	}
	c := Calendar{
		Second:  v[0],
		Minute:  v[1],
		Hour:    v[2],
		Weekday: v[3],
		Day:     v[4],
		Month:   v[5],
		Year:    v[6] + 2000,
	}
	c.YearDay = yearDay(c.Year, c.Month, c.Day)
	return c
}

// Encode converts calendar fields into the seven time registers, using the
// 24-hour mode. Values the registers cannot hold come out mangled; Set
// detects this by decoding the result again.
func Encode(c Calendar) [7]byte {
	v := [7]int{c.Second, c.Minute, c.Hour, c.Weekday, c.Day, c.Month, c.Year - 2000}
	var regs [7]byte
	for i, n := range v {
		regs[i] = toBCD(n)
	}
	return regs
}

// fromBCD is equivalent to 10*(b>>4) + b&0xf.
func fromBCD(b byte) int {
	return int(b) - 6*int(b>>4)
}

func toBCD(n int) byte {
	return byte(n + 6*(n/10))
}

func yearDay(year, month, day int) int {
	if month < 1 || month > 12 || day < 1 {
		return 0
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).YearDay()
}
