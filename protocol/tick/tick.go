/*
NAME
  tick.go

DESCRIPTION
  tick.go provides the 48-bit, 16 microsecond resolution clock used to stamp
  hydrophone log frames and acoustic packets.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tick provides the device tick clock: an unsigned 48-bit count of
// 16 microsecond ticks, carried on the wire as a 16-bit low part and a 32-bit
// high part.
package tick

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Clock constants.
const (
	Bits      = 48
	Mask      = 1<<Bits - 1
	Period    = 16 * time.Microsecond
	periodUS  = 16
	perSecond = 1e6 / periodUS // 62500 ticks per second.
)

// TextLayout is the layout used for rendering timestamps in logs and tools,
// e.g. 20240125T031502.123456Z.
const TextLayout = "20060102T150405.000000Z"

// Ticks is a count of 16 microsecond ticks. Only the low 48 bits are
// significant; arithmetic wraps modulo 2^48.
type Ticks uint64

// FromParts joins the wire representation of a timestamp.
func FromParts(lsb uint16, msb uint32) Ticks {
	return Ticks(uint64(msb)<<16 | uint64(lsb))
}

// Parts splits t into its wire representation.
func (t Ticks) Parts() (lsb uint16, msb uint32) {
	t &= Mask
	return uint16(t), uint32(t >> 16)
}

// Seconds returns t as seconds since the epoch.
func (t Ticks) Seconds() float64 {
	return float64(t&Mask) * periodUS / 1e6
}

// Micros returns t as microseconds since the epoch.
func (t Ticks) Micros() uint64 {
	return uint64(t&Mask) * periodUS
}

// Add returns t advanced by n ticks, wrapping modulo 2^48.
func (t Ticks) Add(n uint64) Ticks {
	return (t + Ticks(n)) & Mask
}

// Time returns t as a UTC time.
func (t Ticks) Time() time.Time {
	return time.UnixMicro(int64(t.Micros())).UTC()
}

// String implements fmt.Stringer.
func (t Ticks) String() string { return Format(t.Seconds()) }

// FromSeconds converts seconds since the epoch to the nearest tick count.
// Negative values and values beyond the clock range wrap modulo 2^48.
func FromSeconds(s float64) Ticks {
	return Ticks(int64(math.Round(s*perSecond))) & Mask
}

// FromMicros converts microseconds since the epoch to a tick count, rounding
// down to the nearest tick.
func FromMicros(us uint64) Ticks {
	return Ticks(us/periodUS) & Mask
}

// Format renders seconds since the epoch as YYYYMMDDTHHMMSS.ffffffZ, rounded
// to the nearest microsecond.
func Format(s float64) string {
	us := int64(math.Round(s * 1e6))
	return time.UnixMicro(us).UTC().Format(TextLayout)
}

var errBadTime = errors.New("unrecognised time")

// ParseMicros parses a time given either as YYYYMMDDTHHMMSSZ, with an
// optional fractional second, or as a plain count of microseconds since the
// epoch.
func ParseMicros(s string) (int64, error) {
	if us, err := strconv.ParseInt(s, 10, 64); err == nil {
		return us, nil
	}
	layout := "20060102T150405Z"
	if strings.Contains(s, ".") {
		layout = "20060102T150405.999999999Z"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", errBadTime, s, err)
	}
	return t.UnixMicro(), nil
}
