/*
NAME
  tick_test.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tick

import (
	"errors"
	"math"
	"testing"
)

func TestSeconds(t *testing.T) {
	tests := []struct {
		in   Ticks
		want float64
	}{
		{in: 0, want: 0},
		{in: 1, want: 16e-6},
		{in: 62500, want: 1},
		{in: Mask, want: float64(Mask) * 16e-6},
		{in: Mask + 1, want: 0}, // Only 48 bits are significant.
	}
	for i, test := range tests {
		got := test.in.Seconds()
		if math.Abs(got-test.want) > 1e-9 {
			t.Errorf("did not get expected result for test %d\ngot: %v\nwant: %v", i, got, test.want)
		}
	}
}

func TestParts(t *testing.T) {
	tests := []struct {
		lsb uint16
		msb uint32
	}{
		{0, 0},
		{1, 0},
		{0xffff, 0},
		{0, 1},
		{0x1234, 0xdeadbeef},
		{0xffff, 0xffffffff},
	}
	for i, test := range tests {
		tk := FromParts(test.lsb, test.msb)
		if tk > Mask {
			t.Errorf("test %d: ticks %d exceed 48 bits", i, tk)
		}
		lsb, msb := tk.Parts()
		if lsb != test.lsb || msb != test.msb {
			t.Errorf("test %d: got parts (%#x, %#x), want (%#x, %#x)", i, lsb, msb, test.lsb, test.msb)
		}
	}
	if got := FromParts(0, 1); got != 1<<16 {
		t.Errorf("unexpected join of high part: got %d", got)
	}
}

func TestAddWraps(t *testing.T) {
	if got := Ticks(Mask).Add(1); got != 0 {
		t.Errorf("expected wrap to zero, got %d", got)
	}
	if got := Ticks(Mask - 1).Add(3); got != 1 {
		t.Errorf("expected wrap to one, got %d", got)
	}
}

func TestFromSeconds(t *testing.T) {
	for _, tk := range []Ticks{0, 1, 625, 62500, 1 << 40} {
		if got := FromSeconds(tk.Seconds()); got != tk {
			t.Errorf("FromSeconds(%v) = %d, want %d", tk.Seconds(), got, tk)
		}
	}
	if got := FromSeconds(-16e-6); got != Mask {
		t.Errorf("expected negative time to wrap, got %d", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "19700101T000000.000000Z"},
		{in: 1706152502.5, want: "20240125T031502.500000Z"},
		{in: 16e-6, want: "19700101T000000.000016Z"},
		{in: 1.0000004, want: "19700101T000001.000000Z"},
		{in: 1.0000006, want: "19700101T000001.000001Z"},
	}
	for i, test := range tests {
		if got := Format(test.in); got != test.want {
			t.Errorf("test %d: got %q, want %q", i, got, test.want)
		}
	}
	if got := Ticks(62500).String(); got != "19700101T000001.000000Z" {
		t.Errorf("unexpected String: %q", got)
	}
}

func TestParseMicros(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1706152502000000", want: 1706152502000000},
		{in: "20240125T031502Z", want: 1706152502000000},
		{in: "20240125T031502.25Z", want: 1706152502250000},
		{in: "20240125T031502.000016Z", want: 1706152502000016},
		{in: "yesterday", wantErr: true},
	}
	for i, test := range tests {
		got, err := ParseMicros(test.in)
		if test.wantErr {
			if !errors.Is(err, errBadTime) {
				t.Errorf("test %d: expected errBadTime, got %v", i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("test %d: unexpected error: %v", i, err)
			continue
		}
		if got != test.want {
			t.Errorf("test %d: got %d, want %d", i, got, test.want)
		}
	}
}
