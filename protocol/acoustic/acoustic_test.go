/*
NAME
  acoustic_test.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package acoustic

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/hydrophone/protocol/tick"
)

// testPacket returns a packet with nc channels and spc time steps whose
// sample values encode their position.
func testPacket(enc Encoding, nc, spc int) *Packet {
	p := &Packet{
		Header: Header{
			Magic:      Magic,
			Channels:   uint8(nc),
			Seq:        513,
			SampleRate: 48000,
			Flags:      uint16(enc) | 0x100,
			Time:       tick.FromParts(0x1234, 0x00abcdef),
		},
		Samples: make([][]float64, spc),
	}
	for t := range p.Samples {
		p.Samples[t] = make([]float64, nc)
		for c := range p.Samples[t] {
			v := float64(t*100 + c)
			if t%2 == 1 {
				v = -v
			}
			if enc == F32 {
				v /= 1024
			}
			p.Samples[t][c] = v
		}
	}
	return p
}

func TestDecodeEncode(t *testing.T) {
	tests := []struct {
		enc Encoding
		nc  int
		spc int
	}{
		{enc: S16, nc: 1, spc: 10},
		{enc: S16, nc: 4, spc: 180},
		{enc: S32, nc: 2, spc: 64},
		{enc: F32, nc: 3, spc: 30},
		{enc: S16, nc: 2, spc: 0},
	}
	for _, test := range tests {
		want := testPacket(test.enc, test.nc, test.spc)
		b, err := want.Bytes()
		if err != nil {
			t.Fatalf("%v: could not encode: %v", test.enc, err)
		}
		if wantLen := HeaderSize + test.nc*test.spc*test.enc.Width(); len(b) != wantLen {
			t.Errorf("%v: encoded length %d, want %d", test.enc, len(b), wantLen)
		}

		got, err := Decode(b)
		if err != nil {
			t.Fatalf("%v: could not decode: %v", test.enc, err)
		}
		if !cmp.Equal(got, want) {
			t.Errorf("%v: decoded packet differs\n%s", test.enc, cmp.Diff(want, got))
		}
		if got.SamplesPerChannel() != test.spc {
			t.Errorf("%v: got %d samples per channel, want %d", test.enc, got.SamplesPerChannel(), test.spc)
		}
	}
}

func TestDecodeLayout(t *testing.T) {
	// Two channels, two time steps, int16.
	b := []byte{
		Magic, 2, 0x07, 0x00, // Magic, channels, seq.
		0, 0, 0, 0, // Sample rate, filled below.
		0x00, 0x00, // Flags.
		0x02, 0x00, 0x01, 0x00, 0x00, 0x00, // Timestamp.
		0x01, 0x00, 0xff, 0xff, // t0: 1, -1.
		0xff, 0x7f, 0x00, 0x80, // t1: 32767, -32768.
	}
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(1000))

	p, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]float64{{1, -1}, {32767, -32768}}
	if !cmp.Equal(p.Samples, want) {
		t.Errorf("did not get expected samples\ngot: %v\nwant: %v", p.Samples, want)
	}
	if p.Seq != 7 || p.Rate() != 1000 || p.FullScale() != 32767 {
		t.Errorf("unexpected header fields: %+v", p.Header)
	}
	if p.Time != 1<<16|2 {
		t.Errorf("got timestamp %d, want %d", p.Time, 1<<16|2)
	}
	if p.Duration() != 0.002 {
		t.Errorf("got duration %v, want 0.002", p.Duration())
	}
}

func TestDecodeOwnsSamples(t *testing.T) {
	b, err := testPacket(S16, 2, 4).Bytes()
	if err != nil {
		t.Fatalf("could not encode: %v", err)
	}
	p, err := Decode(b)
	if err != nil {
		t.Fatalf("could not decode: %v", err)
	}
	before := p.Samples[1][1]
	for i := HeaderSize; i < len(b); i++ {
		b[i] = 0xee
	}
	if p.Samples[1][1] != before {
		t.Error("decoded samples changed when source buffer was overwritten")
	}
}

func TestDecodeInvalid(t *testing.T) {
	good, err := testPacket(S16, 2, 4).Bytes()
	if err != nil {
		t.Fatalf("could not encode: %v", err)
	}
	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0x46
	noChannels := append([]byte(nil), good...)
	noChannels[1] = 0
	zeroRate := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(zeroRate[4:], 0)

	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: nil},
		{name: "short header", in: good[:HeaderSize-1]},
		{name: "bad magic", in: badMagic},
		{name: "odd length", in: good[:len(good)-1]},
		{name: "partial frame", in: good[:len(good)-2]},
		{name: "zero channels", in: noChannels},
		{name: "zero rate", in: zeroRate},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := Decode(test.in)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
			if p != nil {
				t.Error("expected nil packet")
			}
		})
	}
}

func TestDecode24Bit(t *testing.T) {
	b := make([]byte, HeaderSize+6)
	Header{Magic: Magic, Channels: 1, SampleRate: 1000, Flags: uint16(S24)}.Put(b)
	_, err := Decode(b)
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("expected ErrUnsupportedEncoding, got %v", err)
	}
	if errors.Is(err, ErrInvalid) {
		t.Error("24-bit packets must not be treated as skippable")
	}
}

func TestEncodingFullScale(t *testing.T) {
	tests := []struct {
		enc   Encoding
		width int
		full  float64
	}{
		{S16, 2, 32767},
		{S32, 4, 2147483647},
		{S24, 3, 8388607},
		{F32, 4, 1},
	}
	for _, test := range tests {
		if test.enc.Width() != test.width || test.enc.FullScale() != test.full {
			t.Errorf("%v: got width %d fullscale %v", test.enc, test.enc.Width(), test.enc.FullScale())
		}
	}
}

func TestSelect(t *testing.T) {
	p := testPacket(S16, 4, 3)
	err := p.Select([]int{3, 0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]float64{{3, 0, 0}, {-103, -100, -100}, {203, 200, 200}}
	if !cmp.Equal(p.Samples, want) {
		t.Errorf("did not get expected samples\ngot: %v\nwant: %v", p.Samples, want)
	}
	if p.Channels != 3 {
		t.Errorf("got %d channels, want 3", p.Channels)
	}

	for _, mask := range [][]int{{4}, {-1}, {}} {
		err := testPacket(S16, 4, 3).Select(mask)
		if !errors.Is(err, ErrBadMask) {
			t.Errorf("mask %v: expected ErrBadMask, got %v", mask, err)
		}
	}
}
