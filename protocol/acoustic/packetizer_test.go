/*
DESCRIPTION
  packetizer_test.go provides testing of the Packetizer.

AUTHORS
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
	"testing"

	"github.com/ausocean/hydrophone/protocol/tick"
)

func TestPacketizerSize(t *testing.T) {
	tests := []struct {
		enc      Encoding
		nc       int
		wantSPC  int
		wantSize int
	}{
		{enc: S16, nc: 1, wantSPC: 742, wantSize: 1484},
		{enc: S32, nc: 1, wantSPC: 371, wantSize: 1484},
		{enc: S16, nc: 4, wantSPC: 185, wantSize: 1480},
		{enc: F32, nc: 3, wantSPC: 123, wantSize: 1476},
	}
	for _, test := range tests {
		z, err := NewPacketizer(test.enc, test.nc, 31250, 0)
		if err != nil {
			t.Fatalf("%v x %d: unexpected error: %v", test.enc, test.nc, err)
		}
		if z.SamplesPerChannel() != test.wantSPC || z.DataSize() != test.wantSize {
			t.Errorf("%v x %d: got %d samples in %d bytes, want %d in %d",
				test.enc, test.nc, z.SamplesPerChannel(), z.DataSize(), test.wantSPC, test.wantSize)
		}
		if HeaderSize+z.DataSize() > MaxDatagram {
			t.Errorf("%v x %d: packet exceeds %d bytes", test.enc, test.nc, MaxDatagram)
		}
	}
}

func TestPacketizer(t *testing.T) {
	const start = 1725898437.0
	z, err := NewPacketizer(S16, 2, 1000, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := make([]byte, z.DataSize())
	for i := 0; i < len(data)/2; i++ {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(int16(i-100)))
	}

	spc := z.SamplesPerChannel()
	for n := 1; n <= 3; n++ {
		b, ts, err := z.Packet(data)
		if err != nil {
			t.Fatalf("packet %d: unexpected error: %v", n, err)
		}
		p, err := Decode(b)
		if err != nil {
			t.Fatalf("packet %d: could not decode: %v", n, err)
		}
		if p.Seq != uint16(n-1) || p.Channels != 2 || p.Rate() != 1000 || p.Encoding() != S16 {
			t.Errorf("packet %d: unexpected header %+v", n, p.Header)
		}
		want := tick.FromSeconds(start + float64(n*spc)/1000)
		if ts != want || p.Time != want {
			t.Errorf("packet %d: got timestamp %v (header %v), want %v", n, ts, p.Time, want)
		}
		if p.Samples[0][0] != -100 || p.Samples[spc-1][1] != float64(2*spc-1-100) {
			t.Errorf("packet %d: unexpected samples", n)
		}
	}

	_, _, err = z.Packet(data[1:])
	if !errors.Is(err, errPacketizer) {
		t.Errorf("expected errPacketizer for short data, got %v", err)
	}
}

func TestPacketizerSeqWrap(t *testing.T) {
	z, err := NewPacketizer(F32, 1, 31250, 0)
	if err != nil {
		t.Fatal(err)
	}
	z.seq = 65535
	data := make([]byte, z.DataSize())
	b, _, _ := z.Packet(data)
	if h, _ := ParseHeader(b); h.Seq != 65535 {
		t.Errorf("got seq %d, want 65535", h.Seq)
	}
	b, _, _ = z.Packet(data)
	if h, _ := ParseHeader(b); h.Seq != 0 {
		t.Errorf("got seq %d after wrap, want 0", h.Seq)
	}
}

func TestNewPacketizerInvalid(t *testing.T) {
	_, err := NewPacketizer(S24, 1, 1000, 0)
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("expected ErrUnsupportedEncoding, got %v", err)
	}
	for _, nc := range []int{0, 256, 400} {
		_, err = NewPacketizer(S32, nc, 1000, 0)
		if err == nil {
			t.Errorf("expected error for %d channels", nc)
		}
	}
	_, err = NewPacketizer(S16, 1, 0, 0)
	if !errors.Is(err, errPacketizer) {
		t.Errorf("expected errPacketizer for zero rate, got %v", err)
	}
}
