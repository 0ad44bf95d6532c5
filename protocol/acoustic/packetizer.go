/*
DESCRIPTION
  packetizer.go provides Packetizer, which wraps raw interleaved samples in
  acoustic packet headers.

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
	"errors"
	"fmt"
	"math"

	"github.com/ausocean/hydrophone/protocol/tick"
)

// MaxDatagram is the largest packet a Packetizer produces, so that packets
// fit in a single ethernet frame.
const MaxDatagram = 1500

var errPacketizer = errors.New("invalid packetizer parameters")

// Packetizer builds packets from raw interleaved samples. Each packet holds
// as many whole time steps as fit in MaxDatagram bytes. Packets are stamped
// with the time of the end of their last sample, counted from a start time,
// and sequence numbers count up from zero.
type Packetizer struct {
	enc     Encoding
	nc      int
	rate    float64
	start   float64
	spc     int
	seq     uint16
	yielded uint64 // Samples per channel yielded.
}

// NewPacketizer returns a Packetizer for nc channels of samples in encoding
// enc at rate Hz, with the first sample at start seconds since the epoch.
func NewPacketizer(enc Encoding, nc int, rate, start float64) (*Packetizer, error) {
	if enc == S24 {
		return nil, ErrUnsupportedEncoding
	}
	if nc < 1 || nc > math.MaxUint8 || !(rate > 0) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("%w: %d channels at %v Hz", errPacketizer, nc, rate)
	}
	spc := (MaxDatagram - HeaderSize) / (enc.Width() * nc)
	if spc < 1 {
		return nil, fmt.Errorf("%w: %d channels do not fit in a packet", errPacketizer, nc)
	}
	return &Packetizer{enc: enc, nc: nc, rate: rate, start: start, spc: spc}, nil
}

// DataSize returns the number of sample bytes in each packet.
func (z *Packetizer) DataSize() int { return z.spc * z.nc * z.enc.Width() }

// SamplesPerChannel returns the number of time steps in each packet.
func (z *Packetizer) SamplesPerChannel() int { return z.spc }

// Packet returns a packet carrying data, which must be DataSize bytes of
// interleaved little-endian samples, and its timestamp.
func (z *Packetizer) Packet(data []byte) ([]byte, tick.Ticks, error) {
	if len(data) != z.DataSize() {
		return nil, 0, fmt.Errorf("%w: got %d data bytes, want %d", errPacketizer, len(data), z.DataSize())
	}
	z.yielded += uint64(z.spc)
	ts := tick.FromSeconds(z.start + float64(z.yielded)/z.rate)

	b := make([]byte, HeaderSize+len(data))
	Header{
		Magic:      Magic,
		Channels:   uint8(z.nc),
		Seq:        z.seq,
		SampleRate: float32(z.rate),
		Flags:      uint16(z.enc),
		Time:       ts,
	}.Put(b)
	copy(b[HeaderSize:], data)
	z.seq++
	return b, ts, nil
}
