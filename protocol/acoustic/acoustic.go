/*
NAME
  acoustic.go

DESCRIPTION
  acoustic.go provides decoding and encoding of hydrophone acoustic data
  packets, a 16-byte header followed by interleaved multichannel samples.

AUTHORS
  Trek Hopton <trek@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package acoustic provides a decoder and encoder for acoustic data packets.
//
// An acoustic packet has the following little-endian layout:
//
//	u8 magic (0x45) | u8 channels | u16 seq | f32 rate | u16 flags |
//	u16 ts_lsb | u32 ts_msb | samples...
//
// Samples are interleaved channel-minor: all channels of time step 0, then
// all channels of time step 1 and so on. The low two bits of flags select the
// sample encoding.
package acoustic

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ausocean/hydrophone/protocol/tick"
)

// Packet constants.
const (
	HeaderSize = 16
	Magic      = 0x45
	encMask    = 0x3 // Encoding bits of the flags field.
)

// Header field offsets.
const (
	idxMagic    = 0
	idxChannels = 1
	idxSeq      = 2
	idxRate     = 4
	idxFlags    = 8
	idxLSB      = 10
	idxMSB      = 12
)

var (
	// ErrInvalid is wrapped by errors for packets that cannot be decoded but
	// which should be skipped rather than end processing.
	ErrInvalid = errors.New("invalid acoustic packet")

	// ErrUnsupportedEncoding is returned for packets using the 24-bit sample
	// encoding, which is defined but has no agreed byte layout.
	ErrUnsupportedEncoding = errors.New("unsupported sample encoding")

	// ErrBadMask is returned when a channel mask names a channel the packet
	// does not have.
	ErrBadMask = errors.New("bad channel mask")
)

// Encoding describes the sample encoding of a packet.
type Encoding uint8

// Sample encodings, as carried in the low two bits of the flags field.
const (
	S16 Encoding = iota // Signed 16-bit integer.
	S32                 // Signed 32-bit integer.
	S24                 // Signed 24-bit integer. Not implemented.
	F32                 // IEEE-754 32-bit float.
)

// Width returns the size of one sample in bytes.
func (e Encoding) Width() int {
	switch e {
	case S16:
		return 2
	case S24:
		return 3
	default:
		return 4
	}
}

// FullScale returns the magnitude of a full scale sample.
func (e Encoding) FullScale() float64 {
	switch e {
	case S16:
		return math.MaxInt16
	case S32:
		return math.MaxInt32
	case S24:
		return 1<<23 - 1
	default:
		return 1
	}
}

// String implements fmt.Stringer.
func (e Encoding) String() string {
	switch e {
	case S16:
		return "int16"
	case S32:
		return "int32"
	case S24:
		return "int24"
	case F32:
		return "float32"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// Header is the fixed 16-byte acoustic packet header.
type Header struct {
	Magic      uint8
	Channels   uint8
	Seq        uint16
	SampleRate float32
	Flags      uint16
	Time       tick.Ticks
}

// Encoding returns the sample encoding selected by the header flags.
func (h Header) Encoding() Encoding { return Encoding(h.Flags & encMask) }

// ParseHeader parses an acoustic header from the start of b. It does not
// check the magic number.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than header", ErrInvalid, len(b))
	}
	return Header{
		Magic:      b[idxMagic],
		Channels:   b[idxChannels],
		Seq:        binary.LittleEndian.Uint16(b[idxSeq:]),
		SampleRate: math.Float32frombits(binary.LittleEndian.Uint32(b[idxRate:])),
		Flags:      binary.LittleEndian.Uint16(b[idxFlags:]),
		Time: tick.FromParts(
			binary.LittleEndian.Uint16(b[idxLSB:]),
			binary.LittleEndian.Uint32(b[idxMSB:]),
		),
	}, nil
}

// Put writes h into the first HeaderSize bytes of b.
func (h Header) Put(b []byte) {
	lsb, msb := h.Time.Parts()
	b[idxMagic] = h.Magic
	b[idxChannels] = h.Channels
	binary.LittleEndian.PutUint16(b[idxSeq:], h.Seq)
	binary.LittleEndian.PutUint32(b[idxRate:], math.Float32bits(h.SampleRate))
	binary.LittleEndian.PutUint16(b[idxFlags:], h.Flags)
	binary.LittleEndian.PutUint16(b[idxLSB:], lsb)
	binary.LittleEndian.PutUint32(b[idxMSB:], msb)
}

// Packet is a decoded acoustic packet. Samples is indexed [time][channel]
// and holds the raw sample values; divide by FullScale to normalise. A
// Packet owns its samples and does not refer to the buffer it was decoded
// from.
type Packet struct {
	Header
	Samples [][]float64
}

// Decode decodes an acoustic packet from b. Packets that are too short,
// carry the wrong magic number or whose length does not match their header
// produce an error wrapping ErrInvalid; callers should skip these. Packets
// using the 24-bit encoding produce ErrUnsupportedEncoding.
func Decode(b []byte) (*Packet, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: magic 0x%02x", ErrInvalid, h.Magic)
	}
	enc := h.Encoding()
	if enc == S24 {
		return nil, fmt.Errorf("packet %d: %w: %v", h.Seq, ErrUnsupportedEncoding, enc)
	}
	if h.Channels == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrInvalid)
	}
	if !(h.SampleRate > 0) || math.IsInf(float64(h.SampleRate), 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalid, h.SampleRate)
	}

	data := b[HeaderSize:]
	nc := int(h.Channels)
	w := enc.Width()
	spc := len(data) / (nc * w)
	if spc*nc*w != len(data) {
		return nil, fmt.Errorf("%w: %d data bytes is not a whole number of %d channel %v frames", ErrInvalid, len(data), nc, enc)
	}

	flat := make([]float64, spc*nc)
	for i := range flat {
		s := data[i*w:]
		switch enc {
		case S16:
			flat[i] = float64(int16(binary.LittleEndian.Uint16(s)))
		case S32:
			flat[i] = float64(int32(binary.LittleEndian.Uint32(s)))
		case F32:
			flat[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(s)))
		}
	}
	samples := make([][]float64, spc)
	for t := range samples {
		samples[t] = flat[t*nc : (t+1)*nc : (t+1)*nc]
	}
	return &Packet{Header: h, Samples: samples}, nil
}

// Encoding returns the sample encoding of the packet.
func (p *Packet) Encoding() Encoding { return p.Header.Encoding() }

// FullScale returns the full scale magnitude for the packet's encoding.
func (p *Packet) FullScale() float64 { return p.Encoding().FullScale() }

// Timestamp returns the packet timestamp in seconds.
func (p *Packet) Timestamp() float64 { return p.Time.Seconds() }

// Rate returns the packet sample rate in samples per second.
func (p *Packet) Rate() float64 { return float64(p.SampleRate) }

// SamplesPerChannel returns the number of time steps in the packet.
func (p *Packet) SamplesPerChannel() int { return len(p.Samples) }

// Duration returns the time spanned by the packet's samples in seconds.
func (p *Packet) Duration() float64 {
	return float64(len(p.Samples)) / p.Rate()
}

// Channel returns a copy of the samples of channel c.
func (p *Packet) Channel(c int) []float64 {
	out := make([]float64, len(p.Samples))
	for t, row := range p.Samples {
		out[t] = row[c]
	}
	return out
}

// Select replaces the packet's channels with the ordered subset named by
// mask. Channels may be repeated. Every index must name an existing channel.
func (p *Packet) Select(mask []int) error {
	nc := int(p.Channels)
	if len(mask) == 0 || len(mask) > math.MaxUint8 {
		return fmt.Errorf("%w: %d entries", ErrBadMask, len(mask))
	}
	for _, c := range mask {
		if c < 0 || c >= nc {
			return fmt.Errorf("%w: channel %d of %d", ErrBadMask, c, nc)
		}
	}
	flat := make([]float64, len(p.Samples)*len(mask))
	for t, row := range p.Samples {
		sel := flat[t*len(mask) : (t+1)*len(mask) : (t+1)*len(mask)]
		for i, c := range mask {
			sel[i] = row[c]
		}
		p.Samples[t] = sel
	}
	p.Channels = uint8(len(mask))
	return nil
}

// Bytes returns the wire representation of the packet. The channel count is
// taken from the header and every row of Samples must be that wide.
func (p *Packet) Bytes() ([]byte, error) {
	enc := p.Encoding()
	if enc == S24 {
		return nil, ErrUnsupportedEncoding
	}
	nc := int(p.Channels)
	w := enc.Width()
	b := make([]byte, HeaderSize+len(p.Samples)*nc*w)
	p.Header.Put(b)
	off := HeaderSize
	for t, row := range p.Samples {
		if len(row) != nc {
			return nil, fmt.Errorf("row %d has %d channels, header has %d", t, len(row), nc)
		}
		for _, v := range row {
			switch enc {
			case S16:
				binary.LittleEndian.PutUint16(b[off:], uint16(int16(v)))
			case S32:
				binary.LittleEndian.PutUint32(b[off:], uint32(int32(v)))
			case F32:
				binary.LittleEndian.PutUint32(b[off:], math.Float32bits(float32(v)))
			}
			off += w
		}
	}
	return b, nil
}
