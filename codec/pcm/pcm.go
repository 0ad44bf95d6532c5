/*
NAME
  pcm.go

DESCRIPTION
  pcm.go contains functions for rendering acoustic packets as pcm.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pcm provides functions for rendering acoustic packets as raw,
// interleaved pcm audio.
package pcm

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/hydrophone/protocol/acoustic"
)

// SampleFormat is the format that a PCM Buffer's samples can be in.
type SampleFormat int

// Used to represent an unknown format.
const (
	Unknown SampleFormat = -1
)

// Sample formats that we use.
const (
	S16_LE SampleFormat = iota
	S32_LE
	F32_LE
	// There are many more:
	// https://linux.die.net/man/1/arecord
	// https://trac.ffmpeg.org/wiki/audio%20types
)

// BufferFormat contains the format for a PCM Buffer.
type BufferFormat struct {
	SFormat  SampleFormat
	Rate     float64
	Channels uint
}

// Buffer contains a buffer of PCM data and the format that it is in.
type Buffer struct {
	Format BufferFormat
	Data   []byte
}

// Width returns the size in bytes of one sample in format f.
func (f SampleFormat) Width() int {
	switch f {
	case S16_LE:
		return 2
	case S32_LE, F32_LE:
		return 4
	default:
		return 0
	}
}

// FormatFor returns the sample format matching a packet encoding.
func FormatFor(e acoustic.Encoding) (SampleFormat, error) {
	switch e {
	case acoustic.S16:
		return S16_LE, nil
	case acoustic.S32:
		return S32_LE, nil
	case acoustic.F32:
		return F32_LE, nil
	default:
		return Unknown, errors.Wrapf(acoustic.ErrUnsupportedEncoding, "no pcm format for %v", e)
	}
}

// Encoding returns the packet encoding matching sample format f.
func (f SampleFormat) Encoding() (acoustic.Encoding, error) {
	switch f {
	case S16_LE:
		return acoustic.S16, nil
	case S32_LE:
		return acoustic.S32, nil
	case F32_LE:
		return acoustic.F32, nil
	default:
		return 0, errors.Errorf("no packet encoding for %v", f)
	}
}

// FromPacket renders the samples of p as interleaved little-endian pcm in the
// packet's own encoding, so that samples are reproduced exactly.
func FromPacket(p *acoustic.Packet) (Buffer, error) {
	sf, err := FormatFor(p.Encoding())
	if err != nil {
		return Buffer{}, err
	}
	nc := int(p.Channels)
	w := sf.Width()
	b := Buffer{
		Format: BufferFormat{SFormat: sf, Rate: p.Rate(), Channels: uint(nc)},
		Data:   make([]byte, len(p.Samples)*nc*w),
	}
	off := 0
	for t, row := range p.Samples {
		if len(row) != nc {
			return Buffer{}, errors.Errorf("row %d has %d channels, packet has %d", t, len(row), nc)
		}
		for _, v := range row {
			put(b.Data[off:], sf, v)
			off += w
		}
	}
	return b, nil
}

func put(b []byte, sf SampleFormat, v float64) {
	switch sf {
	case S16_LE:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case S32_LE:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case F32_LE:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	}
}

// String returns the string representation of a SampleFormat.
func (f SampleFormat) String() string {
	switch f {
	case S16_LE:
		return "S16_LE"
	case S32_LE:
		return "S32_LE"
	case F32_LE:
		return "F32_LE"
	default:
		return "Unknown"
	}
}

// SFFromString takes a string representing a sample format and returns the corresponding SampleFormat.
func SFFromString(s string) (SampleFormat, error) {
	switch s {
	case "S16_LE":
		return S16_LE, nil
	case "S32_LE":
		return S32_LE, nil
	case "F32_LE":
		return F32_LE, nil
	default:
		return Unknown, errors.Errorf("unknown sample format (%s)", s)
	}
}
