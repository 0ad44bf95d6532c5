/*
NAME
  frame.go

DESCRIPTION
  frame.go provides reading and writing of the hydrophone log-stream frame
  format, an 8-byte little-endian header followed by a payload padded to a
  multiple of 8 bytes.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame provides encoding and decoding of log-stream frames.
//
// A frame is laid out as:
//
//	u16 size | u16 ts_lsb | u32 ts_msb | payload[size] | zero padding
//
// with all integers little-endian and the payload padded to the next multiple
// of 8 bytes. Frames are concatenated back to back with no other delimiters.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ausocean/hydrophone/protocol/tick"
)

// HeaderSize is the size of a frame header in bytes.
const HeaderSize = 8

// MaxPayload is the largest payload a frame header can describe.
const MaxPayload = 1<<16 - 1

// Header field offsets.
const (
	idxSize = 0
	idxLSB  = 2
	idxMSB  = 4
)

var (
	// ErrTruncated is returned when input ends part way through a frame. It
	// wraps io.ErrUnexpectedEOF.
	ErrTruncated = fmt.Errorf("truncated frame: %w", io.ErrUnexpectedEOF)

	// ErrTooLarge is returned when a payload cannot be described by a header.
	ErrTooLarge = errors.New("payload too large for frame")

	errShortHeader = errors.New("buffer shorter than frame header")
)

// Header describes the payload of a frame.
type Header struct {
	Size uint16     // Unpadded payload length in bytes.
	Time tick.Ticks // Receipt time of the payload.
}

// Zero reports whether h is an all-zero header. Some log writers emit these
// as filler and they carry no payload.
func (h Header) Zero() bool { return h.Size == 0 && h.Time == 0 }

// ParseHeader parses a frame header from the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errShortHeader
	}
	return Header{
		Size: binary.LittleEndian.Uint16(b[idxSize:]),
		Time: tick.FromParts(
			binary.LittleEndian.Uint16(b[idxLSB:]),
			binary.LittleEndian.Uint32(b[idxMSB:]),
		),
	}, nil
}

// Put writes h into the first HeaderSize bytes of b.
func (h Header) Put(b []byte) {
	lsb, msb := h.Time.Parts()
	binary.LittleEndian.PutUint16(b[idxSize:], h.Size)
	binary.LittleEndian.PutUint16(b[idxLSB:], lsb)
	binary.LittleEndian.PutUint32(b[idxMSB:], msb)
}

// Bytes returns the wire representation of h.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	h.Put(b)
	return b
}

// PaddedLen returns n rounded up to the next multiple of 8.
func PaddedLen(n int) int { return (n + 7) &^ 7 }

// Bytes returns a complete frame holding payload stamped with t, including
// zero padding.
func Bytes(t tick.Ticks, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrTooLarge
	}
	b := make([]byte, HeaderSize+PaddedLen(len(payload)))
	Header{Size: uint16(len(payload)), Time: t}.Put(b)
	copy(b[HeaderSize:], payload)
	return b, nil
}

// Write writes a complete frame holding payload stamped with t to w.
func Write(w io.Writer, t tick.Ticks, payload []byte) error {
	b, err := Bytes(t, payload)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Strip removes the frame envelope from b, which must hold a header followed
// by at least the number of payload bytes the header declares. Padding is not
// required.
func Strip(b []byte) (Header, []byte, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	if HeaderSize+int(h.Size) > len(b) {
		return h, nil, fmt.Errorf("declared size %d exceeds %d available bytes: %w", h.Size, len(b)-HeaderSize, ErrTruncated)
	}
	return h, b[HeaderSize : HeaderSize+int(h.Size)], nil
}

// Reader reads consecutive frames from an underlying io.Reader.
type Reader struct {
	r   io.Reader
	hdr [HeaderSize]byte
	buf []byte
}

// NewReader returns a new Reader reading from r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Next reads the next frame. It returns io.EOF if the input ended cleanly
// between frames and an error wrapping ErrTruncated if it ended part way
// through a header or payload. The padding is consumed but not returned. The
// returned payload is only valid until the next call to Next.
func (r *Reader) Next() (Header, []byte, error) {
	n, err := io.ReadFull(r.r, r.hdr[:])
	switch {
	case n == 0 && errors.Is(err, io.EOF):
		return Header{}, nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Header{}, nil, fmt.Errorf("header cut short after %d bytes: %w", n, ErrTruncated)
	case err != nil:
		return Header{}, nil, err
	}

	h, _ := ParseHeader(r.hdr[:])
	padded := PaddedLen(int(h.Size))
	if cap(r.buf) < padded {
		r.buf = make([]byte, padded)
	}
	r.buf = r.buf[:padded]

	n, err = io.ReadFull(r.r, r.buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return h, nil, fmt.Errorf("payload cut short after %d of %d bytes: %w", n, padded, ErrTruncated)
	case err != nil:
		return h, nil, err
	}
	return h, r.buf[:h.Size], nil
}
