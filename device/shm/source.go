/*
DESCRIPTION
  source.go provides an implementation of the Source interface for acoustic
  packets carried in a shared-memory ring buffer.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package shm

import (
	"context"
	"fmt"

	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/utils/logging"
)

// Source yields acoustic packets from a region whose slots each hold one
// log-stream frame. The frame envelope is removed and the packet copied out
// of the region before being returned, so packets stay valid however far the
// producer gets ahead.
type Source struct {
	s   *Stream
	log logging.Logger
	buf []byte
}

// NewSource returns a Source reading the region called name.
func NewSource(l logging.Logger, name string, opts ...Option) (*Source, error) {
	s, err := NewStream(l, name, opts...)
	if err != nil {
		return nil, err
	}
	return &Source{s: s, log: l}, nil
}

// Name returns the name of the device.
func (src *Source) Name() string { return "SharedMemory" }

// Next returns the next packet. The returned slice is owned by the Source and
// is overwritten by the following call.
func (src *Source) Next(ctx context.Context) ([]byte, error) {
	p, err := src.s.Next(ctx)
	if err != nil {
		return nil, err
	}

	h, pkt, err := frame.Strip(p)
	if err != nil {
		// Pass the remainder on; the decoder rejects it if it is not a packet.
		src.log.Debug("slot frame does not match slot size", "error", err.Error())
		if len(p) >= frame.HeaderSize {
			pkt = p[frame.HeaderSize:]
		}
	}
	src.buf = append(src.buf[:0], pkt...)

	if !src.s.HasKeptUp() {
		return nil, fmt.Errorf("%w while copying packet stamped %v", ErrLapped, h.Time)
	}
	return src.buf, nil
}

// Close unmaps the region.
func (src *Source) Close() error { return src.s.Close() }
