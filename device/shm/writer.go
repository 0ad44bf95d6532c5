/*
DESCRIPTION
  writer.go provides Writer, the producer side of a shared-memory ring
  buffer.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package shm

import (
	"errors"
	"fmt"
	"os"
)

var (
	errCapacity  = errors.New("capacity must be a power of two of at least 16 bytes")
	errMaxPacket = errors.New("max packet size must be positive and no larger than capacity")
	errTooLarge  = errors.New("payload larger than max packet size")
	errClosed    = errors.New("writer is closed")
)

// Writer writes slots into a ring buffer region. There must be only one
// Writer per region and a Writer is not safe for concurrent use.
type Writer struct {
	reg       *region
	maxPacket int
	cursor    uint64
	unmap     func([]byte) error
}

// Create creates the region called name, replacing any existing region of
// that name, sized for a ring of capacity bytes holding packets of up to
// maxPacket bytes. maxPacket is rounded up to a multiple of 16.
func Create(name string, capacity, maxPacket int, opts ...Option) (*Writer, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	maxSlot, err := checkSize(capacity, maxPacket)
	if err != nil {
		return nil, err
	}
	mem, err := createRegion(s.path(name), regionSize(uint64(capacity), maxSlot))
	if err != nil {
		return nil, err
	}
	w, err := newWriter(mem, uint64(capacity), maxSlot, int64(os.Getpid()), unmapRegion)
	if err != nil {
		unmapRegion(mem)
		return nil, err
	}
	return w, nil
}

func checkSize(capacity, maxPacket int) (uint64, error) {
	if capacity < align || capacity&(capacity-1) != 0 {
		return 0, fmt.Errorf("%w: %d", errCapacity, capacity)
	}
	maxSlot := slotLen(uint64(maxPacket))
	if maxPacket <= 0 || maxSlot > uint64(capacity) {
		return 0, fmt.Errorf("%w: %d", errMaxPacket, maxPacket)
	}
	return maxSlot, nil
}

// newWriter initialises the header of mem. The producer pid is stored last
// so that readers never see a partially initialised header.
func newWriter(mem []byte, capacity, maxSlot uint64, pid int64, unmap func([]byte) error) (*Writer, error) {
	if len(mem) < regionSize(capacity, maxSlot) {
		return nil, fmt.Errorf("%w: %d bytes is too small", ErrLayout, len(mem))
	}
	*word(mem, offCapacity) = capacity
	*word(mem, offMaxSlot) = maxSlot
	reg, err := newRegion(mem)
	if err != nil {
		return nil, err
	}
	reg.setWriter(0)
	reg.setPID(pid)
	return &Writer{reg: reg, maxPacket: int(maxSlot - slotHeader), unmap: unmap}, nil
}

// MaxPacket returns the largest payload that may be sent.
func (w *Writer) MaxPacket() int { return w.maxPacket }

// Acquire returns the payload area of the next slot. The caller fills some
// prefix of it and then calls Send with the number of bytes used.
func (w *Writer) Acquire() []byte {
	start := w.reg.slot(w.cursor) + slotHeader
	return w.reg.mem[start : start+w.maxPacket : start+w.maxPacket]
}

// Send publishes the first n bytes of the area returned by Acquire.
func (w *Writer) Send(n int) error {
	if w.reg == nil {
		return errClosed
	}
	if n < 0 || n > w.maxPacket {
		return fmt.Errorf("%w: %d bytes", errTooLarge, n)
	}
	w.reg.setSize(w.reg.slot(w.cursor), uint64(n))
	w.cursor += slotLen(uint64(n))
	w.reg.setWriter(w.cursor)
	return nil
}

// Write implements io.Writer; each call publishes p as one slot.
func (w *Writer) Write(p []byte) (int, error) {
	if w.reg == nil {
		return 0, errClosed
	}
	if len(p) > w.maxPacket {
		return 0, fmt.Errorf("%w: %d bytes", errTooLarge, len(p))
	}
	n := copy(w.Acquire(), p)
	return n, w.Send(n)
}

// Close marks the region as abandoned and unmaps it. The region itself is
// left in place for readers to notice the producer has gone.
func (w *Writer) Close() error {
	if w.reg == nil {
		return errClosed
	}
	w.reg.setPID(0)
	err := w.unmap(w.reg.mem)
	w.reg = nil
	return err
}
