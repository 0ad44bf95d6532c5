/*
DESCRIPTION
  reader.go provides Reader, a non-blocking reader of a shared-memory ring
  buffer populated by a single producer process.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package shm provides access to a shared-memory ring buffer written by a
// single producer and read by any number of independent readers.
//
// The producer never waits for readers. Each reader keeps its own cursor and
// detects, rather than prevents, being overtaken: a reader that falls more
// than the ring capacity behind gets ErrLapped and must stop.
package shm

import (
	"errors"
	"fmt"
)

// Reader reads slots from a ring buffer region. A Reader is not safe for
// concurrent use.
type Reader struct {
	reg    *region
	cursor uint64 // Position of the next slot to read.
	last   uint64 // Position of the most recently returned slot.
	alive  func(pid int64) (bool, error)
	unmap  func([]byte) error
}

// Open maps the region called name read only and returns a Reader positioned
// at the producer's current cursor, so that only slots written from now on
// are read. If the region does not exist, is not initialised, or its producer
// has exited, the returned error wraps ErrNoProducer.
func Open(name string, opts ...Option) (*Reader, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	mem, err := mapRegion(s.path(name))
	if err != nil {
		return nil, err
	}
	r, err := newReader(mem, s.alive, unmapRegion)
	if err != nil {
		unmapRegion(mem)
		return nil, err
	}
	return r, nil
}

// newReader attaches a Reader to mem. The producer pid is checked before any
// other header field, since it is the last field the producer initialises.
func newReader(mem []byte, alive func(int64) (bool, error), unmap func([]byte) error) (*Reader, error) {
	if len(mem) < headerSize {
		return nil, fmt.Errorf("%w: region is not initialised", ErrNoProducer)
	}
	pid := loadPID(mem)
	if pid == 0 {
		return nil, fmt.Errorf("%w: region is not initialised", ErrNoProducer)
	}
	ok, err := alive(pid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: producer %d has exited", ErrNoProducer, pid)
	}

	reg, err := newRegion(mem)
	if err != nil {
		return nil, err
	}
	c := reg.writer()
	return &Reader{reg: reg, cursor: c, last: c, alive: alive, unmap: unmap}, nil
}

// TryReceive returns the payload of the next slot, or nil if the reader has
// caught up with the producer. It never blocks. The returned slice aliases
// the shared region: it is only valid until the next call and its contents
// can be trusted only if HasKeptUp returns true after they have been used.
//
// If the producer may have overwritten the slot before its size was read,
// TryReceive returns ErrLapped and the Reader must not be used again.
func (r *Reader) TryReceive() ([]byte, error) {
	if r.reg.writer() == r.cursor {
		return nil, nil
	}

	off := r.reg.slot(r.cursor)
	n := r.reg.size(off)

	// Check the size was not being overwritten before using it.
	w := r.reg.writer()
	if w+r.reg.maxSlot-r.cursor > r.reg.capacity {
		return nil, fmt.Errorf("%w: writer at %d, reader at %d", ErrLapped, w, r.cursor)
	}

	p, err := r.reg.payload(off, n)
	if err != nil {
		return nil, err
	}
	r.last = r.cursor
	r.cursor += slotLen(n)
	return p, nil
}

// HasKeptUp reports whether the slot most recently returned by TryReceive
// could not have been overwritten yet, assuming the producer may be part way
// through writing a maximum size slot.
func (r *Reader) HasKeptUp() bool {
	return r.reg.writer()-r.last+r.reg.maxSlot <= r.reg.capacity
}

// Alive reports whether the producer is still running. A zeroed producer pid
// means the producer closed the region.
func (r *Reader) Alive() (bool, error) {
	pid := r.reg.pid()
	if pid == 0 {
		return false, nil
	}
	return r.alive(pid)
}

// Lag returns how many bytes the reader is behind the producer.
func (r *Reader) Lag() uint64 { return r.reg.writer() - r.cursor }

// Capacity returns the ring capacity of the region in bytes.
func (r *Reader) Capacity() uint64 { return r.reg.capacity }

// Close unmaps the region.
func (r *Reader) Close() error {
	if r.reg == nil {
		return errors.New("reader already closed")
	}
	err := r.unmap(r.reg.mem)
	r.reg = nil
	return err
}
