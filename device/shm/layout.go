/*
DESCRIPTION
  layout.go describes the memory layout of a shared-memory ring buffer region
  and provides bounds-checked, atomic access to its fields.

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

package shm

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Region layout. All fields are 64-bit in native byte order.
//
//	offset  0: capacity       logical ring size; slot positions wrap modulo this.
//	offset  8: max slot size  largest padded slot the producer may write.
//	offset 16: writer cursor  monotonic byte count, stored atomically.
//	offset 24: producer pid   stored last at initialisation, zeroed on close.
//	offset 32: data           capacity + max slot size bytes of slots.
//
// Each slot is a 64-bit payload size padded to 16 bytes, then the payload
// padded to 16 bytes.
const (
	offCapacity = 0
	offMaxSlot  = 8
	offWriter   = 16
	offPID      = 24
	headerSize  = 32

	align      = 16
	dataOffset = (headerSize + align - 1) &^ (align - 1)
	slotHeader = (8 + align - 1) &^ (align - 1)
)

var (
	// ErrNoProducer is returned when a region does not exist, is not yet
	// initialised or was abandoned by its producer. It is not fatal; the
	// caller may retry later.
	ErrNoProducer = errors.New("producer is not running")

	// ErrLapped is returned when the producer has overwritten, or may be
	// overwriting, data the reader has not finished with.
	ErrLapped = errors.New("reader lapped by producer")

	// ErrLayout is returned when a region's header or a slot describes
	// offsets outside the mapped memory.
	ErrLayout = errors.New("malformed ring buffer layout")
)

// slotLen returns the space occupied by a slot holding n payload bytes.
func slotLen(n uint64) uint64 { return (slotHeader + n + align - 1) &^ (align - 1) }

// region is a view over a mapped ring buffer. The mapping must be at least
// 8-byte aligned, which page aligned mappings are.
type region struct {
	mem      []byte
	capacity uint64
	maxSlot  uint64
}

func word(mem []byte, off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&mem[off]))
}

// loadPID returns the producer pid recorded in mem. It must be called before
// any other field is trusted.
func loadPID(mem []byte) int64 {
	return int64(atomic.LoadUint64(word(mem, offPID)))
}

// newRegion validates the header of mem against its length.
func newRegion(mem []byte) (*region, error) {
	if len(mem) < dataOffset {
		return nil, fmt.Errorf("%w: %d byte region is shorter than header", ErrLayout, len(mem))
	}
	r := &region{
		mem:      mem,
		capacity: atomic.LoadUint64(word(mem, offCapacity)),
		maxSlot:  atomic.LoadUint64(word(mem, offMaxSlot)),
	}
	switch {
	case r.capacity == 0 || r.capacity%align != 0:
		return nil, fmt.Errorf("%w: capacity %d", ErrLayout, r.capacity)
	case r.maxSlot < slotHeader || r.maxSlot > r.capacity:
		return nil, fmt.Errorf("%w: max slot size %d for capacity %d", ErrLayout, r.maxSlot, r.capacity)
	case r.capacity > uint64(len(mem)-dataOffset) || r.maxSlot > uint64(len(mem)-dataOffset)-r.capacity:
		return nil, fmt.Errorf("%w: %d byte region cannot hold capacity %d and max slot size %d", ErrLayout, len(mem), r.capacity, r.maxSlot)
	}
	return r, nil
}

// writer returns the producer's cursor. On weakly ordered hardware the
// producer's slot writes are only guaranteed visible if it publishes the
// cursor with release semantics; overrun detection is best effort otherwise.
func (r *region) writer() uint64 { return atomic.LoadUint64(word(r.mem, offWriter)) }

func (r *region) setWriter(c uint64) { atomic.StoreUint64(word(r.mem, offWriter), c) }

func (r *region) pid() int64 { return loadPID(r.mem) }

func (r *region) setPID(pid int64) { atomic.StoreUint64(word(r.mem, offPID), uint64(pid)) }

// slot returns the offset of the slot at cursor c.
func (r *region) slot(c uint64) int {
	return dataOffset + int(c%r.capacity)
}

// size returns the payload size stored at slot offset off.
func (r *region) size(off int) uint64 { return atomic.LoadUint64(word(r.mem, off)) }

func (r *region) setSize(off int, n uint64) { atomic.StoreUint64(word(r.mem, off), n) }

// payload returns the n byte payload of the slot at offset off.
func (r *region) payload(off int, n uint64) ([]byte, error) {
	if n > r.maxSlot-slotHeader {
		return nil, fmt.Errorf("%w: slot size %d exceeds max slot size %d", ErrLayout, n, r.maxSlot)
	}
	start := off + slotHeader
	end := start + int(n)
	if end > len(r.mem) {
		return nil, fmt.Errorf("%w: slot [%d, %d) outside %d byte region", ErrLayout, start, end, len(r.mem))
	}
	return r.mem[start:end:end], nil
}

// regionSize returns the number of bytes needed for a region.
func regionSize(capacity, maxSlot uint64) int {
	return int(dataOffset + capacity + maxSlot)
}
