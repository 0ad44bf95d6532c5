/*
DESCRIPTION
  mmap_linux.go provides mapping of shared-memory regions and producer
  liveness checks on Linux.

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
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// mapRegion maps the whole of the file at path read only. A missing file or
// one too short to hold a header is reported as ErrNoProducer, since the
// producer creates and sizes the file before initialising it.
func mapRegion(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNoProducer, err)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < headerSize {
		return nil, fmt.Errorf("%w: %s is not initialised", ErrNoProducer, path)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("could not map %s: %w", path, err)
	}
	return mem, nil
}

// createRegion replaces any file at path with a new zeroed file of size bytes
// and maps it read-write.
func createRegion(path string, size int) ([]byte, error) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not remove stale region: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	err = f.Truncate(int64(size))
	if err != nil {
		return nil, fmt.Errorf("could not size region: %w", err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("could not map %s: %w", path, err)
	}
	return mem, nil
}

func unmapRegion(mem []byte) error { return unix.Munmap(mem) }

// processAlive reports whether a process with the given pid exists. A
// process owned by another user is reported alive.
func processAlive(pid int64) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	err := unix.Kill(int(pid), 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	default:
		return false, fmt.Errorf("could not signal producer %d: %w", pid, err)
	}
}
