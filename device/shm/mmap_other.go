//go:build !linux

/*
DESCRIPTION
  mmap_other.go provides stubs for platforms without support for
  shared-memory regions.

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

import "errors"

var errUnsupported = errors.New("shared-memory regions are only supported on linux")

func mapRegion(path string) ([]byte, error) { return nil, errUnsupported }

func createRegion(path string, size int) ([]byte, error) { return nil, errUnsupported }

func unmapRegion(mem []byte) error { return errUnsupported }

func processAlive(pid int64) (bool, error) { return false, errUnsupported }
