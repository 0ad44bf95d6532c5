/*
DESCRIPTION
  device.go provides Source, an interface that describes a transport from
  which discrete acoustic packet blocks may be obtained.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package device provides an interface and implementations for the
// transports from which acoustic packets can be obtained.
package device

import (
	"context"
	"fmt"
)

// Source describes a transport that yields one undecoded acoustic packet per
// call to Next. Implementations strip any transport framing so that the
// returned block begins with the acoustic packet header.
type Source interface {
	// Name returns the name of the Source.
	Name() string

	// Next blocks until the next packet is available and returns it. The
	// returned slice is only valid until the following call to Next. Next
	// returns io.EOF when the transport has ended cleanly; any other error
	// is fatal for the Source.
	Next(ctx context.Context) ([]byte, error)

	// Close releases the resources held by the Source.
	Close() error
}

// MultiError implements the built in error interface. MultiError is used to
// collect multiple errors during validation of configuration parameters for
// Sources.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("device: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}

// Unwrap allows errors.Is and errors.As to inspect the collected errors.
func (me MultiError) Unwrap() []error { return me }
