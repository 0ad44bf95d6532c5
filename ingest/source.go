/*
DESCRIPTION
  source.go provides construction of the configured packet Source.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ausocean/hydrophone/device"
	"github.com/ausocean/hydrophone/device/file"
	"github.com/ausocean/hydrophone/device/shm"
	"github.com/ausocean/hydrophone/device/tcp"
	"github.com/ausocean/hydrophone/device/udp"
	"github.com/ausocean/hydrophone/ingest/config"
)

var (
	errNoPath       = errors.New("no input path")
	errNoAddress    = errors.New("no address")
	errNoSHMName    = errors.New("no shared memory name")
	errUnknownInput = errors.New("unknown input")
	errBadMaskIndex = errors.New("bad phone mask index")
)

// NewSource returns the Source selected by c.Input. c should have been
// validated. Problems with the configuration are returned together as a
// device.MultiError.
func NewSource(ctx context.Context, c *config.Config) (device.Source, error) {
	err := check(c)
	if err != nil {
		return nil, err
	}

	switch c.Input {
	case config.InputFile:
		f, err := file.New(c.Logger, c.InputPath, c.Loop)
		if err != nil {
			return nil, err
		}
		return f, nil
	case config.InputTCP:
		conn, err := tcp.Dial(ctx, c.Logger, c.Address)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case config.InputUDP:
		cl, err := udp.NewClient(c.Logger, c.Address, c.ReadTimeout, int(c.RecvBuffer))
		if err != nil {
			return nil, err
		}
		return cl, nil
	default:
		src, err := shm.NewSource(c.Logger, c.SHMName,
			shm.Dir(c.SHMDir),
			shm.Poll(c.PollInitial, c.PollMin, c.PollMax),
			shm.Retry(c.ProducerRetry),
		)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// Open returns a Sequencer over the Source selected by c, selecting the
// channels in c.PhoneMask. opts are applied after the mask.
func Open(ctx context.Context, c *config.Config, opts ...Option) (*Sequencer, error) {
	src, err := NewSource(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(c.PhoneMask) != 0 {
		opts = append([]Option{WithMask(c.PhoneMask)}, opts...)
	}
	return New(c.Logger, src, opts...), nil
}

func check(c *config.Config) error {
	var errs device.MultiError
	switch c.Input {
	case config.InputFile:
		if c.InputPath == "" {
			errs = append(errs, errNoPath)
		}
	case config.InputTCP, config.InputUDP:
		if c.Address == "" {
			errs = append(errs, errNoAddress)
		}
	case config.InputSHM:
		if c.SHMName == "" {
			errs = append(errs, errNoSHMName)
		}
		if c.PollMin <= 0 || c.PollMax < c.PollMin || c.PollInitial <= 0 {
			errs = append(errs, fmt.Errorf("%w: [%v, %v] starting at %v", shm.ErrInvalidDelay, c.PollMin, c.PollMax, c.PollInitial))
		}
		if c.ProducerRetry <= 0 {
			errs = append(errs, fmt.Errorf("%w: retry %v", shm.ErrInvalidDelay, c.ProducerRetry))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %d", errUnknownInput, c.Input))
	}
	for _, i := range c.PhoneMask {
		if i < 0 {
			errs = append(errs, fmt.Errorf("%w: channel %d", errBadMaskIndex, i))
		}
	}
	if len(errs) != 0 {
		return errs
	}
	return nil
}
