/*
DESCRIPTION
  options.go provides option functions that can be provided to Open, Create
  and NewStream to configure where regions live and how a Stream polls.

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

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
	"path/filepath"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultDir          = "/dev/shm"
	DefaultName         = "/cobs_to_shm"
	DefaultCapacity     = 4 << 20
	DefaultMaxPacket    = 65536
	DefaultInitialDelay = 20 * time.Millisecond
	DefaultMinDelay     = 50 * time.Millisecond
	DefaultMaxDelay     = time.Second
	DefaultRetry        = time.Second
)

var ErrInvalidDelay = errors.New("invalid poll delay")

type settings struct {
	dir                    string
	initial, minDelay, max time.Duration
	retry                  time.Duration
	watch                  bool
	alive                  func(pid int64) (bool, error)
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{
		dir:      DefaultDir,
		initial:  DefaultInitialDelay,
		minDelay: DefaultMinDelay,
		max:      DefaultMaxDelay,
		retry:    DefaultRetry,
		watch:    true,
		alive:    processAlive,
	}
	for _, o := range opts {
		err := o(s)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// path returns the file backing the region called name. Names follow
// shm_open convention and may carry a leading slash.
func (s *settings) path(name string) string {
	return filepath.Join(s.dir, strings.TrimPrefix(name, "/"))
}

// Option configures a Reader, Writer or Stream.
type Option func(*settings) error

// Dir is an option that sets the directory in which regions are found. The
// default is /dev/shm, where shm_open places them on Linux.
func Dir(dir string) Option {
	return func(s *settings) error {
		s.dir = dir
		return nil
	}
}

// Poll is an option that sets the initial poll delay of a Stream and the
// bounds the delay is kept within as it adapts to the packet rate.
func Poll(initial, min, max time.Duration) Option {
	return func(s *settings) error {
		if initial <= 0 || min <= 0 || max < min {
			return ErrInvalidDelay
		}
		s.initial, s.minDelay, s.max = initial, min, max
		return nil
	}
}

// Retry is an option that sets how often a Stream retries opening a region
// whose producer is not running.
func Retry(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return ErrInvalidDelay
		}
		s.retry = d
		return nil
	}
}

// Watch is an option that selects whether a Stream watches the region
// directory so it can open a region as soon as it is created, rather than on
// the next retry.
func Watch(on bool) Option {
	return func(s *settings) error {
		s.watch = on
		return nil
	}
}

// liveness replaces the producer liveness check; used in testing.
func liveness(f func(pid int64) (bool, error)) Option {
	return func(s *settings) error {
		s.alive = f
		return nil
	}
}
