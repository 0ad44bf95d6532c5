/*
DESCRIPTION
  stream.go provides Stream, which turns the non-blocking Reader into a
  blocking sequence of payloads, waiting for a producer to start and polling
  at a rate adapted to the rate at which packets arrive.

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

package shm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/utils/logging"
)

// Weight given to each new estimate of the time between packets.
const adjustGain = 0.25

// Stream yields the payloads written to a region. A Stream is not safe for
// concurrent use.
type Stream struct {
	name string
	s    *settings
	log  logging.Logger
	r    *Reader

	delay   time.Duration // Current poll interval.
	waited  time.Duration // Time spent polling since the last payload.
	count   int           // Payloads received since the interval was last retuned.
	pending bool          // A payload has been returned and not yet checked.
}

// NewStream returns a Stream over the region called name. The region is not
// opened until the first call to Next.
func NewStream(l logging.Logger, name string, opts ...Option) (*Stream, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &Stream{name: name, s: s, log: l, delay: s.initial}, nil
}

// Next returns the next payload, blocking until one is available. It first
// waits, retrying periodically, for a producer to be running. Next returns
// io.EOF once the producer has exited and every payload it wrote has been
// read, and ErrLapped if the payload returned by the previous call may have
// been overwritten while it was in use. The returned slice aliases the shared
// region and is only valid until the next call.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	if s.r == nil {
		err := s.open(ctx)
		if err != nil {
			return nil, err
		}
	}

	if s.pending {
		s.pending = false
		if !s.r.HasKeptUp() {
			return nil, fmt.Errorf("%w while payload was in use", ErrLapped)
		}
	}

	for {
		p, err := s.r.TryReceive()
		if err != nil {
			return nil, err
		}
		if p != nil {
			s.retune()
			s.pending = true
			return p, nil
		}

		if s.waited > 0 {
			ok, err := s.r.Alive()
			if err != nil {
				return nil, err
			}
			if !ok {
				s.log.Info("producer has exited", "name", s.name)
				return nil, io.EOF
			}
		}

		t := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		s.waited += s.delay
	}
}

// retune moves the poll interval a fraction of the way towards the mean time
// between the payloads received since it was last retuned.
func (s *Stream) retune() {
	if s.waited > 0 && s.count > 0 {
		est := s.waited / time.Duration(s.count)
		s.delay += time.Duration(adjustGain * float64(est-s.delay))
		s.delay = min(max(s.delay, s.s.minDelay), s.s.max)
		s.count = 0
	}
	s.waited = 0
	s.count++
}

// Delay returns the current poll interval.
func (s *Stream) Delay() time.Duration { return s.delay }

// HasKeptUp reports whether the payload most recently returned by Next is
// still intact. Callers that copy a payload should check this after copying.
func (s *Stream) HasKeptUp() bool {
	if s.r == nil {
		return true
	}
	return s.r.HasKeptUp()
}

// open opens the region, retrying until a producer is running or ctx is
// done. When watching is enabled the directory is watched so that a newly
// created region is tried without waiting for the next retry.
func (s *Stream) open(ctx context.Context) error {
	var events <-chan fsnotify.Event
	if s.s.watch {
		w, err := fsnotify.NewWatcher()
		if err == nil {
			defer w.Close()
			err = w.Add(s.s.dir)
		}
		if err != nil {
			s.log.Debug("not watching for region creation", "error", err.Error())
		} else {
			events = w.Events
		}
	}

	path := s.s.path(s.name)
	for logged := false; ; logged = true {
		r, err := Open(s.name, s.optsFor()...)
		if err == nil {
			s.r = r
			s.log.Info("opened ring buffer", "name", s.name, "capacity", r.Capacity())
			return nil
		}
		if !errors.Is(err, ErrNoProducer) {
			return err
		}
		if !logged {
			s.log.Warning("producer is not running", "name", s.name, "error", err.Error())
		}

		t := time.NewTimer(s.s.retry)
	wait:
		for {
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
				break wait
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Clean(ev.Name) == path && ev.Op.Has(fsnotify.Write|fsnotify.Create) {
					t.Stop()
					break wait
				}
			}
		}
	}
}

// optsFor returns options reproducing the Stream's settings for Open.
func (s *Stream) optsFor() []Option {
	return []Option{Dir(s.s.dir), liveness(s.s.alive)}
}

// Close unmaps the region, if it was opened.
func (s *Stream) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil
	return err
}
