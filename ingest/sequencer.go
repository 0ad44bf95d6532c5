/*
DESCRIPTION
  sequencer.go provides Sequencer, which decodes acoustic packets from a
  Source and keeps track of sequence continuity and elapsed time.

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

// Package ingest provides the packet sequencer that turns blocks from a
// transport into a checked sequence of decoded acoustic packets.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ausocean/hydrophone/device"
	"github.com/ausocean/hydrophone/device/shm"
	"github.com/ausocean/hydrophone/metrics"
	"github.com/ausocean/hydrophone/protocol/acoustic"
	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/hydrophone/protocol/tick"
	"github.com/ausocean/utils/logging"
)

// ErrExhausted is returned by Next once the sequence has ended, either at the
// end of input or because of a fatal error.
var ErrExhausted = errors.New("packet sequence exhausted")

// LossEvent describes a gap in sequence numbers.
type LossEvent struct {
	Expected uint16  // Sequence number that should have followed the previous packet.
	Got      uint16  // Sequence number actually received.
	Missing  uint16  // Number of packets missing.
	Duration float64 // Implied duration of the missing packets in seconds.
}

// Summary holds the totals for a session.
type Summary struct {
	Channels int
	Rate     float64 // Sample rate of the first packet.

	Packets        int // Packets yielded.
	Skipped        int // Blocks that did not decode as packets.
	LossEvents     int
	PacketsMissing int

	// SampleSeconds is the time yielded according to the sample count and
	// the session sample rate. TimestampSeconds is the time yielded according
	// to packet timestamps. These diverge under clock drift or packet loss.
	SampleSeconds    float64
	TimestampSeconds float64

	FirstTimestamp float64 // Implied start of the first packet in seconds.
	FinalTimestamp float64 // Timestamp of the final packet in seconds.
}

// SeqGap returns the number of packets missing between sequence numbers prev
// and cur. Sequence numbers wrap, so 65535 followed by 0 is not a gap.
func SeqGap(prev, cur uint16) uint16 { return cur - prev - 1 }

// Option is a functional option for a Sequencer.
type Option func(*Sequencer)

// WithMask selects an ordered subset of channels from every packet. Indices
// are checked against each packet's channel count.
func WithMask(mask []int) Option {
	return func(s *Sequencer) { s.mask = mask }
}

// WithMetrics records the session to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sequencer) { s.m = m }
}

// OnLoss calls f for every loss event, in addition to logging it.
func OnLoss(f func(LossEvent)) Option {
	return func(s *Sequencer) { s.onLoss = f }
}

// Sequencer yields decoded packets from a Source. It is single pass and
// cannot be restarted.
type Sequencer struct {
	src    device.Source
	log    logging.Logger
	mask   []int
	m      *metrics.Metrics
	onLoss func(LossEvent)

	started bool
	done    bool
	prev    uint16
	first   tick.Ticks // Timestamp of the first packet.
	lead    float64    // Duration of the first packet.
	samples uint64     // Samples per channel yielded.

	sum Summary
}

// New returns a Sequencer reading from src.
func New(l logging.Logger, src device.Source, opts ...Option) *Sequencer {
	s := &Sequencer{src: src, log: l}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Next returns the next decoded packet. Blocks that are not valid packets are
// skipped. At the end of input Next returns io.EOF, and the session summary
// is logged. Fatal errors from the Source or the decoder are returned
// wrapped. After either, Next returns ErrExhausted.
func (s *Sequencer) Next(ctx context.Context) (*acoustic.Packet, error) {
	if s.done {
		return nil, ErrExhausted
	}
	for {
		b, err := s.src.Next(ctx)
		if err != nil {
			return nil, s.end(err)
		}

		p, err := acoustic.Decode(b)
		if errors.Is(err, acoustic.ErrInvalid) {
			s.sum.Skipped++
			s.m.Skipped()
			s.log.Debug("skipping block", "length", len(b), "error", err.Error())
			continue
		}
		if err != nil {
			return nil, s.end(err)
		}

		s.account(p)

		if len(s.mask) != 0 {
			err = p.Select(s.mask)
			if err != nil {
				return nil, s.end(err)
			}
		}
		return p, nil
	}
}

// account updates the session state for a decoded packet.
func (s *Sequencer) account(p *acoustic.Packet) {
	spc := p.SamplesPerChannel()
	if !s.started {
		s.started = true
		s.first = p.Time
		s.lead = p.Duration()
		s.sum.Channels = int(p.Channels)
		s.sum.Rate = p.Rate()
		s.sum.FirstTimestamp = p.Timestamp() - s.lead
		s.log.Info("first packet", "channels", p.Channels, "rate", p.Rate(), "samplesPerChannel", spc)
		s.log.Info("first packet timestamp", "timestamp", p.Time.String(), "start", tick.Format(s.sum.FirstTimestamp))
	} else if missing := SeqGap(s.prev, p.Seq); missing != 0 {
		ev := LossEvent{
			Expected: s.prev + 1,
			Got:      p.Seq,
			Missing:  missing,
			Duration: float64(missing) * p.Duration(),
		}
		s.sum.LossEvents++
		s.sum.PacketsMissing += int(missing)
		s.m.Loss(missing)
		s.log.Warning("packets missing", "expected", ev.Expected, "got", ev.Got, "missing", ev.Missing, "seconds", ev.Duration)
		if s.onLoss != nil {
			s.onLoss(ev)
		}
	}

	s.prev = p.Seq
	s.samples += uint64(spc)
	s.sum.Packets++
	s.sum.FinalTimestamp = p.Timestamp()
	s.sum.SampleSeconds = float64(s.samples) / s.sum.Rate
	s.sum.TimestampSeconds = (p.Time - s.first).Seconds() + s.lead // Seconds wraps the difference.
	s.m.Packet(p.Seq)
	s.m.Elapsed(s.sum.SampleSeconds, s.sum.TimestampSeconds)
}

// end marks the sequence as finished and logs the summary.
func (s *Sequencer) end(err error) error {
	s.done = true
	switch {
	case err == io.EOF:
		s.log.Info("incoming data has ended")
	case errors.Is(err, context.Canceled):
		s.m.Failed(kind(err))
		err = fmt.Errorf("%s: %w", s.src.Name(), err)
		s.log.Info("stopped reading packets")
	default:
		s.m.Failed(kind(err))
		err = fmt.Errorf("%s: %w", s.src.Name(), err)
		s.log.Error("packet sequence failed", "error", err.Error())
	}
	if s.started {
		s.log.Info("final packet", "timestamp", tick.Format(s.sum.FinalTimestamp))
		s.log.Info("session summary",
			"packets", s.sum.Packets,
			"skipped", s.sum.Skipped,
			"lossEvents", s.sum.LossEvents,
			"missing", s.sum.PacketsMissing,
			"sampleSeconds", s.sum.SampleSeconds,
			"timestampSeconds", s.sum.TimestampSeconds,
		)
	}
	return err
}

// Finished reports whether err, as returned by Next, marks an orderly end of
// a session, either the end of input or cancellation.
func Finished(err error) bool {
	return err == nil || err == io.EOF || errors.Is(err, context.Canceled)
}

// Summary returns the session totals so far.
func (s *Sequencer) Summary() Summary { return s.sum }

// Close closes the underlying Source.
func (s *Sequencer) Close() error {
	s.done = true
	return s.src.Close()
}

// kind classifies a fatal error for metrics.
func kind(err error) string {
	switch {
	case errors.Is(err, shm.ErrLapped):
		return "lapped"
	case errors.Is(err, shm.ErrLayout):
		return "layout"
	case errors.Is(err, frame.ErrTruncated), errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated"
	case errors.Is(err, acoustic.ErrUnsupportedEncoding):
		return "encoding"
	case errors.Is(err, acoustic.ErrBadMask):
		return "mask"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
