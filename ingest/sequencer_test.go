/*
DESCRIPTION
  sequencer_test.go provides testing of the packet Sequencer.

AUTHORS
  Trek Hopton <trek@ausocean.org>

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
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ausocean/hydrophone/device"
	"github.com/ausocean/hydrophone/ingest/config"
	"github.com/ausocean/hydrophone/metrics"
	"github.com/ausocean/hydrophone/protocol/acoustic"
	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/hydrophone/protocol/tick"
	"github.com/ausocean/utils/logging"
)

// Synthetic stream parameters: 10 samples per packet at 1 kHz, so each packet
// spans 10 ms, or 625 ticks.
const (
	testRate    = 1000
	testSPC     = 10
	testStep    = 625
	testStart   = tick.Ticks(1725898437 * 62500)
	testPackets = 100
)

// blockSource is a device.Source yielding a fixed list of blocks.
type blockSource struct {
	blocks [][]byte
	err    error // Returned once the blocks are exhausted; io.EOF if nil.
	closed bool
}

func (s *blockSource) Name() string { return "Blocks" }

func (s *blockSource) Next(ctx context.Context) ([]byte, error) {
	if len(s.blocks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	b := s.blocks[0]
	s.blocks = s.blocks[1:]
	return b, nil
}

func (s *blockSource) Close() error {
	s.closed = true
	return nil
}

var _ device.Source = (*blockSource)(nil)

// packet returns an int16 packet with nc channels where sample [t][c] has
// the value t*nc+c.
func packet(t *testing.T, seq uint16, ts tick.Ticks, nc int) []byte {
	t.Helper()
	p := &acoustic.Packet{
		Header: acoustic.Header{
			Magic:      acoustic.Magic,
			Channels:   uint8(nc),
			Seq:        seq,
			SampleRate: testRate,
			Time:       ts,
		},
		Samples: make([][]float64, testSPC),
	}
	for i := range p.Samples {
		p.Samples[i] = make([]float64, nc)
		for c := range p.Samples[i] {
			p.Samples[i][c] = float64(i*nc + c)
		}
	}
	b, err := p.Bytes()
	if err != nil {
		t.Fatalf("could not encode packet: %v", err)
	}
	return b
}

// stream returns testPackets sequential single channel packets, less those
// whose index is in drop.
func stream(t *testing.T, drop ...int) [][]byte {
	t.Helper()
	var blocks [][]byte
next:
	for i := 0; i < testPackets; i++ {
		for _, d := range drop {
			if i == d {
				continue next
			}
		}
		blocks = append(blocks, packet(t, uint16(i), testStart.Add(uint64(i+1)*testStep), 1))
	}
	return blocks
}

func drain(t *testing.T, s *Sequencer) ([]*acoustic.Packet, error) {
	t.Helper()
	var got []*acoustic.Packet
	for {
		p, err := s.Next(context.Background())
		if err != nil {
			return got, err
		}
		got = append(got, p)
	}
}

func TestSeqGap(t *testing.T) {
	tests := []struct {
		prev, cur, want uint16
	}{
		{prev: 65535, cur: 0, want: 0},
		{prev: 10, cur: 15, want: 4},
		{prev: 10, cur: 11, want: 0},
		{prev: 65534, cur: 1, want: 2},
		{prev: 7, cur: 7, want: 65535},
	}
	for _, test := range tests {
		got := SeqGap(test.prev, test.cur)
		if got != test.want {
			t.Errorf("SeqGap(%d, %d): got %d, want %d", test.prev, test.cur, got, test.want)
		}
	}
}

func TestEndToEnd(t *testing.T) {
	var events []LossEvent
	src := &blockSource{blocks: stream(t)}
	s := New((*logging.TestLogger)(t), src, OnLoss(func(ev LossEvent) { events = append(events, ev) }))

	got, err := drain(t, s)
	if err != io.EOF {
		t.Fatalf("expected io.EOF at end of input, got %v", err)
	}
	if len(got) != testPackets {
		t.Fatalf("got %d packets, want %d", len(got), testPackets)
	}
	for i, p := range got {
		if p.Seq != uint16(i) {
			t.Fatalf("packet %d has seq %d", i, p.Seq)
		}
	}
	if len(events) != 0 {
		t.Errorf("unexpected loss events: %+v", events)
	}

	sum := s.Summary()
	want := Summary{
		Channels:         1,
		Rate:             testRate,
		Packets:          testPackets,
		SampleSeconds:    1,
		TimestampSeconds: 1,
		FirstTimestamp:   testStart.Seconds(),
		FinalTimestamp:   testStart.Add(testPackets * testStep).Seconds(),
	}
	if !cmp.Equal(sum, want, cmpopts.EquateApprox(1e-12, 1e-9)) {
		t.Errorf("unexpected summary\n%s", cmp.Diff(want, sum))
	}

	_, err = s.Next(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted after end, got %v", err)
	}
}

func TestLoss(t *testing.T) {
	var events []LossEvent
	src := &blockSource{blocks: stream(t, 50)}
	s := New((*logging.TestLogger)(t), src, OnLoss(func(ev LossEvent) { events = append(events, ev) }))

	got, err := drain(t, s)
	if err != io.EOF {
		t.Fatalf("expected io.EOF at end of input, got %v", err)
	}
	if len(got) != testPackets-1 {
		t.Errorf("got %d packets, want %d", len(got), testPackets-1)
	}

	want := []LossEvent{{Expected: 50, Got: 51, Missing: 1, Duration: 0.01}}
	if !cmp.Equal(events, want, cmpopts.EquateApprox(0, 1e-12)) {
		t.Errorf("unexpected loss events\n%s", cmp.Diff(want, events))
	}

	sum := s.Summary()
	if sum.LossEvents != 1 || sum.PacketsMissing != 1 {
		t.Errorf("got %d loss events and %d missing, want 1 and 1", sum.LossEvents, sum.PacketsMissing)
	}
	// One packet of samples is missing, but the timestamps still span the
	// whole second.
	if math.Abs(sum.SampleSeconds-0.99) > 1e-9 || math.Abs(sum.TimestampSeconds-1) > 1e-9 {
		t.Errorf("got %v s by samples and %v s by timestamps, want 0.99 and 1", sum.SampleSeconds, sum.TimestampSeconds)
	}
}

func TestSeqWrap(t *testing.T) {
	var blocks [][]byte
	for i, seq := range []uint16{65534, 65535, 0, 1} {
		blocks = append(blocks, packet(t, seq, testStart.Add(uint64(i)*testStep), 1))
	}
	var events []LossEvent
	s := New((*logging.TestLogger)(t), &blockSource{blocks: blocks}, OnLoss(func(ev LossEvent) { events = append(events, ev) }))
	got, err := drain(t, s)
	if err != io.EOF || len(got) != 4 {
		t.Fatalf("got %d packets and %v, want 4 and io.EOF", len(got), err)
	}
	if len(events) != 0 {
		t.Errorf("unexpected loss events across wrap: %+v", events)
	}
}

func TestSkip(t *testing.T) {
	good := stream(t)[:3]
	badMagic := append([]byte(nil), good[1]...)
	badMagic[0] = 0x44
	blocks := [][]byte{
		good[0],
		{0x45, 1, 2},             // Too short.
		badMagic,                 // Wrong magic.
		good[1][:len(good[1])-1], // Length mismatch.
		good[1],
		make([]byte, acoustic.HeaderSize), // Zero magic.
		good[2],
	}

	m := metrics.New()
	s := New((*logging.TestLogger)(t), &blockSource{blocks: blocks}, WithMetrics(m))
	got, err := drain(t, s)
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d packets, want 3", len(got))
	}
	sum := s.Summary()
	if sum.Skipped != 4 || sum.LossEvents != 0 {
		t.Errorf("got %d skipped and %d loss events, want 4 and 0", sum.Skipped, sum.LossEvents)
	}
	if n := testutil.ToFloat64(m.PacketsSkipped); n != 4 {
		t.Errorf("got %v skipped in metrics, want 4", n)
	}
	if n := testutil.ToFloat64(m.PacketsDecoded); n != 3 {
		t.Errorf("got %v decoded in metrics, want 3", n)
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	b := make([]byte, acoustic.HeaderSize+3)
	acoustic.Header{
		Magic:      acoustic.Magic,
		Channels:   1,
		SampleRate: testRate,
		Flags:      uint16(acoustic.S24),
	}.Put(b)

	m := metrics.New()
	s := New((*logging.TestLogger)(t), &blockSource{blocks: [][]byte{stream(t)[0], b}}, WithMetrics(m))
	_, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error for first packet: %v", err)
	}
	_, err = s.Next(context.Background())
	if !errors.Is(err, acoustic.ErrUnsupportedEncoding) {
		t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
	}
	if n := testutil.ToFloat64(m.Fatal.WithLabelValues("encoding")); n != 1 {
		t.Errorf("got %v encoding failures in metrics, want 1", n)
	}
	_, err = s.Next(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted after fatal error, got %v", err)
	}
}

func TestSourceError(t *testing.T) {
	src := &blockSource{blocks: stream(t)[:1], err: frame.ErrTruncated}
	s := New((*logging.TestLogger)(t), src)
	_, err := drain(t, s)
	if !errors.Is(err, frame.ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
	if err == io.EOF || kind(err) != "truncated" {
		t.Errorf("truncation must be distinguishable from end of input, got kind %q", kind(err))
	}
}

func TestMask(t *testing.T) {
	blocks := [][]byte{packet(t, 0, testStart, 4)}
	s := New((*logging.TestLogger)(t), &blockSource{blocks: blocks}, WithMask([]int{3, 1}))
	p, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Channels != 2 {
		t.Errorf("got %d channels, want 2", p.Channels)
	}
	for i, row := range p.Samples {
		want := []float64{float64(i*4 + 3), float64(i*4 + 1)}
		if !cmp.Equal(row, want) {
			t.Errorf("row %d: got %v, want %v", i, row, want)
		}
	}
	// Bookkeeping uses the packet as received.
	if s.Summary().Channels != 4 {
		t.Errorf("got %d channels in summary, want 4", s.Summary().Channels)
	}

	s = New((*logging.TestLogger)(t), &blockSource{blocks: [][]byte{packet(t, 0, testStart, 4)}}, WithMask([]int{4}))
	_, err = s.Next(context.Background())
	if !errors.Is(err, acoustic.ErrBadMask) {
		t.Errorf("expected ErrBadMask, got %v", err)
	}
}

func TestClose(t *testing.T) {
	src := &blockSource{blocks: stream(t)}
	s := New((*logging.TestLogger)(t), src)
	err := s.Close()
	if err != nil || !src.closed {
		t.Fatalf("expected source to be closed, got %v", err)
	}
	_, err = s.Next(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted after close, got %v", err)
	}
}

func TestNewSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range stream(t)[:5] {
		err = frame.Write(f, testStart.Add(uint64(i)*testStep), b)
		if err != nil {
			t.Fatalf("could not write frame: %v", err)
		}
	}
	f.Close()

	c := &config.Config{Logger: (*logging.TestLogger)(t), PhoneMask: []int{0, 0}}
	c.Update(config.InputVars(path))
	err = c.Validate()
	if err != nil {
		t.Fatal(err)
	}
	s, err := Open(context.Background(), c)
	if err != nil {
		t.Fatalf("could not open sequencer: %v", err)
	}
	defer s.Close()
	got, err := drain(t, s)
	if err != io.EOF || len(got) != 5 {
		t.Fatalf("got %d packets and %v, want 5 and io.EOF", len(got), err)
	}
	if got[0].Channels != 2 {
		t.Errorf("got %d channels after mask, want 2", got[0].Channels)
	}
}

func TestNewSourceBadConfig(t *testing.T) {
	tests := []struct {
		name string
		c    config.Config
		want []error
	}{
		{
			name: "no address",
			c:    config.Config{Input: config.InputTCP},
			want: []error{errNoAddress},
		},
		{
			name: "unknown input",
			c:    config.Config{Input: config.NothingDefined, PhoneMask: []int{-1}},
			want: []error{errUnknownInput, errBadMaskIndex},
		},
		{
			name: "shm",
			c:    config.Config{Input: config.InputSHM},
			want: []error{errNoSHMName},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.c.Logger = (*logging.TestLogger)(t)
			_, err := NewSource(context.Background(), &test.c)
			var me device.MultiError
			if !errors.As(err, &me) {
				t.Fatalf("expected device.MultiError, got %v", err)
			}
			for _, w := range test.want {
				if !errors.Is(err, w) {
					t.Errorf("expected error to include %v, got %v", w, err)
				}
			}
		})
	}
}

func TestFinished(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: true},
		{err: io.EOF, want: true},
		{err: fmt.Errorf("File: %w", context.Canceled), want: true},
		{err: fmt.Errorf("File: %w", context.DeadlineExceeded), want: false},
		{err: fmt.Errorf("File: %w", frame.ErrTruncated), want: false},
		{err: ErrExhausted, want: false},
	}
	for _, test := range tests {
		if got := Finished(test.err); got != test.want {
			t.Errorf("Finished(%v): got %v, want %v", test.err, got, test.want)
		}
	}
}

func TestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq := New((*logging.TestLogger)(t), &blockSource{err: context.Canceled})
	_, err := seq.Next(ctx)
	if !errors.Is(err, context.Canceled) || !Finished(err) {
		t.Errorf("expected orderly cancellation, got %v", err)
	}
}
