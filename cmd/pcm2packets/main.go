/*
DESCRIPTION
  pcm2packets reads raw interleaved pcm on stdin and writes a log stream of
  acoustic packets on stdout, each no larger than an ethernet frame, for
  replaying recordings through the rest of the toolchain.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// pcm2packets wraps raw pcm in acoustic packets.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/hydrophone/codec/pcm"
	"github.com/ausocean/hydrophone/protocol/acoustic"
	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/utils/logging"
)

// Defaults.
const (
	defaultRate     = 31250
	defaultChannels = 1
	defaultFormat   = "S16_LE"
	defaultStart    = 1725898437
)

func main() {
	var (
		rate     = flag.Float64("fs", defaultRate, "sample rate in Hz")
		channels = flag.Int("C", defaultChannels, "number of interleaved channels")
		format   = flag.String("format", defaultFormat, "sample format (S16_LE, S32_LE or F32_LE)")
		start    = flag.Float64("t0", defaultStart, "time of the first sample in seconds since the epoch")
		verbose  = flag.Bool("v", false, "log debug messages")
	)
	flag.Parse()

	level := logging.Info
	if *verbose {
		level = logging.Debug
	}
	log := logging.New(level, os.Stderr, true)

	z, err := newPacketizer(*format, *channels, *rate, *start)
	if err != nil {
		log.Fatal("bad parameters", "error", err.Error())
	}

	w := bufio.NewWriter(os.Stdout)
	n, err := packetize(z, os.Stdin, w)
	if err == nil {
		err = w.Flush()
	}
	log.Debug("wrote packets", "packets", n)
	if err != nil {
		log.Error("could not packetize", "error", err.Error())
		os.Exit(1)
	}
}

func newPacketizer(format string, nc int, rate, start float64) (*acoustic.Packetizer, error) {
	sf, err := pcm.SFFromString(format)
	if err != nil {
		return nil, err
	}
	enc, err := sf.Encoding()
	if err != nil {
		return nil, err
	}
	return acoustic.NewPacketizer(enc, nc, rate, start)
}

// packetize writes a frame for each whole packet of samples read from r,
// returning the number written. A trailing partial packet is dropped.
func packetize(z *acoustic.Packetizer, r io.Reader, w io.Writer) (int, error) {
	data := make([]byte, z.DataSize())
	var n int
	for {
		_, err := io.ReadFull(r, data)
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("could not read samples: %w", err)
		}
		b, ts, err := z.Packet(data)
		if err != nil {
			return n, err
		}
		err = frame.Write(w, ts, b)
		if err != nil {
			return n, fmt.Errorf("could not write packet: %w", err)
		}
		n++
	}
}
