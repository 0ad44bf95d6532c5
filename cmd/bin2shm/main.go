/*
DESCRIPTION
  bin2shm reads a log stream on stdin and publishes each frame into the
  shared-memory ring buffer, standing in for the serial decoder when
  replaying recordings.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// bin2shm publishes a log stream into shared memory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
	"unicode"

	"github.com/coreos/go-systemd/daemon"

	"github.com/ausocean/hydrophone/device/shm"
	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/utils/logging"
)

// Time for readers started alongside us to attach before the first frame.
const startDelay = 200 * time.Millisecond

func main() {
	var (
		name     = flag.String("name", shm.DefaultName, "shared memory region name")
		dir      = flag.String("dir", shm.DefaultDir, "directory holding shared-memory regions")
		capacity = flag.Int("capacity", shm.DefaultCapacity, "ring capacity in bytes")
	)
	flag.Parse()

	log := logging.New(logging.Info, os.Stderr, true)

	w, err := shm.Create(*name, *capacity, shm.DefaultMaxPacket, shm.Dir(*dir))
	if err != nil {
		log.Fatal("could not create shared memory region", "error", err.Error())
	}
	time.Sleep(startDelay)

	ok, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warning("could not notify service manager", "error", err.Error())
	} else if ok {
		log.Debug("notified service manager")
	}

	n, err := publish(log, bufio.NewReader(os.Stdin), w)
	log.Info("exiting", "frames", n)
	cerr := w.Close()
	if err != nil {
		log.Error("could not publish log stream", "error", err.Error())
		os.Exit(1)
	}
	if cerr != nil {
		log.Error("could not close shared memory region", "error", cerr.Error())
		os.Exit(1)
	}
}

// publish writes each frame of r into a slot of w, envelope included and
// padding excluded, returning the number of frames written. All-zero headers
// are skipped.
func publish(l logging.Logger, r io.Reader, w *shm.Writer) (int, error) {
	fr := frame.NewReader(r)
	var n int
	for {
		h, p, err := fr.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if h.Zero() {
			continue
		}

		slot := w.Acquire()
		if frame.HeaderSize+len(p) > len(slot) {
			return n, fmt.Errorf("frame of %d bytes exceeds slot of %d", len(p), len(slot)-frame.HeaderSize)
		}
		h.Put(slot)
		copy(slot[frame.HeaderSize:], p)
		err = w.Send(frame.HeaderSize + len(p))
		if err != nil {
			return n, err
		}
		n++

		if text, ok := textPacket(p); ok && text != "" {
			l.Info("text packet", "text", text)
		}
	}
}

// textPacket reports whether p holds a printable text line, and returns the
// line without its terminator.
func textPacket(p []byte) (string, bool) {
	for i, b := range p {
		if b == '\r' || b == '\n' {
			return string(p[:i]), true
		}
		if b > unicode.MaxASCII || !unicode.IsPrint(rune(b)) {
			return "", false
		}
	}
	return string(p), true
}
