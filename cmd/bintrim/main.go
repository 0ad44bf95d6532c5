/*
DESCRIPTION
  bintrim reads one or more concatenated log streams on stdin and writes the
  frames stamped within a given time range to stdout.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// bintrim extracts a time range from a log stream.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/hydrophone/protocol/tick"
	"github.com/ausocean/utils/logging"
)

var (
	errOverspecified = errors.New("start, stop and duration all given")
	errNoAnchor      = errors.New("duration needs a start or stop")
)

// window is a closed range of times in microseconds since the epoch. A
// missing bound is unlimited.
type window struct {
	start, stop       int64
	hasStart, hasStop bool
}

func main() {
	var (
		start    = flag.String("start", "", "first time to keep, as YYYYMMDDTHHMMSSZ or microseconds since the epoch")
		stop     = flag.String("stop", "", "last time to keep, in the same forms as start")
		duration = flag.Float64("duration", 0, "seconds to keep after start or before stop")
	)
	flag.Parse()

	log := logging.New(logging.Info, os.Stderr, true)

	win, err := newWindow(*start, *stop, *duration)
	if err != nil {
		log.Fatal("bad time range", "error", err.Error())
	}

	w := bufio.NewWriter(os.Stdout)
	n, err := trim(bufio.NewReader(os.Stdin), w, win)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		log.Error("could not trim log stream", "frames", n, "error", err.Error())
		os.Exit(1)
	}
}

// newWindow returns the window described by the given bounds. An empty
// bound is unset, and a zero duration is ignored.
func newWindow(start, stop string, duration float64) (window, error) {
	var (
		win window
		err error
	)
	if start != "" {
		win.start, err = tick.ParseMicros(start)
		if err != nil {
			return win, err
		}
		win.hasStart = true
	}
	if stop != "" {
		win.stop, err = tick.ParseMicros(stop)
		if err != nil {
			return win, err
		}
		win.hasStop = true
	}
	if duration == 0 {
		return win, nil
	}

	us := int64(duration * 1e6)
	switch {
	case win.hasStart && win.hasStop:
		return win, errOverspecified
	case win.hasStop:
		win.start, win.hasStart = win.stop-us, true
	case win.hasStart:
		win.stop, win.hasStop = win.start+us, true
	default:
		return win, errNoAnchor
	}
	return win, nil
}

// trim copies the frames of r stamped within win to w, returning the number
// copied. Reading stops at the first frame after the window.
func trim(r io.Reader, w io.Writer, win window) (int, error) {
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

		us := int64(h.Time.Micros())
		if win.hasStop && us > win.stop {
			return n, nil
		}
		if win.hasStart && us < win.start {
			continue
		}
		err = frame.Write(w, h.Time, p)
		if err != nil {
			return n, fmt.Errorf("could not write frame: %w", err)
		}
		n++
	}
}
