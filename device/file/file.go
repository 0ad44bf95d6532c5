/*
DESCRIPTION
  file.go provides an implementation of the Source interface for hydrophone
  log-stream files.

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

// Package file provides an implementation of Source for log-stream files.
package file

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/utils/logging"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// File is an implementation of the Source interface for a file containing a
// log stream, i.e. concatenated frames each wrapping one acoustic packet.
type File struct {
	f    io.ReadCloser
	fr   *frame.Reader
	path string
	loop bool
	log  logging.Logger
	mu   sync.Mutex

	// Frames read since the last loop, so that an empty file does not loop
	// forever.
	sinceLoop int
}

// New opens the file at path, or standard input if path is Stdin. If loop is
// true the file is read again from the start each time it ends; loop is
// ignored for standard input.
func New(l logging.Logger, path string, loop bool) (*File, error) {
	var f io.ReadCloser = os.Stdin
	if path != Stdin {
		_f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "could not open log file")
		}
		f = _f
	} else {
		loop = false
	}
	return &File{f: f, fr: frame.NewReader(f), path: path, loop: loop, log: l}, nil
}

// Name returns the name of the device.
func (m *File) Name() string { return "File" }

// Next returns the payload of the next frame. A file that ends part way
// through a frame results in an error wrapping frame.ErrTruncated.
func (m *File) Next(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.f == nil {
		return nil, errors.New("log file is closed")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, p, err := m.fr.Next()
		if err == nil {
			m.sinceLoop++
			return p, nil
		}
		if err != io.EOF || !m.loop || m.sinceLoop == 0 {
			return nil, err
		}

		m.log.Info("looping input file", "path", m.path)
		s, ok := m.f.(io.Seeker)
		if !ok {
			return nil, errors.New("log file does not support seeking")
		}
		_, err = s.Seek(0, io.SeekStart)
		if err != nil {
			return nil, errors.Wrap(err, "could not seek to start of file for input loop")
		}
		m.fr = frame.NewReader(m.f)
		m.sinceLoop = 0
	}
}

// Close closes the file such that any further calls to Next fail. Standard
// input is left open.
func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.f
	m.f = nil
	if f == nil || f == os.Stdin {
		return nil
	}
	return f.Close()
}
