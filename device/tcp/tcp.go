/*
DESCRIPTION
  tcp.go provides an implementation of the Source interface for log streams
  served over TCP.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tcp provides an implementation of Source for TCP log streams.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/utils/logging"
)

// Conn is a Source reading a framed log stream from a TCP connection. The
// stream uses the same framing as log files.
type Conn struct {
	conn net.Conn
	fr   *frame.Reader
	log  logging.Logger
	mu   sync.Mutex
}

// Dial connects to the log stream server at addr, of the form host:port.
func Dial(ctx context.Context, l logging.Logger, addr string) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not dial log stream: %w", err)
	}
	l.Info("connected to log stream", "address", addr)
	return &Conn{conn: conn, fr: frame.NewReader(conn), log: l}, nil
}

// Name returns the name of the device.
func (c *Conn) Name() string { return "TCP" }

// Next returns the payload of the next frame. The connection is closed if ctx
// is cancelled while waiting.
func (c *Conn) Next(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, errors.New("connection is closed")
	}

	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	_, p, err := c.fr.Next()
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return p, err
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
