/*
NAME
  udp.go

DESCRIPTION
  udp.go provides a Source receiving acoustic packets as UDP datagrams.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package udp provides an implementation of Source for acoustic packets
// delivered one per UDP datagram, without log-stream framing.
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
)

// Defaults.
const (
	DefaultReadTimeout = 5 * time.Second
	DefaultRecvBuffer  = 4 << 20 // Bytes; bursts of packets arrive faster than they are decoded.
	maxDatagram        = 1 << 16
)

// Client receives acoustic packets on a UDP socket.
type Client struct {
	r    *PacketReader
	log  logging.Logger
	buf  []byte
	mu   sync.Mutex
	recv uint64
}

// NewClient returns a pointer to a new Client.
//
// addr is the address of form <ip>:<port> that we expect to receive
// acoustic packets at. recvBuf sets the socket receive buffer size in bytes;
// zero selects DefaultRecvBuffer.
func NewClient(l logging.Logger, addr string, readTimeout time.Duration, recvBuf int) (*Client, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if recvBuf <= 0 {
		recvBuf = DefaultRecvBuffer
	}

	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", a)
	if err != nil {
		return nil, err
	}
	err = conn.SetReadBuffer(recvBuf)
	if err != nil {
		l.Warning("could not set receive buffer size", "size", recvBuf, "error", err.Error())
	}
	l.Info("listening for acoustic packets", "address", conn.LocalAddr().String())

	return &Client{
		r:   &PacketReader{PacketConn: conn, Timeout: readTimeout},
		log: l,
		buf: make([]byte, maxDatagram),
	}, nil
}

// Name returns the name of the device.
func (c *Client) Name() string { return "UDP" }

// Addr returns the local address of the client's socket.
func (c *Client) Addr() net.Addr { return c.r.LocalAddr() }

// Next blocks until a datagram arrives or ctx is done. Read timeouts are
// used to poll ctx and are not reported as errors.
func (c *Client) Next(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := c.r.Read(c.buf)
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			continue
		}
		if err != nil {
			return nil, err
		}
		c.recv++
		return c.buf[:n], nil
	}
}

// Received returns the number of datagrams received.
func (c *Client) Received() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recv
}

// Close will close the client's connection.
func (c *Client) Close() error {
	return c.r.PacketConn.Close()
}

// PacketReader provides an io.Reader interface to an underlying UDP
// PacketConn, with a deadline applied to each read.
type PacketReader struct {
	net.PacketConn
	Timeout time.Duration
}

// Read implements io.Reader.
func (r PacketReader) Read(b []byte) (int, error) {
	err := r.PacketConn.SetReadDeadline(time.Now().Add(r.Timeout))
	if err != nil {
		return 0, fmt.Errorf("could not set read deadline for PacketConn: %w", err)
	}
	n, _, err := r.PacketConn.ReadFrom(b)
	return n, err
}
