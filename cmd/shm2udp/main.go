/*
DESCRIPTION
  shm2udp forwards acoustic packets from a shared-memory ring buffer to a
  UDP destination, one packet per datagram with the log-stream envelope
  removed.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// shm2udp forwards hydrophone packets from shared memory over UDP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/hydrophone/device"
	"github.com/ausocean/hydrophone/device/shm"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logPath      = "/var/log/hydrophone/shm2udp.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	dir := flag.String("dir", shm.DefaultDir, "directory holding shared-memory regions")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] host:port [shm:name]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	name := shm.DefaultName
	if arg := flag.Arg(1); strings.HasPrefix(arg, "shm:") {
		name = strings.TrimPrefix(arg, "shm:")
	}

	src, err := shm.NewSource(log, name, shm.Dir(*dir))
	if err != nil {
		log.Fatal("could not create shared memory source", "error", err.Error())
	}
	defer src.Close()

	conn, err := net.Dial("udp", flag.Arg(0))
	if err != nil {
		log.Fatal("could not dial destination", "error", err.Error())
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	n, err := forward(ctx, src, conn)
	stop()
	log.Info("forwarding ended", "packets", n)
	if err != nil && err != io.EOF && !errors.Is(err, context.Canceled) {
		log.Error("could not forward packets", "error", err.Error())
		os.Exit(1)
	}
}

// forward writes each packet from src to dst until src ends or ctx is
// cancelled, returning the number of packets written.
func forward(ctx context.Context, src device.Source, dst io.Writer) (int, error) {
	var n int
	for {
		p, err := src.Next(ctx)
		if err != nil {
			return n, err
		}
		_, err = dst.Write(p)
		if err != nil {
			return n, fmt.Errorf("could not send packet: %w", err)
		}
		n++
	}
}
