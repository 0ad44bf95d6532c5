/*
DESCRIPTION
  acoustic-pcm reads acoustic packets from a log stream, network socket or
  shared-memory ring and writes their samples to stdout as raw interleaved
  little-endian pcm, suitable for piping into tools such as aplay or sox.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// acoustic-pcm writes hydrophone samples to stdout as raw pcm.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/hydrophone/codec/pcm"
	"github.com/ausocean/hydrophone/ingest"
	"github.com/ausocean/hydrophone/ingest/config"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logPath      = "/var/log/hydrophone/acoustic-pcm.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	var (
		confPath  = flag.String("config", "", "path to YAML config file")
		phoneMask = flag.String("phonemask", "", "comma separated channel indices to output, in order")
		logLevel  = flag.String("logging", "", "log level (Debug, Info, Warning, Error or Fatal)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [file | - | host:port | port | shm:name]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Stdout carries samples so logs go to stderr as well as the log file.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	vars := map[string]string{}
	if *phoneMask != "" {
		vars[config.KeyPhoneMask] = *phoneMask
	}
	if *logLevel != "" {
		vars[config.KeyLogging] = *logLevel
	}
	c, err := config.Assemble(log, *confPath, flag.Arg(0), vars)
	if err != nil {
		log.Fatal("could not load config", "error", err.Error())
	}
	log.SetLevel(c.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, c, os.Stdout)
	stop()
	if !ingest.Finished(err) {
		log.Error("stopped", "error", err.Error())
		os.Exit(1)
	}
}

// run copies samples from the input selected by c to dst until the input
// ends or ctx is cancelled.
func run(ctx context.Context, c *config.Config, dst io.Writer) error {
	seq, err := ingest.Open(ctx, c)
	if err != nil {
		return err
	}
	defer seq.Close()

	w := bufio.NewWriter(dst)
	var format pcm.BufferFormat
	for {
		p, err := seq.Next(ctx)
		if err != nil {
			return err
		}
		buf, err := pcm.FromPacket(p)
		if err != nil {
			return err
		}
		if buf.Format != format {
			format = buf.Format
			c.Logger.Info("pcm format", "format", format.SFormat.String(), "rate", format.Rate, "channels", format.Channels)
		}

		// Flush per packet so downstream players are not starved.
		_, err = w.Write(buf.Data)
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			return fmt.Errorf("could not write samples: %w", err)
		}
	}
}
