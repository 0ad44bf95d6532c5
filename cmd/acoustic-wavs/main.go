/*
DESCRIPTION
  acoustic-wavs reads acoustic packets and writes them out as a series of
  fixed length 16-bit WAV clips, printing the path of each clip on stdout as
  it is completed.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// acoustic-wavs writes hydrophone packets to WAV clips.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/hydrophone/codec/wav"
	"github.com/ausocean/hydrophone/ingest"
	"github.com/ausocean/hydrophone/ingest/config"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logPath      = "/var/log/hydrophone/acoustic-wavs.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	var (
		confPath  = flag.String("config", "", "path to YAML config file")
		outPath   = flag.String("out", "", "directory to write clips to")
		clip      = flag.String("clip", "", "nominal clip duration, e.g. 4s")
		phoneMask = flag.String("phonemask", "", "comma separated channel indices to keep, in order")
		logLevel  = flag.String("logging", "", "log level (Debug, Info, Warning, Error or Fatal)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [file | - | host:port | port | shm:name]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	vars := map[string]string{}
	for k, v := range map[string]*string{
		config.KeyOutputPath:   outPath,
		config.KeyClipDuration: clip,
		config.KeyPhoneMask:    phoneMask,
		config.KeyLogging:      logLevel,
	} {
		if *v != "" {
			vars[k] = *v
		}
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

// run writes clips from the input selected by c to c.OutputPath, printing
// each clip's path to names, until the input ends or ctx is cancelled.
func run(ctx context.Context, c *config.Config, names io.Writer) error {
	err := os.MkdirAll(c.OutputPath, 0o755)
	if err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	seq, err := ingest.Open(ctx, c)
	if err != nil {
		return err
	}
	defer seq.Close()

	chunker := wav.NewChunker(c.Logger, c.OutputPath, c.ClipDuration)
	for {
		p, err := seq.Next(ctx)
		if err != nil {
			return err
		}
		name, err := chunker.Write(p)
		if err != nil {
			return err
		}
		if name != "" {
			fmt.Fprintln(names, name)
		}
	}
}
