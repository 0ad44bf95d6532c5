/*
DESCRIPTION
  acoustic-health reads acoustic packets and reports on the health of the
  stream: the channel count and sample rate, a running line of sample
  extremes, Prometheus metrics and optionally an oscilloscope style plot.

AUTHORS
  Scott Barnard <scott@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// acoustic-health monitors a hydrophone packet stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/hydrophone/health"
	"github.com/ausocean/hydrophone/ingest"
	"github.com/ausocean/hydrophone/ingest/config"
	"github.com/ausocean/hydrophone/metrics"
	"github.com/ausocean/hydrophone/protocol/acoustic"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logPath      = "/var/log/hydrophone/acoustic-health.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const defaultScopeInterval = time.Second

// options holds the settings that are not part of the ingest config.
type options struct {
	scopePath     string
	scopeLength   float64
	scopeInterval time.Duration
}

func main() {
	var (
		confPath  = flag.String("config", "", "path to YAML config file")
		phoneMask = flag.String("phonemask", "", "comma separated channel indices to monitor, in order")
		logLevel  = flag.String("logging", "", "log level (Debug, Info, Warning, Error or Fatal)")
		metAddr   = flag.String("metrics", "", "address to serve Prometheus metrics on, e.g. :9100")
		opts      options
	)
	flag.StringVar(&opts.scopePath, "scope", "", "path of a PNG file to keep updated with a scope plot")
	flag.Float64Var(&opts.scopeLength, "scope-length", health.DefaultScopeLength, "scope window in seconds")
	flag.DurationVar(&opts.scopeInterval, "scope-interval", defaultScopeInterval, "minimum time between scope plots")
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
	log := logging.New(logVerbosity, fileLog, logSuppress)

	vars := map[string]string{}
	for k, v := range map[string]*string{
		config.KeyPhoneMask:      phoneMask,
		config.KeyLogging:        logLevel,
		config.KeyMetricsAddress: metAddr,
	} {
		if *v != "" {
			vars[k] = *v
		}
	}
	c, err := config.Assemble(log, *confPath, flag.Arg(0), vars)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load config:", err)
		log.Fatal("could not load config", "error", err.Error())
	}
	log.SetLevel(c.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, c, opts, os.Stderr)
	stop()
	if !ingest.Finished(err) {
		fmt.Fprintln(os.Stderr, err)
		log.Error("stopped", "error", err.Error())
		os.Exit(1)
	}
}

// run reports on packets from the input selected by c to w until the input
// ends or ctx is cancelled.
func run(ctx context.Context, c *config.Config, opts options, w io.Writer) error {
	var m *metrics.Metrics
	if c.MetricsAddress != "" {
		m = metrics.New()
		go func() {
			err := m.Serve(ctx, c.MetricsAddress, c.Logger)
			if err != nil {
				c.Logger.Error("metrics server failed", "error", err.Error())
			}
		}()
	}

	seq, err := ingest.Open(ctx, c, ingest.WithMetrics(m))
	if err != nil {
		return err
	}
	defer seq.Close()

	var (
		scope    *health.Scope
		lastPlot time.Time
		first    = true
	)
	if opts.scopePath != "" {
		scope = health.NewScope(opts.scopeLength)
	}
	defer fmt.Fprintln(w)

	for {
		p, err := seq.Next(ctx)
		if err != nil {
			return err
		}
		if first {
			first = false
			fmt.Fprintf(w, "%d channels, sample rate %g sps\n", p.Channels, p.Rate())
		}
		lo, hi := extremes(p)
		fmt.Fprintf(w, "          \rmin: %d, max: %d", int64(lo), int64(hi))

		if c.LogLevel == logging.Debug {
			for i, s := range health.Analyse(p) {
				c.Logger.Debug("channel health", "channel", i, "mean", s.Mean, "stdDev", s.StdDev, "rms", s.RMS, "peakHz", s.PeakHz)
			}
		}

		if scope == nil {
			continue
		}
		win := scope.Add(p)
		if win == nil || time.Since(lastPlot) < opts.scopeInterval {
			continue
		}
		lastPlot = time.Now()
		err = health.Plot(opts.scopePath, win, p.Rate(), p.FullScale())
		if err != nil {
			c.Logger.Warning("could not plot scope", "error", err.Error())
		}
	}
}

// extremes returns the smallest and largest samples in p over all channels.
func extremes(p *acoustic.Packet) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range health.Analyse(p) {
		lo = math.Min(lo, s.Min)
		hi = math.Max(hi, s.Max)
	}
	return lo, hi
}
