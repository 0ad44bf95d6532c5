/*
DESCRIPTION
  metrics.go provides Prometheus metrics describing the health of an acoustic
  packet stream.

AUTHORS
  Scott Barnard <scott@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package metrics provides Prometheus metrics for acoustic packet ingest.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ausocean/utils/logging"
)

const namespace = "hydrophone"

// Metrics holds the metrics for one packet stream in its own registry.
type Metrics struct {
	reg *prometheus.Registry

	PacketsDecoded prometheus.Counter
	PacketsSkipped prometheus.Counter
	LossEvents     prometheus.Counter
	PacketsMissing prometheus.Counter
	Fatal          *prometheus.CounterVec
	LastSeq        prometheus.Gauge
	SampleSeconds  prometheus.Gauge
	StampSeconds   prometheus.Gauge
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		PacketsDecoded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_decoded_total",
			Help:      "Total number of acoustic packets decoded.",
		}),
		PacketsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_skipped_total",
			Help:      "Total number of blocks skipped as invalid packets.",
		}),
		LossEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loss_events_total",
			Help:      "Total number of sequence number gaps.",
		}),
		PacketsMissing: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_missing_total",
			Help:      "Total number of packets inferred missing from sequence number gaps.",
		}),
		Fatal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fatal_errors_total",
			Help:      "Total number of errors that ended a stream, by kind.",
		}, []string{"kind"}),
		LastSeq: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sequence_number",
			Help:      "Sequence number of the most recent packet.",
		}),
		SampleSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elapsed_sample_seconds",
			Help:      "Time yielded according to the sample count and expected sample rate.",
		}),
		StampSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elapsed_timestamp_seconds",
			Help:      "Time yielded according to packet timestamps.",
		}),
	}
}

// Packet records a decoded packet.
func (m *Metrics) Packet(seq uint16) {
	if m == nil {
		return
	}
	m.PacketsDecoded.Inc()
	m.LastSeq.Set(float64(seq))
}

// Skipped records a skipped block.
func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.PacketsSkipped.Inc()
}

// Loss records a sequence gap of missing packets.
func (m *Metrics) Loss(missing uint16) {
	if m == nil {
		return
	}
	m.LossEvents.Inc()
	m.PacketsMissing.Add(float64(missing))
}

// Elapsed records the time yielded by both measures.
func (m *Metrics) Elapsed(samples, stamps float64) {
	if m == nil {
		return
	}
	m.SampleSeconds.Set(samples)
	m.StampSeconds.Set(stamps)
}

// Failed records an error that ended the stream.
func (m *Metrics) Failed(kind string) {
	if m == nil {
		return
	}
	m.Fatal.WithLabelValues(kind).Inc()
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes the metrics at /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, l logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() { srv.Close() })
	defer stop()

	l.Info("serving metrics", "address", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
