/*
DESCRIPTION
  health.go provides per-channel statistics of acoustic packets for
  monitoring sensor health.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package health provides statistics and plots of acoustic packets for
// checking that a sensor is working.
package health

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/hydrophone/protocol/acoustic"
)

// ChannelStats holds statistics of one channel of a packet, in raw sample
// units.
type ChannelStats struct {
	Min, Max float64
	Mean     float64
	StdDev   float64 // Population standard deviation.
	RMS      float64
	PeakHz   float64 // Frequency of the largest non-DC spectral component.
}

// Analyse returns statistics for each channel of p.
func Analyse(p *acoustic.Packet) []ChannelStats {
	stats := make([]ChannelStats, p.Channels)
	if len(p.Samples) == 0 {
		return stats
	}
	for c := range stats {
		x := p.Channel(c)
		mean, std := stat.PopMeanStdDev(x, nil)
		stats[c] = ChannelStats{
			Min:    floats.Min(x),
			Max:    floats.Max(x),
			Mean:   mean,
			StdDev: std,
			RMS:    math.Sqrt(floats.Dot(x, x) / float64(len(x))),
			PeakHz: peak(x, mean, p.Rate()),
		}
	}
	return stats
}

// peak returns the frequency of the largest bin of the spectrum of x, less
// its mean, excluding DC. x is modified.
func peak(x []float64, mean, rate float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	floats.AddConst(-mean, x)
	window.Apply(x, window.Hann)
	spec := fft.FFTReal(x)

	var best int
	var mag float64
	for k := 1; k <= n/2; k++ {
		m := cmplx.Abs(spec[k])
		if m > mag {
			best, mag = k, m
		}
	}
	return float64(best) * rate / float64(n)
}
