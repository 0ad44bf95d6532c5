/*
DESCRIPTION
  scope.go provides Scope, which cuts a packet stream into trigger aligned
  windows for display.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package health

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/hydrophone/protocol/acoustic"
)

// DefaultScopeLength is the default scope window length in seconds.
const DefaultScopeLength = 0.03

// Scope accumulates packets and yields windows of a fixed length, in the
// manner of an oscilloscope. Each window starts at the steepest rise of the
// busiest channel of the previous block, so successive windows of a periodic
// signal line up.
type Scope struct {
	length float64
	n      int // Samples per window, fixed by the first packet.

	cur, prior [][]float64
}

// NewScope returns a Scope yielding windows of length seconds.
func NewScope(length float64) *Scope {
	return &Scope{length: length}
}

// Add adds p to the scope and returns a window of [time][channel] samples if
// one is ready, or nil.
func (s *Scope) Add(p *acoustic.Packet) [][]float64 {
	if s.n == 0 {
		s.n = int(math.Round(s.length * p.Rate()))
		if s.n < 1 {
			s.n = 1
		}
	}
	s.cur = append(s.cur, p.Samples...)
	if len(s.cur) < s.n {
		return nil
	}

	var w [][]float64
	if s.prior != nil {
		full := append(s.prior[:len(s.prior):len(s.prior)], s.cur...)
		start := trigger(s.prior)
		w = full[start : start+s.n]
	}
	s.prior, s.cur = s.cur, nil
	return w
}

// trigger returns the index of the steepest rise in the channel of b with
// the greatest variance.
func trigger(b [][]float64) int {
	if len(b) < 2 {
		return 0
	}
	nc := len(b[0])
	x := make([]float64, len(b))
	busiest, most := 0, math.Inf(-1)
	for c := 0; c < nc; c++ {
		for t, row := range b {
			x[t] = row[c]
		}
		v := stat.Variance(x, nil)
		if v > most {
			busiest, most = c, v
		}
	}
	for t, row := range b {
		x[t] = row[busiest]
	}
	d := make([]float64, len(x)-1)
	for t := range d {
		d[t] = x[t+1] - x[t]
	}
	return floats.MaxIdx(d)
}
