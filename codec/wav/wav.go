/*
NAME
  wav.go

DESCRIPTION
  wav.go provides a Chunker which writes acoustic packets to a series of
  fixed length WAV files.

AUTHOR
  David Sutton <davidsutton@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wav provides writing of acoustic packets to WAV clips.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ausocean/hydrophone/protocol/acoustic"
	"github.com/ausocean/utils/logging"
)

const (
	wavFormat = 1  // PCM.
	BitDepth  = 16 // Bit depth of every clip.
)

var errFormatChange = errors.New("packet format changed within clip")

// Encode writes data, interleaved 16-bit samples with nc channels, to ws as a
// WAV file.
func Encode(ws io.WriteSeeker, data []int, rate, nc int) error {
	enc := gowav.NewEncoder(ws, rate, BitDepth, nc, wavFormat)
	err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nc, SampleRate: rate},
		Data:           data,
		SourceBitDepth: BitDepth,
	})
	if err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Sample16 scales v, a raw sample in encoding e, to a 16-bit sample. 16-bit
// samples are returned unchanged.
func Sample16(v float64, e acoustic.Encoding) int {
	if e == acoustic.S16 {
		return int(v)
	}
	s := math.Round(v / e.FullScale() * math.MaxInt16)
	return int(math.Max(math.MinInt16, math.Min(math.MaxInt16, s)))
}

// Chunker accumulates packets into clips of a nominal duration, rounded to a
// whole number of packets, and writes each completed clip to a numbered file
// NNNN.wav in its directory. Clips are 16-bit regardless of packet encoding.
// A partial clip at the end of input is discarded.
type Chunker struct {
	log     logging.Logger
	dir     string
	nominal time.Duration

	perClip int // Packets per clip, fixed by the first packet.
	nc      int
	rate    int

	data    []int
	packets int
	index   int
}

// NewChunker returns a Chunker writing clips of about d to dir.
func NewChunker(l logging.Logger, dir string, d time.Duration) *Chunker {
	return &Chunker{log: l, dir: dir, nominal: d}
}

// Write adds p to the current clip. If the clip is then complete it is
// written and its path returned, otherwise the returned path is empty.
func (c *Chunker) Write(p *acoustic.Packet) (string, error) {
	nc := int(p.Channels)
	rate := int(math.Round(p.Rate()))
	if c.perClip == 0 {
		spc := p.SamplesPerChannel()
		if spc == 0 {
			return "", nil
		}
		c.perClip = int(math.Max(1, math.Round(c.nominal.Seconds()*p.Rate()/float64(spc))))
		c.nc, c.rate = nc, rate
		c.data = make([]int, 0, c.perClip*spc*nc)
		c.log.Info("writing clips", "packets", c.perClip, "seconds", float64(c.perClip*spc)/p.Rate(), "dir", c.dir)
	}
	if nc != c.nc || rate != c.rate {
		return "", fmt.Errorf("%w: %d channels at %d Hz, clip has %d at %d Hz", errFormatChange, nc, rate, c.nc, c.rate)
	}

	enc := p.Encoding()
	for _, row := range p.Samples {
		for _, v := range row {
			c.data = append(c.data, Sample16(v, enc))
		}
	}
	c.packets++
	if c.packets < c.perClip {
		return "", nil
	}
	return c.flush()
}

func (c *Chunker) flush() (string, error) {
	name := filepath.Join(c.dir, fmt.Sprintf("%04d.wav", c.index))
	c.index++
	data := c.data
	c.data = c.data[:0]
	c.packets = 0

	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("could not create clip: %w", err)
	}
	err = Encode(f, data, c.rate, c.nc)
	if err != nil {
		f.Close()
		return "", fmt.Errorf("could not encode clip %s: %w", name, err)
	}
	err = f.Close()
	if err != nil {
		return "", fmt.Errorf("could not close clip %s: %w", name, err)
	}
	return name, nil
}
