package main

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"

	liveshift "github.com/tphakala/go-audio-liveshift"
)

const bytesPerFloat32 = 4

// shiftReader is the audio thread: oto pulls bytes from it, and every time
// its buffer runs dry it pitch-shifts the next block of the clip. The clip
// loops forever. A block the shifter rejects is played as silence and
// counted as dropped.
type shiftReader struct {
	shifter *liveshift.Shifter
	clip    *clip

	pos     int
	in, out [][]float32
	buf     []byte
	pending []byte

	blocks  atomic.Int64
	dropped atomic.Int64
	frames  atomic.Int64
}

func newShiftReader(shifter *liveshift.Shifter, c *clip) *shiftReader {
	channels, size := shifter.Channels(), shifter.BlockSize()
	r := &shiftReader{
		shifter: shifter,
		clip:    c,
		in:      make([][]float32, channels),
		out:     make([][]float32, channels),
		buf:     make([]byte, channels*size*bytesPerFloat32),
	}
	for ch := range channels {
		r.in[ch] = make([]float32, size)
		r.out[ch] = make([]float32, size)
	}
	return r
}

// Read implements io.Reader. It always fills p and never returns an error.
func (r *shiftReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.pending) == 0 {
			r.nextBlock()
		}
		k := copy(p[n:], r.pending)
		r.pending = r.pending[k:]
		n += k
	}
	return n, nil
}

func (r *shiftReader) nextBlock() {
	frames := r.clip.Frames()
	for i := range r.in[0] {
		for ch := range r.in {
			r.in[ch][i] = r.clip.samples[ch][r.pos]
		}
		r.pos++
		if r.pos == frames {
			r.pos = 0
		}
	}

	if err := r.shifter.ProcessInto(r.in, r.out); err != nil {
		for ch := range r.out {
			clear(r.out[ch])
		}
		r.dropped.Add(1)
	}
	r.blocks.Add(1)
	r.frames.Store(int64(r.pos))

	channels := len(r.out)
	for i := range r.out[0] {
		for ch, samples := range r.out {
			off := (i*channels + ch) * bytesPerFloat32
			binary.LittleEndian.PutUint32(r.buf[off:], math.Float32bits(samples[i]))
		}
	}
	r.pending = r.buf
}

// playbackStats is a snapshot of the audio thread counters.
type playbackStats struct {
	Blocks   int64
	Dropped  int64
	Position time.Duration
}

// Stats is safe to call from any goroutine.
func (r *shiftReader) Stats() playbackStats {
	return playbackStats{
		Blocks:   r.blocks.Load(),
		Dropped:  r.dropped.Load(),
		Position: time.Duration(r.frames.Load()) * time.Second / time.Duration(r.clip.sampleRate),
	}
}
