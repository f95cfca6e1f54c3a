package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/effects/pitch"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"github.com/tphakala/simd/f64"

	"github.com/tphakala/go-audio-liveshift/internal/framing"
)

// WSOLA is the pure Go backend. Every block slides a per-channel analysis
// frame, pitch-shifts the whole frame with a WSOLA processor, applies a
// periodic Hann window and overlap-adds the result. With a hop of one block
// the Hann windows sum to a constant, so a ratio of 1 reproduces the input
// delayed by StartDelay.
//
// SetPitchScale, SetFormantScale, SetFormantOption and Reset only touch
// atomics; their effect is picked up at the start of the next Shift.
type WSOLA struct {
	channels   int
	frameLen   int
	startDelay int
	together   bool
	debugLevel int
	logger     *slog.Logger

	window []float64
	gain   float64

	state []*wsolaChannel
	in    [][]float64
	out   [][]float64

	pitchBits    atomic.Uint64
	appliedRatio float64

	formantScales    atomic.Pointer[[]float64]
	formantPreserved atomic.Bool
	resetPending     atomic.Bool
	closed           atomic.Bool

	blocks uint64
}

type wsolaChannel struct {
	shifter *pitch.PitchShifter
	frame   *framing.Frame
	acc     *framing.Accumulator
}

var _ Engine = (*WSOLA)(nil)

// NewWSOLA creates a pure Go engine.
func NewWSOLA(cfg Config) (*WSOLA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	frameLen := frameLength(cfg.Options.Window, cfg.SampleRate)
	hann, err := window.Hann(frameLen, window.WithPeriodic())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	e := &WSOLA{
		channels:   cfg.Channels,
		frameLen:   frameLen,
		startDelay: frameLen - blockSize,
		together:   cfg.Options.ChannelsTogether && cfg.Channels == stereoChannels,
		debugLevel: cfg.DebugLevel,
		logger:     cfg.logger().With("engine", "wsola"),
		window:     hann,
		gain:       float64(hannOverlapDivisor*blockSize) / float64(frameLen),
		state:      make([]*wsolaChannel, cfg.Channels),
		in:         make([][]float64, cfg.Channels),
		out:        make([][]float64, cfg.Channels),

		appliedRatio: 1,
	}
	e.pitchBits.Store(math.Float64bits(1))
	e.formantPreserved.Store(cfg.Options.FormantPreserved)
	scales := make([]float64, cfg.Channels)
	e.formantScales.Store(&scales)

	for ch := range cfg.Channels {
		state, err := newWSOLAChannel(float64(cfg.SampleRate), frameLen, cfg.Options.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: channel %d: %w", ErrInvalidConfig, ch, err)
		}
		e.state[ch] = state
		e.in[ch] = make([]float64, blockSize)
		e.out[ch] = make([]float64, blockSize)
	}

	if cfg.DebugLevel > 0 {
		e.logger.Debug("engine created",
			"sample_rate", cfg.SampleRate,
			"channels", cfg.Channels,
			"frame_length", frameLen,
			"start_delay", e.startDelay)
	}

	return e, nil
}

func newWSOLAChannel(sampleRate float64, frameLen int, w Window) (*wsolaChannel, error) {
	shifter, err := pitch.NewPitchShifter(sampleRate)
	if err != nil {
		return nil, err
	}

	sequence, overlap, search := shortSequenceMs, shortOverlapMs, shortSearchMs
	if w == WindowMedium {
		sequence, overlap, search = mediumSequenceMs, mediumOverlapMs, mediumSearchMs
	}
	if err := shifter.SetSequence(sequence); err != nil {
		return nil, err
	}
	if err := shifter.SetOverlap(overlap); err != nil {
		return nil, err
	}
	if err := shifter.SetSearch(search); err != nil {
		return nil, err
	}

	frame, err := framing.NewFrame(frameLen)
	if err != nil {
		return nil, err
	}
	acc, err := framing.NewAccumulator(frameLen)
	if err != nil {
		return nil, err
	}

	return &wsolaChannel{shifter: shifter, frame: frame, acc: acc}, nil
}

// frameLength returns the analysis frame for a window at a sample rate.
func frameLength(w Window, sampleRate int) int {
	length := shortFrameLength
	if w == WindowMedium {
		length = mediumFrameLength
	}
	for rate := sampleRate; rate > referenceRate; rate /= 2 {
		length *= 2
	}
	return length
}

// Name implements Engine.
func (e *WSOLA) Name() string { return "wsola" }

// BlockSize implements Engine.
func (e *WSOLA) BlockSize() int { return blockSize }

// StartDelay implements Engine.
func (e *WSOLA) StartDelay() int { return e.startDelay }

// SetPitchScale implements Engine. Ratios outside the WSOLA range are
// clamped when applied.
func (e *WSOLA) SetPitchScale(ratio float64) {
	e.pitchBits.Store(math.Float64bits(ratio))
}

// SetFormantScale implements Engine. The scales are recorded; the time-domain
// algorithm moves the spectral envelope together with the pitch.
func (e *WSOLA) SetFormantScale(scales []float64) error {
	if len(scales) != e.channels {
		return fmt.Errorf("%w: want %d formant scales, got %d", ErrBufferShape, e.channels, len(scales))
	}
	stored := append([]float64(nil), scales...)
	e.formantScales.Store(&stored)
	return nil
}

// FormantScale returns the recorded formant scales.
func (e *WSOLA) FormantScale() []float64 {
	return append([]float64(nil), *e.formantScales.Load()...)
}

// SetFormantOption implements Engine.
func (e *WSOLA) SetFormantOption(preserved bool) {
	e.formantPreserved.Store(preserved)
}

// FormantPreserved reports the recorded formant option.
func (e *WSOLA) FormantPreserved() bool {
	return e.formantPreserved.Load()
}

// Reset implements Engine. Buffers are cleared before the next block.
func (e *WSOLA) Reset() {
	e.resetPending.Store(true)
}

// Shift implements Engine.
func (e *WSOLA) Shift(input, output [][]float32) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := checkShape(input, output, e.channels, blockSize); err != nil {
		return err
	}

	if e.resetPending.Swap(false) {
		for _, c := range e.state {
			c.frame.Clear()
			c.acc.Clear()
		}
	}
	if err := e.applyPitch(); err != nil {
		return err
	}

	for ch := range e.channels {
		dst := e.in[ch]
		for i, v := range input[ch] {
			dst[i] = float64(v)
		}
	}
	if e.together {
		toMidSide(e.in[0], e.in[1])
	}

	for ch, c := range e.state {
		c.frame.Push(e.in[ch])
		shifted := c.shifter.Process(c.frame.Samples())
		if err := window.ApplyCoefficientsInPlace(shifted, e.window); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		f64.Scale(shifted, shifted, e.gain)
		if err := c.acc.Add(shifted); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
		c.acc.Pop(e.out[ch])
	}

	if e.together {
		fromMidSide(e.out[0], e.out[1])
	}
	for ch := range e.channels {
		dst := output[ch]
		for i, v := range e.out[ch] {
			dst[i] = float32(v)
		}
	}

	e.blocks++
	if e.debugLevel >= debugLevelBlocks {
		e.logger.Debug("block shifted", "block", e.blocks, "ratio", e.appliedRatio)
	}
	return nil
}

// applyPitch pushes a changed ratio into the per-channel processors.
func (e *WSOLA) applyPitch() error {
	ratio := math.Float64frombits(e.pitchBits.Load())
	ratio = max(minWSOLARatio, min(maxWSOLARatio, ratio))
	if ratio == e.appliedRatio {
		return nil
	}
	for ch, c := range e.state {
		if err := c.shifter.SetPitchRatio(ratio); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
	}
	e.appliedRatio = ratio
	return nil
}

// Close implements Engine.
func (e *WSOLA) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.debugLevel > 0 {
		e.logger.Debug("engine closed", "blocks", e.blocks)
	}
	return nil
}

// toMidSide converts left/right in place to mid/side.
func toMidSide(left, right []float64) {
	for i := range left {
		l, r := left[i], right[i]
		left[i] = (l + r) * midSideScale
		right[i] = (l - r) * midSideScale
	}
}

// fromMidSide converts mid/side in place back to left/right.
func fromMidSide(mid, side []float64) {
	for i := range mid {
		m, s := mid[i], side[i]
		mid[i] = m + s
		side[i] = m - s
	}
}
