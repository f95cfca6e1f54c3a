package liveshift

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-liveshift/internal/engine"
)

const (
	fakeBlockSize  = 64
	fakeStartDelay = 128
)

var errFakeEngine = errors.New("fake engine failure")

// fakeEngine records every call. Shift copies input to output scaled by the
// last pitch ratio so tests can observe which ratio a block saw.
type fakeEngine struct {
	cfg        engine.Config
	blockSize  int
	startDelay int

	shiftCalls   atomic.Int64
	pitchCalls   atomic.Int64
	formantCalls atomic.Int64
	optionCalls  atomic.Int64
	resetCalls   atomic.Int64
	closeCalls   atomic.Int64

	// active counts Shift calls in flight; overlapped is set if it ever exceeds one.
	active     atomic.Int32
	overlapped atomic.Bool

	mu        sync.Mutex
	ratio     float64
	scales    []float64
	preserved bool

	// shiftErr is returned by Shift when set.
	shiftErr error
	// formantErr is returned by SetFormantScale when set.
	formantErr error

	// entered and proceed pause Shift while a test races other calls.
	entered chan struct{}
	proceed chan struct{}

	// pitchEntered and pitchProceed pause SetPitchScale the same way.
	pitchEntered chan struct{}
	pitchProceed chan struct{}

	// released is set by Close; usedAfterClose records any later call.
	released       atomic.Bool
	usedAfterClose atomic.Bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{blockSize: fakeBlockSize, startDelay: fakeStartDelay, ratio: 1}
}

// blocking makes Shift signal entered and wait for proceed.
func (f *fakeEngine) blocking() *fakeEngine {
	f.entered = make(chan struct{}, 1)
	f.proceed = make(chan struct{})
	return f
}

// blockingPitch makes SetPitchScale signal pitchEntered and wait for
// pitchProceed.
func (f *fakeEngine) blockingPitch() *fakeEngine {
	f.pitchEntered = make(chan struct{}, 1)
	f.pitchProceed = make(chan struct{})
	return f
}

func (f *fakeEngine) touch() {
	if f.released.Load() {
		f.usedAfterClose.Store(true)
	}
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) BlockSize() int  { return f.blockSize }
func (f *fakeEngine) StartDelay() int { return f.startDelay }

func (f *fakeEngine) SetPitchScale(ratio float64) {
	f.pitchCalls.Add(1)
	if f.pitchEntered != nil {
		f.pitchEntered <- struct{}{}
		<-f.pitchProceed
	}
	f.touch()
	f.mu.Lock()
	f.ratio = ratio
	f.mu.Unlock()
}

func (f *fakeEngine) SetFormantScale(scales []float64) error {
	f.formantCalls.Add(1)
	f.touch()
	if f.formantErr != nil {
		return f.formantErr
	}
	f.mu.Lock()
	f.scales = scales
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SetFormantOption(preserved bool) {
	f.optionCalls.Add(1)
	f.touch()
	f.mu.Lock()
	f.preserved = preserved
	f.mu.Unlock()
}

func (f *fakeEngine) Reset() {
	f.resetCalls.Add(1)
	f.touch()
}

func (f *fakeEngine) Shift(input, output [][]float32) error {
	f.shiftCalls.Add(1)
	f.touch()
	if f.active.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	defer f.active.Add(-1)

	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.proceed
	}
	if f.shiftErr != nil {
		return f.shiftErr
	}

	f.mu.Lock()
	gain := float32(f.ratio)
	f.mu.Unlock()
	for ch := range input {
		for i, v := range input[ch] {
			output[ch][i] = v * gain
		}
	}
	return nil
}

func (f *fakeEngine) Close() error {
	f.closeCalls.Add(1)
	f.released.Store(true)
	return nil
}

func (f *fakeEngine) lastRatio() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ratio
}

// factory returns an engineFactory handing out f and recording the config.
func (f *fakeEngine) factory() engineFactory {
	return func(cfg engine.Config) (engine.Engine, error) {
		f.cfg = cfg
		return f, nil
	}
}

// newFakeShifter builds a shifter around fake with the given channel count.
func newFakeShifter(t *testing.T, channels int, fake *fakeEngine) *Shifter {
	t.Helper()
	s, err := newShifter(&Config{SampleRate: 48000, Channels: channels}, fake.factory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// block allocates channels x size samples filled with value.
func block(channels, size int, value float32) [][]float32 {
	b := make([][]float32, channels)
	for ch := range b {
		b[ch] = make([]float32, size)
		for i := range b[ch] {
			b[ch][i] = value
		}
	}
	return b
}
