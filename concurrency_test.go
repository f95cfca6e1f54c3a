package liveshift

import (
	"bytes"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-audio-liveshift/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestGate_SecondCallerFailsFast(t *testing.T) {
	var logs syncBuffer
	fake := newFakeEngine().blocking()

	b, err := NewBuilder(48000, 2)
	require.NoError(t, err)
	b.newEngine = fake.factory()
	s, err := b.Logger(slog.New(slog.NewTextHandler(&logs, nil))).Build()
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error {
		_, err := s.Process(block(2, fakeBlockSize, 1))
		return err
	})
	<-fake.entered

	// Processing is exclusive and never waits.
	_, err = s.Process(block(2, fakeBlockSize, 1))
	require.ErrorIs(t, err, ErrOperationInProgress)
	require.ErrorIs(t, s.ProcessInto(block(2, fakeBlockSize, 1), block(2, fakeBlockSize, 0)), ErrOperationInProgress)
	require.ErrorIs(t, s.Close(), ErrOperationInProgress)

	// Pitch changes pass straight through.
	require.NoError(t, s.SetPitchScale(1.5))
	assert.InDelta(t, 1.5, fake.lastRatio(), ratioTolerance)

	// Formant changes and reset are forwarded with a warning.
	require.NoError(t, s.SetFormantScaleAll(1))
	require.NoError(t, s.SetFormantOption(FormantPreserved))
	s.Reset()
	assert.Equal(t, int64(1), fake.formantCalls.Load())
	assert.Equal(t, int64(1), fake.optionCalls.Load())
	assert.Equal(t, int64(1), fake.resetCalls.Load())
	assert.Contains(t, logs.String(), "operation=SetFormantScale")
	assert.Contains(t, logs.String(), "operation=SetFormantOption")
	assert.Contains(t, logs.String(), "operation=Reset")
	assert.Contains(t, logs.String(), "component=liveshift")

	close(fake.proceed)
	require.NoError(t, g.Wait())

	// Released once the in-flight call returns. proceed stays closed, so
	// further calls only signal entered.
	_, err = s.Process(block(2, fakeBlockSize, 1))
	require.NoError(t, err)
	<-fake.entered

	require.NoError(t, s.Close())
	assert.Equal(t, int64(1), fake.closeCalls.Load())
	assert.False(t, fake.overlapped.Load())
	assert.Equal(t, int64(2), fake.shiftCalls.Load())
}

func TestGate_NoWarningWhenIdle(t *testing.T) {
	var logs syncBuffer
	fake := newFakeEngine()

	b, err := NewBuilder(48000, 1)
	require.NoError(t, err)
	b.newEngine = fake.factory()
	s, err := b.Logger(slog.New(slog.NewTextHandler(&logs, nil))).Build()
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	require.NoError(t, s.SetFormantScaleAll(0))
	s.Reset()
	assert.NotContains(t, logs.String(), "WARN")
}

func TestGate_ConcurrentProcessNeverOverlaps(t *testing.T) {
	const (
		workers    = 8
		iterations = 200
	)

	fake := newFakeEngine()
	s := newFakeShifter(t, 2, fake)

	var succeeded, rejected atomic.Int64
	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			in := block(2, fakeBlockSize, float32(w))
			out := block(2, fakeBlockSize, 0)
			for range iterations {
				err := s.ProcessInto(in, out)
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, ErrOperationInProgress):
					rejected.Add(1)
				default:
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.False(t, fake.overlapped.Load(), "engine must never see overlapping Shift calls")
	assert.Equal(t, succeeded.Load(), fake.shiftCalls.Load())
	assert.Equal(t, int64(workers*iterations), succeeded.Load()+rejected.Load())
	assert.Positive(t, succeeded.Load())
}

func TestControlThread_PitchChangesDuringProcessing(t *testing.T) {
	shifter, err := New(&Config{SampleRate: 48000, Channels: 2, ChannelMode: ChannelsTogether})
	require.NoError(t, err)
	defer func() { require.NoError(t, shifter.Close()) }()

	n := shifter.BlockSize()
	input := [][]float32{testutil.Sine(n, 440, 48000), testutil.Sine(n, 660, 48000)}

	var done atomic.Bool
	var g errgroup.Group
	g.Go(func() error {
		defer done.Store(true)
		output := testutil.Planar(2, n)
		for range 64 {
			if err := shifter.ProcessInto(input, output); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for semitones := -12.0; !done.Load(); semitones += 0.5 {
			if semitones > 12 {
				semitones = -12
			}
			if err := shifter.SetPitchSemitone(semitones); err != nil {
				return err
			}
			_ = shifter.PitchScale()
		}
		return nil
	})
	require.NoError(t, g.Wait())
}

func TestClose_RefusedWhileSetterInsideEngine(t *testing.T) {
	fake := newFakeEngine().blockingPitch()
	s, err := newShifter(&Config{SampleRate: 48000, Channels: 1}, fake.factory())
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error { return s.SetPitchSemitone(3) })
	<-fake.pitchEntered

	require.ErrorIs(t, s.Close(), ErrOperationInProgress)
	assert.Zero(t, fake.closeCalls.Load())

	// The parked setter does not hold up processing.
	_, err = s.Process(block(1, fakeBlockSize, 1))
	require.NoError(t, err)

	close(fake.pitchProceed)
	require.NoError(t, g.Wait())

	require.NoError(t, s.Close())
	assert.Equal(t, int64(1), fake.closeCalls.Load())
	assert.False(t, fake.usedAfterClose.Load(), "engine touched after Close released it")
	assert.InDelta(t, 3.0, s.PitchSemitone(), ratioTolerance)
	require.ErrorIs(t, s.SetPitchSemitone(1), ErrClosed)
}

func TestClose_RacingSettersNeverTouchReleasedEngine(t *testing.T) {
	const (
		rounds     = 50
		setters    = 4
		iterations = 100
	)

	for range rounds {
		fake := newFakeEngine()
		s, err := newShifter(&Config{SampleRate: 48000, Channels: 2}, fake.factory())
		require.NoError(t, err)

		var g errgroup.Group
		for w := range setters {
			g.Go(func() error {
				for i := range iterations {
					err := s.SetPitchCent(float64(w*iterations + i))
					if errors.Is(err, ErrClosed) {
						return nil
					}
					if err != nil {
						return err
					}
					if err := s.SetFormantScaleAll(1); err != nil && !errors.Is(err, ErrClosed) {
						return err
					}
					s.Reset()
				}
				return nil
			})
		}
		g.Go(func() error {
			for {
				err := s.Close()
				if err == nil {
					return nil
				}
				if !errors.Is(err, ErrOperationInProgress) {
					return err
				}
				runtime.Gosched()
			}
		})
		require.NoError(t, g.Wait())

		assert.Equal(t, int64(1), fake.closeCalls.Load())
		assert.False(t, fake.usedAfterClose.Load())
	}
}

func TestControlThread_GettersMatchEngineAfterRacingSetters(t *testing.T) {
	const (
		setters    = 8
		iterations = 200
	)

	fake := newFakeEngine()
	s := newFakeShifter(t, 2, fake)

	var g errgroup.Group
	for w := range setters {
		g.Go(func() error {
			for i := range iterations {
				if err := s.SetPitchScale(1 + float64(w*iterations+i)/1e4); err != nil {
					return err
				}
				if err := s.SetFormantScale([]float64{float64(w), float64(i)}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, fake.lastRatio(), s.PitchScale())
	fake.mu.Lock()
	engineScales := fake.scales
	fake.mu.Unlock()
	assert.Equal(t, engineScales, s.FormantScale())
}
