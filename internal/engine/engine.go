// Package engine defines the contract of the opaque pitch-shifting engine and
// provides its backends.
//
// The default backend is pure Go. Building with the rubberband tag (and cgo
// enabled) links librubberband's RubberBandLiveShifter instead:
//
//	go build -tags rubberband ./...
//
// Engines are stateful and not reentrant for Shift. Callers must serialise
// Shift themselves; SetPitchScale is the only parameter change an engine
// guarantees to be safe against a concurrent Shift.
//
// Close must not race any other method. The closed checks inside the
// backends only catch use after Close, not use during it.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
)

// Engine is one stateful pitch-shifting instance processing fixed-size blocks.
type Engine interface {
	// Name identifies the backend.
	Name() string

	// BlockSize is the number of samples per channel consumed and produced by Shift.
	BlockSize() int

	// StartDelay is the output latency in samples.
	StartDelay() int

	// SetPitchScale sets the pitch ratio. Safe to call during Shift.
	SetPitchScale(ratio float64)

	// SetFormantScale sets one formant scale per channel. 0 means automatic.
	SetFormantScale(scales []float64) error

	// SetFormantOption switches formant preservation on or off.
	SetFormantOption(preserved bool)

	// Reset discards all buffered audio.
	Reset()

	// Shift consumes one block per input channel and writes one block per
	// output channel.
	Shift(input, output [][]float32) error

	// Close releases the engine. Subsequent calls are no-ops.
	Close() error
}

// Window selects the analysis window length.
type Window int

const (
	// WindowShort trades frequency resolution for lower latency.
	WindowShort Window = iota
	// WindowMedium uses a longer window with higher latency.
	WindowMedium
)

// Options are the construction-time engine options.
type Options struct {
	Window           Window
	FormantPreserved bool
	ChannelsTogether bool
}

// Config describes one engine instance.
type Config struct {
	SampleRate int
	Channels   int
	Options    Options

	// DebugLevel is forwarded to the backend's diagnostics (0 = silent).
	DebugLevel int

	// Logger receives backend diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Common engine errors.
var (
	// ErrInvalidConfig indicates the engine cannot be created with the config.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrClosed indicates use of an engine after Close.
	ErrClosed = errors.New("engine closed")

	// ErrBufferShape indicates buffers that do not match channels x block size.
	ErrBufferShape = errors.New("buffer shape mismatch")

	// ErrUnsupported indicates a parameter the backend cannot honour.
	ErrUnsupported = errors.New("unsupported by engine")
)

// Validate checks the parts of the config every backend depends on.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidConfig, c.Channels)
	}
	if c.Options.Window != WindowShort && c.Options.Window != WindowMedium {
		return fmt.Errorf("%w: unknown window %d", ErrInvalidConfig, c.Options.Window)
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// checkShape validates planar buffers against channels x blockSize.
func checkShape(input, output [][]float32, channels, blockSize int) error {
	if len(input) != channels || len(output) != channels {
		return fmt.Errorf("%w: want %d channels, got input=%d output=%d",
			ErrBufferShape, channels, len(input), len(output))
	}
	for ch := range channels {
		if len(input[ch]) != blockSize || len(output[ch]) != blockSize {
			return fmt.Errorf("%w: channel %d: want %d samples, got input=%d output=%d",
				ErrBufferShape, ch, blockSize, len(input[ch]), len(output[ch]))
		}
	}
	return nil
}
