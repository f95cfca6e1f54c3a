package liveshift

import (
	"fmt"
	"log/slog"

	"github.com/tphakala/go-audio-liveshift/internal/engine"
)

// Config holds shifter construction parameters.
type Config struct {
	// SampleRate of the audio in Hz.
	SampleRate int

	// Channels is the number of audio channels per block.
	Channels int

	// Window selects the analysis window. Fixed for the shifter's lifetime.
	Window Window

	// Formant selects the initial formant handling. Can be changed later
	// with Shifter.SetFormantOption.
	Formant Formant

	// ChannelMode selects how channels are processed. Fixed for the
	// shifter's lifetime.
	ChannelMode ChannelMode

	// DebugLevel enables engine diagnostics, 0 (silent) to 3 (verbose).
	DebugLevel int

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// engineFactory creates the engine owned by a shifter.
type engineFactory func(engine.Config) (engine.Engine, error)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParameter, c.SampleRate)
	}

	if c.Channels < 1 {
		return fmt.Errorf("%w: channels must be at least 1, got %d", ErrInvalidParameter, c.Channels)
	}

	if c.Channels > maxChannels {
		return fmt.Errorf("%w: too many channels (max %d)", ErrInvalidParameter, maxChannels)
	}

	if !c.Window.valid() {
		return fmt.Errorf("%w: unknown window %v", ErrInvalidParameter, c.Window)
	}

	if !c.Formant.valid() {
		return fmt.Errorf("%w: unknown formant option %v", ErrInvalidParameter, c.Formant)
	}

	if !c.ChannelMode.valid() {
		return fmt.Errorf("%w: unknown channel mode %v", ErrInvalidParameter, c.ChannelMode)
	}

	if c.DebugLevel < minDebugLevel || c.DebugLevel > maxDebugLevel {
		return fmt.Errorf("%w: debug level must be %d-%d", ErrInvalidParameter, minDebugLevel, maxDebugLevel)
	}

	return nil
}

// New creates a shifter with the specified configuration. The config is
// validated before any engine is allocated.
func New(config *Config) (*Shifter, error) {
	return newShifter(config, engine.New)
}

func (c *Config) engineConfig(logger *slog.Logger) engine.Config {
	return engine.Config{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		Options:    engineOptions(c.Window, c.Formant, c.ChannelMode),
		DebugLevel: c.DebugLevel,
		Logger:     logger,
	}
}
