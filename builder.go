package liveshift

import (
	"fmt"
	"log/slog"

	"github.com/tphakala/go-audio-liveshift/internal/engine"
)

// Builder accumulates shifter options. Setters only record the choice;
// everything is validated by Build.
//
//	s, err := liveshift.NewBuilder(44100, 2).
//	    Window(liveshift.WindowMedium).
//	    Formant(liveshift.FormantPreserved).
//	    Build()
type Builder struct {
	config    Config
	newEngine engineFactory
}

// NewBuilder starts a shifter for the given sample rate and channel count.
// It fails with ErrInvalidParameter if either is not positive.
func NewBuilder(sampleRate, channels int) (*Builder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: unsupported sample rate %d", ErrInvalidParameter, sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidParameter, channels)
	}
	return &Builder{
		config: Config{
			SampleRate:  sampleRate,
			Channels:    channels,
			Window:      WindowShort,
			Formant:     FormantShifted,
			ChannelMode: ChannelsApart,
		},
		newEngine: engine.New,
	}, nil
}

// Window sets the analysis window.
func (b *Builder) Window(w Window) *Builder {
	b.config.Window = w
	return b
}

// Formant sets the initial formant option.
func (b *Builder) Formant(f Formant) *Builder {
	b.config.Formant = f
	return b
}

// ChannelMode sets the channel processing mode.
func (b *Builder) ChannelMode(m ChannelMode) *Builder {
	b.config.ChannelMode = m
	return b
}

// DebugLevel sets the engine debug level (0-3).
func (b *Builder) DebugLevel(level int) *Builder {
	b.config.DebugLevel = level
	return b
}

// Logger sets the logger for diagnostics.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.config.Logger = logger
	return b
}

// Config returns the recorded configuration.
func (b *Builder) Config() Config {
	return b.config
}

// Build validates the configuration, creates the engine and caches its
// block size and start delay.
func (b *Builder) Build() (*Shifter, error) {
	cfg := b.config
	return newShifter(&cfg, b.newEngine)
}
