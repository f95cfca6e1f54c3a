package liveshift

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-liveshift/internal/engine"
)

func TestNewBuilder_RejectsNonPositive(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		channels   int
	}{
		{"zero rate", 0, 2},
		{"negative rate", -44100, 2},
		{"zero channels", 44100, 0},
		{"negative channels", 44100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBuilder(tt.sampleRate, tt.channels)
			require.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, b)
		})
	}
}

func TestBuilder_Defaults(t *testing.T) {
	b, err := NewBuilder(44100, 2)
	require.NoError(t, err)

	cfg := b.Config()
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 2, cfg.Channels)
	assert.Equal(t, WindowShort, cfg.Window)
	assert.Equal(t, FormantShifted, cfg.Formant)
	assert.Equal(t, ChannelsApart, cfg.ChannelMode)
	assert.Zero(t, cfg.DebugLevel)
}

func TestBuilder_ForwardsOptionsToEngine(t *testing.T) {
	fake := newFakeEngine()
	b, err := NewBuilder(44100, 2)
	require.NoError(t, err)
	b.newEngine = fake.factory()

	s, err := b.Window(WindowMedium).
		Formant(FormantPreserved).
		ChannelMode(ChannelsTogether).
		DebugLevel(2).
		Build()
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	assert.Equal(t, engine.Config{
		SampleRate: 44100,
		Channels:   2,
		Options: engine.Options{
			Window:           engine.WindowMedium,
			FormantPreserved: true,
			ChannelsTogether: true,
		},
		DebugLevel: 2,
		Logger:     fake.cfg.Logger,
	}, fake.cfg)
	assert.NotNil(t, fake.cfg.Logger)

	assert.Equal(t, fakeBlockSize, s.BlockSize())
	assert.Equal(t, fakeStartDelay, s.StartDelay())
	assert.Equal(t, "fake", s.EngineName())
	assert.Equal(t, FormantPreserved, s.FormantOption())
}

func TestBuilder_InvalidConfigNeverCreatesEngine(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Builder) *Builder
	}{
		{"unknown window", func(b *Builder) *Builder { return b.Window(Window(7)) }},
		{"unknown formant", func(b *Builder) *Builder { return b.Formant(Formant(-1)) }},
		{"unknown channel mode", func(b *Builder) *Builder { return b.ChannelMode(ChannelMode(3)) }},
		{"debug level too high", func(b *Builder) *Builder { return b.DebugLevel(4) }},
		{"debug level negative", func(b *Builder) *Builder { return b.DebugLevel(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			b, err := NewBuilder(48000, 1)
			require.NoError(t, err)
			b.newEngine = func(engine.Config) (engine.Engine, error) {
				created = true
				return newFakeEngine(), nil
			}

			s, err := tt.apply(b).Build()
			require.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, s)
			assert.False(t, created, "engine must not be created for an invalid config")
		})
	}
}

func TestBuilder_EngineFailure(t *testing.T) {
	b, err := NewBuilder(48000, 1)
	require.NoError(t, err)
	b.newEngine = func(engine.Config) (engine.Engine, error) {
		return nil, errors.New("out of memory")
	}

	s, err := b.Build()
	require.ErrorIs(t, err, ErrEngine)
	assert.Contains(t, err.Error(), "out of memory")
	assert.Nil(t, s)
}

func TestBuilder_ZeroBlockSizeClosesEngine(t *testing.T) {
	fake := newFakeEngine()
	fake.blockSize = 0

	b, err := NewBuilder(48000, 1)
	require.NoError(t, err)
	b.newEngine = fake.factory()

	_, err = b.Build()
	require.ErrorIs(t, err, ErrEngine)
	assert.Equal(t, int64(1), fake.closeCalls.Load())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{SampleRate: 44100, Channels: 2}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero channels", func(c *Config) { c.Channels = 0 }},
		{"too many channels", func(c *Config) { c.Channels = maxChannels + 1 }},
		{"bad window", func(c *Config) { c.Window = Window(2) }},
		{"bad formant", func(c *Config) { c.Formant = Formant(2) }},
		{"bad channel mode", func(c *Config) { c.ChannelMode = ChannelMode(2) }},
		{"bad debug level", func(c *Config) { c.DebugLevel = maxDebugLevel + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidParameter)
		})
	}
}

func TestNew_NilConfig(t *testing.T) {
	s, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Nil(t, s)
}

func TestNew_BuildsDefaultEngine(t *testing.T) {
	s, err := New(&Config{SampleRate: 44100, Channels: 2})
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	assert.Positive(t, s.BlockSize())
	assert.GreaterOrEqual(t, s.StartDelay(), 0)
	assert.Equal(t, 2, s.Channels())
	assert.Equal(t, 44100, s.SampleRate())
	assert.NotEmpty(t, s.EngineName())
}

func TestShifter_Latency(t *testing.T) {
	fake := newFakeEngine()
	fake.startDelay = 480
	s := newFakeShifter(t, 1, fake)

	assert.Equal(t, 10*time.Millisecond, s.Latency())
}

func TestShifter_ConfigReflectsFormantOption(t *testing.T) {
	s := newFakeShifter(t, 1, newFakeEngine())
	require.NoError(t, s.SetFormantOption(FormantPreserved))

	assert.Equal(t, FormantPreserved, s.Config().Formant)
	assert.Equal(t, 48000, s.Config().SampleRate)
}

func TestParseOptions(t *testing.T) {
	w, err := ParseWindow(" Medium ")
	require.NoError(t, err)
	assert.Equal(t, WindowMedium, w)

	f, err := ParseFormant("preserved")
	require.NoError(t, err)
	assert.Equal(t, FormantPreserved, f)

	m, err := ParseChannelMode("together")
	require.NoError(t, err)
	assert.Equal(t, ChannelsTogether, m)

	_, err = ParseWindow("long")
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = ParseFormant("kept")
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = ParseChannelMode("")
	require.ErrorIs(t, err, ErrInvalidParameter)

	for _, v := range []Window{WindowShort, WindowMedium} {
		got, err := ParseWindow(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.Equal(t, "Window(9)", Window(9).String())
}
