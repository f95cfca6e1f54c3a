package liveshift

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/go-audio-liveshift/internal/engine"
)

// Shifter is a real-time pitch shifter owning exactly one engine.
//
// Process and ProcessInto are serialised by a non-blocking gate: a second
// caller gets ErrOperationInProgress instead of waiting. Pitch setters are
// safe to call from any goroutine at any time, including while another
// goroutine is processing. Formant changes and Reset are forwarded
// immediately as well, but their effect on a block that is already being
// processed is engine-defined; the shifter logs a warning when that
// happens.
//
// Setters are counted by the gate, so Close refuses to release the engine
// while one is still inside it.
type Shifter struct {
	config Config
	eng    engine.Engine
	logger *slog.Logger

	// Cached at build time.
	blockSize  int
	startDelay int

	gate gate

	// paramMu orders control-side engine writes with their getter state.
	// Process never takes it.
	paramMu       sync.Mutex
	pitch         atomic.Pointer[PitchSpec]
	formantScales atomic.Pointer[[]float64]
	formant       atomic.Int32
}

func newShifter(config *Config, factory engineFactory) (*Shifter, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidParameter)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", logComponent)

	eng, err := factory(config.engineConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("%w: create engine: %w", ErrEngine, err)
	}

	blockSize := eng.BlockSize()
	if blockSize <= 0 {
		_ = eng.Close()
		return nil, fmt.Errorf("%w: engine %s reported block size %d", ErrEngine, eng.Name(), blockSize)
	}

	s := &Shifter{
		config:     *config,
		eng:        eng,
		logger:     logger,
		blockSize:  blockSize,
		startDelay: eng.StartDelay(),
	}
	s.pitch.Store(&PitchSpec{unit: unitRatio, value: identityRatio})
	s.formant.Store(int32(config.Formant))

	logger.Debug("shifter created",
		"engine", eng.Name(),
		"sample_rate", config.SampleRate,
		"channels", config.Channels,
		"window", config.Window.String(),
		"formant", config.Formant.String(),
		"channel_mode", config.ChannelMode.String(),
		"block_size", s.blockSize,
		"start_delay", s.startDelay)

	return s, nil
}

// SetPitch applies a pitch change given in any form.
func (s *Shifter) SetPitch(p PitchSpec) error {
	switch p.unit {
	case unitSemitones:
		return s.SetPitchSemitone(p.value)
	case unitCents:
		return s.SetPitchCent(p.value)
	default:
		return s.SetPitchScale(p.value)
	}
}

// SetPitchScale sets the pitch as a frequency ratio. The ratio must be finite
// and greater than zero.
func (s *Shifter) SetPitchScale(ratio float64) error {
	if !validRatio(ratio) {
		return fmt.Errorf("%w: pitch scale must be finite and positive, got %v", ErrInvalidParameter, ratio)
	}
	return s.applyPitch(PitchSpec{unit: unitRatio, value: ratio}, ratio)
}

// SetPitchSemitone sets the pitch as an offset in semitones. Any finite value
// is accepted as long as the resulting ratio is representable.
func (s *Shifter) SetPitchSemitone(semitones float64) error {
	ratio := SemitonesToRatio(semitones)
	if err := checkOffset("semitones", semitones, ratio); err != nil {
		return err
	}
	return s.applyPitch(PitchSpec{unit: unitSemitones, value: semitones}, ratio)
}

// SetPitchCent sets the pitch as an offset in cents.
func (s *Shifter) SetPitchCent(cents float64) error {
	ratio := CentsToRatio(cents)
	if err := checkOffset("cents", cents, ratio); err != nil {
		return err
	}
	return s.applyPitch(PitchSpec{unit: unitCents, value: cents}, ratio)
}

func (s *Shifter) applyPitch(p PitchSpec, ratio float64) error {
	if err := s.gate.enter(); err != nil {
		return err
	}
	defer s.gate.exit()

	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	s.eng.SetPitchScale(ratio)
	s.pitch.Store(&p)
	return nil
}

// PitchScale returns the last accepted pitch as a ratio.
func (s *Shifter) PitchScale() float64 {
	return s.pitch.Load().Ratio()
}

// PitchSemitone returns the last accepted pitch in semitones.
func (s *Shifter) PitchSemitone() float64 {
	p := s.pitch.Load()
	if p.unit == unitSemitones {
		return p.value
	}
	return RatioToSemitones(p.Ratio())
}

// PitchCent returns the last accepted pitch in cents.
func (s *Shifter) PitchCent() float64 {
	p := s.pitch.Load()
	if p.unit == unitCents {
		return p.value
	}
	return RatioToCents(p.Ratio())
}

// SetFormantScale sets one formant scale per channel. Each value must be
// finite and non-negative; 0 lets the engine choose.
func (s *Shifter) SetFormantScale(scales []float64) error {
	if err := s.gate.enter(); err != nil {
		return err
	}
	defer s.gate.exit()

	if len(scales) != s.config.Channels {
		return fmt.Errorf("%w: need %d formant scales, got %d", ErrInvalidParameter, s.config.Channels, len(scales))
	}
	for ch, v := range scales {
		if !isFinite(v) || v < 0 {
			return fmt.Errorf("%w: formant scale for channel %d must be finite and non-negative, got %v",
				ErrInvalidParameter, ch, v)
		}
	}

	s.warnIfBusy("SetFormantScale")

	owned := slices.Clone(scales)
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	if err := s.eng.SetFormantScale(owned); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}
	s.formantScales.Store(&owned)
	return nil
}

// SetFormantScaleAll applies the same formant scale to every channel.
func (s *Shifter) SetFormantScaleAll(scale float64) error {
	scales := make([]float64, s.config.Channels)
	for i := range scales {
		scales[i] = scale
	}
	return s.SetFormantScale(scales)
}

// FormantScale returns a copy of the last accepted formant scales, or nil if
// none were set.
func (s *Shifter) FormantScale() []float64 {
	p := s.formantScales.Load()
	if p == nil {
		return nil
	}
	return slices.Clone(*p)
}

// SetFormantOption switches formant handling at runtime.
func (s *Shifter) SetFormantOption(f Formant) error {
	if err := s.gate.enter(); err != nil {
		return err
	}
	defer s.gate.exit()

	if !f.valid() {
		return fmt.Errorf("%w: unknown formant option %v", ErrInvalidParameter, f)
	}

	s.warnIfBusy("SetFormantOption")

	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	s.eng.SetFormantOption(f == FormantPreserved)
	s.formant.Store(int32(f))
	return nil
}

// FormantOption returns the current formant handling.
func (s *Shifter) FormantOption() Formant {
	return Formant(s.formant.Load())
}

// Reset discards all audio buffered in the engine. Output after a reset
// starts again from silence. Reset on a closed shifter is a no-op.
func (s *Shifter) Reset() {
	if s.gate.enter() != nil {
		return
	}
	defer s.gate.exit()

	s.warnIfBusy("Reset")
	s.eng.Reset()
}

// BlockSize returns the number of samples per channel that every process
// call consumes and produces.
func (s *Shifter) BlockSize() int {
	return s.blockSize
}

// StartDelay returns the output latency in samples.
func (s *Shifter) StartDelay() int {
	return s.startDelay
}

// Latency returns the start delay as a duration.
func (s *Shifter) Latency() time.Duration {
	return time.Duration(s.startDelay) * time.Second / time.Duration(s.config.SampleRate)
}

// Channels returns the channel count.
func (s *Shifter) Channels() int {
	return s.config.Channels
}

// SampleRate returns the sample rate in Hz.
func (s *Shifter) SampleRate() int {
	return s.config.SampleRate
}

// EngineName identifies the engine backend.
func (s *Shifter) EngineName() string {
	return s.eng.Name()
}

// Config returns the configuration the shifter was built with, with the
// current formant option.
func (s *Shifter) Config() Config {
	c := s.config
	c.Formant = s.FormantOption()
	return c
}

// Close releases the engine. Closing twice is a no-op. Close fails with
// ErrOperationInProgress while a process call or a parameter setter is
// running; nothing is released in that case and Close can be retried.
func (s *Shifter) Close() error {
	closed, err := s.gate.close()
	if err != nil || !closed {
		return err
	}

	if err := s.eng.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrEngine, err)
	}
	s.logger.Debug("shifter closed", "engine", s.eng.Name())
	return nil
}

func (s *Shifter) warnIfBusy(op string) {
	if s.gate.phase() == gateBusy {
		s.logger.Warn("parameter change while processing; effect on the current block is engine-defined",
			"operation", op)
	}
}
