package liveshift

import (
	"fmt"
	"math"
)

// pitchUnit tags the form a PitchSpec was expressed in.
type pitchUnit int

const (
	unitRatio pitchUnit = iota
	unitSemitones
	unitCents
)

// PitchSpec is a pitch change expressed as a frequency ratio, in semitones
// or in cents. The zero value is not meaningful; use Ratio, Semitones or
// Cents.
type PitchSpec struct {
	unit  pitchUnit
	value float64
}

// Ratio returns a PitchSpec for a frequency ratio (1.0 = unchanged, 2.0 = up one
// octave).
func Ratio(r float64) PitchSpec { return PitchSpec{unit: unitRatio, value: r} }

// Semitones returns a PitchSpec for an equal-tempered semitone offset.
func Semitones(n float64) PitchSpec { return PitchSpec{unit: unitSemitones, value: n} }

// Cents returns a PitchSpec for an offset in cents (1/100 semitone).
func Cents(n float64) PitchSpec { return PitchSpec{unit: unitCents, value: n} }

// Ratio returns the frequency ratio p describes.
func (p PitchSpec) Ratio() float64 {
	switch p.unit {
	case unitSemitones:
		return SemitonesToRatio(p.value)
	case unitCents:
		return CentsToRatio(p.value)
	default:
		return p.value
	}
}

func (p PitchSpec) String() string {
	switch p.unit {
	case unitSemitones:
		return fmt.Sprintf("%+g st", p.value)
	case unitCents:
		return fmt.Sprintf("%+g ct", p.value)
	default:
		return fmt.Sprintf("x%g", p.value)
	}
}

// SemitonesToRatio converts semitones to a frequency ratio: 2^(n/12).
func SemitonesToRatio(n float64) float64 {
	return math.Exp2(n / semitonesPerOctave)
}

// CentsToRatio converts cents to a frequency ratio: 2^(n/1200).
func CentsToRatio(n float64) float64 {
	return math.Exp2(n / centsPerOctave)
}

// RatioToSemitones converts a frequency ratio to semitones.
func RatioToSemitones(ratio float64) float64 {
	return semitonesPerOctave * math.Log2(ratio)
}

// RatioToCents converts a frequency ratio to cents.
func RatioToCents(ratio float64) float64 {
	return centsPerOctave * math.Log2(ratio)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validRatio reports whether ratio can be handed to the engine.
func validRatio(ratio float64) bool {
	return isFinite(ratio) && ratio > 0
}

// checkOffset validates a semitone or cent offset and its converted ratio.
func checkOffset(name string, n, ratio float64) error {
	if !isFinite(n) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParameter, name, n)
	}
	if !validRatio(ratio) {
		return fmt.Errorf("%w: %v %s is out of range (ratio %v)", ErrInvalidParameter, n, name, ratio)
	}
	return nil
}
