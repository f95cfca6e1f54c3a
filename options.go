package liveshift

import (
	"fmt"
	"strings"

	"github.com/tphakala/go-audio-liveshift/internal/engine"
)

// Window selects the engine's analysis window. It cannot be changed after
// the shifter is built.
type Window int

const (
	// WindowShort gives the lowest latency.
	WindowShort Window = iota

	// WindowMedium uses a longer window, improving low-frequency content at
	// the cost of extra latency.
	WindowMedium
)

// Formant selects how the spectral envelope follows a pitch change.
type Formant int

const (
	// FormantShifted lets formants move with the pitch. This is the default
	// and the cheapest option.
	FormantShifted Formant = iota

	// FormantPreserved keeps the spectral envelope in place, which sounds
	// more natural for voice.
	FormantPreserved
)

// ChannelMode selects how multichannel input is processed. It cannot be
// changed after the shifter is built.
type ChannelMode int

const (
	// ChannelsApart processes every channel independently.
	ChannelsApart ChannelMode = iota

	// ChannelsTogether processes stereo as mid/side to keep the image
	// stable. Other channel counts behave as ChannelsApart.
	ChannelsTogether
)

func (w Window) String() string {
	switch w {
	case WindowShort:
		return "short"
	case WindowMedium:
		return "medium"
	default:
		return fmt.Sprintf("Window(%d)", int(w))
	}
}

func (f Formant) String() string {
	switch f {
	case FormantShifted:
		return "shifted"
	case FormantPreserved:
		return "preserved"
	default:
		return fmt.Sprintf("Formant(%d)", int(f))
	}
}

func (m ChannelMode) String() string {
	switch m {
	case ChannelsApart:
		return "apart"
	case ChannelsTogether:
		return "together"
	default:
		return fmt.Sprintf("ChannelMode(%d)", int(m))
	}
}

func (w Window) valid() bool { return w == WindowShort || w == WindowMedium }

func (f Formant) valid() bool { return f == FormantShifted || f == FormantPreserved }

func (m ChannelMode) valid() bool { return m == ChannelsApart || m == ChannelsTogether }

// ParseWindow parses "short" or "medium".
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short":
		return WindowShort, nil
	case "medium":
		return WindowMedium, nil
	default:
		return 0, fmt.Errorf("%w: unknown window %q", ErrInvalidParameter, s)
	}
}

// ParseFormant parses "shifted" or "preserved".
func ParseFormant(s string) (Formant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shifted":
		return FormantShifted, nil
	case "preserved":
		return FormantPreserved, nil
	default:
		return 0, fmt.Errorf("%w: unknown formant option %q", ErrInvalidParameter, s)
	}
}

// ParseChannelMode parses "apart" or "together".
func ParseChannelMode(s string) (ChannelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "apart":
		return ChannelsApart, nil
	case "together":
		return ChannelsTogether, nil
	default:
		return 0, fmt.Errorf("%w: unknown channel mode %q", ErrInvalidParameter, s)
	}
}

// engineOptions maps the public options onto the engine's.
func engineOptions(w Window, f Formant, m ChannelMode) engine.Options {
	opts := engine.Options{
		Window:           engine.WindowShort,
		FormantPreserved: f == FormantPreserved,
		ChannelsTogether: m == ChannelsTogether,
	}
	if w == WindowMedium {
		opts.Window = engine.WindowMedium
	}
	return opts
}
