package liveshift

// Channel constants
const (
	stereoChannels = 2   // Stereo channel count (used by interleave functions)
	maxChannels    = 256 // Maximum supported channel count
)

// Debug levels forwarded to the engine
const (
	minDebugLevel = 0
	maxDebugLevel = 3
)

// Pitch conversion
const (
	semitonesPerOctave = 12.0
	centsPerOctave     = 1200.0
	identityRatio      = 1.0
)

// Gate word layout: the low bits hold the phase, the rest count setters
// currently inside the engine.
const (
	gateFree int64 = iota
	gateBusy
	gateClosed

	gatePhaseMask  int64 = 0b11
	gateSetterUnit int64 = 1 << 2
)

// Buffer names used in mismatch errors
const (
	bufferInput  = "input"
	bufferOutput = "output"
)

// logComponent scopes the library's log records.
const logComponent = "liveshift"
